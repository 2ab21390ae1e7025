package services

import (
	"context"
	"fmt"
	"sort"

	"ping_backend/internal/models"
	"ping_backend/internal/services/dto"
)

// Narrow read-only capability interfaces over the other domains. The
// resolver depends only on these, so tests use fakes and the real
// implementations can move as those domains evolve.

type ParticipantLookup interface {
	ParticipantsOf(ctx context.Context, conversationID string) ([]string, error)
	IsConversationMuted(ctx context.Context, userID, conversationID string) (bool, error)
}

type ChannelLookup interface {
	CanViewChannel(ctx context.Context, userID, channelID string) (bool, error)
	IsChannelMuted(ctx context.Context, userID, channelID string) (bool, error)
}

type KanbanLookup interface {
	CardAudience(ctx context.Context, cardID string) ([]string, error)
	BoardAudience(ctx context.Context, boardID string) ([]string, error)
}

type PreferenceLookup interface {
	IsDoNotDisturbActive(ctx context.Context, userID string) (bool, error)
}

// RecipientResolver decides WHO gets notified for a fact. Pure policy: no
// writes, no pushes. Lookup failures propagate instead of silently over- or
// under-notifying; a mention leaking to a user without channel visibility
// is worse than a retried event.
type RecipientResolver interface {
	Resolve(ctx context.Context, fact *dto.Fact) ([]string, error)
}

type recipientResolver struct {
	participants ParticipantLookup
	channels     ChannelLookup
	kanban       KanbanLookup
	preferences  PreferenceLookup
}

func NewRecipientResolver(
	participants ParticipantLookup,
	channels ChannelLookup,
	kanban KanbanLookup,
	preferences PreferenceLookup,
) RecipientResolver {
	return &recipientResolver{
		participants: participants,
		channels:     channels,
		kanban:       kanban,
		preferences:  preferences,
	}
}

// Resolve returns a duplicate-free recipient set that never contains the
// actor. An empty result means no notification work to do.
func (r *recipientResolver) Resolve(ctx context.Context, fact *dto.Fact) ([]string, error) {
	var (
		recipients map[string]struct{}
		err        error
	)

	switch fact.Kind {
	case models.FactKindDirectMessage:
		recipients, err = r.forDirectMessage(ctx, fact)
	case models.FactKindChannelMention:
		recipients, err = r.forChannelMention(ctx, fact)
	case models.FactKindCardUpdate:
		recipients, err = r.forCardUpdate(ctx, fact)
	case models.FactKindBoardUpdate:
		recipients, err = r.forBoardUpdate(ctx, fact)
	case models.FactKindInvite:
		recipients, err = r.forInvite(ctx, fact)
	case models.FactKindBot:
		recipients, err = r.forBot(ctx, fact)
	case models.FactKindCalendarEvent:
		recipients, err = r.forCalendarEvent(ctx, fact)
	default:
		return nil, fmt.Errorf("unknown fact kind %q", fact.Kind)
	}
	if err != nil {
		return nil, err
	}

	delete(recipients, fact.ActorUserID)

	out := make([]string, 0, len(recipients))
	for userID := range recipients {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out, nil
}

// forDirectMessage: all current participants, minus the actor, minus users
// who muted the conversation or have DND active. A pre-resolved recipient
// on the fact short-circuits the membership lookup but keeps the filters.
func (r *recipientResolver) forDirectMessage(ctx context.Context, fact *dto.Fact) (map[string]struct{}, error) {
	var candidates []string
	if fact.RecipientUserID != "" {
		candidates = []string{fact.RecipientUserID}
	} else {
		if fact.DirectConversationID == "" {
			return map[string]struct{}{}, nil
		}
		var err error
		candidates, err = r.participants.ParticipantsOf(ctx, fact.DirectConversationID)
		if err != nil {
			return nil, fmt.Errorf("participants lookup: %w", err)
		}
	}

	recipients := make(map[string]struct{}, len(candidates))
	for _, userID := range candidates {
		if userID == fact.ActorUserID {
			continue
		}
		if fact.DirectConversationID != "" {
			muted, err := r.participants.IsConversationMuted(ctx, userID, fact.DirectConversationID)
			if err != nil {
				return nil, fmt.Errorf("mute lookup: %w", err)
			}
			if muted {
				continue
			}
		}
		dnd, err := r.preferences.IsDoNotDisturbActive(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("preference lookup: %w", err)
		}
		if dnd {
			continue
		}
		recipients[userID] = struct{}{}
	}
	return recipients, nil
}

// forChannelMention: exactly the mentioned users with channel visibility.
// Never broadcast to the whole channel.
func (r *recipientResolver) forChannelMention(ctx context.Context, fact *dto.Fact) (map[string]struct{}, error) {
	if fact.ChannelID == "" || len(fact.TargetUserIDs) == 0 {
		return map[string]struct{}{}, nil
	}

	recipients := make(map[string]struct{}, len(fact.TargetUserIDs))
	for _, userID := range fact.TargetUserIDs {
		if userID == fact.ActorUserID {
			continue
		}
		visible, err := r.channels.CanViewChannel(ctx, userID, fact.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("visibility lookup: %w", err)
		}
		if !visible {
			continue
		}
		muted, err := r.channels.IsChannelMuted(ctx, userID, fact.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("mute lookup: %w", err)
		}
		if muted {
			continue
		}
		dnd, err := r.preferences.IsDoNotDisturbActive(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("preference lookup: %w", err)
		}
		if dnd {
			continue
		}
		recipients[userID] = struct{}{}
	}
	return recipients, nil
}

func (r *recipientResolver) forCardUpdate(ctx context.Context, fact *dto.Fact) (map[string]struct{}, error) {
	if fact.TargetID == "" {
		return map[string]struct{}{}, nil
	}
	audience, err := r.kanban.CardAudience(ctx, fact.TargetID)
	if err != nil {
		return nil, fmt.Errorf("card audience lookup: %w", err)
	}
	return r.filterDND(ctx, audience, fact.ActorUserID)
}

func (r *recipientResolver) forBoardUpdate(ctx context.Context, fact *dto.Fact) (map[string]struct{}, error) {
	if fact.TargetID == "" {
		return map[string]struct{}{}, nil
	}
	audience, err := r.kanban.BoardAudience(ctx, fact.TargetID)
	if err != nil {
		return nil, fmt.Errorf("board audience lookup: %w", err)
	}
	return r.filterDND(ctx, audience, fact.ActorUserID)
}

// forInvite: the invitees only. Invitee ids travel on the fact itself.
func (r *recipientResolver) forInvite(ctx context.Context, fact *dto.Fact) (map[string]struct{}, error) {
	return r.filterDND(ctx, fact.TargetUserIDs, fact.ActorUserID)
}

func (r *recipientResolver) forBot(ctx context.Context, fact *dto.Fact) (map[string]struct{}, error) {
	if fact.RecipientUserID == "" {
		return map[string]struct{}{}, nil
	}
	return r.filterDND(ctx, []string{fact.RecipientUserID}, fact.ActorUserID)
}

func (r *recipientResolver) forCalendarEvent(ctx context.Context, fact *dto.Fact) (map[string]struct{}, error) {
	return r.filterDND(ctx, fact.TargetUserIDs, fact.ActorUserID)
}

func (r *recipientResolver) filterDND(ctx context.Context, candidates []string, actorUserID string) (map[string]struct{}, error) {
	recipients := make(map[string]struct{}, len(candidates))
	for _, userID := range candidates {
		if userID == actorUserID {
			continue
		}
		dnd, err := r.preferences.IsDoNotDisturbActive(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("preference lookup: %w", err)
		}
		if dnd {
			continue
		}
		recipients[userID] = struct{}{}
	}
	return recipients, nil
}
