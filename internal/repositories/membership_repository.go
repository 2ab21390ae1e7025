package repositories

import (
	"context"
	"errors"
	"time"

	"ping_backend/internal/models"

	"gorm.io/gorm"
)

// MembershipRepository answers the read-only audience questions recipient
// resolution asks of the conversation/channel/kanban domains. Staleness is
// acceptable here; these reads take no locks.
type MembershipRepository interface {
	ParticipantsOf(ctx context.Context, conversationID string) ([]string, error)
	IsConversationMuted(ctx context.Context, userID, conversationID string) (bool, error)

	CanViewChannel(ctx context.Context, userID, channelID string) (bool, error)
	IsChannelMuted(ctx context.Context, userID, channelID string) (bool, error)

	CardAudience(ctx context.Context, cardID string) ([]string, error)
	BoardAudience(ctx context.Context, boardID string) ([]string, error)
}

// PreferenceRepository answers per-user suppression questions.
type PreferenceRepository interface {
	IsDoNotDisturbActive(ctx context.Context, userID string) (bool, error)
}

type membershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) ParticipantsOf(ctx context.Context, conversationID string) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND left_at IS NULL", conversationID).
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}

func (r *membershipRepository) IsConversationMuted(ctx context.Context, userID, conversationID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ? AND muted = ?", conversationID, userID, true).
		Count(&count).Error
	return count > 0, err
}

// CanViewChannel: membership implies visibility.
func (r *membershipRepository) CanViewChannel(ctx context.Context, userID, channelID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *membershipRepository) IsChannelMuted(ctx context.Context, userID, channelID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChannelMember{}).
		Where("channel_id = ? AND user_id = ? AND muted = ?", channelID, userID, true).
		Count(&count).Error
	return count > 0, err
}

func (r *membershipRepository) CardAudience(ctx context.Context, cardID string) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).
		Model(&models.CardWatcher{}).
		Where("card_id = ?", cardID).
		Distinct().
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}

func (r *membershipRepository) BoardAudience(ctx context.Context, boardID string) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).
		Model(&models.BoardWatcher{}).
		Where("board_id = ?", boardID).
		Distinct().
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}

type preferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

// IsDoNotDisturbActive: the flag suppresses notifications until dnd_until
// passes; a null dnd_until means indefinitely.
func (r *preferenceRepository) IsDoNotDisturbActive(ctx context.Context, userID string) (bool, error) {
	var pref models.UserPreference
	err := r.db.WithContext(ctx).First(&pref, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if !pref.DoNotDisturb {
		return false, nil
	}
	if pref.DNDUntil != nil && pref.DNDUntil.Before(time.Now()) {
		return false, nil
	}
	return true, nil
}
