package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Fact kinds accepted by the notification outbox.
const (
	FactKindDirectMessage  = "direct_message"
	FactKindChannelMention = "channel_mention"
	FactKindCardUpdate     = "card_update"
	FactKindBoardUpdate    = "board_update"
	FactKindInvite         = "invite"
	FactKindBot            = "bot"
	FactKindCalendarEvent  = "calendar_event"
)

const (
	OutboxStatusPending   = "pending"
	OutboxStatusProcessed = "processed"
	OutboxStatusFailed    = "failed"
)

// OutboxEvent records a committed domain fact awaiting notification
// fan-out. Domain services append it inside the same transaction as the
// triggering row, so the worker only ever observes facts whose originating
// write is durable.
type OutboxEvent struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	Kind        string `gorm:"not null;size:32"`
	ActorUserID string `gorm:"not null"`

	// Pre-resolved single recipient, when the producer already knows it.
	RecipientUserID      *string `gorm:"type:uuid"`
	DirectConversationID *string `gorm:"type:uuid"`
	ChannelID            *string `gorm:"type:uuid"`
	MessageID            *string `gorm:"type:uuid"`
	// Card, board or calendar event id, depending on Kind.
	TargetID *string `gorm:"type:uuid"`

	// Explicitly targeted users: mentioned ids, invitees or attendees.
	TargetUserIDs datatypes.JSON

	// Optional type override; empty means derive from Kind.
	Type string `gorm:"size:32"`
	Text string `gorm:"not null;size:280"`

	Status      string `gorm:"not null;size:16;index:ix_outbox_status_created,priority:1"`
	Attempts    int    `gorm:"not null;default:0"`
	LastError   *string
	CreatedAt   time.Time `gorm:"not null;index:ix_outbox_status_created,priority:2"`
	ProcessedAt *time.Time
}

func (OutboxEvent) TableName() string {
	return "notification_outbox"
}

func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = OutboxStatusPending
	}
	return nil
}

// ValidFactKind reports whether k is a known fact kind.
func ValidFactKind(k string) bool {
	switch k {
	case FactKindDirectMessage, FactKindChannelMention, FactKindCardUpdate,
		FactKindBoardUpdate, FactKindInvite, FactKindBot, FactKindCalendarEvent:
		return true
	}
	return false
}

// DefaultNotificationType maps a fact kind to the notification type used
// when the event carries no explicit override.
func DefaultNotificationType(kind string) string {
	switch kind {
	case FactKindChannelMention:
		return NotificationTypeMention
	case FactKindCardUpdate:
		return NotificationTypeCardUpdate
	case FactKindBoardUpdate:
		return NotificationTypeBoardUpdate
	case FactKindInvite:
		return NotificationTypeInvite
	case FactKindBot:
		return NotificationTypeBot
	case FactKindCalendarEvent:
		return NotificationTypeCalendarEvent
	default:
		return NotificationTypeMessage
	}
}
