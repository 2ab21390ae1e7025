package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification types. Unknown or absent type defaults to message at
// creation time.
const (
	NotificationTypeMessage       = "message"
	NotificationTypeMention       = "mention"
	NotificationTypeCardUpdate    = "card_update"
	NotificationTypeBoardUpdate   = "board_update"
	NotificationTypeInvite        = "invite"
	NotificationTypeBot           = "bot"
	NotificationTypeCalendarEvent = "calendar_event"
)

const (
	NotificationStatusUnread = "unread"
	NotificationStatusRead   = "read"
)

// Notification is one inbox row per (recipient, triggering item). The
// unique index on (recipient_user_id, message_id) suppresses duplicate
// creation when the same fact is processed twice; rows without a message id
// are exempt (SQL allows repeated NULLs in a unique index).
type Notification struct {
	ID              string `gorm:"primaryKey;type:uuid" json:"id"`
	RecipientUserID string `gorm:"not null;uniqueIndex:uq_notifications_recipient_message;index:ix_notifications_recipient_status_created,priority:1;index:ix_notifications_recipient_created,priority:1" json:"recipient_user_id"`
	ActorUserID     string `gorm:"not null" json:"actor_user_id"`

	// Context pointers for deep-linking; opaque to this core.
	DirectConversationID *string `gorm:"type:uuid" json:"direct_conversation_id,omitempty"`
	ChannelID            *string `gorm:"type:uuid" json:"channel_id,omitempty"`
	MessageID            *string `gorm:"type:uuid;uniqueIndex:uq_notifications_recipient_message" json:"message_id,omitempty"`

	Type   string `gorm:"not null;size:32;index:ix_notifications_recipient_status_created,priority:3" json:"type"`
	Status string `gorm:"not null;size:16;index:ix_notifications_recipient_status_created,priority:2" json:"status"`

	// Render-ready display line, fixed at creation.
	Text string         `gorm:"not null;size:280" json:"text"`
	Data datatypes.JSON `json:"data,omitempty"`

	CreatedAt time.Time  `gorm:"not null;index:ix_notifications_recipient_created,priority:2" json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate fills defaults so rows built outside the service factory
// still satisfy the invariants.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Type == "" {
		n.Type = NotificationTypeMessage
	}
	if n.Status == "" {
		n.Status = NotificationStatusUnread
	}
	return nil
}

// ValidNotificationType reports whether t is a known type constant.
func ValidNotificationType(t string) bool {
	switch t {
	case NotificationTypeMessage, NotificationTypeMention,
		NotificationTypeCardUpdate, NotificationTypeBoardUpdate,
		NotificationTypeInvite, NotificationTypeBot,
		NotificationTypeCalendarEvent:
		return true
	}
	return false
}
