package dto

import (
	"time"
)

// ---------------- Inputs ----------------

// CreateNotificationInput is the writer's input, normally built by the
// outbox worker from a resolved fact.
type CreateNotificationInput struct {
	RecipientUserID      string                 `json:"recipient_user_id" validate:"required"`
	ActorUserID          string                 `json:"actor_user_id" validate:"required"`
	DirectConversationID string                 `json:"direct_conversation_id,omitempty"`
	ChannelID            string                 `json:"channel_id,omitempty"`
	MessageID            string                 `json:"message_id,omitempty"`
	Type                 string                 `json:"type,omitempty"`
	Text                 string                 `json:"text" validate:"required,max=280"`
	Data                 map[string]interface{} `json:"data,omitempty"`
}

// Fact is the committed domain event handed to the notification outbox by
// the message/kanban/invite services.
type Fact struct {
	Kind                 string   `json:"kind" validate:"required,oneof=direct_message channel_mention card_update board_update invite bot calendar_event"`
	ActorUserID          string   `json:"actor_user_id" validate:"required"`
	RecipientUserID      string   `json:"recipient_user_id,omitempty"`
	DirectConversationID string   `json:"direct_conversation_id,omitempty"`
	ChannelID            string   `json:"channel_id,omitempty"`
	MessageID            string   `json:"message_id,omitempty"`
	TargetID             string   `json:"target_id,omitempty"`
	TargetUserIDs        []string `json:"target_user_ids,omitempty"`
	Type                 string   `json:"type,omitempty"`
	Text                 string   `json:"text" validate:"required,max=280"`
}

// ListNotificationsQuery carries the read-side filters. A non-empty Cursor
// selects cursor pagination; otherwise Page/PageSize offset paging is used.
type ListNotificationsQuery struct {
	UnreadOnly bool
	Type       string
	Since      time.Time
	Before     time.Time
	Limit      int
	Cursor     string
	Page       int
	PageSize   int
}

// ---------------- Responses ----------------

type NotificationResponse struct {
	ID                   string                 `json:"id"`
	Text                 string                 `json:"text"`
	Type                 string                 `json:"type"`
	Status               string                 `json:"status"`
	ActorUserID          string                 `json:"actor_user_id"`
	MessageID            *string                `json:"message_id,omitempty"`
	DirectConversationID *string                `json:"direct_conversation_id,omitempty"`
	ChannelID            *string                `json:"channel_id,omitempty"`
	Data                 map[string]interface{} `json:"data,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
	ReadAt               *time.Time             `json:"read_at,omitempty"`
}

type NotificationListResponse struct {
	Notifications []*NotificationResponse `json:"notifications"`
	HasMore       bool                    `json:"has_more"`
	NextCursor    string                  `json:"next_cursor,omitempty"`

	// Offset mode only.
	Total      *int64 `json:"total,omitempty"`
	Page       int    `json:"page,omitempty"`
	PageSize   int    `json:"page_size,omitempty"`
	TotalPages int    `json:"total_pages,omitempty"`
}

type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}
