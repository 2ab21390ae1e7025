package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Membership and preference tables consumed read-only by recipient
// resolution. They are owned by the conversation/channel/kanban domains;
// this core never writes them outside of tests and migrations.

type ConversationParticipant struct {
	ID             string `gorm:"primaryKey;type:uuid"`
	ConversationID string `gorm:"not null;index"`
	UserID         string `gorm:"not null;index"`
	Muted          bool   `gorm:"not null;default:false"`
	JoinedAt       time.Time
	LeftAt         *time.Time
}

func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}

func (p *ConversationParticipant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type ChannelMember struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	ChannelID string `gorm:"not null;index"`
	UserID    string `gorm:"not null;index"`
	Muted     bool   `gorm:"not null;default:false"`
	JoinedAt  time.Time
}

func (ChannelMember) TableName() string {
	return "channel_members"
}

func (m *ChannelMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Watcher roles.
const (
	WatcherRoleAssignee = "assignee"
	WatcherRoleWatcher  = "watcher"
	WatcherRoleOwner    = "owner"
)

type CardWatcher struct {
	ID     string `gorm:"primaryKey;type:uuid"`
	CardID string `gorm:"not null;index"`
	UserID string `gorm:"not null;index"`
	Role   string `gorm:"not null;size:16;default:'watcher'"`
}

func (CardWatcher) TableName() string {
	return "card_watchers"
}

func (w *CardWatcher) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

type BoardWatcher struct {
	ID      string `gorm:"primaryKey;type:uuid"`
	BoardID string `gorm:"not null;index"`
	UserID  string `gorm:"not null;index"`
	Role    string `gorm:"not null;size:16;default:'watcher'"`
}

func (BoardWatcher) TableName() string {
	return "board_watchers"
}

func (w *BoardWatcher) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

// UserPreference holds per-user notification suppression. DND is active
// while DNDUntil is unset or in the future.
type UserPreference struct {
	UserID       string `gorm:"primaryKey;type:uuid"`
	DoNotDisturb bool   `gorm:"not null;default:false"`
	DNDUntil     *time.Time
	UpdatedAt    time.Time
}

func (UserPreference) TableName() string {
	return "user_preferences"
}
