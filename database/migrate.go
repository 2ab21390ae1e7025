package database

import (
	"ping_backend/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates the schema for every model the pipeline
// owns, including the reference membership and preference tables the
// resolver reads.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Notification{},
		&models.OutboxEvent{},
		&models.ConversationParticipant{},
		&models.ChannelMember{},
		&models.CardWatcher{},
		&models.BoardWatcher{},
		&models.UserPreference{},
	)
}
