package repositories

import (
	"context"
	"time"

	"ping_backend/internal/models"

	"gorm.io/gorm"
)

type OutboxRepository interface {
	// Append writes the event through the caller's *gorm.DB so it joins the
	// transaction that persists the triggering row. The event only becomes
	// visible to FetchPending once that transaction commits.
	Append(tx *gorm.DB, event *models.OutboxEvent) error

	FetchPending(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkProcessed(ctx context.Context, eventID string, processedAt time.Time) error
	MarkRetry(ctx context.Context, eventID string, attempts, maxAttempts int, cause string) error
}

type outboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Append(tx *gorm.DB, event *models.OutboxEvent) error {
	return tx.Create(event).Error
}

// FetchPending returns the oldest pending events that still have retry
// budget, in creation order.
func (r *outboxRepository) FetchPending(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	var events []models.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", models.OutboxStatusPending, maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, eventID string, processedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OutboxEvent{}).
		Where("id = ?", eventID).
		Updates(map[string]interface{}{
			"status":       models.OutboxStatusProcessed,
			"processed_at": processedAt,
		}).Error
}

// MarkRetry bumps the attempt counter and records the cause. The event
// stays pending until it exhausts maxAttempts, then flips to failed.
func (r *outboxRepository) MarkRetry(ctx context.Context, eventID string, attempts, maxAttempts int, cause string) error {
	status := models.OutboxStatusPending
	if attempts >= maxAttempts {
		status = models.OutboxStatusFailed
	}
	return r.db.WithContext(ctx).
		Model(&models.OutboxEvent{}).
		Where("id = ?", eventID).
		Updates(map[string]interface{}{
			"status":     status,
			"attempts":   attempts,
			"last_error": cause,
		}).Error
}
