package repositories

import (
	"context"
	"errors"
	"time"

	"ping_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrDuplicateNotification reports a violation of the
	// (recipient_user_id, message_id) uniqueness constraint. Callers treat
	// it as "already notified", not as a failure.
	ErrDuplicateNotification = errors.New("notification already exists for recipient and message")
)

// NotificationCriteria filters a recipient's inbox listing. Filters apply
// before pagination in both paging modes.
type NotificationCriteria struct {
	UnreadOnly bool
	Type       string
	Since      time.Time // inclusive lower bound on created_at
	Before     time.Time // exclusive upper bound on created_at
}

// CursorKey is the (created_at, id) position of the last item the caller
// has seen. Listing resumes strictly after it in (created_at DESC, id DESC)
// order, which keeps pages stable under concurrent inserts.
type CursorKey struct {
	CreatedAt time.Time
	ID        string
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	FindByRecipientAndMessage(ctx context.Context, recipientUserID, messageID string) (*models.Notification, error)

	FindUserNotifications(ctx context.Context, userID string, criteria NotificationCriteria, page, pageSize int) ([]models.Notification, int64, error)
	FindUserNotificationsCursor(ctx context.Context, userID string, criteria NotificationCriteria, limit int, after *CursorKey) ([]models.Notification, bool, error)
	CountUnread(ctx context.Context, userID string) (int64, error)

	MarkAsRead(ctx context.Context, userID, notificationID string, readAt time.Time) (bool, error)
	MarkAllAsRead(ctx context.Context, userID string, readAt time.Time) (int64, error)

	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create persists a notification. The store-level uniqueness constraint is
// the arbiter for concurrent duplicate-fact processing: the second writer
// gets ErrDuplicateNotification instead of racing.
func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	err := r.db.WithContext(ctx).Create(notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateNotification
		}
		return err
	}
	return nil
}

func (r *notificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.WithContext(ctx).First(&notification, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &notification, nil
}

func (r *notificationRepository) FindByRecipientAndMessage(ctx context.Context, recipientUserID, messageID string) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.WithContext(ctx).
		Where("recipient_user_id = ? AND message_id = ?", recipientUserID, messageID).
		First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &notification, nil
}

func (r *notificationRepository) baseQuery(ctx context.Context, userID string, criteria NotificationCriteria) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_user_id = ?", userID)

	if criteria.UnreadOnly {
		query = query.Where("status = ?", models.NotificationStatusUnread)
	}
	if criteria.Type != "" {
		query = query.Where("type = ?", criteria.Type)
	}
	if !criteria.Since.IsZero() {
		query = query.Where("created_at >= ?", criteria.Since)
	}
	if !criteria.Before.IsZero() {
		query = query.Where("created_at < ?", criteria.Before)
	}
	return query
}

// FindUserNotifications is the offset/page mode. Acceptable for small
// inboxes; pages can shift under concurrent inserts.
func (r *notificationRepository) FindUserNotifications(ctx context.Context, userID string, criteria NotificationCriteria, page, pageSize int) ([]models.Notification, int64, error) {
	var notifications []models.Notification

	query := r.baseQuery(ctx, userID, criteria)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// FindUserNotificationsCursor is the cursor mode. The (created_at, id)
// tuple gives a total order even when timestamps collide, so a page anchored
// on the last-seen key never skips or repeats rows that existed at
// cursor-capture time.
func (r *notificationRepository) FindUserNotificationsCursor(ctx context.Context, userID string, criteria NotificationCriteria, limit int, after *CursorKey) ([]models.Notification, bool, error) {
	var notifications []models.Notification

	query := r.baseQuery(ctx, userID, criteria)
	if after != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			after.CreatedAt, after.CreatedAt, after.ID,
		)
	}

	// Fetch one extra row to learn whether more remain.
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&notifications).Error
	if err != nil {
		return nil, false, err
	}

	hasMore := len(notifications) > limit
	if hasMore {
		notifications = notifications[:limit]
	}
	return notifications, hasMore, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_user_id = ? AND status = ?", userID, models.NotificationStatusUnread).
		Count(&count).Error
	return count, err
}

// MarkAsRead flips one UNREAD row owned by userID to READ. Returns false
// when nothing matched; the caller cannot tell a missing row from a row
// owned by someone else.
func (r *notificationRepository) MarkAsRead(ctx context.Context, userID, notificationID string, readAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_user_id = ? AND status = ?",
			notificationID, userID, models.NotificationStatusUnread).
		Updates(map[string]interface{}{
			"status":  models.NotificationStatusRead,
			"read_at": readAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkAllAsRead is a single bulk UPDATE scoped to the user's UNREAD rows.
// Rows inserted after the statement starts stay UNREAD for the next call.
func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID string, readAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_user_id = ? AND status = ?", userID, models.NotificationStatusUnread).
		Updates(map[string]interface{}{
			"status":  models.NotificationStatusRead,
			"read_at": readAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteReadBefore purges read rows older than the cutoff. Unread rows are
// never purged.
func (r *notificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.NotificationStatusRead, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
