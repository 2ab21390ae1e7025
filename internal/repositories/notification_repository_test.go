package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ping_backend/database"
	"ping_backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	// A single connection keeps every session on the same in-memory
	// database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func strPtr(s string) *string {
	return &s
}

func TestNotificationRepository_CreateDuplicate(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	first := &models.Notification{
		RecipientUserID: "user-b",
		ActorUserID:     "user-a",
		MessageID:       strPtr("msg-1"),
		Text:            "hello",
	}
	require.NoError(t, repo.Create(ctx, first))

	second := &models.Notification{
		RecipientUserID: "user-b",
		ActorUserID:     "user-a",
		MessageID:       strPtr("msg-1"),
		Text:            "hello again",
	}
	err := repo.Create(ctx, second)
	assert.ErrorIs(t, err, ErrDuplicateNotification)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestNotificationRepository_CreateWithoutMessageID(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	// Rows without a message id are exempt from the uniqueness constraint.
	for i := 0; i < 2; i++ {
		n := &models.Notification{
			RecipientUserID: "user-b",
			ActorUserID:     "user-a",
			Type:            models.NotificationTypeBoardUpdate,
			Text:            "board renamed",
		}
		require.NoError(t, repo.Create(ctx, n))
	}

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func seedNotifications(t *testing.T, repo NotificationRepository, userID string, n int, base time.Time) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		notification := &models.Notification{
			ID:              fmt.Sprintf("n-%03d", i),
			RecipientUserID: userID,
			ActorUserID:     "actor",
			MessageID:       strPtr(fmt.Sprintf("msg-%03d", i)),
			Text:            fmt.Sprintf("message %d", i),
			CreatedAt:       base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Create(context.Background(), notification))
		ids = append(ids, notification.ID)
	}
	return ids
}

func TestNotificationRepository_CursorPagination(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	seedNotifications(t, repo, "user-b", 5, base)

	first, hasMore, err := repo.FindUserNotificationsCursor(ctx, "user-b", NotificationCriteria{}, 2, nil)
	require.NoError(t, err)
	assert.True(t, hasMore)
	require.Len(t, first, 2)
	assert.Equal(t, "n-004", first[0].ID)
	assert.Equal(t, "n-003", first[1].ID)

	after := &CursorKey{CreatedAt: first[1].CreatedAt, ID: first[1].ID}
	second, hasMore, err := repo.FindUserNotificationsCursor(ctx, "user-b", NotificationCriteria{}, 2, after)
	require.NoError(t, err)
	assert.True(t, hasMore)
	require.Len(t, second, 2)
	assert.Equal(t, "n-002", second[0].ID)
	assert.Equal(t, "n-001", second[1].ID)

	after = &CursorKey{CreatedAt: second[1].CreatedAt, ID: second[1].ID}
	third, hasMore, err := repo.FindUserNotificationsCursor(ctx, "user-b", NotificationCriteria{}, 2, after)
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, third, 1)
	assert.Equal(t, "n-000", third[0].ID)
}

func TestNotificationRepository_CursorStableUnderInserts(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	seedNotifications(t, repo, "user-b", 4, base)

	first, _, err := repo.FindUserNotificationsCursor(ctx, "user-b", NotificationCriteria{}, 2, nil)
	require.NoError(t, err)
	require.Len(t, first, 2)

	// A newer row arrives between page fetches.
	fresh := &models.Notification{
		ID:              "n-new",
		RecipientUserID: "user-b",
		ActorUserID:     "actor",
		MessageID:       strPtr("msg-new"),
		Text:            "late arrival",
		CreatedAt:       base.Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, fresh))

	after := &CursorKey{CreatedAt: first[1].CreatedAt, ID: first[1].ID}
	second, _, err := repo.FindUserNotificationsCursor(ctx, "user-b", NotificationCriteria{}, 2, after)
	require.NoError(t, err)
	require.Len(t, second, 2)
	// The next page continues past the cursor; the new row never causes a
	// repeat or a skip.
	assert.Equal(t, "n-001", second[0].ID)
	assert.Equal(t, "n-000", second[1].ID)
}

func TestNotificationRepository_CursorTieBreakOnEqualTimestamps(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for _, id := range []string{"n-a", "n-b", "n-c"} {
		n := &models.Notification{
			ID:              id,
			RecipientUserID: "user-b",
			ActorUserID:     "actor",
			MessageID:       strPtr("msg-" + id),
			Text:            "same instant",
			CreatedAt:       at,
		}
		require.NoError(t, repo.Create(ctx, n))
	}

	page, hasMore, err := repo.FindUserNotificationsCursor(ctx, "user-b", NotificationCriteria{}, 2, nil)
	require.NoError(t, err)
	assert.True(t, hasMore)
	require.Len(t, page, 2)
	assert.Equal(t, "n-c", page[0].ID)
	assert.Equal(t, "n-b", page[1].ID)

	after := &CursorKey{CreatedAt: page[1].CreatedAt, ID: page[1].ID}
	rest, hasMore, err := repo.FindUserNotificationsCursor(ctx, "user-b", NotificationCriteria{}, 2, after)
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, rest, 1)
	assert.Equal(t, "n-a", rest[0].ID)
}

func TestNotificationRepository_Filters(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	seedNotifications(t, repo, "user-b", 4, base)
	mention := &models.Notification{
		ID:              "n-mention",
		RecipientUserID: "user-b",
		ActorUserID:     "actor",
		MessageID:       strPtr("msg-mention"),
		Type:            models.NotificationTypeMention,
		Text:            "you were mentioned",
		CreatedAt:       base.Add(10 * time.Second),
	}
	require.NoError(t, repo.Create(ctx, mention))

	byType, _, err := repo.FindUserNotificationsCursor(ctx, "user-b", NotificationCriteria{Type: models.NotificationTypeMention}, 10, nil)
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "n-mention", byType[0].ID)

	since, _, err := repo.FindUserNotificationsCursor(ctx, "user-b", NotificationCriteria{Since: base.Add(2 * time.Second)}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, since, 3)

	before, _, err := repo.FindUserNotificationsCursor(ctx, "user-b", NotificationCriteria{Before: base.Add(2 * time.Second)}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, before, 2)
}

func TestNotificationRepository_MarkAsRead(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	n := &models.Notification{
		RecipientUserID: "user-b",
		ActorUserID:     "user-a",
		MessageID:       strPtr("msg-1"),
		Text:            "hello",
	}
	require.NoError(t, repo.Create(ctx, n))

	readAt := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	updated, err := repo.MarkAsRead(ctx, "user-b", n.ID, readAt)
	require.NoError(t, err)
	assert.True(t, updated)

	got, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStatusRead, got.Status)
	require.NotNil(t, got.ReadAt)

	// Read state never goes backwards; a second mark matches nothing.
	updated, err = repo.MarkAsRead(ctx, "user-b", n.ID, readAt.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, updated)

	again, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, readAt.Unix(), again.ReadAt.Unix())
}

func TestNotificationRepository_MarkAsReadForeignRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	n := &models.Notification{
		RecipientUserID: "user-b",
		ActorUserID:     "user-a",
		MessageID:       strPtr("msg-1"),
		Text:            "hello",
	}
	require.NoError(t, repo.Create(ctx, n))

	updated, err := repo.MarkAsRead(ctx, "user-c", n.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, updated)

	got, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStatusUnread, got.Status)
}

func TestNotificationRepository_MarkAllAsReadAndCount(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	seedNotifications(t, repo, "user-b", 3, base)
	seedOther := &models.Notification{
		RecipientUserID: "user-c",
		ActorUserID:     "actor",
		MessageID:       strPtr("msg-other"),
		Text:            "not yours",
	}
	require.NoError(t, repo.Create(ctx, seedOther))

	count, err := repo.CountUnread(ctx, "user-b")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	affected, err := repo.MarkAllAsRead(ctx, "user-b", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)

	count, err = repo.CountUnread(ctx, "user-b")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// Other users' rows are untouched.
	count, err = repo.CountUnread(ctx, "user-c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Idempotent: a second sweep affects nothing.
	affected, err = repo.MarkAllAsRead(ctx, "user-b", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestNotificationRepository_DeleteReadBefore(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	old := &models.Notification{
		ID:              "n-old",
		RecipientUserID: "user-b",
		ActorUserID:     "actor",
		MessageID:       strPtr("msg-old"),
		Text:            "old",
		CreatedAt:       base,
	}
	require.NoError(t, repo.Create(ctx, old))
	_, err := repo.MarkAsRead(ctx, "user-b", "n-old", base.Add(time.Hour))
	require.NoError(t, err)

	oldUnread := &models.Notification{
		ID:              "n-old-unread",
		RecipientUserID: "user-b",
		ActorUserID:     "actor",
		MessageID:       strPtr("msg-old-unread"),
		Text:            "old but unread",
		CreatedAt:       base,
	}
	require.NoError(t, repo.Create(ctx, oldUnread))

	deleted, err := repo.DeleteReadBefore(ctx, base.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// Unread rows survive regardless of age.
	_, err = repo.FindByID(ctx, "n-old-unread")
	assert.NoError(t, err)
	_, err = repo.FindByID(ctx, "n-old")
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestNotificationRepository_OffsetPagination(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	seedNotifications(t, repo, "user-b", 5, base)

	page, total, err := repo.FindUserNotifications(ctx, "user-b", NotificationCriteria{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.Equal(t, "n-002", page[0].ID)
	assert.Equal(t, "n-001", page[1].ID)
}
