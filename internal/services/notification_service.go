package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ping_backend/internal/logger"
	"ping_backend/internal/models"
	"ping_backend/internal/repositories"
	"ping_backend/internal/services/dto"
	"ping_backend/internal/validator"
	"ping_backend/pkg/apperrors"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NotificationService owns the notification rows: it writes them (from the
// outbox worker), serves the recipient's reads, and mutates read state.
type NotificationService interface {
	CreateNotification(ctx context.Context, input *dto.CreateNotificationInput) (*dto.NotificationResponse, error)

	ListNotifications(ctx context.Context, userID string, query *dto.ListNotificationsQuery) (*dto.NotificationListResponse, error)
	UnreadCount(ctx context.Context, userID string) (*dto.UnreadCountResponse, error)

	MarkAsRead(ctx context.Context, userID, notificationID string) error
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
}

type notificationService struct {
	repo       repositories.NotificationRepository
	dispatcher Dispatcher
	validator  *validator.Validator
}

func NewNotificationService(repo repositories.NotificationRepository, dispatcher Dispatcher) NotificationService {
	return &notificationService{
		repo:       repo,
		dispatcher: dispatcher,
		validator:  validator.New(),
	}
}

// CreateNotification persists one notification for one recipient and pushes
// it to the recipient's live connections. Re-delivery of a fact that already
// produced a row for this (recipient, message) pair returns the existing row
// and pushes nothing.
func (s *notificationService) CreateNotification(ctx context.Context, input *dto.CreateNotificationInput) (*dto.NotificationResponse, error) {
	if err := s.validator.Validate(input); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			return nil, apperrors.ValidationError(verr.Errors)
		}
		return nil, apperrors.InternalError(err)
	}
	if input.RecipientUserID == input.ActorUserID {
		return nil, apperrors.NewBadRequestError("recipient cannot be the actor")
	}
	if input.Type != "" && !models.ValidNotificationType(input.Type) {
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("unknown notification type %q", input.Type))
	}

	notification := &models.Notification{
		RecipientUserID:      input.RecipientUserID,
		ActorUserID:          input.ActorUserID,
		DirectConversationID: optional(input.DirectConversationID),
		ChannelID:            optional(input.ChannelID),
		MessageID:            optional(input.MessageID),
		Type:                 input.Type,
		Text:                 input.Text,
	}
	if len(input.Data) > 0 {
		raw, err := json.Marshal(input.Data)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		notification.Data = raw
	}

	err := s.repo.Create(ctx, notification)
	if errors.Is(err, repositories.ErrDuplicateNotification) {
		existing, findErr := s.repo.FindByRecipientAndMessage(ctx, input.RecipientUserID, input.MessageID)
		if findErr != nil {
			return nil, apperrors.InternalError(findErr)
		}
		logger.CtxDebug(ctx, "notification already exists, skipping dispatch",
			"recipient_user_id", input.RecipientUserID,
			"message_id", input.MessageID,
		)
		return s.toResponse(existing), nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "notifications", "Failed to create notification", http.StatusInternalServerError)
	}

	s.dispatcher.Publish(notification.RecipientUserID, notification.ID, notification.Type, notification.Text, notification.CreatedAt)

	return s.toResponse(notification), nil
}

// ListNotifications serves the recipient's inbox, newest first. A cursor in
// the query selects keyset pagination; otherwise page/page_size offset
// pagination is used.
func (s *notificationService) ListNotifications(ctx context.Context, userID string, query *dto.ListNotificationsQuery) (*dto.NotificationListResponse, error) {
	criteria := repositories.NotificationCriteria{
		UnreadOnly: query.UnreadOnly,
		Type:       query.Type,
		Since:      query.Since,
		Before:     query.Before,
	}
	if criteria.Type != "" && !models.ValidNotificationType(criteria.Type) {
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("unknown notification type %q", criteria.Type))
	}

	if query.Cursor != "" || query.Page == 0 {
		return s.listByCursor(ctx, userID, criteria, query)
	}
	return s.listByPage(ctx, userID, criteria, query)
}

func (s *notificationService) listByCursor(ctx context.Context, userID string, criteria repositories.NotificationCriteria, query *dto.ListNotificationsQuery) (*dto.NotificationListResponse, error) {
	limit := clampLimit(query.Limit)

	var after *repositories.CursorKey
	if query.Cursor != "" {
		key, err := DecodeCursor(query.Cursor)
		if err != nil {
			return nil, apperrors.NewBadRequestError("invalid cursor")
		}
		after = key
	}

	notifications, hasMore, err := s.repo.FindUserNotificationsCursor(ctx, userID, criteria, limit, after)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "notifications", "Failed to list notifications", http.StatusInternalServerError)
	}

	resp := &dto.NotificationListResponse{
		Notifications: s.toResponses(notifications),
		HasMore:       hasMore,
	}
	if hasMore && len(notifications) > 0 {
		last := notifications[len(notifications)-1]
		resp.NextCursor = EncodeCursor(last.CreatedAt, last.ID)
	}
	return resp, nil
}

func (s *notificationService) listByPage(ctx context.Context, userID string, criteria repositories.NotificationCriteria, query *dto.ListNotificationsQuery) (*dto.NotificationListResponse, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := clampLimit(query.PageSize)

	notifications, total, err := s.repo.FindUserNotifications(ctx, userID, criteria, page, pageSize)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "notifications", "Failed to list notifications", http.StatusInternalServerError)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &dto.NotificationListResponse{
		Notifications: s.toResponses(notifications),
		HasMore:       page < totalPages,
		Total:         &total,
		Page:          page,
		PageSize:      pageSize,
		TotalPages:    totalPages,
	}, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (*dto.UnreadCountResponse, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "notifications", "Failed to count unread notifications", http.StatusInternalServerError)
	}
	return &dto.UnreadCountResponse{Unread: count}, nil
}

// MarkAsRead transitions one notification to READ. Marking an already read
// row, a missing row, and a row owned by another user all come back as the
// same not-found error.
func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	updated, err := s.repo.MarkAsRead(ctx, userID, notificationID, time.Now().UTC())
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "notifications", "Failed to mark notification as read", http.StatusInternalServerError)
	}
	if !updated {
		// Already-read rows are re-checked so the operation stays idempotent
		// for the owner.
		existing, findErr := s.repo.FindByID(ctx, notificationID)
		if findErr == nil && existing.RecipientUserID == userID && existing.Status == models.NotificationStatusRead {
			return nil
		}
		return apperrors.NewNotFoundError("notifications", "Notification not found")
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.MarkAllAsRead(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "notifications", "Failed to mark notifications as read", http.StatusInternalServerError)
	}
	return count, nil
}

func (s *notificationService) toResponse(n *models.Notification) *dto.NotificationResponse {
	resp := &dto.NotificationResponse{
		ID:                   n.ID,
		Text:                 n.Text,
		Type:                 n.Type,
		Status:               n.Status,
		ActorUserID:          n.ActorUserID,
		MessageID:            n.MessageID,
		DirectConversationID: n.DirectConversationID,
		ChannelID:            n.ChannelID,
		CreatedAt:            n.CreatedAt,
		ReadAt:               n.ReadAt,
	}
	if len(n.Data) > 0 {
		var data map[string]interface{}
		if err := json.Unmarshal(n.Data, &data); err == nil {
			resp.Data = data
		}
	}
	return resp
}

func (s *notificationService) toResponses(notifications []models.Notification) []*dto.NotificationResponse {
	out := make([]*dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		out = append(out, s.toResponse(&notifications[i]))
	}
	return out
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// EncodeCursor packs a (created_at, id) position into an opaque token.
func EncodeCursor(createdAt time.Time, id string) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor is the inverse of EncodeCursor. Any malformed token is an
// error; callers map it to a 400.
func DecodeCursor(cursor string) (*repositories.CursorKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, errors.New("malformed cursor")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, fmt.Errorf("cursor timestamp: %w", err)
	}
	return &repositories.CursorKey{CreatedAt: createdAt, ID: parts[1]}, nil
}
