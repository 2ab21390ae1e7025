package handlers

import (
	"net/http"

	"ping_backend/internal/services"
	"ping_backend/internal/services/dto"
	"ping_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// NotificationHandler serves the recipient-facing notification API. Every
// route is scoped to the authenticated user; there is no way to read or
// mutate another user's rows through this surface.
type NotificationHandler struct {
	*BaseHandler
	service services.NotificationService
}

func NewNotificationHandler(base *BaseHandler, service services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		BaseHandler: base,
		service:     service,
	}
}

func (h *NotificationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	notifications := rg.Group("/notifications")
	{
		notifications.GET("", h.List)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.POST("/:notificationId/read", h.MarkRead)
		notifications.POST("/read-all", h.MarkAllRead)
	}
}

// List returns the user's notifications, newest first. Supports unread/type/
// since/before filters and both cursor and page pagination.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	since, ok := h.QueryTime(c, "since")
	if !ok {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid 'since' timestamp, expected RFC 3339"))
		return
	}
	before, ok := h.QueryTime(c, "before")
	if !ok {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid 'before' timestamp, expected RFC 3339"))
		return
	}

	query := &dto.ListNotificationsQuery{
		UnreadOnly: h.QueryBool(c, "unread"),
		Type:       c.Query("type"),
		Since:      since,
		Before:     before,
		Limit:      h.QueryInt(c, "limit", 0),
		Cursor:     c.Query("cursor"),
		Page:       h.QueryInt(c, "page", 0),
		PageSize:   h.QueryInt(c, "page_size", 0),
	}

	result, err := h.service.ListNotifications(c.Request.Context(), userID, query)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	result, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// MarkRead marks one notification read. 404 covers missing rows and rows
// owned by another user alike.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	notificationID := c.Param("notificationId")
	if notificationID == "" {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Notification id is required"))
		return
	}

	if err := h.service.MarkAsRead(c.Request.Context(), userID, notificationID); err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	if _, err := h.service.MarkAllAsRead(c.Request.Context(), userID); err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
