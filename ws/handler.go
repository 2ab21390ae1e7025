package ws

import (
	"context"
	"net/http"

	"ping_backend/internal/logger"
	"ping_backend/internal/middleware"
	"ping_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const sendBufferSize = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	manager       *Manager
	notifications services.NotificationService
}

func NewHandler(manager *Manager, notifications services.NotificationService) *Handler {
	return &Handler{
		manager:       manager,
		notifications: notifications,
	}
}

// ServeWS upgrades an authenticated request to a websocket connection. The
// auth middleware must run before this handler; the socket identity is the
// token subject.
func (h *Handler) ServeWS(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithError(err).Warn("ws upgrade failed", "user_id", userID)
		return
	}

	// The connection outlives the HTTP handler, so its context cannot hang
	// off the request context.
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		UserID:        userID,
		Conn:          conn,
		Send:          make(chan any, sendBufferSize),
		ctx:           ctx,
		cancel:        cancel,
		manager:       h.manager,
		notifications: h.notifications,
	}

	select {
	case h.manager.register <- client:
	case <-h.manager.done:
		cancel()
		conn.Close()
		return
	}

	go client.readPump()
	go client.writePump()
}
