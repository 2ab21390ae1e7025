package ws

import (
	"context"
	"encoding/json"

	"ping_backend/internal/logger"
	"ping_backend/internal/services"

	"github.com/gorilla/websocket"
)

// IncomingMessage is the envelope clients send over the socket.
type IncomingMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan any

	// ctx lives for the duration of the connection; cancel fires when the
	// read pump exits so in-flight store calls stop with the socket.
	ctx    context.Context
	cancel context.CancelFunc

	manager       *Manager
	notifications services.NotificationService
}

func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.manager.drop(c)
		c.Conn.Close()
	}()

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err).Debug("ws read error", "user_id", c.UserID)
			}
			return
		}

		var msg IncomingMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.WithError(err).Debug("ws message parse failed", "user_id", c.UserID)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer c.Conn.Close()
	for msg := range c.Send {
		if err := c.Conn.WriteJSON(msg); err != nil {
			logger.WithError(err).Debug("ws write error", "user_id", c.UserID)
			return
		}
	}
}

// handleMessage serves the small read-state surface available over the
// socket. Identity always comes from the authenticated connection, never
// from the payload.
func (c *Client) handleMessage(msg IncomingMessage) {
	ctx := c.ctx

	switch msg.Action {
	case "mark_read":
		var payload struct {
			NotificationID string `json:"notification_id"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.NotificationID == "" {
			logger.Debug("ws mark_read payload invalid", "user_id", c.UserID)
			return
		}
		if err := c.notifications.MarkAsRead(ctx, c.UserID, payload.NotificationID); err != nil {
			logger.WithError(err).Debug("ws mark_read failed", "user_id", c.UserID)
		}

	case "mark_all_read":
		if _, err := c.notifications.MarkAllAsRead(ctx, c.UserID); err != nil {
			logger.WithError(err).Debug("ws mark_all_read failed", "user_id", c.UserID)
		}

	default:
		logger.Debug("ws unhandled action", "action", msg.Action, "user_id", c.UserID)
	}
}
