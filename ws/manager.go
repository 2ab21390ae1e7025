package ws

import (
	"context"
	"sync"
	"time"

	"ping_backend/internal/logger"
)

// NotificationPayload is the frame pushed to a recipient's open sockets
// when a notification is created for them.
type NotificationPayload struct {
	Event     string    `json:"event"`
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager tracks live connections keyed by user id and routes pushes to
// them. It satisfies the dispatcher the notification writer publishes
// through. Delivery is best effort: no connection, no push, and a slow
// consumer is disconnected rather than blocking the writer.
type Manager struct {
	clients    map[string][]*Client
	register   chan *Client
	unregister chan *Client
	// done is closed when Run exits; senders on register/unregister select
	// on it so they never block past shutdown.
	done chan struct{}
	mu   sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns the client registry until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return

		case client := <-m.register:
			m.mu.Lock()
			m.clients[client.UserID] = append(m.clients[client.UserID], client)
			total := len(m.clients[client.UserID])
			m.mu.Unlock()
			logger.Debug("ws client registered", "user_id", client.UserID, "connections", total)

		case client := <-m.unregister:
			m.mu.Lock()
			m.removeLocked(client)
			m.mu.Unlock()
			logger.Debug("ws client unregistered", "user_id", client.UserID)
		}
	}
}

// Publish pushes a created notification to every open connection of the
// recipient. Implements the notification service's dispatcher.
func (m *Manager) Publish(recipientUserID, notificationID, notificationType, text string, createdAt time.Time) {
	payload := NotificationPayload{
		Event:     "notification.created",
		ID:        notificationID,
		Type:      notificationType,
		Text:      text,
		CreatedAt: createdAt,
	}

	// The read lock is held across the sends. The hub closes Send and
	// mutates the slice only under the write lock, so a send can never land
	// on a closed channel and the iteration never races the removal. The
	// sends are non-blocking, so the lock is held only briefly.
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, client := range m.clients[recipientUserID] {
		select {
		case client.Send <- payload:
		default:
			// Send buffer full: the consumer is not draining. Drop the
			// connection; the stored row is still there to catch up on.
			logger.Warn("ws send buffer full, dropping connection", "user_id", client.UserID)
			go m.drop(client)
		}
	}
}

// drop hands a client to the hub for removal without blocking past
// shutdown.
func (m *Manager) drop(client *Client) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

// ConnectionCount reports the number of open connections for a user.
func (m *Manager) ConnectionCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[userID])
}

func (m *Manager) removeLocked(client *Client) {
	conns := m.clients[client.UserID]
	for i, c := range conns {
		if c == client {
			close(c.Send)
			conns = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(conns) == 0 {
		delete(m.clients, client.UserID)
	} else {
		m.clients[client.UserID] = conns
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, conns := range m.clients {
		for _, c := range conns {
			close(c.Send)
		}
	}
	m.clients = make(map[string][]*Client)
}
