package services

import "time"

// Dispatcher pushes a just-created notification to the recipient's live
// connections. Delivery is best effort; the stored row is the source of
// truth and offline users catch up through the list endpoint.
type Dispatcher interface {
	Publish(recipientUserID, notificationID, notificationType, text string, createdAt time.Time)
}

// NopDispatcher is used when no realtime layer is wired, for example in
// repository-level tests.
type NopDispatcher struct{}

func (NopDispatcher) Publish(recipientUserID, notificationID, notificationType, text string, createdAt time.Time) {
}
