package notifications

import "context"

// Transport delivers payloads to currently-connected clients. Push is
// strictly best effort: persistence is the commit point, and a missed push
// is recoverable through List and UnreadCount.
type Transport interface {
	// PushToUser attempts real-time delivery. The boolean result reports
	// whether the user had a connected session; false means "offline",
	// not an error.
	PushToUser(ctx context.Context, userKey string, notif Notification) (bool, error)

	// PushUnreadCount refreshes a connected client's unread badge without
	// a full list re-fetch.
	PushUnreadCount(ctx context.Context, userKey string, count int) error
}

// NoopTransport is a Transport that reports every user as offline.
// Useful for testing or polling-only deployments.
type NoopTransport struct{}

func (NoopTransport) PushToUser(ctx context.Context, userKey string, notif Notification) (bool, error) {
	return false, nil
}

func (NoopTransport) PushUnreadCount(ctx context.Context, userKey string, count int) error {
	return nil
}
