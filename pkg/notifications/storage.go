package notifications

import "context"

// Storage handles durable notification persistence. Implementations must
// make read-and-mutate sequences atomic per user so that a successful
// MarkRead is immediately visible to a following UnreadCount (read-your-
// writes), without locking the whole store.
type Storage interface {
	// Create stores a new notification in the unread state.
	Create(ctx context.Context, notif Notification) error

	// Get retrieves a single notification owned by the user.
	// Returns ErrNotificationNotFound when the record does not exist or
	// belongs to another user.
	Get(ctx context.Context, userKey, id string) (*Notification, error)

	// List returns the user's notifications, most recent first.
	List(ctx context.Context, userKey string, skip, take int) ([]Notification, error)

	// MarkRead transitions a record to read. Returns true when the record
	// actually flipped; already-read, missing, and foreign records report
	// false with a nil error (idempotent, ownership-checked no-op).
	MarkRead(ctx context.Context, userKey, id string) (bool, error)

	// MarkAllRead transitions every unread record for the user to read
	// and returns the number of records flipped.
	MarkAllRead(ctx context.Context, userKey string) (int, error)

	// Delete removes a record from the user's view. Returns true when a
	// record was removed; missing and foreign records report false with a
	// nil error.
	Delete(ctx context.Context, userKey, id string) (bool, error)

	// CountUnread returns the number of unread records for the user.
	CountUnread(ctx context.Context, userKey string) (int, error)
}
