package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hiepcp/full-crm-sub005/pkg/logger"
)

// Service is the read-state facade over durable notification storage.
// Records move Unread -> Read (one-way) and may be removed from the user's
// view; after each transition the facade pushes a refreshed unread count
// so connected clients' badges stay accurate without a list re-fetch.
//
// Ownership violations (operating on another user's record) are treated as
// no-op successes rather than errors, so notification IDs of other users
// are not discoverable through the API.
type Service struct {
	storage   Storage
	transport Transport
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger for the Service.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// NewService creates the notification store facade. A nil transport
// degrades to polling-only operation.
func NewService(storage Storage, transport Transport, opts ...ServiceOption) (*Service, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if transport == nil {
		transport = NoopTransport{}
	}

	s := &Service{
		storage:   storage,
		transport: transport,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Create persists a notification, assigning its immutable ID and creation
// time. The record starts unread. The stored record is returned.
func (s *Service) Create(ctx context.Context, notif Notification) (Notification, error) {
	if notif.UserKey == "" {
		return Notification{}, ErrMissingUserKey
	}
	notif.UserKey = NormalizeKey(notif.UserKey)

	notif.ID = uuid.New().String()
	notif.CreatedAt = time.Now()
	notif.Read = false
	notif.ReadAt = nil

	if err := s.storage.Create(ctx, notif); err != nil {
		return Notification{}, fmt.Errorf("failed to store notification: %w", err)
	}
	return notif, nil
}

// Get retrieves one notification owned by the user.
func (s *Service) Get(ctx context.Context, userKey, id string) (*Notification, error) {
	return s.storage.Get(ctx, NormalizeKey(userKey), id)
}

// List returns the user's notifications, most recent first, with stable
// paging.
func (s *Service) List(ctx context.Context, userKey string, skip, take int) ([]Notification, error) {
	return s.storage.List(ctx, NormalizeKey(userKey), skip, take)
}

// UnreadCount returns the number of unread records for the user.
func (s *Service) UnreadCount(ctx context.Context, userKey string) (int, error) {
	return s.storage.CountUnread(ctx, NormalizeKey(userKey))
}

// MarkRead transitions one record to read. Already-read records, unknown
// IDs and records owned by other users are no-op successes, so the call is
// idempotent. The unread badge is refreshed only when a record actually
// flipped.
func (s *Service) MarkRead(ctx context.Context, userKey, id string) error {
	key := NormalizeKey(userKey)

	flipped, err := s.storage.MarkRead(ctx, key, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if flipped {
		s.pushUnreadCount(ctx, key)
	}
	return nil
}

// MarkAllRead transitions every unread record for the user to read;
// afterwards UnreadCount is zero.
func (s *Service) MarkAllRead(ctx context.Context, userKey string) error {
	key := NormalizeKey(userKey)

	if _, err := s.storage.MarkAllRead(ctx, key); err != nil {
		return fmt.Errorf("failed to mark all notifications read: %w", err)
	}

	if err := s.transport.PushUnreadCount(ctx, key, 0); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to push unread count",
			logger.UserKey(key),
			logger.Error(err),
		)
	}
	return nil
}

// Delete removes the record from the user's view only. Unknown IDs and
// records owned by other users are no-op successes.
func (s *Service) Delete(ctx context.Context, userKey, id string) error {
	key := NormalizeKey(userKey)

	notif, err := s.storage.Get(ctx, key, id)
	if err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load notification: %w", err)
	}

	removed, err := s.storage.Delete(ctx, key, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	if removed && !notif.Read {
		s.pushUnreadCount(ctx, key)
	}
	return nil
}

// pushUnreadCount re-derives the user's unread count and pushes it to any
// connected session. Push failures are logged, never surfaced: the store
// remains the source of truth.
func (s *Service) pushUnreadCount(ctx context.Context, userKey string) {
	count, err := s.storage.CountUnread(ctx, userKey)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to derive unread count",
			logger.UserKey(userKey),
			logger.Error(err),
		)
		return
	}
	if err := s.transport.PushUnreadCount(ctx, userKey, count); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to push unread count",
			logger.UserKey(userKey),
			logger.Error(err),
		)
	}
}
