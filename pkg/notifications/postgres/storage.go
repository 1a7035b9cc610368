// Package postgres implements the durable notification Storage on
// PostgreSQL via pgx. Read-state transitions are single-statement updates
// with an ownership predicate, so read-your-writes holds per user without
// any application-level locking.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hiepcp/full-crm-sub005/pkg/notifications"
	"github.com/hiepcp/full-crm-sub005/pkg/pg"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the notification schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return pg.Migrate(ctx, pool, sub, cfg, log)
}

// Storage is the pgx-backed notifications.Storage implementation.
type Storage struct {
	pool *pgxpool.Pool
}

// NewStorage creates a PostgreSQL notification storage over the given pool.
func NewStorage(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

func (s *Storage) Create(ctx context.Context, notif notifications.Notification) error {
	if notif.ID == "" {
		return notifications.ErrMissingID
	}
	if notif.UserKey == "" {
		return notifications.ErrMissingUserKey
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_key, entity_type, entity_id, event_type, title, body, priority, read, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, NULL, $9)`,
		notif.ID, notif.UserKey, notif.EntityType, notif.EntityID, string(notif.EventType),
		notif.Title, notif.Body, int16(notif.Priority), notif.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, userKey, id string) (*notifications.Notification, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_key, entity_type, entity_id, event_type, title, body, priority, read, read_at, created_at
		FROM notifications
		WHERE id = $1 AND user_key = $2`,
		id, userKey,
	)

	notif, err := scanNotification(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, notifications.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to load notification: %w", err)
	}
	return notif, nil
}

func (s *Storage) List(ctx context.Context, userKey string, skip, take int) ([]notifications.Notification, error) {
	if skip < 0 {
		skip = 0
	}

	// The id tiebreak keeps paging stable when timestamps collide.
	query := `
		SELECT id, user_key, entity_type, entity_id, event_type, title, body, priority, read, read_at, created_at
		FROM notifications
		WHERE user_key = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2`
	args := []any{userKey, skip}
	if take > 0 {
		query += ` LIMIT $3`
		args = append(args, take)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	result := []notifications.Notification{}
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		result = append(result, *notif)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notification rows: %w", err)
	}
	return result, nil
}

func (s *Storage) MarkRead(ctx context.Context, userKey, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET read = TRUE, read_at = now()
		WHERE id = $1 AND user_key = $2 AND read = FALSE`,
		id, userKey,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Storage) MarkAllRead(ctx context.Context, userKey string) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET read = TRUE, read_at = now()
		WHERE user_key = $1 AND read = FALSE`,
		userKey,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Storage) Delete(ctx context.Context, userKey, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE id = $1 AND user_key = $2`,
		id, userKey,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete notification: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Storage) CountUnread(ctx context.Context, userKey string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM notifications
		WHERE user_key = $1 AND read = FALSE`,
		userKey,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*notifications.Notification, error) {
	var (
		notif     notifications.Notification
		eventType string
		priority  int16
	)
	if err := row.Scan(
		&notif.ID, &notif.UserKey, &notif.EntityType, &notif.EntityID, &eventType,
		&notif.Title, &notif.Body, &priority, &notif.Read, &notif.ReadAt, &notif.CreatedAt,
	); err != nil {
		return nil, err
	}
	notif.EventType = notifications.EventType(eventType)
	notif.Priority = notifications.Priority(priority)
	return &notif, nil
}
