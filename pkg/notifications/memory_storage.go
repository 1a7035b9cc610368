package notifications

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// A per-user mutex makes read-and-mutate sequences atomic for one user
// without serializing unrelated users. Suitable for development and
// testing.
type MemoryStorage struct {
	users map[string]*userRecords
	mu    sync.Mutex // guards the users map only
}

type userRecords struct {
	notifications []Notification
	mu            sync.Mutex
}

// NewMemoryStorage creates a new in-memory notification storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users: make(map[string]*userRecords),
	}
}

func (s *MemoryStorage) user(userKey string, create bool) *userRecords {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := NormalizeKey(userKey)
	u, ok := s.users[key]
	if !ok && create {
		u = &userRecords{}
		s.users[key] = u
	}
	return u
}

func (s *MemoryStorage) Create(ctx context.Context, notif Notification) error {
	if notif.ID == "" {
		return ErrMissingID
	}
	if notif.UserKey == "" {
		return ErrMissingUserKey
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now()
	}

	u := s.user(notif.UserKey, true)
	u.mu.Lock()
	defer u.mu.Unlock()

	u.notifications = append(u.notifications, notif)
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, userKey, id string) (*Notification, error) {
	u := s.user(userKey, false)
	if u == nil {
		return nil, ErrNotificationNotFound
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	for _, n := range u.notifications {
		if n.ID == id {
			// Copy to prevent external mutation of stored state.
			notif := n
			return &notif, nil
		}
	}
	return nil, ErrNotificationNotFound
}

func (s *MemoryStorage) List(ctx context.Context, userKey string, skip, take int) ([]Notification, error) {
	u := s.user(userKey, false)
	if u == nil {
		return []Notification{}, nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	sorted := make([]Notification, len(u.notifications))
	copy(sorted, u.notifications)
	// Stable keeps insertion order for equal timestamps so paging stays
	// consistent across calls.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	if skip < 0 {
		skip = 0
	}
	if skip >= len(sorted) {
		return []Notification{}, nil
	}

	end := len(sorted)
	if take > 0 && skip+take < end {
		end = skip + take
	}
	return sorted[skip:end], nil
}

func (s *MemoryStorage) MarkRead(ctx context.Context, userKey, id string) (bool, error) {
	u := s.user(userKey, false)
	if u == nil {
		return false, nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	for i := range u.notifications {
		if u.notifications[i].ID == id {
			if u.notifications[i].Read {
				return false, nil
			}
			u.notifications[i].MarkAsRead()
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStorage) MarkAllRead(ctx context.Context, userKey string) (int, error) {
	u := s.user(userKey, false)
	if u == nil {
		return 0, nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	flipped := 0
	for i := range u.notifications {
		if !u.notifications[i].Read {
			u.notifications[i].MarkAsRead()
			flipped++
		}
	}
	return flipped, nil
}

func (s *MemoryStorage) Delete(ctx context.Context, userKey, id string) (bool, error) {
	u := s.user(userKey, false)
	if u == nil {
		return false, nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	for i := range u.notifications {
		if u.notifications[i].ID == id {
			u.notifications = append(u.notifications[:i], u.notifications[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, userKey string) (int, error) {
	u := s.user(userKey, false)
	if u == nil {
		return 0, nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	count := 0
	for _, n := range u.notifications {
		if !n.Read {
			count++
		}
	}
	return count, nil
}
