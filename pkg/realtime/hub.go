package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hiepcp/full-crm-sub005/pkg/logger"
	"github.com/hiepcp/full-crm-sub005/pkg/notifications"
)

// EventKind discriminates hub event payloads.
type EventKind string

const (
	// KindNotification carries a freshly persisted notification.
	KindNotification EventKind = "notification"
	// KindUnreadCount carries a refreshed unread badge value.
	KindUnreadCount EventKind = "unread_count"
)

// Event is one message streamed to a connected session.
type Event struct {
	Kind         EventKind                   `json:"kind"`
	Notification *notifications.Notification `json:"notification,omitempty"`
	UnreadCount  int                         `json:"unread_count,omitempty"`
}

// Session is one client connection's subscription. Close is idempotent;
// after Close the receive channel is closed.
type Session struct {
	ch     chan Event
	closed bool
	mu     sync.Mutex
}

// Receive returns the channel events arrive on. The channel is closed when
// the session closes.
func (s *Session) Receive() <-chan Event {
	return s.ch
}

// Close releases the session. Safe to call multiple times.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		close(s.ch)
		s.closed = true
	}
}

// send delivers non-blocking; a full buffer drops the event rather than
// stalling the pusher. Slow consumers recover state by polling.
func (s *Session) send(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

// Hub routes events to the sessions of currently-connected users.
// It implements notifications.Transport. All methods are safe for
// concurrent use.
type Hub struct {
	sessions   map[string]map[*Session]struct{} // normalized user key -> open sessions
	bufferSize int
	closed     bool
	logger     *slog.Logger
	mu         sync.RWMutex
	cleanupWg  sync.WaitGroup
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubLogger sets the logger for the Hub.
func WithHubLogger(log *slog.Logger) HubOption {
	return func(h *Hub) {
		if log != nil {
			h.logger = log
		}
	}
}

// WithBufferSize sets the per-session channel buffer. Minimum of 1 is
// enforced so sends stay non-blocking. Default is 16.
func WithBufferSize(n int) HubOption {
	return func(h *Hub) {
		h.bufferSize = max(n, 1)
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		sessions:   make(map[string]map[*Session]struct{}),
		bufferSize: 16,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe opens a session for the user. The session is cleaned up when
// the context is cancelled or Close is called on it; the user's hub entry
// is removed with its last session, so idle users hold no resources.
func (h *Hub) Subscribe(ctx context.Context, userKey string) *Session {
	key := notifications.NormalizeKey(userKey)
	sess := &Session{ch: make(chan Event, h.bufferSize)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sess.Close()
		return sess
	}
	set, ok := h.sessions[key]
	if !ok {
		set = make(map[*Session]struct{})
		h.sessions[key] = set
	}
	set[sess] = struct{}{}
	h.mu.Unlock()

	if ctx.Done() != nil {
		h.cleanupWg.Add(1)
		go func() {
			defer h.cleanupWg.Done()
			<-ctx.Done()
			h.unsubscribe(key, sess)
		}()
	}

	return sess
}

// Connected reports whether the user has at least one open session.
func (h *Hub) Connected(userKey string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[notifications.NormalizeKey(userKey)]) > 0
}

// PushToUser delivers a notification to the user's open sessions.
// The boolean result reports connectivity, not receipt: false means no
// session is open ("offline"), never an error.
func (h *Hub) PushToUser(ctx context.Context, userKey string, notif notifications.Notification) (bool, error) {
	return h.push(ctx, userKey, Event{Kind: KindNotification, Notification: &notif}), nil
}

// PushUnreadCount refreshes the unread badge on the user's open sessions.
func (h *Hub) PushUnreadCount(ctx context.Context, userKey string, count int) error {
	h.push(ctx, userKey, Event{Kind: KindUnreadCount, UnreadCount: count})
	return nil
}

func (h *Hub) push(ctx context.Context, userKey string, ev Event) bool {
	key := notifications.NormalizeKey(userKey)

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return false
	}
	set := h.sessions[key]
	if len(set) == 0 {
		return false
	}

	for sess := range set {
		if !sess.send(ev) {
			h.logger.LogAttrs(ctx, slog.LevelDebug, "dropped realtime event for slow session",
				logger.UserKey(key),
				slog.String("kind", string(ev.Kind)),
			)
		}
	}
	return true
}

// Close shuts down the hub and every open session. Safe to call multiple
// times; after Close, new subscriptions come back already closed and
// pushes report offline.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for _, set := range h.sessions {
		for sess := range set {
			sess.Close()
		}
	}
	clear(h.sessions)
	h.mu.Unlock()

	h.cleanupWg.Wait()
	return nil
}

func (h *Hub) unsubscribe(key string, sess *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.sessions[key]
	if !ok {
		return
	}
	delete(set, sess)
	if len(set) == 0 {
		delete(h.sessions, key)
	}
	sess.Close()
}
