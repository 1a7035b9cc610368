package notifications

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTransport captures pushes for assertions.
type recordingTransport struct {
	connected    bool
	pushed       []Notification
	unreadCounts map[string][]int
	mu           sync.Mutex
}

func newRecordingTransport(connected bool) *recordingTransport {
	return &recordingTransport{
		connected:    connected,
		unreadCounts: make(map[string][]int),
	}
}

func (t *recordingTransport) PushToUser(ctx context.Context, userKey string, notif Notification) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pushed = append(t.pushed, notif)
	return t.connected, nil
}

func (t *recordingTransport) PushUnreadCount(ctx context.Context, userKey string, count int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unreadCounts[userKey] = append(t.unreadCounts[userKey], count)
	return nil
}

func (t *recordingTransport) lastUnreadCount(userKey string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	counts := t.unreadCounts[userKey]
	if len(counts) == 0 {
		return 0, false
	}
	return counts[len(counts)-1], true
}

func newTestService(t *testing.T) (*Service, *recordingTransport) {
	t.Helper()
	transport := newRecordingTransport(true)
	svc, err := NewService(NewMemoryStorage(), transport)
	require.NoError(t, err)
	return svc, transport
}

func TestNewService_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewService(nil, nil)
	assert.ErrorIs(t, err, ErrStorageNil)

	svc, err := NewService(NewMemoryStorage(), nil)
	require.NoError(t, err, "nil transport degrades to polling-only")
	require.NotNil(t, svc)
}

func TestService_Create_AssignsIdentity(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	stored, err := svc.Create(context.Background(), Notification{
		UserKey:   "User@CRM.local",
		EventType: EventCreated,
		Title:     "t",
		Body:      "b",
		Read:      true, // must be ignored: records start unread
	})
	require.NoError(t, err)

	assert.NotEmpty(t, stored.ID)
	assert.False(t, stored.CreatedAt.IsZero())
	assert.False(t, stored.Read)
	assert.Nil(t, stored.ReadAt)
	assert.Equal(t, "user@crm.local", stored.UserKey)

	second, err := svc.Create(context.Background(), Notification{UserKey: "user@crm.local", Title: "t2"})
	require.NoError(t, err)
	assert.NotEqual(t, stored.ID, second.ID, "ids are never reused")
}

func TestService_MarkRead_Idempotent(t *testing.T) {
	t.Parallel()

	svc, transport := newTestService(t)

	stored, err := svc.Create(context.Background(), Notification{UserKey: "u@crm.local", Title: "t"})
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(context.Background(), "u@crm.local", stored.ID))
	count, err := svc.UnreadCount(context.Background(), "u@crm.local")
	require.NoError(t, err)
	assert.Zero(t, count, "read-your-writes: the decrement is visible immediately")

	last, ok := transport.lastUnreadCount("u@crm.local")
	require.True(t, ok)
	assert.Zero(t, last)

	// Second call: same end state, no extra badge push.
	pushes := len(transport.unreadCounts["u@crm.local"])
	require.NoError(t, svc.MarkRead(context.Background(), "u@crm.local", stored.ID))
	count, err = svc.UnreadCount(context.Background(), "u@crm.local")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, transport.unreadCounts["u@crm.local"], pushes, "no push for a no-op mark")
}

func TestService_MarkRead_OwnershipIsolation(t *testing.T) {
	t.Parallel()

	svc, transport := newTestService(t)

	stored, err := svc.Create(context.Background(), Notification{UserKey: "owner@crm.local", Title: "t"})
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(context.Background(), "intruder@crm.local", stored.ID),
		"foreign mark returns success so record existence is not leaked")

	notif, err := svc.Get(context.Background(), "owner@crm.local", stored.ID)
	require.NoError(t, err)
	assert.False(t, notif.Read)

	count, err := svc.UnreadCount(context.Background(), "owner@crm.local")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, pushed := transport.lastUnreadCount("intruder@crm.local")
	assert.False(t, pushed, "no side effects for the intruder")
}

func TestService_MarkAllRead(t *testing.T) {
	t.Parallel()

	svc, transport := newTestService(t)

	const n = 7
	for range n {
		_, err := svc.Create(context.Background(), Notification{UserKey: "u@crm.local", Title: "t"})
		require.NoError(t, err)
	}

	require.NoError(t, svc.MarkAllRead(context.Background(), "u@crm.local"))

	count, err := svc.UnreadCount(context.Background(), "u@crm.local")
	require.NoError(t, err)
	assert.Zero(t, count)

	items, err := svc.List(context.Background(), "u@crm.local", 0, n)
	require.NoError(t, err)
	require.Len(t, items, n)
	for _, item := range items {
		assert.True(t, item.Read)
	}

	last, ok := transport.lastUnreadCount("u@crm.local")
	require.True(t, ok)
	assert.Zero(t, last, "badge reset pushed after mark-all-read")
}

func TestService_Delete(t *testing.T) {
	t.Parallel()

	t.Run("unread delete refreshes badge", func(t *testing.T) {
		t.Parallel()

		svc, transport := newTestService(t)
		stored, err := svc.Create(context.Background(), Notification{UserKey: "u@crm.local", Title: "t"})
		require.NoError(t, err)

		require.NoError(t, svc.Delete(context.Background(), "u@crm.local", stored.ID))

		_, err = svc.Get(context.Background(), "u@crm.local", stored.ID)
		assert.ErrorIs(t, err, ErrNotificationNotFound)

		last, ok := transport.lastUnreadCount("u@crm.local")
		require.True(t, ok)
		assert.Zero(t, last)
	})

	t.Run("read delete leaves badge alone", func(t *testing.T) {
		t.Parallel()

		svc, transport := newTestService(t)
		stored, err := svc.Create(context.Background(), Notification{UserKey: "u@crm.local", Title: "t"})
		require.NoError(t, err)
		require.NoError(t, svc.MarkRead(context.Background(), "u@crm.local", stored.ID))

		pushes := len(transport.unreadCounts["u@crm.local"])
		require.NoError(t, svc.Delete(context.Background(), "u@crm.local", stored.ID))
		assert.Len(t, transport.unreadCounts["u@crm.local"], pushes)
	})

	t.Run("foreign delete is a no-op success", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		stored, err := svc.Create(context.Background(), Notification{UserKey: "owner@crm.local", Title: "t"})
		require.NoError(t, err)

		require.NoError(t, svc.Delete(context.Background(), "intruder@crm.local", stored.ID))

		notif, err := svc.Get(context.Background(), "owner@crm.local", stored.ID)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, notif.ID)
	})

	t.Run("unknown id is a no-op success", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		assert.NoError(t, svc.Delete(context.Background(), "u@crm.local", "ghost"))
	})
}
