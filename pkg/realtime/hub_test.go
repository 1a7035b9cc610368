package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiepcp/full-crm-sub005/pkg/notifications"
)

func receiveEvent(t *testing.T, sess *Session) Event {
	t.Helper()
	select {
	case ev, ok := <-sess.Receive():
		require.True(t, ok, "session closed before event arrived")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHub_PushToUser(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	t.Cleanup(func() { _ = hub.Close() })

	sess := hub.Subscribe(context.Background(), "User@CRM.local")
	defer sess.Close()
	require.True(t, hub.Connected("user@crm.local"), "keys are matched case-insensitively")

	delivered, err := hub.PushToUser(context.Background(), "user@crm.local", notifications.Notification{
		ID:      "n1",
		UserKey: "user@crm.local",
		Title:   "t",
	})
	require.NoError(t, err)
	assert.True(t, delivered)

	ev := receiveEvent(t, sess)
	assert.Equal(t, KindNotification, ev.Kind)
	require.NotNil(t, ev.Notification)
	assert.Equal(t, "n1", ev.Notification.ID)
}

func TestHub_PushToUser_Offline(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	t.Cleanup(func() { _ = hub.Close() })

	delivered, err := hub.PushToUser(context.Background(), "ghost@crm.local", notifications.Notification{ID: "n1"})
	require.NoError(t, err, "offline is reported, never an error")
	assert.False(t, delivered)
}

func TestHub_PushUnreadCount_FanOut(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	t.Cleanup(func() { _ = hub.Close() })

	first := hub.Subscribe(context.Background(), "u@crm.local")
	second := hub.Subscribe(context.Background(), "u@crm.local")
	defer first.Close()
	defer second.Close()

	require.NoError(t, hub.PushUnreadCount(context.Background(), "u@crm.local", 3))

	for _, sess := range []*Session{first, second} {
		ev := receiveEvent(t, sess)
		assert.Equal(t, KindUnreadCount, ev.Kind)
		assert.Equal(t, 3, ev.UnreadCount)
	}
}

func TestHub_SlowSessionDropsEvents(t *testing.T) {
	t.Parallel()

	hub := NewHub(WithBufferSize(1))
	t.Cleanup(func() { _ = hub.Close() })

	sess := hub.Subscribe(context.Background(), "u@crm.local")
	defer sess.Close()

	// First push fills the buffer, second is dropped; the pusher never blocks.
	require.NoError(t, hub.PushUnreadCount(context.Background(), "u@crm.local", 1))
	require.NoError(t, hub.PushUnreadCount(context.Background(), "u@crm.local", 2))

	ev := receiveEvent(t, sess)
	assert.Equal(t, 1, ev.UnreadCount)
	select {
	case extra := <-sess.Receive():
		t.Fatalf("unexpected buffered event: %+v", extra)
	default:
	}
}

func TestHub_ContextCancelCleansUp(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	t.Cleanup(func() { _ = hub.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	sess := hub.Subscribe(ctx, "u@crm.local")
	require.True(t, hub.Connected("u@crm.local"))

	cancel()

	require.Eventually(t, func() bool {
		return !hub.Connected("u@crm.local")
	}, time.Second, 5*time.Millisecond, "last session removal drops the user entry")

	_, ok := <-sess.Receive()
	assert.False(t, ok, "receive channel closed on cleanup")
}

func TestHub_SessionCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	t.Cleanup(func() { _ = hub.Close() })

	sess := hub.Subscribe(context.Background(), "u@crm.local")
	sess.Close()
	sess.Close()
}

func TestHub_Close(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	sess := hub.Subscribe(context.Background(), "u@crm.local")

	require.NoError(t, hub.Close())
	require.NoError(t, hub.Close())

	_, ok := <-sess.Receive()
	assert.False(t, ok, "open sessions are closed with the hub")

	late := hub.Subscribe(context.Background(), "u@crm.local")
	_, ok = <-late.Receive()
	assert.False(t, ok, "subscriptions after close come back closed")

	delivered, err := hub.PushToUser(context.Background(), "u@crm.local", notifications.Notification{ID: "n1"})
	require.NoError(t, err)
	assert.False(t, delivered)
}
