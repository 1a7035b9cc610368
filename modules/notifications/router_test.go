package notifications_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	module "github.com/hiepcp/full-crm-sub005/modules/notifications"
	core "github.com/hiepcp/full-crm-sub005/pkg/notifications"
)

func headerUserKey(r *http.Request) (string, error) {
	return r.Header.Get("X-User-Key"), nil
}

func newTestRouter(t *testing.T) (http.Handler, *core.Service) {
	t.Helper()

	svc, err := core.NewService(core.NewMemoryStorage(), nil)
	require.NoError(t, err)

	return module.Router(module.RouterOptions{
		Service:     svc,
		Preferences: core.NewMemoryPreferenceStore(),
		UserKey:     headerUserKey,
	}), svc
}

func doRequest(t *testing.T, h http.Handler, method, target, userKey string, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if userKey != "" {
		req.Header.Set("X-User-Key", userKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_List(t *testing.T) {
	t.Parallel()

	h, svc := newTestRouter(t)
	stored, err := svc.Create(context.Background(), core.Notification{UserKey: "u@crm.local", Title: "hello"})
	require.NoError(t, err)

	rec := doRequest(t, h, http.MethodGet, "/", "u@crm.local", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []core.Notification `json:"items"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, stored.ID, resp.Items[0].ID)
}

func TestRouter_Unauthenticated(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	for _, target := range []struct{ method, path string }{
		{http.MethodGet, "/"},
		{http.MethodGet, "/unread-count"},
		{http.MethodPost, "/read-all"},
		{http.MethodPost, "/abc/read"},
		{http.MethodDelete, "/abc"},
		{http.MethodGet, "/preferences/"},
	} {
		rec := doRequest(t, h, target.method, target.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", target.method, target.path)
	}
}

func TestRouter_UnreadCountAndMarkRead(t *testing.T) {
	t.Parallel()

	h, svc := newTestRouter(t)
	stored, err := svc.Create(context.Background(), core.Notification{UserKey: "u@crm.local", Title: "t"})
	require.NoError(t, err)

	rec := doRequest(t, h, http.MethodGet, "/unread-count", "u@crm.local", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread_count": 1}`, rec.Body.String())

	rec = doRequest(t, h, http.MethodPost, "/"+stored.ID+"/read", "u@crm.local", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/unread-count", "u@crm.local", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread_count": 0}`, rec.Body.String())
}

func TestRouter_MarkRead_ForeignIDIsOpaque(t *testing.T) {
	t.Parallel()

	h, svc := newTestRouter(t)
	stored, err := svc.Create(context.Background(), core.Notification{UserKey: "owner@crm.local", Title: "t"})
	require.NoError(t, err)

	rec := doRequest(t, h, http.MethodPost, "/"+stored.ID+"/read", "intruder@crm.local", "")
	assert.Equal(t, http.StatusNoContent, rec.Code, "foreign IDs are indistinguishable from unknown ones")

	notif, err := svc.Get(context.Background(), "owner@crm.local", stored.ID)
	require.NoError(t, err)
	assert.False(t, notif.Read)
}

func TestRouter_ReadAllAndDelete(t *testing.T) {
	t.Parallel()

	h, svc := newTestRouter(t)
	stored, err := svc.Create(context.Background(), core.Notification{UserKey: "u@crm.local", Title: "t"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), core.Notification{UserKey: "u@crm.local", Title: "t2"})
	require.NoError(t, err)

	rec := doRequest(t, h, http.MethodPost, "/read-all", "u@crm.local", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	count, err := svc.UnreadCount(context.Background(), "u@crm.local")
	require.NoError(t, err)
	assert.Zero(t, count)

	rec = doRequest(t, h, http.MethodDelete, "/"+stored.ID, "u@crm.local", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err = svc.Get(context.Background(), "u@crm.local", stored.ID)
	assert.ErrorIs(t, err, core.ErrNotificationNotFound)
}

func TestRouter_Preferences(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	rec := doRequest(t, h, http.MethodPut, "/preferences/", "u@crm.local",
		`{"muted_event_types":["updated"],"channels_enabled":["in_app"]}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/preferences/", "u@crm.local", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		MutedEventTypes []string `json:"muted_event_types"`
		ChannelsEnabled []string `json:"channels_enabled"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&payload))
	assert.Equal(t, []string{"updated"}, payload.MutedEventTypes)
	assert.Equal(t, []string{"in_app"}, payload.ChannelsEnabled)

	rec = doRequest(t, h, http.MethodPost, "/preferences/reset", "u@crm.local", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/preferences/", "u@crm.local", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&payload))
	assert.Empty(t, payload.MutedEventTypes)
	assert.ElementsMatch(t, []string{"in_app", "email"}, payload.ChannelsEnabled)
}

func TestRouter_Preferences_UnknownEventTypeRejected(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	rec := doRequest(t, h, http.MethodPut, "/preferences/", "u@crm.local",
		`{"muted_event_types":["exploded"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_List_Paging(t *testing.T) {
	t.Parallel()

	h, svc := newTestRouter(t)
	for range 5 {
		_, err := svc.Create(context.Background(), core.Notification{UserKey: "u@crm.local", Title: "t"})
		require.NoError(t, err)
	}

	rec := doRequest(t, h, http.MethodGet, "/?skip=2&take=2", "u@crm.local", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []core.Notification `json:"items"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Items, 2)
}
