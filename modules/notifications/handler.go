package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	core "github.com/hiepcp/full-crm-sub005/pkg/notifications"
	"github.com/hiepcp/full-crm-sub005/pkg/realtime"
)

// Facade is the slice of the notification service this module needs.
type Facade interface {
	List(ctx context.Context, userKey string, skip, take int) ([]core.Notification, error)
	UnreadCount(ctx context.Context, userKey string) (int, error)
	MarkRead(ctx context.Context, userKey, id string) error
	MarkAllRead(ctx context.Context, userKey string) error
	Delete(ctx context.Context, userKey, id string) error
}

// PreferenceStore mirrors the core preference contract.
type PreferenceStore interface {
	Get(ctx context.Context, userKey string) (core.Preference, error)
	Update(ctx context.Context, pref core.Preference) error
	Reset(ctx context.Context, userKey string) error
}

// Subscriber opens realtime sessions for the SSE stream endpoint.
type Subscriber interface {
	Subscribe(ctx context.Context, userKey string) *realtime.Session
}

type handler struct {
	service Facade
	prefs   PreferenceStore
	hub     Subscriber
	userKey UserKeyFunc
}

const defaultPageSize = 50

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	userKey, ok := h.identify(w, r)
	if !ok {
		return
	}

	skip := queryInt(r, "skip", 0)
	take := queryInt(r, "take", defaultPageSize)

	items, err := h.service.List(r.Context(), userKey, skip, take)
	if err != nil {
		http.Error(w, "failed to list notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	userKey, ok := h.identify(w, r)
	if !ok {
		return
	}

	count, err := h.service.UnreadCount(r.Context(), userKey)
	if err != nil {
		http.Error(w, "failed to count unread notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread_count": count})
}

func (h *handler) markRead(w http.ResponseWriter, r *http.Request) {
	userKey, ok := h.identify(w, r)
	if !ok {
		return
	}

	// Ownership violations and unknown IDs are no-op successes, so other
	// users' notification IDs are not discoverable here.
	if err := h.service.MarkRead(r.Context(), userKey, chi.URLParam(r, "id")); err != nil {
		http.Error(w, "failed to mark notification read", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	userKey, ok := h.identify(w, r)
	if !ok {
		return
	}

	if err := h.service.MarkAllRead(r.Context(), userKey); err != nil {
		http.Error(w, "failed to mark notifications read", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	userKey, ok := h.identify(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userKey, chi.URLParam(r, "id")); err != nil {
		http.Error(w, "failed to delete notification", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// preferencePayload is the wire layout of a preference document.
type preferencePayload struct {
	MutedEventTypes []string `json:"muted_event_types"`
	ChannelsEnabled []string `json:"channels_enabled"`
}

func (h *handler) getPreferences(w http.ResponseWriter, r *http.Request) {
	userKey, ok := h.identify(w, r)
	if !ok {
		return
	}

	pref, err := h.prefs.Get(r.Context(), userKey)
	if err != nil {
		http.Error(w, "failed to load preferences", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(pref))
}

func (h *handler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	userKey, ok := h.identify(w, r)
	if !ok {
		return
	}

	var payload preferencePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid preference payload", http.StatusBadRequest)
		return
	}

	pref := core.Preference{
		UserKey:         userKey,
		MutedEventTypes: make(map[core.EventType]struct{}, len(payload.MutedEventTypes)),
		ChannelsEnabled: make(map[core.Channel]struct{}, len(payload.ChannelsEnabled)),
	}
	for _, et := range payload.MutedEventTypes {
		if !core.EventType(et).Valid() {
			http.Error(w, fmt.Sprintf("unknown event type %q", et), http.StatusBadRequest)
			return
		}
		pref.MutedEventTypes[core.EventType(et)] = struct{}{}
	}
	for _, ch := range payload.ChannelsEnabled {
		pref.ChannelsEnabled[core.Channel(ch)] = struct{}{}
	}

	if err := h.prefs.Update(r.Context(), pref); err != nil {
		http.Error(w, "failed to update preferences", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) resetPreferences(w http.ResponseWriter, r *http.Request) {
	userKey, ok := h.identify(w, r)
	if !ok {
		return
	}

	if err := h.prefs.Reset(r.Context(), userKey); err != nil {
		http.Error(w, "failed to reset preferences", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// stream delivers realtime events over SSE until the client disconnects.
func (h *handler) stream(w http.ResponseWriter, r *http.Request) {
	userKey, ok := h.identify(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sess := h.hub.Subscribe(r.Context(), userKey)
	defer sess.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-sess.Receive():
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
			flusher.Flush()
		}
	}
}

func (h *handler) identify(w http.ResponseWriter, r *http.Request) (string, bool) {
	userKey, err := h.userKey(r)
	if err != nil || userKey == "" {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return "", false
	}
	return userKey, true
}

func toPayload(pref core.Preference) preferencePayload {
	payload := preferencePayload{
		MutedEventTypes: []string{},
		ChannelsEnabled: []string{},
	}
	for et := range pref.MutedEventTypes {
		payload.MutedEventTypes = append(payload.MutedEventTypes, string(et))
	}
	for ch := range pref.ChannelsEnabled {
		payload.ChannelsEnabled = append(payload.ChannelsEnabled, string(ch))
	}
	return payload
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
