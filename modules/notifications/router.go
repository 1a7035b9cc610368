// Package notifications exposes the notification store facade and the
// realtime hub over HTTP. It is a thin adapter: identity extraction is
// delegated to the host application and no business logic lives here.
package notifications

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// UserKeyFunc extracts the authenticated user's key from a request. The
// host application owns authentication; an error means "unauthenticated".
type UserKeyFunc func(r *http.Request) (string, error)

// RouterOptions configures the notifications module router.
type RouterOptions struct {
	// Service is the notification store facade. Required.
	Service Facade

	// Preferences is optional; without it the preference endpoints are
	// not mounted.
	Preferences PreferenceStore

	// Hub is optional; without it the SSE stream endpoint is not mounted.
	Hub Subscriber

	// UserKey extracts the caller identity. Required.
	UserKey UserKeyFunc
}

// Router creates the notifications module router.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/notifications", notifications.Router(notifications.RouterOptions{
//	    Service: svc,
//	    Hub:     hub,
//	    UserKey: currentUserKey,
//	}))
func Router(opts RouterOptions) chi.Router {
	h := &handler{
		service: opts.Service,
		prefs:   opts.Preferences,
		hub:     opts.Hub,
		userKey: opts.UserKey,
	}

	r := chi.NewRouter()

	r.Get("/", h.list)
	r.Get("/unread-count", h.unreadCount)
	r.Post("/read-all", h.markAllRead)
	r.Post("/{id}/read", h.markRead)
	r.Delete("/{id}", h.delete)

	if opts.Preferences != nil {
		r.Route("/preferences", func(pr chi.Router) {
			pr.Get("/", h.getPreferences)
			pr.Put("/", h.updatePreferences)
			pr.Post("/reset", h.resetPreferences)
		})
	}

	if opts.Hub != nil {
		r.Get("/stream", h.stream)
	}

	return r
}
