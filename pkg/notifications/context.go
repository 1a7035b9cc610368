package notifications

import (
	"time"
)

// Context carries the facts about one entity change event. It is immutable
// once constructed; build it with NewContext.
type Context struct {
	EventType     EventType
	EntityType    string
	EntityID      int64
	ActorKey      string
	OccurredAt    time.Time
	ChangeSummary map[string]string
	SuppressActor bool
}

// ContextOption configures a Context at construction time.
type ContextOption func(*Context)

// WithChangeSummary attaches field-level change descriptions used by the
// message builder for template substitution.
func WithChangeSummary(summary map[string]string) ContextOption {
	return func(c *Context) {
		if len(summary) == 0 {
			return
		}
		// Copy so callers cannot mutate the context after construction.
		cp := make(map[string]string, len(summary))
		for k, v := range summary {
			cp[k] = v
		}
		c.ChangeSummary = cp
	}
}

// WithOccurredAt overrides the event timestamp (defaults to now).
func WithOccurredAt(t time.Time) ContextOption {
	return func(c *Context) {
		if !t.IsZero() {
			c.OccurredAt = t
		}
	}
}

// WithoutActorSuppression keeps the actor in the recipient list. Required
// for system-generated events (no human actor) so owners still get
// notified, and usable when the actor should receive a confirmation.
func WithoutActorSuppression() ContextOption {
	return func(c *Context) {
		c.SuppressActor = false
	}
}

// NewContext validates and builds an event context. The actor key is
// normalized at construction so suppression comparisons are consistent.
// SuppressActor defaults to true: a user is never notified of their own
// action unless WithoutActorSuppression is applied.
func NewContext(eventType EventType, entityType string, entityID int64, actorKey string, opts ...ContextOption) (Context, error) {
	if !eventType.Valid() {
		return Context{}, ErrInvalidEventType
	}
	if entityType == "" {
		return Context{}, ErrEmptyEntityType
	}

	c := Context{
		EventType:     eventType,
		EntityType:    entityType,
		EntityID:      entityID,
		ActorKey:      NormalizeKey(actorKey),
		OccurredAt:    time.Now(),
		SuppressActor: true,
	}

	for _, opt := range opts {
		opt(&c)
	}

	return c, nil
}
