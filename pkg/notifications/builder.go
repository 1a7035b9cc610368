package notifications

import (
	"sort"
	"strconv"
	"strings"
)

// Snapshot is a caller-supplied read-only view of an entity's current
// field values, used for template placeholder substitution.
type Snapshot map[string]string

// nameFields are probed in order when extracting a display name from an
// entity snapshot.
var nameFields = []string{"subject", "name", "title", "company", "full_name"}

// Builder turns one resolved recipient plus event context into a concrete
// notification payload. Build is a pure function with no side effects; it
// never fails to produce some message.
type Builder struct {
	catalog *Catalog
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithCatalog overrides the default template catalog.
func WithCatalog(c *Catalog) BuilderOption {
	return func(b *Builder) {
		if c != nil {
			b.catalog = c
		}
	}
}

// NewBuilder creates a message builder with the default CRM catalog.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{catalog: DefaultCatalog()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build produces an unpersisted notification for one recipient. Template
// selection falls back from (entityType, eventType) to (eventType) to a
// minimal built-in template.
func (b *Builder) Build(recipient ResolvedRecipient, nctx Context, snapshot Snapshot) Notification {
	tpl, ok := b.catalog.Lookup(nctx.EntityType, nctx.EventType)
	if !ok {
		tpl = minimalTemplate
	}

	primary := recipient.PrimaryRole()
	title, body := tpl.render(map[string]string{
		"entity_type": nctx.EntityType,
		"entity_name": entityName(nctx.EntityType, snapshot),
		"entity_ref":  entityRef(primary, nctx.EntityType),
		"action":      actionText(nctx.EventType),
		"actor":       nctx.ActorKey,
		"changes":     formatChanges(nctx.ChangeSummary),
	})

	if len(recipient.Roles) > 1 {
		body += roleSuffix(recipient)
	}

	return Notification{
		UserKey:    recipient.UserKey,
		EntityType: nctx.EntityType,
		EntityID:   nctx.EntityID,
		EventType:  nctx.EventType,
		Title:      title,
		Body:       body,
		Priority:   assignPriority(nctx.EventType, primary),
	}
}

// assignPriority implements the fixed priority table; it is not
// recipient-configurable.
func assignPriority(eventType EventType, primary Role) Priority {
	if primary != RoleOwner {
		return PriorityNormal
	}
	switch eventType {
	case EventDeleted:
		return PriorityCritical
	case EventStatusChanged, EventAssigned:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

func actionText(eventType EventType) string {
	switch eventType {
	case EventCreated:
		return "created"
	case EventUpdated:
		return "updated"
	case EventDeleted:
		return "deleted"
	case EventStatusChanged:
		return "status changed"
	case EventAssigned:
		return "assigned"
	case EventCommented:
		return "commented on"
	default:
		return "changed"
	}
}

// entityRef phrases the entity relative to the recipient's strongest role.
func entityRef(primary Role, entityType string) string {
	switch primary {
	case RoleOwner:
		return "your " + entityType
	case RoleCollaborator:
		return "a " + entityType + " you collaborate on"
	case RoleFollower:
		return "a " + entityType + " you follow"
	default:
		return "the " + entityType
	}
}

// entityName extracts a display name from the snapshot, probing common
// name fields and falling back to first+last name, then to a placeholder.
func entityName(entityType string, snapshot Snapshot) string {
	for _, field := range nameFields {
		if v := strings.TrimSpace(snapshot[field]); v != "" {
			return v
		}
	}

	full := strings.TrimSpace(strings.TrimSpace(snapshot["first_name"]) + " " + strings.TrimSpace(snapshot["last_name"]))
	if full != "" {
		return full
	}

	return "#" + entityType
}

// roleSuffix annotates multi-role recipients, showing up to two roles.
func roleSuffix(recipient ResolvedRecipient) string {
	roles := make([]string, 0, len(recipient.Roles))
	for role := range recipient.Roles {
		roles = append(roles, string(role))
	}
	sort.Slice(roles, func(i, j int) bool {
		return Role(roles[i]).Priority() < Role(roles[j]).Priority()
	})

	shown := roles
	more := ""
	if len(roles) > 2 {
		shown = roles[:2]
		more = " +" + strconv.Itoa(len(roles)-2) + " more"
	}
	return " (you are " + strings.Join(shown, " and ") + more + ")"
}
