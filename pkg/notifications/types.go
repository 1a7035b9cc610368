package notifications

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Role describes how a user is tied to an entity.
type Role string

const (
	RoleOwner        Role = "owner"
	RoleCollaborator Role = "collaborator"
	RoleFollower     Role = "follower"
)

// rolePriority orders roles for primary-role selection; lower is stronger.
var rolePriority = map[Role]int{
	RoleOwner:        1,
	RoleCollaborator: 2,
	RoleFollower:     3,
}

// Priority returns the role's rank; lower outranks higher.
// Unknown roles sort last.
func (r Role) Priority() int {
	if p, ok := rolePriority[r]; ok {
		return p
	}
	return 99
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	_, ok := rolePriority[r]
	return ok
}

// EventType identifies what happened to an entity.
type EventType string

const (
	EventCreated       EventType = "created"
	EventUpdated       EventType = "updated"
	EventDeleted       EventType = "deleted"
	EventStatusChanged EventType = "status_changed"
	EventAssigned      EventType = "assigned"
	EventCommented     EventType = "commented"
)

// Valid reports whether the event type is one of the known values.
func (e EventType) Valid() bool {
	switch e {
	case EventCreated, EventUpdated, EventDeleted, EventStatusChanged, EventAssigned, EventCommented:
		return true
	}
	return false
}

// Priority represents the notification priority level.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "normal"
	}
}

// Channel identifies a delivery channel a user can toggle.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
)

// keyFolder folds user keys for case-insensitive identity comparison.
// Fold rather than ToLower so non-ASCII mailbox names compare correctly.
var keyFolder = cases.Fold()

// NormalizeKey canonicalizes a user key (trimmed, case-folded).
// All pipeline components compare user keys through this function.
func NormalizeKey(key string) string {
	return keyFolder.String(strings.TrimSpace(key))
}

// RawAssignment is one unmerged fact from the recipient provider:
// "this user has this role on this entity". The same user may appear
// several times through different relationship paths.
type RawAssignment struct {
	UserKey          string
	Role             Role
	SourceEntityType string
	SourceEntityID   int64
}

// AssignmentSource records where one of a recipient's roles came from,
// retained for traceability through resolution.
type AssignmentSource struct {
	EntityType string
	EntityID   int64
	Role       Role
}

// ResolvedRecipient is the deduplicated, role-merged result of recipient
// resolution for one user. Roles is never empty; Sources preserves every
// raw assignment observed for the key in input order.
type ResolvedRecipient struct {
	UserKey string
	Roles   map[Role]struct{}
	Sources []AssignmentSource
}

// PrimaryRole returns the highest-priority role in the set
// (owner > collaborator > follower). It is a pure function of Roles,
// recomputed on demand and never persisted.
func (r ResolvedRecipient) PrimaryRole() Role {
	best := Role("")
	bestPrio := int(^uint(0) >> 1)
	for role := range r.Roles {
		if p := role.Priority(); p < bestPrio {
			best, bestPrio = role, p
		}
	}
	return best
}

// HasRole reports whether the recipient holds the given role.
func (r ResolvedRecipient) HasRole(role Role) bool {
	_, ok := r.Roles[role]
	return ok
}

// Notification is the persisted record delivered to one recipient.
// ID, CreatedAt and the message content are immutable after creation;
// Read/ReadAt are the only mutable fields.
type Notification struct {
	ID         string     `json:"id"`
	UserKey    string     `json:"user_key"`
	EntityType string     `json:"entity_type"`
	EntityID   int64      `json:"entity_id"`
	EventType  EventType  `json:"event_type"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Priority   Priority   `json:"priority"`
	Read       bool       `json:"read"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// MarkAsRead transitions the record to read with the current timestamp.
// The transition is one-way; calling it on a read record is a no-op.
func (n *Notification) MarkAsRead() {
	if n.Read {
		return
	}
	n.Read = true
	now := time.Now()
	n.ReadAt = &now
}
