package notifications

import (
	"context"
	"sync"
)

// RecipientProvider returns the raw (possibly overlapping) assignments for
// an entity and its related entities. The provider owns the relationship
// traversal (activity -> parent lead/deal -> customer); the rules engine
// only sees the flattened result. Failure is a hard error: resolution is
// all-or-nothing, a partial list would silently under-notify.
type RecipientProvider interface {
	GetAssignees(ctx context.Context, entityType string, entityID int64) ([]RawAssignment, error)
}

// ProviderFunc adapts a function to the RecipientProvider interface.
type ProviderFunc func(ctx context.Context, entityType string, entityID int64) ([]RawAssignment, error)

func (f ProviderFunc) GetAssignees(ctx context.Context, entityType string, entityID int64) ([]RawAssignment, error) {
	return f(ctx, entityType, entityID)
}

// StaticProvider is an in-memory RecipientProvider keyed by entity.
// Suitable for development and testing.
type StaticProvider struct {
	assignments map[entityKey][]RawAssignment
	mu          sync.RWMutex
}

type entityKey struct {
	entityType string
	entityID   int64
}

// NewStaticProvider creates an empty static provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		assignments: make(map[entityKey][]RawAssignment),
	}
}

// Assign records a raw assignment for the given entity.
func (p *StaticProvider) Assign(entityType string, entityID int64, raw ...RawAssignment) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ref := entityKey{entityType: entityType, entityID: entityID}
	p.assignments[ref] = append(p.assignments[ref], raw...)
}

func (p *StaticProvider) GetAssignees(ctx context.Context, entityType string, entityID int64) ([]RawAssignment, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stored := p.assignments[entityKey{entityType: entityType, entityID: entityID}]
	out := make([]RawAssignment, len(stored))
	copy(out, stored)
	return out, nil
}
