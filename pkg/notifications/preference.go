package notifications

import (
	"context"
	"sync"
)

// Preference holds one user's notification settings. Rows are created
// lazily with everything enabled and nothing muted, updated in place, and
// never deleted (Reset restores defaults instead).
type Preference struct {
	UserKey         string
	MutedEventTypes map[EventType]struct{}
	ChannelsEnabled map[Channel]struct{}
}

// DefaultPreference returns the all-enabled, nothing-muted preference
// synthesized for users without a stored row.
func DefaultPreference(userKey string) Preference {
	return Preference{
		UserKey:         NormalizeKey(userKey),
		MutedEventTypes: make(map[EventType]struct{}),
		ChannelsEnabled: map[Channel]struct{}{
			ChannelInApp: {},
			ChannelEmail: {},
		},
	}
}

// Muted reports whether the user muted the given event type.
func (p Preference) Muted(eventType EventType) bool {
	_, ok := p.MutedEventTypes[eventType]
	return ok
}

// ChannelEnabled reports whether the user enabled the given channel.
// Per-channel filtering is consumed by the transport layer, not by the
// rules engine.
func (p Preference) ChannelEnabled(ch Channel) bool {
	_, ok := p.ChannelsEnabled[ch]
	return ok
}

// Mute adds an event type to the muted set.
func (p *Preference) Mute(eventType EventType) {
	if p.MutedEventTypes == nil {
		p.MutedEventTypes = make(map[EventType]struct{})
	}
	p.MutedEventTypes[eventType] = struct{}{}
}

// Unmute removes an event type from the muted set.
func (p *Preference) Unmute(eventType EventType) {
	delete(p.MutedEventTypes, eventType)
}

// PreferenceStore persists per-user notification preferences.
// Get never returns a nil-equivalent preference: implementations must
// synthesize DefaultPreference for unknown users.
type PreferenceStore interface {
	Get(ctx context.Context, userKey string) (Preference, error)

	Update(ctx context.Context, pref Preference) error

	// Reset restores the user's preference to defaults. Preferences are
	// never deleted outright.
	Reset(ctx context.Context, userKey string) error
}

// MemoryPreferenceStore is an in-memory PreferenceStore.
// Suitable for development and testing.
type MemoryPreferenceStore struct {
	prefs map[string]Preference
	mu    sync.RWMutex
}

// NewMemoryPreferenceStore creates an empty in-memory preference store.
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{
		prefs: make(map[string]Preference),
	}
}

func (s *MemoryPreferenceStore) Get(ctx context.Context, userKey string) (Preference, error) {
	key := NormalizeKey(userKey)

	s.mu.RLock()
	pref, ok := s.prefs[key]
	s.mu.RUnlock()

	if !ok {
		return DefaultPreference(key), nil
	}
	return clonePreference(pref), nil
}

func (s *MemoryPreferenceStore) Update(ctx context.Context, pref Preference) error {
	if pref.UserKey == "" {
		return ErrMissingUserKey
	}
	pref.UserKey = NormalizeKey(pref.UserKey)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs[pref.UserKey] = clonePreference(pref)
	return nil
}

func (s *MemoryPreferenceStore) Reset(ctx context.Context, userKey string) error {
	key := NormalizeKey(userKey)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs[key] = DefaultPreference(key)
	return nil
}

// clonePreference copies the preference maps so stored state cannot be
// mutated through a returned value.
func clonePreference(p Preference) Preference {
	cp := Preference{
		UserKey:         p.UserKey,
		MutedEventTypes: make(map[EventType]struct{}, len(p.MutedEventTypes)),
		ChannelsEnabled: make(map[Channel]struct{}, len(p.ChannelsEnabled)),
	}
	for et := range p.MutedEventTypes {
		cp.MutedEventTypes[et] = struct{}{}
	}
	for ch := range p.ChannelsEnabled {
		cp.ChannelsEnabled[ch] = struct{}{}
	}
	return cp
}
