// Package redisprefs implements the notification PreferenceStore on
// Redis. Preferences are stored as one JSON document per user; unknown
// users resolve to the all-enabled default without touching Redis state,
// matching the lazy-creation contract.
package redisprefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hiepcp/full-crm-sub005/pkg/notifications"
	"github.com/hiepcp/full-crm-sub005/pkg/redisconn"
)

const keyPrefix = "notifications:prefs:"

// Store is the Redis-backed notifications.PreferenceStore implementation.
type Store struct {
	client redis.UniversalClient
}

// NewStore creates a preference store over the given Redis client.
func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// Connect dials Redis from the given config and returns a store over the
// new client. The caller owns the client lifecycle via Close.
func Connect(ctx context.Context, cfg redisconn.Config) (*Store, func() error, error) {
	client, err := redisconn.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return NewStore(client), client.Close, nil
}

// prefDoc is the wire layout of one stored preference.
type prefDoc struct {
	UserKey  string   `json:"user_key"`
	Muted    []string `json:"muted_event_types"`
	Channels []string `json:"channels_enabled"`
}

func (s *Store) Get(ctx context.Context, userKey string) (notifications.Preference, error) {
	key := notifications.NormalizeKey(userKey)

	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notifications.DefaultPreference(key), nil
		}
		return notifications.Preference{}, fmt.Errorf("failed to load preference: %w", err)
	}

	var doc prefDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return notifications.Preference{}, fmt.Errorf("failed to decode preference: %w", err)
	}
	return fromDoc(doc), nil
}

func (s *Store) Update(ctx context.Context, pref notifications.Preference) error {
	if pref.UserKey == "" {
		return notifications.ErrMissingUserKey
	}
	pref.UserKey = notifications.NormalizeKey(pref.UserKey)

	raw, err := json.Marshal(toDoc(pref))
	if err != nil {
		return fmt.Errorf("failed to encode preference: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+pref.UserKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to store preference: %w", err)
	}
	return nil
}

func (s *Store) Reset(ctx context.Context, userKey string) error {
	key := notifications.NormalizeKey(userKey)
	return s.Update(ctx, notifications.DefaultPreference(key))
}

func toDoc(pref notifications.Preference) prefDoc {
	doc := prefDoc{UserKey: pref.UserKey}
	for et := range pref.MutedEventTypes {
		doc.Muted = append(doc.Muted, string(et))
	}
	for ch := range pref.ChannelsEnabled {
		doc.Channels = append(doc.Channels, string(ch))
	}
	return doc
}

func fromDoc(doc prefDoc) notifications.Preference {
	pref := notifications.Preference{
		UserKey:         doc.UserKey,
		MutedEventTypes: make(map[notifications.EventType]struct{}, len(doc.Muted)),
		ChannelsEnabled: make(map[notifications.Channel]struct{}, len(doc.Channels)),
	}
	for _, et := range doc.Muted {
		pref.MutedEventTypes[notifications.EventType(et)] = struct{}{}
	}
	for _, ch := range doc.Channels {
		pref.ChannelsEnabled[notifications.Channel(ch)] = struct{}{}
	}
	return pref
}
