package notifications

import "errors"

var (
	// ErrNotificationNotFound is returned when a notification is not found.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrInvalidEventType is returned when a context is built with an unknown event type.
	ErrInvalidEventType = errors.New("invalid event type")

	// ErrEmptyEntityType is returned when a context is built without an entity type.
	ErrEmptyEntityType = errors.New("entity type cannot be empty")

	// ErrMissingID is returned when a record without an ID reaches storage.
	ErrMissingID = errors.New("notification ID is required")

	// ErrMissingUserKey is returned when a record without a recipient reaches storage.
	ErrMissingUserKey = errors.New("user key is required")

	// ErrResolution wraps recipient provider or preference store failures.
	// Resolution is all-or-nothing: no partial recipient list is ever returned.
	ErrResolution = errors.New("recipient resolution failed")

	// ErrProviderNil is returned when a rules engine is built without a provider.
	ErrProviderNil = errors.New("recipient provider cannot be nil")

	// ErrStorageNil is returned when a service is built without storage.
	ErrStorageNil = errors.New("notification storage cannot be nil")
)
