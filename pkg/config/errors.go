package config

import "errors"

var (
	// ErrNilPointer is returned when Load is called with a nil target.
	ErrNilPointer = errors.New("config: target cannot be nil")

	// ErrParsingFailed wraps env parsing failures.
	ErrParsingFailed = errors.New("config: failed to parse environment variables")
)
