package store

import "errors"

var (
	// ErrNotInitialized is returned when a store is used before Open or after Close.
	ErrNotInitialized = errors.New("store: not initialized")
	// ErrNotFound is returned by Get for an unknown id.
	ErrNotFound = errors.New("store: event not found")
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("store: unknown driver")
	// ErrMissingID rejects a put without an id.
	ErrMissingID = errors.New("store: event id is required")
)
