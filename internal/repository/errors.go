package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrStoreUnavailable wraps any backend failure: auth, timeout, connection or pool exhaustion.
	ErrStoreUnavailable = errors.New("repository: store unavailable")
)
