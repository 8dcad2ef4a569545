package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrIdempotencyConflict indicates a duplicate processing key.
	ErrIdempotencyConflict = errors.New("idempotent request already processed")
)
