package billing

import "errors"

var (
	// ErrNotFound indicates a referenced pool, charge or payment does not exist.
	ErrNotFound = errors.New("billing: not found")
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("billing: validation failed")
	// ErrHasDependents indicates a delete was refused because child records exist.
	ErrHasDependents = errors.New("billing: dependent records exist")
	// ErrConcurrencyConflict indicates a conflicting concurrent write on a charge.
	ErrConcurrencyConflict = errors.New("billing: concurrent modification")
)
