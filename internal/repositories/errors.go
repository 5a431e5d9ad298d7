package repositories

import "errors"

// Sentinel errors shared by all repositories. Handlers map these to HTTP
// statuses with errors.Is.
var (
	// ErrNotFound is returned when a record does not exist or does not
	// belong to the requesting user.
	ErrNotFound = errors.New("record not found")

	// ErrValidation is returned when a write is rejected before reaching
	// the database.
	ErrValidation = errors.New("validation failed")
)
