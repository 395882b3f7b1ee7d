package storage

import "errors"

// Storage errors shared by all implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert violates a uniqueness
	// constraint. Callers that expect redelivery (participation ingestion)
	// swallow it; everyone else treats it as a conflict.
	ErrDuplicateKey = errors.New("duplicate key")
)
