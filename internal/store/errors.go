package store

import "errors"

// Sentinel errors returned by store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	// Implementations also return it for records that exist but cannot
	// be decoded: a corrupt envelope is treated as absent, never as a
	// fault the caller must handle.
	ErrNotFound = errors.New("store: record not found")
)
