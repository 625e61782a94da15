package model

import "errors"

// Sentinel errors for the store's error taxonomy. Batch operations convert
// these into per-item result fields; single-item lookups surface them as
// hard errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)
