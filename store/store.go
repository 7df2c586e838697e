// Package store persists authored content (SQLite) and player snapshots
// (Redis or memory).
package store

import "errors"

var (
	// ErrNotFound is returned when a quest or mail id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when creating an id that already exists.
	ErrDuplicate = errors.New("already exists")
)
