// Package repository defines error values that are reused across the
// repositories. These sentinel values let the service layer distinguish
// failure scenarios without inspecting driver error strings: a lookup
// miss, a unique-key collision, and so on.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row (or only rows
// that are revoked/expired, for token lookups). Services translate it
// into their own taxonomy.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when inserting a user collides with the
// unique email or username constraint.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicate is returned when an insert collides with a unique key
// that the caller can regenerate (random token values, fresh UUIDs).
// Callers retry a bounded number of times before giving up.
var ErrDuplicate = errors.New("duplicate key")
