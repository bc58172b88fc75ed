// Package storage defines the persistence configuration and the
// sentinel errors shared by all backends. The implementations live in
// the memory and postgres subpackages.
package storage

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a uniqueness constraint was violated
	ErrDuplicate = errors.New("record already exists")
)
