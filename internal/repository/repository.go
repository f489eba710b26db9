// Package repository declares the persistence ports, one per entity kind.
// Implementations live in subpackages (postgres, memory) and in internal/storage for binaries.
package repository

import "errors"

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned by Create when the id is already taken.
	ErrDuplicate = errors.New("duplicate id")
	// ErrVersionConflict is returned by Update when the stored version moved on.
	ErrVersionConflict = errors.New("version conflict")
)
