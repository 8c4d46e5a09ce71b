package repository

import "errors"

var (
	// ErrNotFound represents a missing row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict represents a unique key collision.
	ErrConflict = errors.New("record already exists")
)
