package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a unique constraint rejected the write. This is
	// the authoritative backstop against check-then-insert races.
	ErrDuplicate = errors.New("repository: duplicate key")
)
