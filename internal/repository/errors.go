package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a write violated a uniqueness constraint.
	ErrDuplicate = errors.New("repository: duplicate")
)
