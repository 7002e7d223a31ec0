package store

import (
	"errors"
	"fmt"
)

// ErrNotFound reports an id with no record.
var ErrNotFound = errors.New("not found")

// ErrAlreadyDeleted reports a mutation of a record that is already Deleted.
var ErrAlreadyDeleted = errors.New("already deleted")

// ErrConflict reports an identity field shared with another record.
var ErrConflict = errors.New("conflict")

// ErrIDSpace reports that no id is left above the current maximum.
var ErrIDSpace = errors.New("id space exhausted")

// ConflictError names the record and field a mutation collided with.
// It matches [ErrConflict].
type ConflictError struct {
	Kind  string
	ID    uint64
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s already used by %s %d", e.Field, e.Kind, e.ID)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
