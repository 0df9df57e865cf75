package db

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrConstraintConflict is returned when a database-level overlap or
	// uniqueness constraint rejects a shift write
	ErrConstraintConflict = errors.New("constraint conflict")
)

// ConstraintError identifies which resource a rejected shift write collided on.
// It matches ErrConstraintConflict with errors.Is.
type ConstraintError struct {
	Resource   string // "bus", "driver" or "assistant"
	ResourceID string
	ShiftID    string // the shift already holding the resource, when the store knows it
	Detail     string
}

func (e *ConstraintError) Error() string {
	if e.ResourceID == "" {
		return fmt.Sprintf("%s booking rejected by database constraint: %s", e.Resource, e.Detail)
	}
	return fmt.Sprintf("%s %s booking rejected by database constraint: %s", e.Resource, e.ResourceID, e.Detail)
}

func (e *ConstraintError) Unwrap() error {
	return ErrConstraintConflict
}
