package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/jakechorley/fleet-ops/pkg/core/overlap"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

// ValidationError is returned for malformed input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError is returned when a booking collides with an existing shift.
// ConflictingShiftID is empty when the collision was caught by a database constraint.
type ConflictError struct {
	ResourceKind       overlap.ResourceKind
	ResourceID         string
	ConflictingShiftID string
}

func (e *ConflictError) Error() string {
	if e.ConflictingShiftID == "" {
		return fmt.Sprintf("%s %s is already booked", e.ResourceKind, e.ResourceID)
	}
	return fmt.Sprintf("%s %s is already booked by shift %s", e.ResourceKind, e.ResourceID, e.ConflictingShiftID)
}

// NotFoundError is returned when a referenced record does not exist
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// StateError is returned when a referenced record is in a state that forbids the operation
type StateError struct {
	Kind  string
	ID    string
	State string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s %s is %s", e.Kind, e.ID, e.State)
}

func conflictFrom(c *overlap.Conflict) *ConflictError {
	return &ConflictError{
		ResourceKind:       c.ResourceKind,
		ResourceID:         c.ResourceID,
		ConflictingShiftID: c.ConflictingShiftID,
	}
}

// notFoundOr converts db.ErrNotFound into a NotFoundError and wraps anything else
func notFoundOr(err error, kind, id string) error {
	if errors.Is(err, db.ErrNotFound) {
		return &NotFoundError{Kind: kind, ID: id}
	}
	return fmt.Errorf("failed to get %s %s: %w", kind, id, err)
}

// validationErrorFrom converts a validator failure into a ValidationError naming the first bad field
func validationErrorFrom(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason := fe.Tag()
		if fe.Param() != "" {
			reason = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		}
		return &ValidationError{Field: fe.Namespace(), Reason: fmt.Sprintf("failed %q check (got %v)", reason, fe.Value())}
	}
	return &ValidationError{Field: "input", Reason: err.Error()}
}
