package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/pkg/core/crew"
	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/core/overlap"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

// CrewInput adds one person to an existing shift.
// Role applies to drivers and Position to assistants.
type CrewInput struct {
	Kind     string `validate:"required,oneof=driver assistant"`
	MemberID string `validate:"required"`
	Role     string
	Position string
}

// AddCrew appends a driver or assistant to a shift after re-running the
// person's same-day collision check and the single-principal rule.
func AddCrew(ctx context.Context, store db.ShiftStore, logger *zap.Logger, shiftID string, input CrewInput) (*model.Shift, error) {
	if err := validate.Struct(input); err != nil {
		return nil, validationErrorFrom(err)
	}

	kind := overlap.ResourceKind(input.Kind)
	switch kind {
	case overlap.ResourceDriver:
		if !model.DriverRole(input.Role).IsValid() {
			return nil, &ValidationError{Field: "Role", Reason: fmt.Sprintf("%q is not principal or support", input.Role)}
		}
	case overlap.ResourceAssistant:
		if !model.AssistantPosition(input.Position).IsValid() {
			return nil, &ValidationError{Field: "Position", Reason: fmt.Sprintf("%q is not upper_deck, lower_deck or general", input.Position)}
		}
	}

	logger.Debug("Adding crew member",
		zap.String("shift_id", shiftID),
		zap.String("kind", input.Kind),
		zap.String("member_id", input.MemberID))

	var updated *model.Shift

	err := store.WithShiftTx(ctx, func(tx db.ShiftTx) error {
		shift, err := tx.GetShift(ctx, shiftID)
		if err != nil {
			return notFoundOr(err, "shift", shiftID)
		}
		if shift.State == model.ShiftCancelled || shift.State == model.ShiftCompleted {
			return &StateError{Kind: "shift", ID: shiftID, State: string(shift.State)}
		}

		if err := tx.LockDate(ctx, shift.Date); err != nil {
			return fmt.Errorf("failed to lock shift date: %w", err)
		}

		switch kind {
		case overlap.ResourceDriver:
			err = checkDriver(ctx, tx, input.MemberID)
		case overlap.ResourceAssistant:
			err = checkAssistant(ctx, tx, input.MemberID)
		}
		if err != nil {
			return err
		}

		// The shift itself is scanned too, so adding someone already on it is a conflict
		conflict, found, err := overlap.HasConflict(ctx, tx, overlap.Request{
			Kind:       kind,
			ResourceID: input.MemberID,
			Date:       shift.Date,
			Start:      shift.Start,
			End:        shift.End,
		})
		if err != nil {
			return err
		}
		if found {
			return conflictFrom(conflict)
		}

		switch kind {
		case overlap.ResourceDriver:
			assignment := model.DriverAssignment{ShiftID: shift.ID, DriverID: input.MemberID, Role: model.DriverRole(input.Role)}
			drivers := append(append([]model.DriverAssignment{}, shift.Drivers...), assignment)
			if result := crew.ValidateRoles(drivers); !result.OK() {
				return &ValidationError{Field: "Role", Reason: result.Violations[0].Description}
			}
			if err := tx.AddDriverAssignment(ctx, shift, assignment); err != nil {
				return fmt.Errorf("failed to add driver assignment: %w", err)
			}
			shift.Drivers = drivers

		case overlap.ResourceAssistant:
			assignment := model.AssistantAssignment{ShiftID: shift.ID, AssistantID: input.MemberID, Position: model.AssistantPosition(input.Position)}
			if err := tx.AddAssistantAssignment(ctx, shift, assignment); err != nil {
				return fmt.Errorf("failed to add assistant assignment: %w", err)
			}
			shift.Assistants = append(shift.Assistants, assignment)
		}

		updated = shift
		return nil
	})
	if err != nil {
		return nil, constraintConflictOr(err, &model.Shift{})
	}

	logger.Info("Crew member added",
		zap.String("shift_id", shiftID),
		zap.String("kind", input.Kind),
		zap.String("member_id", input.MemberID))

	return updated, nil
}
