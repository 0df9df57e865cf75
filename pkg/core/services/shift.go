package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/pkg/core/crew"
	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/core/overlap"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

var validate = validator.New()

// DriverInput assigns a driver to a shift
type DriverInput struct {
	DriverID string `validate:"required"`
	Role     string `validate:"required,oneof=principal support"`
}

// AssistantInput assigns an assistant to a shift
type AssistantInput struct {
	AssistantID string `validate:"required"`
	Position    string `validate:"required,oneof=upper_deck lower_deck general"`
}

// ShiftInput is the caller-supplied description of a shift and its crew
type ShiftInput struct {
	BusID      string           `validate:"required"`
	Date       string           `validate:"required,datetime=2006-01-02"`
	Start      string           `validate:"required"`
	End        string           `validate:"required"`
	Type       string           `validate:"required,oneof=morning afternoon night"`
	Notes      string           `validate:"max=2000"`
	Drivers    []DriverInput    `validate:"dive"`
	Assistants []AssistantInput `validate:"dive"`
}

// CreateShift books a bus and an optional crew into a new scheduled shift.
// The bus window and every crew member are checked for collisions inside one
// transaction that holds the lock for the shift's date.
func CreateShift(ctx context.Context, store db.ShiftStore, logger *zap.Logger, input ShiftInput) (*model.Shift, error) {
	shift, err := shiftFromInput(input)
	if err != nil {
		return nil, err
	}
	shift.ID = uuid.New().String()
	shift.State = model.ShiftScheduled
	for i := range shift.Drivers {
		shift.Drivers[i].ShiftID = shift.ID
	}
	for i := range shift.Assistants {
		shift.Assistants[i].ShiftID = shift.ID
	}

	logger.Debug("Creating shift",
		zap.String("shift_id", shift.ID),
		zap.String("bus_id", shift.BusID),
		zap.String("date", model.FormatDate(shift.Date)),
		zap.Stringer("start", shift.Start),
		zap.Stringer("end", shift.End),
		zap.Int("drivers", len(shift.Drivers)),
		zap.Int("assistants", len(shift.Assistants)))

	err = store.WithShiftTx(ctx, func(tx db.ShiftTx) error {
		if err := tx.LockDate(ctx, shift.Date); err != nil {
			return fmt.Errorf("failed to lock shift date: %w", err)
		}
		if err := checkBooking(ctx, tx, shift, ""); err != nil {
			return err
		}
		if err := tx.InsertShift(ctx, shift); err != nil {
			return fmt.Errorf("failed to insert shift: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, constraintConflictOr(err, shift)
	}

	logger.Info("Shift created",
		zap.String("shift_id", shift.ID),
		zap.String("bus_id", shift.BusID),
		zap.String("date", model.FormatDate(shift.Date)))

	return shift, nil
}

// UpdateShift replaces the bus, window, type, notes and crew of an existing shift.
// The same checks as CreateShift apply, ignoring the shift's own bookings.
func UpdateShift(ctx context.Context, store db.ShiftStore, logger *zap.Logger, id string, input ShiftInput) (*model.Shift, error) {
	next, err := shiftFromInput(input)
	if err != nil {
		return nil, err
	}
	next.ID = id
	for i := range next.Drivers {
		next.Drivers[i].ShiftID = id
	}
	for i := range next.Assistants {
		next.Assistants[i].ShiftID = id
	}

	logger.Debug("Updating shift", zap.String("shift_id", id))

	err = store.WithShiftTx(ctx, func(tx db.ShiftTx) error {
		current, err := tx.GetShift(ctx, id)
		if err != nil {
			return notFoundOr(err, "shift", id)
		}
		if current.State == model.ShiftCancelled || current.State == model.ShiftCompleted {
			return &StateError{Kind: "shift", ID: id, State: string(current.State)}
		}
		next.State = current.State

		// Lock both days in a fixed order so two movers cannot deadlock
		for _, d := range lockOrder(current.Date, next.Date) {
			if err := tx.LockDate(ctx, d); err != nil {
				return fmt.Errorf("failed to lock shift date: %w", err)
			}
		}

		if err := checkBooking(ctx, tx, next, id); err != nil {
			return err
		}
		if err := tx.UpdateShift(ctx, next); err != nil {
			return fmt.Errorf("failed to update shift: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, constraintConflictOr(err, next)
	}

	logger.Info("Shift updated", zap.String("shift_id", id))

	return next, nil
}

// CancelShift moves a shift to cancelled. The shift and its crew rows are kept
// for history but no longer count in collision checks. Cancelling twice is a no-op.
func CancelShift(ctx context.Context, store db.ShiftStore, logger *zap.Logger, id string) (*model.Shift, error) {
	var cancelled *model.Shift

	err := store.WithShiftTx(ctx, func(tx db.ShiftTx) error {
		shift, err := tx.GetShift(ctx, id)
		if err != nil {
			return notFoundOr(err, "shift", id)
		}

		switch shift.State {
		case model.ShiftCancelled:
			logger.Debug("Shift already cancelled", zap.String("shift_id", id))
			cancelled = shift
			return nil
		case model.ShiftCompleted:
			return &StateError{Kind: "shift", ID: id, State: string(shift.State)}
		}

		if err := tx.LockDate(ctx, shift.Date); err != nil {
			return fmt.Errorf("failed to lock shift date: %w", err)
		}
		if err := tx.SetShiftState(ctx, id, model.ShiftCancelled); err != nil {
			return fmt.Errorf("failed to cancel shift: %w", err)
		}
		shift.State = model.ShiftCancelled
		cancelled = shift
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Shift cancelled", zap.String("shift_id", id))

	return cancelled, nil
}

// shiftFromInput validates input and converts it into an unsaved shift
func shiftFromInput(input ShiftInput) (*model.Shift, error) {
	if err := validate.Struct(input); err != nil {
		return nil, validationErrorFrom(err)
	}

	date, err := model.ParseDate(input.Date)
	if err != nil {
		return nil, &ValidationError{Field: "Date", Reason: err.Error()}
	}
	start, err := model.ParseTimeOfDay(input.Start)
	if err != nil {
		return nil, &ValidationError{Field: "Start", Reason: err.Error()}
	}
	end, err := model.ParseTimeOfDay(input.End)
	if err != nil {
		return nil, &ValidationError{Field: "End", Reason: err.Error()}
	}
	if start >= end {
		return nil, &ValidationError{Field: "End", Reason: fmt.Sprintf("start %s must be before end %s", start, end)}
	}

	shift := &model.Shift{
		BusID: strings.TrimSpace(input.BusID),
		Date:  date,
		Start: start,
		End:   end,
		Type:  model.ShiftType(input.Type),
		Notes: input.Notes,
	}

	seen := make(map[string]bool)
	for _, d := range input.Drivers {
		if seen["driver:"+d.DriverID] {
			return nil, &ValidationError{Field: "Drivers", Reason: fmt.Sprintf("driver %s listed more than once", d.DriverID)}
		}
		seen["driver:"+d.DriverID] = true
		shift.Drivers = append(shift.Drivers, model.DriverAssignment{DriverID: d.DriverID, Role: model.DriverRole(d.Role)})
	}
	for _, a := range input.Assistants {
		if seen["assistant:"+a.AssistantID] {
			return nil, &ValidationError{Field: "Assistants", Reason: fmt.Sprintf("assistant %s listed more than once", a.AssistantID)}
		}
		seen["assistant:"+a.AssistantID] = true
		shift.Assistants = append(shift.Assistants, model.AssistantAssignment{AssistantID: a.AssistantID, Position: model.AssistantPosition(a.Position)})
	}

	if result := crew.ValidateRoles(shift.Drivers); !result.OK() {
		return nil, &ValidationError{Field: "Drivers", Reason: result.Violations[0].Description}
	}

	return shift, nil
}

// checkBooking runs every write-time check for a shift against the state visible in tx.
// The first failure is returned.
func checkBooking(ctx context.Context, tx db.ShiftTx, shift *model.Shift, excludeShiftID string) error {
	bus, err := tx.GetBus(ctx, shift.BusID)
	if err != nil {
		return notFoundOr(err, "bus", shift.BusID)
	}
	if bus.State != model.BusOperational {
		return &StateError{Kind: "bus", ID: bus.ID, State: string(bus.State)}
	}

	// One scan of the day serves every resource check
	dayShifts, err := tx.ActiveShiftsOn(ctx, shift.Date)
	if err != nil {
		return fmt.Errorf("failed to load shifts for %s: %w", model.FormatDate(shift.Date), err)
	}

	if c := overlap.FindConflict(dayShifts, bookingRequest(shift, overlap.ResourceBus, shift.BusID, excludeShiftID)); c != nil {
		return conflictFrom(c)
	}

	for _, d := range shift.Drivers {
		if err := checkDriver(ctx, tx, d.DriverID); err != nil {
			return err
		}
		if c := overlap.FindConflict(dayShifts, bookingRequest(shift, overlap.ResourceDriver, d.DriverID, excludeShiftID)); c != nil {
			return conflictFrom(c)
		}
	}

	for _, a := range shift.Assistants {
		if err := checkAssistant(ctx, tx, a.AssistantID); err != nil {
			return err
		}
		if c := overlap.FindConflict(dayShifts, bookingRequest(shift, overlap.ResourceAssistant, a.AssistantID, excludeShiftID)); c != nil {
			return conflictFrom(c)
		}
	}

	return nil
}

func checkDriver(ctx context.Context, tx db.ShiftTx, id string) error {
	driver, err := tx.GetDriver(ctx, id)
	if err != nil {
		return notFoundOr(err, "driver", id)
	}
	if driver.State != model.CrewActive {
		return &StateError{Kind: "driver", ID: id, State: string(driver.State)}
	}
	return nil
}

func checkAssistant(ctx context.Context, tx db.ShiftTx, id string) error {
	assistant, err := tx.GetAssistant(ctx, id)
	if err != nil {
		return notFoundOr(err, "assistant", id)
	}
	if assistant.State != model.CrewActive {
		return &StateError{Kind: "assistant", ID: id, State: string(assistant.State)}
	}
	return nil
}

func bookingRequest(shift *model.Shift, kind overlap.ResourceKind, resourceID, excludeShiftID string) overlap.Request {
	return overlap.Request{
		Kind:           kind,
		ResourceID:     resourceID,
		Date:           shift.Date,
		Start:          shift.Start,
		End:            shift.End,
		ExcludeShiftID: excludeShiftID,
	}
}

// lockOrder returns the distinct days to lock, earliest first
func lockOrder(days ...time.Time) []time.Time {
	unique := make([]time.Time, 0, len(days))
	for _, d := range days {
		d = model.Day(d)
		dup := false
		for _, u := range unique {
			if u.Equal(d) {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, d)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Before(unique[j]) })
	return unique
}

// constraintConflictOr turns a database constraint rejection into a ConflictError
func constraintConflictOr(err error, shift *model.Shift) error {
	var ce *db.ConstraintError
	if !errors.As(err, &ce) {
		return err
	}

	conflict := &ConflictError{
		ResourceKind:       overlap.ResourceKind(ce.Resource),
		ResourceID:         ce.ResourceID,
		ConflictingShiftID: ce.ShiftID,
	}
	if conflict.ResourceID == "" && conflict.ResourceKind == overlap.ResourceBus {
		conflict.ResourceID = shift.BusID
	}
	return conflict
}
