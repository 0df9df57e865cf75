package fleetsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

// MirrorLeaveState derives employee state from approved leave and projects it
// one-way onto the employee's driver, assistant and mechanic records.
//
// Only active and on_leave employees move with leave; terminated and suspended
// employees keep their state but are still mirrored. A driver whose license has
// lapsed is projected to inactive whatever the employee state, which keeps this
// job and the license sync convergent in either order. Approved leave that
// ended before today is completed.
func MirrorLeaveState(ctx context.Context, store db.LeaveStore, logger *zap.Logger, today time.Time) (*Summary, error) {
	today = model.Day(today)
	summary := newSummary(JobLeaveMirror, today)

	leaves, err := store.ListLeaveRequests(ctx, model.LeaveApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved leave requests: %w", err)
	}
	employees, err := store.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	onLeave := make(map[string]bool)
	for _, l := range leaves {
		if l.CoversDay(today) {
			onLeave[l.EmployeeID] = true
		}
	}

	logger.Debug("Mirroring employee state",
		zap.Int("employees", len(employees)),
		zap.Int("approved_leaves", len(leaves)),
		zap.Int("on_leave_today", len(onLeave)))

	for _, employee := range employees {
		transitions, err := mirrorEmployee(ctx, store, employee, onLeave[employee.ID], today)
		if err != nil {
			summary.skip(logger, "employee", employee.ID, err)
			continue
		}
		summary.record(transitions...)
	}

	for _, l := range leaves {
		if !model.Day(l.EndDate).Before(today) {
			continue
		}
		ok, err := store.CompleteLeaveRequest(ctx, l.ID)
		if err != nil {
			summary.skip(logger, "leave_request", l.ID, err)
			continue
		}
		if !ok {
			continue
		}
		summary.record(Transition{
			EntityKind: "leave_request",
			EntityID:   l.ID,
			From:       string(model.LeaveApproved),
			To:         string(model.LeaveCompleted),
			Reason:     "leave ended on " + model.FormatDate(l.EndDate),
		})
	}

	logger.Info("Leave mirror sync finished",
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped))

	return summary, nil
}

// EmployeeStateFor derives the employee state for a day from whether approved leave covers it
func EmployeeStateFor(current model.EmployeeState, coveredByLeave bool) model.EmployeeState {
	switch {
	case coveredByLeave && current == model.EmployeeActive:
		return model.EmployeeOnLeave
	case !coveredByLeave && current == model.EmployeeOnLeave:
		return model.EmployeeActive
	}
	return current
}

// DriverStateFor projects an employee state onto a driver, honouring license expiry
func DriverStateFor(employee model.EmployeeState, driver *model.Driver, today time.Time) model.CrewState {
	if driver.LicenseExpired(today) {
		return model.CrewInactive
	}
	return model.CrewStateFor(employee)
}

// mirrorEmployee writes the role records first. The employee record is written last,
// so an employee whose role write failed is retried whole on the next run.
func mirrorEmployee(ctx context.Context, store db.LeaveStore, employee model.Employee, coveredByLeave bool, today time.Time) ([]Transition, error) {
	var transitions []Transition

	state := EmployeeStateFor(employee.State, coveredByLeave)
	reason := "mirrors employee " + employee.ID + " state " + string(state)

	driver, err := store.GetDriverByEmployee(ctx, employee.ID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to get driver record: %w", err)
	}
	if driver != nil {
		target := DriverStateFor(state, driver, today)
		if target != driver.State {
			ok, err := store.UpdateDriverState(ctx, driver.ID, driver.State, target)
			if err != nil {
				return nil, fmt.Errorf("failed to update driver %s: %w", driver.ID, err)
			}
			if !ok {
				return nil, errChanged
			}
			transitions = append(transitions, Transition{EntityKind: "driver", EntityID: driver.ID, From: string(driver.State), To: string(target), Reason: reason})
		}
	}

	target := model.CrewStateFor(state)

	assistant, err := store.GetAssistantByEmployee(ctx, employee.ID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to get assistant record: %w", err)
	}
	if assistant != nil && assistant.State != target {
		ok, err := store.UpdateAssistantState(ctx, assistant.ID, assistant.State, target)
		if err != nil {
			return nil, fmt.Errorf("failed to update assistant %s: %w", assistant.ID, err)
		}
		if !ok {
			return nil, errChanged
		}
		transitions = append(transitions, Transition{EntityKind: "assistant", EntityID: assistant.ID, From: string(assistant.State), To: string(target), Reason: reason})
	}

	mechanic, err := store.GetMechanicByEmployee(ctx, employee.ID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to get mechanic record: %w", err)
	}
	if mechanic != nil && mechanic.State != target {
		ok, err := store.UpdateMechanicState(ctx, mechanic.ID, mechanic.State, target)
		if err != nil {
			return nil, fmt.Errorf("failed to update mechanic %s: %w", mechanic.ID, err)
		}
		if !ok {
			return nil, errChanged
		}
		transitions = append(transitions, Transition{EntityKind: "mechanic", EntityID: mechanic.ID, From: string(mechanic.State), To: string(target), Reason: reason})
	}

	if state == employee.State {
		return transitions, nil
	}

	ok, err := store.UpdateEmployeeState(ctx, employee.ID, employee.State, state)
	if err != nil {
		return nil, fmt.Errorf("failed to update employee state: %w", err)
	}
	if !ok {
		return nil, errChanged
	}
	employeeReason := "approved leave covers " + model.FormatDate(today)
	if !coveredByLeave {
		employeeReason = "no approved leave covers " + model.FormatDate(today)
	}
	employeeTransition := Transition{
		EntityKind: "employee",
		EntityID:   employee.ID,
		From:       string(employee.State),
		To:         string(state),
		Reason:     employeeReason,
	}
	return append([]Transition{employeeTransition}, transitions...), nil
}
