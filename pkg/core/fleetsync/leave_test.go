package fleetsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
)

func TestMirrorLeaveState_LeaveStartsAndEnds(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	store := newMockFleetStore()
	store.addEmployee(model.Employee{ID: "e1", Name: "Ana", State: model.EmployeeActive})
	store.addDriver(model.Driver{ID: "d1", EmployeeID: "e1", State: model.CrewActive, LicenseExpiry: datePtr("2030-01-01")})
	store.addLeave(model.LeaveRequest{ID: "l1", EmployeeID: "e1", StartDate: date("2025-03-01"), EndDate: date("2025-03-05"), State: model.LeaveApproved})

	summary, err := MirrorLeaveState(ctx, store, logger, date("2025-03-03"))
	require.NoError(t, err)
	assert.Equal(t, model.EmployeeOnLeave, store.employees["e1"].State)
	assert.Equal(t, model.CrewMedicalLeave, store.drivers["d1"].State)
	assert.Equal(t, 2, summary.Updated)
	require.Len(t, summary.Transitions, 2)
	assert.Equal(t, "employee", summary.Transitions[0].EntityKind)
	assert.Equal(t, "driver", summary.Transitions[1].EntityKind)

	// Same day again is a no-op
	again, err := MirrorLeaveState(ctx, store, logger, date("2025-03-03"))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Updated)

	// Last day of leave is still covered
	lastDay, err := MirrorLeaveState(ctx, store, logger, date("2025-03-05"))
	require.NoError(t, err)
	assert.Equal(t, 0, lastDay.Updated)
	assert.Equal(t, model.EmployeeOnLeave, store.employees["e1"].State)

	after, err := MirrorLeaveState(ctx, store, logger, date("2025-03-06"))
	require.NoError(t, err)
	assert.Equal(t, model.EmployeeActive, store.employees["e1"].State)
	assert.Equal(t, model.CrewActive, store.drivers["d1"].State)
	assert.Equal(t, model.LeaveCompleted, store.leaves["l1"].State)
	assert.Equal(t, 3, after.Updated)
}

func TestMirrorLeaveState_IgnoresUnapprovedLeave(t *testing.T) {
	for _, state := range []model.LeaveState{model.LeaveRequested, model.LeaveRejected, model.LeaveCompleted} {
		t.Run(string(state), func(t *testing.T) {
			store := newMockFleetStore()
			store.addEmployee(model.Employee{ID: "e1", State: model.EmployeeActive})
			store.addLeave(model.LeaveRequest{ID: "l1", EmployeeID: "e1", StartDate: date("2025-03-01"), EndDate: date("2025-03-05"), State: state})

			summary, err := MirrorLeaveState(context.Background(), store, zap.NewNop(), date("2025-03-03"))
			require.NoError(t, err)
			assert.Equal(t, 0, summary.Updated)
			assert.Equal(t, model.EmployeeActive, store.employees["e1"].State)
		})
	}
}

func TestMirrorLeaveState_Projection(t *testing.T) {
	tests := []struct {
		name          string
		employeeState model.EmployeeState
		onLeave       bool
		wantEmployee  model.EmployeeState
		wantCrew      model.CrewState
	}{
		{name: "active", employeeState: model.EmployeeActive, wantEmployee: model.EmployeeActive, wantCrew: model.CrewActive},
		{name: "active on leave", employeeState: model.EmployeeActive, onLeave: true, wantEmployee: model.EmployeeOnLeave, wantCrew: model.CrewMedicalLeave},
		{name: "terminated", employeeState: model.EmployeeTerminated, wantEmployee: model.EmployeeTerminated, wantCrew: model.CrewInactive},
		{name: "terminated with leave", employeeState: model.EmployeeTerminated, onLeave: true, wantEmployee: model.EmployeeTerminated, wantCrew: model.CrewInactive},
		{name: "suspended", employeeState: model.EmployeeSuspended, wantEmployee: model.EmployeeSuspended, wantCrew: model.CrewSuspended},
		{name: "suspended with leave", employeeState: model.EmployeeSuspended, onLeave: true, wantEmployee: model.EmployeeSuspended, wantCrew: model.CrewSuspended},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockFleetStore()
			store.addEmployee(model.Employee{ID: "e1", State: tt.employeeState})
			store.assistants["a1"] = &model.Assistant{ID: "a1", EmployeeID: "e1", State: model.CrewActive}
			store.mechanics["m1"] = &model.Mechanic{ID: "m1", EmployeeID: "e1", State: model.CrewActive}
			if tt.onLeave {
				store.addLeave(model.LeaveRequest{ID: "l1", EmployeeID: "e1", StartDate: date("2025-03-01"), EndDate: date("2025-03-31"), State: model.LeaveApproved})
			}

			_, err := MirrorLeaveState(context.Background(), store, zap.NewNop(), date("2025-03-10"))
			require.NoError(t, err)

			assert.Equal(t, tt.wantEmployee, store.employees["e1"].State)
			assert.Equal(t, tt.wantCrew, store.assistants["a1"].State)
			assert.Equal(t, tt.wantCrew, store.mechanics["m1"].State)
		})
	}
}

func TestMirrorLeaveState_ExpiredLicenseStaysInactive(t *testing.T) {
	ctx := context.Background()
	today := date("2025-03-10")

	store := newMockFleetStore()
	store.addEmployee(model.Employee{ID: "e1", State: model.EmployeeActive})
	store.addDriver(model.Driver{ID: "d1", EmployeeID: "e1", State: model.CrewActive, LicenseExpiry: datePtr("2025-03-01")})

	// Either order converges on inactive
	_, err := SyncLicenseExpiry(ctx, store, zap.NewNop(), today, LicenseOptions{})
	require.NoError(t, err)
	summary, err := MirrorLeaveState(ctx, store, zap.NewNop(), today)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, model.CrewInactive, store.drivers["d1"].State)

	store.drivers["d1"].State = model.CrewActive
	_, err = MirrorLeaveState(ctx, store, zap.NewNop(), today)
	require.NoError(t, err)
	summary, err = SyncLicenseExpiry(ctx, store, zap.NewNop(), today, LicenseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, model.CrewInactive, store.drivers["d1"].State)
}

func TestMirrorLeaveState_FailedEmployeeExcludedFromCounts(t *testing.T) {
	store := newMockFleetStore()
	store.addEmployee(model.Employee{ID: "e1", State: model.EmployeeActive})
	store.addEmployee(model.Employee{ID: "e2", State: model.EmployeeActive})
	store.addDriver(model.Driver{ID: "d1", EmployeeID: "e1", State: model.CrewActive})
	store.addLeave(model.LeaveRequest{ID: "l1", EmployeeID: "e1", StartDate: date("2025-03-01"), EndDate: date("2025-03-31"), State: model.LeaveApproved})
	store.addLeave(model.LeaveRequest{ID: "l2", EmployeeID: "e2", StartDate: date("2025-03-01"), EndDate: date("2025-03-31"), State: model.LeaveApproved})
	store.updateDriverErr["d1"] = errBoom

	summary, err := MirrorLeaveState(context.Background(), store, zap.NewNop(), date("2025-03-10"))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Updated)
	require.Len(t, summary.Transitions, 1)
	assert.Equal(t, "e2", summary.Transitions[0].EntityID)
	require.Len(t, summary.Warnings, 1)
	assert.Equal(t, "e1", summary.Warnings[0].EntityID)
	assert.Equal(t, model.EmployeeActive, store.employees["e1"].State)
	assert.Equal(t, model.CrewActive, store.drivers["d1"].State)

	// The next run reports the whole transition for e1
	delete(store.updateDriverErr, "d1")
	retry, err := MirrorLeaveState(context.Background(), store, zap.NewNop(), date("2025-03-10"))
	require.NoError(t, err)
	assert.Equal(t, 0, retry.Skipped)
	assert.Equal(t, 2, retry.Updated)
	require.Len(t, retry.Transitions, 2)
	assert.Equal(t, Transition{EntityKind: "employee", EntityID: "e1", From: "active", To: "on_leave", Reason: "approved leave covers 2025-03-10"}, retry.Transitions[0])
	assert.Equal(t, "driver", retry.Transitions[1].EntityKind)
	assert.Equal(t, "d1", retry.Transitions[1].EntityID)
	assert.Equal(t, model.EmployeeOnLeave, store.employees["e1"].State)
	assert.Equal(t, model.CrewMedicalLeave, store.drivers["d1"].State)
}

func TestEmployeeStateFor(t *testing.T) {
	assert.Equal(t, model.EmployeeOnLeave, EmployeeStateFor(model.EmployeeActive, true))
	assert.Equal(t, model.EmployeeActive, EmployeeStateFor(model.EmployeeOnLeave, false))
	assert.Equal(t, model.EmployeeOnLeave, EmployeeStateFor(model.EmployeeOnLeave, true))
	assert.Equal(t, model.EmployeeTerminated, EmployeeStateFor(model.EmployeeTerminated, true))
	assert.Equal(t, model.EmployeeSuspended, EmployeeStateFor(model.EmployeeSuspended, false))
}
