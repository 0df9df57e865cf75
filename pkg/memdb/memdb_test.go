package memdb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func shiftAt(id, bus string, start, end model.TimeOfDay, drivers ...string) *model.Shift {
	s := &model.Shift{ID: id, BusID: bus, Date: day, Start: start, End: end, Type: model.ShiftMorning, State: model.ShiftScheduled}
	for i, d := range drivers {
		role := model.RoleSupport
		if i == 0 {
			role = model.RolePrincipal
		}
		s.Drivers = append(s.Drivers, model.DriverAssignment{ShiftID: id, DriverID: d, Role: role})
	}
	return s
}

func TestWithShiftTx_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	d := New()

	err := d.WithShiftTx(ctx, func(tx db.ShiftTx) error {
		require.NoError(t, tx.LockDate(ctx, day))
		return tx.InsertShift(ctx, shiftAt("s1", "B", 8*60, 12*60, "d1"))
	})
	require.NoError(t, err)

	got, err := d.GetShift(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "B", got.BusID)
	require.Len(t, got.Drivers, 1)
}

func TestWithShiftTx_DiscardsOnError(t *testing.T) {
	ctx := context.Background()
	d := New()
	boom := errors.New("boom")

	err := d.WithShiftTx(ctx, func(tx db.ShiftTx) error {
		require.NoError(t, tx.InsertShift(ctx, shiftAt("s1", "B", 8*60, 12*60)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = d.GetShift(ctx, "s1")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestWithShiftTx_ConstraintBackstop(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		next     *model.Shift
		resource   string
		resourceID string
	}{
		{name: "bus overlap", next: shiftAt("s2", "B", 11*60, 14*60), resource: "bus", resourceID: "B"},
		{name: "driver same day", next: shiftAt("s2", "C", 15*60, 18*60, "d1"), resource: "driver", resourceID: "d1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			d.PutShift(*shiftAt("s1", "B", 8*60, 12*60, "d1"))

			err := d.WithShiftTx(ctx, func(tx db.ShiftTx) error {
				return tx.InsertShift(ctx, tt.next)
			})

			var ce *db.ConstraintError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.resource, ce.Resource)
			assert.Equal(t, tt.resourceID, ce.ResourceID)
			assert.Equal(t, "s1", ce.ShiftID)
			assert.ErrorIs(t, err, db.ErrConstraintConflict)

			_, err = d.GetShift(ctx, "s2")
			assert.ErrorIs(t, err, db.ErrNotFound)
		})
	}
}

func TestWithShiftTx_BackToBackAndCancelledAllowed(t *testing.T) {
	ctx := context.Background()
	d := New()
	d.PutShift(*shiftAt("s1", "B", 8*60, 12*60, "d1"))
	cancelled := shiftAt("s0", "B", 12*60, 16*60, "d2")
	cancelled.State = model.ShiftCancelled
	d.PutShift(*cancelled)

	err := d.WithShiftTx(ctx, func(tx db.ShiftTx) error {
		return tx.InsertShift(ctx, shiftAt("s2", "B", 12*60, 16*60, "d2"))
	})
	require.NoError(t, err)
}

func TestWithShiftTx_DateLockSerialisesWriters(t *testing.T) {
	ctx := context.Background()
	d := New()

	locked := make(chan struct{})
	proceed := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = d.WithShiftTx(ctx, func(tx db.ShiftTx) error {
			if err := tx.LockDate(ctx, day); err != nil {
				return err
			}
			close(locked)
			<-proceed
			return nil
		})
	}()
	<-locked

	timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := d.WithShiftTx(timeoutCtx, func(tx db.ShiftTx) error {
		return tx.LockDate(timeoutCtx, day)
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(proceed)
	wg.Wait()

	err = d.WithShiftTx(ctx, func(tx db.ShiftTx) error {
		return tx.LockDate(ctx, day)
	})
	assert.NoError(t, err)
}

func TestTryLockJob(t *testing.T) {
	ctx := context.Background()
	d := New()

	release, ok, err := d.TryLockJob(ctx, "license_expiry")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = d.TryLockJob(ctx, "license_expiry")
	require.NoError(t, err)
	assert.False(t, ok)

	other, ok, err := d.TryLockJob(ctx, "bus_documents")
	require.NoError(t, err)
	assert.True(t, ok)
	other()

	release()
	release()

	again, ok, err := d.TryLockJob(ctx, "license_expiry")
	require.NoError(t, err)
	assert.True(t, ok)
	again()
}

func TestUpdateBusStatus_CompareAndSet(t *testing.T) {
	ctx := context.Background()
	d := New()
	d.PutBus(model.Bus{ID: "B", State: model.BusOperational})

	next := db.BusStatus{State: model.BusMaintenance, BlockedByOrder: true}
	ok, err := d.UpdateBusStatus(ctx, "B", db.BusStatus{State: model.BusOperational}, next)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.UpdateBusStatus(ctx, "B", db.BusStatus{State: model.BusOperational}, next)
	require.NoError(t, err)
	assert.False(t, ok)

	bus, err := d.GetBus(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, model.BusMaintenance, bus.State)
	assert.True(t, bus.BlockedByOrder)
}

func TestListShifts_Filter(t *testing.T) {
	ctx := context.Background()
	d := New()
	d.PutShift(*shiftAt("s1", "B", 8*60, 12*60, "d1"))
	d.PutShift(*shiftAt("s2", "C", 8*60, 12*60, "d2"))
	later := shiftAt("s3", "B", 8*60, 12*60)
	later.Date = day.AddDate(0, 0, 3)
	d.PutShift(*later)

	shifts, err := d.ListShifts(ctx, db.ShiftFilter{From: day, To: day, BusID: "B"})
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, "s1", shifts[0].ID)

	shifts, err = d.ListShifts(ctx, db.ShiftFilter{DriverID: "d2"})
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, "s2", shifts[0].ID)
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	content := `
buses:
  - id: B1
    plate: "1234-ABC"
    type: double_deck
    technicalReviewExpiry: "2025-06-30"
employees:
  - id: e1
    name: Ana
drivers:
  - id: d1
    employeeID: e1
    licenseExpiry: "2027-01-01"
mechanics:
  - id: m1
    employeeID: e1
    specialties: [engine, hvac]
leaveRequests:
  - id: l1
    employeeID: e1
    startDate: "2025-03-01"
    endDate: "2025-03-05"
    state: approved
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	d, err := LoadFixture(path)
	require.NoError(t, err)

	ctx := context.Background()
	bus, err := d.GetBus(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, model.BusOperational, bus.State)
	assert.True(t, bus.RequiresAssistant())
	require.NotNil(t, bus.TechnicalReviewExpiry)
	assert.Nil(t, bus.InsuranceExpiry)

	driver, err := d.GetDriverByEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, model.CrewActive, driver.State)

	mech, err := d.GetMechanicByEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, []model.Specialty{model.SpecialtyEngine, model.SpecialtyHVAC}, mech.Specialties)

	leaves, err := d.ListLeaveRequests(ctx, model.LeaveApproved)
	require.NoError(t, err)
	assert.Len(t, leaves, 1)
}

func TestLoadFixture_UnknownSpecialty(t *testing.T) {
	f := &Fixture{
		Mechanics: []FixtureMechanic{{ID: "m1", Specialties: []string{"plumbing"}}},
	}

	_, err := FromFixture(f)
	assert.ErrorContains(t, err, "unknown specialty")
}

func TestFromFixture_RejectsUnknownEnums(t *testing.T) {
	bus := func(typ, state string) []FixtureBus {
		return []FixtureBus{{ID: "B1", Type: typ, State: state}}
	}

	tests := []struct {
		name    string
		fixture Fixture
		wantErr string
	}{
		{name: "bus type typo", fixture: Fixture{Buses: bus("double-deck", "")}, wantErr: `bus B1: unknown type "double-deck"`},
		{name: "missing bus type", fixture: Fixture{Buses: bus("", "")}, wantErr: `bus B1: unknown type ""`},
		{name: "bus state", fixture: Fixture{Buses: bus("single_deck", "scrapped")}, wantErr: `bus B1: unknown state "scrapped"`},
		{name: "employee state", fixture: Fixture{Employees: []FixtureEmployee{{ID: "e1", State: "retired"}}}, wantErr: `employee e1: unknown employee state "retired"`},
		{name: "driver state", fixture: Fixture{Drivers: []FixtureDriver{{ID: "d1", State: "on_leave"}}}, wantErr: `driver d1: unknown crew state "on_leave"`},
		{name: "assistant state", fixture: Fixture{Assistants: []FixtureCrew{{ID: "a1", State: "Active"}}}, wantErr: `assistant a1: unknown crew state "Active"`},
		{name: "mechanic state", fixture: Fixture{Mechanics: []FixtureMechanic{{ID: "m1", State: "sick"}}}, wantErr: `mechanic m1: unknown crew state "sick"`},
		{
			name:    "leave state",
			fixture: Fixture{LeaveRequests: []FixtureLeave{{ID: "l1", StartDate: "2025-03-01", EndDate: "2025-03-02", State: "pending"}}},
			wantErr: `leave request l1: unknown state "pending"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromFixture(&tt.fixture)
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
