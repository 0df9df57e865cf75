package overlap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
)

func tod(s string) model.TimeOfDay {
	t, err := model.ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func day(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// mockShiftSource implements ShiftSource for testing
type mockShiftSource struct {
	shifts []model.Shift
	err    error
	asked  []time.Time
}

func (m *mockShiftSource) ActiveShiftsOn(ctx context.Context, date time.Time) ([]model.Shift, error) {
	m.asked = append(m.asked, date)
	if m.err != nil {
		return nil, m.err
	}
	return m.shifts, nil
}

func TestIntersects(t *testing.T) {
	tests := []struct {
		name     string
		a1, a2   string
		b1, b2   string
		expected bool
	}{
		{"disjoint", "08:00", "10:00", "11:00", "12:00", false},
		{"back to back", "08:00", "12:00", "12:00", "14:00", false},
		{"back to back reversed", "12:00", "14:00", "08:00", "12:00", false},
		{"partial overlap", "08:00", "12:00", "11:00", "14:00", true},
		{"contained", "08:00", "18:00", "10:00", "11:00", true},
		{"identical", "08:00", "12:00", "08:00", "12:00", true},
		{"ends at midnight", "20:00", "24:00", "23:00", "24:00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Intersects(tod(tt.a1), tod(tt.a2), tod(tt.b1), tod(tt.b2)))
		})
	}
}

func TestFindConflict_Bus(t *testing.T) {
	shifts := []model.Shift{
		{ID: "shift-1", BusID: "bus-b", Date: day("2025-01-10"), Start: tod("08:00"), End: tod("12:00"), State: model.ShiftScheduled},
		{ID: "shift-2", BusID: "bus-c", Date: day("2025-01-10"), Start: tod("11:00"), End: tod("14:00"), State: model.ShiftScheduled},
	}

	conflict := FindConflict(shifts, Request{
		Kind:       ResourceBus,
		ResourceID: "bus-b",
		Date:       day("2025-01-10"),
		Start:      tod("11:00"),
		End:        tod("14:00"),
	})

	require.NotNil(t, conflict)
	assert.Equal(t, Conflict{ResourceKind: ResourceBus, ResourceID: "bus-b", ConflictingShiftID: "shift-1"}, *conflict)
}

func TestFindConflict_BusBackToBackAllowed(t *testing.T) {
	shifts := []model.Shift{
		{ID: "shift-1", BusID: "bus-b", Date: day("2025-01-10"), Start: tod("08:00"), End: tod("12:00"), State: model.ShiftScheduled},
	}

	conflict := FindConflict(shifts, Request{
		Kind:       ResourceBus,
		ResourceID: "bus-b",
		Date:       day("2025-01-10"),
		Start:      tod("12:00"),
		End:        tod("16:00"),
	})

	assert.Nil(t, conflict)
}

func TestFindConflict_IgnoresCancelledAndExcluded(t *testing.T) {
	shifts := []model.Shift{
		{ID: "cancelled", BusID: "bus-b", Date: day("2025-01-10"), Start: tod("08:00"), End: tod("12:00"), State: model.ShiftCancelled},
		{ID: "self", BusID: "bus-b", Date: day("2025-01-10"), Start: tod("09:00"), End: tod("13:00"), State: model.ShiftScheduled},
	}

	conflict := FindConflict(shifts, Request{
		Kind:           ResourceBus,
		ResourceID:     "bus-b",
		Date:           day("2025-01-10"),
		Start:          tod("10:00"),
		End:            tod("11:00"),
		ExcludeShiftID: "self",
	})

	assert.Nil(t, conflict)
}

func TestFindConflict_DriverAcrossBuses(t *testing.T) {
	shifts := []model.Shift{
		{
			ID:      "shift-1",
			BusID:   "bus-a",
			Date:    day("2025-01-10"),
			Start:   tod("06:00"),
			End:     tod("09:00"),
			State:   model.ShiftScheduled,
			Drivers: []model.DriverAssignment{{ShiftID: "shift-1", DriverID: "driver-d", Role: model.RolePrincipal}},
		},
	}

	// Different bus and non-overlapping hours still collide for a person
	conflict := FindConflict(shifts, Request{
		Kind:       ResourceDriver,
		ResourceID: "driver-d",
		Date:       day("2025-01-10"),
		Start:      tod("18:00"),
		End:        tod("22:00"),
	})

	require.NotNil(t, conflict)
	assert.Equal(t, ResourceDriver, conflict.ResourceKind)
	assert.Equal(t, "shift-1", conflict.ConflictingShiftID)
}

func TestFindConflict_AssistantOtherDayIsFree(t *testing.T) {
	shifts := []model.Shift{
		{
			ID:         "shift-1",
			BusID:      "bus-a",
			Date:       day("2025-01-09"),
			Start:      tod("06:00"),
			End:        tod("09:00"),
			State:      model.ShiftScheduled,
			Assistants: []model.AssistantAssignment{{ShiftID: "shift-1", AssistantID: "asst-1", Position: model.PositionGeneral}},
		},
	}

	conflict := FindConflict(shifts, Request{
		Kind:       ResourceAssistant,
		ResourceID: "asst-1",
		Date:       day("2025-01-10"),
		Start:      tod("06:00"),
		End:        tod("09:00"),
	})

	assert.Nil(t, conflict)
}

func TestHasConflict_LoadsRequestedDay(t *testing.T) {
	source := &mockShiftSource{
		shifts: []model.Shift{
			{ID: "shift-1", BusID: "bus-b", Date: day("2025-01-10"), Start: tod("08:00"), End: tod("12:00"), State: model.ShiftScheduled},
		},
	}

	conflict, found, err := HasConflict(context.Background(), source, Request{
		Kind:       ResourceBus,
		ResourceID: "bus-b",
		Date:       time.Date(2025, 1, 10, 15, 0, 0, 0, time.UTC),
		Start:      tod("11:00"),
		End:        tod("13:00"),
	})

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "shift-1", conflict.ConflictingShiftID)
	require.Len(t, source.asked, 1)
	assert.Equal(t, day("2025-01-10"), source.asked[0])
}

func TestHasConflict_SourceError(t *testing.T) {
	source := &mockShiftSource{err: errors.New("connection refused")}

	_, found, err := HasConflict(context.Background(), source, Request{Kind: ResourceBus, ResourceID: "bus-b", Date: day("2025-01-10")})

	assert.Error(t, err)
	assert.False(t, found)
	assert.Contains(t, err.Error(), "connection refused")
}
