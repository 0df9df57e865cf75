package overlap

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
)

// ResourceKind identifies the type of bookable resource
type ResourceKind string

const (
	ResourceBus       ResourceKind = "bus"
	ResourceDriver    ResourceKind = "driver"
	ResourceAssistant ResourceKind = "assistant"
)

// Conflict describes the first booking that collides with a proposed one
type Conflict struct {
	ResourceKind       ResourceKind
	ResourceID         string
	ConflictingShiftID string
}

// ShiftSource provides the non-cancelled shifts of a single day
type ShiftSource interface {
	ActiveShiftsOn(ctx context.Context, date time.Time) ([]model.Shift, error)
}

// Request is a proposed booking of one resource
type Request struct {
	Kind           ResourceKind
	ResourceID     string
	Date           time.Time
	Start          model.TimeOfDay
	End            model.TimeOfDay
	ExcludeShiftID string
}

// HasConflict loads the shifts of the requested day and reports the first collision
func HasConflict(ctx context.Context, source ShiftSource, req Request) (*Conflict, bool, error) {
	shifts, err := source.ActiveShiftsOn(ctx, model.Day(req.Date))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load shifts for %s: %w", model.FormatDate(req.Date), err)
	}

	conflict := FindConflict(shifts, req)
	return conflict, conflict != nil, nil
}

// FindConflict scans shifts for a collision with req.
//
// Buses collide when their [start, end) windows intersect, so back-to-back
// shifts are allowed. Drivers and assistants collide with any other shift on
// the same date, regardless of bus or hours.
func FindConflict(shifts []model.Shift, req Request) *Conflict {
	day := model.Day(req.Date)

	for i := range shifts {
		shift := &shifts[i]
		if shift.IsCancelled() || shift.ID == req.ExcludeShiftID {
			continue
		}
		if !model.Day(shift.Date).Equal(day) {
			continue
		}

		var collides bool
		switch req.Kind {
		case ResourceBus:
			collides = shift.BusID == req.ResourceID && Intersects(req.Start, req.End, shift.Start, shift.End)
		case ResourceDriver:
			collides = shift.HasDriver(req.ResourceID)
		case ResourceAssistant:
			collides = shift.HasAssistant(req.ResourceID)
		}

		if collides {
			return &Conflict{
				ResourceKind:       req.Kind,
				ResourceID:         req.ResourceID,
				ConflictingShiftID: shift.ID,
			}
		}
	}

	return nil
}

// Intersects reports whether two half-open intervals overlap
func Intersects(start1, end1, start2, end2 model.TimeOfDay) bool {
	return start1 < end2 && start2 < end1
}
