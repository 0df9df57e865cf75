package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/pkg/core/crew"
	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

// ShiftQuery filters shifts. From and To are inclusive "2006-01-02" dates; the other fields are optional.
type ShiftQuery struct {
	From     string `validate:"required,datetime=2006-01-02"`
	To       string `validate:"required,datetime=2006-01-02"`
	BusID    string
	DriverID string
	Type     string `validate:"omitempty,oneof=morning afternoon night"`
	State    string `validate:"omitempty,oneof=scheduled in_progress completed cancelled"`
}

// ShiftView is a shift with its read-side crew status
type ShiftView struct {
	Shift    model.Shift
	Complete bool
}

// CalendarDay groups the shifts of one day
type CalendarDay struct {
	Date   time.Time
	Shifts []ShiftView
}

// CalendarMonth holds every day of a month, including days without shifts
type CalendarMonth struct {
	Year  int
	Month time.Month
	Days  []CalendarDay
}

// GetShiftsByFilter returns the shifts matching query, ordered by date, start time and bus
func GetShiftsByFilter(ctx context.Context, store db.ShiftReader, logger *zap.Logger, query ShiftQuery) ([]model.Shift, error) {
	if err := validate.Struct(query); err != nil {
		return nil, validationErrorFrom(err)
	}

	from, err := model.ParseDate(query.From)
	if err != nil {
		return nil, &ValidationError{Field: "From", Reason: err.Error()}
	}
	to, err := model.ParseDate(query.To)
	if err != nil {
		return nil, &ValidationError{Field: "To", Reason: err.Error()}
	}
	if to.Before(from) {
		return nil, &ValidationError{Field: "To", Reason: "range ends before it starts"}
	}

	filter := db.ShiftFilter{
		From:     from,
		To:       to,
		BusID:    query.BusID,
		DriverID: query.DriverID,
		Type:     model.ShiftType(query.Type),
		State:    model.ShiftState(query.State),
	}

	logger.Debug("Listing shifts",
		zap.String("from", query.From),
		zap.String("to", query.To),
		zap.String("bus_id", query.BusID),
		zap.String("driver_id", query.DriverID))

	shifts, err := store.ListShifts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}

	sortShifts(shifts)
	return shifts, nil
}

// GetCalendarMonth returns every day of the month with its shifts and crew completeness
func GetCalendarMonth(ctx context.Context, store db.ShiftReader, logger *zap.Logger, year int, month time.Month) (*CalendarMonth, error) {
	if month < time.January || month > time.December {
		return nil, &ValidationError{Field: "Month", Reason: fmt.Sprintf("%d is not a month", month)}
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	logger.Debug("Building calendar month", zap.Int("year", year), zap.Stringer("month", month))

	shifts, err := store.ListShifts(ctx, db.ShiftFilter{From: first, To: last})
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}
	sortShifts(shifts)

	buses := make(map[string]*model.Bus)
	byDay := make(map[time.Time][]ShiftView)
	for _, s := range shifts {
		bus, ok := buses[s.BusID]
		if !ok {
			bus, err = store.GetBus(ctx, s.BusID)
			if err != nil {
				return nil, notFoundOr(err, "bus", s.BusID)
			}
			buses[s.BusID] = bus
		}
		d := model.Day(s.Date)
		byDay[d] = append(byDay[d], ShiftView{Shift: s, Complete: crew.IsComplete(bus, &s)})
	}

	calendar := &CalendarMonth{Year: year, Month: month}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		calendar.Days = append(calendar.Days, CalendarDay{Date: d, Shifts: byDay[d]})
	}

	return calendar, nil
}

// IsComplete reports whether the shift has the minimum crew its bus requires
func IsComplete(ctx context.Context, store db.ShiftReader, shiftID string) (bool, error) {
	shift, err := store.GetShift(ctx, shiftID)
	if err != nil {
		return false, notFoundOr(err, "shift", shiftID)
	}
	bus, err := store.GetBus(ctx, shift.BusID)
	if err != nil {
		return false, notFoundOr(err, "bus", shift.BusID)
	}
	return crew.IsComplete(bus, shift), nil
}

// PrincipalDriver returns the shift's principal driver, or nil if none is assigned
func PrincipalDriver(shift *model.Shift) *model.DriverAssignment {
	return crew.PrincipalDriver(shift)
}

// SupportDrivers returns the shift's support drivers
func SupportDrivers(shift *model.Shift) []model.DriverAssignment {
	return crew.SupportDrivers(shift)
}

func sortShifts(shifts []model.Shift) {
	sort.SliceStable(shifts, func(i, j int) bool {
		a, b := shifts[i], shifts[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.BusID < b.BusID
	})
}
