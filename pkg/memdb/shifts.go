package memdb

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/core/overlap"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

// GetShift returns a copy of the shift with its crew
func (d *DB) GetShift(ctx context.Context, id string) (*model.Shift, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.shifts[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return cloneShift(s), nil
}

// ListShifts returns the shifts matching filter in no particular order
func (d *DB) ListShifts(ctx context.Context, filter db.ShiftFilter) ([]model.Shift, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := []model.Shift{}
	for _, s := range d.shifts {
		if !filter.From.IsZero() && s.Date.Before(model.Day(filter.From)) {
			continue
		}
		if !filter.To.IsZero() && s.Date.After(model.Day(filter.To)) {
			continue
		}
		if filter.BusID != "" && s.BusID != filter.BusID {
			continue
		}
		if filter.DriverID != "" && !s.HasDriver(filter.DriverID) {
			continue
		}
		if filter.Type != "" && s.Type != filter.Type {
			continue
		}
		if filter.State != "" && s.State != filter.State {
			continue
		}
		out = append(out, *cloneShift(s))
	}
	return out, nil
}

// GetBus returns a copy of the bus
func (d *DB) GetBus(ctx context.Context, id string) (*model.Bus, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	b, ok := d.buses[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return cloneBus(b), nil
}

// WithShiftTx runs fn with a transaction whose writes are applied atomically when fn returns nil.
// Date locks taken through the transaction are held until it ends.
func (d *DB) WithShiftTx(ctx context.Context, fn func(tx db.ShiftTx) error) error {
	tx := &shiftTx{db: d, held: map[time.Time]chan struct{}{}}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

type shiftTx struct {
	db   *DB
	held map[time.Time]chan struct{}
	// ops are applied in order to a staged copy of the shift map on commit
	ops     []func(staged map[string]*model.Shift) error
	touched []string
}

func (t *shiftTx) LockDate(ctx context.Context, date time.Time) error {
	day := model.Day(date)
	if _, ok := t.held[day]; ok {
		return nil
	}

	lock := t.db.dateLock(day)
	select {
	case lock <- struct{}{}:
		t.held[day] = lock
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *shiftTx) release() {
	for day, lock := range t.held {
		<-lock
		delete(t.held, day)
	}
}

func (t *shiftTx) GetBus(ctx context.Context, id string) (*model.Bus, error) {
	return t.db.GetBus(ctx, id)
}

func (t *shiftTx) GetDriver(ctx context.Context, id string) (*model.Driver, error) {
	return t.db.GetDriver(ctx, id)
}

func (t *shiftTx) GetAssistant(ctx context.Context, id string) (*model.Assistant, error) {
	return t.db.GetAssistant(ctx, id)
}

func (t *shiftTx) GetShift(ctx context.Context, id string) (*model.Shift, error) {
	return t.db.GetShift(ctx, id)
}

func (t *shiftTx) ActiveShiftsOn(ctx context.Context, date time.Time) ([]model.Shift, error) {
	day := model.Day(date)

	t.db.mu.RLock()
	defer t.db.mu.RUnlock()

	out := []model.Shift{}
	for _, s := range t.db.shifts {
		if s.Date.Equal(day) && !s.IsCancelled() {
			out = append(out, *cloneShift(s))
		}
	}
	return out, nil
}

func (t *shiftTx) InsertShift(ctx context.Context, shift *model.Shift) error {
	s := cloneShift(shift)
	s.Date = model.Day(s.Date)
	t.stage(s.ID, func(staged map[string]*model.Shift) error {
		if _, ok := staged[s.ID]; ok {
			return fmt.Errorf("shift %s already exists", s.ID)
		}
		staged[s.ID] = s
		return nil
	})
	return nil
}

func (t *shiftTx) UpdateShift(ctx context.Context, shift *model.Shift) error {
	s := cloneShift(shift)
	s.Date = model.Day(s.Date)
	t.stage(s.ID, func(staged map[string]*model.Shift) error {
		if _, ok := staged[s.ID]; !ok {
			return db.ErrNotFound
		}
		staged[s.ID] = s
		return nil
	})
	return nil
}

func (t *shiftTx) SetShiftState(ctx context.Context, id string, state model.ShiftState) error {
	t.stage(id, func(staged map[string]*model.Shift) error {
		cur, ok := staged[id]
		if !ok {
			return db.ErrNotFound
		}
		next := cloneShift(cur)
		next.State = state
		staged[id] = next
		return nil
	})
	return nil
}

func (t *shiftTx) AddDriverAssignment(ctx context.Context, shift *model.Shift, assignment model.DriverAssignment) error {
	t.stage(shift.ID, func(staged map[string]*model.Shift) error {
		cur, ok := staged[shift.ID]
		if !ok {
			return db.ErrNotFound
		}
		next := cloneShift(cur)
		next.Drivers = append(next.Drivers, assignment)
		staged[shift.ID] = next
		return nil
	})
	return nil
}

func (t *shiftTx) AddAssistantAssignment(ctx context.Context, shift *model.Shift, assignment model.AssistantAssignment) error {
	t.stage(shift.ID, func(staged map[string]*model.Shift) error {
		cur, ok := staged[shift.ID]
		if !ok {
			return db.ErrNotFound
		}
		next := cloneShift(cur)
		next.Assistants = append(next.Assistants, assignment)
		staged[shift.ID] = next
		return nil
	})
	return nil
}

func (t *shiftTx) stage(id string, op func(staged map[string]*model.Shift) error) {
	t.ops = append(t.ops, op)
	t.touched = append(t.touched, id)
}

func (t *shiftTx) commit() error {
	if len(t.ops) == 0 {
		return nil
	}

	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	staged := maps.Clone(t.db.shifts)
	for _, op := range t.ops {
		if err := op(staged); err != nil {
			return err
		}
	}
	for _, id := range t.touched {
		if err := checkConstraints(staged, staged[id]); err != nil {
			return err
		}
	}

	t.db.shifts = staged
	return nil
}

// checkConstraints mirrors the postgres exclusion constraint on bus time ranges
// and the unique (person, day) indexes on active crew rows
func checkConstraints(shifts map[string]*model.Shift, s *model.Shift) error {
	if s == nil || s.IsCancelled() {
		return nil
	}

	seen := map[string]bool{}
	for _, d := range s.Drivers {
		if seen["driver:"+d.DriverID] {
			return &db.ConstraintError{Resource: "driver", ResourceID: d.DriverID, Detail: "driver listed twice on shift " + s.ID}
		}
		seen["driver:"+d.DriverID] = true
	}
	for _, a := range s.Assistants {
		if seen["assistant:"+a.AssistantID] {
			return &db.ConstraintError{Resource: "assistant", ResourceID: a.AssistantID, Detail: "assistant listed twice on shift " + s.ID}
		}
		seen["assistant:"+a.AssistantID] = true
	}

	for _, other := range shifts {
		if other.ID == s.ID || other.IsCancelled() || !other.Date.Equal(s.Date) {
			continue
		}
		if other.BusID == s.BusID && overlap.Intersects(s.Start, s.End, other.Start, other.End) {
			return &db.ConstraintError{Resource: "bus", ResourceID: s.BusID, ShiftID: other.ID, Detail: "bus time range overlaps shift " + other.ID}
		}
		for _, d := range s.Drivers {
			if other.HasDriver(d.DriverID) {
				return &db.ConstraintError{Resource: "driver", ResourceID: d.DriverID, ShiftID: other.ID, Detail: "driver already on shift " + other.ID}
			}
		}
		for _, a := range s.Assistants {
			if other.HasAssistant(a.AssistantID) {
				return &db.ConstraintError{Resource: "assistant", ResourceID: a.AssistantID, ShiftID: other.ID, Detail: "assistant already on shift " + other.ID}
			}
		}
	}
	return nil
}
