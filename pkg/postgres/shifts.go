package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

// Advisory lock namespaces for the two-key pg_advisory_lock form
const (
	lockNamespaceDate = 1
	lockNamespaceJob  = 2
)

const shiftColumns = `s.id, s.bus_id, s.shift_date, s.start_minute, s.end_minute, s.type, s.state, s.notes`

// GetShift returns a shift with its crew
func (d *DB) GetShift(ctx context.Context, id string) (*model.Shift, error) {
	return getShift(ctx, d.pool, id)
}

// ListShifts returns the shifts matching filter ordered by date, start and bus
func (d *DB) ListShifts(ctx context.Context, filter db.ShiftFilter) ([]model.Shift, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if !filter.From.IsZero() {
		add("s.shift_date >= $%d", model.Day(filter.From))
	}
	if !filter.To.IsZero() {
		add("s.shift_date <= $%d", model.Day(filter.To))
	}
	if filter.BusID != "" {
		add("s.bus_id = $%d", filter.BusID)
	}
	if filter.DriverID != "" {
		add("EXISTS (SELECT 1 FROM shift_driver sd WHERE sd.shift_id = s.id AND sd.driver_id = $%d)", filter.DriverID)
	}
	if filter.Type != "" {
		add("s.type = $%d", string(filter.Type))
	}
	if filter.State != "" {
		add("s.state = $%d", string(filter.State))
	}

	cond := "TRUE"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	return listShifts(ctx, d.pool, cond, args...)
}

// GetBus returns a bus
func (d *DB) GetBus(ctx context.Context, id string) (*model.Bus, error) {
	return getBus(ctx, d.pool, id)
}

// WithShiftTx runs fn in a transaction that commits when fn returns nil.
// Advisory locks taken through the transaction are released when it ends.
func (d *DB) WithShiftTx(ctx context.Context, fn func(tx db.ShiftTx) error) error {
	err := pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		return fn(&shiftTx{tx: tx})
	})
	return mapError(err)
}

type shiftTx struct {
	tx pgx.Tx
}

func (t *shiftTx) LockDate(ctx context.Context, date time.Time) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, hashtext($2))`, lockNamespaceDate, model.FormatDate(date))
	if err != nil {
		return fmt.Errorf("failed to take date lock: %w", err)
	}
	return nil
}

func (t *shiftTx) GetBus(ctx context.Context, id string) (*model.Bus, error) {
	return getBus(ctx, t.tx, id)
}

func (t *shiftTx) GetDriver(ctx context.Context, id string) (*model.Driver, error) {
	return getDriver(ctx, t.tx, "id", id)
}

func (t *shiftTx) GetAssistant(ctx context.Context, id string) (*model.Assistant, error) {
	return getAssistant(ctx, t.tx, "id", id)
}

func (t *shiftTx) GetShift(ctx context.Context, id string) (*model.Shift, error) {
	return getShift(ctx, t.tx, id)
}

func (t *shiftTx) ActiveShiftsOn(ctx context.Context, date time.Time) ([]model.Shift, error) {
	return listShifts(ctx, t.tx, "s.shift_date = $1 AND s.state <> 'cancelled'", model.Day(date))
}

func (t *shiftTx) InsertShift(ctx context.Context, shift *model.Shift) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO shift (id, bus_id, shift_date, start_minute, end_minute, type, state, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, shift.ID, shift.BusID, model.Day(shift.Date), int(shift.Start), int(shift.End), string(shift.Type), string(shift.State), shift.Notes)
	if err != nil {
		return mapError(err)
	}
	return t.insertCrew(ctx, shift)
}

func (t *shiftTx) UpdateShift(ctx context.Context, shift *model.Shift) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE shift
		SET bus_id = $2, shift_date = $3, start_minute = $4, end_minute = $5, type = $6, state = $7, notes = $8
		WHERE id = $1
	`, shift.ID, shift.BusID, model.Day(shift.Date), int(shift.Start), int(shift.End), string(shift.Type), string(shift.State), shift.Notes)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}

	if _, err := t.tx.Exec(ctx, `DELETE FROM shift_driver WHERE shift_id = $1`, shift.ID); err != nil {
		return fmt.Errorf("failed to clear drivers: %w", err)
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM shift_assistant WHERE shift_id = $1`, shift.ID); err != nil {
		return fmt.Errorf("failed to clear assistants: %w", err)
	}
	return t.insertCrew(ctx, shift)
}

func (t *shiftTx) SetShiftState(ctx context.Context, id string, state model.ShiftState) error {
	tag, err := t.tx.Exec(ctx, `UPDATE shift SET state = $2 WHERE id = $1`, id, string(state))
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}

	active := state != model.ShiftCancelled
	if _, err := t.tx.Exec(ctx, `UPDATE shift_driver SET active = $2 WHERE shift_id = $1`, id, active); err != nil {
		return mapError(err)
	}
	if _, err := t.tx.Exec(ctx, `UPDATE shift_assistant SET active = $2 WHERE shift_id = $1`, id, active); err != nil {
		return mapError(err)
	}
	return nil
}

func (t *shiftTx) AddDriverAssignment(ctx context.Context, shift *model.Shift, a model.DriverAssignment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO shift_driver (shift_id, driver_id, role, shift_date, active)
		VALUES ($1, $2, $3, $4, $5)
	`, shift.ID, a.DriverID, string(a.Role), model.Day(shift.Date), !shift.IsCancelled())
	return mapError(err)
}

func (t *shiftTx) AddAssistantAssignment(ctx context.Context, shift *model.Shift, a model.AssistantAssignment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO shift_assistant (shift_id, assistant_id, deck_position, shift_date, active)
		VALUES ($1, $2, $3, $4, $5)
	`, shift.ID, a.AssistantID, string(a.Position), model.Day(shift.Date), !shift.IsCancelled())
	return mapError(err)
}

func (t *shiftTx) insertCrew(ctx context.Context, shift *model.Shift) error {
	for _, a := range shift.Drivers {
		if err := t.AddDriverAssignment(ctx, shift, a); err != nil {
			return err
		}
	}
	for _, a := range shift.Assistants {
		if err := t.AddAssistantAssignment(ctx, shift, a); err != nil {
			return err
		}
	}
	return nil
}

func getShift(ctx context.Context, q querier, id string) (*model.Shift, error) {
	shifts, err := listShifts(ctx, q, "s.id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(shifts) == 0 {
		return nil, db.ErrNotFound
	}
	return &shifts[0], nil
}

// listShifts loads the shifts matching cond and then their crew in two further queries
func listShifts(ctx context.Context, q querier, cond string, args ...any) ([]model.Shift, error) {
	rows, err := q.Query(ctx, `SELECT `+shiftColumns+` FROM shift s WHERE `+cond+` ORDER BY s.shift_date, s.start_minute, s.bus_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	shifts, err := pgx.CollectRows(rows, scanShift)
	if err != nil {
		return nil, fmt.Errorf("failed to scan shifts: %w", err)
	}
	if len(shifts) == 0 {
		return []model.Shift{}, nil
	}

	ids := make([]string, len(shifts))
	index := make(map[string]int, len(shifts))
	for i, s := range shifts {
		ids[i] = s.ID
		index[s.ID] = i
	}

	rows, err = q.Query(ctx, `
		SELECT shift_id, driver_id, role FROM shift_driver
		WHERE shift_id = ANY($1)
		ORDER BY shift_id, role, driver_id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift drivers: %w", err)
	}
	drivers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.DriverAssignment, error) {
		var a model.DriverAssignment
		var role string
		err := row.Scan(&a.ShiftID, &a.DriverID, &role)
		a.Role = model.DriverRole(role)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan shift drivers: %w", err)
	}
	for _, a := range drivers {
		s := &shifts[index[a.ShiftID]]
		s.Drivers = append(s.Drivers, a)
	}

	rows, err = q.Query(ctx, `
		SELECT shift_id, assistant_id, deck_position FROM shift_assistant
		WHERE shift_id = ANY($1)
		ORDER BY shift_id, assistant_id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift assistants: %w", err)
	}
	assistants, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.AssistantAssignment, error) {
		var a model.AssistantAssignment
		var position string
		err := row.Scan(&a.ShiftID, &a.AssistantID, &position)
		a.Position = model.AssistantPosition(position)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan shift assistants: %w", err)
	}
	for _, a := range assistants {
		s := &shifts[index[a.ShiftID]]
		s.Assistants = append(s.Assistants, a)
	}

	return shifts, nil
}

func scanShift(row pgx.CollectableRow) (model.Shift, error) {
	var (
		s          model.Shift
		start, end int
		typ, state string
	)
	if err := row.Scan(&s.ID, &s.BusID, &s.Date, &start, &end, &typ, &state, &s.Notes); err != nil {
		return s, err
	}
	s.Date = model.Day(s.Date)
	s.Start = model.TimeOfDay(start)
	s.End = model.TimeOfDay(end)
	s.Type = model.ShiftType(typ)
	s.State = model.ShiftState(state)
	return s, nil
}
