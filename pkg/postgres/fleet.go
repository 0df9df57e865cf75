package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

func dateValue(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}
	t := model.Day(d.Time)
	return &t
}

func dateParam(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: model.Day(*t), Valid: true}
}

// Drivers

func scanDriver(row pgx.CollectableRow) (model.Driver, error) {
	var (
		d       model.Driver
		state   string
		license pgtype.Date
	)
	if err := row.Scan(&d.ID, &d.EmployeeID, &state, &license); err != nil {
		return d, err
	}
	d.State = model.CrewState(state)
	d.LicenseExpiry = dateValue(license)
	return d, nil
}

// getDriver looks a driver up by id or employee_id
func getDriver(ctx context.Context, q querier, column, value string) (*model.Driver, error) {
	rows, err := q.Query(ctx, `SELECT id, employee_id, state, license_expiry FROM driver WHERE `+column+` = $1 ORDER BY id LIMIT 1`, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query driver: %w", err)
	}
	d, err := pgx.CollectExactlyOneRow(rows, scanDriver)
	if err != nil {
		return nil, mapError(err)
	}
	return &d, nil
}

// GetDriver returns a driver by id
func (d *DB) GetDriver(ctx context.Context, id string) (*model.Driver, error) {
	return getDriver(ctx, d.pool, "id", id)
}

// GetDriverByEmployee returns the driver record of an employee
func (d *DB) GetDriverByEmployee(ctx context.Context, employeeID string) (*model.Driver, error) {
	return getDriver(ctx, d.pool, "employee_id", employeeID)
}

// ListDrivers returns every driver ordered by id
func (d *DB) ListDrivers(ctx context.Context) ([]model.Driver, error) {
	rows, err := d.pool.Query(ctx, `SELECT id, employee_id, state, license_expiry FROM driver ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query drivers: %w", err)
	}
	drivers, err := pgx.CollectRows(rows, scanDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to scan drivers: %w", err)
	}
	return drivers, nil
}

// UpdateDriverState moves a driver from one state to another if it is still in from
func (d *DB) UpdateDriverState(ctx context.Context, id string, from, to model.CrewState) (bool, error) {
	return d.compareAndSet(ctx, `UPDATE driver SET state = $3 WHERE id = $1 AND state = $2`, id, string(from), string(to))
}

// Assistants

func getAssistant(ctx context.Context, q querier, column, value string) (*model.Assistant, error) {
	var (
		a     model.Assistant
		state string
	)
	err := q.QueryRow(ctx, `SELECT id, employee_id, state FROM assistant WHERE `+column+` = $1 ORDER BY id LIMIT 1`, value).
		Scan(&a.ID, &a.EmployeeID, &state)
	if err != nil {
		return nil, mapError(err)
	}
	a.State = model.CrewState(state)
	return &a, nil
}

// GetAssistant returns an assistant by id
func (d *DB) GetAssistant(ctx context.Context, id string) (*model.Assistant, error) {
	return getAssistant(ctx, d.pool, "id", id)
}

// GetAssistantByEmployee returns the assistant record of an employee
func (d *DB) GetAssistantByEmployee(ctx context.Context, employeeID string) (*model.Assistant, error) {
	return getAssistant(ctx, d.pool, "employee_id", employeeID)
}

func (d *DB) UpdateAssistantState(ctx context.Context, id string, from, to model.CrewState) (bool, error) {
	return d.compareAndSet(ctx, `UPDATE assistant SET state = $3 WHERE id = $1 AND state = $2`, id, string(from), string(to))
}

// Mechanics

// GetMechanicByEmployee returns the mechanic record of an employee
func (d *DB) GetMechanicByEmployee(ctx context.Context, employeeID string) (*model.Mechanic, error) {
	var (
		m           model.Mechanic
		state       string
		specialties []string
	)
	err := d.pool.QueryRow(ctx, `
		SELECT id, employee_id, state, specialties FROM mechanic
		WHERE employee_id = $1 ORDER BY id LIMIT 1
	`, employeeID).Scan(&m.ID, &m.EmployeeID, &state, &specialties)
	if err != nil {
		return nil, mapError(err)
	}
	m.State = model.CrewState(state)
	for _, s := range specialties {
		m.Specialties = append(m.Specialties, model.Specialty(s))
	}
	return &m, nil
}

func (d *DB) UpdateMechanicState(ctx context.Context, id string, from, to model.CrewState) (bool, error) {
	return d.compareAndSet(ctx, `UPDATE mechanic SET state = $3 WHERE id = $1 AND state = $2`, id, string(from), string(to))
}

// Employees

func scanEmployee(row pgx.CollectableRow) (model.Employee, error) {
	var (
		e     model.Employee
		state string
	)
	err := row.Scan(&e.ID, &e.Name, &e.Email, &state)
	e.State = model.EmployeeState(state)
	return e, err
}

// GetEmployee returns an employee by id
func (d *DB) GetEmployee(ctx context.Context, id string) (*model.Employee, error) {
	rows, err := d.pool.Query(ctx, `SELECT id, name, email, state FROM employee WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query employee: %w", err)
	}
	e, err := pgx.CollectExactlyOneRow(rows, scanEmployee)
	if err != nil {
		return nil, mapError(err)
	}
	return &e, nil
}

// ListEmployees returns every employee ordered by id
func (d *DB) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	rows, err := d.pool.Query(ctx, `SELECT id, name, email, state FROM employee ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	employees, err := pgx.CollectRows(rows, scanEmployee)
	if err != nil {
		return nil, fmt.Errorf("failed to scan employees: %w", err)
	}
	return employees, nil
}

func (d *DB) UpdateEmployeeState(ctx context.Context, id string, from, to model.EmployeeState) (bool, error) {
	return d.compareAndSet(ctx, `UPDATE employee SET state = $3 WHERE id = $1 AND state = $2`, id, string(from), string(to))
}

// Leave requests

// ListLeaveRequests returns the leave requests in the given state ordered by start date
func (d *DB) ListLeaveRequests(ctx context.Context, state model.LeaveState) ([]model.LeaveRequest, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, employee_id, start_date, end_date, state FROM leave_request
		WHERE state = $1
		ORDER BY start_date, id
	`, string(state))
	if err != nil {
		return nil, fmt.Errorf("failed to query leave requests: %w", err)
	}
	leaves, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.LeaveRequest, error) {
		var (
			l  model.LeaveRequest
			st string
		)
		if err := row.Scan(&l.ID, &l.EmployeeID, &l.StartDate, &l.EndDate, &st); err != nil {
			return l, err
		}
		l.StartDate = model.Day(l.StartDate)
		l.EndDate = model.Day(l.EndDate)
		l.State = model.LeaveState(st)
		return l, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan leave requests: %w", err)
	}
	return leaves, nil
}

// CompleteLeaveRequest moves an approved leave to completed
func (d *DB) CompleteLeaveRequest(ctx context.Context, id string) (bool, error) {
	return d.compareAndSet(ctx, `UPDATE leave_request SET state = $3 WHERE id = $1 AND state = $2`,
		id, string(model.LeaveApproved), string(model.LeaveCompleted))
}

// InsertLeaveRequest stores a new leave request
func (d *DB) InsertLeaveRequest(ctx context.Context, leave *model.LeaveRequest) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO leave_request (id, employee_id, start_date, end_date, state)
		VALUES ($1, $2, $3, $4, $5)
	`, leave.ID, leave.EmployeeID, model.Day(leave.StartDate), model.Day(leave.EndDate), string(leave.State))
	if err != nil {
		return fmt.Errorf("failed to insert leave request: %w", mapError(err))
	}
	return nil
}

// Buses

const busColumns = `id, plate, type, state, insurance_expiry, circulation_permit_expiry, technical_review_expiry,
	blocked_by_documents, blocked_by_order, maintenance_reasons`

func scanBus(row pgx.CollectableRow) (model.Bus, error) {
	var (
		b                         model.Bus
		typ, state                string
		insurance, permit, review pgtype.Date
		reasons                   []string
	)
	err := row.Scan(&b.ID, &b.Plate, &typ, &state, &insurance, &permit, &review,
		&b.BlockedByDocuments, &b.BlockedByOrder, &reasons)
	if err != nil {
		return b, err
	}
	b.Type = model.BusType(typ)
	b.State = model.BusState(state)
	b.InsuranceExpiry = dateValue(insurance)
	b.CirculationPermitExpiry = dateValue(permit)
	b.TechnicalReviewExpiry = dateValue(review)
	b.MaintenanceReasons = documentKinds(reasons)
	return b, nil
}

func getBus(ctx context.Context, q querier, id string) (*model.Bus, error) {
	rows, err := q.Query(ctx, `SELECT `+busColumns+` FROM bus WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query bus: %w", err)
	}
	b, err := pgx.CollectExactlyOneRow(rows, scanBus)
	if err != nil {
		return nil, mapError(err)
	}
	return &b, nil
}

// ListBuses returns every bus ordered by id
func (d *DB) ListBuses(ctx context.Context) ([]model.Bus, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+busColumns+` FROM bus ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query buses: %w", err)
	}
	buses, err := pgx.CollectRows(rows, scanBus)
	if err != nil {
		return nil, fmt.Errorf("failed to scan buses: %w", err)
	}
	return buses, nil
}

// UpdateBusStatus writes next only if the stored derived fields still equal prev
func (d *DB) UpdateBusStatus(ctx context.Context, id string, prev, next db.BusStatus) (bool, error) {
	return d.compareAndSet(ctx, `
		UPDATE bus
		SET state = $6, blocked_by_documents = $7, blocked_by_order = $8, maintenance_reasons = $9
		WHERE id = $1 AND state = $2 AND blocked_by_documents = $3 AND blocked_by_order = $4 AND maintenance_reasons = $5
	`, id,
		string(prev.State), prev.BlockedByDocuments, prev.BlockedByOrder, reasonStrings(prev.MaintenanceReasons),
		string(next.State), next.BlockedByDocuments, next.BlockedByOrder, reasonStrings(next.MaintenanceReasons),
	)
}

func documentKinds(in []string) []model.DocumentKind {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.DocumentKind, len(in))
	for i, s := range in {
		out[i] = model.DocumentKind(s)
	}
	return out
}

func reasonStrings(in []model.DocumentKind) []string {
	out := make([]string, len(in))
	for i, k := range in {
		out[i] = string(k)
	}
	return out
}

// Maintenance orders

const orderColumns = `id, bus_id, start_date, end_date, state, description`

func scanOrder(row pgx.CollectableRow) (model.MaintenanceOrder, error) {
	var (
		o     model.MaintenanceOrder
		end   pgtype.Date
		state string
	)
	if err := row.Scan(&o.ID, &o.BusID, &o.StartDate, &end, &state, &o.Description); err != nil {
		return o, err
	}
	o.StartDate = model.Day(o.StartDate)
	o.EndDate = dateValue(end)
	o.State = model.MaintenanceOrderState(state)
	return o, nil
}

// ListMaintenanceOrders returns the orders of a bus ordered by start date
func (d *DB) ListMaintenanceOrders(ctx context.Context, busID string) ([]model.MaintenanceOrder, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+orderColumns+` FROM maintenance_order WHERE bus_id = $1 ORDER BY start_date, id`, busID)
	if err != nil {
		return nil, fmt.Errorf("failed to query maintenance orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to scan maintenance orders: %w", err)
	}
	return orders, nil
}

// GetMaintenanceOrder returns a maintenance order by id
func (d *DB) GetMaintenanceOrder(ctx context.Context, id string) (*model.MaintenanceOrder, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+orderColumns+` FROM maintenance_order WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query maintenance order: %w", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		return nil, mapError(err)
	}
	return &o, nil
}

// SaveMaintenanceOrder inserts or replaces a maintenance order
func (d *DB) SaveMaintenanceOrder(ctx context.Context, order *model.MaintenanceOrder) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO maintenance_order (id, bus_id, start_date, end_date, state, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET bus_id = EXCLUDED.bus_id, start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date,
			state = EXCLUDED.state, description = EXCLUDED.description
	`, order.ID, order.BusID, model.Day(order.StartDate), dateParam(order.EndDate), string(order.State), order.Description)
	if err != nil {
		return fmt.Errorf("failed to save maintenance order: %w", mapError(err))
	}
	return nil
}

// DeleteMaintenanceOrder removes a maintenance order
func (d *DB) DeleteMaintenanceOrder(ctx context.Context, id string) error {
	tag, err := d.pool.Exec(ctx, `DELETE FROM maintenance_order WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete maintenance order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// compareAndSet runs a conditional UPDATE and reports whether it matched a row
func (d *DB) compareAndSet(ctx context.Context, sql string, args ...any) (bool, error) {
	tag, err := d.pool.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
