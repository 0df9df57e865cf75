package memdb

import (
	"context"
	"maps"
	"slices"
	"sort"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

func (d *DB) GetDriver(ctx context.Context, id string) (*model.Driver, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	dr, ok := d.drivers[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	c := *dr
	return &c, nil
}

func (d *DB) GetAssistant(ctx context.Context, id string) (*model.Assistant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	a, ok := d.assistants[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (d *DB) GetEmployee(ctx context.Context, id string) (*model.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.employees[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	c := *e
	return &c, nil
}

// ListDrivers returns every driver ordered by id
func (d *DB) ListDrivers(ctx context.Context) ([]model.Driver, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]model.Driver, 0, len(d.drivers))
	for _, id := range sortedKeys(d.drivers) {
		out = append(out, *d.drivers[id])
	}
	return out, nil
}

func (d *DB) UpdateDriverState(ctx context.Context, id string, from, to model.CrewState) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dr, ok := d.drivers[id]
	if !ok || dr.State != from {
		return false, nil
	}
	dr.State = to
	return true, nil
}

func (d *DB) UpdateAssistantState(ctx context.Context, id string, from, to model.CrewState) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.assistants[id]
	if !ok || a.State != from {
		return false, nil
	}
	a.State = to
	return true, nil
}

func (d *DB) UpdateMechanicState(ctx context.Context, id string, from, to model.CrewState) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, ok := d.mechanics[id]
	if !ok || m.State != from {
		return false, nil
	}
	m.State = to
	return true, nil
}

// ListEmployees returns every employee ordered by id
func (d *DB) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]model.Employee, 0, len(d.employees))
	for _, id := range sortedKeys(d.employees) {
		out = append(out, *d.employees[id])
	}
	return out, nil
}

func (d *DB) UpdateEmployeeState(ctx context.Context, id string, from, to model.EmployeeState) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.employees[id]
	if !ok || e.State != from {
		return false, nil
	}
	e.State = to
	return true, nil
}

// ListLeaveRequests returns the leave requests in state ordered by id
func (d *DB) ListLeaveRequests(ctx context.Context, state model.LeaveState) ([]model.LeaveRequest, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := []model.LeaveRequest{}
	for _, id := range sortedKeys(d.leaves) {
		if l := d.leaves[id]; l.State == state {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (d *DB) CompleteLeaveRequest(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.leaves[id]
	if !ok || l.State != model.LeaveApproved {
		return false, nil
	}
	l.State = model.LeaveCompleted
	return true, nil
}

func (d *DB) InsertLeaveRequest(ctx context.Context, leave *model.LeaveRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c := *leave
	d.leaves[leave.ID] = &c
	return nil
}

func (d *DB) GetDriverByEmployee(ctx context.Context, employeeID string) (*model.Driver, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, id := range sortedKeys(d.drivers) {
		if dr := d.drivers[id]; dr.EmployeeID == employeeID {
			c := *dr
			return &c, nil
		}
	}
	return nil, db.ErrNotFound
}

func (d *DB) GetAssistantByEmployee(ctx context.Context, employeeID string) (*model.Assistant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, id := range sortedKeys(d.assistants) {
		if a := d.assistants[id]; a.EmployeeID == employeeID {
			c := *a
			return &c, nil
		}
	}
	return nil, db.ErrNotFound
}

func (d *DB) GetMechanicByEmployee(ctx context.Context, employeeID string) (*model.Mechanic, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, id := range sortedKeys(d.mechanics) {
		if m := d.mechanics[id]; m.EmployeeID == employeeID {
			c := *m
			c.Specialties = slices.Clone(m.Specialties)
			return &c, nil
		}
	}
	return nil, db.ErrNotFound
}

// ListBuses returns every bus ordered by id
func (d *DB) ListBuses(ctx context.Context) ([]model.Bus, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]model.Bus, 0, len(d.buses))
	for _, id := range sortedKeys(d.buses) {
		out = append(out, *cloneBus(d.buses[id]))
	}
	return out, nil
}

func (d *DB) UpdateBusStatus(ctx context.Context, id string, prev, next db.BusStatus) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buses[id]
	if !ok || !sameStatus(db.StatusOf(b), prev) {
		return false, nil
	}
	b.State = next.State
	b.BlockedByDocuments = next.BlockedByDocuments
	b.BlockedByOrder = next.BlockedByOrder
	b.MaintenanceReasons = slices.Clone(next.MaintenanceReasons)
	return true, nil
}

// ListMaintenanceOrders returns the bus's orders ordered by start date
func (d *DB) ListMaintenanceOrders(ctx context.Context, busID string) ([]model.MaintenanceOrder, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := []model.MaintenanceOrder{}
	for _, o := range d.orders {
		if o.BusID == busID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (d *DB) GetMaintenanceOrder(ctx context.Context, id string) (*model.MaintenanceOrder, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	o, ok := d.orders[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	c := cloneOrder(o)
	return &c, nil
}

func (d *DB) SaveMaintenanceOrder(ctx context.Context, order *model.MaintenanceOrder) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.buses[order.BusID]; !ok {
		return db.ErrNotFound
	}
	c := cloneOrder(order)
	d.orders[order.ID] = &c
	return nil
}

func (d *DB) DeleteMaintenanceOrder(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.orders[id]; !ok {
		return db.ErrNotFound
	}
	delete(d.orders, id)
	return nil
}

func cloneOrder(o *model.MaintenanceOrder) model.MaintenanceOrder {
	c := *o
	if o.EndDate != nil {
		end := *o.EndDate
		c.EndDate = &end
	}
	return c
}

func sameStatus(a, b db.BusStatus) bool {
	return a.State == b.State &&
		a.BlockedByDocuments == b.BlockedByDocuments &&
		a.BlockedByOrder == b.BlockedByOrder &&
		slices.Equal(a.MaintenanceReasons, b.MaintenanceReasons)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
