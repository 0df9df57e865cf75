package fleetsync

import (
	"context"
	"errors"
	"time"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

var errBoom = errors.New("boom")

// mockFleetStore keeps records in maps and applies compare-and-set writes
type mockFleetStore struct {
	drivers    map[string]*model.Driver
	assistants map[string]*model.Assistant
	mechanics  map[string]*model.Mechanic
	employees  map[string]*model.Employee
	leaves     map[string]*model.LeaveRequest
	buses      map[string]*model.Bus
	orders     []model.MaintenanceOrder

	// ordered ids so runs are deterministic
	driverIDs   []string
	employeeIDs []string
	leaveIDs    []string
	busIDs      []string

	listDriversErr  error
	listBusesErr    error
	listOrdersErr   error
	updateDriverErr map[string]error
	updateBusErr    map[string]error
	// staleDrivers makes the next CAS write for the driver miss
	staleDrivers map[string]bool
	staleBuses   map[string]bool

	busWrites int
}

func newMockFleetStore() *mockFleetStore {
	return &mockFleetStore{
		drivers:         map[string]*model.Driver{},
		assistants:      map[string]*model.Assistant{},
		mechanics:       map[string]*model.Mechanic{},
		employees:       map[string]*model.Employee{},
		leaves:          map[string]*model.LeaveRequest{},
		buses:           map[string]*model.Bus{},
		updateDriverErr: map[string]error{},
		updateBusErr:    map[string]error{},
		staleDrivers:    map[string]bool{},
		staleBuses:      map[string]bool{},
	}
}

func (m *mockFleetStore) addDriver(d model.Driver) {
	m.drivers[d.ID] = &d
	m.driverIDs = append(m.driverIDs, d.ID)
}

func (m *mockFleetStore) addEmployee(e model.Employee) {
	m.employees[e.ID] = &e
	m.employeeIDs = append(m.employeeIDs, e.ID)
}

func (m *mockFleetStore) addLeave(l model.LeaveRequest) {
	m.leaves[l.ID] = &l
	m.leaveIDs = append(m.leaveIDs, l.ID)
}

func (m *mockFleetStore) addBus(b model.Bus) {
	m.buses[b.ID] = &b
	m.busIDs = append(m.busIDs, b.ID)
}

func (m *mockFleetStore) ListDrivers(ctx context.Context) ([]model.Driver, error) {
	if m.listDriversErr != nil {
		return nil, m.listDriversErr
	}
	var out []model.Driver
	for _, id := range m.driverIDs {
		out = append(out, *m.drivers[id])
	}
	return out, nil
}

func (m *mockFleetStore) UpdateDriverState(ctx context.Context, id string, from, to model.CrewState) (bool, error) {
	if err := m.updateDriverErr[id]; err != nil {
		return false, err
	}
	if m.staleDrivers[id] {
		delete(m.staleDrivers, id)
		return false, nil
	}
	d, ok := m.drivers[id]
	if !ok || d.State != from {
		return false, nil
	}
	d.State = to
	return true, nil
}

func (m *mockFleetStore) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	var out []model.Employee
	for _, id := range m.employeeIDs {
		out = append(out, *m.employees[id])
	}
	return out, nil
}

func (m *mockFleetStore) ListLeaveRequests(ctx context.Context, state model.LeaveState) ([]model.LeaveRequest, error) {
	var out []model.LeaveRequest
	for _, id := range m.leaveIDs {
		if l := m.leaves[id]; l.State == state {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *mockFleetStore) UpdateEmployeeState(ctx context.Context, id string, from, to model.EmployeeState) (bool, error) {
	e, ok := m.employees[id]
	if !ok || e.State != from {
		return false, nil
	}
	e.State = to
	return true, nil
}

func (m *mockFleetStore) CompleteLeaveRequest(ctx context.Context, id string) (bool, error) {
	l, ok := m.leaves[id]
	if !ok || l.State != model.LeaveApproved {
		return false, nil
	}
	l.State = model.LeaveCompleted
	return true, nil
}

func (m *mockFleetStore) GetDriverByEmployee(ctx context.Context, employeeID string) (*model.Driver, error) {
	for _, id := range m.driverIDs {
		if d := m.drivers[id]; d.EmployeeID == employeeID {
			c := *d
			return &c, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockFleetStore) GetAssistantByEmployee(ctx context.Context, employeeID string) (*model.Assistant, error) {
	for _, a := range m.assistants {
		if a.EmployeeID == employeeID {
			c := *a
			return &c, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockFleetStore) GetMechanicByEmployee(ctx context.Context, employeeID string) (*model.Mechanic, error) {
	for _, mech := range m.mechanics {
		if mech.EmployeeID == employeeID {
			c := *mech
			return &c, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockFleetStore) UpdateAssistantState(ctx context.Context, id string, from, to model.CrewState) (bool, error) {
	a, ok := m.assistants[id]
	if !ok || a.State != from {
		return false, nil
	}
	a.State = to
	return true, nil
}

func (m *mockFleetStore) UpdateMechanicState(ctx context.Context, id string, from, to model.CrewState) (bool, error) {
	mech, ok := m.mechanics[id]
	if !ok || mech.State != from {
		return false, nil
	}
	mech.State = to
	return true, nil
}

func (m *mockFleetStore) ListBuses(ctx context.Context) ([]model.Bus, error) {
	if m.listBusesErr != nil {
		return nil, m.listBusesErr
	}
	var out []model.Bus
	for _, id := range m.busIDs {
		out = append(out, *m.buses[id])
	}
	return out, nil
}

func (m *mockFleetStore) GetBus(ctx context.Context, id string) (*model.Bus, error) {
	b, ok := m.buses[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	c := *b
	return &c, nil
}

func (m *mockFleetStore) ListMaintenanceOrders(ctx context.Context, busID string) ([]model.MaintenanceOrder, error) {
	if m.listOrdersErr != nil {
		return nil, m.listOrdersErr
	}
	var out []model.MaintenanceOrder
	for _, o := range m.orders {
		if o.BusID == busID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockFleetStore) UpdateBusStatus(ctx context.Context, id string, prev, next db.BusStatus) (bool, error) {
	if err := m.updateBusErr[id]; err != nil {
		return false, err
	}
	if m.staleBuses[id] {
		delete(m.staleBuses, id)
		return false, nil
	}
	b, ok := m.buses[id]
	if !ok || !equalStatus(db.StatusOf(b), prev) {
		return false, nil
	}
	b.State = next.State
	b.BlockedByDocuments = next.BlockedByDocuments
	b.BlockedByOrder = next.BlockedByOrder
	b.MaintenanceReasons = next.MaintenanceReasons
	m.busWrites++
	return true, nil
}

func date(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func datePtr(s string) *time.Time {
	d := date(s)
	return &d
}
