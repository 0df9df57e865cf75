// Package memdb is an in-memory db.Database used by tests and by the CLI's --memory mode.
// It reproduces the locking and constraint behaviour of the postgres store.
package memdb

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

// DB holds every record in maps guarded by one RWMutex
type DB struct {
	mu         sync.RWMutex
	shifts     map[string]*model.Shift
	buses      map[string]*model.Bus
	drivers    map[string]*model.Driver
	assistants map[string]*model.Assistant
	mechanics  map[string]*model.Mechanic
	employees  map[string]*model.Employee
	leaves     map[string]*model.LeaveRequest
	orders     map[string]*model.MaintenanceOrder

	locksMu   sync.Mutex
	dateLocks map[time.Time]chan struct{}
	jobLocks  map[string]bool
}

var _ db.Database = (*DB)(nil)

// New returns an empty database
func New() *DB {
	return &DB{
		shifts:     map[string]*model.Shift{},
		buses:      map[string]*model.Bus{},
		drivers:    map[string]*model.Driver{},
		assistants: map[string]*model.Assistant{},
		mechanics:  map[string]*model.Mechanic{},
		employees:  map[string]*model.Employee{},
		leaves:     map[string]*model.LeaveRequest{},
		orders:     map[string]*model.MaintenanceOrder{},
		dateLocks:  map[time.Time]chan struct{}{},
		jobLocks:   map[string]bool{},
	}
}

// PutBus inserts or replaces a bus
func (d *DB) PutBus(b model.Bus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b.MaintenanceReasons = slices.Clone(b.MaintenanceReasons)
	d.buses[b.ID] = &b
}

// PutDriver inserts or replaces a driver
func (d *DB) PutDriver(dr model.Driver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drivers[dr.ID] = &dr
}

// PutAssistant inserts or replaces an assistant
func (d *DB) PutAssistant(a model.Assistant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.assistants[a.ID] = &a
}

// PutMechanic inserts or replaces a mechanic
func (d *DB) PutMechanic(m model.Mechanic) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m.Specialties = slices.Clone(m.Specialties)
	d.mechanics[m.ID] = &m
}

// PutEmployee inserts or replaces an employee
func (d *DB) PutEmployee(e model.Employee) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.employees[e.ID] = &e
}

// PutLeaveRequest inserts or replaces a leave request regardless of its state
func (d *DB) PutLeaveRequest(l model.LeaveRequest) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.leaves[l.ID] = &l
}

// PutShift inserts or replaces a shift without any checks
func (d *DB) PutShift(s model.Shift) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shifts[s.ID] = cloneShift(&s)
}

// TryLockJob implements db.JobLocker
func (d *DB) TryLockJob(ctx context.Context, job string) (func(), bool, error) {
	d.locksMu.Lock()
	defer d.locksMu.Unlock()

	if d.jobLocks[job] {
		return nil, false, nil
	}
	d.jobLocks[job] = true

	var once sync.Once
	release := func() {
		once.Do(func() {
			d.locksMu.Lock()
			delete(d.jobLocks, job)
			d.locksMu.Unlock()
		})
	}
	return release, true, nil
}

// dateLock returns the single-slot semaphore for a day
func (d *DB) dateLock(day time.Time) chan struct{} {
	d.locksMu.Lock()
	defer d.locksMu.Unlock()

	ch, ok := d.dateLocks[day]
	if !ok {
		ch = make(chan struct{}, 1)
		d.dateLocks[day] = ch
	}
	return ch
}

func cloneShift(s *model.Shift) *model.Shift {
	c := *s
	c.Drivers = slices.Clone(s.Drivers)
	c.Assistants = slices.Clone(s.Assistants)
	return &c
}

func cloneBus(b *model.Bus) *model.Bus {
	c := *b
	c.MaintenanceReasons = slices.Clone(b.MaintenanceReasons)
	return &c
}
