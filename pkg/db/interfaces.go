package db

import (
	"context"
	"time"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
)

// ShiftFilter narrows ListShifts. Zero-valued fields are ignored; From and To are inclusive days.
type ShiftFilter struct {
	From     time.Time
	To       time.Time
	BusID    string
	DriverID string
	Type     model.ShiftType
	State    model.ShiftState
}

// ShiftReader defines read-only shift operations
type ShiftReader interface {
	GetShift(ctx context.Context, id string) (*model.Shift, error)
	ListShifts(ctx context.Context, filter ShiftFilter) ([]model.Shift, error)
	GetBus(ctx context.Context, id string) (*model.Bus, error)
}

// ShiftTx is the unit of work for shift writes. Every read inside it observes
// the state protected by the date locks taken so far.
type ShiftTx interface {
	// LockDate serialises shift writers touching the given day until the transaction ends
	LockDate(ctx context.Context, date time.Time) error

	GetBus(ctx context.Context, id string) (*model.Bus, error)
	GetDriver(ctx context.Context, id string) (*model.Driver, error)
	GetAssistant(ctx context.Context, id string) (*model.Assistant, error)
	GetShift(ctx context.Context, id string) (*model.Shift, error)

	// ActiveShiftsOn returns every non-cancelled shift on date with its crew loaded
	ActiveShiftsOn(ctx context.Context, date time.Time) ([]model.Shift, error)

	InsertShift(ctx context.Context, shift *model.Shift) error
	// UpdateShift rewrites the shift row and replaces its crew rows
	UpdateShift(ctx context.Context, shift *model.Shift) error
	SetShiftState(ctx context.Context, id string, state model.ShiftState) error
	AddDriverAssignment(ctx context.Context, shift *model.Shift, assignment model.DriverAssignment) error
	AddAssistantAssignment(ctx context.Context, shift *model.Shift, assignment model.AssistantAssignment) error
}

// ShiftStore defines the operations used by the shift assignment services.
// It exposes no way to write bus, driver or assistant state.
type ShiftStore interface {
	ShiftReader
	WithShiftTx(ctx context.Context, fn func(tx ShiftTx) error) error
}

// LicenseStore defines the operations used by the license expiry sync
type LicenseStore interface {
	ListDrivers(ctx context.Context) ([]model.Driver, error)
	UpdateDriverState(ctx context.Context, id string, from, to model.CrewState) (bool, error)
}

// LeaveStore defines the operations used by the leave/employee-state mirror
type LeaveStore interface {
	LicenseStore

	ListEmployees(ctx context.Context) ([]model.Employee, error)
	ListLeaveRequests(ctx context.Context, state model.LeaveState) ([]model.LeaveRequest, error)
	UpdateEmployeeState(ctx context.Context, id string, from, to model.EmployeeState) (bool, error)
	CompleteLeaveRequest(ctx context.Context, id string) (bool, error)

	// Role lookups return ErrNotFound when the employee has no such record
	GetDriverByEmployee(ctx context.Context, employeeID string) (*model.Driver, error)
	GetAssistantByEmployee(ctx context.Context, employeeID string) (*model.Assistant, error)
	GetMechanicByEmployee(ctx context.Context, employeeID string) (*model.Mechanic, error)
	UpdateAssistantState(ctx context.Context, id string, from, to model.CrewState) (bool, error)
	UpdateMechanicState(ctx context.Context, id string, from, to model.CrewState) (bool, error)
}

// BusStatus is the derived part of a bus record
type BusStatus struct {
	State              model.BusState
	BlockedByDocuments bool
	BlockedByOrder     bool
	MaintenanceReasons []model.DocumentKind
}

// StatusOf extracts the derived fields of a bus
func StatusOf(b *model.Bus) BusStatus {
	return BusStatus{
		State:              b.State,
		BlockedByDocuments: b.BlockedByDocuments,
		BlockedByOrder:     b.BlockedByOrder,
		MaintenanceReasons: b.MaintenanceReasons,
	}
}

// BusStatusStore defines the operations used by the bus document and maintenance order sync
type BusStatusStore interface {
	ListBuses(ctx context.Context) ([]model.Bus, error)
	GetBus(ctx context.Context, id string) (*model.Bus, error)
	ListMaintenanceOrders(ctx context.Context, busID string) ([]model.MaintenanceOrder, error)

	// UpdateBusStatus writes next only if the stored status still equals prev.
	// Returns false when the row changed underneath the caller.
	UpdateBusStatus(ctx context.Context, id string, prev, next BusStatus) (bool, error)
}

// MaintenanceOrderStore defines maintenance order persistence
type MaintenanceOrderStore interface {
	BusStatusStore

	GetMaintenanceOrder(ctx context.Context, id string) (*model.MaintenanceOrder, error)
	SaveMaintenanceOrder(ctx context.Context, order *model.MaintenanceOrder) error
	DeleteMaintenanceOrder(ctx context.Context, id string) error
}

// LeaveRequestStore defines the end-user leave request write path
type LeaveRequestStore interface {
	GetEmployee(ctx context.Context, id string) (*model.Employee, error)
	InsertLeaveRequest(ctx context.Context, leave *model.LeaveRequest) error
}

// JobLocker guards against two concurrent runs of the same sync job
type JobLocker interface {
	// TryLockJob returns acquired=false without blocking when another run holds the lock
	TryLockJob(ctx context.Context, job string) (release func(), acquired bool, err error)
}

// Database defines every storage operation.
// Both postgres.DB and memdb.DB implement this interface.
type Database interface {
	ShiftStore
	LeaveStore
	MaintenanceOrderStore
	LeaveRequestStore
	JobLocker
}
