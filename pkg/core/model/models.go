package model

import "time"

type ShiftType string

const (
	ShiftMorning   ShiftType = "morning"
	ShiftAfternoon ShiftType = "afternoon"
	ShiftNight     ShiftType = "night"
)

func (t ShiftType) IsValid() bool {
	return t == ShiftMorning || t == ShiftAfternoon || t == ShiftNight
}

type ShiftState string

const (
	ShiftScheduled  ShiftState = "scheduled"
	ShiftInProgress ShiftState = "in_progress"
	ShiftCompleted  ShiftState = "completed"
	ShiftCancelled  ShiftState = "cancelled"
)

func (s ShiftState) IsValid() bool {
	switch s {
	case ShiftScheduled, ShiftInProgress, ShiftCompleted, ShiftCancelled:
		return true
	}
	return false
}

type DriverRole string

const (
	RolePrincipal DriverRole = "principal"
	RoleSupport   DriverRole = "support"
)

func (r DriverRole) IsValid() bool {
	return r == RolePrincipal || r == RoleSupport
}

type AssistantPosition string

const (
	PositionUpperDeck AssistantPosition = "upper_deck"
	PositionLowerDeck AssistantPosition = "lower_deck"
	PositionGeneral   AssistantPosition = "general"
)

func (p AssistantPosition) IsValid() bool {
	return p == PositionUpperDeck || p == PositionLowerDeck || p == PositionGeneral
}

// Shift is a scheduled bus + crew + time window for a single day
type Shift struct {
	ID         string
	BusID      string
	Date       time.Time // UTC midnight
	Start      TimeOfDay
	End        TimeOfDay
	Type       ShiftType
	State      ShiftState
	Notes      string
	Drivers    []DriverAssignment
	Assistants []AssistantAssignment
}

// IsCancelled reports whether the shift no longer occupies its bus or crew
func (s *Shift) IsCancelled() bool {
	return s.State == ShiftCancelled
}

// HasDriver reports whether the driver is part of the shift's crew
func (s *Shift) HasDriver(driverID string) bool {
	for _, d := range s.Drivers {
		if d.DriverID == driverID {
			return true
		}
	}
	return false
}

// HasAssistant reports whether the assistant is part of the shift's crew
func (s *Shift) HasAssistant(assistantID string) bool {
	for _, a := range s.Assistants {
		if a.AssistantID == assistantID {
			return true
		}
	}
	return false
}

// DriverAssignment binds a driver to a shift
type DriverAssignment struct {
	ShiftID  string
	DriverID string
	Role     DriverRole
}

// AssistantAssignment binds an assistant to a shift
type AssistantAssignment struct {
	ShiftID     string
	AssistantID string
	Position    AssistantPosition
}

type BusType string

const (
	BusSingleDeck BusType = "single_deck"
	BusDoubleDeck BusType = "double_deck"
)

func (t BusType) IsValid() bool {
	return t == BusSingleDeck || t == BusDoubleDeck
}

type BusState string

const (
	BusOperational    BusState = "operational"
	BusMaintenance    BusState = "maintenance"
	BusDecommissioned BusState = "decommissioned"
)

func (s BusState) IsValid() bool {
	return s == BusOperational || s == BusMaintenance || s == BusDecommissioned
}

// DocumentKind names a bus document with an expiry date
type DocumentKind string

const (
	DocumentInsurance         DocumentKind = "insurance"
	DocumentCirculationPermit DocumentKind = "circulation_permit"
	DocumentTechnicalReview   DocumentKind = "technical_review"
)

// Bus represents a fleet vehicle.
// State is derived: maintenance iff BlockedByDocuments or BlockedByOrder,
// unless the bus is decommissioned.
type Bus struct {
	ID                      string
	Plate                   string
	Type                    BusType
	State                   BusState
	InsuranceExpiry         *time.Time
	CirculationPermitExpiry *time.Time
	TechnicalReviewExpiry   *time.Time
	BlockedByDocuments      bool
	BlockedByOrder          bool
	MaintenanceReasons      []DocumentKind
}

// RequiresAssistant returns true for vehicles that need an assistant on board
func (b *Bus) RequiresAssistant() bool {
	return b.Type == BusDoubleDeck
}

type MaintenanceOrderState string

const (
	OrderInProgress MaintenanceOrderState = "in_progress"
	OrderCompleted  MaintenanceOrderState = "completed"
	OrderCancelled  MaintenanceOrderState = "cancelled"
)

func (s MaintenanceOrderState) IsValid() bool {
	return s == OrderInProgress || s == OrderCompleted || s == OrderCancelled
}

// MaintenanceOrder is a workshop order against a bus. A nil EndDate is open-ended.
type MaintenanceOrder struct {
	ID          string
	BusID       string
	StartDate   time.Time
	EndDate     *time.Time
	State       MaintenanceOrderState
	Description string
}

// CoversDay reports whether an in-progress order blocks the bus on day
func (o *MaintenanceOrder) CoversDay(day time.Time) bool {
	if o.State != OrderInProgress {
		return false
	}
	day = Day(day)
	if day.Before(Day(o.StartDate)) {
		return false
	}
	return o.EndDate == nil || day.Before(Day(*o.EndDate))
}

// CrewState is shared by drivers, assistants and mechanics
type CrewState string

const (
	CrewActive       CrewState = "active"
	CrewInactive     CrewState = "inactive"
	CrewMedicalLeave CrewState = "medical_leave"
	CrewSuspended    CrewState = "suspended"
)

func (s CrewState) IsValid() bool {
	switch s {
	case CrewActive, CrewInactive, CrewMedicalLeave, CrewSuspended:
		return true
	}
	return false
}

// Driver is the driving role record of an employee
type Driver struct {
	ID            string
	EmployeeID    string
	State         CrewState
	LicenseExpiry *time.Time
}

// LicenseExpired reports whether the license lapsed before today. A nil expiry never lapses.
func (d *Driver) LicenseExpired(today time.Time) bool {
	return d.LicenseExpiry != nil && Day(*d.LicenseExpiry).Before(Day(today))
}

// Assistant is the on-board assistant role record of an employee
type Assistant struct {
	ID         string
	EmployeeID string
	State      CrewState
}

type Specialty string

const (
	SpecialtyEngine     Specialty = "engine"
	SpecialtyElectrical Specialty = "electrical"
	SpecialtyBodywork   Specialty = "bodywork"
	SpecialtyTyres      Specialty = "tyres"
	SpecialtyHVAC       Specialty = "hvac"
)

func (s Specialty) IsValid() bool {
	switch s {
	case SpecialtyEngine, SpecialtyElectrical, SpecialtyBodywork, SpecialtyTyres, SpecialtyHVAC:
		return true
	}
	return false
}

// Mechanic is the workshop role record of an employee
type Mechanic struct {
	ID          string
	EmployeeID  string
	State       CrewState
	Specialties []Specialty
}

type EmployeeState string

const (
	EmployeeActive     EmployeeState = "active"
	EmployeeOnLeave    EmployeeState = "on_leave"
	EmployeeTerminated EmployeeState = "terminated"
	EmployeeSuspended  EmployeeState = "suspended"
)

func (s EmployeeState) IsValid() bool {
	switch s {
	case EmployeeActive, EmployeeOnLeave, EmployeeTerminated, EmployeeSuspended:
		return true
	}
	return false
}

// Employee is the authoritative source of a person's working state
type Employee struct {
	ID    string
	Name  string
	Email string
	State EmployeeState
}

// CrewStateFor maps an employee state onto the role-record state enum
func CrewStateFor(s EmployeeState) CrewState {
	switch s {
	case EmployeeOnLeave:
		return CrewMedicalLeave
	case EmployeeTerminated:
		return CrewInactive
	case EmployeeSuspended:
		return CrewSuspended
	default:
		return CrewActive
	}
}

type LeaveState string

const (
	LeaveRequested LeaveState = "requested"
	LeaveApproved  LeaveState = "approved"
	LeaveRejected  LeaveState = "rejected"
	LeaveCompleted LeaveState = "completed"
)

func (s LeaveState) IsValid() bool {
	switch s {
	case LeaveRequested, LeaveApproved, LeaveRejected, LeaveCompleted:
		return true
	}
	return false
}

// LeaveRequest is an employee's absence window; both ends are inclusive days
type LeaveRequest struct {
	ID         string
	EmployeeID string
	StartDate  time.Time
	EndDate    time.Time
	State      LeaveState
}

// CoversDay reports whether an approved leave includes day
func (l *LeaveRequest) CoversDay(day time.Time) bool {
	day = Day(day)
	return l.State == LeaveApproved && !day.Before(Day(l.StartDate)) && !day.After(Day(l.EndDate))
}
