package memdb

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
)

// Fixture is the YAML layout accepted by LoadFixture. Dates use "2006-01-02".
type Fixture struct {
	Buses         []FixtureBus      `yaml:"buses"`
	Employees     []FixtureEmployee `yaml:"employees"`
	Drivers       []FixtureDriver   `yaml:"drivers"`
	Assistants    []FixtureCrew     `yaml:"assistants"`
	Mechanics     []FixtureMechanic `yaml:"mechanics"`
	LeaveRequests []FixtureLeave    `yaml:"leaveRequests"`
}

type FixtureBus struct {
	ID                      string `yaml:"id"`
	Plate                   string `yaml:"plate"`
	Type                    string `yaml:"type"`
	State                   string `yaml:"state"`
	InsuranceExpiry         string `yaml:"insuranceExpiry"`
	CirculationPermitExpiry string `yaml:"circulationPermitExpiry"`
	TechnicalReviewExpiry   string `yaml:"technicalReviewExpiry"`
}

type FixtureEmployee struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	State string `yaml:"state"`
}

type FixtureDriver struct {
	ID            string `yaml:"id"`
	EmployeeID    string `yaml:"employeeID"`
	State         string `yaml:"state"`
	LicenseExpiry string `yaml:"licenseExpiry"`
}

type FixtureCrew struct {
	ID         string `yaml:"id"`
	EmployeeID string `yaml:"employeeID"`
	State      string `yaml:"state"`
}

type FixtureMechanic struct {
	ID          string   `yaml:"id"`
	EmployeeID  string   `yaml:"employeeID"`
	State       string   `yaml:"state"`
	Specialties []string `yaml:"specialties"`
}

type FixtureLeave struct {
	ID         string `yaml:"id"`
	EmployeeID string `yaml:"employeeID"`
	StartDate  string `yaml:"startDate"`
	EndDate    string `yaml:"endDate"`
	State      string `yaml:"state"`
}

// LoadFixture reads a YAML fixture into a new database
func LoadFixture(path string) (*DB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}

	return FromFixture(&f)
}

// FromFixture builds a database from an already parsed fixture
func FromFixture(f *Fixture) (*DB, error) {
	d := New()

	for _, b := range f.Buses {
		bus := model.Bus{ID: b.ID, Plate: b.Plate, Type: model.BusType(b.Type), State: model.BusState(b.State)}
		if bus.State == "" {
			bus.State = model.BusOperational
		}
		if !bus.Type.IsValid() {
			return nil, fmt.Errorf("bus %s: unknown type %q", b.ID, b.Type)
		}
		if !bus.State.IsValid() {
			return nil, fmt.Errorf("bus %s: unknown state %q", b.ID, b.State)
		}
		var err error
		if bus.InsuranceExpiry, err = optionalDate(b.InsuranceExpiry); err != nil {
			return nil, fmt.Errorf("bus %s: %w", b.ID, err)
		}
		if bus.CirculationPermitExpiry, err = optionalDate(b.CirculationPermitExpiry); err != nil {
			return nil, fmt.Errorf("bus %s: %w", b.ID, err)
		}
		if bus.TechnicalReviewExpiry, err = optionalDate(b.TechnicalReviewExpiry); err != nil {
			return nil, fmt.Errorf("bus %s: %w", b.ID, err)
		}
		d.PutBus(bus)
	}

	for _, e := range f.Employees {
		state, err := employeeState(e.State)
		if err != nil {
			return nil, fmt.Errorf("employee %s: %w", e.ID, err)
		}
		d.PutEmployee(model.Employee{ID: e.ID, Name: e.Name, Email: e.Email, State: state})
	}

	for _, dr := range f.Drivers {
		expiry, err := optionalDate(dr.LicenseExpiry)
		if err != nil {
			return nil, fmt.Errorf("driver %s: %w", dr.ID, err)
		}
		state, err := crewState(dr.State)
		if err != nil {
			return nil, fmt.Errorf("driver %s: %w", dr.ID, err)
		}
		d.PutDriver(model.Driver{ID: dr.ID, EmployeeID: dr.EmployeeID, State: state, LicenseExpiry: expiry})
	}

	for _, a := range f.Assistants {
		state, err := crewState(a.State)
		if err != nil {
			return nil, fmt.Errorf("assistant %s: %w", a.ID, err)
		}
		d.PutAssistant(model.Assistant{ID: a.ID, EmployeeID: a.EmployeeID, State: state})
	}

	for _, m := range f.Mechanics {
		state, err := crewState(m.State)
		if err != nil {
			return nil, fmt.Errorf("mechanic %s: %w", m.ID, err)
		}
		mech := model.Mechanic{ID: m.ID, EmployeeID: m.EmployeeID, State: state}
		for _, s := range m.Specialties {
			if !model.Specialty(s).IsValid() {
				return nil, fmt.Errorf("mechanic %s: unknown specialty %q", m.ID, s)
			}
			mech.Specialties = append(mech.Specialties, model.Specialty(s))
		}
		d.PutMechanic(mech)
	}

	for _, l := range f.LeaveRequests {
		start, err := model.ParseDate(l.StartDate)
		if err != nil {
			return nil, fmt.Errorf("leave request %s: %w", l.ID, err)
		}
		end, err := model.ParseDate(l.EndDate)
		if err != nil {
			return nil, fmt.Errorf("leave request %s: %w", l.ID, err)
		}
		state := model.LeaveState(l.State)
		if state == "" {
			state = model.LeaveRequested
		}
		if !state.IsValid() {
			return nil, fmt.Errorf("leave request %s: unknown state %q", l.ID, state)
		}
		d.PutLeaveRequest(model.LeaveRequest{ID: l.ID, EmployeeID: l.EmployeeID, StartDate: start, EndDate: end, State: state})
	}

	return d, nil
}

func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func crewState(s string) (model.CrewState, error) {
	if s == "" {
		return model.CrewActive, nil
	}
	state := model.CrewState(s)
	if !state.IsValid() {
		return "", fmt.Errorf("unknown crew state %q", s)
	}
	return state, nil
}

func employeeState(s string) (model.EmployeeState, error) {
	if s == "" {
		return model.EmployeeActive, nil
	}
	state := model.EmployeeState(s)
	if !state.IsValid() {
		return "", fmt.Errorf("unknown employee state %q", s)
	}
	return state, nil
}
