package crew

import (
	"fmt"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
)

// Rule names used in violations
const (
	RuleDriverRequired    = "DriverRequired"
	RuleAssistantRequired = "AssistantRequired"
	RuleSinglePrincipal   = "SinglePrincipal"
)

// Violation represents a crew composition rule that a shift does not satisfy
type Violation struct {
	Rule        string
	Description string
}

// Result holds every violation found for a shift's crew
type Result struct {
	Violations []Violation
}

// OK returns true when no rule was violated
func (r Result) OK() bool {
	return len(r.Violations) == 0
}

// Has reports whether the named rule was violated
func (r Result) Has(rule string) bool {
	for _, v := range r.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

// Validate applies all crew composition rules for the given bus:
//   - at least one driver
//   - at least one assistant when the bus requires one
//   - at most one principal driver, every other driver is support
func Validate(bus *model.Bus, drivers []model.DriverAssignment, assistants []model.AssistantAssignment) Result {
	var result Result
	result.Violations = append(result.Violations, staffingViolations(bus, drivers, assistants)...)
	result.Violations = append(result.Violations, ValidateRoles(drivers).Violations...)
	return result
}

// ValidateRoles applies only the principal/support rule. This is the only
// rule enforced at write time, since crew may be assigned incrementally.
func ValidateRoles(drivers []model.DriverAssignment) Result {
	var result Result

	principals := 0
	for _, d := range drivers {
		switch d.Role {
		case model.RolePrincipal:
			principals++
		case model.RoleSupport:
		default:
			result.Violations = append(result.Violations, Violation{
				Rule:        RuleSinglePrincipal,
				Description: fmt.Sprintf("driver %s has invalid role %q", d.DriverID, d.Role),
			})
		}
	}

	if principals > 1 {
		result.Violations = append(result.Violations, Violation{
			Rule:        RuleSinglePrincipal,
			Description: fmt.Sprintf("shift has %d principal drivers, at most one is allowed", principals),
		})
	}

	return result
}

// IsComplete reports whether the shift has the minimum crew for its bus.
// Used for display only; incomplete shifts are legal.
func IsComplete(bus *model.Bus, shift *model.Shift) bool {
	return len(staffingViolations(bus, shift.Drivers, shift.Assistants)) == 0
}

// PrincipalDriver returns the principal driver assignment, or nil if none is assigned
func PrincipalDriver(shift *model.Shift) *model.DriverAssignment {
	for i := range shift.Drivers {
		if shift.Drivers[i].Role == model.RolePrincipal {
			return &shift.Drivers[i]
		}
	}
	return nil
}

// SupportDrivers returns every support driver assignment
func SupportDrivers(shift *model.Shift) []model.DriverAssignment {
	support := make([]model.DriverAssignment, 0, len(shift.Drivers))
	for _, d := range shift.Drivers {
		if d.Role == model.RoleSupport {
			support = append(support, d)
		}
	}
	return support
}

func staffingViolations(bus *model.Bus, drivers []model.DriverAssignment, assistants []model.AssistantAssignment) []Violation {
	var violations []Violation

	if len(drivers) == 0 {
		violations = append(violations, Violation{
			Rule:        RuleDriverRequired,
			Description: "shift has no driver assigned",
		})
	}

	if bus != nil && bus.RequiresAssistant() && len(assistants) == 0 {
		violations = append(violations, Violation{
			Rule:        RuleAssistantRequired,
			Description: fmt.Sprintf("bus %s is %s and requires an assistant", bus.ID, bus.Type),
		})
	}

	return violations
}
