package commands

import (
	"fmt"
	"strings"

	"github.com/jakechorley/fleet-ops/pkg/core/fleetsync"
	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/core/services"
)

func printShift(s *model.Shift) {
	fmt.Printf("Shift ID: %s\n", s.ID)
	fmt.Printf("Bus:      %s\n", s.BusID)
	fmt.Printf("When:     %s %s-%s (%s)\n", model.FormatDate(s.Date), s.Start, s.End, s.Type)
	fmt.Printf("State:    %s\n", s.State)

	if principal := services.PrincipalDriver(s); principal != nil {
		fmt.Printf("Principal driver: %s\n", principal.DriverID)
	} else {
		fmt.Printf("Principal driver: (none)\n")
	}
	for _, d := range services.SupportDrivers(s) {
		fmt.Printf("Support driver:   %s\n", d.DriverID)
	}
	for _, a := range s.Assistants {
		fmt.Printf("Assistant:        %s (%s)\n", a.AssistantID, a.Position)
	}
	if s.Notes != "" {
		fmt.Printf("Notes:    %s\n", s.Notes)
	}
}

// shiftLine renders a shift on one line for list output
func shiftLine(s *model.Shift) string {
	principal := "-"
	if p := services.PrincipalDriver(s); p != nil {
		principal = p.DriverID
	}
	return fmt.Sprintf("%s  %s-%s  %-6s  %-9s  %-11s  driver=%s crew=%d  %s",
		model.FormatDate(s.Date), s.Start, s.End, s.BusID, s.Type, s.State,
		principal, len(s.Drivers)+len(s.Assistants), s.ID)
}

func printTransitions(transitions []fleetsync.Transition) {
	if len(transitions) == 0 {
		fmt.Println("No state changes.")
		return
	}
	fmt.Printf("State changes:\n")
	for _, t := range transitions {
		fmt.Printf("  %s %s: %s -> %s (%s)\n", t.EntityKind, t.EntityID, t.From, t.To, t.Reason)
	}
}

func printSummary(s *fleetsync.Summary) {
	fmt.Printf("\n✓ %s for %s: %d updated, %d skipped, %d warning(s)\n",
		s.Job, model.FormatDate(s.Date), s.Updated, s.Skipped, len(s.Warnings))
	if len(s.Transitions) > 0 {
		printTransitions(s.Transitions)
	}
	if len(s.Warnings) > 0 {
		fmt.Printf("⚠️  Warnings:\n")
		for _, w := range s.Warnings {
			fmt.Printf("  %s\n", w)
		}
	}
}

// parseDrivers reads driver flags in the form id or id:role. A bare id is the principal.
func parseDrivers(values []string) ([]services.DriverInput, error) {
	drivers := make([]services.DriverInput, 0, len(values))
	for _, v := range values {
		id, role, found := strings.Cut(v, ":")
		if !found {
			role = string(model.RolePrincipal)
		}
		if id == "" {
			return nil, fmt.Errorf("invalid driver %q, expected id[:role]", v)
		}
		drivers = append(drivers, services.DriverInput{DriverID: id, Role: role})
	}
	return drivers, nil
}

// parseAssistants reads assistant flags in the form id or id:position. A bare id gets the general position.
func parseAssistants(values []string) ([]services.AssistantInput, error) {
	assistants := make([]services.AssistantInput, 0, len(values))
	for _, v := range values {
		id, position, found := strings.Cut(v, ":")
		if !found {
			position = string(model.PositionGeneral)
		}
		if id == "" {
			return nil, fmt.Errorf("invalid assistant %q, expected id[:position]", v)
		}
		assistants = append(assistants, services.AssistantInput{AssistantID: id, Position: position})
	}
	return assistants, nil
}
