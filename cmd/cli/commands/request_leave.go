package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/core/services"
)

// RequestLeaveCmd creates the requestLeave command
func RequestLeaveCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "requestLeave <employee_id> <start_date> <end_date>",
		Short: "Record a leave request for an employee (both days inclusive)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			leave, err := services.RequestLeave(app.Ctx, app.Database, app.Logger, services.LeaveInput{
				EmployeeID: args[0],
				StartDate:  args[1],
				EndDate:    args[2],
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Leave requested!\n\n")
			fmt.Printf("Leave ID: %s\n", leave.ID)
			fmt.Printf("Employee: %s\n", leave.EmployeeID)
			fmt.Printf("Days:     %s to %s\n", model.FormatDate(leave.StartDate), model.FormatDate(leave.EndDate))
			fmt.Printf("State:    %s\n\n", leave.State)
			return nil
		},
	}
}
