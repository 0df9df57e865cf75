package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/core/services"
)

// SaveMaintenanceOrderCmd creates the saveMaintenanceOrder command
func SaveMaintenanceOrderCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saveMaintenanceOrder",
		Short: "Create or update a maintenance order and re-derive the bus state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var input services.MaintenanceOrderInput
			input.ID, _ = cmd.Flags().GetString("id")
			input.BusID, _ = cmd.Flags().GetString("bus")
			input.StartDate, _ = cmd.Flags().GetString("start")
			input.EndDate, _ = cmd.Flags().GetString("end")
			input.State, _ = cmd.Flags().GetString("state")
			input.Description, _ = cmd.Flags().GetString("description")

			result, err := services.SaveMaintenanceOrder(app.Ctx, app.Database, app.Logger, input, app.Today())
			if err != nil {
				return err
			}

			o := result.Order
			fmt.Printf("\n✓ Maintenance order saved!\n\n")
			fmt.Printf("Order ID: %s\n", o.ID)
			fmt.Printf("Bus:      %s\n", o.BusID)
			if o.EndDate != nil {
				fmt.Printf("Window:   %s until %s\n", model.FormatDate(o.StartDate), model.FormatDate(*o.EndDate))
			} else {
				fmt.Printf("Window:   from %s, open-ended\n", model.FormatDate(o.StartDate))
			}
			fmt.Printf("State:    %s\n\n", o.State)
			printTransitions(result.Transitions)
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().String("id", "", "Existing order ID to update")
	cmd.Flags().String("bus", "", "Bus ID")
	cmd.Flags().String("start", "", "First day in the workshop (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "Day the bus is back in service (YYYY-MM-DD, exclusive)")
	cmd.Flags().String("state", string(model.OrderInProgress), "Order state: in_progress, completed or cancelled")
	cmd.Flags().String("description", "", "Work description")
	return cmd
}

// DeleteMaintenanceOrderCmd creates the deleteMaintenanceOrder command
func DeleteMaintenanceOrderCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deleteMaintenanceOrder <order_id>",
		Short: "Delete a maintenance order and re-derive the bus state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.DeleteMaintenanceOrder(app.Ctx, app.Database, app.Logger, args[0], app.Today())
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Maintenance order %s deleted\n\n", args[0])
			printTransitions(result.Transitions)
			fmt.Println()
			return nil
		},
	}
}
