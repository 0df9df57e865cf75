package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/fleet-ops/pkg/core/services"
)

// ListShiftsCmd creates the listShifts command
func ListShiftsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listShifts",
		Short: "List shifts in a date range, optionally filtered by bus, driver, type or state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var query services.ShiftQuery
			query.From, _ = cmd.Flags().GetString("from")
			query.To, _ = cmd.Flags().GetString("to")
			query.BusID, _ = cmd.Flags().GetString("bus")
			query.DriverID, _ = cmd.Flags().GetString("driver")
			query.Type, _ = cmd.Flags().GetString("type")
			query.State, _ = cmd.Flags().GetString("state")

			shifts, err := services.GetShiftsByFilter(app.Ctx, app.Database, app.Logger, query)
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d shifts between %s and %s:\n\n", len(shifts), query.From, query.To)
			for i := range shifts {
				fmt.Printf("  %s\n", shiftLine(&shifts[i]))
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().String("from", "", "First day (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Last day (YYYY-MM-DD)")
	cmd.Flags().String("bus", "", "Only shifts on this bus")
	cmd.Flags().String("driver", "", "Only shifts with this driver")
	cmd.Flags().String("type", "", "Only shifts of this type")
	cmd.Flags().String("state", "", "Only shifts in this state")
	return cmd
}
