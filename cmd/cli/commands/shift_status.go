package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/fleet-ops/pkg/core/services"
)

// ShiftStatusCmd creates the shiftStatus command
func ShiftStatusCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "shiftStatus <shift_id>",
		Short: "Show a shift, its crew and whether the crew is complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shift, err := app.Database.GetShift(app.Ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get shift: %w", err)
			}
			complete, err := services.IsComplete(app.Ctx, app.Database, shift.ID)
			if err != nil {
				return err
			}

			fmt.Println()
			printShift(shift)
			fmt.Printf("Complete: %t\n\n", complete)
			return nil
		},
	}
}
