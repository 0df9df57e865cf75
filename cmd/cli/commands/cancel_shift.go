package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/fleet-ops/pkg/core/services"
)

// CancelShiftCmd creates the cancelShift command
func CancelShiftCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancelShift <shift_id>",
		Short: "Cancel a shift and release its bus and crew",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shift, err := services.CancelShift(app.Ctx, app.Database, app.Logger, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Shift %s is %s\n\n", shift.ID, shift.State)
			return nil
		},
	}
}
