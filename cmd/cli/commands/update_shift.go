package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/pkg/core/services"
)

// UpdateShiftCmd creates the updateShift command
func UpdateShiftCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "updateShift <shift_id>",
		Short: "Replace a shift's bus, window and crew",
		Long: `Replace every field of a scheduled shift. Flags describe the whole shift,
so omitted drivers and assistants are removed from it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := shiftInputFromFlags(cmd)
			if err != nil {
				return err
			}

			app.Logger.Debug("updateShift command", zap.String("shift_id", args[0]))

			shift, err := services.UpdateShift(app.Ctx, app.Database, app.Logger, args[0], input)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Shift updated successfully!\n\n")
			printShift(shift)
			fmt.Println()
			return nil
		},
	}
	addShiftFlags(cmd)
	return cmd
}
