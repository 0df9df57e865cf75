package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/pkg/core/services"
)

// addShiftFlags registers the flags shared by createShift and updateShift
func addShiftFlags(cmd *cobra.Command) {
	cmd.Flags().String("bus", "", "Bus ID")
	cmd.Flags().String("date", "", "Shift date (YYYY-MM-DD)")
	cmd.Flags().String("start", "", "Start time (HH:MM)")
	cmd.Flags().String("end", "", "End time (HH:MM, 24:00 for midnight)")
	cmd.Flags().String("type", "", "Shift type: morning, afternoon or night")
	cmd.Flags().String("notes", "", "Free text notes")
	cmd.Flags().StringArray("driver", nil, "Driver as id[:principal|support], repeatable")
	cmd.Flags().StringArray("assistant", nil, "Assistant as id[:upper_deck|lower_deck|general], repeatable")
}

func shiftInputFromFlags(cmd *cobra.Command) (services.ShiftInput, error) {
	var input services.ShiftInput
	input.BusID, _ = cmd.Flags().GetString("bus")
	input.Date, _ = cmd.Flags().GetString("date")
	input.Start, _ = cmd.Flags().GetString("start")
	input.End, _ = cmd.Flags().GetString("end")
	input.Type, _ = cmd.Flags().GetString("type")
	input.Notes, _ = cmd.Flags().GetString("notes")

	driverFlags, _ := cmd.Flags().GetStringArray("driver")
	drivers, err := parseDrivers(driverFlags)
	if err != nil {
		return input, err
	}
	input.Drivers = drivers

	assistantFlags, _ := cmd.Flags().GetStringArray("assistant")
	assistants, err := parseAssistants(assistantFlags)
	if err != nil {
		return input, err
	}
	input.Assistants = assistants

	return input, nil
}

// CreateShiftCmd creates the createShift command
func CreateShiftCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createShift",
		Short: "Book a bus and crew into a new shift",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := shiftInputFromFlags(cmd)
			if err != nil {
				return err
			}

			app.Logger.Debug("createShift command",
				zap.String("bus_id", input.BusID),
				zap.String("date", input.Date))

			shift, err := services.CreateShift(app.Ctx, app.Database, app.Logger, input)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Shift created successfully!\n\n")
			printShift(shift)
			fmt.Println()
			return nil
		},
	}
	addShiftFlags(cmd)
	return cmd
}
