package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/fleet-ops/pkg/core/services"
)

// AddCrewCmd creates the addCrew command
func AddCrewCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addCrew <shift_id> <driver|assistant> <member_id>",
		Short: "Add a driver or assistant to an existing shift",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")
			position, _ := cmd.Flags().GetString("position")

			shift, err := services.AddCrew(app.Ctx, app.Database, app.Logger, args[0], services.CrewInput{
				Kind:     args[1],
				MemberID: args[2],
				Role:     role,
				Position: position,
			})
			if err != nil {
				return err
			}

			complete, err := services.IsComplete(app.Ctx, app.Database, shift.ID)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ %s %s added to shift\n\n", args[1], args[2])
			printShift(shift)
			fmt.Printf("Complete: %t\n\n", complete)
			return nil
		},
	}
	cmd.Flags().String("role", "support", "Driver role: principal or support")
	cmd.Flags().String("position", "general", "Assistant position: upper_deck, lower_deck or general")
	return cmd
}
