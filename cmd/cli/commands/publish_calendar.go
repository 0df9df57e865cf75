package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/fleet-ops/pkg/clients/sheetsclient"
	"github.com/jakechorley/fleet-ops/pkg/core/services"
)

// PublishCalendarCmd creates the publishCalendar command
func PublishCalendarCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publishCalendar <year> <month>",
		Short: "Publish a month of shifts to the calendar sheet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := parseYearMonth(args)
			if err != nil {
				return err
			}

			sheets, err := app.SheetsClient()
			if err != nil {
				return err
			}

			published, err := services.PublishCalendar(app.Ctx, app.Database, sheets, app.Cfg, app.Logger, year, month)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Published %d rows to tab %q\n\n", len(published.Rows), sheetsclient.TabTitle(year, month))
			return nil
		},
	}
}
