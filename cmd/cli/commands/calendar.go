package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jakechorley/fleet-ops/pkg/core/services"
)

// parseYearMonth reads the <year> <month> argument pair
func parseYearMonth(args []string) (int, time.Month, error) {
	year, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("year must be a number: %w", err)
	}
	month, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("month must be a number: %w", err)
	}
	return year, time.Month(month), nil
}

// CalendarCmd creates the calendar command
func CalendarCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "calendar <year> <month>",
		Short: "Show every day of a month with its shifts and crew completeness",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := parseYearMonth(args)
			if err != nil {
				return err
			}

			calendar, err := services.GetCalendarMonth(app.Ctx, app.Database, app.Logger, year, month)
			if err != nil {
				return err
			}

			const (
				colorReset = "\033[0m"
				colorRed   = "\033[31m"
				colorDim   = "\033[2m"
			)

			fmt.Printf("\n%s %d\n\n", calendar.Month, calendar.Year)
			for _, day := range calendar.Days {
				if len(day.Shifts) == 0 {
					fmt.Printf("%s%s%s\n", colorDim, day.Date.Format("Mon Jan 02"), colorReset)
					continue
				}
				fmt.Printf("%s\n", day.Date.Format("Mon Jan 02"))
				for _, view := range day.Shifts {
					line := shiftLine(&view.Shift)
					if !view.Complete && !view.Shift.IsCancelled() {
						fmt.Printf("  %s%s  (incomplete crew)%s\n", colorRed, line, colorReset)
						continue
					}
					fmt.Printf("  %s\n", line)
				}
			}
			fmt.Println()
			return nil
		},
	}
}
