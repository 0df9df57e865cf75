package sheetsclient

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CalendarRow is one line of the published calendar. A day without shifts
// is published as a row carrying only its date.
type CalendarRow struct {
	Date       string // Format: "Mon Jan 02 2006"
	BusID      string
	Type       string
	Start      string
	End        string
	State      string
	Principal  string
	Support    []string
	Assistants []string
	Complete   bool
}

// PublishedCalendar is one month of shifts ready for a sheet tab
type PublishedCalendar struct {
	Year  int
	Month time.Month
	Rows  []CalendarRow
}

var calendarHeader = []interface{}{"Date", "Bus", "Type", "Start", "End", "State", "Principal driver", "Support drivers", "Assistants", "Crew"}

// TabTitle names the tab for a month, e.g. "January 2025"
func TabTitle(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", month, year)
}

// PublishCalendar writes the month to its own tab, creating the tab on first publish.
// Republishing overwrites the tab.
func (c *Client) PublishCalendar(ctx context.Context, spreadsheetID string, calendar *PublishedCalendar) error {
	title := TabTitle(calendar.Year, calendar.Month)

	exists, err := c.HasSheet(ctx, spreadsheetID, title)
	if err != nil {
		return err
	}
	if !exists {
		if _, err := c.CreateSheet(ctx, spreadsheetID, title); err != nil {
			return fmt.Errorf("failed to create tab %q: %w", title, err)
		}
	}

	return c.ReplaceValues(ctx, spreadsheetID, fmt.Sprintf("'%s'!A1:Z", title), CalendarValues(calendar))
}

// CalendarValues renders the calendar as sheet rows, header first
func CalendarValues(calendar *PublishedCalendar) [][]interface{} {
	values := make([][]interface{}, 0, len(calendar.Rows)+1)
	values = append(values, calendarHeader)

	for _, row := range calendar.Rows {
		if row.BusID == "" {
			values = append(values, []interface{}{row.Date})
			continue
		}

		crew := "incomplete"
		if row.Complete {
			crew = "complete"
		}
		values = append(values, []interface{}{
			row.Date,
			row.BusID,
			row.Type,
			row.Start,
			row.End,
			row.State,
			row.Principal,
			strings.Join(row.Support, ", "),
			strings.Join(row.Assistants, ", "),
			crew,
		})
	}

	return values
}
