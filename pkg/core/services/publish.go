package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/internal/config"
	"github.com/jakechorley/fleet-ops/pkg/clients/sheetsclient"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

// CalendarPublisher writes a month of shifts to a spreadsheet
type CalendarPublisher interface {
	PublishCalendar(ctx context.Context, spreadsheetID string, calendar *sheetsclient.PublishedCalendar) error
}

// PublishCalendar builds the month's calendar and writes it to the configured spreadsheet.
// Cancelled shifts are left out.
func PublishCalendar(
	ctx context.Context,
	store db.ShiftReader,
	publisher CalendarPublisher,
	cfg *config.Config,
	logger *zap.Logger,
	year int,
	month time.Month,
) (*sheetsclient.PublishedCalendar, error) {
	if cfg.CalendarSheetID == "" {
		return nil, &ValidationError{Field: "calendarSheetID", Reason: "not set in config"}
	}

	calendar, err := GetCalendarMonth(ctx, store, logger, year, month)
	if err != nil {
		return nil, err
	}

	published := BuildPublishedCalendar(calendar)

	logger.Debug("Publishing calendar",
		zap.String("tab", sheetsclient.TabTitle(year, month)),
		zap.Int("rows", len(published.Rows)))

	if err := publisher.PublishCalendar(ctx, cfg.CalendarSheetID, published); err != nil {
		return nil, fmt.Errorf("failed to publish calendar: %w", err)
	}

	logger.Info("Calendar published",
		zap.String("tab", sheetsclient.TabTitle(year, month)),
		zap.Int("rows", len(published.Rows)))

	return published, nil
}

// BuildPublishedCalendar flattens a calendar month into sheet rows
func BuildPublishedCalendar(calendar *CalendarMonth) *sheetsclient.PublishedCalendar {
	published := &sheetsclient.PublishedCalendar{
		Year:  calendar.Year,
		Month: calendar.Month,
		Rows:  []sheetsclient.CalendarRow{},
	}

	for _, day := range calendar.Days {
		date := day.Date.Format("Mon Jan 02 2006")
		wrote := false

		for _, view := range day.Shifts {
			shift := view.Shift
			if shift.IsCancelled() {
				continue
			}

			row := sheetsclient.CalendarRow{
				Date:       date,
				BusID:      shift.BusID,
				Type:       string(shift.Type),
				Start:      shift.Start.String(),
				End:        shift.End.String(),
				State:      string(shift.State),
				Support:    []string{},
				Assistants: []string{},
				Complete:   view.Complete,
			}
			if p := PrincipalDriver(&shift); p != nil {
				row.Principal = p.DriverID
			}
			for _, d := range SupportDrivers(&shift) {
				row.Support = append(row.Support, d.DriverID)
			}
			for _, a := range shift.Assistants {
				row.Assistants = append(row.Assistants, fmt.Sprintf("%s (%s)", a.AssistantID, a.Position))
			}

			published.Rows = append(published.Rows, row)
			wrote = true
		}

		if !wrote {
			published.Rows = append(published.Rows, sheetsclient.CalendarRow{Date: date})
		}
	}

	return published
}
