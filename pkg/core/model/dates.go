package model

import (
	"fmt"
	"time"
)

// DateLayout is the layout used for calendar dates everywhere in the system
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a "2006-01-02" date into UTC midnight
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// FormatDate formats a date as "2006-01-02"
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
// 24:00 is allowed so a shift may end exactly at midnight.
type TimeOfDay int

const EndOfDay TimeOfDay = 24 * 60

// TimeOfDayLayout is the "HH:MM" layout shift times are written in
const TimeOfDayLayout = "15:04"

// ParseTimeOfDay parses exactly "HH:MM" (00:00 to 24:00)
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != len(TimeOfDayLayout) || s[2] != ':' {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	if s == "24:00" {
		return EndOfDay, nil
	}
	t, err := time.Parse(TimeOfDayLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// Hours returns the hour component
func (t TimeOfDay) Hours() int {
	return int(t) / 60
}

// Minutes returns the minute component
func (t TimeOfDay) Minutes() int {
	return int(t) % 60
}

// Duration returns the offset from midnight
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hours(), t.Minutes())
}
