package tracker

import (
	"time"

	"github.com/goodtune/tabletime/internal/workbook"
)

// BusinessDay returns the tab name for the business day containing now.
// A day starts at resetTime (only hour and minute are used), so with a 06:00
// reset, play at 01:00 still belongs to the previous date.
func BusinessDay(now time.Time, resetTime time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	// Get today at reset time
	today := time.Date(now.Year(), now.Month(), now.Day(), resetTime.Hour(), resetTime.Minute(), 0, 0, loc)

	// If we haven't reached reset time today, yesterday is still the current "day"
	if now.Before(today) {
		today = today.AddDate(0, 0, -1)
	}

	return today.Format(workbook.DayLayout)
}

// NextReset returns the first reset instant strictly after now
func NextReset(now time.Time, resetTime time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	todayReset := time.Date(
		now.Year(), now.Month(), now.Day(),
		resetTime.Hour(), resetTime.Minute(), 0, 0,
		loc,
	)

	// If we've already passed today's reset time, schedule for tomorrow
	if !now.Before(todayReset) {
		return todayReset.AddDate(0, 0, 1)
	}

	return todayReset
}

// ParseResetTime parses an HH:MM reset time
func ParseResetTime(s string) (time.Time, error) {
	if s == "" {
		s = "00:00"
	}
	return time.Parse("15:04", s)
}
