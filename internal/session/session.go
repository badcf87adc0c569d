package session

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Session is the tracked state of one billiard table for the current day
type Session struct {
	TableNumber    int
	PlayerName     string
	HourlyRate     decimal.Decimal
	StartTime      *time.Time
	ElapsedSeconds int64
	TotalFees      decimal.Decimal
	Active         bool
}

// New returns a zeroed session for the given table
func New(tableNumber int, hourlyRate decimal.Decimal) Session {
	return Session{
		TableNumber: tableNumber,
		HourlyRate:  hourlyRate,
		TotalFees:   decimal.Zero,
	}
}

// Fresh returns count zeroed sessions numbered 1..count
func Fresh(count int, hourlyRate decimal.Decimal) []Session {
	sessions := make([]Session, count)
	for i := range sessions {
		sessions[i] = New(i+1, hourlyRate)
	}
	return sessions
}

// Label is the table label used in the workbook and console ("Table 3")
func (s Session) Label() string {
	return Label(s.TableNumber)
}

// Label formats a table number as its display label
func Label(tableNumber int) string {
	return fmt.Sprintf("Table %d", tableNumber)
}

// Started reports whether the session has ever been started.
func (s Session) Started() bool {
	return s.StartTime != nil
}

// CanStart reports whether a start action is allowed
func (s Session) CanStart() bool {
	return !s.Active
}

// CanPause reports whether a pause action is allowed
func (s Session) CanPause() bool {
	return s.Active
}

// CanStop reports whether a stop action is allowed. Stop stays available
// after a pause as long as the table was started at some point.
func (s Session) CanStop() bool {
	return s.Started()
}

// FormatElapsed renders seconds as HH:MM:SS
func FormatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hrs := seconds / 3600
	mins := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hrs, mins, secs)
}

// Totals sums elapsed seconds and fees over a set of sessions
func Totals(sessions []Session) (int64, decimal.Decimal) {
	var elapsed int64
	fees := decimal.Zero
	for _, s := range sessions {
		elapsed += s.ElapsedSeconds
		fees = fees.Add(s.TotalFees)
	}
	return elapsed, fees
}

// Clone returns deep copies of sessions
func Clone(sessions []Session) []Session {
	if sessions == nil {
		return nil
	}
	out := make([]Session, len(sessions))
	for i, s := range sessions {
		out[i] = s.clone()
	}
	return out
}

func (s Session) clone() Session {
	if s.StartTime != nil {
		t := *s.StartTime
		s.StartTime = &t
	}
	return s
}
