package console

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/tabletime/internal/session"
)

// Table states shown in listings
const (
	StateIdle    = "idle"
	StateRunning = "running"
	StatePaused  = "paused"
	StateBilled  = "billed"
)

// State describes a session for display. A stopped table shows as billed
// once it has fees.
func State(s session.Session) string {
	switch {
	case s.Active:
		return StateRunning
	case !s.Started():
		return StateIdle
	case s.TotalFees.IsPositive():
		return StateBilled
	default:
		return StatePaused
	}
}

// Actions lists the commands currently allowed for a table
func Actions(s session.Session) string {
	var allowed []string
	if s.CanStart() {
		allowed = append(allowed, "start")
	}
	if s.CanPause() {
		allowed = append(allowed, "pause")
	}
	if s.CanStop() {
		allowed = append(allowed, "stop")
	}
	return strings.Join(allowed, ",")
}

// RenderSessions writes one aligned row per table followed by a totals row
func RenderSessions(w io.Writer, sessions []session.Session, loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}

	states := map[string]*color.Color{
		StateRunning: color.New(color.FgGreen, color.Bold),
		StatePaused:  color.New(color.FgYellow, color.Bold),
		StateBilled:  color.New(color.FgCyan),
		StateIdle:    color.New(color.Faint),
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tPLAYER\tRATE\tSTART\tELAPSED\tFEES\tACTIONS\tSTATE")

	for _, s := range sessions {
		start := "-"
		if s.Started() {
			start = s.StartTime.In(loc).Format("15:04:05")
		}
		player := s.PlayerName
		if player == "" {
			player = "-"
		}

		state := State(s)
		// State is the last column so color codes do not skew alignment
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Label(),
			player,
			s.HourlyRate.StringFixed(2),
			start,
			session.FormatElapsed(s.ElapsedSeconds),
			s.TotalFees.StringFixed(2),
			Actions(s),
			states[state].Sprint(state),
		)
	}

	elapsed, fees := session.Totals(sessions)
	fmt.Fprintf(tw, "TOTAL\t\t\t\t%s\t%s\t\t\n", session.FormatElapsed(elapsed), fees.StringFixed(2))

	_ = tw.Flush()
}
