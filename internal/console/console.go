package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/tabletime/internal/session"
	"github.com/goodtune/tabletime/internal/tracker"
	"github.com/rs/zerolog"
)

// ErrUsage is returned for malformed commands
var ErrUsage = errors.New("usage")

// Tracker is the set of table actions the console drives
type Tracker interface {
	Day() string
	Sessions() []session.Session
	Start(ctx context.Context, index int) (session.Session, error)
	Pause(ctx context.Context, index int) (session.Session, error)
	Stop(ctx context.Context, index int) (session.Session, error)
	SetPlayerName(index int, name string) (session.Session, error)
	SetHourlyRateText(index int, input string) (session.Session, error)
}

// History reads persisted day-tabs
type History interface {
	Day(day string) ([]session.Session, error)
	Days() ([]string, error)
}

// Console is a line-oriented operator interface
type Console struct {
	tracker  Tracker
	history  History
	location *time.Location
	in       io.Reader
	out      io.Writer
	logger   zerolog.Logger

	green  *color.Color
	yellow *color.Color
	red    *color.Color
	cyan   *color.Color
}

// New creates a console reading commands from in and writing to out
func New(t Tracker, history History, location *time.Location, in io.Reader, out io.Writer, logger zerolog.Logger) *Console {
	if location == nil {
		location = time.Local
	}

	return &Console{
		tracker:  t,
		history:  history,
		location: location,
		in:       in,
		out:      out,
		logger:   logger.With().Str("component", "console").Logger(),
		green:    color.New(color.FgGreen, color.Bold),
		yellow:   color.New(color.FgYellow, color.Bold),
		red:      color.New(color.FgRed, color.Bold),
		cyan:     color.New(color.FgCyan, color.Bold),
	}
}

// Run reads commands until quit or end of input. Cancelling ctx ends the
// loop after the next line is read.
func (c *Console) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)

	c.printStatus()
	c.prompt()

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		line := scanner.Text()
		quit, err := c.Execute(ctx, line)
		if err != nil {
			c.logger.Debug().Err(err).Str("command", line).Msg("Command failed")
			c.red.Fprintf(c.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
		c.prompt()
	}

	return scanner.Err()
}

// Execute runs a single command line. It reports whether the console
// should exit.
func (c *Console) Execute(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	command := strings.ToLower(fields[0])
	args := fields[1:]

	switch command {
	case "quit", "exit", "q":
		return true, nil

	case "help", "?":
		c.printHelp()
		return false, nil

	case "status", "ls":
		c.printStatus()
		return false, nil

	case "start", "pause", "stop":
		if len(args) != 1 {
			return false, fmt.Errorf("%w: %s TABLE", ErrUsage, command)
		}
		index, err := c.parseTable(args[0])
		if err != nil {
			return false, err
		}
		return false, c.runAction(ctx, command, index)

	case "player":
		if len(args) < 1 {
			return false, fmt.Errorf("%w: player TABLE [NAME]", ErrUsage)
		}
		index, err := c.parseTable(args[0])
		if err != nil {
			return false, err
		}
		s, err := c.tracker.SetPlayerName(index, strings.Join(args[1:], " "))
		if err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "%s player: %q\n", s.Label(), s.PlayerName)
		return false, nil

	case "rate":
		if len(args) != 2 {
			return false, fmt.Errorf("%w: rate TABLE AMOUNT", ErrUsage)
		}
		index, err := c.parseTable(args[0])
		if err != nil {
			return false, err
		}
		s, err := c.tracker.SetHourlyRateText(index, args[1])
		if err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "%s rate: %s/hour\n", s.Label(), s.HourlyRate.StringFixed(2))
		return false, nil

	case "history":
		if len(args) > 1 {
			return false, fmt.Errorf("%w: history [DATE]", ErrUsage)
		}
		if len(args) == 0 {
			return false, c.printDays()
		}
		return false, c.printDay(args[0])

	default:
		return false, fmt.Errorf("unknown command %q (try help)", command)
	}
}

func (c *Console) runAction(ctx context.Context, action string, index int) error {
	var (
		s   session.Session
		err error
	)

	switch action {
	case "start":
		s, err = c.tracker.Start(ctx, index)
	case "pause":
		s, err = c.tracker.Pause(ctx, index)
	case "stop":
		s, err = c.tracker.Stop(ctx, index)
	}

	// A stop whose save failed still took effect
	if err != nil && !errors.Is(err, tracker.ErrNotSaved) {
		return err
	}

	switch action {
	case "start":
		c.green.Fprintf(c.out, "%s started", s.Label())
		fmt.Fprintf(c.out, " at %s\n", s.StartTime.In(c.location).Format("15:04:05"))
	case "pause":
		c.yellow.Fprintf(c.out, "%s paused", s.Label())
		fmt.Fprintf(c.out, " at %s\n", session.FormatElapsed(s.ElapsedSeconds))
	case "stop":
		c.cyan.Fprintf(c.out, "%s stopped", s.Label())
		fmt.Fprintf(c.out, ": %s at %s/hour = %s\n",
			session.FormatElapsed(s.ElapsedSeconds),
			s.HourlyRate.StringFixed(2),
			s.TotalFees.StringFixed(2))
	}

	return err
}

// parseTable converts a 1-based table number into an index
func (c *Console) parseTable(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(arg), "t"))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", session.ErrUnknownTable, arg)
	}
	return n - 1, nil
}

func (c *Console) prompt() {
	fmt.Fprint(c.out, "> ")
}

func (c *Console) printStatus() {
	c.cyan.Fprintf(c.out, "Business day %s\n", c.tracker.Day())
	RenderSessions(c.out, c.tracker.Sessions(), c.location)
}

func (c *Console) printDays() error {
	days, err := c.history.Days()
	if err != nil {
		return err
	}
	if len(days) == 0 {
		fmt.Fprintln(c.out, "No days recorded")
		return nil
	}
	for _, day := range days {
		fmt.Fprintln(c.out, day)
	}
	return nil
}

func (c *Console) printDay(day string) error {
	sessions, err := c.history.Day(day)
	if err != nil {
		return err
	}
	c.cyan.Fprintf(c.out, "Business day %s\n", day)
	RenderSessions(c.out, sessions, c.location)
	return nil
}

func (c *Console) printHelp() {
	c.cyan.Fprintln(c.out, "Commands")
	fmt.Fprint(c.out, `  status               show every table
  start TABLE          start or resume a table
  pause TABLE          stop accruing time without billing
  stop TABLE           stop, compute fees and save the workbook
  player TABLE NAME    set the player name (empty clears it)
  rate TABLE AMOUNT    set the hourly rate
  history [DATE]       list recorded days or show one (YYYY-MM-DD)
  quit                 exit
`)
}
