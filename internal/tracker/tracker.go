package tracker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/goodtune/tabletime/internal/journal"
	"github.com/goodtune/tabletime/internal/metrics"
	"github.com/goodtune/tabletime/internal/session"
	"github.com/goodtune/tabletime/internal/timer"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultJournalTimeout bounds a single journal append
const DefaultJournalTimeout = 2 * time.Second

// ErrNotSaved is returned by Stop when the stop took effect in memory but
// the workbook could not be written.
var ErrNotSaved = errors.New("workbook not saved")

// Persister loads and saves a business day's sessions
type Persister interface {
	LoadOrInit(day string) []session.Session
	Save(ctx context.Context, day string, sessions []session.Session) error
}

// Config holds tracker configuration
type Config struct {
	Timer     timer.Config
	ResetTime time.Time // only hour and minute are used
	Location  *time.Location
}

// Tracker owns the table sessions for the current business day. Table
// actions are serialized; timer ticks only take the store lock.
type Tracker struct {
	store     *session.Store
	engine    *timer.Engine
	persister Persister
	journal   journal.Journal
	clock     timer.Clock
	resetTime time.Time
	location  *time.Location
	logger    zerolog.Logger

	opMu sync.Mutex // serializes table actions and rollover

	dayMu sync.RWMutex
	day   string
}

// New creates a tracker and loads the current business day
func New(persister Persister, j journal.Journal, clock timer.Clock, config Config, logger zerolog.Logger) *Tracker {
	if clock == nil {
		clock = timer.RealClock{}
	}
	if j == nil {
		j = journal.Nop{}
	}
	if config.Location == nil {
		config.Location = time.Local
	}

	t := &Tracker{
		persister: persister,
		journal:   j,
		clock:     clock,
		resetTime: config.ResetTime,
		location:  config.Location,
		logger:    logger.With().Str("component", "tracker").Logger(),
	}

	t.day = BusinessDay(clock.Now(), t.resetTime, t.location)
	t.store = session.NewStore(persister.LoadOrInit(t.day))
	t.engine = timer.NewEngine(clock, config.Timer, t.tick, logger)

	t.logger.Info().
		Str("day", t.day).
		Int("tables", t.store.Len()).
		Msg("Sessions loaded")

	return t
}

// Day returns the current business day
func (t *Tracker) Day() string {
	t.dayMu.RLock()
	defer t.dayMu.RUnlock()
	return t.day
}

// Sessions returns a snapshot of every table
func (t *Tracker) Sessions() []session.Session {
	return t.store.All()
}

// Session returns a snapshot of the table at index
func (t *Tracker) Session(index int) (session.Session, error) {
	return t.store.Get(index)
}

// Running returns the indexes of tables whose timers are live
func (t *Tracker) Running() []int {
	return t.engine.Active()
}

// Tables returns the number of tables
func (t *Tracker) Tables() int {
	return t.store.Len()
}

// Start begins or resumes timing a table
func (t *Tracker) Start(ctx context.Context, index int) (session.Session, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	updated, err := t.store.Update(index, func(s *session.Session) error {
		if !s.CanStart() {
			return fmt.Errorf("%w: %s", session.ErrAlreadyActive, s.Label())
		}
		now := t.clock.Now()
		s.StartTime = &now
		s.Active = true
		return nil
	})
	if err != nil {
		t.recordAction("start", err)
		return updated, err
	}

	t.engine.Run(index)
	t.recordAction("start", nil)

	t.logger.Info().
		Int("table", updated.TableNumber).
		Str("player", updated.PlayerName).
		Int64("elapsed_seconds", updated.ElapsedSeconds).
		Msg("Table started")

	t.appendEvent(ctx, journal.EventStart, updated)
	return updated, nil
}

// Pause stops accruing time without computing fees
func (t *Tracker) Pause(ctx context.Context, index int) (session.Session, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	current, err := t.store.Get(index)
	if err != nil {
		t.recordAction("pause", err)
		return current, err
	}
	if !current.CanPause() {
		err := fmt.Errorf("%w: %s", session.ErrNotActive, current.Label())
		t.recordAction("pause", err)
		return current, err
	}

	// Cancel first so a tick already delivered is counted
	t.engine.Cancel(index)

	updated, err := t.store.Update(index, func(s *session.Session) error {
		s.Active = false
		return nil
	})
	if err != nil {
		t.recordAction("pause", err)
		return updated, err
	}
	t.recordAction("pause", nil)

	t.logger.Info().
		Int("table", updated.TableNumber).
		Int64("elapsed_seconds", updated.ElapsedSeconds).
		Msg("Table paused")

	t.appendEvent(ctx, journal.EventPause, updated)
	return updated, nil
}

// Stop ends timing, computes fees and saves every table of the current day.
// The returned session reflects the stop even when the save fails.
func (t *Tracker) Stop(ctx context.Context, index int) (session.Session, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	current, err := t.store.Get(index)
	if err != nil {
		t.recordAction("stop", err)
		return current, err
	}
	if !current.CanStop() {
		err := fmt.Errorf("%w: %s", session.ErrNeverStarted, current.Label())
		t.recordAction("stop", err)
		return current, err
	}

	t.engine.Cancel(index)

	updated, err := t.store.Update(index, func(s *session.Session) error {
		s.Active = false
		s.TotalFees = session.CalculateFee(s.ElapsedSeconds, s.HourlyRate)
		return nil
	})
	if err != nil {
		t.recordAction("stop", err)
		return updated, err
	}

	// Only newly billed amounts are counted when a table is stopped twice
	if delta := updated.TotalFees.Sub(current.TotalFees); delta.IsPositive() {
		metrics.FeesBilledTotal.WithLabelValues(tableLabel(index)).Add(delta.InexactFloat64())
	}

	t.logger.Info().
		Int("table", updated.TableNumber).
		Str("player", updated.PlayerName).
		Str("hourly_rate", updated.HourlyRate.String()).
		Str("elapsed", session.FormatElapsed(updated.ElapsedSeconds)).
		Str("total_fees", updated.TotalFees.StringFixed(2)).
		Msg("Table stopped")

	t.appendEvent(ctx, journal.EventStop, updated)

	if err := t.persister.Save(ctx, t.Day(), t.store.All()); err != nil {
		t.recordAction("stop", err)
		t.logger.Error().Err(err).Int("table", updated.TableNumber).Msg("Failed to save workbook")
		return updated, fmt.Errorf("%w: %w", ErrNotSaved, err)
	}

	t.recordAction("stop", nil)
	return updated, nil
}

// SetPlayerName replaces a table's player name. Allowed in any state.
func (t *Tracker) SetPlayerName(index int, name string) (session.Session, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	updated, err := t.store.Update(index, func(s *session.Session) error {
		s.PlayerName = name
		return nil
	})
	t.recordAction("player", err)
	if err != nil {
		return updated, err
	}

	t.logger.Debug().Int("table", updated.TableNumber).Str("player", name).Msg("Player set")
	return updated, nil
}

// SetHourlyRate replaces a table's hourly rate. Negative rates are rejected
// and the previous rate is kept. Fees are not recomputed until the next stop.
func (t *Tracker) SetHourlyRate(index int, rate decimal.Decimal) (session.Session, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	updated, err := t.store.Update(index, func(s *session.Session) error {
		if err := session.CheckRate(rate); err != nil {
			return err
		}
		s.HourlyRate = rate
		return nil
	})
	t.recordAction("rate", err)
	if err != nil {
		return updated, err
	}

	t.logger.Debug().Int("table", updated.TableNumber).Str("hourly_rate", rate.String()).Msg("Rate set")
	return updated, nil
}

// SetHourlyRateText parses user input and applies it as the hourly rate
func (t *Tracker) SetHourlyRateText(index int, input string) (session.Session, error) {
	current, err := t.store.Get(index)
	if err != nil {
		t.recordAction("rate", err)
		return current, err
	}

	rate, err := session.ParseRate(input)
	if err != nil {
		t.recordAction("rate", err)
		return current, err
	}
	return t.SetHourlyRate(index, rate)
}

// Shutdown pauses every running table and saves the current day so no
// accrued time is lost on exit.
func (t *Tracker) Shutdown(ctx context.Context) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	running := t.engine.Active()
	t.engine.CancelAll()
	metrics.TablesActive.Set(0)

	sessions := t.store.All()
	for i := range sessions {
		sessions[i].Active = false
	}
	t.store.Replace(sessions)

	if err := t.persister.Save(ctx, t.Day(), sessions); err != nil {
		return fmt.Errorf("%w: %w", ErrNotSaved, err)
	}

	t.logger.Info().
		Int("paused", len(running)).
		Str("day", t.Day()).
		Msg("Sessions saved on shutdown")
	return nil
}

// Close cancels every running timer. Sessions are not saved.
func (t *Tracker) Close() {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	t.engine.CancelAll()
	metrics.TablesActive.Set(0)
}

// tick is called from timer goroutines
func (t *Tracker) tick(index int, seconds int64) {
	_, err := t.store.Update(index, func(s *session.Session) error {
		if !s.Active {
			return session.ErrNotActive
		}
		s.ElapsedSeconds += seconds
		return nil
	})
	if err != nil {
		return
	}
	metrics.ElapsedSecondsTotal.WithLabelValues(tableLabel(index)).Add(float64(seconds))
}

func (t *Tracker) recordAction(action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.TableActionsTotal.WithLabelValues(action, result).Inc()
	metrics.TablesActive.Set(float64(len(t.engine.Active())))
}

// appendEvent journals an action. Failures are logged and never fail the action.
func (t *Tracker) appendEvent(ctx context.Context, eventType journal.EventType, s session.Session) {
	ctx, cancel := context.WithTimeout(ctx, DefaultJournalTimeout)
	defer cancel()

	event := journal.Event{
		Day:            t.Day(),
		Type:           eventType,
		Table:          s.TableNumber,
		Player:         s.PlayerName,
		HourlyRate:     s.HourlyRate.String(),
		ElapsedSeconds: s.ElapsedSeconds,
		At:             t.clock.Now(),
	}
	if eventType == journal.EventStop {
		event.TotalFees = s.TotalFees.StringFixed(2)
	}

	if err := t.journal.Append(ctx, event); err != nil {
		metrics.JournalErrors.Inc()
		t.logger.Warn().Err(err).
			Int("table", s.TableNumber).
			Str("event", string(eventType)).
			Msg("Failed to journal table event")
	}
}

func tableLabel(index int) string {
	return strconv.Itoa(index + 1)
}
