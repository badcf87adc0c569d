package tracker

import (
	"context"
	"time"

	"github.com/goodtune/tabletime/internal/journal"
	"github.com/goodtune/tabletime/internal/metrics"
	"github.com/rs/zerolog"
)

// Rollover switches to a new business day once the reset time has passed.
// Running tables are paused and the closing day is saved before the new
// day's tab is loaded. It reports whether the day changed.
func (t *Tracker) Rollover(ctx context.Context) (bool, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	oldDay := t.Day()
	newDay := BusinessDay(t.clock.Now(), t.resetTime, t.location)
	if newDay == oldDay {
		return false, nil
	}

	running := t.engine.Active()
	t.engine.CancelAll()
	if len(running) > 0 {
		tables := make([]int, len(running))
		for i, index := range running {
			tables[i] = index + 1
		}
		t.logger.Warn().
			Ints("tables", tables).
			Str("day", oldDay).
			Msg("Pausing running tables at day rollover")
	}

	closing := t.store.All()
	for i := range closing {
		closing[i].Active = false
	}

	var saveErr error
	if err := t.persister.Save(ctx, oldDay, closing); err != nil {
		saveErr = err
		t.logger.Error().Err(err).Str("day", oldDay).Msg("Failed to save closing day")
	}

	t.store.Replace(t.persister.LoadOrInit(newDay))

	t.dayMu.Lock()
	t.day = newDay
	t.dayMu.Unlock()

	metrics.Rollovers.Inc()
	metrics.TablesActive.Set(0)

	jctx, cancel := context.WithTimeout(ctx, DefaultJournalTimeout)
	defer cancel()
	if err := t.journal.Append(jctx, journal.Event{Day: newDay, Type: journal.EventRollover, At: t.clock.Now()}); err != nil {
		metrics.JournalErrors.Inc()
		t.logger.Warn().Err(err).Msg("Failed to journal rollover")
	}

	t.logger.Info().
		Str("from", oldDay).
		Str("to", newDay).
		Msg("Business day rolled over")

	return true, saveErr
}

// DefaultRolloverRecheck bounds how long the scheduler sleeps before
// comparing the wall clock with the business day again. Timers do not
// advance while the host is suspended.
const DefaultRolloverRecheck = time.Minute

// RolloverScheduler calls Rollover at each daily reset time
type RolloverScheduler struct {
	tracker  *Tracker
	logger   zerolog.Logger
	recheck  time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewRolloverScheduler creates a new rollover scheduler
func NewRolloverScheduler(tracker *Tracker, logger zerolog.Logger) *RolloverScheduler {
	return &RolloverScheduler{
		tracker:  tracker,
		logger:   logger.With().Str("component", "rollover-scheduler").Logger(),
		recheck:  DefaultRolloverRecheck,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the rollover scheduler
func (rs *RolloverScheduler) Start() {
	go rs.run()
	rs.logger.Info().
		Str("reset_time", rs.tracker.resetTime.Format("15:04")).
		Msg("Day rollover scheduler started")
}

// Stop stops the rollover scheduler and waits for it to exit
func (rs *RolloverScheduler) Stop() {
	close(rs.stopChan)
	<-rs.doneChan
	rs.logger.Info().Msg("Day rollover scheduler stopped")
}

// run is the main scheduler loop
func (rs *RolloverScheduler) run() {
	defer close(rs.doneChan)

	for {
		now := rs.tracker.clock.Now()
		nextReset := NextReset(now, rs.tracker.resetTime, rs.tracker.location)
		waitDuration := nextReset.Round(0).Sub(now.Round(0))
		if waitDuration > rs.recheck {
			waitDuration = rs.recheck
		}

		rs.logger.Debug().
			Time("next_reset", nextReset).
			Dur("wait_duration", waitDuration).
			Msg("Scheduled next day rollover")

		wait := time.NewTimer(waitDuration)
		select {
		case <-wait.C:
			// Rollover is a no-op until the business day has changed
			if _, err := rs.tracker.Rollover(context.Background()); err != nil {
				rs.logger.Error().Err(err).Msg("Day rollover failed")
			}
		case <-rs.stopChan:
			wait.Stop()
			return
		}
	}
}
