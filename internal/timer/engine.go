package timer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultInterval is how often a running table is ticked
	DefaultInterval = time.Second
)

// Mode selects how a tick converts into elapsed seconds
type Mode string

const (
	// ModeWallClock adds the real time since the previous tick, carrying
	// sub-second remainders forward
	ModeWallClock Mode = "wallclock"

	// ModeFixed adds exactly one second per tick
	ModeFixed Mode = "fixed"
)

// ParseMode validates a configured tick mode
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeWallClock, ModeFixed:
		return Mode(s), nil
	case "":
		return ModeWallClock, nil
	default:
		return "", fmt.Errorf("unknown timer mode %q (must be wallclock or fixed)", s)
	}
}

// TickFunc receives the whole seconds to add to a table
type TickFunc func(index int, seconds int64)

// Config holds engine configuration
type Config struct {
	Interval time.Duration
	Mode     Mode
}

// Engine runs one cancellable repeating task per running table
type Engine struct {
	clock    Clock
	interval time.Duration
	mode     Mode
	onTick   TickFunc
	logger   zerolog.Logger

	mu    sync.Mutex
	tasks map[int]*task // key: table index
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates a timer engine
func NewEngine(clock Clock, config Config, onTick TickFunc, logger zerolog.Logger) *Engine {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Mode == "" {
		config.Mode = ModeWallClock
	}
	if clock == nil {
		clock = RealClock{}
	}

	return &Engine{
		clock:    clock,
		interval: config.Interval,
		mode:     config.Mode,
		onTick:   onTick,
		logger:   logger.With().Str("component", "timer").Logger(),
		tasks:    make(map[int]*task),
	}
}

// Run starts ticking the table at index. It returns false if the table
// already has a running task.
func (e *Engine) Run(index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.tasks[index]; exists {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}
	e.tasks[index] = t

	// The ticker is created before returning so the first tick is never missed
	ticker := e.clock.NewTicker(e.interval)
	go e.loop(ctx, index, ticker, e.clock.Now(), t.done)

	e.logger.Debug().
		Int("table", index+1).
		Str("mode", string(e.mode)).
		Msg("Timer started")

	return true
}

// Cancel stops the table's task and waits for it to exit. It returns false
// if nothing was running.
func (e *Engine) Cancel(index int) bool {
	e.mu.Lock()
	t, exists := e.tasks[index]
	delete(e.tasks, index)
	e.mu.Unlock()

	if !exists {
		return false
	}

	t.cancel()
	<-t.done

	e.logger.Debug().Int("table", index+1).Msg("Timer cancelled")
	return true
}

// CancelAll stops every running task
func (e *Engine) CancelAll() {
	for _, index := range e.Active() {
		e.Cancel(index)
	}
}

// Running reports whether the table has a live task
func (e *Engine) Running(index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, exists := e.tasks[index]
	return exists
}

// Active returns the indexes with live tasks in ascending order
func (e *Engine) Active() []int {
	e.mu.Lock()
	indexes := make([]int, 0, len(e.tasks))
	for index := range e.tasks {
		indexes = append(indexes, index)
	}
	e.mu.Unlock()

	sort.Ints(indexes)
	return indexes
}

func (e *Engine) loop(ctx context.Context, index int, ticker Ticker, last time.Time, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	var carry time.Duration

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C():
			// A tick received before cancellation is still counted
			var seconds int64
			switch e.mode {
			case ModeFixed:
				seconds = 1
			default:
				delta := wallDelta(now, last) + carry
				if delta < 0 {
					// Clock moved backwards; drop the interval
					delta = 0
				}
				seconds = int64(delta / time.Second)
				carry = delta % time.Second
			}
			last = now

			if seconds > 0 {
				e.onTick(index, seconds)
			}
		}
	}
}

// wallDelta compares wall clock readings only. The monotonic clock stops
// while the host is suspended, so a table left running across a sleep would
// otherwise be credited a single interval. A system clock step moves elapsed
// time by the same amount.
func wallDelta(now, last time.Time) time.Duration {
	return now.Round(0).Sub(last.Round(0))
}
