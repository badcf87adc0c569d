package timer

import (
	"sync"
	"time"
)

// Clock provides time and tickers to the engine.
// This interface allows time to be driven by hand in tests.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks on C until stopped
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock provides actual system time.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// NewTicker wraps time.NewTicker
func (RealClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// TestClock provides manually advanced time for testing.
// Advance moves the clock forward and delivers one tick to every live
// ticker, blocking until each ticker's reader has received it.
type TestClock struct {
	mu      sync.Mutex
	current time.Time
	tickers map[*testTicker]struct{}
}

// NewTestClock creates a test clock starting at now
func NewTestClock(now time.Time) *TestClock {
	return &TestClock{
		current: now,
		tickers: make(map[*testTicker]struct{}),
	}
}

// Now returns the test time.
func (c *TestClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Set moves the clock without delivering ticks
func (c *TestClock) Set(now time.Time) {
	c.mu.Lock()
	c.current = now
	c.mu.Unlock()
}

// NewTicker registers a manual ticker
func (c *TestClock) NewTicker(time.Duration) Ticker {
	t := &testTicker{
		clock:   c,
		ch:      make(chan time.Time),
		stopped: make(chan struct{}),
	}
	c.mu.Lock()
	c.tickers[t] = struct{}{}
	c.mu.Unlock()
	return t
}

// Tickers returns the number of live tickers
func (c *TestClock) Tickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

// Advance adds d to the clock and ticks every live ticker once
func (c *TestClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	now := c.current
	live := make([]*testTicker, 0, len(c.tickers))
	for t := range c.tickers {
		live = append(live, t)
	}
	c.mu.Unlock()

	for _, t := range live {
		select {
		case t.ch <- now:
		case <-t.stopped:
		}
	}
}

type testTicker struct {
	clock    *TestClock
	ch       chan time.Time
	stopped  chan struct{}
	stopOnce sync.Once
}

func (t *testTicker) C() <-chan time.Time { return t.ch }

func (t *testTicker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopped)
		t.clock.mu.Lock()
		delete(t.clock.tickers, t)
		t.clock.mu.Unlock()
	})
}
