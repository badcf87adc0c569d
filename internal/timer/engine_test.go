package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type tickRecorder struct {
	mu      sync.Mutex
	seconds map[int]int64
	calls   map[int]int
}

func newTickRecorder() *tickRecorder {
	return &tickRecorder{seconds: make(map[int]int64), calls: make(map[int]int)}
}

func (r *tickRecorder) record(index int, seconds int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seconds[index] += seconds
	r.calls[index]++
}

func (r *tickRecorder) total(index int) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seconds[index]
}

func newTestEngine(t *testing.T, mode Mode) (*Engine, *TestClock, *tickRecorder) {
	t.Helper()

	clock := NewTestClock(time.Date(2026, 10, 18, 18, 0, 0, 0, time.UTC))
	rec := newTickRecorder()
	engine := NewEngine(clock, Config{Interval: time.Second, Mode: mode}, rec.record, zerolog.Nop())
	t.Cleanup(engine.CancelAll)

	return engine, clock, rec
}

func TestEngine_FixedModeAddsOneSecondPerTick(t *testing.T) {
	engine, clock, rec := newTestEngine(t, ModeFixed)

	engine.Run(0)
	for i := 0; i < 5; i++ {
		// Wall-clock steps are ignored in fixed mode
		clock.Advance(3 * time.Second)
	}
	engine.Cancel(0)

	if got := rec.total(0); got != 5 {
		t.Errorf("Expected 5 seconds, got %d", got)
	}
}

func TestEngine_WallClockModeAccumulatesDelta(t *testing.T) {
	engine, clock, rec := newTestEngine(t, ModeWallClock)

	engine.Run(0)
	clock.Advance(5 * time.Second) // e.g. the host slept through four ticks
	clock.Advance(500 * time.Millisecond)
	clock.Advance(700 * time.Millisecond)
	engine.Cancel(0)

	// 5s + 1.2s, with the 0.2s remainder still carried
	if got := rec.total(0); got != 6 {
		t.Errorf("Expected 6 seconds, got %d", got)
	}
}

func TestEngine_WallClockOneSecondSteps(t *testing.T) {
	engine, clock, rec := newTestEngine(t, ModeWallClock)

	engine.Run(0)
	for i := 0; i < 1800; i++ {
		clock.Advance(time.Second)
	}
	engine.Cancel(0)

	if got := rec.total(0); got != 1800 {
		t.Errorf("Expected 1800 seconds, got %d", got)
	}
}

func TestEngine_TablesTickIndependently(t *testing.T) {
	engine, clock, rec := newTestEngine(t, ModeFixed)

	engine.Run(0)
	engine.Run(2)
	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
	}
	engine.Cancel(0)
	for i := 0; i < 2; i++ {
		clock.Advance(time.Second)
	}
	engine.Cancel(2)

	if got := rec.total(0); got != 3 {
		t.Errorf("Expected table 1 to have 3 seconds, got %d", got)
	}
	if got := rec.total(2); got != 5 {
		t.Errorf("Expected table 3 to have 5 seconds, got %d", got)
	}
	if got := rec.total(1); got != 0 {
		t.Errorf("Expected table 2 to have 0 seconds, got %d", got)
	}
}

func TestEngine_RunCancelBookkeeping(t *testing.T) {
	engine, clock, _ := newTestEngine(t, ModeFixed)

	if !engine.Run(3) {
		t.Fatal("Expected first Run to start a task")
	}
	if engine.Run(3) {
		t.Error("Expected second Run on the same table to be a no-op")
	}
	engine.Run(1)

	active := engine.Active()
	if len(active) != 2 || active[0] != 1 || active[1] != 3 {
		t.Errorf("Expected active [1 3], got %v", active)
	}
	if !engine.Running(3) || engine.Running(0) {
		t.Errorf("unexpected Running state: 3=%v 0=%v", engine.Running(3), engine.Running(0))
	}
	if clock.Tickers() != 2 {
		t.Errorf("Expected 2 live tickers, got %d", clock.Tickers())
	}

	if engine.Cancel(0) {
		t.Error("Expected Cancel on an idle table to return false")
	}

	engine.CancelAll()
	if len(engine.Active()) != 0 {
		t.Errorf("Expected no active tasks, got %v", engine.Active())
	}
	if clock.Tickers() != 0 {
		t.Errorf("Expected tickers to be stopped, got %d", clock.Tickers())
	}
}

func TestWallDelta(t *testing.T) {
	// time.Now carries a monotonic reading, which stops while the host sleeps
	last := time.Now()

	tests := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{"both monotonic", last.Add(2 * time.Second), 2 * time.Second},
		{"wall jump across suspend", last.Round(0).Add(8 * time.Hour), 8 * time.Hour},
		{"clock stepped back", last.Round(0).Add(-time.Minute), -time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wallDelta(tt.now, last); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEngine_WallClockCreditsSuspendedTime(t *testing.T) {
	engine, clock, rec := newTestEngine(t, ModeWallClock)

	engine.Run(0)
	clock.Advance(time.Second)
	clock.Advance(8 * time.Hour)
	clock.Advance(-time.Minute)
	clock.Advance(time.Second)
	engine.Cancel(0)

	// The backwards step is dropped, not subtracted
	want := int64(1 + 8*3600 + 0 + 1)
	if got := rec.total(0); got != want {
		t.Errorf("Expected %d seconds, got %d", want, got)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"wallclock", ModeWallClock, false},
		{"fixed", ModeFixed, false},
		{"", ModeWallClock, false},
		{"drift", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
