package tracker

import (
	"context"
	"testing"
	"time"
)

func TestBusinessDay(t *testing.T) {
	manila, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name  string
		now   time.Time
		reset string
		loc   *time.Location
		want  string
	}{
		{"midnight reset afternoon", time.Date(2026, 10, 18, 14, 0, 0, 0, time.UTC), "00:00", time.UTC, "2026-10-18"},
		{"exactly at reset", time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), "00:00", time.UTC, "2026-10-18"},
		{"before late reset", time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC), "06:00", time.UTC, "2026-10-17"},
		{"after late reset", time.Date(2026, 10, 18, 6, 30, 0, 0, time.UTC), "06:00", time.UTC, "2026-10-18"},
		{"month boundary", time.Date(2026, 11, 1, 1, 0, 0, 0, time.UTC), "06:00", time.UTC, "2026-10-31"},
		{"converted to location", time.Date(2026, 10, 18, 17, 0, 0, 0, time.UTC), "00:00", manila, "2026-10-19"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reset, err := ParseResetTime(tt.reset)
			if err != nil {
				t.Fatalf("ParseResetTime failed: %v", err)
			}
			if got := BusinessDay(tt.now, reset, tt.loc); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNextReset(t *testing.T) {
	reset, _ := ParseResetTime("06:00")

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before reset", time.Date(2026, 10, 18, 5, 0, 0, 0, time.UTC), time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)},
		{"at reset", time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC), time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)},
		{"after reset", time.Date(2026, 10, 18, 22, 0, 0, 0, time.UTC), time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextReset(tt.now, reset, time.UTC); !got.Equal(tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseResetTime_Invalid(t *testing.T) {
	if _, err := ParseResetTime("25:99"); err == nil {
		t.Error("Expected error for invalid reset time")
	}
}

func TestRollover_SameDayIsNoop(t *testing.T) {
	tr, _, _ := setupTestTracker(t, 2)

	changed, err := tr.Rollover(context.Background())
	if err != nil {
		t.Fatalf("Rollover failed: %v", err)
	}
	if changed {
		t.Error("Expected no rollover within the same day")
	}
}

func TestRollover_StartsFreshDay(t *testing.T) {
	tr, w, clock := setupTestTracker(t, 3)
	ctx := context.Background()

	if _, err := tr.SetPlayerName(0, "Django"); err != nil {
		t.Fatalf("SetPlayerName failed: %v", err)
	}
	if _, err := tr.Start(ctx, 0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	tick(clock, 120)

	clock.Set(time.Date(2026, 10, 19, 0, 0, 1, 0, time.UTC))

	changed, err := tr.Rollover(ctx)
	if err != nil {
		t.Fatalf("Rollover failed: %v", err)
	}
	if !changed {
		t.Fatal("Expected rollover to change the day")
	}
	if tr.Day() != "2026-10-19" {
		t.Errorf("Expected day 2026-10-19, got %s", tr.Day())
	}
	if clock.Tickers() != 0 {
		t.Errorf("Expected running timers to be cancelled, got %d tickers", clock.Tickers())
	}

	for _, s := range tr.Sessions() {
		if s.Active || s.ElapsedSeconds != 0 || s.PlayerName != "" {
			t.Errorf("Expected fresh session, got %+v", s)
		}
	}

	closing, err := w.ReadDay("2026-10-18")
	if err != nil {
		t.Fatalf("ReadDay failed: %v", err)
	}
	if closing[0].PlayerName != "Django" || closing[0].ElapsedSeconds != 120 {
		t.Errorf("Expected closing day to keep Django/120, got %q/%d", closing[0].PlayerName, closing[0].ElapsedSeconds)
	}

	days, err := w.Days()
	if err != nil {
		t.Fatalf("Days failed: %v", err)
	}
	if len(days) != 2 {
		t.Errorf("Expected two day tabs, got %v", days)
	}
}

func TestRolloverScheduler_StartStop(t *testing.T) {
	tr, _, _ := setupTestTracker(t, 1)

	rs := NewRolloverScheduler(tr, tr.logger)
	rs.Start()

	done := make(chan struct{})
	go func() {
		rs.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Scheduler did not stop")
	}
}

func TestRolloverScheduler_RechecksAfterClockJump(t *testing.T) {
	tr, _, clock := setupTestTracker(t, 1)

	rs := NewRolloverScheduler(tr, tr.logger)
	rs.recheck = 10 * time.Millisecond
	rs.Start()
	defer rs.Stop()

	// The wall clock passes midnight without the scheduler's timer firing
	// at the reset time, as after a suspend
	clock.Set(testStart.Add(12 * time.Hour))

	deadline := time.After(2 * time.Second)
	for tr.Day() != "2026-10-19" {
		select {
		case <-deadline:
			t.Fatalf("Expected rollover to 2026-10-19, still on %s", tr.Day())
		case <-time.After(5 * time.Millisecond):
		}
	}
}
