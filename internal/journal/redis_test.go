package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goodtune/tabletime/internal/config"
	"github.com/redis/go-redis/v9"
)

func setupTestJournal(t *testing.T) (*RedisJournal, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	// miniredis.Addr() returns "host:port", so the port is left unset
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		Port:         0,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	j, err := Open(cfg, 90)
	if err != nil {
		t.Fatalf("Failed to open Redis journal: %v", err)
	}

	return j, mr
}

func TestRedisJournal_AppendAndList(t *testing.T) {
	j, _ := setupTestJournal(t)
	defer func() { _ = j.Close() }()

	ctx := context.Background()
	day := "2026-10-18"

	events := []Event{
		{Day: day, Type: EventStart, Table: 1, Player: "Efren"},
		{Day: day, Type: EventPause, Table: 1, ElapsedSeconds: 900},
		{Day: day, Type: EventStop, Table: 1, ElapsedSeconds: 1800, TotalFees: "100.00"},
	}
	for _, event := range events {
		if err := j.Append(ctx, event); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := j.List(ctx, day)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(got))
	}
	if got[0].Type != EventStart || got[2].Type != EventStop {
		t.Errorf("Expected append order start..stop, got %s..%s", got[0].Type, got[2].Type)
	}
	if got[2].TotalFees != "100.00" {
		t.Errorf("Expected fees 100.00, got %s", got[2].TotalFees)
	}
	if got[0].ID == "" || got[0].ID == got[1].ID {
		t.Errorf("Expected unique generated IDs, got %q and %q", got[0].ID, got[1].ID)
	}
	if got[0].At.IsZero() {
		t.Error("Expected timestamp to be filled in")
	}
}

func TestRedisJournal_ListEmptyDay(t *testing.T) {
	j, _ := setupTestJournal(t)
	defer func() { _ = j.Close() }()

	if _, err := j.List(context.Background(), "2020-01-01"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRedisJournal_AppendRequiresDay(t *testing.T) {
	j, _ := setupTestJournal(t)
	defer func() { _ = j.Close() }()

	if err := j.Append(context.Background(), Event{Type: EventStart}); err == nil {
		t.Error("Expected an error for an event without a day")
	}
}

func TestRedisJournal_RetentionExpiresDays(t *testing.T) {
	j, mr := setupTestJournal(t)
	defer func() { _ = j.Close() }()

	ctx := context.Background()
	for _, day := range []string{"2026-10-17", "2026-10-18"} {
		if err := j.Append(ctx, Event{Day: day, Type: EventRollover}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	ttl := mr.TTL(dayKey("2026-10-18"))
	if ttl != 90*24*time.Hour {
		t.Errorf("Expected 90 day TTL, got %v", ttl)
	}

	days, err := j.Days(ctx)
	if err != nil {
		t.Fatalf("Days failed: %v", err)
	}
	if len(days) != 2 || days[0] != "2026-10-17" {
		t.Errorf("Expected two days oldest first, got %v", days)
	}

	// Expire everything
	mr.FastForward(91 * 24 * time.Hour)

	days, err = j.Days(ctx)
	if err != nil {
		t.Fatalf("Days failed: %v", err)
	}
	if len(days) != 0 {
		t.Errorf("Expected expired days to be dropped, got %v", days)
	}
	if mr.Exists(daysSetKey) {
		members, _ := mr.Members(daysSetKey)
		if len(members) != 0 {
			t.Errorf("Expected days set to be pruned, got %v", members)
		}
	}
}

func TestAppendEventScript(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	script := redis.NewScript(appendEventScript)

	tests := []struct {
		name       string
		ttl        int64
		wantLength int64
		wantTTL    bool
	}{
		{"first append with retention", 3600, 1, true},
		{"second append without retention keeps ttl", 0, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			length, err := script.Run(ctx, client,
				[]string{dayKey("2026-10-18"), daysSetKey},
				"2026-10-18", `{"type":"start"}`, tt.ttl,
			).Int64()
			if err != nil {
				t.Fatalf("script failed: %v", err)
			}
			if length != tt.wantLength {
				t.Errorf("Expected list length %d, got %d", tt.wantLength, length)
			}
			if hasTTL := mr.TTL(dayKey("2026-10-18")) > 0; hasTTL != tt.wantTTL {
				t.Errorf("Expected ttl set = %v", tt.wantTTL)
			}
			if ok, _ := mr.IsMember(daysSetKey, "2026-10-18"); !ok {
				t.Error("Expected day to be indexed")
			}
		})
	}
}

func TestNop(t *testing.T) {
	var j Journal = Nop{}
	ctx := context.Background()

	if err := j.Append(ctx, Event{Day: "2026-10-18"}); err != nil {
		t.Errorf("Nop.Append returned %v", err)
	}
	if _, err := j.List(ctx, "2026-10-18"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
