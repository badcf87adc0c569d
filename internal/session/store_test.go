package session

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestStoreUpdatePreservesTableNumber(t *testing.T) {
	store := NewStore(Fresh(3, decimal.NewFromInt(200)))

	updated, err := store.Update(1, func(s *Session) error {
		s.TableNumber = 99
		s.PlayerName = "Efren"
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.TableNumber != 2 {
		t.Errorf("Expected table number 2, got %d", updated.TableNumber)
	}
	if updated.PlayerName != "Efren" {
		t.Errorf("Expected player Efren, got %q", updated.PlayerName)
	}

	got, err := store.Get(1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.TableNumber != 2 || got.PlayerName != "Efren" {
		t.Errorf("unexpected stored session: %+v", got)
	}
}

func TestStoreUpdateErrorLeavesSessionUntouched(t *testing.T) {
	store := NewStore(Fresh(2, decimal.NewFromInt(200)))

	_, err := store.Update(0, func(s *Session) error {
		s.PlayerName = "half-applied"
		return ErrNotActive
	})
	if !errors.Is(err, ErrNotActive) {
		t.Fatalf("Expected ErrNotActive, got %v", err)
	}

	got, _ := store.Get(0)
	if got.PlayerName != "" {
		t.Errorf("Expected no change, got player %q", got.PlayerName)
	}
}

func TestStoreUnknownTable(t *testing.T) {
	store := NewStore(Fresh(2, decimal.NewFromInt(200)))

	for _, index := range []int{-1, 2, 10} {
		if _, err := store.Get(index); !errors.Is(err, ErrUnknownTable) {
			t.Errorf("Expected ErrUnknownTable from Get(%d), got %v", index, err)
		}
		if _, err := store.Update(index, func(*Session) error { return nil }); !errors.Is(err, ErrUnknownTable) {
			t.Errorf("Expected ErrUnknownTable from Update(%d), got %v", index, err)
		}
	}
}

func TestStoreSnapshotsAreCopies(t *testing.T) {
	store := NewStore(Fresh(1, decimal.NewFromInt(200)))

	start := time.Date(2026, 10, 18, 14, 0, 0, 0, time.UTC)
	if _, err := store.Update(0, func(s *Session) error {
		s.StartTime = &start
		return nil
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	snapshot := store.All()
	*snapshot[0].StartTime = start.Add(time.Hour)
	snapshot[0].ElapsedSeconds = 42

	got, _ := store.Get(0)
	if !got.StartTime.Equal(start) {
		t.Errorf("store start time changed through snapshot: %v", got.StartTime)
	}
	if got.ElapsedSeconds != 0 {
		t.Errorf("store elapsed changed through snapshot: %d", got.ElapsedSeconds)
	}
}

func TestStoreReplace(t *testing.T) {
	store := NewStore(Fresh(2, decimal.NewFromInt(200)))
	store.Replace(Fresh(4, decimal.NewFromInt(150)))

	if store.Len() != 4 {
		t.Fatalf("Expected 4 tables, got %d", store.Len())
	}
	got, _ := store.Get(3)
	if !got.HourlyRate.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Expected rate 150, got %s", got.HourlyRate)
	}
}

func TestClone(t *testing.T) {
	if Clone(nil) != nil {
		t.Error("Expected nil for nil input")
	}

	start := time.Date(2026, 10, 18, 14, 0, 0, 0, time.UTC)
	in := []Session{{TableNumber: 1, StartTime: &start}}
	out := Clone(in)
	*out[0].StartTime = start.Add(time.Hour)

	if !in[0].StartTime.Equal(start) {
		t.Errorf("Expected original start %v, got %v", start, in[0].StartTime)
	}
}
