package journal

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a day has no journal entries.
var ErrNotFound = errors.New("journal: no entries")

// EventType names a table action
type EventType string

const (
	EventStart    EventType = "start"
	EventPause    EventType = "pause"
	EventStop     EventType = "stop"
	EventRollover EventType = "rollover"
)

// Event is one journal entry
type Event struct {
	ID             string    `json:"id"`
	Day            string    `json:"day"`
	Type           EventType `json:"type"`
	Table          int       `json:"table,omitempty"`
	Player         string    `json:"player,omitempty"`
	HourlyRate     string    `json:"hourly_rate,omitempty"`
	ElapsedSeconds int64     `json:"elapsed_seconds"`
	TotalFees      string    `json:"total_fees,omitempty"`
	At             time.Time `json:"at"`
}

// Journal is an append-only per-day log of table events.
type Journal interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, day string) ([]Event, error)
	Days(ctx context.Context) ([]string, error)
	Close() error
}

// Nop discards every event. Used when the journal is disabled.
type Nop struct{}

func (Nop) Append(context.Context, Event) error           { return nil }
func (Nop) List(context.Context, string) ([]Event, error) { return nil, ErrNotFound }
func (Nop) Days(context.Context) ([]string, error)        { return []string{}, nil }
func (Nop) Close() error                                  { return nil }
