package workbook

import (
	"fmt"

	"github.com/goodtune/tabletime/internal/session"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultHistoryCacheSize is the number of past day-tabs kept in memory
const DefaultHistoryCacheSize = 32

// History reads day-tabs for display. Past days no longer change once the
// business day has rolled over, so they are cached; the current day is
// always read from disk.
type History struct {
	workbook *Workbook
	today    func() string
	cache    *lru.Cache[string, []session.Session]
}

// NewHistory creates a cached reader over w. today reports the current
// business day.
func NewHistory(w *Workbook, size int, today func() string) (*History, error) {
	if size <= 0 {
		size = DefaultHistoryCacheSize
	}

	cache, err := lru.New[string, []session.Session](size)
	if err != nil {
		return nil, fmt.Errorf("create history cache: %w", err)
	}

	return &History{
		workbook: w,
		today:    today,
		cache:    cache,
	}, nil
}

// Day returns the stored sessions for day
func (h *History) Day(day string) ([]session.Session, error) {
	current := day == h.today()

	if !current {
		if sessions, ok := h.cache.Get(day); ok {
			return session.Clone(sessions), nil
		}
	}

	sessions, err := h.workbook.ReadDay(day)
	if err != nil {
		return nil, err
	}

	if !current {
		h.cache.Add(day, session.Clone(sessions))
	}
	return sessions, nil
}

// Days lists the day tabs in the workbook
func (h *History) Days() ([]string, error) {
	return h.workbook.Days()
}
