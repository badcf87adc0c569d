package workbook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goodtune/tabletime/internal/metrics"
	"github.com/goodtune/tabletime/internal/session"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	// DefaultPath is the workbook file used when none is configured
	DefaultPath = "KingsTableSessions.xlsx"

	// DayLayout names each day's tab
	DayLayout = "2006-01-02"

	defaultSheet = "Sheet1"
)

// ErrDayNotFound is returned when the workbook has no tab for a day.
var ErrDayNotFound = errors.New("workbook: no tab for day")

// Config holds workbook settings
type Config struct {
	Path        string
	Tables      int
	DefaultRate decimal.Decimal
}

// Workbook persists day-tabs of table sessions to a single .xlsx file.
// Every write rewrites the whole file.
type Workbook struct {
	path        string
	tables      int
	defaultRate decimal.Decimal
	logger      zerolog.Logger
	mu          sync.Mutex
}

// New creates a workbook adapter
func New(config Config, logger zerolog.Logger) *Workbook {
	if config.Path == "" {
		config.Path = DefaultPath
	}

	return &Workbook{
		path:        config.Path,
		tables:      config.Tables,
		defaultRate: config.DefaultRate,
		logger:      logger.With().Str("component", "workbook").Logger(),
	}
}

// Path returns the workbook file path
func (w *Workbook) Path() string {
	return w.path
}

// LoadOrInit returns the sessions for day. If the workbook has a tab for the
// day, its rows are loaded with every session inactive. Otherwise a fresh
// tab is created and written immediately. A missing or unreadable file is
// treated the same as a missing tab; no error is returned.
func (w *Workbook) LoadOrInit(day string) []session.Session {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn().Err(err).Str("path", w.path).Msg("Workbook unreadable, starting a fresh one")
			metrics.WorkbookLoads.WithLabelValues("recovered").Inc()
		} else {
			metrics.WorkbookLoads.WithLabelValues("new_file").Inc()
		}
		return w.initialize(nil, day)
	}
	defer func() { _ = f.Close() }()

	index, err := f.GetSheetIndex(day)
	if err != nil || index < 0 {
		w.logger.Info().Str("day", day).Msg("No tab for today, initializing")
		metrics.WorkbookLoads.WithLabelValues("new_tab").Inc()
		return w.initialize(f, day)
	}

	rows, err := f.GetRows(day)
	if err != nil {
		w.logger.Warn().Err(err).Str("day", day).Msg("Day tab unreadable, initializing")
		metrics.WorkbookLoads.WithLabelValues("recovered").Inc()
		return w.initialize(nil, day)
	}

	sessions := w.overlay(rows, day)
	metrics.WorkbookLoads.WithLabelValues("loaded").Inc()

	w.logger.Info().
		Str("day", day).
		Int("tables", len(sessions)).
		Msg("Loaded sessions from workbook")

	return sessions
}

// overlay maps parsed rows onto the configured tables by table number
func (w *Workbook) overlay(rows [][]string, day string) []session.Session {
	sessions := session.Fresh(w.tables, w.defaultRate)

	for i, row := range keyRows(rows) {
		s, err := decodeRow(row, w.defaultRate)
		if err != nil {
			w.logger.Warn().Err(err).Str("day", day).Int("row", i+2).Msg("Skipping row")
			continue
		}
		if s.TableNumber > w.tables {
			w.logger.Warn().
				Str("day", day).
				Int("table", s.TableNumber).
				Int("tables", w.tables).
				Msg("Skipping row for table outside configured range")
			continue
		}
		sessions[s.TableNumber-1] = s
	}

	return sessions
}

// initialize writes a fresh day tab and returns the fresh sessions. When f is
// nil a new workbook replaces whatever is on disk.
func (w *Workbook) initialize(f *excelize.File, day string) []session.Session {
	sessions := session.Fresh(w.tables, w.defaultRate)

	if f == nil {
		f = excelize.NewFile()
		defer func() { _ = f.Close() }()
	}

	if err := writeDay(f, day, sessions); err != nil {
		w.logger.Error().Err(err).Str("day", day).Msg("Failed to build day tab")
		return sessions
	}
	if err := w.saveFile(f); err != nil {
		w.logger.Error().Err(err).Str("path", w.path).Msg("Failed to write initialized workbook")
		return sessions
	}

	w.logger.Info().Str("path", w.path).Str("day", day).Msg("Workbook initialized")
	return sessions
}

// Save rebuilds the day's tab from sessions and rewrites the whole file.
// Tabs for other days are preserved.
func (w *Workbook) Save(ctx context.Context, day string, sessions []session.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	started := time.Now()
	err := w.save(day, sessions)
	metrics.WorkbookSaveDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		metrics.WorkbookSaves.WithLabelValues("error").Inc()
		return err
	}
	metrics.WorkbookSaves.WithLabelValues("ok").Inc()

	w.logger.Debug().
		Str("day", day).
		Int("tables", len(sessions)).
		Dur("took", time.Since(started)).
		Msg("Session data saved to workbook")

	return nil
}

func (w *Workbook) save(day string, sessions []session.Session) error {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn().Err(err).Str("path", w.path).Msg("Workbook unreadable on save, replacing it")
		}
		f = excelize.NewFile()
	}
	defer func() { _ = f.Close() }()

	if err := writeDay(f, day, sessions); err != nil {
		return err
	}
	return w.saveFile(f)
}

func (w *Workbook) saveFile(f *excelize.File) error {
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create workbook directory: %w", err)
		}
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Days lists the day tabs in workbook order
func (w *Workbook) Days() ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	days := make([]string, 0)
	for _, name := range f.GetSheetList() {
		if _, err := time.Parse(DayLayout, name); err == nil {
			days = append(days, name)
		}
	}
	return days, nil
}

// ReadDay returns the rows of a day tab as stored, without mapping them onto
// the configured tables
func (w *Workbook) ReadDay(day string) ([]session.Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	index, err := f.GetSheetIndex(day)
	if err != nil || index < 0 {
		return nil, fmt.Errorf("%w: %s", ErrDayNotFound, day)
	}

	rows, err := f.GetRows(day)
	if err != nil {
		return nil, fmt.Errorf("read day %s: %w", day, err)
	}

	sessions := make([]session.Session, 0, len(rows))
	for _, row := range keyRows(rows) {
		s, err := decodeRow(row, w.defaultRate)
		if err != nil {
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// writeDay replaces the contents of the day's tab, creating it if needed
func writeDay(f *excelize.File, day string, sessions []session.Session) error {
	if err := ensureSheet(f, day); err != nil {
		return err
	}

	// Drop rows left over from a longer previous version of the tab
	existing, err := f.GetRows(day)
	if err != nil {
		return fmt.Errorf("read tab %s: %w", day, err)
	}
	for row := len(existing); row > len(sessions)+1; row-- {
		if err := f.RemoveRow(day, row); err != nil {
			return fmt.Errorf("trim tab %s: %w", day, err)
		}
	}

	header := headerRow()
	if err := f.SetSheetRow(day, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, s := range sessions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := encodeRow(day, s)
		if err := f.SetSheetRow(day, cell, &row); err != nil {
			return fmt.Errorf("write %s: %w", s.Label(), err)
		}
	}

	return nil
}

// ensureSheet makes sure the day tab exists. A brand new workbook's default
// sheet is renamed rather than left empty beside the day tab.
func ensureSheet(f *excelize.File, day string) error {
	index, err := f.GetSheetIndex(day)
	if err == nil && index >= 0 {
		return nil
	}

	list := f.GetSheetList()
	if len(list) == 1 && list[0] == defaultSheet {
		if rows, err := f.GetRows(defaultSheet); err == nil && len(rows) == 0 {
			if err := f.SetSheetName(defaultSheet, day); err != nil {
				return fmt.Errorf("rename default sheet: %w", err)
			}
			return nil
		}
	}

	if _, err := f.NewSheet(day); err != nil {
		return fmt.Errorf("create tab %s: %w", day, err)
	}
	return nil
}
