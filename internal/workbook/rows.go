package workbook

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goodtune/tabletime/internal/session"
	"github.com/shopspring/decimal"
)

// Column headers, in sheet order
const (
	colDate        = "Date"
	colTable       = "Table"
	colPlayer      = "Player"
	colHourlyRate  = "Hourly Rate"
	colStartTime   = "Start Time"
	colElapsedTime = "Elapsed Time"
	colTotalFees   = "Total Fees"
)

var headers = []string{colDate, colTable, colPlayer, colHourlyRate, colStartTime, colElapsedTime, colTotalFees}

// startTimeLayout matches JavaScript's Date.toISOString output
const startTimeLayout = "2006-01-02T15:04:05.000Z07:00"

func headerRow() []interface{} {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	return row
}

func encodeRow(day string, s session.Session) []interface{} {
	start := ""
	if s.StartTime != nil {
		start = s.StartTime.UTC().Format(startTimeLayout)
	}

	return []interface{}{
		day,
		s.Label(),
		s.PlayerName,
		s.HourlyRate.InexactFloat64(),
		start,
		s.ElapsedSeconds,
		s.TotalFees.StringFixed(2),
	}
}

// sheetRow is a data row keyed by header name
type sheetRow map[string]string

func keyRows(rows [][]string) []sheetRow {
	if len(rows) == 0 {
		return nil
	}

	header := rows[0]
	out := make([]sheetRow, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		row := make(sheetRow, len(header))
		empty := true
		for i, name := range header {
			if i < len(cells) {
				v := strings.TrimSpace(cells[i])
				row[strings.TrimSpace(name)] = v
				if v != "" {
					empty = false
				}
			}
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out
}

// decodeRow converts a sheet row into a session. Missing rate falls back to
// defaultRate, missing elapsed time and fees fall back to zero. The session
// is always returned inactive.
func decodeRow(row sheetRow, defaultRate decimal.Decimal) (session.Session, error) {
	tableNumber, err := parseTableLabel(row[colTable])
	if err != nil {
		return session.Session{}, err
	}

	s := session.New(tableNumber, defaultRate)
	s.PlayerName = row[colPlayer]

	if v := row[colHourlyRate]; v != "" {
		if rate, err := decimal.NewFromString(v); err == nil && !rate.IsNegative() {
			s.HourlyRate = rate
		}
	}

	if v := row[colStartTime]; v != "" {
		if start, err := time.Parse(time.RFC3339, v); err == nil {
			s.StartTime = &start
		}
	}

	if v := row[colElapsedTime]; v != "" {
		if elapsed, err := strconv.ParseFloat(v, 64); err == nil && elapsed > 0 {
			s.ElapsedSeconds = int64(elapsed)
		}
	}

	if v := row[colTotalFees]; v != "" {
		if fees, err := decimal.NewFromString(v); err == nil && !fees.IsNegative() {
			s.TotalFees = fees
		}
	}

	s.Active = false
	return s, nil
}

// parseTableLabel reads the number out of "Table N"
func parseTableLabel(label string) (int, error) {
	digits := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(label), "Table"))
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid table label %q", label)
	}
	return n, nil
}
