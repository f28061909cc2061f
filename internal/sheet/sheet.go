// Package sheet converts between stored contest rows and ContestRecords.
//
// A stored row is the spreadsheet view of one contest: a Date column
// (YYYY-MM-DD), a Track column and one column per player holding that
// player's signed outcome. Rows are forgiving on the way in: an unreadable
// date becomes a null date and an unreadable amount becomes zero.
package sheet

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minileague/league-engine/internal/model"
)

// Stats reports what Decode had to coerce.
type Stats struct {
	Rows         int
	BadDates     int
	BadOutcomes  int
	MissingCells int
}

// Malformed reports whether any value was coerced.
func (s Stats) Malformed() bool {
	return s.BadDates > 0 || s.BadOutcomes > 0
}

// Columns returns the stored column order for a roster.
func Columns(roster model.Roster) []string {
	cols := make([]string, 0, len(roster.Players)+2)
	cols = append(cols, model.ColumnDate, model.ColumnTrack)
	return append(cols, roster.Players...)
}

// Decode turns stored rows into records for the roster's players.
func Decode(roster model.Roster, rows []model.Row) ([]model.ContestRecord, Stats) {
	stats := Stats{Rows: len(rows)}
	records := make([]model.ContestRecord, 0, len(rows))

	for _, row := range rows {
		rec := model.ContestRecord{
			Track:    strings.TrimSpace(row[model.ColumnTrack]),
			Outcomes: make(map[string]decimal.Decimal, len(roster.Players)),
		}

		if raw := strings.TrimSpace(row[model.ColumnDate]); raw != "" {
			date, ok := ParseDate(raw)
			if !ok {
				stats.BadDates++
			}
			rec.Date = date
		} else {
			stats.BadDates++
		}

		for _, p := range roster.Players {
			raw, present := row[p]
			if !present {
				stats.MissingCells++
			}
			v, ok := ParseAmount(raw)
			if !ok {
				stats.BadOutcomes++
			}
			rec.Outcomes[p] = v
		}
		rec.BetAmount = stake(rec.Outcomes)
		records = append(records, rec)
	}
	return records, stats
}

// Encode turns records into stored rows for the roster's players.
func Encode(roster model.Roster, records []model.ContestRecord) []model.Row {
	rows := make([]model.Row, 0, len(records))
	for _, rec := range records {
		row := make(model.Row, len(roster.Players)+2)
		row[model.ColumnDate] = FormatDate(rec.Date)
		row[model.ColumnTrack] = rec.Track
		for _, p := range roster.Players {
			row[p] = rec.Outcome(p).String()
		}
		rows = append(rows, row)
	}
	return rows
}

// ParseDate reads a YYYY-MM-DD date, or the day part of an RFC 3339
// timestamp. It returns the zero time and false when neither matches.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(model.DateLayout, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	if len(raw) > len(model.DateLayout) {
		// "2024-01-01 00:00:00" as written by spreadsheet exports.
		if t, err := time.Parse(model.DateLayout, raw[:len(model.DateLayout)]); err == nil && raw[len(model.DateLayout)] == ' ' {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate writes the stored form of a date; null dates become "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

// ParseAmount reads a stored outcome. Blank values are zero and valid;
// anything non-numeric is zero and reported as not ok.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, true
	}
	raw = strings.ReplaceAll(raw, ",", "")
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// stake recovers the bet amount from a settled contest: every loser paid
// exactly the stake.
func stake(outcomes map[string]decimal.Decimal) decimal.Decimal {
	bet := decimal.Zero
	for _, v := range outcomes {
		if v.IsNegative() && v.Abs().GreaterThan(bet) {
			bet = v.Abs()
		}
	}
	return bet
}
