package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/minileague/league-engine/internal/model"
)

// DefaultDaysPerPage is the number of contest days shown per history page.
const DefaultDaysPerPage = 6

// History groups dated records by day, newest day first, and returns the
// requested page. Contests within a day are ordered by track. The page is
// clamped to the valid range; with no dated records the result has zero
// pages and no days.
func History(roster model.Roster, records []model.ContestRecord, page, daysPerPage int) model.HistoryPage {
	if daysPerPage < 1 {
		daysPerPage = DefaultDaysPerPage
	}

	byDay := make(map[string]*model.HistoryDay)
	for _, rec := range records {
		if !rec.HasDate() {
			continue
		}
		day := dayOf(rec.Date)
		key := day.Format(model.DateLayout)
		hd, ok := byDay[key]
		if !ok {
			hd = &model.HistoryDay{
				Date:      day,
				Subtotals: make(map[string]decimal.Decimal, len(roster.Players)),
			}
			for _, p := range roster.Players {
				hd.Subtotals[p] = decimal.Zero
			}
			byDay[key] = hd
		}
		hd.Contests = append(hd.Contests, rec)
		for _, p := range roster.Players {
			hd.Subtotals[p] = hd.Subtotals[p].Add(rec.Outcome(p))
		}
	}

	days := make([]model.HistoryDay, 0, len(byDay))
	for _, hd := range byDay {
		sort.SliceStable(hd.Contests, func(i, j int) bool {
			return hd.Contests[i].Track < hd.Contests[j].Track
		})
		days = append(days, *hd)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.After(days[j].Date) })

	totalPages := (len(days) + daysPerPage - 1) / daysPerPage
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	result := model.HistoryPage{Page: page, TotalPages: totalPages, Days: []model.HistoryDay{}}
	start := (page - 1) * daysPerPage
	if start >= len(days) {
		return result
	}
	end := start + daysPerPage
	if end > len(days) {
		end = len(days)
	}
	result.Days = days[start:end]
	return result
}
