// Package ledger computes balances and statistics over the contest record
// list. Every function here is a pure projection of (roster, records): it
// keeps no running state and never modifies its inputs, so results can be
// recomputed on each request.
//
// All monetary values use shopspring/decimal, never float64.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minileague/league-engine/internal/model"
)

var (
	// ErrUnknownPlayer is returned when a player is not on the roster.
	ErrUnknownPlayer = errors.New("ledger: unknown player")

	// ErrSamePlayer is returned when a comparison names one player twice.
	ErrSamePlayer = errors.New("ledger: cannot compare a player with themselves")
)

var hundred = decimal.NewFromInt(100)

// Append returns a new record list with rec at the end. The input slice is
// never written to.
func Append(records []model.ContestRecord, rec model.ContestRecord) []model.ContestRecord {
	out := make([]model.ContestRecord, 0, len(records)+1)
	out = append(out, records...)
	return append(out, rec)
}

// Balances returns initial balance plus the sum of every outcome for each
// roster player. With no records the initial balances come back verbatim.
func Balances(roster model.Roster, records []model.ContestRecord) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal, len(roster.Players))
	for _, p := range roster.Players {
		balances[p] = roster.Initial(p)
	}
	for _, rec := range records {
		for _, p := range roster.Players {
			balances[p] = balances[p].Add(rec.Outcome(p))
		}
	}
	return balances
}

// Ranking orders players by descending balance. Ties keep roster order.
func Ranking(roster model.Roster, balances map[string]decimal.Decimal) []model.Standing {
	standings := make([]model.Standing, 0, len(roster.Players))
	for _, p := range roster.Players {
		standings = append(standings, model.Standing{Player: p, Balance: balances[p]})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Balance.GreaterThan(standings[j].Balance)
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}

// Participation counts contests, wins and losses per player in roster order.
func Participation(roster model.Roster, records []model.ContestRecord) []model.Participation {
	out := make([]model.Participation, 0, len(roster.Players))
	for _, p := range roster.Players {
		row := model.Participation{Player: p, WinRatio: decimal.Zero}
		for _, rec := range records {
			v := rec.Outcome(p)
			switch {
			case v.IsPositive():
				row.Wins++
				row.TotalContests++
			case v.IsNegative():
				row.Losses++
				row.TotalContests++
			}
		}
		row.WinRatio = percent(row.Wins, row.TotalContests)
		out = append(out, row)
	}
	return out
}

// RankParticipation sorts by win ratio descending, stable on input order.
func RankParticipation(rows []model.Participation) []model.Participation {
	out := append([]model.Participation(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WinRatio.GreaterThan(out[j].WinRatio)
	})
	return out
}

// Financials summarises each player's money flow. TotalBet multiplies the
// contest count by unitBet rather than summing per-record stakes.
func Financials(roster model.Roster, records []model.ContestRecord, unitBet decimal.Decimal) []model.Financial {
	days := dailySums(roster, records)

	out := make([]model.Financial, 0, len(roster.Players))
	for _, p := range roster.Players {
		f := model.Financial{
			Player:          p,
			TotalBet:        decimal.Zero,
			Winnings:        decimal.Zero,
			Losses:          decimal.Zero,
			NetProfit:       decimal.Zero,
			HighestDailyWin: decimal.Zero,
		}
		contests := 0
		for _, rec := range records {
			v := rec.Outcome(p)
			if v.IsZero() {
				continue
			}
			contests++
			if v.IsPositive() {
				f.Winnings = f.Winnings.Add(v)
			} else {
				f.Losses = f.Losses.Add(v.Abs())
			}
			f.NetProfit = f.NetProfit.Add(v)
		}
		f.TotalBet = unitBet.Mul(decimal.NewFromInt(int64(contests)))

		// Days are ascending, so strict comparison keeps the first maximal day.
		for _, day := range days {
			v := day.net[p]
			if !f.HasBestDay || v.GreaterThan(f.HighestDailyWin) {
				f.HighestDailyWin = v
				f.BestDay = day.date
				f.HasBestDay = true
			}
		}
		out = append(out, f)
	}
	return out
}

// RankFinancials sorts by net profit descending, stable on input order.
func RankFinancials(rows []model.Financial) []model.Financial {
	out := append([]model.Financial(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NetProfit.GreaterThan(out[j].NetProfit)
	})
	return out
}

// TrackBreakdown returns, per player, win/loss counts at every track that
// appears in the records. Each list is sorted by win percentage descending
// and otherwise by track code.
func TrackBreakdown(roster model.Roster, records []model.ContestRecord) map[string][]model.TrackStat {
	tracks := tracksIn(records)

	out := make(map[string][]model.TrackStat, len(roster.Players))
	for _, p := range roster.Players {
		stats := make([]model.TrackStat, 0, len(tracks))
		for _, t := range tracks {
			s := model.TrackStat{Track: t}
			for _, rec := range records {
				if rec.Track != t {
					continue
				}
				v := rec.Outcome(p)
				if v.IsPositive() {
					s.Wins++
				} else if v.IsNegative() {
					s.Losses++
				}
			}
			s.WinPct = percent(s.Wins, s.Wins+s.Losses)
			stats = append(stats, s)
		}
		sort.SliceStable(stats, func(i, j int) bool {
			return stats[i].WinPct.GreaterThan(stats[j].WinPct)
		})
		out[p] = stats
	}
	return out
}

// TimeSeries returns the running total of each player's daily net, one
// point per distinct dated day in ascending order. Initial balances are
// not included.
func TimeSeries(roster model.Roster, records []model.ContestRecord) []model.SeriesPoint {
	days := dailySums(roster, records)

	running := make(map[string]decimal.Decimal, len(roster.Players))
	points := make([]model.SeriesPoint, 0, len(days))
	for _, day := range days {
		net := make(map[string]decimal.Decimal, len(roster.Players))
		for _, p := range roster.Players {
			running[p] = running[p].Add(day.net[p])
			net[p] = running[p]
		}
		points = append(points, model.SeriesPoint{Date: day.date, Net: net})
	}
	return points
}

// TrackChart returns played/won figures for every configured track and
// player, in track then roster order. Tracks with no contests still appear.
func TrackChart(roster model.Roster, records []model.ContestRecord, tracks []string, unitBet decimal.Decimal) []model.TrackChartPoint {
	out := make([]model.TrackChartPoint, 0, len(tracks)*len(roster.Players))
	for _, t := range tracks {
		for _, p := range roster.Players {
			pt := model.TrackChartPoint{Track: t, Player: p, MoneyWon: decimal.Zero}
			for _, rec := range records {
				if rec.Track != t {
					continue
				}
				v := rec.Outcome(p)
				if v.IsZero() {
					continue
				}
				pt.Played++
				if v.IsPositive() {
					pt.Wins++
					pt.MoneyWon = pt.MoneyWon.Add(v)
				}
			}
			pt.TotalBid = unitBet.Mul(decimal.NewFromInt(int64(pt.Played)))
			out = append(out, pt)
		}
	}
	return out
}

// Compare returns contest count and net profit for two roster players.
func Compare(roster model.Roster, records []model.ContestRecord, a, b string) ([]model.Comparison, error) {
	if !roster.Has(a) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, a)
	}
	if !roster.Has(b) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, b)
	}
	if a == b {
		return nil, ErrSamePlayer
	}

	out := make([]model.Comparison, 0, 2)
	for _, p := range []string{a, b} {
		c := model.Comparison{Player: p, NetProfit: decimal.Zero}
		for _, rec := range records {
			v := rec.Outcome(p)
			if !v.IsZero() {
				c.TotalContests++
			}
			c.NetProfit = c.NetProfit.Add(v)
		}
		out = append(out, c)
	}
	return out, nil
}

// GroupAverage is the mean net profit across the roster.
func GroupAverage(roster model.Roster, records []model.ContestRecord) decimal.Decimal {
	if len(roster.Players) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, rec := range records {
		for _, p := range roster.Players {
			total = total.Add(rec.Outcome(p))
		}
	}
	return total.Div(decimal.NewFromInt(int64(len(roster.Players))))
}

// --- helpers ---

type daySum struct {
	date time.Time
	net  map[string]decimal.Decimal
}

// dailySums groups dated records by calendar day, ascending.
func dailySums(roster model.Roster, records []model.ContestRecord) []daySum {
	byDay := make(map[time.Time]map[string]decimal.Decimal)
	for _, rec := range records {
		if !rec.HasDate() {
			continue
		}
		day := dayOf(rec.Date)
		net, ok := byDay[day]
		if !ok {
			net = make(map[string]decimal.Decimal, len(roster.Players))
			byDay[day] = net
		}
		for _, p := range roster.Players {
			net[p] = net[p].Add(rec.Outcome(p))
		}
	}

	days := make([]daySum, 0, len(byDay))
	for day, net := range byDay {
		days = append(days, daySum{date: day, net: net})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].date.Before(days[j].date) })
	return days
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func tracksIn(records []model.ContestRecord) []string {
	seen := make(map[string]bool)
	var tracks []string
	for _, rec := range records {
		if !seen[rec.Track] {
			seen[rec.Track] = true
			tracks = append(tracks, rec.Track)
		}
	}
	sort.Strings(tracks)
	return tracks
}

// percent returns num*100/den, or zero when den is zero.
func percent(num, den int) decimal.Decimal {
	if den == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(num)).Mul(hundred).Div(decimal.NewFromInt(int64(den)))
}
