// Package model defines the core domain types shared across the league engine.
// All monetary values use shopspring/decimal, never float64.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Column names used by the stored row set alongside one column per player.
const (
	ColumnDate  = "Date"
	ColumnTrack = "Track"
)

// DateLayout is the canonical stored form of a contest date.
const DateLayout = "2006-01-02"

// Row is one stored contest row as the persistence layer holds it: Date,
// Track and one raw value per player column.
type Row map[string]string

// Roster is the ordered player list plus balances carried in from before
// the first recorded contest. Player order is display order.
type Roster struct {
	Players         []string                   `json:"players"`
	InitialBalances map[string]decimal.Decimal `json:"initial_balances"`
}

// Initial returns the opening balance of a player, zero if unset.
func (r Roster) Initial(player string) decimal.Decimal {
	return r.InitialBalances[player]
}

// Has reports whether player is on the roster.
func (r Roster) Has(player string) bool {
	for _, p := range r.Players {
		if p == player {
			return true
		}
	}
	return false
}

// ContestRecord is one settled contest. Records are appended, never edited.
//
// Participation is not stored: a player took part iff their outcome is
// non-zero. A zero Date means the stored date could not be parsed; such
// records still count toward balances but are left out of date-based views.
type ContestRecord struct {
	Date      time.Time                  `json:"date"`
	Track     string                     `json:"track"`
	BetAmount decimal.Decimal            `json:"bet_amount"`
	Outcomes  map[string]decimal.Decimal `json:"outcomes"`
}

// HasDate reports whether the record carries a usable calendar date.
func (c ContestRecord) HasDate() bool {
	return !c.Date.IsZero()
}

// Outcome returns the signed amount player netted, zero if absent.
func (c ContestRecord) Outcome(player string) decimal.Decimal {
	return c.Outcomes[player]
}

// Played reports whether player participated (non-zero outcome).
func (c ContestRecord) Played(player string) bool {
	return !c.Outcomes[player].IsZero()
}

// Participants lists the players with a non-zero outcome in roster order.
func (c ContestRecord) Participants(players []string) []string {
	var out []string
	for _, p := range players {
		if c.Played(p) {
			out = append(out, p)
		}
	}
	return out
}

// Winner returns the single player with a positive outcome.
func (c ContestRecord) Winner(players []string) (string, bool) {
	winner := ""
	for _, p := range players {
		if c.Outcomes[p].IsPositive() {
			if winner != "" {
				return "", false
			}
			winner = p
		}
	}
	return winner, winner != ""
}

// Standing is one line of the ranked balance table.
type Standing struct {
	Rank    int             `json:"rank"`
	Player  string          `json:"player"`
	Balance decimal.Decimal `json:"balance"`
}

// Participation is a player's contest count and win ratio.
type Participation struct {
	Player        string          `json:"player"`
	TotalContests int             `json:"total_contests"`
	Wins          int             `json:"wins"`
	Losses        int             `json:"losses"`
	WinRatio      decimal.Decimal `json:"win_ratio"` // percent, 0-100
}

// Financial summarises a player's money flow across all records.
type Financial struct {
	Player          string          `json:"player"`
	TotalBet        decimal.Decimal `json:"total_bet"`
	Winnings        decimal.Decimal `json:"winnings"`
	Losses          decimal.Decimal `json:"losses"` // absolute value
	NetProfit       decimal.Decimal `json:"net_profit"`
	HighestDailyWin decimal.Decimal `json:"highest_daily_win"`
	HasBestDay      bool            `json:"has_best_day"`
	BestDay         time.Time       `json:"best_day,omitempty"`
}

// TrackStat is a player's record at one track.
type TrackStat struct {
	Track  string          `json:"track"`
	Wins   int             `json:"wins"`
	Losses int             `json:"losses"`
	WinPct decimal.Decimal `json:"win_pct"`
}

// SeriesPoint is the cumulative net per player at the end of one day.
type SeriesPoint struct {
	Date time.Time                  `json:"date"`
	Net  map[string]decimal.Decimal `json:"net"`
}

// HistoryDay is one calendar day of contests with per-player subtotals.
type HistoryDay struct {
	Date      time.Time                  `json:"date"`
	Contests  []ContestRecord            `json:"contests"`
	Subtotals map[string]decimal.Decimal `json:"subtotals"`
}

// HistoryPage is one page of days, newest first.
type HistoryPage struct {
	Page       int          `json:"page"`
	TotalPages int          `json:"total_pages"`
	Days       []HistoryDay `json:"days"`
}

// TrackChartPoint feeds the wins-by-track chart for one player at one track.
type TrackChartPoint struct {
	Track    string          `json:"track"`
	Player   string          `json:"player"`
	Played   int             `json:"played"`
	Wins     int             `json:"wins"`
	TotalBid decimal.Decimal `json:"total_bid"`
	MoneyWon decimal.Decimal `json:"money_won"`
}

// Comparison is one side of a head-to-head player comparison.
type Comparison struct {
	Player        string          `json:"player"`
	TotalContests int             `json:"total_contests"`
	NetProfit     decimal.Decimal `json:"net_profit"`
}
