package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minileague/league-engine/internal/model"
	"github.com/minileague/league-engine/internal/payout"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func testRoster() model.Roster {
	return model.Roster{
		Players: []string{"Hans", "Rich", "Ralls"},
		InitialBalances: map[string]decimal.Decimal{
			"Hans":  d(0),
			"Rich":  d(80),
			"Ralls": d(-80),
		},
	}
}

// contest settles a contest through the payout rule and builds its record.
func contest(t *testing.T, date, track string, participants []string, winner string, bet float64) model.ContestRecord {
	t.Helper()
	roster := testRoster()
	out, err := payout.ComputeOutcomes(roster.Players, participants, winner, d(bet))
	if err != nil {
		t.Fatalf("compute outcomes: %v", err)
	}
	rec := model.ContestRecord{Track: track, BetAmount: d(bet), Outcomes: out}
	if date != "" {
		rec.Date = day(date)
	}
	return rec
}

func assertMoney(t *testing.T, label string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s: expected %s, got %s", label, want, got)
	}
}

// --- Balances ---

func TestBalances_EmptyReturnsInitial(t *testing.T) {
	roster := testRoster()
	balances := Balances(roster, nil)
	if len(balances) != len(roster.Players) {
		t.Fatalf("expected %d balances, got %d", len(roster.Players), len(balances))
	}
	for _, p := range roster.Players {
		assertMoney(t, p, balances[p], roster.Initial(p))
	}
}

func TestBalances_SingleContestScenario(t *testing.T) {
	rec := contest(t, "2024-01-01", "PARX", []string{"Hans", "Rich"}, "Hans", 40)

	assertMoney(t, "outcome Hans", rec.Outcome("Hans"), d(40))
	assertMoney(t, "outcome Rich", rec.Outcome("Rich"), d(-40))
	assertMoney(t, "outcome Ralls", rec.Outcome("Ralls"), d(0))

	balances := Balances(testRoster(), []model.ContestRecord{rec})
	assertMoney(t, "Hans", balances["Hans"], d(40))
	assertMoney(t, "Rich", balances["Rich"], d(40))
	assertMoney(t, "Ralls", balances["Ralls"], d(-80))
}

func TestBalances_OrderIndependent(t *testing.T) {
	recs := []model.ContestRecord{
		contest(t, "2024-01-01", "PARX", []string{"Hans", "Rich"}, "Hans", 40),
		contest(t, "2024-01-02", "TP", []string{"Hans", "Rich", "Ralls"}, "Ralls", 40),
		contest(t, "2024-01-02", "GP", []string{"Rich", "Ralls"}, "Rich", 25),
		contest(t, "2024-01-03", "SA", []string{"Hans", "Ralls"}, "Ralls", 10),
	}
	want := Balances(testRoster(), recs)

	perms := [][]int{{3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1}}
	for _, perm := range perms {
		shuffled := make([]model.ContestRecord, len(recs))
		for i, j := range perm {
			shuffled[i] = recs[j]
		}
		got := Balances(testRoster(), shuffled)
		for p, v := range want {
			assertMoney(t, p, got[p], v)
		}
	}
}

func TestBalances_PlayerMissingFromRecords(t *testing.T) {
	roster := testRoster()
	roster.Players = append(roster.Players, "JK")
	rec := model.ContestRecord{Outcomes: map[string]decimal.Decimal{"Hans": d(40), "Rich": d(-40)}}

	balances := Balances(roster, []model.ContestRecord{rec})
	assertMoney(t, "JK", balances["JK"], d(0))
	assertMoney(t, "Ralls", balances["Ralls"], d(-80))
}

func TestRanking_StableOnTies(t *testing.T) {
	roster := model.Roster{Players: []string{"A", "B", "C", "D"}}
	balances := map[string]decimal.Decimal{"A": d(10), "B": d(50), "C": d(10), "D": d(50)}

	got := Ranking(roster, balances)
	want := []string{"B", "D", "A", "C"}
	for i, s := range got {
		if s.Player != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], s.Player)
		}
		if s.Rank != i+1 {
			t.Errorf("position %d: expected rank %d, got %d", i, i+1, s.Rank)
		}
	}
}

// --- Participation ---

func TestParticipation_ZeroContestsHasZeroRatio(t *testing.T) {
	rec := contest(t, "2024-01-01", "PARX", []string{"Hans", "Rich"}, "Hans", 40)
	rows := Participation(testRoster(), []model.ContestRecord{rec})

	ralls := rows[2]
	if ralls.Player != "Ralls" || ralls.TotalContests != 0 {
		t.Fatalf("unexpected Ralls row: %+v", ralls)
	}
	assertMoney(t, "Ralls ratio", ralls.WinRatio, d(0))
}

func TestParticipation_Counts(t *testing.T) {
	recs := []model.ContestRecord{
		contest(t, "2024-01-01", "PARX", []string{"Hans", "Rich"}, "Hans", 40),
		contest(t, "2024-01-02", "TP", []string{"Hans", "Rich", "Ralls"}, "Rich", 40),
		contest(t, "2024-01-03", "TP", []string{"Hans", "Ralls"}, "Hans", 40),
		contest(t, "2024-01-04", "DD", []string{"Hans", "Rich"}, "Rich", 40),
	}
	rows := Participation(testRoster(), recs)

	hans := rows[0]
	if hans.TotalContests != 4 || hans.Wins != 2 || hans.Losses != 2 {
		t.Errorf("unexpected Hans counts: %+v", hans)
	}
	assertMoney(t, "Hans ratio", hans.WinRatio, d(50))

	ranked := RankParticipation(rows)
	if ranked[0].Player != "Rich" {
		t.Errorf("expected Rich (2/3) first, got %s", ranked[0].Player)
	}
	if ranked[2].Player != "Ralls" {
		t.Errorf("expected Ralls (0/2) last, got %s", ranked[2].Player)
	}
}

// --- Financials ---

func TestFinancials_NetProfitAndHighestDailyWin(t *testing.T) {
	// Hans wins a 3-way (+80) and loses a 2-way (-40) on Jan 1 for a day
	// total of +40; on Jan 2 he wins a 2-way (+40) and another 2-way (+40)
	// for +80. His best single record is +80 on Jan 1 but his best day is Jan 2.
	recs := []model.ContestRecord{
		contest(t, "2024-01-01", "PARX", []string{"Hans", "Rich", "Ralls"}, "Hans", 40),
		contest(t, "2024-01-01", "TP", []string{"Hans", "Rich"}, "Rich", 40),
		contest(t, "2024-01-02", "GP", []string{"Hans", "Ralls"}, "Hans", 40),
		contest(t, "2024-01-02", "SA", []string{"Hans", "Rich", "Ralls"}, "Ralls", 20),
		contest(t, "2024-01-02", "DD", []string{"Hans", "Rich"}, "Hans", 60),
	}

	byPlayer := make(map[string]model.Financial)
	for _, f := range Financials(testRoster(), recs, d(40)) {
		byPlayer[f.Player] = f
	}

	for _, p := range testRoster().Players {
		column := decimal.Zero
		for _, r := range recs {
			column = column.Add(r.Outcome(p))
		}
		assertMoney(t, p+" net", byPlayer[p].NetProfit, column)
		assertMoney(t, p+" winnings-losses", byPlayer[p].Winnings.Sub(byPlayer[p].Losses), column)
	}

	hans := byPlayer["Hans"]
	// Jan 1: +80 -40 = 40. Jan 2: +40 -20 +60 = 80.
	assertMoney(t, "Hans highest daily", hans.HighestDailyWin, d(80))
	if !hans.BestDay.Equal(day("2024-01-02")) {
		t.Errorf("expected best day 2024-01-02, got %s", hans.BestDay)
	}
	assertMoney(t, "Hans total bet", hans.TotalBet, d(200))
	assertMoney(t, "Hans winnings", hans.Winnings, d(180))
	assertMoney(t, "Hans losses", hans.Losses, d(60))
}

func TestFinancials_TieKeepsEarliestDay(t *testing.T) {
	recs := []model.ContestRecord{
		contest(t, "2024-02-02", "PARX", []string{"Hans", "Rich"}, "Hans", 40),
		contest(t, "2024-02-01", "PARX", []string{"Hans", "Rich"}, "Hans", 40),
	}
	f := Financials(testRoster(), recs, d(40))[0]
	if !f.BestDay.Equal(day("2024-02-01")) {
		t.Errorf("expected earliest maximal day, got %s", f.BestDay)
	}
}

func TestFinancials_NoRecords(t *testing.T) {
	for _, f := range Financials(testRoster(), nil, d(40)) {
		if f.HasBestDay {
			t.Errorf("%s: expected no best day", f.Player)
		}
		assertMoney(t, f.Player+" highest", f.HighestDailyWin, d(0))
		assertMoney(t, f.Player+" total bet", f.TotalBet, d(0))
	}
}

func TestRankFinancials(t *testing.T) {
	recs := []model.ContestRecord{
		contest(t, "2024-01-01", "PARX", []string{"Hans", "Rich", "Ralls"}, "Ralls", 40),
	}
	ranked := RankFinancials(Financials(testRoster(), recs, d(40)))
	if ranked[0].Player != "Ralls" || ranked[1].Player != "Hans" || ranked[2].Player != "Rich" {
		t.Errorf("unexpected order: %s %s %s", ranked[0].Player, ranked[1].Player, ranked[2].Player)
	}
}

// --- Tracks ---

func TestTrackBreakdown(t *testing.T) {
	recs := []model.ContestRecord{
		contest(t, "2024-01-01", "TP", []string{"Hans", "Rich"}, "Rich", 40),
		contest(t, "2024-01-01", "PARX", []string{"Hans", "Rich"}, "Hans", 40),
		contest(t, "2024-01-02", "PARX", []string{"Hans", "Ralls"}, "Ralls", 40),
		contest(t, "2024-01-02", "PARX", []string{"Hans", "Ralls"}, "Hans", 40),
		contest(t, "2024-01-03", "GP", []string{"Rich", "Ralls"}, "Rich", 40),
	}
	stats := TrackBreakdown(testRoster(), recs)

	hans := stats["Hans"]
	if len(hans) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(hans))
	}
	// PARX 2-1 (66.67%), GP 0-0 (0), TP 0-1 (0); ties keep alphabetical order.
	if hans[0].Track != "PARX" || hans[0].Wins != 2 || hans[0].Losses != 1 {
		t.Errorf("unexpected first Hans track: %+v", hans[0])
	}
	if hans[1].Track != "GP" || hans[2].Track != "TP" {
		t.Errorf("unexpected tie order: %s, %s", hans[1].Track, hans[2].Track)
	}
	assertMoney(t, "GP pct", hans[1].WinPct, d(0))

	rich := stats["Rich"]
	if rich[0].Track != "GP" || !rich[0].WinPct.Equal(d(100)) {
		t.Errorf("unexpected first Rich track: %+v", rich[0])
	}
}

func TestTrackChart(t *testing.T) {
	recs := []model.ContestRecord{
		contest(t, "2024-01-01", "PARX", []string{"Hans", "Rich", "Ralls"}, "Hans", 40),
		contest(t, "2024-01-02", "PARX", []string{"Hans", "Rich"}, "Rich", 40),
	}
	points := TrackChart(testRoster(), recs, []string{"PARX", "AQU"}, d(40))
	if len(points) != 6 {
		t.Fatalf("expected 6 points, got %d", len(points))
	}
	hans := points[0]
	if hans.Track != "PARX" || hans.Player != "Hans" || hans.Played != 2 || hans.Wins != 1 {
		t.Errorf("unexpected Hans PARX point: %+v", hans)
	}
	assertMoney(t, "total bid", hans.TotalBid, d(80))
	assertMoney(t, "money won", hans.MoneyWon, d(80))

	aqu := points[3]
	if aqu.Track != "AQU" || aqu.Played != 0 {
		t.Errorf("expected empty AQU point, got %+v", aqu)
	}
}

// --- Time series ---

func TestTimeSeries_PrefixSumPerDay(t *testing.T) {
	recs := []model.ContestRecord{
		contest(t, "2024-01-03", "PARX", []string{"Hans", "Rich"}, "Rich", 40),
		contest(t, "2024-01-01", "PARX", []string{"Hans", "Rich"}, "Hans", 40),
		contest(t, "2024-01-01", "TP", []string{"Hans", "Ralls"}, "Hans", 40),
		contest(t, "", "TP", []string{"Hans", "Ralls"}, "Ralls", 40),
	}
	points := TimeSeries(testRoster(), recs)
	if len(points) != 2 {
		t.Fatalf("expected one point per dated day, got %d", len(points))
	}
	if !points[0].Date.Equal(day("2024-01-01")) || !points[1].Date.Equal(day("2024-01-03")) {
		t.Errorf("unexpected dates: %s, %s", points[0].Date, points[1].Date)
	}
	assertMoney(t, "day1 Hans", points[0].Net["Hans"], d(80))
	assertMoney(t, "day2 Hans", points[1].Net["Hans"], d(40))
	assertMoney(t, "day2 Rich", points[1].Net["Rich"], d(0))
	assertMoney(t, "day2 Ralls", points[1].Net["Ralls"], d(-40))
}

// --- History ---

func TestHistory_PagesNewestFirst(t *testing.T) {
	var recs []model.ContestRecord
	for _, date := range []string{"2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04",
		"2024-03-05", "2024-03-06", "2024-03-07", "2024-03-08"} {
		recs = append(recs, contest(t, date, "TP", []string{"Hans", "Rich"}, "Hans", 40))
	}
	recs = append(recs, contest(t, "2024-03-08", "AQU", []string{"Rich", "Ralls"}, "Ralls", 40))
	recs = append(recs, contest(t, "", "AQU", []string{"Rich", "Ralls"}, "Ralls", 40))

	first := History(testRoster(), recs, 1, 6)
	if first.TotalPages != 2 || len(first.Days) != 6 {
		t.Fatalf("expected 2 pages with 6 days, got %d pages %d days", first.TotalPages, len(first.Days))
	}
	top := first.Days[0]
	if !top.Date.Equal(day("2024-03-08")) {
		t.Errorf("expected newest day first, got %s", top.Date)
	}
	if len(top.Contests) != 2 || top.Contests[0].Track != "AQU" {
		t.Errorf("expected day contests sorted by track, got %+v", top.Contests)
	}
	assertMoney(t, "subtotal Rich", top.Subtotals["Rich"], d(-80))
	assertMoney(t, "subtotal Hans", top.Subtotals["Hans"], d(40))

	second := History(testRoster(), recs, 2, 6)
	if len(second.Days) != 2 || !second.Days[1].Date.Equal(day("2024-03-01")) {
		t.Errorf("unexpected second page: %+v", second.Days)
	}

	clamped := History(testRoster(), recs, 99, 6)
	if clamped.Page != 2 {
		t.Errorf("expected page clamped to 2, got %d", clamped.Page)
	}
}

func TestHistory_Empty(t *testing.T) {
	page := History(testRoster(), nil, 1, 0)
	if page.TotalPages != 0 || len(page.Days) != 0 || page.Page != 1 {
		t.Errorf("unexpected empty page: %+v", page)
	}
}

// --- Comparison ---

func TestCompare(t *testing.T) {
	recs := []model.ContestRecord{
		contest(t, "2024-01-01", "PARX", []string{"Hans", "Rich"}, "Hans", 40),
		contest(t, "2024-01-02", "PARX", []string{"Hans", "Rich", "Ralls"}, "Hans", 40),
	}
	got, err := Compare(testRoster(), recs, "Hans", "Ralls")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].TotalContests != 2 || !got[0].NetProfit.Equal(d(120)) {
		t.Errorf("unexpected Hans comparison: %+v", got[0])
	}
	if got[1].TotalContests != 1 || !got[1].NetProfit.Equal(d(-40)) {
		t.Errorf("unexpected Ralls comparison: %+v", got[1])
	}

	if _, err := Compare(testRoster(), recs, "Hans", "Nobody"); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("expected ErrUnknownPlayer, got %v", err)
	}
	if _, err := Compare(testRoster(), recs, "Hans", "Hans"); !errors.Is(err, ErrSamePlayer) {
		t.Errorf("expected ErrSamePlayer, got %v", err)
	}
}

func TestGroupAverage(t *testing.T) {
	recs := []model.ContestRecord{
		contest(t, "2024-01-01", "PARX", []string{"Hans", "Rich"}, "Hans", 40),
	}
	// Zero-sum contests always average to zero across the roster.
	assertMoney(t, "average", GroupAverage(testRoster(), recs), d(0))

	lopsided := []model.ContestRecord{{Outcomes: map[string]decimal.Decimal{"Hans": d(90)}}}
	assertMoney(t, "lopsided", GroupAverage(testRoster(), lopsided), d(30))

	assertMoney(t, "empty roster", GroupAverage(model.Roster{}, recs), d(0))
}

func TestAppend_DoesNotMutateInput(t *testing.T) {
	base := make([]model.ContestRecord, 1, 4)
	base[0] = contest(t, "2024-01-01", "PARX", []string{"Hans", "Rich"}, "Hans", 40)

	next := contest(t, "2024-01-02", "TP", []string{"Hans", "Rich"}, "Rich", 40)
	out := Append(base, next)
	if len(out) != 2 || len(base) != 1 {
		t.Fatalf("unexpected lengths: out=%d base=%d", len(out), len(base))
	}
	extended := base[:2]
	if extended[1].Track == "TP" {
		t.Error("Append wrote into the input's backing array")
	}
}
