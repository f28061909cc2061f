// Package dashboard provides the HTTP handlers behind the league pages:
// balances and history, statistics, and data entry.
//
// Every request reloads the full contest table from the store and derives
// what it needs; nothing is cached between requests here. All monetary
// values use shopspring/decimal, never float64.
package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/minileague/league-engine/internal/config"
	"github.com/minileague/league-engine/internal/entry"
	"github.com/minileague/league-engine/internal/ledger"
	"github.com/minileague/league-engine/internal/metrics"
	"github.com/minileague/league-engine/internal/model"
	"github.com/minileague/league-engine/internal/sheet"
	"github.com/minileague/league-engine/internal/store"
	"github.com/minileague/league-engine/internal/track"
)

// loadFailedNotice is shown when the contest table cannot be read.
const loadFailedNotice = "Contest history is unavailable right now; showing an empty ledger."

// Service serves league data. Submissions are serialized with a mutex so
// two entries in this process cannot overwrite each other's table write.
// Separate processes sharing a store still race: the last save wins.
type Service struct {
	store  store.Store
	league *config.League
	roster model.Roster
	tracks *track.Set
	drafts *entry.Book
	mu     sync.Mutex
	wsHub  *WSHub // optional WebSocket hub for real-time broadcasts
	now    func() time.Time
}

// NewService creates a new dashboard service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, league *config.League, drafts *entry.Book, hub *WSHub) *Service {
	return &Service{
		store:  st,
		league: league,
		roster: league.Roster(),
		tracks: league.TrackSet(),
		drafts: drafts,
		wsHub:  hub,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Envelope wraps every read response. Notice carries a user-visible
// message when the data is degraded (e.g. the store was unreachable).
type Envelope struct {
	Data   any    `json:"data"`
	Notice string `json:"notice,omitempty"`
}

// ConfigResponse describes the league for the entry form.
type ConfigResponse struct {
	Players         []string                   `json:"players"`
	InitialBalances map[string]decimal.Decimal `json:"initial_balances"`
	Tracks          []string                   `json:"tracks"`
	DefaultBet      decimal.Decimal            `json:"default_bet"`
	DaysPerPage     int                        `json:"days_per_page"`
}

// GroupAverageResponse is the group-average comparison view.
type GroupAverageResponse struct {
	Average decimal.Decimal            `json:"average"`
	Net     map[string]decimal.Decimal `json:"net"`
}

// loadRecords reads and decodes the contest table. On failure it logs,
// counts the failure and returns no records with a notice; the pages stay
// viewable with an empty history.
func (s *Service) loadRecords(ctx context.Context) ([]model.ContestRecord, string) {
	start := time.Now()
	rows, err := s.store.LoadRows(ctx)
	metrics.LoadLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Error("load contest rows failed", "err", err)
		metrics.StoreFailures.WithLabelValues("load").Inc()
		return nil, loadFailedNotice
	}

	records, stats := sheet.Decode(s.roster, rows)
	observeDecode(stats)
	return records, ""
}

func observeDecode(stats sheet.Stats) {
	metrics.LedgerRows.Set(float64(stats.Rows))
	if stats.Malformed() {
		metrics.MalformedCells.WithLabelValues("date").Add(float64(stats.BadDates))
		metrics.MalformedCells.WithLabelValues("outcome").Add(float64(stats.BadOutcomes))
		slog.Debug("coerced malformed contest rows",
			"rows", stats.Rows,
			"bad_dates", stats.BadDates,
			"bad_outcomes", stats.BadOutcomes,
		)
	}
}

// --- HTTP Handlers ---

// GetConfig handles GET /api/v1/config
func (s *Service) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Envelope{Data: ConfigResponse{
		Players:         s.roster.Players,
		InitialBalances: s.roster.InitialBalances,
		Tracks:          s.tracks.Codes(),
		DefaultBet:      s.league.DefaultBet.Decimal,
		DaysPerPage:     s.league.DaysPerPage,
	}})
}

// GetBalances handles GET /api/v1/balances
func (s *Service) GetBalances(w http.ResponseWriter, r *http.Request) {
	records, notice := s.loadRecords(r.Context())
	standings := ledger.Ranking(s.roster, ledger.Balances(s.roster, records))
	writeJSON(w, http.StatusOK, Envelope{Data: standings, Notice: notice})
}

// GetHistory handles GET /api/v1/history?page=N
func (s *Service) GetHistory(w http.ResponseWriter, r *http.Request) {
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, "page must be a positive integer", http.StatusBadRequest)
			return
		}
		page = n
	}

	records, notice := s.loadRecords(r.Context())
	hist := ledger.History(s.roster, records, page, s.league.DaysPerPage)
	writeJSON(w, http.StatusOK, Envelope{Data: hist, Notice: notice})
}

// GetParticipation handles GET /api/v1/stats/participation
// Ranked by win ratio.
func (s *Service) GetParticipation(w http.ResponseWriter, r *http.Request) {
	records, notice := s.loadRecords(r.Context())
	rows := ledger.RankParticipation(ledger.Participation(s.roster, records))
	writeJSON(w, http.StatusOK, Envelope{Data: rows, Notice: notice})
}

// GetFinancials handles GET /api/v1/stats/financials
// Ranked by net profit.
func (s *Service) GetFinancials(w http.ResponseWriter, r *http.Request) {
	records, notice := s.loadRecords(r.Context())
	rows := ledger.RankFinancials(ledger.Financials(s.roster, records, s.league.DefaultBet.Decimal))
	writeJSON(w, http.StatusOK, Envelope{Data: rows, Notice: notice})
}

// GetTrackStats handles GET /api/v1/stats/tracks
func (s *Service) GetTrackStats(w http.ResponseWriter, r *http.Request) {
	records, notice := s.loadRecords(r.Context())
	writeJSON(w, http.StatusOK, Envelope{Data: ledger.TrackBreakdown(s.roster, records), Notice: notice})
}

// GetTimeSeries handles GET /api/v1/stats/timeseries
func (s *Service) GetTimeSeries(w http.ResponseWriter, r *http.Request) {
	records, notice := s.loadRecords(r.Context())
	writeJSON(w, http.StatusOK, Envelope{Data: ledger.TimeSeries(s.roster, records), Notice: notice})
}

// GetTrackChart handles GET /api/v1/stats/track-chart
// Covers every configured track in configured order.
func (s *Service) GetTrackChart(w http.ResponseWriter, r *http.Request) {
	records, notice := s.loadRecords(r.Context())

	tracks := make([]string, 0, len(s.league.Tracks))
	seen := make(map[string]bool, len(s.league.Tracks))
	for _, t := range s.league.Tracks {
		if n := track.Normalize(t); !seen[n] {
			seen[n] = true
			tracks = append(tracks, n)
		}
	}

	points := ledger.TrackChart(s.roster, records, tracks, s.league.DefaultBet.Decimal)
	writeJSON(w, http.StatusOK, Envelope{Data: points, Notice: notice})
}

// GetComparison handles GET /api/v1/stats/compare?a=<player>&b=<player>
func (s *Service) GetComparison(w http.ResponseWriter, r *http.Request) {
	a := r.URL.Query().Get("a")
	b := r.URL.Query().Get("b")

	records, notice := s.loadRecords(r.Context())
	cmp, err := ledger.Compare(s.roster, records, a, b)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Data: cmp, Notice: notice})
}

// GetGroupAverage handles GET /api/v1/stats/group-average
func (s *Service) GetGroupAverage(w http.ResponseWriter, r *http.Request) {
	records, notice := s.loadRecords(r.Context())

	net := make(map[string]decimal.Decimal, len(s.roster.Players))
	for _, p := range s.roster.Players {
		net[p] = decimal.Zero
		for _, rec := range records {
			net[p] = net[p].Add(rec.Outcome(p))
		}
	}

	writeJSON(w, http.StatusOK, Envelope{Data: GroupAverageResponse{
		Average: ledger.GroupAverage(s.roster, records),
		Net:     net,
	}, Notice: notice})
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Routes mounts the JSON API handlers on r. The WebSocket endpoint is
// mounted separately by the caller via WSHub.HandleWS.
func (s *Service) Routes(r chi.Router) {
	r.Get("/config", s.GetConfig)

	// Home page.
	r.Get("/balances", s.GetBalances)
	r.Get("/history", s.GetHistory)

	// Statistics page.
	r.Route("/stats", func(r chi.Router) {
		r.Get("/participation", s.GetParticipation)
		r.Get("/financials", s.GetFinancials)
		r.Get("/tracks", s.GetTrackStats)
		r.Get("/timeseries", s.GetTimeSeries)
		r.Get("/track-chart", s.GetTrackChart)
		r.Get("/compare", s.GetComparison)
		r.Get("/group-average", s.GetGroupAverage)
	})

	// Data entry.
	r.Post("/contests", s.RecordContest)
	r.Post("/entries", s.OpenEntry)
	r.Get("/entries/{draftID}", s.GetEntry)
	r.Post("/entries/{draftID}/winner", s.CompleteEntry)
}
