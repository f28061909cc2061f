package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minileague/league-engine/internal/entry"
	"github.com/minileague/league-engine/internal/ledger"
	"github.com/minileague/league-engine/internal/metrics"
	"github.com/minileague/league-engine/internal/model"
	"github.com/minileague/league-engine/internal/payout"
	"github.com/minileague/league-engine/internal/sheet"
)

// errStore marks failures reading or writing the contest table.
var errStore = errors.New("dashboard: contest table unavailable")

// --- Request/Response types ---

// ContestRequest is the JSON body for the contest details step, and for
// single-step submission when Winner is set.
type ContestRequest struct {
	Date         string          `json:"date"` // YYYY-MM-DD; today when empty
	Track        string          `json:"track"`
	Participants []string        `json:"participants"`
	Winner       string          `json:"winner,omitempty"`
	BetAmount    decimal.Decimal `json:"bet_amount"` // 0 → league default
}

// WinnerRequest is the JSON body for the winner step.
type WinnerRequest struct {
	Winner string `json:"winner"`
}

// ContestResponse is returned once a contest has been recorded.
type ContestResponse struct {
	SubmissionID string              `json:"submission_id"`
	Contest      model.ContestRecord `json:"contest"`
	Participants []string            `json:"participants"`
	Winner       string              `json:"winner"`
	Row          model.Row           `json:"row"`
	Standings    []model.Standing    `json:"standings"`
}

// contestDetails is a validated contest awaiting (or carrying) a winner.
type contestDetails struct {
	date         time.Time
	track        string
	participants []string
	bet          decimal.Decimal
}

// validateDetails checks everything about a contest except its winner.
// The returned reason labels the rejection metric.
func (s *Service) validateDetails(req ContestRequest) (contestDetails, string, error) {
	var cd contestDetails

	if strings.TrimSpace(req.Date) == "" {
		cd.date = dayOf(s.now())
	} else {
		date, ok := sheet.ParseDate(req.Date)
		if !ok {
			return cd, "date", fmt.Errorf("date must be YYYY-MM-DD, got %q", req.Date)
		}
		cd.date = date
	}

	code, err := s.tracks.Validate(req.Track)
	if err != nil {
		return cd, "track", err
	}
	cd.track = code

	seen := make(map[string]bool, len(req.Participants))
	for _, p := range req.Participants {
		p = strings.TrimSpace(p)
		if !s.roster.Has(p) {
			return cd, "player", fmt.Errorf("%w: %q", ledger.ErrUnknownPlayer, p)
		}
		if !seen[p] {
			seen[p] = true
			cd.participants = append(cd.participants, p)
		}
	}
	if err := payout.ValidateContest(cd.participants, ""); err != nil {
		return cd, "size", err
	}

	cd.bet = req.BetAmount
	if cd.bet.IsZero() {
		cd.bet = s.league.DefaultBet.Decimal
	}
	if err := payout.ValidateBet(cd.bet); err != nil {
		return cd, "bet", err
	}
	return cd, "", nil
}

// RecordContest handles POST /api/v1/contests
// Single-step entry: details and winner in one body.
func (s *Service) RecordContest(w http.ResponseWriter, r *http.Request) {
	var req ContestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cd, reason, err := s.validateDetails(req)
	if err != nil {
		metrics.EntryRejections.WithLabelValues(reason).Inc()
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := s.record(r.Context(), cd, strings.TrimSpace(req.Winner))
	if err != nil {
		s.writeRecordError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// OpenEntry handles POST /api/v1/entries
// First entry step: confirms date, track, participants and bet, and
// returns a draft to name the winner against.
func (s *Service) OpenEntry(w http.ResponseWriter, r *http.Request) {
	var req ContestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cd, reason, err := s.validateDetails(req)
	if err != nil {
		metrics.EntryRejections.WithLabelValues(reason).Inc()
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	draft := s.drafts.Open(entry.Draft{
		Date:         cd.date,
		Track:        cd.track,
		Participants: cd.participants,
		BetAmount:    cd.bet,
	})

	slog.Info("entry draft opened",
		"draft_id", draft.ID,
		"track", draft.Track,
		"participants", len(draft.Participants),
	)
	writeJSON(w, http.StatusCreated, draft)
}

// GetEntry handles GET /api/v1/entries/{draftID}
func (s *Service) GetEntry(w http.ResponseWriter, r *http.Request) {
	draft, err := s.drafts.Get(chi.URLParam(r, "draftID"))
	if err != nil {
		writeError(w, "draft not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// CompleteEntry handles POST /api/v1/entries/{draftID}/winner
// Second entry step: names the winner and records the contest.
func (s *Service) CompleteEntry(w http.ResponseWriter, r *http.Request) {
	var req WinnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	draft, err := s.drafts.Take(chi.URLParam(r, "draftID"))
	if err != nil {
		writeError(w, "draft not found", http.StatusNotFound)
		return
	}

	cd := contestDetails{
		date:         draft.Date,
		track:        draft.Track,
		participants: draft.Participants,
		bet:          draft.BetAmount,
	}
	resp, err := s.record(r.Context(), cd, strings.TrimSpace(req.Winner))
	if err != nil {
		// Keep the draft so the winner can be re-submitted.
		s.drafts.Restore(draft)
		s.writeRecordError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// record settles a validated contest and rewrites the table with the new
// row appended. Existing rows are written back exactly as loaded.
func (s *Service) record(ctx context.Context, cd contestDetails, winner string) (*ContestResponse, error) {
	if err := payout.ValidateContest(cd.participants, winner); err != nil {
		return nil, err
	}
	if winner == "" {
		return nil, fmt.Errorf("%w: winner is required", payout.ErrInvalidContest)
	}

	outcomes, err := payout.ComputeOutcomes(s.roster.Players, cd.participants, winner, cd.bet)
	if err != nil {
		return nil, err
	}
	rec := model.ContestRecord{
		Date:      cd.date,
		Track:     cd.track,
		BetAmount: cd.bet,
		Outcomes:  outcomes,
	}
	newRow := sheet.Encode(s.roster, []model.ContestRecord{rec})[0]

	// Serialize load-append-save.
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.store.LoadRows(ctx)
	if err != nil {
		metrics.StoreFailures.WithLabelValues("load").Inc()
		return nil, fmt.Errorf("%w: %v", errStore, err)
	}
	rows = append(rows, newRow)
	if err := s.store.SaveRows(ctx, rows); err != nil {
		metrics.StoreFailures.WithLabelValues("save").Inc()
		return nil, fmt.Errorf("%w: %v", errStore, err)
	}

	records, stats := sheet.Decode(s.roster, rows)
	observeDecode(stats)
	standings := ledger.Ranking(s.roster, ledger.Balances(s.roster, records))

	submissionID := uuid.New().String()
	metrics.ContestsRecorded.WithLabelValues(strconv.Itoa(len(cd.participants))).Inc()

	slog.Info("contest recorded",
		"submission_id", submissionID,
		"date", sheet.FormatDate(rec.Date),
		"track", rec.Track,
		"winner", winner,
		"participants", len(cd.participants),
		"bet", cd.bet.String(),
		"rows", len(rows),
	)

	// Broadcast new balances via WebSocket.
	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:         "contest_recorded",
			SubmissionID: submissionID,
			Date:         sheet.FormatDate(rec.Date),
			Track:        rec.Track,
			Winner:       winner,
			Standings:    standings,
		})
	}

	return &ContestResponse{
		SubmissionID: submissionID,
		Contest:      rec,
		Participants: cd.participants,
		Winner:       winner,
		Row:          newRow,
		Standings:    standings,
	}, nil
}

// writeRecordError maps record failures to HTTP responses. A failed save
// is reported once and not retried.
func (s *Service) writeRecordError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errStore):
		slog.Error("record contest failed", "err", err)
		writeError(w, "could not save contest: "+err.Error(), http.StatusBadGateway)
	case errors.Is(err, payout.ErrUnsupportedContestSize):
		metrics.EntryRejections.WithLabelValues("size").Inc()
		writeError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		metrics.EntryRejections.WithLabelValues("winner").Inc()
		writeError(w, err.Error(), http.StatusBadRequest)
	}
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
