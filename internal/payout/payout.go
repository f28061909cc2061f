// Package payout implements the fixed-stake payout rule for pool contests.
//
// A contest is entered by two or three players at an equal stake. The
// winner collects every other participant's stake:
//   - 2 participants: winner +bet, loser -bet
//   - 3 participants: winner +2*bet, each loser -bet
//
// Both cases are zero-sum. Other sizes pay nothing; contests of four or
// more are reported with ErrUnsupportedContestSize rather than settled.
package payout

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidContest is returned when a contest has fewer than two
	// distinct participants or its winner did not take part.
	ErrInvalidContest = errors.New("payout: invalid contest")

	// ErrUnsupportedContestSize is returned for contests with more than
	// three participants, which the payout rule does not settle.
	ErrUnsupportedContestSize = errors.New("payout: unsupported contest size")

	// ErrInvalidBet is returned when the stake is not positive.
	ErrInvalidBet = errors.New("payout: bet amount must be positive")
)

// MaxParticipants is the largest contest the rule settles.
const MaxParticipants = 3

// Outcomes maps each player to the signed amount netted in one contest.
type Outcomes map[string]decimal.Decimal

// Sum returns the total of all outcomes.
func (o Outcomes) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range o {
		total = total.Add(v)
	}
	return total
}

// ValidateContest checks the entry-time preconditions of ComputeOutcomes.
func ValidateContest(participants []string, winner string) error {
	uniq := distinct(participants)
	if len(uniq) < 2 {
		return fmt.Errorf("%w: need at least two participants, got %d", ErrInvalidContest, len(uniq))
	}
	if len(uniq) > MaxParticipants {
		return fmt.Errorf("%w: %d participants", ErrUnsupportedContestSize, len(uniq))
	}
	if winner != "" && !contains(uniq, winner) {
		return fmt.Errorf("%w: winner %q did not participate", ErrInvalidContest, winner)
	}
	return nil
}

// ValidateBet rejects non-positive stakes.
func ValidateBet(bet decimal.Decimal) error {
	if !bet.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidBet, bet)
	}
	return nil
}

// ComputeOutcomes settles one contest. The result has an entry for every
// roster player (zero for non-participants) and for every participant.
//
// Fewer than two participants yields the zero vector with no error. Four
// or more yields the zero vector with ErrUnsupportedContestSize. A winner
// outside the participants yields the zero vector with ErrInvalidContest.
func ComputeOutcomes(players, participants []string, winner string, bet decimal.Decimal) (Outcomes, error) {
	result := make(Outcomes, len(players))
	for _, p := range players {
		result[p] = decimal.Zero
	}

	uniq := distinct(participants)
	for _, p := range uniq {
		result[p] = decimal.Zero
	}

	var profit decimal.Decimal
	switch len(uniq) {
	case 0, 1:
		return result, nil
	case 2:
		profit = bet
	case 3:
		profit = bet.Mul(decimal.NewFromInt(2))
	default:
		return result, fmt.Errorf("%w: %d participants", ErrUnsupportedContestSize, len(uniq))
	}

	if !contains(uniq, winner) {
		return result, fmt.Errorf("%w: winner %q did not participate", ErrInvalidContest, winner)
	}

	loss := bet.Neg()
	for _, p := range uniq {
		if p == winner {
			result[p] = profit
		} else {
			result[p] = loss
		}
	}
	return result, nil
}

// IsZeroSum reports whether the outcomes net to exactly zero.
func IsZeroSum(o Outcomes) bool {
	return o.Sum().IsZero()
}

func distinct(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
