// Package odds converts named-outcome probabilities into American moneyline
// and decimal odds, and formats lock deadlines for display.
package odds

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lunabets/fairydust/internal/domain"
)

// Parse reads an outcome specification of the form
//
//	"outcome1|prob1, outcome2|prob2, ..."
//
// and returns the outcomes in input order with computed odds. Each
// probability must lie strictly between 0 and 1. Duplicate outcome names are
// permitted; the last occurrence wins.
func Parse(spec string) ([]domain.Outcome, error) {
	pairs := strings.Split(spec, ",")
	outcomes := make([]domain.Outcome, 0, len(pairs))
	seen := make(map[string]int, len(pairs))

	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		name, probStr, ok := strings.Cut(pair, "|")
		if !ok {
			return nil, fmt.Errorf("odds: malformed pair %q: expected outcome|probability", pair)
		}
		name = strings.TrimSpace(name)
		probStr = strings.TrimSpace(probStr)

		prob, err := strconv.ParseFloat(probStr, 64)
		if err != nil {
			return nil, fmt.Errorf("odds: probability for %q: %w", name, err)
		}

		o, err := Compute(name, prob)
		if err != nil {
			return nil, err
		}

		// Last occurrence of a duplicate name wins its slot.
		if idx, dup := seen[name]; dup {
			outcomes[idx] = o
			continue
		}
		seen[name] = len(outcomes)
		outcomes = append(outcomes, o)
	}

	if len(outcomes) == 0 {
		return nil, fmt.Errorf("odds: no outcomes in %q", spec)
	}
	return outcomes, nil
}

// Compute derives moneyline and decimal odds for a single outcome
// probability. Probabilities at or beyond the (0, 1) bounds are rejected.
func Compute(name string, prob float64) (domain.Outcome, error) {
	if prob <= 0 || prob >= 1 {
		return domain.Outcome{}, &domain.InvalidProbabilityError{Outcome: name, Probability: prob}
	}

	var moneyline int
	if prob >= 0.5 {
		moneyline = int(math.Round(-100 * (prob / (1 - prob))))
	} else {
		moneyline = int(math.Round(100 * ((1 - prob) / prob)))
	}

	ml := strconv.Itoa(moneyline)
	if moneyline > 0 {
		ml = "+" + ml
	}

	return domain.Outcome{
		Name:        name,
		Probability: prob,
		Moneyline:   ml,
		DecimalOdds: math.Round(100/prob) / 100,
	}, nil
}

// Payout returns the gross payout for a stake at the given decimal odds,
// rounded to the nearest whole unit of currency.
func Payout(amount int64, decimalOdds float64) int64 {
	return int64(math.Round(float64(amount) * decimalOdds))
}
