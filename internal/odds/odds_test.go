package odds_test

import (
	"errors"
	"math"
	"testing"

	"github.com/lunabets/fairydust/internal/domain"
	"github.com/lunabets/fairydust/internal/odds"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name        string
		prob        float64
		wantML      string
		wantDecimal float64
	}{
		{"longshot", 0.1, "+900", 10.0},
		{"heavy favorite", 0.8, "-400", 1.25},
		{"even", 0.5, "-100", 2.0},
		{"slight underdog", 0.4, "+150", 2.5},
		{"slight favorite", 0.6, "-150", 1.67},
		{"near certainty", 0.95, "-1900", 1.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := odds.Compute(tt.name, tt.prob)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Moneyline != tt.wantML {
				t.Errorf("moneyline = %s, want %s", got.Moneyline, tt.wantML)
			}
			if math.Abs(got.DecimalOdds-tt.wantDecimal) > 1e-9 {
				t.Errorf("decimal odds = %v, want %v", got.DecimalOdds, tt.wantDecimal)
			}
			if got.Probability != tt.prob {
				t.Errorf("probability = %v, want %v", got.Probability, tt.prob)
			}
		})
	}
}

func TestComputeInvalidProbability(t *testing.T) {
	for _, prob := range []float64{0, 1, 1.5, -0.2} {
		if _, err := odds.Compute("x", prob); err == nil {
			t.Errorf("Compute(%v): expected error, got nil", prob)
		} else {
			var ipe *domain.InvalidProbabilityError
			if !errors.As(err, &ipe) {
				t.Errorf("Compute(%v): error type = %T, want InvalidProbabilityError", prob, err)
			}
		}
	}
}

func TestParse(t *testing.T) {
	got, err := odds.Parse("charles wins|0.1, depp wins|0.32, sam wins|0.28, jessica wins|0.4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	// Insertion order is display order.
	wantNames := []string{"charles wins", "depp wins", "sam wins", "jessica wins"}
	for i, name := range wantNames {
		if got[i].Name != name {
			t.Errorf("outcome %d name = %q, want %q", i, got[i].Name, name)
		}
	}
	if got[0].Moneyline != "+900" || got[0].DecimalOdds != 10.0 {
		t.Errorf("charles odds = %s/%v, want +900/10", got[0].Moneyline, got[0].DecimalOdds)
	}
}

func TestParseDuplicateLastWins(t *testing.T) {
	got, err := odds.Parse("rain|0.2, rain|0.6")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Probability != 0.6 {
		t.Errorf("probability = %v, want 0.6 (last occurrence wins)", got[0].Probability)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"missing separator", "rain 0.2"},
		{"bad probability", "rain|abc"},
		{"probability of one", "rain|1.0"},
		{"probability of zero", "rain|0"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := odds.Parse(tt.spec); err == nil {
				t.Errorf("Parse(%q): expected error, got nil", tt.spec)
			}
		})
	}
}

func TestPayout(t *testing.T) {
	tests := []struct {
		amount  int64
		decimal float64
		want    int64
	}{
		{100, 1.25, 125},
		{100, 10.0, 1000},
		{3, 1.67, 5},
		{1, 2.0, 2},
	}
	for _, tt := range tests {
		if got := odds.Payout(tt.amount, tt.decimal); got != tt.want {
			t.Errorf("Payout(%d, %v) = %d, want %d", tt.amount, tt.decimal, got, tt.want)
		}
	}
}

func TestParseLockTime(t *testing.T) {
	got, err := odds.ParseLockTime("03/03/2025 14:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Month() != 3 || got.Day() != 3 || got.Year() != 2025 || got.Hour() != 14 || got.Minute() != 30 {
		t.Errorf("parsed %v, want 2025-03-03 14:30", got)
	}

	if _, err := odds.ParseLockTime("2025-03-03 14:30"); err == nil {
		t.Error("expected error for ISO-formatted input")
	} else {
		var ite *domain.InvalidTimestampError
		if !errors.As(err, &ite) {
			t.Errorf("error type = %T, want InvalidTimestampError", err)
		}
	}
}

func TestFormatLockTime(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"03/03/2025 14:30", "March 3rd, 2025 at 2:30 PM"},
		{"01/01/2026 09:05", "January 1st, 2026 at 9:05 AM"},
		{"07/22/2025 00:15", "July 22nd, 2025 at 12:15 AM"},
		{"11/11/2025 12:00", "November 11th, 2025 at 12:00 PM"},
		{"05/13/2025 23:59", "May 13th, 2025 at 11:59 PM"},
		{"08/31/2025 06:45", "August 31st, 2025 at 6:45 AM"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			parsed, err := odds.ParseLockTime(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := odds.FormatLockTime(parsed); got != tt.want {
				t.Errorf("FormatLockTime = %q, want %q", got, tt.want)
			}
		})
	}
}
