package backtest

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/internal/domain/types"
)

// Sizing selects how much of the stake a position risks.
type Sizing string

const (
	Naive Sizing = "naive"
	Kelly Sizing = "kelly"
)

// ParseSizing parses a sizing name. Empty means Naive.
func ParseSizing(s string) (Sizing, error) {
	switch z := Sizing(strings.ToLower(strings.TrimSpace(s))); z {
	case "":
		return Naive, nil
	case Naive, Kelly:
		return z, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSizing, s)
	}
}

const (
	// DefaultMaxKellyFraction caps the Kelly weight.
	DefaultMaxKellyFraction = 0.25
	// oddsEpsilon is the margin above 1 below which odds carry no Kelly weight.
	oddsEpsilon = 1e-6
)

// PnLConfig parameterizes PnL.
type PnLConfig struct {
	Stake            float64
	Sizing           Sizing
	MaxKellyFraction float64
}

// PnLRow is the outcome of one position.
type PnLRow struct {
	Division string
	Season   string
	Date     time.Time
	Team     string
	Outcome  string
	Odds     float64
	Weight   float64
	Result   float64
	// Payoff is NaN when the result or the price is unknown.
	Payoff     float64
	Cumulative float64
}

// KellyWeight returns the Kelly fraction (p*o-1)/(o-1) clamped to
// [0, maxFraction]. Odds at or below 1+epsilon and probabilities outside
// [0, 1] give 0.
func KellyWeight(p, odds, maxFraction float64) float64 {
	if math.IsNaN(p) || p < 0 || p > 1 || math.IsNaN(odds) || odds <= 1+oddsEpsilon {
		return 0
	}
	w := (p*odds - 1) / (odds - 1)
	return math.Max(0, math.Min(maxFraction, w))
}

// PnL settles positions at the best available odds. A win pays
// (odds-1)*stake*weight, a loss costs the full stake whatever the weight.
// Positions with an unknown result or no price get a NaN payoff that the
// cumulative sum skips. Rows come out in date order.
func PnL(positions []types.Position, odds, outcomes []model.Record, cfg PnLConfig) ([]PnLRow, error) {
	if !(cfg.Stake > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStake, cfg.Stake)
	}
	sizing := cfg.Sizing
	if sizing == "" {
		sizing = Naive
	}
	if sizing != Naive && sizing != Kelly {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSizing, sizing)
	}
	maxKelly := cfg.MaxKellyFraction
	if maxKelly <= 0 {
		maxKelly = DefaultMaxKellyFraction
	}

	best := make(map[model.MatchKey]map[string]float64)
	for _, o := range odds {
		if math.IsNaN(o.Value) {
			continue
		}
		k := model.MatchKeyOf(o)
		if best[k] == nil {
			best[k] = make(map[string]float64)
		}
		if cur, ok := best[k][o.Field]; !ok || o.Value > cur {
			best[k][o.Field] = o.Value
		}
	}
	byMatch := outcomesByMatch(outcomes)

	sorted := append([]types.Position(nil), positions...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := make([]PnLRow, 0, len(sorted))
	cumulative := 0.0
	for _, p := range sorted {
		k := p.MatchKey()
		row := PnLRow{
			Division: p.Division, Season: p.Season, Date: model.Day(p.Date),
			Team: p.Team, Outcome: p.Outcome,
			Odds: math.NaN(), Result: math.NaN(), Payoff: math.NaN(),
		}
		if price, ok := best[k][p.Outcome]; ok {
			row.Odds = price
		}
		if v, ok := byMatch[k][p.Outcome]; ok {
			row.Result = v
		}

		switch sizing {
		case Kelly:
			row.Weight = KellyWeight(p.Probability, row.Odds, maxKelly)
		default:
			row.Weight = 1
		}

		if !math.IsNaN(row.Odds) && !math.IsNaN(row.Result) {
			if row.Result > 0 {
				row.Payoff = (row.Odds - 1) * cfg.Stake * row.Weight
			} else {
				row.Payoff = -cfg.Stake
			}
			cumulative += row.Payoff
		}
		row.Cumulative = cumulative
		out = append(out, row)
	}
	return out, nil
}
