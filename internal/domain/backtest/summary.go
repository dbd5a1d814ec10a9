package backtest

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates a PnL run.
type Summary struct {
	Bets              int
	Wins              int
	HitRatio          float64
	MeanPayoff        float64
	MeanWinningPayoff float64
	MaxWinStreak      int
	MaxLossStreak     int
	MeanWinStreak     float64
	MeanLossStreak    float64
	TotalProfit       float64
	ProfitBySeason    map[string]float64
}

// Seasons returns the seasons of ProfitBySeason in order.
func (s Summary) Seasons() []string {
	out := make([]string, 0, len(s.ProfitBySeason))
	for season := range s.ProfitBySeason {
		out = append(out, season)
	}
	sort.Strings(out)
	return out
}

// Summarize computes bet statistics over rows with a known payoff.
// Loss streak lengths are reported as positive numbers.
func Summarize(rows []PnLRow) Summary {
	s := Summary{
		HitRatio:          math.NaN(),
		MeanPayoff:        math.NaN(),
		MeanWinningPayoff: math.NaN(),
		MeanWinStreak:     math.NaN(),
		MeanLossStreak:    math.NaN(),
		ProfitBySeason:    make(map[string]float64),
	}

	var payoffs, winning []float64
	for _, r := range rows {
		if math.IsNaN(r.Payoff) {
			continue
		}
		payoffs = append(payoffs, r.Payoff)
		if r.Payoff > 0 {
			winning = append(winning, r.Payoff)
		}
		s.ProfitBySeason[r.Season] += r.Payoff
	}

	s.Bets = len(payoffs)
	s.Wins = len(winning)
	if s.Bets > 0 {
		s.HitRatio = float64(s.Wins) / float64(s.Bets)
		s.MeanPayoff = stat.Mean(payoffs, nil)
		s.TotalProfit = floats.Sum(payoffs)
	}
	if s.Wins > 0 {
		s.MeanWinningPayoff = stat.Mean(winning, nil)
	}

	var wins, losses []float64
	for _, run := range Streaks(payoffs) {
		if run > 0 {
			wins = append(wins, float64(run))
			if run > s.MaxWinStreak {
				s.MaxWinStreak = run
			}
			continue
		}
		losses = append(losses, float64(-run))
		if -run > s.MaxLossStreak {
			s.MaxLossStreak = -run
		}
	}
	if len(wins) > 0 {
		s.MeanWinStreak = stat.Mean(wins, nil)
	}
	if len(losses) > 0 {
		s.MeanLossStreak = stat.Mean(losses, nil)
	}
	return s
}
