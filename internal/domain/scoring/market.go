package scoring

import (
	"math"
	"sort"

	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/internal/domain/results"
	"github.com/okian/panelfactor/internal/domain/types"
)

// RemoveVig3 converts three-way decimal odds to fair probabilities.
func RemoveVig3(a, b, c float64) (float64, float64, float64) {
	rawA := 1.0 / a
	rawB := 1.0 / b
	rawC := 1.0 / c
	total := rawA + rawB + rawC
	return rawA / total, rawB / total, rawC / total
}

// MarketProbabilities returns the vig-free win probability per team and
// match from team-centric win/draw/lose odds. Matches missing any of the
// three prices are left out.
func MarketProbabilities(odds []model.Record) map[model.MatchKey]float64 {
	type triple struct{ win, draw, lose float64 }
	prices := make(map[model.MatchKey]*triple)
	for _, r := range odds {
		k := model.MatchKeyOf(r)
		p, ok := prices[k]
		if !ok {
			p = &triple{math.NaN(), math.NaN(), math.NaN()}
			prices[k] = p
		}
		switch r.Field {
		case results.Win:
			p.win = r.Value
		case results.Draw:
			p.draw = r.Value
		case results.Lose:
			p.lose = r.Value
		}
	}

	out := make(map[model.MatchKey]float64, len(prices))
	for k, p := range prices {
		if !(p.win > 1 && p.draw > 1 && p.lose > 1) {
			continue
		}
		win, _, _ := RemoveVig3(p.win, p.draw, p.lose)
		out[k] = win
	}
	return out
}

// Mispricings pairs each win prediction with the market probability of the
// same team and match. Predictions without a price or probability are
// dropped.
func Mispricings(preds []types.Prediction, odds []model.Record) []types.Mispricing {
	market := MarketProbabilities(odds)
	out := make([]types.Mispricing, 0, len(preds))
	for _, p := range preds {
		if p.Outcome != results.Win || math.IsNaN(p.Probability) {
			continue
		}
		m, ok := market[p.MatchKey()]
		if !ok {
			continue
		}
		out = append(out, types.Mispricing{
			Division:           p.Division,
			Season:             p.Season,
			Date:               p.Date,
			Team:               p.Team,
			ImpliedProbability: p.Probability,
			MarketProbability:  m,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Positions backs the win of every mispricing whose edge exceeds threshold.
func Positions(ms []types.Mispricing, threshold float64) []types.Position {
	var out []types.Position
	for _, m := range ms {
		if !(m.Edge() > threshold) {
			continue
		}
		out = append(out, types.Position{
			Division:    m.Division,
			Season:      m.Season,
			Date:        m.Date,
			Team:        m.Team,
			Outcome:     results.Win,
			Probability: m.ImpliedProbability,
		})
	}
	return out
}
