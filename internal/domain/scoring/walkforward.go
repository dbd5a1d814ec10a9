package scoring

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/internal/domain/types"
	"github.com/okian/panelfactor/pkg/logger"
	"github.com/okian/panelfactor/pkg/metrics"
)

type row struct {
	key      model.MatchKey
	base     model.Record
	features []float64
}

// WalkForward predicts outcome for every factor row. Seasons are ordered by
// their first match day; each season is scored by a model trained only on
// the rows of earlier seasons whose outcome is known.
func (t *Trainer) WalkForward(ctx context.Context, factors, outcomes []model.Record, outcome string) ([]types.Prediction, error) {
	names := model.Fields(factors)
	sort.Strings(names)
	col := make(map[string]int, len(names))
	for i, n := range names {
		col[n] = i
	}

	rows := make(map[model.MatchKey]*row)
	seasonStart := make(map[string]time.Time)
	for _, r := range factors {
		k := model.MatchKeyOf(r)
		cur, ok := rows[k]
		if !ok {
			cur = &row{key: k, base: r, features: nanVector(len(names))}
			rows[k] = cur
		}
		cur.features[col[r.Field]] = r.Value
		if model.IsPending(r.Date) {
			continue
		}
		if s, ok := seasonStart[r.Season]; !ok || r.Date.Before(s) {
			seasonStart[r.Season] = r.Date
		}
	}

	labels := make(map[model.MatchKey]float64)
	for _, r := range outcomes {
		if r.Field == outcome && !math.IsNaN(r.Value) {
			labels[model.MatchKeyOf(r)] = r.Value
		}
	}

	bySeason := make(map[string][]*row)
	for _, r := range rows {
		bySeason[r.key.Season] = append(bySeason[r.key.Season], r)
	}
	seasons := make([]string, 0, len(bySeason))
	for s := range bySeason {
		seasons = append(seasons, s)
	}
	sort.Slice(seasons, func(i, j int) bool {
		a, b := seasonStart[seasons[i]], seasonStart[seasons[j]]
		if a.Equal(b) {
			return seasons[i] < seasons[j]
		}
		return a.Before(b)
	})

	var (
		out      []types.Prediction
		training []Sample
	)
	for _, season := range seasons {
		scorer, err := t.Fit(ctx, training)
		switch {
		case errors.Is(err, ErrModelFit):
			metrics.RecordErrorByComponent("scoring", "model_fit")
			t.log.Warn(ctx, "falling back to constant model",
				logger.String("season", season),
				logger.Int("samples", len(training)),
				logger.Error(err))
		case err != nil:
			return nil, err
		}

		current := bySeason[season]
		for _, r := range current {
			res, err := scorer.Score(ctx, Input{Features: r.features})
			if err != nil {
				return nil, err
			}
			out = append(out, types.Prediction{
				Division:    r.base.Division,
				Season:      r.base.Season,
				Date:        model.Day(r.base.Date),
				Team:        r.base.Team,
				Outcome:     outcome,
				Probability: res.Probability,
			})
		}

		for _, r := range current {
			y, ok := labels[r.key]
			if !ok || hasNaN(r.features) {
				continue
			}
			training = append(training, Sample{Features: r.features, Label: y})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Division != b.Division {
			return a.Division < b.Division
		}
		return a.Team < b.Team
	})
	return out, nil
}

func nanVector(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

func hasNaN(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}
