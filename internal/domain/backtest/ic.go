package backtest

import (
	"math"
	"sort"

	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/internal/domain/normalize"
	"github.com/okian/panelfactor/pkg/metrics"
	"gonum.org/v1/gonum/stat"
)

const minICPairs = 3

// ICRow is the rank correlation between a factor and an outcome in a group.
type ICRow struct {
	Group
	Factor string
	Pairs  int
	IC     float64
}

// InformationCoefficient computes the Spearman correlation between each
// factor and the outcome field of results, per group. Ties take average
// ranks. Groups with fewer than three complete pairs are skipped.
func InformationCoefficient(factors, results []model.Record, outcome string, groupBy GroupBy) []ICRow {
	target := make(map[model.MatchKey]float64)
	for _, r := range results {
		if r.Field == outcome && !math.IsNaN(r.Value) {
			target[model.MatchKeyOf(r)] = r.Value
		}
	}

	type cell struct {
		Group
		Factor string
	}
	xs := make(map[cell][]float64)
	ys := make(map[cell][]float64)
	for _, f := range factors {
		if math.IsNaN(f.Value) {
			continue
		}
		y, ok := target[model.MatchKeyOf(f)]
		if !ok {
			continue
		}
		c := cell{Group: groupBy.of(f), Factor: f.Field}
		xs[c] = append(xs[c], f.Value)
		ys[c] = append(ys[c], y)
	}

	out := make([]ICRow, 0, len(xs))
	for c, x := range xs {
		if len(x) < minICPairs {
			metrics.RecordInsufficientSlice("ic")
			continue
		}
		out = append(out, ICRow{Group: c.Group, Factor: c.Factor, Pairs: len(x), IC: Spearman(x, ys[c])})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group.less(out[j].Group)
		}
		return out[i].Factor < out[j].Factor
	})
	return out
}

// Spearman is the Pearson correlation of the average ranks of x and y.
func Spearman(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}
	return stat.Correlation(normalize.Ranks(x), normalize.Ranks(y), nil)
}
