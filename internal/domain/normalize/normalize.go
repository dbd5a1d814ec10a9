// Package normalize rescales factor values within each
// (division, season, date, field) cross-section.
package normalize

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/pkg/logger"
	"github.com/okian/panelfactor/pkg/metrics"
	"gonum.org/v1/gonum/stat"
)

// Method selects the cross-sectional transform.
type Method string

const (
	None       Method = "none"
	ZScore     Method = "zscore"
	Percentile Method = "percentile"
)

// ParseMethod parses a method name, case-insensitive. Empty means None.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case "", None:
		return None, nil
	case ZScore, Percentile:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// Normalizer applies a Method to record slices.
type Normalizer struct {
	log logger.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		opt(n)
	}
	if n.log == nil {
		n.log = logger.Get().Named("normalize")
	}
	return n
}

type sliceKey struct {
	Division string
	Season   string
	Day      int64
	Field    string
}

// Apply returns a copy of recs with values transformed per slice. Slices
// with fewer than two non-missing values are left unchanged. Missing values
// stay missing.
func (n *Normalizer) Apply(ctx context.Context, recs []model.Record, method Method) []model.Record {
	out := make([]model.Record, len(recs))
	copy(out, recs)
	if method == None || method == "" {
		return out
	}

	slices := make(map[sliceKey][]int)
	for i, r := range out {
		k := sliceKey{r.Division, r.Season, model.DayNumber(r.Date), r.Field}
		slices[k] = append(slices[k], i)
	}

	insufficient := 0
	for _, idx := range slices {
		present := make([]int, 0, len(idx))
		for _, i := range idx {
			if !math.IsNaN(out[i].Value) {
				present = append(present, i)
			}
		}
		if len(present) < 2 {
			insufficient++
			metrics.RecordInsufficientSlice("normalize")
			continue
		}

		xs := make([]float64, len(present))
		for j, i := range present {
			xs[j] = out[i].Value
		}
		var ys []float64
		switch method {
		case ZScore:
			ys = zscore(xs)
		case Percentile:
			ys = percentile(xs)
		default:
			ys = xs
		}
		for j, i := range present {
			out[i].Value = ys[j]
		}
	}

	if insufficient > 0 {
		n.log.Debug(ctx, "slices left unnormalized",
			logger.String("method", string(method)),
			logger.Int("slices", insufficient))
	}
	return out
}

// zscore uses the sample standard deviation. A constant slice maps to 0.
func zscore(xs []float64) []float64 {
	mean, std := stat.MeanStdDev(xs, nil)
	out := make([]float64, len(xs))
	if std == 0 || math.IsNaN(std) {
		return out
	}
	for i, x := range xs {
		out[i] = (x - mean) / std
	}
	return out
}

func percentile(xs []float64) []float64 {
	ranks := Ranks(xs)
	n := float64(len(xs))
	for i := range ranks {
		ranks[i] /= n
	}
	return ranks
}

// Ranks returns 1-based ascending ranks of xs, averaging ties.
func Ranks(xs []float64) []float64 {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	ranks := make([]float64, len(xs))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}
