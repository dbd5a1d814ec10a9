package rolling

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/pkg/logger"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Calculator computes rolling factors.
type Calculator struct {
	log logger.Logger
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithLogger sets the logger used by the calculator.
func WithLogger(l logger.Logger) Option {
	return func(c *Calculator) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCalculator creates a Calculator.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("rolling")
	}
	return c
}

// appearance is one (division, season, date, team) row of the input.
type appearance struct {
	day    int64
	base   model.Record
	played bool
	values []float64
}

// Compute evaluates spec for every (division, team) in recs. Windows span
// seasons and count played matches only. Every appearance of a team in recs
// yields one record named spec.Name; rows the team did not play carry NaN
// and Filled=true.
func (c *Calculator) Compute(ctx context.Context, recs []model.Record, spec Spec) ([]model.Record, error) {
	if spec.Name == "" || spec.Window <= 0 || len(spec.Fields) == 0 {
		return nil, fmt.Errorf("%w: name=%q window=%d fields=%v", ErrInvalidSpec, spec.Name, spec.Window, spec.Fields)
	}

	col := make(map[string]int, len(spec.Fields))
	for i, f := range spec.Fields {
		col[f] = i
	}

	type teamKey struct{ division, team string }
	index := make(map[model.MatchKey]*appearance)
	teams := make(map[teamKey][]*appearance)
	for _, r := range recs {
		j, ok := col[r.Field]
		if !ok || model.IsPending(r.Date) {
			continue
		}
		mk := model.MatchKeyOf(r)
		a, ok := index[mk]
		if !ok {
			a = &appearance{day: mk.Day, base: r, values: nanSlice(len(spec.Fields))}
			index[mk] = a
			tk := teamKey{r.Division, r.Team}
			teams[tk] = append(teams[tk], a)
		}
		if !r.Filled {
			a.played = true
			a.values[j] = r.Value
		}
	}

	out := make([]model.Record, 0, len(index))
	for _, apps := range teams {
		sort.Slice(apps, func(i, j int) bool { return apps[i].day < apps[j].day })

		var history [][]float64
		for _, a := range apps {
			r := a.base
			r.Field = spec.Name
			r.Date = model.Day(r.Date)
			r.Filled = !a.played
			r.Value = math.NaN()
			if a.played {
				history = append(history, spec.transform(a.values))
				from := len(history) - spec.Window
				if from < 0 {
					from = 0
				}
				r.Value = spec.evaluate(history[from:])
			}
			out = append(out, r)
		}
	}
	model.SortRecords(out)

	c.log.Debug(ctx, "rolling factor computed",
		logger.String("factor", spec.Name),
		logger.Int("window", spec.Window),
		logger.Int("rows", len(out)))
	return out, nil
}

func (s Spec) transform(values []float64) []float64 {
	if s.Row == nil {
		return append([]float64(nil), values...)
	}
	return s.Row(values)
}

// evaluate aggregates each quantity over the window and combines them.
func (s Spec) evaluate(window [][]float64) float64 {
	if len(window) == 0 {
		return math.NaN()
	}
	width := len(window[len(window)-1])
	if width == 0 {
		return math.NaN()
	}
	agg := make([]float64, width)
	col := make([]float64, 0, len(window))
	for j := 0; j < width; j++ {
		col = col[:0]
		for _, row := range window {
			if j < len(row) && !math.IsNaN(row[j]) {
				col = append(col, row[j])
			}
		}
		if len(col) < s.minPeriods() {
			agg[j] = math.NaN()
			continue
		}
		agg[j] = reduce(s.aggregate(j), col)
	}
	if s.Combine == nil {
		return agg[0]
	}
	return s.Combine(agg)
}

func reduce(a Aggregate, xs []float64) float64 {
	switch a {
	case Mean:
		return stat.Mean(xs, nil)
	case CountPositive:
		n := 0
		for _, x := range xs {
			if x > 0 {
				n++
			}
		}
		return float64(n)
	default:
		return floats.Sum(xs)
	}
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
