// Package rolling computes fixed-count rolling aggregates over each team's
// own match history.
package rolling

import (
	"math"
)

// Aggregate reduces the non-missing values of one window to a number.
type Aggregate int

const (
	Sum Aggregate = iota
	Mean
	CountPositive
)

// String returns the aggregate name.
func (a Aggregate) String() string {
	switch a {
	case Sum:
		return "sum"
	case Mean:
		return "mean"
	case CountPositive:
		return "count_positive"
	default:
		return "unknown"
	}
}

// Spec describes one rolling factor.
type Spec struct {
	// Name is the field name of the produced records.
	Name string
	// Window is the number of most recent matches aggregated.
	Window int
	// MinPeriods is the number of non-missing values a window needs.
	// Zero means 1.
	MinPeriods int
	// Fields are read per match, in this order, and passed to Row.
	Fields []string
	// Row maps one match's field values to the quantities aggregated.
	// Nil passes the field values through.
	Row func(values []float64) []float64
	// Aggregates holds one aggregate per quantity. A single entry applies
	// to every quantity.
	Aggregates []Aggregate
	// Combine merges the aggregated quantities into the factor value.
	// Nil takes the first quantity.
	Combine func(aggregated []float64) float64
}

func (s Spec) minPeriods() int {
	if s.MinPeriods <= 0 {
		return 1
	}
	return s.MinPeriods
}

func (s Spec) aggregate(j int) Aggregate {
	switch {
	case len(s.Aggregates) == 0:
		return Sum
	case j < len(s.Aggregates):
		return s.Aggregates[j]
	default:
		return s.Aggregates[len(s.Aggregates)-1]
	}
}

// Difference returns a[0] - a[1].
func Difference(a []float64) float64 {
	if len(a) < 2 {
		return math.NaN()
	}
	return a[0] - a[1]
}

// Ratio returns a[0] / a[1], or NaN when the denominator is zero.
func Ratio(a []float64) float64 {
	if len(a) < 2 || a[1] == 0 {
		return math.NaN()
	}
	return a[0] / a[1]
}

// Points maps a goal difference to league points.
func Points(goalDiff float64) float64 {
	switch {
	case math.IsNaN(goalDiff):
		return math.NaN()
	case goalDiff > 0:
		return 3
	case goalDiff == 0:
		return 1
	default:
		return 0
	}
}
