// Package factor assembles factor definitions and runs the panel pipeline
// that turns events into lagged, normalized factor records.
package factor

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/panelfactor/internal/domain/normalize"
	"github.com/okian/panelfactor/internal/domain/panel"
	"github.com/okian/panelfactor/internal/domain/results"
	"github.com/okian/panelfactor/internal/domain/rolling"
)

// Definition is one named factor: which raw fields it reads, how they are
// rolled up and how the result is normalized.
type Definition struct {
	Name      string
	Roles     []panel.Role
	Rolling   rolling.Spec
	Normalize normalize.Method
}

// Window returns the rolling window of the definition.
func (d Definition) Window() int { return d.Rolling.Window }

// Vendor columns read by the catalogue.
const (
	ColHomeGoals = "FTHG"
	ColAwayGoals = "FTAG"
	ColHomeShots = "HS"
	ColAwayShots = "AS"
	ColHomeOdds  = "B365H"
	ColAwayOdds  = "B365A"

	shotsFor     = "shots_for"
	shotsAgainst = "shots_against"
	winOdds      = "win_odds"
)

type builderFunc func(window int) Definition

var catalogue = map[string]builderFunc{ //nolint:gochecknoglobals // read-only registry
	"goal_diff_form":  goalDiffForm,
	"points_form":     pointsForm,
	"win_rate":        winRate,
	"shot_ratio":      shotRatio,
	"market_strength": marketStrength,
}

// Names lists the catalogue in alphabetical order.
func Names() []string {
	out := make([]string, 0, len(catalogue))
	for name := range catalogue {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the named definitions with the given rolling window.
// No names means the whole catalogue.
func Lookup(window int, names ...string) ([]Definition, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window %d", ErrInvalidWindow, window)
	}
	if len(names) == 0 {
		names = Names()
	}
	out := make([]Definition, 0, len(names))
	for _, name := range names {
		f, ok := catalogue[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFactor, name)
		}
		out = append(out, f(window))
	}
	return out, nil
}

func goalRoles() []panel.Role { return results.GoalRoles(ColHomeGoals, ColAwayGoals) }

func goalDiffForm(window int) Definition {
	return Definition{
		Name:  "goal_diff_form",
		Roles: goalRoles(),
		Rolling: rolling.Spec{
			Name:       "goal_diff_form",
			Window:     window,
			Fields:     []string{results.GoalsFor, results.GoalsAgainst},
			Aggregates: []rolling.Aggregate{rolling.Sum},
			Combine:    rolling.Difference,
		},
		Normalize: normalize.ZScore,
	}
}

func pointsForm(window int) Definition {
	return Definition{
		Name:  "points_form",
		Roles: goalRoles(),
		Rolling: rolling.Spec{
			Name:   "points_form",
			Window: window,
			Fields: []string{results.GoalsFor, results.GoalsAgainst},
			Row: func(v []float64) []float64 {
				return []float64{rolling.Points(v[0] - v[1])}
			},
			Aggregates: []rolling.Aggregate{rolling.Mean},
		},
		Normalize: normalize.ZScore,
	}
}

func winRate(window int) Definition {
	return Definition{
		Name:  "win_rate",
		Roles: goalRoles(),
		Rolling: rolling.Spec{
			Name:   "win_rate",
			Window: window,
			Fields: []string{results.GoalsFor, results.GoalsAgainst},
			// wins and played matches, both counted as positives
			Row: func(v []float64) []float64 {
				d := v[0] - v[1]
				if math.IsNaN(d) {
					return []float64{math.NaN(), math.NaN()}
				}
				return []float64{d, 1}
			},
			Aggregates: []rolling.Aggregate{rolling.CountPositive},
			Combine:    rolling.Ratio,
		},
		Normalize: normalize.Percentile,
	}
}

func shotRatio(window int) Definition {
	return Definition{
		Name:  "shot_ratio",
		Roles: panel.Symmetric(ColHomeShots, ColAwayShots, shotsFor, shotsAgainst),
		Rolling: rolling.Spec{
			Name:   "shot_ratio",
			Window: window,
			Fields: []string{shotsFor, shotsAgainst},
			Row: func(v []float64) []float64 {
				return []float64{v[0], v[0] + v[1]}
			},
			Aggregates: []rolling.Aggregate{rolling.Sum},
			Combine:    rolling.Ratio,
		},
		Normalize: normalize.ZScore,
	}
}

func marketStrength(window int) Definition {
	return Definition{
		Name: "market_strength",
		Roles: []panel.Role{
			{Source: ColHomeOdds, Home: winOdds},
			{Source: ColAwayOdds, Away: winOdds},
		},
		Rolling: rolling.Spec{
			Name:   "market_strength",
			Window: window,
			Fields: []string{winOdds},
			Row: func(v []float64) []float64 {
				if v[0] <= 1 {
					return []float64{math.NaN()}
				}
				return []float64{1 / v[0]}
			},
			Aggregates: []rolling.Aggregate{rolling.Mean},
		},
		Normalize: normalize.ZScore,
	}
}
