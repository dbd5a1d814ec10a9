// Package results derives realized outcomes and team-centric market odds
// from the neutralized panel. Result records are never lagged.
package results

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/internal/domain/panel"
)

// Outcome field names shared by result and odds records.
const (
	Win      = "win"
	Draw     = "draw"
	Lose     = "lose"
	GoalDiff = "goal_diff"

	GoalsFor     = "goals_for"
	GoalsAgainst = "goals_against"
)

// Outcomes lists the binary outcome fields.
var Outcomes = []string{Win, Draw, Lose}

// GoalRoles binds the full-time goal columns to team-centric goals.
func GoalRoles(homeGoals, awayGoals string) []panel.Role {
	return panel.Symmetric(homeGoals, awayGoals, GoalsFor, GoalsAgainst)
}

// FromGoals turns goals_for/goals_against rows into win, draw, lose and
// goal_diff rows. Matches with a missing score produce NaN outcomes.
func FromGoals(recs []model.Record) []model.Record {
	type goals struct {
		base   model.Record
		gf, ga float64
	}
	byMatch := make(map[model.MatchKey]*goals)
	var order []model.MatchKey
	for _, r := range recs {
		if r.Field != GoalsFor && r.Field != GoalsAgainst {
			continue
		}
		if !panel.Played(r) {
			continue
		}
		k := model.MatchKeyOf(r)
		g, ok := byMatch[k]
		if !ok {
			g = &goals{base: r, gf: math.NaN(), ga: math.NaN()}
			byMatch[k] = g
			order = append(order, k)
		}
		if r.Field == GoalsFor {
			g.gf = r.Value
		} else {
			g.ga = r.Value
		}
	}

	out := make([]model.Record, 0, 4*len(order))
	for _, k := range order {
		g := byMatch[k]
		diff := g.gf - g.ga
		emit := func(field string, v float64) {
			r := g.base
			r.Date = model.Day(r.Date)
			r.Field = field
			r.Value = v
			out = append(out, r)
		}
		emit(GoalDiff, diff)
		emit(Win, indicator(diff, func(d float64) bool { return d > 0 }))
		emit(Draw, indicator(diff, func(d float64) bool { return d == 0 }))
		emit(Lose, indicator(diff, func(d float64) bool { return d < 0 }))
	}
	model.SortRecords(out)
	return out
}

func indicator(diff float64, pred func(float64) bool) float64 {
	if math.IsNaN(diff) {
		return math.NaN()
	}
	if pred(diff) {
		return 1
	}
	return 0
}

// Book names one bookmaker's home, draw and away price columns.
type Book struct {
	Home string
	Draw string
	Away string
}

func (b Book) roles() []panel.Role {
	return []panel.Role{
		{Source: b.Home, Home: Win, Away: Lose},
		{Source: b.Draw, Home: Draw, Away: Draw},
		{Source: b.Away, Home: Lose, Away: Win},
	}
}

// BestOdds returns, per team and match, the best (highest) price for the
// team to win, draw and lose across books. Prices that are missing or not
// above 1 are ignored.
func BestOdds(ctx context.Context, events []model.Event, books ...Book) ([]model.Record, error) {
	best := make(map[model.Key]model.Record)
	var order []model.Key
	for _, b := range books {
		recs, err := panel.Neutralize(ctx, events, b.roles()...)
		if err != nil {
			return nil, fmt.Errorf("odds for book %s/%s/%s: %w", b.Home, b.Draw, b.Away, err)
		}
		for _, r := range recs {
			if math.IsNaN(r.Value) || r.Value <= 1 {
				continue
			}
			k := model.KeyOf(r)
			cur, ok := best[k]
			if !ok {
				order = append(order, k)
				best[k] = r
				continue
			}
			if r.Value > cur.Value {
				best[k] = r
			}
		}
	}

	out := make([]model.Record, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	model.SortRecords(out)
	return out, nil
}
