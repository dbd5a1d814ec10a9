package panel

import (
	"math"
	"sort"

	"github.com/okian/panelfactor/internal/domain/model"
)

// Played reports whether r is an observed match row: neither inserted by
// expansion nor the pending sentinel.
func Played(r model.Record) bool {
	return !r.Filled && !model.IsPending(r.Date)
}

type teamSeries struct {
	Division string
	Team     string
	Field    string
}

// groupByTeam splits recs into per (division, team, field) series ordered
// by date. Seasons are crossed: a team's history continues over them.
func groupByTeam(recs []model.Record) (map[teamSeries][]model.Record, []teamSeries) {
	groups := make(map[teamSeries][]model.Record)
	var order []teamSeries
	for _, r := range recs {
		k := teamSeries{Division: r.Division, Team: r.Team, Field: r.Field}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}
	for _, k := range order {
		g := groups[k]
		sort.SliceStable(g, func(i, j int) bool { return g[i].Date.Before(g[j].Date) })
	}
	return groups, order
}

// Lag shifts rolling values so that the value on date d only uses matches
// played strictly before d. Each row takes the value of the team's latest
// played row before it. One pending row per (division, team, field) is
// upserted carrying the value after the last played match; its season is
// the team's latest season. Existing pending rows are replaced.
func Lag(recs []model.Record) []model.Record {
	groups, order := groupByTeam(recs)

	out := make([]model.Record, 0, len(recs)+len(order))
	for _, k := range order {
		prev := math.NaN()
		season, seen := "", false
		for _, r := range groups[k] {
			if model.IsPending(r.Date) {
				continue
			}
			lagged := r
			lagged.Value = prev
			out = append(out, lagged)
			if Played(r) {
				prev = r.Value
			}
			season, seen = r.Season, true
		}
		if !seen {
			continue
		}
		out = append(out, model.Record{
			Division: k.Division,
			Season:   season,
			Date:     model.PendingDate,
			Team:     k.Team,
			Field:    k.Field,
			Value:    prev,
		})
	}
	model.SortRecords(out)
	return out
}
