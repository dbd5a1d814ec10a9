package panel

import (
	"sort"
	"time"

	"github.com/okian/panelfactor/internal/domain/model"
)

// Newcomers returns, per season, the teams absent from the immediately
// preceding season of the same division. Seasons are ordered by their first
// match day. Every team of a division's first season is a newcomer.
//
// A division missing from the data for a season makes the next season's
// returning teams look like newcomers; no attempt is made to detect gaps.
func Newcomers(recs []model.Record) map[Slice]map[string]struct{} {
	first := make(map[Slice]time.Time)
	teams := make(map[Slice]map[string]struct{})
	for _, r := range recs {
		if model.IsPending(r.Date) {
			continue
		}
		s := Slice{Division: r.Division, Season: r.Season}
		if f, ok := first[s]; !ok || r.Date.Before(f) {
			first[s] = r.Date
		}
		if teams[s] == nil {
			teams[s] = make(map[string]struct{})
		}
		teams[s][r.Team] = struct{}{}
	}

	byDivision := make(map[string][]Slice)
	for s := range first {
		byDivision[s.Division] = append(byDivision[s.Division], s)
	}

	out := make(map[Slice]map[string]struct{}, len(first))
	for _, seasons := range byDivision {
		sort.Slice(seasons, func(i, j int) bool {
			a, b := first[seasons[i]], first[seasons[j]]
			if a.Equal(b) {
				return seasons[i].Season < seasons[j].Season
			}
			return a.Before(b)
		})
		for i, s := range seasons {
			fresh := make(map[string]struct{})
			for team := range teams[s] {
				if i == 0 {
					fresh[team] = struct{}{}
					continue
				}
				if _, ok := teams[seasons[i-1]][team]; !ok {
					fresh[team] = struct{}{}
				}
			}
			out[s] = fresh
		}
	}
	return out
}

// NeutralizeNewcomers zeroes the first window-1 played observations of each
// newcomer's season, along with filled and pending rows dated at or before
// the last of them. A newcomer with fewer played matches than that has its
// whole season zeroed, pending row included.
func NeutralizeNewcomers(recs []model.Record, window int) []model.Record {
	out := make([]model.Record, len(recs))
	copy(out, recs)

	n := window - 1
	if n <= 0 {
		return out
	}

	newcomers := Newcomers(recs)

	type seasonSeries struct {
		Slice
		Team  string
		Field string
	}
	rows := make(map[seasonSeries][]int)
	for i, r := range out {
		s := Slice{Division: r.Division, Season: r.Season}
		if _, ok := newcomers[s][r.Team]; !ok {
			continue
		}
		k := seasonSeries{Slice: s, Team: r.Team, Field: r.Field}
		rows[k] = append(rows[k], i)
	}

	for _, idx := range rows {
		var played []time.Time
		for _, i := range idx {
			if Played(out[i]) {
				played = append(played, out[i].Date)
			}
		}
		sort.Slice(played, func(a, b int) bool { return played[a].Before(played[b]) })

		if len(played) < n {
			for _, i := range idx {
				out[i].Value = 0
			}
			continue
		}
		cutoff := played[n-1]
		for _, i := range idx {
			if !out[i].Date.After(cutoff) {
				out[i].Value = 0
			}
		}
	}
	return out
}
