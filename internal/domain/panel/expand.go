package panel

import (
	"math"
	"sort"
	"time"

	"github.com/okian/panelfactor/internal/domain/model"
)

// Slice identifies one season of one division.
type Slice struct {
	Division string
	Season   string
}

// Calendar lists the match days of each season.
type Calendar map[Slice][]time.Time

// CalendarFromEvents collects the distinct match days of every season
// present in events.
func CalendarFromEvents(events []model.Event) Calendar {
	seen := make(map[Slice]map[int64]time.Time)
	for _, e := range events {
		s := Slice{Division: e.Division, Season: e.Season}
		if seen[s] == nil {
			seen[s] = make(map[int64]time.Time)
		}
		d := model.Day(e.Date)
		seen[s][model.DayNumber(d)] = d
	}
	cal := make(Calendar, len(seen))
	for s, days := range seen {
		cal[s] = sortedDays(days)
	}
	return cal
}

// ExpandOption configures Expand.
type ExpandOption func(*expandConfig)

type expandConfig struct {
	calendar Calendar
}

// WithCalendar supplies the match days per season. Days present in the
// records but missing from the calendar are still kept.
func WithCalendar(c Calendar) ExpandOption {
	return func(cfg *expandConfig) { cfg.calendar = c }
}

// Expand makes every season rectangular: each team that played in a season
// gets a row for every match day of that season, for every field. Inserted
// rows carry the team's last known value and Filled=true; rows before a
// team's first observation stay NaN. Pending rows are passed through.
func Expand(recs []model.Record, opts ...ExpandOption) []model.Record {
	var cfg expandConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	type seriesKey struct {
		Slice
		Team  string
		Field string
	}

	days := make(map[Slice]map[int64]time.Time)
	teams := make(map[Slice]map[string]struct{})
	fields := make(map[Slice]map[string]struct{})
	series := make(map[seriesKey]map[int64]model.Record)
	var pending []model.Record

	for _, r := range recs {
		if model.IsPending(r.Date) {
			pending = append(pending, r)
			continue
		}
		s := Slice{Division: r.Division, Season: r.Season}
		if days[s] == nil {
			days[s] = make(map[int64]time.Time)
			teams[s] = make(map[string]struct{})
			fields[s] = make(map[string]struct{})
		}
		day := model.Day(r.Date)
		days[s][model.DayNumber(day)] = day
		teams[s][r.Team] = struct{}{}
		fields[s][r.Field] = struct{}{}

		k := seriesKey{Slice: s, Team: r.Team, Field: r.Field}
		if series[k] == nil {
			series[k] = make(map[int64]model.Record)
		}
		r.Date = day
		series[k][model.DayNumber(day)] = r
	}

	for s, cal := range cfg.calendar {
		if days[s] == nil {
			continue
		}
		for _, d := range cal {
			d = model.Day(d)
			days[s][model.DayNumber(d)] = d
		}
	}

	out := make([]model.Record, 0, len(recs))
	for s, dayset := range days {
		grid := sortedDays(dayset)
		for team := range teams[s] {
			for field := range fields[s] {
				observed := series[seriesKey{Slice: s, Team: team, Field: field}]
				last := math.NaN()
				for _, d := range grid {
					if r, ok := observed[model.DayNumber(d)]; ok {
						out = append(out, r)
						if !math.IsNaN(r.Value) {
							last = r.Value
						}
						continue
					}
					out = append(out, model.Record{
						Division: s.Division, Season: s.Season, Date: d,
						Team: team, Field: field, Value: last, Filled: true,
					})
				}
			}
		}
	}
	out = append(out, pending...)
	model.SortRecords(out)
	return out
}

func sortedDays(set map[int64]time.Time) []time.Time {
	keys := make([]int64, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]time.Time, len(keys))
	for i, k := range keys {
		out[i] = set[k]
	}
	return out
}
