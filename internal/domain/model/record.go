package model

import (
	"fmt"
	"sort"
	"time"
)

// Record is the team-centric unit used for panels, factors and results:
// one value of one field for one team on one date.
type Record struct {
	Division string
	Season   string
	Date     time.Time
	Team     string
	Field    string
	Value    float64

	// Filled marks rows inserted by cross-sectional expansion; the team did
	// not play on Date.
	Filled bool
}

// Key identifies a record. Dates are compared as civil days.
type Key struct {
	Division string
	Season   string
	Team     string
	Field    string
	Day      int64 // days since the Unix epoch
}

// KeyOf returns the uniqueness key of r.
func KeyOf(r Record) Key {
	return Key{
		Division: r.Division,
		Season:   r.Season,
		Team:     r.Team,
		Field:    r.Field,
		Day:      DayNumber(r.Date),
	}
}

// String renders the key for error messages.
func (k Key) String() string {
	date := time.Unix(k.Day*secondsPerDay, 0).UTC().Format(time.DateOnly)
	return fmt.Sprintf("division=%s season=%s date=%s team=%s field=%s", k.Division, k.Season, date, k.Team, k.Field)
}

// MatchKey identifies a team's appearance on a date, ignoring the field.
type MatchKey struct {
	Division string
	Season   string
	Team     string
	Day      int64
}

// MatchKeyOf returns the join key used to align factors with results.
func MatchKeyOf(r Record) MatchKey {
	return MatchKey{Division: r.Division, Season: r.Season, Team: r.Team, Day: DayNumber(r.Date)}
}

const secondsPerDay = 24 * 60 * 60

// DayNumber converts t to days since the Unix epoch.
func DayNumber(t time.Time) int64 {
	return Day(t).Unix() / secondsPerDay
}

// SortRecords orders records by division, season, team, field, date.
// The sort is stable so equal keys keep input order.
func SortRecords(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Division != b.Division {
			return a.Division < b.Division
		}
		if a.Season != b.Season {
			return a.Season < b.Season
		}
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		return a.Date.Before(b.Date)
	})
}

// Fields returns the distinct field names of recs in first-seen order.
func Fields(recs []Record) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range recs {
		if _, ok := seen[r.Field]; ok {
			continue
		}
		seen[r.Field] = struct{}{}
		out = append(out, r.Field)
	}
	return out
}

// FilterField returns the records whose field is one of names.
func FilterField(recs []Record, names ...string) []Record {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if _, ok := want[r.Field]; ok {
			out = append(out, r)
		}
	}
	return out
}
