// Package model contains domain models passed between layers.
package model

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Event is one raw observation for a match: a single measured quantity
// (result code, goals, shots, an odds quote) keyed by the two sides.
type Event struct {
	Division string    // league/competition identifier, e.g. "E0"
	Season   string    // season label, e.g. "2324"
	Date     time.Time // match day
	HomeTeam string
	AwayTeam string
	Field    string // vendor column name, e.g. "FTHG"
	Value    string // raw value as sourced
}

// Float coerces the raw value to float64. The second return value reports
// whether coercion succeeded; on failure the value is NaN.
func (e Event) Float() (float64, bool) {
	s := strings.TrimSpace(e.Value)
	if s == "" {
		return math.NaN(), false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN(), false
	}
	return v, true
}

// MissingKey returns the name of the first empty key column, or "" when the
// event carries every key.
func (e Event) MissingKey() string {
	switch {
	case strings.TrimSpace(e.Division) == "":
		return "division"
	case strings.TrimSpace(e.Season) == "":
		return "season"
	case e.Date.IsZero():
		return "date"
	case strings.TrimSpace(e.HomeTeam) == "":
		return "home_team"
	case strings.TrimSpace(e.AwayTeam) == "":
		return "away_team"
	}
	return ""
}

// NormalizeTeam applies the ingestion naming convention: lower-case with
// whitespace runs collapsed to a single underscore.
func NormalizeTeam(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// Day truncates t to its civil date at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PendingDate marks the next, not yet played, match of a team.
var PendingDate = time.Date(2999, time.December, 31, 0, 0, 0, 0, time.UTC)

// IsPending reports whether t is the pending sentinel date.
func IsPending(t time.Time) bool {
	return Day(t).Equal(PendingDate)
}
