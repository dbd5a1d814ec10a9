// Package backtest evaluates factors against realized results: bucketed
// hit ratios, information coefficients, PnL and streak statistics.
package backtest

import (
	"fmt"
	"strings"

	"github.com/okian/panelfactor/internal/domain/model"
)

// GroupBy selects how evaluation rows are grouped.
type GroupBy string

const (
	Overall          GroupBy = "overall"
	BySeason         GroupBy = "season"
	ByDivision       GroupBy = "division"
	ByDivisionSeason GroupBy = "division_season"
)

// ParseGroupBy parses a group-by name. Empty means Overall.
func ParseGroupBy(s string) (GroupBy, error) {
	switch g := GroupBy(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return Overall, nil
	case Overall, BySeason, ByDivision, ByDivisionSeason:
		return g, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGroupBy, s)
	}
}

// Group identifies one evaluation group. Unused dimensions are empty.
type Group struct {
	Division string
	Season   string
}

func (g GroupBy) of(r model.Record) Group {
	switch g {
	case BySeason:
		return Group{Season: r.Season}
	case ByDivision:
		return Group{Division: r.Division}
	case ByDivisionSeason:
		return Group{Division: r.Division, Season: r.Season}
	default:
		return Group{}
	}
}

func (g Group) less(o Group) bool {
	if g.Division != o.Division {
		return g.Division < o.Division
	}
	return g.Season < o.Season
}

// outcomesByMatch indexes result records by match and field.
func outcomesByMatch(results []model.Record) map[model.MatchKey]map[string]float64 {
	out := make(map[model.MatchKey]map[string]float64)
	for _, r := range results {
		k := model.MatchKeyOf(r)
		if out[k] == nil {
			out[k] = make(map[string]float64)
		}
		out[k][r.Field] = r.Value
	}
	return out
}
