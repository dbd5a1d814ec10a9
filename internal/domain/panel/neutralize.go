// Package panel turns match events into a point-in-time team panel: it
// splits home/away events into team rows, expands each season into a
// rectangular grid, lags rolling values and neutralizes newcomers.
package panel

import (
	"context"
	"fmt"

	"github.com/okian/panelfactor/internal/domain/dedupe"
	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/pkg/metrics"
)

// Role binds a raw event field to the names emitted on each side. An empty
// Home or Away emits no row for that side.
type Role struct {
	Source string
	Home   string
	Away   string
}

// Symmetric returns the pair of roles for a home/away column pair such as
// FTHG/FTAG: each team gets forName for its own column and againstName for
// the opponent's.
func Symmetric(homeSource, awaySource, forName, againstName string) []Role {
	return []Role{
		{Source: homeSource, Home: forName, Away: againstName},
		{Source: awaySource, Home: againstName, Away: forName},
	}
}

// Neutralize converts events into team-centric records. Events whose field
// has no role are ignored. Values that fail numeric coercion become NaN and
// are counted. A missing key column or a duplicate output key is a
// data integrity violation.
func Neutralize(ctx context.Context, events []model.Event, roles ...Role) ([]model.Record, error) {
	bySource := make(map[string][]Role, len(roles))
	for _, r := range roles {
		bySource[r.Source] = append(bySource[r.Source], r)
	}

	out := make([]model.Record, 0, 2*len(events))
	for i, e := range events {
		bound, ok := bySource[e.Field]
		if !ok {
			continue
		}
		if missing := e.MissingKey(); missing != "" {
			return nil, fmt.Errorf("event %d (division=%q field=%s) missing %s: %w",
				i, e.Division, e.Field, missing, model.ErrDataIntegrity)
		}

		v, ok := e.Float()
		if !ok {
			metrics.RecordCoercionFailure(e.Field)
		}
		day := model.Day(e.Date)
		for _, role := range bound {
			if role.Home != "" {
				out = append(out, model.Record{
					Division: e.Division, Season: e.Season, Date: day,
					Team: e.HomeTeam, Field: role.Home, Value: v,
				})
			}
			if role.Away != "" {
				out = append(out, model.Record{
					Division: e.Division, Season: e.Season, Date: day,
					Team: e.AwayTeam, Field: role.Away, Value: v,
				})
			}
		}
	}

	if err := dedupe.Check(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}
