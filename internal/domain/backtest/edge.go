package backtest

import (
	"math"
	"sort"

	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/internal/domain/results"
)

// EdgeRow is the hit ratio of one outcome within one bucket of a factor.
type EdgeRow struct {
	Group
	Factor   string
	Outcome  string
	Bucket   int
	Count    int
	Hits     float64
	HitRatio float64
}

// Edge joins bucketed factor rows with result rows on the match and
// reports, per group, factor, outcome and bucket, the share of rows where
// the outcome happened. Rows without a known result are ignored.
func Edge(bucketed []Bucketed, outcomes []model.Record, groupBy GroupBy) []EdgeRow {
	binary := make(map[string]struct{}, len(results.Outcomes))
	for _, o := range results.Outcomes {
		binary[o] = struct{}{}
	}
	byMatch := outcomesByMatch(outcomes)

	type cell struct {
		Group
		Factor  string
		Outcome string
		Bucket  int
	}
	acc := make(map[cell]*EdgeRow)
	for _, b := range bucketed {
		fields, ok := byMatch[model.MatchKeyOf(b.Record)]
		if !ok {
			continue
		}
		for outcome, v := range fields {
			if _, ok := binary[outcome]; !ok || math.IsNaN(v) {
				continue
			}
			c := cell{Group: groupBy.of(b.Record), Factor: b.Field, Outcome: outcome, Bucket: b.Bucket}
			row, ok := acc[c]
			if !ok {
				row = &EdgeRow{Group: c.Group, Factor: c.Factor, Outcome: c.Outcome, Bucket: c.Bucket}
				acc[c] = row
			}
			row.Count++
			row.Hits += v
		}
	}

	out := make([]EdgeRow, 0, len(acc))
	for _, row := range acc {
		row.HitRatio = row.Hits / float64(row.Count)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Group != b.Group {
			return a.Group.less(b.Group)
		}
		if a.Factor != b.Factor {
			return a.Factor < b.Factor
		}
		if a.Outcome != b.Outcome {
			return a.Outcome < b.Outcome
		}
		return a.Bucket < b.Bucket
	})
	return out
}
