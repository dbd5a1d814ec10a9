package testevents

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/okian/panelfactor/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func smallLeague() *Config {
	return &Config{
		Divisions:   []string{"E0", "E1"},
		Teams:       4,
		Seasons:     2,
		FirstSeason: 2022,
		Relegated:   1,
		Books:       []string{"B365", "PS"},
		Margin:      DefaultMargin,
		Seed:        7,
	}
}

func TestSchedule(t *testing.T) {
	Convey("Given a double round robin for six teams", t, func() {
		rounds := schedule(6)

		Convey("Then there are ten rounds of three matches", func() {
			So(len(rounds), ShouldEqual, 10)
			for _, r := range rounds {
				So(len(r), ShouldEqual, 3)
			}
		})

		Convey("Then every ordered pair meets exactly once", func() {
			seen := make(map[[2]int]int)
			for _, r := range rounds {
				busy := make(map[int]bool)
				for _, p := range r {
					So(busy[p[0]] || busy[p[1]], ShouldBeFalse)
					busy[p[0]], busy[p[1]] = true, true
					seen[p]++
				}
			}
			So(len(seen), ShouldEqual, 30)
			for _, n := range seen {
				So(n, ShouldEqual, 1)
			}
		})
	})
}

func TestGenerate(t *testing.T) {
	Convey("Given a small two-division league", t, func() {
		ctx := context.Background()
		cfg := smallLeague()
		stats := &Stats{}

		events, err := Generate(ctx, cfg, stats)
		So(err, ShouldBeNil)

		Convey("Then every season is a full double round robin", func() {
			So(stats.Matches, ShouldEqual, 2*2*12)
			So(stats.HomeWins+stats.Draws+stats.AwayWins, ShouldEqual, stats.Matches)
			So(VerifyEvents(ctx, cfg, events), ShouldBeNil)
		})

		Convey("Then each match carries goals, shots and both books", func() {
			So(len(events), ShouldEqual, stats.Matches*(4+2*3))
			So(stats.Events, ShouldEqual, len(events))
		})

		Convey("Then one newcomer joins each division per season change", func() {
			So(stats.Newcomers, ShouldEqual, 2)
		})

		Convey("Then the same seed gives the same table", func() {
			again, err := Generate(ctx, smallLeague(), &Stats{})
			So(err, ShouldBeNil)
			So(again, ShouldResemble, events)
		})
	})

	Convey("Given an invalid league", t, func() {
		cfg := smallLeague()
		cfg.Relegated = cfg.Teams

		_, err := Generate(context.Background(), cfg, &Stats{})
		So(err, ShouldNotBeNil)
	})
}

func TestRun(t *testing.T) {
	Convey("Given an output path", t, func() {
		cfg := smallLeague()
		cfg.OutputFile = filepath.Join(t.TempDir(), "out", "events.csv")

		Convey("Then the league is written and verifies on read-back", func() {
			So(Run(context.Background(), cfg), ShouldBeNil)
		})
	})
}
