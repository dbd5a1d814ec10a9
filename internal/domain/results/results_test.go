package results_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/internal/domain/panel"
	"github.com/okian/panelfactor/internal/domain/results"
	"github.com/okian/panelfactor/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

var matchDay = time.Date(2023, 8, 12, 0, 0, 0, 0, time.UTC)

func ev(field, value string) model.Event {
	return model.Event{Division: "E0", Season: "2324", Date: matchDay,
		HomeTeam: "arsenal", AwayTeam: "chelsea", Field: field, Value: value}
}

func pick(recs []model.Record, team, field string) float64 {
	for _, r := range recs {
		if r.Team == team && r.Field == field {
			return r.Value
		}
	}
	return -999
}

func TestFromGoals(t *testing.T) {
	Convey("Given a 2-1 home win", t, func() {
		recs, err := panel.Neutralize(context.Background(),
			[]model.Event{ev("FTHG", "2"), ev("FTAG", "1")}, results.GoalRoles("FTHG", "FTAG")...)
		So(err, ShouldBeNil)

		Convey("When results are derived", func() {
			out := results.FromGoals(recs)

			Convey("Then both teams get four outcome rows", func() {
				So(len(out), ShouldEqual, 8)
				So(pick(out, "arsenal", results.Win), ShouldEqual, 1)
				So(pick(out, "arsenal", results.Lose), ShouldEqual, 0)
				So(pick(out, "arsenal", results.GoalDiff), ShouldEqual, 1)
				So(pick(out, "chelsea", results.Lose), ShouldEqual, 1)
				So(pick(out, "chelsea", results.Draw), ShouldEqual, 0)
				So(pick(out, "chelsea", results.GoalDiff), ShouldEqual, -1)
			})
		})

		Convey("When the score is missing", func() {
			recs[0].Value = math.NaN()
			out := results.FromGoals(recs)

			Convey("Then outcomes are unknown", func() {
				So(math.IsNaN(pick(out, "arsenal", results.Win)), ShouldBeTrue)
			})
		})
	})
}

func TestBestOdds(t *testing.T) {
	Convey("Given two books quoting one match", t, func() {
		events := []model.Event{
			ev("B365H", "2.0"), ev("B365D", "3.4"), ev("B365A", "4.0"),
			ev("PSH", "2.1"), ev("PSD", "3.3"), ev("PSA", "n/a"),
		}
		books := []results.Book{
			{Home: "B365H", Draw: "B365D", Away: "B365A"},
			{Home: "PSH", Draw: "PSD", Away: "PSA"},
		}

		Convey("When best odds are taken", func() {
			out, err := results.BestOdds(context.Background(), events, books...)

			Convey("Then each team sees the best price for its own outcomes", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 6)
				So(pick(out, "arsenal", results.Win), ShouldEqual, 2.1)
				So(pick(out, "arsenal", results.Draw), ShouldEqual, 3.4)
				So(pick(out, "arsenal", results.Lose), ShouldEqual, 4.0)
				So(pick(out, "chelsea", results.Win), ShouldEqual, 4.0)
				So(pick(out, "chelsea", results.Lose), ShouldEqual, 2.1)
			})
		})
	})
}
