package types_test

import (
	"testing"
	"time"

	"github.com/okian/panelfactor/internal/domain/model"
	types "github.com/okian/panelfactor/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMispricing(t *testing.T) {
	Convey("Given a Mispricing", t, func() {
		m := types.Mispricing{
			Division:           "E0",
			Season:             "2324",
			Team:               "arsenal",
			ImpliedProbability: 0.55,
			MarketProbability:  0.45,
		}

		Convey("Then the edge is implied minus market", func() {
			So(m.Edge(), ShouldAlmostEqual, 0.10, 1e-12)
		})

		Convey("When the market is more confident", func() {
			m.MarketProbability = 0.60

			Convey("Then the edge is negative", func() {
				So(m.Edge(), ShouldBeLessThan, 0)
			})
		})
	})
}

func TestMatchKeys(t *testing.T) {
	Convey("Given a position and a prediction for the same match", t, func() {
		when := time.Date(2023, 8, 12, 19, 45, 0, 0, time.UTC)
		pos := types.Position{Division: "E0", Season: "2324", Date: when, Team: "arsenal", Outcome: "win"}
		pred := types.Prediction{Division: "E0", Season: "2324", Date: model.Day(when), Team: "arsenal", Outcome: "win"}

		Convey("Then both join on the civil day", func() {
			So(pos.MatchKey(), ShouldResemble, pred.MatchKey())
			So(pos.MatchKey(), ShouldResemble, model.MatchKeyOf(model.Record{
				Division: "E0", Season: "2324", Date: when, Team: "arsenal", Field: "anything",
			}))
		})
	})
}
