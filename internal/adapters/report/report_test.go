package report_test

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/okian/panelfactor/internal/adapters/report"
	"github.com/okian/panelfactor/internal/domain/backtest"
	"github.com/okian/panelfactor/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWrite(t *testing.T) {
	Convey("Given a backtest report", t, func() {
		when := time.Date(2023, 8, 12, 0, 0, 0, 0, time.UTC)
		rows := []backtest.PnLRow{
			{Division: "E0", Season: "2324", Date: when, Team: "arsenal", Outcome: "win", Odds: 3, Weight: 1, Result: 1, Payoff: 20, Cumulative: 20},
			{Division: "E0", Season: "2324", Date: when, Team: "chelsea", Outcome: "win", Odds: 3, Weight: 1, Result: math.NaN(), Payoff: math.NaN(), Cumulative: 20},
		}
		r := report.Report{
			RunID:     "run-1",
			Generated: when,
			Summary:   backtest.Summarize(rows),
			PnL:       rows,
			Edge:      []backtest.EdgeRow{{Factor: "points_form", Outcome: "win", Bucket: 1, Count: 4, Hits: 1, HitRatio: 0.25}},
			IC:        []backtest.ICRow{{Factor: "points_form", Pairs: 10, IC: 0.3}},
			Mispricings: []types.Mispricing{{
				Division: "E0", Season: "2324", Date: when, Team: "arsenal",
				ImpliedProbability: 0.6, MarketProbability: 0.5,
			}},
		}
		path := filepath.Join(t.TempDir(), "report.xlsx")

		Convey("When written", func() {
			So(report.Write(path, r), ShouldBeNil)

			f, err := excelize.OpenFile(path)
			So(err, ShouldBeNil)
			defer f.Close()

			Convey("Then every sheet is present", func() {
				So(f.GetSheetList(), ShouldResemble, []string{
					report.SheetSummary, report.SheetPnL, report.SheetEdge, report.SheetIC, report.SheetMispricings,
				})
			})

			Convey("Then PnL rows keep missing payoffs empty", func() {
				pnl, err := f.GetRows(report.SheetPnL)
				So(err, ShouldBeNil)
				So(len(pnl), ShouldEqual, 3)
				So(pnl[1][8], ShouldEqual, "20")
				So(len(pnl[2]) < 9 || pnl[2][8] == "", ShouldBeTrue)
			})

			Convey("Then the summary carries the totals", func() {
				total, err := f.GetCellValue(report.SheetSummary, "B13")
				So(err, ShouldBeNil)
				So(total, ShouldEqual, "20")
				id, err := f.GetCellValue(report.SheetSummary, "B2")
				So(err, ShouldBeNil)
				So(id, ShouldEqual, "run-1")
			})
		})
	})
}
