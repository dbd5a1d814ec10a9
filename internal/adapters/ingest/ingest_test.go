package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/okian/panelfactor/internal/adapters/ingest"
	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

const table = `Division,Season,Date,Home_Team,Away_Team,Field,Value,Source
E0,2324,2023-08-12,arsenal,nottm_forest,FTHG,2,fd
E0,2324,12/08/2023,arsenal,nottm_forest,FTAG,1,fd
E0,2324,12/08/23,arsenal,nottm_forest,FTR,H,fd
`

func TestReadCSV(t *testing.T) {
	convey.Convey("Given a long-format table with mixed date layouts", t, func() {
		events, err := ingest.ReadCSV(context.Background(), strings.NewReader(table))

		convey.Convey("Then every row becomes an event", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(events), convey.ShouldEqual, 3)
			want := time.Date(2023, 8, 12, 0, 0, 0, 0, time.UTC)
			for _, e := range events {
				convey.So(e.Date.Equal(want), convey.ShouldBeTrue)
				convey.So(e.MissingKey(), convey.ShouldEqual, "")
			}
			convey.So(events[2].Value, convey.ShouldEqual, "H")
		})

		convey.Convey("Then it round-trips through WriteCSV", func() {
			var buf bytes.Buffer
			convey.So(ingest.WriteCSV(&buf, events), convey.ShouldBeNil)
			again, err := ingest.ReadCSV(context.Background(), &buf)
			convey.So(err, convey.ShouldBeNil)
			convey.So(again, convey.ShouldResemble, events)
		})
	})

	convey.Convey("Given a table without a value column", t, func() {
		_, err := ingest.ReadCSV(context.Background(), strings.NewReader("division,season,date,home_team,away_team,field\n"))
		convey.So(errors.Is(err, ingest.ErrMissingColumn), convey.ShouldBeTrue)
	})

	convey.Convey("Given a row with a bad date", t, func() {
		_, err := ingest.ReadCSV(context.Background(), strings.NewReader(
			"division,season,date,home_team,away_team,field,value\nE0,2324,August 12,a,b,FTHG,1\n"))
		convey.So(errors.Is(err, ingest.ErrBadDate), convey.ShouldBeTrue)
		convey.So(err.Error(), convey.ShouldContainSubstring, "line 2")
	})

	convey.Convey("Given a row without a date", t, func() {
		events, err := ingest.ReadCSV(context.Background(), strings.NewReader(
			"division,season,date,home_team,away_team,field,value\nE0,2324,,a,b,FTHG,1\n"))

		convey.Convey("Then the event is kept and reports the missing key", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(events[0].MissingKey(), convey.ShouldEqual, "date")
		})
	})
}

func TestReadFile(t *testing.T) {
	convey.Convey("Given the same table as a workbook", t, func() {
		path := filepath.Join(t.TempDir(), "events.xlsx")
		f := excelize.NewFile()
		rows := [][]any{
			{"division", "season", "date", "home_team", "away_team", "field", "value"},
			{"E0", "2324", "2023-08-12", "arsenal", "nottm_forest", "FTHG", "2"},
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			convey.So(err, convey.ShouldBeNil)
			convey.So(f.SetSheetRow("Sheet1", cell, &row), convey.ShouldBeNil)
		}
		convey.So(f.SaveAs(path), convey.ShouldBeNil)
		convey.So(f.Close(), convey.ShouldBeNil)

		events, err := ingest.ReadFile(context.Background(), path)

		convey.Convey("Then it reads like the CSV", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(events, convey.ShouldResemble, []model.Event{{
				Division: "E0", Season: "2324", Date: time.Date(2023, 8, 12, 0, 0, 0, 0, time.UTC),
				HomeTeam: "arsenal", AwayTeam: "nottm_forest", Field: "FTHG", Value: "2",
			}})
		})
	})

	convey.Convey("Given an unsupported extension", t, func() {
		_, err := ingest.ReadFile(context.Background(), "events.parquet")
		convey.So(errors.Is(err, ingest.ErrUnsupported), convey.ShouldBeTrue)
	})
}
