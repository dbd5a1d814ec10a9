package normalize_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/internal/domain/normalize"
	"github.com/okian/panelfactor/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"gonum.org/v1/gonum/stat"
)

func init() {
	_ = logger.Init()
}

func slice(date time.Time, vals ...float64) []model.Record {
	out := make([]model.Record, len(vals))
	for i, v := range vals {
		out[i] = model.Record{
			Division: "E0", Season: "2324", Date: date,
			Team: string(rune('a' + i)), Field: "points_form", Value: v,
		}
	}
	return out
}

func vals(recs []model.Record) []float64 {
	out := make([]float64, len(recs))
	for i, r := range recs {
		out[i] = r.Value
	}
	return out
}

func TestApply(t *testing.T) {
	Convey("Given a cross-section on one date", t, func() {
		ctx := context.Background()
		n := normalize.NewNormalizer()
		d1 := time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)
		d2 := d1.AddDate(0, 0, 7)
		recs := append(slice(d1, 1, 2, 3, 4, 10), slice(d2, 5, 5, 5)...)

		Convey("When z-scored", func() {
			out := n.Apply(ctx, recs, normalize.ZScore)

			Convey("Then each slice has mean 0 and sample std 1", func() {
				mean, std := stat.MeanStdDev(vals(out[:5]), nil)
				So(mean, ShouldAlmostEqual, 0, 1e-9)
				So(std, ShouldAlmostEqual, 1, 1e-9)
			})

			Convey("Then a constant slice maps to zero", func() {
				So(vals(out[5:]), ShouldResemble, []float64{0, 0, 0})
			})

			Convey("Then the input is untouched", func() {
				So(recs[0].Value, ShouldEqual, 1)
			})
		})

		Convey("When ranked as percentiles", func() {
			out := n.Apply(ctx, recs, normalize.Percentile)

			Convey("Then values are rank over count", func() {
				So(vals(out[:5]), ShouldResemble, []float64{0.2, 0.4, 0.6, 0.8, 1})
				So(vals(out[5:]), ShouldResemble, []float64{2.0 / 3, 2.0 / 3, 2.0 / 3})
			})
		})

		Convey("When a slice has a single observation", func() {
			lonely := slice(d1, 7)
			lonely = append(lonely, model.Record{Division: "E0", Season: "2324", Date: d1, Team: "z", Field: "points_form", Value: math.NaN()})
			out := n.Apply(ctx, lonely, normalize.ZScore)

			Convey("Then it is left as is", func() {
				So(out[0].Value, ShouldEqual, 7)
				So(math.IsNaN(out[1].Value), ShouldBeTrue)
			})
		})

		Convey("When missing values sit in a slice", func() {
			recs[1].Value = math.NaN()
			out := n.Apply(ctx, recs, normalize.ZScore)

			Convey("Then they stay missing and the rest is normalized", func() {
				So(math.IsNaN(out[1].Value), ShouldBeTrue)
				mean, _ := stat.MeanStdDev([]float64{out[0].Value, out[2].Value, out[3].Value, out[4].Value}, nil)
				So(mean, ShouldAlmostEqual, 0, 1e-9)
			})
		})

		Convey("When the method is none", func() {
			out := n.Apply(ctx, recs, normalize.None)
			So(vals(out), ShouldResemble, vals(recs))
		})
	})
}

func TestRanksAndParse(t *testing.T) {
	Convey("Given tied values", t, func() {
		So(normalize.Ranks([]float64{3, 1, 3, 2}), ShouldResemble, []float64{3.5, 1, 3.5, 2})
	})

	Convey("Given method names", t, func() {
		m, err := normalize.ParseMethod(" ZScore ")
		So(err, ShouldBeNil)
		So(m, ShouldEqual, normalize.ZScore)

		m, err = normalize.ParseMethod("")
		So(err, ShouldBeNil)
		So(m, ShouldEqual, normalize.None)

		_, err = normalize.ParseMethod("minmax")
		So(errors.Is(err, normalize.ErrUnknownMethod), ShouldBeTrue)
	})
}
