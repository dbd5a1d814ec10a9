package dedupe_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	dedupe "github.com/okian/panelfactor/internal/domain/dedupe"
	"github.com/okian/panelfactor/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func key(team string) model.Key {
	return model.KeyOf(model.Record{Division: "E0", Season: "2324", Team: team, Field: "goals_for",
		Date: time.Date(2023, 8, 12, 0, 0, 0, 0, time.UTC)})
}

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithCapacity(16))
		ctx := context.Background()

		Convey("Then it starts empty", func() {
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When a key is recorded twice", func() {
			first := d.SeenAndRecord(ctx, key("arsenal"))
			second := d.SeenAndRecord(ctx, key("arsenal"))

			Convey("Then only the second call reports it as seen", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a key is unrecorded", func() {
			d.SeenAndRecord(ctx, key("arsenal"))
			d.Unrecord(ctx, key("arsenal"))
			d.Unrecord(ctx, key("unknown"))

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, key("arsenal")), ShouldBeFalse)
			})
		})

		Convey("When many goroutines record distinct keys", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					d.SeenAndRecord(ctx, key(fmt.Sprintf("team-%d", i)))
				}(i)
			}
			wg.Wait()

			Convey("Then every key is counted once", func() {
				So(d.Size(), ShouldEqual, 50)
			})
		})
	})
}

func TestCheck(t *testing.T) {
	Convey("Given team-panel records", t, func() {
		day := time.Date(2023, 8, 12, 0, 0, 0, 0, time.UTC)
		recs := []model.Record{
			{Division: "E0", Season: "2324", Date: day, Team: "arsenal", Field: "goals_for", Value: 2},
			{Division: "E0", Season: "2324", Date: day, Team: "chelsea", Field: "goals_for", Value: 1},
		}

		Convey("When keys are unique", func() {
			So(dedupe.Check(context.Background(), recs), ShouldBeNil)
		})

		Convey("When a key repeats", func() {
			dup := append(recs, recs[0])
			err := dedupe.Check(context.Background(), dup)

			Convey("Then a data integrity error names the key", func() {
				So(errors.Is(err, model.ErrDataIntegrity), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "team=arsenal")
			})
		})
	})
}
