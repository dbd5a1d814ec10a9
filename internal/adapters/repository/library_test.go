package repository_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/panelfactor/internal/adapters/repository"
	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func day(n int) time.Time {
	return time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func rec(division, team, field string, d int, v float64) model.Record {
	return model.Record{Division: division, Season: "2324", Date: day(d), Team: team, Field: field, Value: v}
}

func values(recs []model.Record) map[model.Key]float64 {
	out := make(map[model.Key]float64, len(recs))
	for _, r := range recs {
		out[model.KeyOf(r)] = r.Value
	}
	return out
}

func openLibrary(t *testing.T, backend string) *repository.Library {
	lib, err := repository.Open(repository.Config{
		BasePath: t.TempDir(),
		Naming:   repository.NamingSnake,
		Backend:  backend,
	}, repository.WithLockRetryInterval(5*time.Millisecond))
	if err != nil {
		t.Fatalf("open library: %v", err)
	}
	t.Cleanup(func() { _ = lib.Close() })
	return lib
}

func TestLibrary(t *testing.T) {
	for _, backend := range []string{"csv", "sqlite"} {
		Convey("Given an empty "+backend+" library", t, func() {
			ctx := context.Background()
			lib := openLibrary(t, backend)
			baseline := []model.Record{
				rec("Premier League", "arsenal", "points_form", 1, 1.5),
				rec("Premier League", "chelsea", "points_form", 1, math.NaN()),
				rec("Premier League", "arsenal", "shot_ratio", 1, 0.6),
			}

			Convey("When merging before a baseline exists", func() {
				err := lib.MergeIncremental(ctx, "Premier League", baseline)
				So(errors.Is(err, repository.ErrBaselineMissing), ShouldBeTrue)
			})

			Convey("When a baseline is created", func() {
				So(lib.Create(ctx, "Premier League", baseline), ShouldBeNil)

				Convey("Then it loads back with missing values intact", func() {
					got, err := lib.Load(ctx, "Premier League")
					So(err, ShouldBeNil)
					So(len(got), ShouldEqual, 3)
					for _, r := range got {
						if r.Team == "chelsea" {
							So(math.IsNaN(r.Value), ShouldBeTrue)
						}
					}
				})

				Convey("Then creating again needs overwrite", func() {
					err := lib.Create(ctx, "Premier League", baseline)
					So(errors.Is(err, repository.ErrLibraryExists), ShouldBeTrue)
					So(lib.Create(ctx, "Premier League", baseline[:1], repository.WithOverwrite()), ShouldBeNil)
					got, err := lib.Load(ctx, "Premier League")
					So(err, ShouldBeNil)
					So(len(got), ShouldEqual, 1)
				})

				Convey("Then the division is listed by its own name", func() {
					divisions, err := lib.Divisions(ctx)
					So(err, ShouldBeNil)
					So(divisions, ShouldResemble, []string{"Premier League"})
				})

				Convey("When the same batch is merged twice", func() {
					batch := []model.Record{
						rec("Premier League", "arsenal", "points_form", 1, 2.0),
						rec("Premier League", "arsenal", "points_form", 8, 2.5),
					}
					So(lib.MergeIncremental(ctx, "Premier League", batch), ShouldBeNil)
					once, err := lib.Load(ctx, "Premier League")
					So(err, ShouldBeNil)
					v1, err := lib.Version(ctx, "Premier League")
					So(err, ShouldBeNil)

					So(lib.MergeIncremental(ctx, "Premier League", batch), ShouldBeNil)
					twice, err := lib.Load(ctx, "Premier League")
					So(err, ShouldBeNil)
					v2, err := lib.Version(ctx, "Premier League")
					So(err, ShouldBeNil)

					Convey("Then the content is the same as after one merge", func() {
						So(len(twice), ShouldEqual, len(once))
						So(len(twice), ShouldEqual, 4)
						a, b := values(once), values(twice)
						for k, v := range a {
							So(v == b[k] || (math.IsNaN(v) && math.IsNaN(b[k])), ShouldBeTrue)
						}
					})

					Convey("Then overlapping keys take the batch value", func() {
						So(values(twice)[model.KeyOf(batch[0])], ShouldEqual, 2.0)
					})

					Convey("Then each write stamps a new version", func() {
						So(v1.ID, ShouldNotEqual, v2.ID)
						So(v2.Records, ShouldEqual, 4)
					})
				})

				Convey("When the pending row rolls over into a new season", func() {
					stale := rec("Premier League", "arsenal", "points_form", 0, 1.0)
					stale.Date = model.PendingDate
					So(lib.MergeIncremental(ctx, "Premier League", []model.Record{stale}), ShouldBeNil)

					fresh := rec("Premier League", "arsenal", "points_form", 0, 2.0)
					fresh.Season, fresh.Date = "2425", model.PendingDate
					So(lib.MergeIncremental(ctx, "Premier League", []model.Record{fresh}), ShouldBeNil)

					Convey("Then only the new season's pending row is kept", func() {
						got, err := lib.Load(ctx, "Premier League")
						So(err, ShouldBeNil)
						var pending []model.Record
						for _, r := range got {
							if model.IsPending(r.Date) {
								pending = append(pending, r)
							}
						}
						So(len(pending), ShouldEqual, 1)
						So(pending[0].Season, ShouldEqual, "2425")
						So(pending[0].Value, ShouldEqual, 2.0)
						So(len(got), ShouldEqual, 4)
					})
				})

				Convey("When a factor is replaced", func() {
					So(lib.ReplaceFactor(ctx, "Premier League", []model.Record{
						rec("Premier League", "arsenal", "points_form", 15, 9),
					}), ShouldBeNil)

					Convey("Then its old rows are gone and other factors stay", func() {
						got, err := lib.Load(ctx, "Premier League")
						So(err, ShouldBeNil)
						So(len(got), ShouldEqual, 2)
						for _, r := range got {
							if r.Field == "points_form" {
								So(r.Value, ShouldEqual, 9)
							}
						}
					})
				})

				Convey("When a batch carries a duplicate key", func() {
					dup := []model.Record{baseline[0], baseline[0]}
					err := lib.MergeIncremental(ctx, "Premier League", dup)
					So(errors.Is(err, model.ErrDataIntegrity), ShouldBeTrue)
				})

				Convey("When a second division exists", func() {
					So(lib.ReplaceFactor(ctx, "Championship", []model.Record{
						rec("Championship", "leeds", "points_form", 2, 1),
						rec("Championship", "leeds", "shot_ratio", 2, 0.4),
					}), ShouldBeNil)

					Convey("Then consolidation unions both", func() {
						all, err := lib.Consolidate(ctx)
						So(err, ShouldBeNil)
						So(len(all), ShouldEqual, 5)
						only, err := lib.Consolidate(ctx, "Championship")
						So(err, ShouldBeNil)
						So(len(only), ShouldEqual, 2)
					})

					Convey("Then deleting a factor purges it everywhere", func() {
						So(lib.DeleteFields(ctx, "shot_ratio"), ShouldBeNil)
						all, err := lib.Consolidate(ctx)
						So(err, ShouldBeNil)
						So(len(all), ShouldEqual, 3)
						for _, r := range all {
							So(r.Field, ShouldNotEqual, "shot_ratio")
						}
					})
				})
			})

			Convey("When loading an unknown division", func() {
				_, err := lib.Load(ctx, "Serie A")
				So(errors.Is(err, repository.ErrBaselineMissing), ShouldBeTrue)
			})
		})
	}
}

func TestLibraryLockFile(t *testing.T) {
	Convey("Given a lock file held by another process", t, func() {
		dir := t.TempDir()
		lib, err := repository.Open(repository.Config{BasePath: dir, Naming: repository.NamingSnake},
			repository.WithLockRetryInterval(5*time.Millisecond))
		So(err, ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "e0.lock"), []byte("1\n"), 0o644), ShouldBeNil)

		Convey("When a write waits past its deadline", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
			defer cancel()
			err := lib.Create(ctx, "E0", []model.Record{rec("E0", "a", "f", 1, 1)})

			Convey("Then it fails as locked and nothing is written", func() {
				So(errors.Is(err, repository.ErrLocked), ShouldBeTrue)
				_, loadErr := lib.Load(context.Background(), "E0")
				So(errors.Is(loadErr, repository.ErrBaselineMissing), ShouldBeTrue)
			})
		})

		Convey("When the lock is released", func() {
			So(os.Remove(filepath.Join(dir, "e0.lock")), ShouldBeNil)
			So(lib.Create(context.Background(), "E0", []model.Record{rec("E0", "a", "f", 1, 1)}), ShouldBeNil)

			Convey("Then the lock file is cleaned up", func() {
				_, statErr := os.Stat(filepath.Join(dir, "e0.lock"))
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})
	})
}

func TestNaming(t *testing.T) {
	Convey("Given division names", t, func() {
		name, err := repository.NamingSnake.Apply("Premier League (ENG)")
		So(err, ShouldBeNil)
		So(name, ShouldEqual, "premier_league_eng")

		name, err = repository.NamingLower.Apply("E0")
		So(err, ShouldBeNil)
		So(name, ShouldEqual, "e0")

		name, err = repository.NamingRaw.Apply("E0")
		So(err, ShouldBeNil)
		So(name, ShouldEqual, "E0")

		_, err = repository.Naming("kebab").Apply("E0")
		So(errors.Is(err, repository.ErrUnknownNaming), ShouldBeTrue)

		_, err = repository.Open(repository.Config{BasePath: t.TempDir(), Backend: "parquet"})
		So(errors.Is(err, repository.ErrUnknownBackend), ShouldBeTrue)
	})
}
