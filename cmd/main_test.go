package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/panelfactor/internal/adapters/ingest"
	"github.com/okian/panelfactor/internal/adapters/repository"
	"github.com/okian/panelfactor/internal/config"
	"github.com/okian/panelfactor/internal/testevents"
	"github.com/okian/panelfactor/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// writeLeague writes a small synthetic league and returns its path.
func writeLeague(t *testing.T, dir string) string {
	t.Helper()
	events, err := testevents.Generate(context.Background(), &testevents.Config{
		Divisions:   []string{"E0"},
		Teams:       6,
		Seasons:     2,
		FirstSeason: 2022,
		Relegated:   1,
		Books:       []string{"B365"},
		Margin:      testevents.DefaultMargin,
		Seed:        3,
	}, &testevents.Stats{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	path := filepath.Join(dir, "events.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := ingest.WriteCSV(f, events); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestRunCommands(t *testing.T) {
	convey.Convey("Given a config over a temp library and event file", t, func() {
		ctx := context.Background()
		dir := t.TempDir()

		cfg := config.New(ctx)
		cfg.LibraryPath = filepath.Join(dir, "library")
		cfg.EventsPath = writeLeague(t, dir)
		cfg.Window = 3
		cfg.Buckets = 3
		cfg.Factors = []string{"goal_diff_form", "points_form"}
		cfg.MetricsFile = filepath.Join(dir, "metrics.prom")
		cfg.ResultsPath = filepath.Join(dir, "out", "results.csv")
		cfg.OddsPath = filepath.Join(dir, "out", "odds.csv")
		convey.So(cfg.Validate(ctx), convey.ShouldBeNil)

		convey.Convey("When no command is given", func() {
			err := run(ctx, cfg, nil)

			convey.Convey("Then usage is reported", func() {
				convey.So(errors.Is(err, errUsage), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When an unknown command is given", func() {
			err := run(ctx, cfg, []string{"serve"})

			convey.Convey("Then usage is reported", func() {
				convey.So(errors.Is(err, errUsage), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When building into a new library", func() {
			err := run(ctx, cfg, []string{"build", "-mode", "create"})
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the division store, results, odds and metrics are written", func() {
				lib, err := openLibrary(cfg)
				convey.So(err, convey.ShouldBeNil)
				defer lib.Close()
				divisions, err := lib.Divisions(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(divisions, convey.ShouldResemble, []string{"E0"})

				for _, path := range []string{cfg.ResultsPath, cfg.OddsPath, cfg.MetricsFile} {
					_, err := os.Stat(path)
					convey.So(err, convey.ShouldBeNil)
				}
			})

			convey.Convey("Then merging the same build succeeds", func() {
				convey.So(run(ctx, cfg, []string{"build"}), convey.ShouldBeNil)
			})

			convey.Convey("Then creating again fails", func() {
				err := run(ctx, cfg, []string{"build", "-mode", "create"})
				convey.So(errors.Is(err, repository.ErrLibraryExists), convey.ShouldBeTrue)
			})

			convey.Convey("Then a backtest writes the report", func() {
				reportPath := filepath.Join(dir, "report.xlsx")
				convey.So(run(ctx, cfg, []string{"backtest", "-report", reportPath}), convey.ShouldBeNil)
				_, err := os.Stat(reportPath)
				convey.So(err, convey.ShouldBeNil)
			})

			convey.Convey("Then stats and delete run", func() {
				convey.So(run(ctx, cfg, []string{"stats"}), convey.ShouldBeNil)
				convey.So(run(ctx, cfg, []string{"delete", "points_form"}), convey.ShouldBeNil)
				convey.So(errors.Is(run(ctx, cfg, []string{"delete"}), errUsage), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When building under a custom metrics namespace", func() {
			cfg.MetricsNamespace = "league"
			cfg.MetricsSubsystem = ""
			convey.So(run(ctx, cfg, []string{"build", "-mode", "create"}), convey.ShouldBeNil)

			convey.Convey("Then the metrics dump uses it", func() {
				raw, err := os.ReadFile(cfg.MetricsFile)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(raw), convey.ShouldContainSubstring, "league_library_writes_total")
				convey.So(string(raw), convey.ShouldNotContainSubstring, "panelfactor_pipeline_")
			})
		})

		convey.Convey("When building with an unknown mode", func() {
			err := run(ctx, cfg, []string{"build", "-mode", "upsert"})

			convey.Convey("Then the mode is rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestNewService(t *testing.T) {
	convey.Convey("Given configs with unknown factor names", t, func() {
		cfg := config.New(context.Background())
		cfg.Factors = []string{"xg_form"}

		_, err := newService(cfg, nil)
		convey.So(err, convey.ShouldNotBeNil)
	})
}
