package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/panelfactor/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		t.Setenv(config.EnvDotFile, filepath.Join(dir, "absent.env"))

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Window, convey.ShouldEqual, 5)
				convey.So(cfg.LibraryPath, convey.ShouldEqual, "library")
				convey.So(cfg.OddsBooks, convey.ShouldResemble, []string{"B365"})
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PANELFACTOR_WINDOW", "10")
			_ = os.Setenv("PANELFACTOR_SIZING", "kelly")
			_ = os.Setenv("PANELFACTOR_STAKE", "2.5")
			_ = os.Setenv("PANELFACTOR_BUCKET_PER_DIVISION", "true")
			_ = os.Setenv("PANELFACTOR_FACTORS", "points_form, win_rate")
			_ = os.Setenv("PANELFACTOR_ODDS_BOOKS", "PS,B365")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Window, convey.ShouldEqual, 10)
				convey.So(cfg.Sizing, convey.ShouldEqual, "kelly")
				convey.So(cfg.Stake, convey.ShouldEqual, 2.5)
				convey.So(cfg.BucketPerDivision, convey.ShouldBeTrue)
				convey.So(cfg.Factors, convey.ShouldResemble, []string{"points_form", "win_rate"})
				convey.So(cfg.OddsBooks, convey.ShouldResemble, []string{"PS", "B365"})
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			path := filepath.Join(dir, "config.yaml")
			yamlContent := `
window: 8
library_backend: sqlite
group_by: season
factors:
  - goal_diff_form
`
			convey.So(os.WriteFile(path, []byte(yamlContent), 0o600), convey.ShouldBeNil)
			_ = os.Setenv(config.EnvConfig, path)
			_ = os.Setenv("PANELFACTOR_WINDOW", "3")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and env wins over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LibraryBackend, convey.ShouldEqual, "sqlite")
				convey.So(cfg.GroupBy, convey.ShouldEqual, "season")
				convey.So(cfg.Factors, convey.ShouldResemble, []string{"goal_diff_form"})
				convey.So(cfg.Window, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the .env file sets values", func() {
			clearConfigEnvVars()
			dotFile := filepath.Join(dir, "test.env")
			convey.So(os.WriteFile(dotFile, []byte("PANELFACTOR_BUCKETS=7\n"), 0o600), convey.ShouldBeNil)
			_ = os.Setenv(config.EnvDotFile, dotFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then they are picked up", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Buckets, convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv(config.EnvConfig, filepath.Join(dir, "missing.yaml"))
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a value is out of range", func() {
			_ = os.Setenv("PANELFACTOR_BUCKETS", "0")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		config.EnvConfig,
		"PANELFACTOR_WINDOW",
		"PANELFACTOR_SIZING",
		"PANELFACTOR_STAKE",
		"PANELFACTOR_BUCKET_PER_DIVISION",
		"PANELFACTOR_FACTORS",
		"PANELFACTOR_ODDS_BOOKS",
		"PANELFACTOR_BUCKETS",
	} {
		_ = os.Unsetenv(key)
	}
}
