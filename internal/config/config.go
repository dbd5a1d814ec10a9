// Package config defines process configuration and loading hooks.
//
// Conventions:
// - Provide New(ctx) initializer to build a Config with defaults.
// - Functions accept context.Context as the first parameter.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// metricName is the Prometheus name charset, colons excluded.
var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`) //nolint:gochecknoglobals // compiled once

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// LibraryPath is the directory of the factor library.
	LibraryPath string `koanf:"library_path"`
	// LibraryBackend is csv or sqlite.
	LibraryBackend string `koanf:"library_backend"`
	// DivisionNaming maps divisions to store names: snake, lower or raw.
	DivisionNaming string `koanf:"division_naming"`

	// EventsPath is the long-format event table (.csv or .xlsx).
	EventsPath string `koanf:"events_path"`
	// ResultsPath, when set, receives the derived result records.
	ResultsPath string `koanf:"results_path"`
	// OddsPath, when set, receives the best team-centric odds records.
	OddsPath string `koanf:"odds_path"`

	// Factors names the catalogue entries to build; empty builds all.
	Factors []string `koanf:"factors"`
	// Window is the rolling window in matches.
	Window int `koanf:"window"`
	// Normalization is zscore, percentile or none; empty keeps each
	// factor's own method.
	Normalization string `koanf:"normalization"`
	// OddsBooks lists bookmaker column prefixes; prefix+H/D/A are read.
	OddsBooks []string `koanf:"odds_books"`

	// Buckets is the number of quantile buckets in edge analysis.
	Buckets int `koanf:"buckets"`
	// BucketPerDivision ranks each division separately.
	BucketPerDivision bool `koanf:"bucket_per_division"`
	// GroupBy is overall, season, division or division_season.
	GroupBy string `koanf:"group_by"`
	// Stake is the base bet size.
	Stake float64 `koanf:"stake"`
	// Sizing is naive or kelly.
	Sizing string `koanf:"sizing"`
	// MaxKellyFraction caps Kelly weights.
	MaxKellyFraction float64 `koanf:"max_kelly_fraction"`
	// EdgeThreshold is the minimum implied-minus-market probability
	// for a position.
	EdgeThreshold float64 `koanf:"edge_threshold"`

	// Parallelism bounds concurrent per-division work.
	Parallelism int `koanf:"parallelism"`

	// MetricsFile, when set, receives a Prometheus text dump after a run.
	MetricsFile string `koanf:"metrics_file"`
	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`
	// ReportPath, when set, receives the XLSX backtest report.
	ReportPath string `koanf:"report_path"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		LibraryPath:      "library",
		LibraryBackend:   "csv",
		DivisionNaming:   "snake",
		Window:           5,
		OddsBooks:        []string{"B365"},
		Buckets:          5,
		GroupBy:          "division_season",
		Stake:            10,
		Sizing:           "naive",
		MaxKellyFraction: 0.25,
		EdgeThreshold:    0.05,
		Parallelism:      1,
		MetricsNamespace: "panelfactor",
		MetricsSubsystem: "pipeline",
	}
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s=%q, want one of %s", ErrInvalidConfig, field, value, strings.Join(allowed, "|"))
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate(_ context.Context) error {
	checks := []error{
		oneOf("log_format", c.LogFormat, "text", "json"),
		oneOf("library_backend", c.LibraryBackend, "csv", "sqlite"),
		oneOf("division_naming", c.DivisionNaming, "snake", "lower", "raw"),
		oneOf("normalization", c.Normalization, "", "zscore", "percentile", "none"),
		oneOf("group_by", c.GroupBy, "overall", "season", "division", "division_season"),
		oneOf("sizing", c.Sizing, "naive", "kelly"),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}

	switch {
	case c.LibraryPath == "":
		return fmt.Errorf("%w: library_path must not be empty", ErrInvalidConfig)
	case c.Window < 1:
		return fmt.Errorf("%w: window must be at least 1, got %d", ErrInvalidConfig, c.Window)
	case c.Buckets < 1:
		return fmt.Errorf("%w: buckets must be at least 1, got %d", ErrInvalidConfig, c.Buckets)
	case !(c.Stake > 0):
		return fmt.Errorf("%w: stake must be positive, got %v", ErrInvalidConfig, c.Stake)
	case !(c.MaxKellyFraction > 0 && c.MaxKellyFraction <= 1):
		return fmt.Errorf("%w: max_kelly_fraction must be in (0, 1], got %v", ErrInvalidConfig, c.MaxKellyFraction)
	case c.EdgeThreshold < 0:
		return fmt.Errorf("%w: edge_threshold must not be negative, got %v", ErrInvalidConfig, c.EdgeThreshold)
	case c.Parallelism < 1:
		return fmt.Errorf("%w: parallelism must be at least 1, got %d", ErrInvalidConfig, c.Parallelism)
	case !metricName.MatchString(c.MetricsNamespace):
		return fmt.Errorf("%w: metrics_namespace %q is not a metric name", ErrInvalidConfig, c.MetricsNamespace)
	case c.MetricsSubsystem != "" && !metricName.MatchString(c.MetricsSubsystem):
		return fmt.Errorf("%w: metrics_subsystem %q is not a metric name", ErrInvalidConfig, c.MetricsSubsystem)
	}
	return nil
}
