package testevents

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/panelfactor/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			return err
		}
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "league_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the synthetic league tool.
func ShowHelp() {
	os.Stdout.WriteString(`Panelfactor Synthetic League Tool
=================================

Generates a deterministic multi-season league as a long-format event CSV
(division, season, date, home_team, away_team, field, value) with goals,
shots and bookmaker prices, then reads it back and verifies it.

Usage:
  go run cmd/test-events/main.go [options]

Options:
  -divisions string
        Comma-separated division codes (default "E0")
  -teams int
        Teams per division (default 10)
  -seasons int
        Seasons per division (default 3)
  -first-season int
        Year the first season starts (default 2021)
  -relegated int
        Teams replaced by newcomers after each season (default 2)
  -books string
        Comma-separated bookmaker prefixes (default "B365,PS")
  -seed uint
        Random seed (default 42)
  -output string
        Output CSV file (default: generated_events_TIMESTAMP.csv)
  -log string
        Log file for run output (default: league_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Default league
  go run cmd/test-events/main.go -output testdata/events.csv

  # Two divisions, five seasons
  go run cmd/test-events/main.go -divisions E0,E1 -seasons 5 -seed 7
`)
}
