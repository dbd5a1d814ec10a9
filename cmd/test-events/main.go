package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/okian/panelfactor/internal/testevents"
)

// Default configuration constants.
const (
	defaultDivisions  = "E0"
	defaultBooks      = "B365,PS"
	defaultRunTimeout = 5 * time.Minute
)

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	var (
		divisions   = flag.String("divisions", defaultDivisions, "Comma-separated division codes")
		teams       = flag.Int("teams", testevents.DefaultTeams, "Teams per division")
		seasons     = flag.Int("seasons", testevents.DefaultSeasons, "Seasons per division")
		firstSeason = flag.Int("first-season", testevents.DefaultFirstSeason, "Year the first season starts")
		relegated   = flag.Int("relegated", testevents.DefaultRelegated, "Teams replaced by newcomers after each season")
		books       = flag.String("books", defaultBooks, "Comma-separated bookmaker prefixes")
		seed        = flag.Uint64("seed", testevents.DefaultSeed, "Random seed")
		outputFile  = flag.String("output", "", "Output CSV file (default: generated_events_TIMESTAMP.csv)")
		logFile     = flag.String("log", "", "Log file for run output (default: league_log_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testevents.ShowHelp()
		return
	}

	if err := testevents.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &testevents.Config{
		Divisions:   splitList(*divisions),
		Teams:       *teams,
		Seasons:     *seasons,
		FirstSeason: *firstSeason,
		Relegated:   *relegated,
		Books:       splitList(*books),
		Margin:      testevents.DefaultMargin,
		Seed:        *seed,
		OutputFile:  *outputFile,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	if err := testevents.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called above
	}
}
