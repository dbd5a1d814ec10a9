package testevents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/panelfactor/internal/adapters/ingest"
	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run generates the league, writes it as CSV and verifies the written file.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting synthetic league run",
		logger.Any("divisions", config.Divisions),
		logger.Int("teams", config.Teams),
		logger.Int("seasons", config.Seasons),
		logger.String("output", config.OutputFile),
		logger.Bool("verbose", config.Verbose))

	// Step 1: Generate events
	events, err := Generate(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("event generation failed: %w", err)
	}

	// Step 2: Save events to file
	filename, err := saveEventsToFile(ctx, config, events)
	if err != nil {
		return fmt.Errorf("saving events failed: %w", err)
	}

	// Step 3: Read back and verify
	if err := verifyFile(ctx, config, filename, stats); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "run completed successfully")
	return nil
}

// saveEventsToFile writes the events in the canonical CSV layout and
// returns the file name used.
func saveEventsToFile(ctx context.Context, config *Config, events []model.Event) (string, error) {
	if len(events) == 0 {
		return "", fmt.Errorf("no events to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_events_" + timestamp + ".csv"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	if err := ingest.WriteCSV(file, events); err != nil {
		return "", fmt.Errorf("failed to write events: %w", err)
	}

	logger.Get().Info(ctx, "events saved to file", logger.String("filename", filename))
	return filename, nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(stats *Stats) {
	var homeWinRate float64
	if stats.Matches > 0 {
		homeWinRate = float64(stats.HomeWins) / float64(stats.Matches) * PercentageMultiplier
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("matches", stats.Matches),
		logger.Int("events", stats.Events),
		logger.Int("teams", stats.Teams),
		logger.Int("newcomers", stats.Newcomers),
		logger.Int("homeWins", stats.HomeWins),
		logger.Int("draws", stats.Draws),
		logger.Int("awayWins", stats.AwayWins),
		logger.Float64("homeWinRate", homeWinRate),
		logger.Duration("duration", stats.Duration))
}
