package testevents

import "time"

// Config holds configuration for the synthetic league generator
type Config struct {
	Divisions   []string // Division codes to generate, e.g. "E0"
	Teams       int      // Teams per division, rounded up to even
	Seasons     int      // Consecutive seasons per division
	FirstSeason int      // Calendar year the first season starts in
	Relegated   int      // Teams replaced by newcomers after each season
	Books       []string // Bookmaker column prefixes; prefix+H/D/A are written
	Margin      float64  // Bookmaker overround, e.g. 0.05
	Seed        uint64   // Random seed; equal seeds give equal tables
	OutputFile  string   // Output file for events
	LogFile     string   // Log file for run output
	Verbose     bool     // Enable verbose logging
}

// Match is one generated fixture with its outcome
type Match struct {
	Division  string
	Season    string
	Date      time.Time
	HomeTeam  string
	AwayTeam  string
	HomeGoals int
	AwayGoals int
	HomeShots int
	AwayShots int
	// Odds holds home, draw, away prices per book prefix
	Odds map[string][3]float64
}

// Stats holds run statistics
type Stats struct {
	Matches   int
	Events    int
	Teams     int
	Newcomers int
	HomeWins  int
	Draws     int
	AwayWins  int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
