package testevents

import "time"

// Vendor column names written per match.
const (
	ColHomeGoals = "FTHG"
	ColAwayGoals = "FTAG"
	ColHomeShots = "HS"
	ColAwayShots = "AS"
)

// Generator defaults.
const (
	DefaultTeams       = 10
	DefaultSeasons     = 3
	DefaultFirstSeason = 2021
	DefaultRelegated   = 2
	DefaultMargin      = 0.05
	DefaultSeed        = 42
)

// Model constants.
const (
	seasonStartMonth = time.August
	seasonStartDay   = 10
	roundInterval    = 7 * 24 * time.Hour

	baseGoalRate  = 1.35
	homeAdvantage = 0.25
	strengthScale = 0.35
	baseShots     = 7.0
	shotsPerGoal  = 3.0
	drawShare     = 0.26
	minPrice      = 1.01
)

// PercentageMultiplier converts ratios to percentages.
const PercentageMultiplier = 100
