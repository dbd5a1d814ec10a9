// Package types contains row types shared by scoring, backtest and reporting
package types

import (
	"time"

	"github.com/okian/panelfactor/internal/domain/model"
)

// Prediction is a model-implied probability for a team's outcome on a date
type Prediction struct {
	Division    string    `json:"division"`
	Season      string    `json:"season"`
	Date        time.Time `json:"date"`
	Team        string    `json:"team"`
	Outcome     string    `json:"outcome"`
	Probability float64   `json:"probability"`
}

// MatchKey returns the join key of the prediction
func (p Prediction) MatchKey() model.MatchKey {
	return model.MatchKey{Division: p.Division, Season: p.Season, Team: p.Team, Day: model.DayNumber(p.Date)}
}

// Mispricing compares a model-implied probability with the vig-free market one
type Mispricing struct {
	Division           string    `json:"division"`
	Season             string    `json:"season"`
	Date               time.Time `json:"date"`
	Team               string    `json:"team"`
	ImpliedProbability float64   `json:"implied_probability"`
	MarketProbability  float64   `json:"market_probability"`
}

// Edge is the implied minus the market probability
func (m Mispricing) Edge() float64 {
	return m.ImpliedProbability - m.MarketProbability
}

// Position is a decision to back a team's outcome on a date
type Position struct {
	Division    string    `json:"division"`
	Season      string    `json:"season"`
	Date        time.Time `json:"date"`
	Team        string    `json:"team"`
	Outcome     string    `json:"outcome"`
	Probability float64   `json:"probability"`
}

// MatchKey returns the join key of the position
func (p Position) MatchKey() model.MatchKey {
	return model.MatchKey{Division: p.Division, Season: p.Season, Team: p.Team, Day: model.DayNumber(p.Date)}
}
