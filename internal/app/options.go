package service

import (
	"github.com/okian/panelfactor/internal/domain/backtest"
	"github.com/okian/panelfactor/internal/domain/factor"
	"github.com/okian/panelfactor/internal/domain/results"
	"github.com/okian/panelfactor/internal/domain/scoring"
	"github.com/okian/panelfactor/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithParallelism bounds how many divisions are processed at once.
func WithParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithDefinitions sets the factors built by BuildFactors.
func WithDefinitions(defs ...factor.Definition) Option {
	return func(s *Service) {
		if len(defs) > 0 {
			s.defs = defs
		}
	}
}

// WithBuilder sets the factor pipeline.
func WithBuilder(b *factor.Builder) Option {
	return func(s *Service) {
		if b != nil {
			s.builder = b
		}
	}
}

// WithTrainer sets the walk-forward probability model trainer.
func WithTrainer(t *scoring.Trainer) Option {
	return func(s *Service) {
		if t != nil {
			s.trainer = t
		}
	}
}

// WithBooks sets the bookmaker price columns used for odds.
func WithBooks(books ...results.Book) Option {
	return func(s *Service) {
		if len(books) > 0 {
			s.books = books
		}
	}
}

// WithBuckets sets the quantile bucket count for edge analysis.
func WithBuckets(n int, perDivision bool) Option {
	return func(s *Service) {
		if n > 0 {
			s.buckets = n
		}
		s.perDivision = perDivision
	}
}

// WithGroupBy sets the grouping of edge and IC tables.
func WithGroupBy(g backtest.GroupBy) Option {
	return func(s *Service) {
		if g != "" {
			s.groupBy = g
		}
	}
}

// WithPnL sets stake and sizing for the PnL simulation.
func WithPnL(cfg backtest.PnLConfig) Option {
	return func(s *Service) {
		s.pnl = cfg
	}
}

// WithEdgeThreshold sets the minimum implied-minus-market probability
// that opens a position.
func WithEdgeThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold >= 0 {
			s.edgeThreshold = threshold
		}
	}
}
