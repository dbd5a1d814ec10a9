// Package service wires the panel pipeline, the factor library and the
// backtest evaluator into batch operations.
package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/panelfactor/internal/adapters/repository"
	"github.com/okian/panelfactor/internal/domain/backtest"
	"github.com/okian/panelfactor/internal/domain/dedupe"
	"github.com/okian/panelfactor/internal/domain/factor"
	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/internal/domain/panel"
	"github.com/okian/panelfactor/internal/domain/results"
	"github.com/okian/panelfactor/internal/domain/scoring"
	"github.com/okian/panelfactor/internal/domain/types"
	"github.com/okian/panelfactor/pkg/logger"
	"github.com/okian/panelfactor/pkg/metrics"
)

// UpdateMode selects how built factors enter the library.
type UpdateMode string

// Library update modes.
const (
	ModeCreate  UpdateMode = "create"
	ModeMerge   UpdateMode = "merge"
	ModeReplace UpdateMode = "replace"
)

// ParseUpdateMode parses create, merge or replace.
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch m := UpdateMode(s); m {
	case ModeCreate, ModeMerge, ModeReplace:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// modelLabel tags metrics of the walk-forward model strategy.
const modelLabel = "model"

// Service runs factor builds, library updates and backtests.
type Service struct {
	library *repository.Library
	builder *factor.Builder
	trainer *scoring.Trainer
	logger  logger.Logger

	defs          []factor.Definition
	books         []results.Book
	parallelism   int
	buckets       int
	perDivision   bool
	groupBy       backtest.GroupBy
	pnl           backtest.PnLConfig
	edgeThreshold float64
}

// BacktestResult holds every table of one backtest run.
type BacktestResult struct {
	Edge        []backtest.EdgeRow
	IC          []backtest.ICRow
	Predictions []types.Prediction
	Mispricings []types.Mispricing
	PnL         []backtest.PnLRow
	Summary     backtest.Summary
}

// New constructs a Service over library. A nil library is allowed for
// operations that do not touch storage.
func New(library *repository.Library, opts ...Option) *Service {
	s := &Service{
		library:       library,
		books:         []results.Book{{Home: "B365H", Draw: "B365D", Away: "B365A"}},
		parallelism:   1,
		buckets:       5,
		groupBy:       backtest.ByDivisionSeason,
		pnl:           backtest.PnLConfig{Stake: 10, Sizing: backtest.Naive, MaxKellyFraction: backtest.DefaultMaxKellyFraction},
		edgeThreshold: 0.05,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.builder == nil {
		s.builder = factor.NewBuilder()
	}
	if s.trainer == nil {
		s.trainer = scoring.NewTrainer()
	}
	if s.defs == nil {
		defs, err := factor.Lookup(5)
		if err == nil {
			s.defs = defs
		}
	}
	return s
}

// byDivision splits events per division, divisions sorted.
func byDivision(events []model.Event) ([]string, map[string][]model.Event) {
	groups := make(map[string][]model.Event)
	for _, e := range events {
		groups[e.Division] = append(groups[e.Division], e)
	}
	names := make([]string, 0, len(groups))
	for d := range groups {
		names = append(names, d)
	}
	sort.Strings(names)
	return names, groups
}

func recordsByDivision(recs []model.Record) ([]string, map[string][]model.Record) {
	groups := make(map[string][]model.Record)
	for _, r := range recs {
		groups[r.Division] = append(groups[r.Division], r)
	}
	names := make([]string, 0, len(groups))
	for d := range groups {
		names = append(names, d)
	}
	sort.Strings(names)
	return names, groups
}

// eachDivision runs fn for every division with at most s.parallelism in
// flight. The first error cancels the rest.
func (s *Service) eachDivision(ctx context.Context, divisions []string, fn func(ctx context.Context, division string) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, d := range divisions {
		g.Go(func() error {
			return fn(gctx, d)
		})
	}
	return g.Wait()
}

// BuildFactors runs the configured factor definitions over events, one
// division at a time, and returns the union sorted by key.
func (s *Service) BuildFactors(ctx context.Context, events []model.Event) ([]model.Record, error) {
	start := time.Now()
	divisions, groups := byDivision(events)

	var (
		mu  sync.Mutex
		out []model.Record
	)
	err := s.eachDivision(ctx, divisions, func(ctx context.Context, division string) error {
		recs, err := s.builder.Build(ctx, groups[division], s.defs...)
		if err != nil {
			return fmt.Errorf("division %s: %w", division, err)
		}
		mu.Lock()
		out = append(out, recs...)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	model.SortRecords(out)
	s.logger.Info(ctx, "factors built",
		logger.Int("divisions", len(divisions)),
		logger.Int("factors", len(s.defs)),
		logger.Int("records", len(out)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// BuildResults derives result records from full-time goals and best
// team-centric odds from the configured books. Neither is lagged.
func (s *Service) BuildResults(ctx context.Context, events []model.Event) (outcomes, odds []model.Record, err error) {
	goals, err := panel.Neutralize(ctx, events, results.GoalRoles(factor.ColHomeGoals, factor.ColAwayGoals)...)
	if err != nil {
		return nil, nil, fmt.Errorf("results: %w", err)
	}
	outcomes = results.FromGoals(goals)
	if err := dedupe.Check(ctx, outcomes); err != nil {
		return nil, nil, fmt.Errorf("results: %w", err)
	}

	odds, err = results.BestOdds(ctx, events, s.books...)
	if err != nil {
		return nil, nil, err
	}
	return outcomes, odds, nil
}

// UpdateLibrary writes factors into their division stores using mode.
func (s *Service) UpdateLibrary(ctx context.Context, factors []model.Record, mode UpdateMode) error {
	if s.library == nil {
		return fmt.Errorf("update library: %w", ErrNoLibrary)
	}
	divisions, groups := recordsByDivision(factors)
	return s.eachDivision(ctx, divisions, func(ctx context.Context, division string) error {
		recs := groups[division]
		var err error
		switch mode {
		case ModeCreate:
			err = s.library.Create(ctx, division, recs)
		case ModeMerge:
			err = s.library.MergeIncremental(ctx, division, recs)
		case ModeReplace:
			err = s.library.ReplaceFactor(ctx, division, recs)
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownMode, mode)
		}
		if err != nil {
			return fmt.Errorf("%s division %s: %w", mode, division, err)
		}
		return nil
	})
}

// LoadFactors returns the consolidated library, or the named divisions.
func (s *Service) LoadFactors(ctx context.Context, divisions ...string) ([]model.Record, error) {
	if s.library == nil {
		return nil, fmt.Errorf("load factors: %w", ErrNoLibrary)
	}
	return s.library.Consolidate(ctx, divisions...)
}

// DeleteFactors purges the named factors from every division store.
func (s *Service) DeleteFactors(ctx context.Context, names ...string) error {
	if s.library == nil {
		return fmt.Errorf("delete factors: %w", ErrNoLibrary)
	}
	if err := s.library.DeleteFields(ctx, names...); err != nil {
		return err
	}
	s.logger.Info(ctx, "factors deleted", logger.Any("factors", names))
	return nil
}

// Backtest evaluates factors against outcomes and odds: quantile edge,
// rank IC against goal difference, walk-forward win probabilities,
// mispricings against the market and the PnL of backing them.
func (s *Service) Backtest(ctx context.Context, factors, outcomes, odds []model.Record) (*BacktestResult, error) {
	var bucketOpts []backtest.BucketOption
	if s.perDivision {
		bucketOpts = append(bucketOpts, backtest.PerDivision())
	}
	bucketed, err := backtest.Bucket(factors, s.buckets, bucketOpts...)
	if err != nil {
		return nil, err
	}

	res := &BacktestResult{
		Edge: backtest.Edge(bucketed, outcomes, s.groupBy),
		IC:   backtest.InformationCoefficient(factors, outcomes, results.GoalDiff, s.groupBy),
	}

	res.Predictions, err = s.trainer.WalkForward(ctx, factors, outcomes, results.Win)
	if err != nil {
		return nil, fmt.Errorf("walk forward: %w", err)
	}
	res.Mispricings = scoring.Mispricings(res.Predictions, odds)
	positions := scoring.Positions(res.Mispricings, s.edgeThreshold)

	res.PnL, err = backtest.PnL(positions, odds, outcomes, s.pnl)
	if err != nil {
		return nil, err
	}
	res.Summary = backtest.Summarize(res.PnL)

	metrics.RecordBacktestBets(modelLabel, res.Summary.Bets)
	metrics.UpdateBacktestProfit(modelLabel, res.Summary.TotalProfit)
	s.logger.Info(ctx, "backtest complete",
		logger.Int("predictions", len(res.Predictions)),
		logger.Int("mispricings", len(res.Mispricings)),
		logger.Int("positions", len(positions)),
		logger.Int("bets", res.Summary.Bets),
		logger.Float64("profit", res.Summary.TotalProfit),
	)
	return res, nil
}

// GetStats returns library statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{
		"parallelism": s.parallelism,
		"factors":     len(s.defs),
	}
	if s.library == nil {
		return stats, nil
	}

	divisions, err := s.library.Divisions(ctx)
	if err != nil {
		return nil, err
	}
	records := make(map[string]int, len(divisions))
	versions := make(map[string]string, len(divisions))
	for _, d := range divisions {
		v, err := s.library.Version(ctx, d)
		if err != nil {
			return nil, err
		}
		records[d] = v.Records
		versions[d] = v.ID
		metrics.UpdateLibraryRecords(d, v.Records)
	}
	stats["divisions"] = divisions
	stats["records"] = records
	stats["versions"] = versions
	return stats, nil
}
