package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/okian/panelfactor/internal/adapters/ingest"
	"github.com/okian/panelfactor/internal/adapters/report"
	"github.com/okian/panelfactor/internal/adapters/repository"
	app "github.com/okian/panelfactor/internal/app"
	"github.com/okian/panelfactor/internal/config"
	"github.com/okian/panelfactor/internal/domain/backtest"
	"github.com/okian/panelfactor/internal/domain/factor"
	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/internal/domain/normalize"
	"github.com/okian/panelfactor/internal/domain/results"
	"github.com/okian/panelfactor/pkg/logger"
	"github.com/okian/panelfactor/pkg/metrics"
)

const usage = `usage: panelfactor <command> [flags]

commands:
  build     build factors from events and write them to the library
  backtest  evaluate library factors against results and odds
  delete    remove factors from every division store
  stats     print library statistics
`

var errUsage = errors.New("usage")

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> .env -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		stop()
		os.Exit(1) //nolint:gocritic // stop called above
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			os.Stderr.WriteString(usage)
		}
		log.Error(ctx, "run failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// run dispatches one subcommand and dumps metrics afterwards.
func run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	metrics.Configure(metrics.WithNamespace(cfg.MetricsNamespace), metrics.WithSubsystem(cfg.MetricsSubsystem))

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "build":
		err = runBuild(ctx, cfg, rest)
	case "backtest":
		err = runBacktest(ctx, cfg, rest)
	case "delete":
		err = runDelete(ctx, cfg, rest)
	case "stats":
		err = runStats(ctx, cfg)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	if cfg.MetricsFile != "" {
		if werr := metrics.WriteTextfile(cfg.MetricsFile); werr != nil {
			err = errors.Join(err, werr)
		}
	}
	return err
}

// openLibrary opens the configured factor library.
func openLibrary(cfg *config.Config) (*repository.Library, error) {
	return repository.Open(repository.Config{
		BasePath: cfg.LibraryPath,
		Naming:   repository.Naming(cfg.DivisionNaming),
		Backend:  cfg.LibraryBackend,
	})
}

// newService translates configuration into service options.
func newService(cfg *config.Config, lib *repository.Library) (*app.Service, error) {
	defs, err := factor.Lookup(cfg.Window, cfg.Factors...)
	if err != nil {
		return nil, err
	}

	var builderOpts []factor.Option
	if cfg.Normalization != "" {
		m, err := normalize.ParseMethod(cfg.Normalization)
		if err != nil {
			return nil, err
		}
		builderOpts = append(builderOpts, factor.WithNormalization(m))
	}

	groupBy, err := backtest.ParseGroupBy(cfg.GroupBy)
	if err != nil {
		return nil, err
	}
	sizing, err := backtest.ParseSizing(cfg.Sizing)
	if err != nil {
		return nil, err
	}

	books := make([]results.Book, 0, len(cfg.OddsBooks))
	for _, prefix := range cfg.OddsBooks {
		books = append(books, results.Book{Home: prefix + "H", Draw: prefix + "D", Away: prefix + "A"})
	}

	return app.New(lib,
		app.WithDefinitions(defs...),
		app.WithBuilder(factor.NewBuilder(builderOpts...)),
		app.WithBooks(books...),
		app.WithParallelism(cfg.Parallelism),
		app.WithBuckets(cfg.Buckets, cfg.BucketPerDivision),
		app.WithGroupBy(groupBy),
		app.WithPnL(backtest.PnLConfig{Stake: cfg.Stake, Sizing: sizing, MaxKellyFraction: cfg.MaxKellyFraction}),
		app.WithEdgeThreshold(cfg.EdgeThreshold),
	), nil
}

func readEvents(ctx context.Context, path string) ([]model.Event, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no events file (set -events or events_path)", errUsage)
	}
	return ingest.ReadFile(ctx, path)
}

func runBuild(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	eventsPath := fs.String("events", cfg.EventsPath, "event table (.csv or .xlsx)")
	modeName := fs.String("mode", string(app.ModeMerge), "library update: create, merge or replace")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	mode, err := app.ParseUpdateMode(*modeName)
	if err != nil {
		return err
	}

	events, err := readEvents(ctx, *eventsPath)
	if err != nil {
		return err
	}
	lib, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer lib.Close()

	svc, err := newService(cfg, lib)
	if err != nil {
		return err
	}
	factors, err := svc.BuildFactors(ctx, events)
	if err != nil {
		return err
	}
	if err := svc.UpdateLibrary(ctx, factors, mode); err != nil {
		return err
	}

	if cfg.ResultsPath == "" && cfg.OddsPath == "" {
		return nil
	}
	outcomes, odds, err := svc.BuildResults(ctx, events)
	if err != nil {
		return err
	}
	if err := writeRecords(cfg.ResultsPath, outcomes); err != nil {
		return err
	}
	return writeRecords(cfg.OddsPath, odds)
}

// writeRecords saves records as CSV; an empty path is a no-op.
func writeRecords(path string, recs []model.Record) (err error) {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return repository.WriteRecords(f, recs)
}

func runBacktest(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("backtest", flag.ContinueOnError)
	eventsPath := fs.String("events", cfg.EventsPath, "event table with results and odds")
	reportPath := fs.String("report", cfg.ReportPath, "XLSX report output")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	events, err := readEvents(ctx, *eventsPath)
	if err != nil {
		return err
	}
	lib, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer lib.Close()

	svc, err := newService(cfg, lib)
	if err != nil {
		return err
	}
	factors, err := svc.LoadFactors(ctx, fs.Args()...)
	if err != nil {
		return err
	}
	if len(cfg.Factors) > 0 {
		factors = model.FilterField(factors, cfg.Factors...)
	}
	outcomes, odds, err := svc.BuildResults(ctx, events)
	if err != nil {
		return err
	}
	res, err := svc.Backtest(ctx, factors, outcomes, odds)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := logger.Get().Named("backtest").With(logger.String("run", runID))
	log.Info(ctx, "backtest summary",
		logger.Int("bets", res.Summary.Bets),
		logger.Int("wins", res.Summary.Wins),
		logger.Float64("hitRatio", res.Summary.HitRatio),
		logger.Float64("totalProfit", res.Summary.TotalProfit),
		logger.Int("maxWinStreak", res.Summary.MaxWinStreak),
		logger.Int("maxLossStreak", res.Summary.MaxLossStreak),
	)

	if *reportPath == "" {
		return nil
	}
	if err := report.Write(*reportPath, report.Report{
		RunID:       runID,
		Generated:   time.Now().UTC(),
		Summary:     res.Summary,
		PnL:         res.PnL,
		Edge:        res.Edge,
		IC:          res.IC,
		Mispricings: res.Mispricings,
	}); err != nil {
		return err
	}
	log.Info(ctx, "report written", logger.String("path", *reportPath))
	return nil
}

func runDelete(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: delete needs factor names", errUsage)
	}
	lib, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer lib.Close()

	svc, err := newService(cfg, lib)
	if err != nil {
		return err
	}
	return svc.DeleteFactors(ctx, args...)
}

func runStats(ctx context.Context, cfg *config.Config) error {
	lib, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer lib.Close()

	svc, err := newService(cfg, lib)
	if err != nil {
		return err
	}
	stats, err := svc.GetStats(ctx)
	if err != nil {
		return err
	}
	logger.Get().Info(ctx, "library statistics", logger.Any("stats", stats))
	return nil
}
