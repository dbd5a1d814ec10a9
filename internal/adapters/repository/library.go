package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/panelfactor/internal/domain/dedupe"
	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/pkg/logger"
	"github.com/okian/panelfactor/pkg/metrics"
)

const defaultLockRetry = 50 * time.Millisecond

// Library is the division-partitioned factor store. Each write is a
// read-modify-write under a per-division mutex and lock file, and stamps a
// new version.
type Library struct {
	cfg       Config
	backend   Backend
	log       logger.Logger
	lockRetry time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open creates a Library rooted at cfg.BasePath.
func Open(cfg Config, opts ...Option) (*Library, error) {
	if _, err := cfg.Naming.Apply("probe"); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir %s: %w", cfg.BasePath, err)
	}

	lib := &Library{
		cfg:       cfg,
		lockRetry: defaultLockRetry,
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(lib)
	}
	if lib.log == nil {
		lib.log = logger.Get().Named("library")
	}
	if lib.backend == nil {
		b, err := newBackend(cfg)
		if err != nil {
			return nil, err
		}
		lib.backend = b
	}
	return lib, nil
}

func newBackend(cfg Config) (Backend, error) {
	switch cfg.Backend {
	case "", "csv":
		return NewCSVBackend(cfg.BasePath), nil
	case "sqlite":
		return NewSQLiteBackend(cfg.BasePath)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// Close releases the backend.
func (l *Library) Close() error {
	return l.backend.Close()
}

// Create writes recs as a new division store. It fails with
// ErrLibraryExists when the store exists, unless WithOverwrite is given.
func (l *Library) Create(ctx context.Context, division string, recs []model.Record, opts ...CreateOption) error {
	var cfg createConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return l.update(ctx, "create", division, func(_ []model.Record, exists bool) ([]model.Record, error) {
		if exists && !cfg.overwrite {
			return nil, fmt.Errorf("division %s: %w", division, ErrLibraryExists)
		}
		return recs, nil
	})
}

// MergeIncremental folds a batch into an existing store: rows whose key is
// in the batch are replaced, the rest is kept. A pending row in the batch
// also replaces the stored pending row of its team and factor, whatever its
// season. Merging the same batch twice leaves the store as after the first
// merge.
func (l *Library) MergeIncremental(ctx context.Context, division string, recs []model.Record) error {
	return l.update(ctx, "merge", division, func(existing []model.Record, exists bool) ([]model.Record, error) {
		if !exists {
			return nil, fmt.Errorf("division %s: %w", division, ErrBaselineMissing)
		}
		incoming := make(map[model.Key]struct{}, len(recs))
		pending := make(map[seriesKey]struct{})
		for _, r := range recs {
			incoming[model.KeyOf(r)] = struct{}{}
			if model.IsPending(r.Date) {
				pending[seriesOf(r)] = struct{}{}
			}
		}
		return union(existing, recs, func(r model.Record) bool {
			if _, ok := incoming[model.KeyOf(r)]; ok {
				return true
			}
			if !model.IsPending(r.Date) {
				return false
			}
			_, ok := pending[seriesOf(r)]
			return ok
		}), nil
	})
}

// ReplaceFactor drops every stored row of the factors present in recs and
// adds recs. A missing store is created.
func (l *Library) ReplaceFactor(ctx context.Context, division string, recs []model.Record) error {
	fields := fieldSet(model.Fields(recs)...)
	return l.update(ctx, "replace", division, func(existing []model.Record, _ bool) ([]model.Record, error) {
		return union(existing, recs, func(r model.Record) bool {
			_, ok := fields[r.Field]
			return ok
		}), nil
	})
}

// DeleteFields removes the named factors from every division store.
func (l *Library) DeleteFields(ctx context.Context, fields ...string) error {
	divisions, err := l.Divisions(ctx)
	if err != nil {
		return err
	}
	drop := fieldSet(fields...)
	for _, division := range divisions {
		err := l.update(ctx, "delete", division, func(existing []model.Record, _ bool) ([]model.Record, error) {
			return union(existing, nil, func(r model.Record) bool {
				_, ok := drop[r.Field]
				return ok
			}), nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Load returns the records of a division. A missing store is
// ErrBaselineMissing.
func (l *Library) Load(ctx context.Context, division string) ([]model.Record, error) {
	name, err := l.cfg.Naming.Apply(division)
	if err != nil {
		return nil, err
	}
	recs, exists, err := l.backend.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load division %s: %w", division, err)
	}
	if !exists {
		return nil, fmt.Errorf("division %s: %w", division, ErrBaselineMissing)
	}
	return recs, nil
}

// Consolidate returns the union of the named division stores, or of every
// store when none is named.
func (l *Library) Consolidate(ctx context.Context, divisions ...string) ([]model.Record, error) {
	if len(divisions) == 0 {
		all, err := l.Divisions(ctx)
		if err != nil {
			return nil, err
		}
		divisions = all
	}
	var out []model.Record
	for _, d := range divisions {
		recs, err := l.Load(ctx, d)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	model.SortRecords(out)
	return out, nil
}

// Divisions lists the stored divisions in order.
func (l *Library) Divisions(ctx context.Context) ([]string, error) {
	names, err := l.backend.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("list divisions: %w", err)
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		v, ok, err := l.backend.Version(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("version of %s: %w", name, err)
		}
		if ok && v.Division != "" {
			out = append(out, v.Division)
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Version returns the last write stamp of a division.
func (l *Library) Version(ctx context.Context, division string) (Version, error) {
	name, err := l.cfg.Naming.Apply(division)
	if err != nil {
		return Version{}, err
	}
	v, ok, err := l.backend.Version(ctx, name)
	if err != nil {
		return Version{}, fmt.Errorf("version of %s: %w", division, err)
	}
	if !ok {
		return Version{}, fmt.Errorf("division %s: %w", division, ErrBaselineMissing)
	}
	return v, nil
}

// update runs one locked read-modify-write of a division store.
func (l *Library) update(ctx context.Context, mode, division string,
	modify func(existing []model.Record, exists bool) ([]model.Record, error),
) error {
	start := time.Now()
	name, err := l.cfg.Naming.Apply(division)
	if err != nil {
		return err
	}

	mu := l.divisionLock(name)
	mu.Lock()
	defer mu.Unlock()

	release, err := l.acquireFile(ctx, name)
	if err != nil {
		return err
	}
	defer release()

	existing, exists, err := l.backend.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("load division %s: %w", division, err)
	}
	next, err := modify(existing, exists)
	if err != nil {
		metrics.RecordErrorByComponent("library", mode)
		return err
	}
	if err := dedupe.Check(ctx, next); err != nil {
		return fmt.Errorf("%s division %s: %w", mode, division, err)
	}
	model.SortRecords(next)

	v := Version{ID: uuid.NewString(), Division: division, Written: time.Now().UTC(), Records: len(next)}
	if err := l.backend.Save(ctx, name, next, v); err != nil {
		return fmt.Errorf("save division %s: %w", division, err)
	}

	metrics.RecordLibraryWrite(mode)
	metrics.UpdateLibraryRecords(division, len(next))
	metrics.RecordLibraryWriteLatency(float64(time.Since(start).Microseconds()) / 1000)
	l.log.Info(ctx, "library updated",
		logger.String("division", division),
		logger.String("mode", mode),
		logger.String("version", v.ID),
		logger.Int("records", len(next)))
	return nil
}

func (l *Library) divisionLock(name string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	mu, ok := l.locks[name]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[name] = mu
	}
	return mu
}

// acquireFile takes the on-disk lock of a division, retrying until ctx is
// done.
func (l *Library) acquireFile(ctx context.Context, name string) (func(), error) {
	path := filepath.Join(l.cfg.BasePath, name+".lock")
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
			_ = f.Close()
			return func() { _ = os.Remove(path) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("lock %s: %w", path, err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrLocked, path, ctx.Err())
		case <-time.After(l.lockRetry):
		}
	}
}

// union keeps the existing rows that drop rejects and appends batch.
func union(existing, batch []model.Record, drop func(model.Record) bool) []model.Record {
	out := make([]model.Record, 0, len(existing)+len(batch))
	for _, r := range existing {
		if !drop(r) {
			out = append(out, r)
		}
	}
	return append(out, batch...)
}

// seriesKey identifies a team's factor series across seasons.
type seriesKey struct{ division, team, field string }

func seriesOf(r model.Record) seriesKey {
	return seriesKey{r.Division, r.Team, r.Field}
}

func fieldSet(fields ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}
