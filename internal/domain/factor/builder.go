package factor

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/panelfactor/internal/domain/dedupe"
	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/internal/domain/normalize"
	"github.com/okian/panelfactor/internal/domain/panel"
	"github.com/okian/panelfactor/internal/domain/rolling"
	"github.com/okian/panelfactor/pkg/logger"
	"github.com/okian/panelfactor/pkg/metrics"
)

// Builder runs the panel pipeline for factor definitions.
type Builder struct {
	log      logger.Logger
	calc     *rolling.Calculator
	norm     *normalize.Normalizer
	method   normalize.Method
	override bool
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = logger.Get().Named("factor")
	}
	if b.calc == nil {
		b.calc = rolling.NewCalculator()
	}
	if b.norm == nil {
		b.norm = normalize.NewNormalizer()
	}
	return b
}

// Build computes every definition over events and returns the union of the
// factor records. Each factor is neutralized, expanded, rolled, lagged,
// newcomer-neutralized and normalized in that order.
func (b *Builder) Build(ctx context.Context, events []model.Event, defs ...Definition) ([]model.Record, error) {
	calendar := panel.CalendarFromEvents(events)

	var out []model.Record
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("build cancelled: %w", err)
		}
		recs, err := b.one(ctx, events, calendar, def)
		if err != nil {
			return nil, fmt.Errorf("factor %s: %w", def.Name, err)
		}
		metrics.RecordFactorRows(def.Name, len(recs))
		out = append(out, recs...)
	}

	if err := dedupe.Check(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Builder) one(ctx context.Context, events []model.Event, cal panel.Calendar, def Definition) ([]model.Record, error) {
	stage := stageTimer()

	teamPanel, err := panel.Neutralize(ctx, events, def.Roles...)
	if err != nil {
		return nil, err
	}
	stage("neutralize")

	grid := panel.Expand(teamPanel, panel.WithCalendar(cal))
	stage("expand")

	spec := def.Rolling
	if spec.Name == "" {
		spec.Name = def.Name
	}
	rolled, err := b.calc.Compute(ctx, grid, spec)
	if err != nil {
		return nil, err
	}
	stage("rolling")

	lagged := panel.Lag(rolled)
	stage("lag")

	neutral := panel.NeutralizeNewcomers(lagged, spec.Window)
	stage("newcomers")

	method := def.Normalize
	if b.override {
		method = b.method
	}
	normalized := b.norm.Apply(ctx, neutral, method)
	stage("normalize")

	b.log.Info(ctx, "factor built",
		logger.String("factor", def.Name),
		logger.Int("window", spec.Window),
		logger.String("normalization", string(method)),
		logger.Int("rows", len(normalized)))
	return normalized, nil
}

// stageTimer returns a func that records the time since its last call
// under the given stage name.
func stageTimer() func(stage string) {
	last := time.Now()
	return func(stage string) {
		now := time.Now()
		metrics.RecordStageDuration(stage, float64(now.Sub(last).Microseconds())/1000)
		last = now
	}
}
