// Package scoring turns factor values into outcome probabilities and
// compares them with market prices.
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/panelfactor/pkg/logger"
	"gonum.org/v1/gonum/floats"
)

// Default training configuration constants.
const (
	defaultIterations   = 500
	defaultLearningRate = 0.1
	defaultMinSamples   = 10
	sigmoidClamp        = 35.0
	fallbackProbability = 0.5
)

// Input is one feature vector, in factor name order.
type Input struct {
	Features []float64
}

// Result contains the predicted probability for an input. It is NaN when a
// feature is missing.
type Result struct {
	Probability float64
}

// Scorer computes an outcome probability from factor values.
type Scorer interface {
	// Score computes a probability, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (Result, error)
}

// Sample is one labelled training row. Label is 1 when the outcome happened.
type Sample struct {
	Features []float64
	Label    float64
}

// Trainer fits logistic regression models by batch gradient descent.
type Trainer struct {
	iterations   int
	learningRate float64
	minSamples   int
	log          logger.Logger
}

// NewTrainer creates a new trainer with configuration options.
func NewTrainer(opts ...Option) *Trainer {
	t := &Trainer{
		iterations:   defaultIterations,
		learningRate: defaultLearningRate,
		minSamples:   defaultMinSamples,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		t.log = logger.Get().Named("scoring")
	}
	return t
}

// Fit trains a model on samples. When the samples are too few or carry a
// single outcome class it returns a constant 0.5 model with ErrModelFit.
func (t *Trainer) Fit(ctx context.Context, samples []Sample) (Scorer, error) {
	if len(samples) < t.minSamples {
		return Constant(fallbackProbability), fmt.Errorf("%w: %d samples, need %d", ErrModelFit, len(samples), t.minSamples)
	}
	positives := 0
	for _, s := range samples {
		if s.Label > 0 {
			positives++
		}
	}
	if positives == 0 || positives == len(samples) {
		return Constant(fallbackProbability), fmt.Errorf("%w: single outcome class in %d samples", ErrModelFit, len(samples))
	}

	width := len(samples[0].Features) + 1
	w := make([]float64, width)
	grad := make([]float64, width)
	x := make([]float64, width)
	n := float64(len(samples))
	for iter := 0; iter < t.iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fit cancelled: %w", err)
		}
		for k := range grad {
			grad[k] = 0
		}
		for _, s := range samples {
			withBias(x, s.Features)
			e := sigmoid(floats.Dot(w, x)) - s.Label
			floats.AddScaled(grad, e, x)
		}
		floats.AddScaled(w, -t.learningRate/n, grad)
	}
	return &Logistic{Weights: w}, nil
}

// Logistic is a fitted logistic regression. Weights[0] is the intercept.
type Logistic struct {
	Weights []float64
}

// Score computes the probability for in.
func (l *Logistic) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}
	if len(in.Features)+1 != len(l.Weights) {
		return Result{}, fmt.Errorf("feature count %d, model expects %d", len(in.Features), len(l.Weights)-1)
	}
	for _, f := range in.Features {
		if math.IsNaN(f) {
			return Result{Probability: math.NaN()}, nil
		}
	}
	x := make([]float64, len(l.Weights))
	withBias(x, in.Features)
	return Result{Probability: sigmoid(floats.Dot(l.Weights, x))}, nil
}

// Constant returns a model that always predicts p.
func Constant(p float64) Scorer { return constant(p) }

type constant float64

func (c constant) Score(_ context.Context, in Input) (Result, error) {
	for _, f := range in.Features {
		if math.IsNaN(f) {
			return Result{Probability: math.NaN()}, nil
		}
	}
	return Result{Probability: float64(c)}, nil
}

func withBias(dst, features []float64) {
	dst[0] = 1
	copy(dst[1:], features)
}

func sigmoid(z float64) float64 {
	z = math.Max(-sigmoidClamp, math.Min(sigmoidClamp, z))
	return 1 / (1 + math.Exp(-z))
}
