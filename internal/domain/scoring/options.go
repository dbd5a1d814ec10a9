package scoring

import "github.com/okian/panelfactor/pkg/logger"

// Option applies a configuration option to the Trainer.
type Option func(*Trainer)

// WithIterations sets the number of gradient descent passes.
func WithIterations(n int) Option {
	return func(t *Trainer) {
		if n > 0 {
			t.iterations = n
		}
	}
}

// WithLearningRate sets the gradient descent step.
func WithLearningRate(lr float64) Option {
	return func(t *Trainer) {
		if lr > 0 {
			t.learningRate = lr
		}
	}
}

// WithMinSamples sets the smallest training set a model is fitted on.
func WithMinSamples(n int) Option {
	return func(t *Trainer) {
		if n > 0 {
			t.minSamples = n
		}
	}
}

// WithLogger sets the logger used by the trainer.
func WithLogger(l logger.Logger) Option {
	return func(t *Trainer) {
		if l != nil {
			t.log = l
		}
	}
}
