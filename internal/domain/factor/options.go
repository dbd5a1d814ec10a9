package factor

import (
	"github.com/okian/panelfactor/internal/domain/normalize"
	"github.com/okian/panelfactor/internal/domain/rolling"
	"github.com/okian/panelfactor/pkg/logger"
)

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used by the builder.
func WithLogger(l logger.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// WithNormalization overrides each definition's normalization method.
func WithNormalization(m normalize.Method) Option {
	return func(b *Builder) {
		b.method = m
		b.override = true
	}
}

// WithCalculator sets the rolling calculator.
func WithCalculator(c *rolling.Calculator) Option {
	return func(b *Builder) {
		if c != nil {
			b.calc = c
		}
	}
}

// WithNormalizer sets the cross-sectional normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(b *Builder) {
		if n != nil {
			b.norm = n
		}
	}
}
