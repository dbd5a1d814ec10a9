package normalize

import "github.com/okian/panelfactor/pkg/logger"

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger used by the normalizer.
func WithLogger(l logger.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.log = l
		}
	}
}
