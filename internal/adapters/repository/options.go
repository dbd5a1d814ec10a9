package repository

import (
	"time"

	"github.com/okian/panelfactor/pkg/logger"
)

// Option applies a configuration option to the Library.
type Option func(*Library)

// WithLogger sets the logger used by the library.
func WithLogger(l logger.Logger) Option {
	return func(lib *Library) {
		if l != nil {
			lib.log = l
		}
	}
}

// WithLockRetryInterval sets how often a held lock file is re-tried.
func WithLockRetryInterval(interval time.Duration) Option {
	return func(lib *Library) {
		if interval > 0 {
			lib.lockRetry = interval
		}
	}
}

// WithBackend overrides the backend selected by Config.Backend.
func WithBackend(b Backend) Option {
	return func(lib *Library) {
		if b != nil {
			lib.backend = b
		}
	}
}

// CreateOption configures Create.
type CreateOption func(*createConfig)

type createConfig struct {
	overwrite bool
}

// WithOverwrite lets Create replace an existing store.
func WithOverwrite() CreateOption {
	return func(c *createConfig) { c.overwrite = true }
}
