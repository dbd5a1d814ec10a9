package config

import "errors"

// Load and Validate failures wrap one of these.
var (
	// ErrInvalidConfig marks a value outside its allowed range or set.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrLoadConfig marks an unreadable YAML or .env file.
	ErrLoadConfig = errors.New("cannot load configuration")
)
