package backtest

import "errors"

// Sentinel kinds for backtest errors.
var (
	ErrInvalidBuckets = errors.New("bucket count must be positive")
	ErrInvalidStake   = errors.New("stake must be positive")
	ErrUnknownSizing  = errors.New("unknown sizing")
	ErrUnknownGroupBy = errors.New("unknown group-by")
)
