package factor

import "errors"

// Sentinel kinds for factor errors.
var (
	ErrUnknownFactor = errors.New("unknown factor")
	ErrInvalidWindow = errors.New("invalid rolling window")
)
