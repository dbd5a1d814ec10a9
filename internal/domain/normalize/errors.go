package normalize

import "errors"

// Sentinel kinds for normalization errors.
var (
	ErrUnknownMethod = errors.New("unknown normalization method")
)
