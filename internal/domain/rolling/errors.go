package rolling

import (
	"errors"
)

// Sentinel kinds for rolling errors.
var (
	ErrInvalidSpec = errors.New("invalid rolling spec")
)
