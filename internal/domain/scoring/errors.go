package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	// ErrModelFit reports training data a model cannot be fitted on, such as
	// a single outcome class. Callers fall back to a constant model.
	ErrModelFit = errors.New("model fit failed")
)
