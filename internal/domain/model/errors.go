package model

import "errors"

// Sentinel error kinds shared by the panel engine.
var (
	// ErrDataIntegrity reports a duplicate key where uniqueness is invariant,
	// or a missing required key column. It aborts the run.
	ErrDataIntegrity = errors.New("data integrity violation")
)
