package service

import "errors"

// Sentinel error kinds for this package.
var (
	ErrUnknownMode = errors.New("unknown update mode")
	ErrNoLibrary   = errors.New("no factor library configured")
)
