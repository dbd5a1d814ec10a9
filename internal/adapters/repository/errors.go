package repository

import "errors"

// Sentinel kinds for factor library errors.
var (
	ErrLibraryExists   = errors.New("factor library already exists")
	ErrBaselineMissing = errors.New("factor library baseline missing")
	ErrLocked          = errors.New("factor library locked")
	ErrUnknownBackend  = errors.New("unknown library backend")
	ErrUnknownNaming   = errors.New("unknown division naming")
	ErrCorruptStore    = errors.New("corrupt factor library")
)
