package ingest

import "errors"

// Sentinel kinds for ingestion errors.
var (
	ErrMissingColumn = errors.New("missing column")
	ErrBadDate       = errors.New("unparseable date")
	ErrUnsupported   = errors.New("unsupported file type")
)
