// Package repository persists factor records in a division-partitioned
// factor library.
package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/okian/panelfactor/internal/domain/model"
)

// Naming maps a division to its storage name.
type Naming string

const (
	// NamingSnake lower-cases and replaces runs of other characters with "_".
	NamingSnake Naming = "snake"
	// NamingLower lower-cases only.
	NamingLower Naming = "lower"
	// NamingRaw keeps the division as is.
	NamingRaw Naming = "raw"
)

var nonWord = regexp.MustCompile(`[^a-z0-9]+`) //nolint:gochecknoglobals // compiled once

// Apply returns the storage name of division.
func (n Naming) Apply(division string) (string, error) {
	switch n {
	case NamingSnake, "":
		return strings.Trim(nonWord.ReplaceAllString(strings.ToLower(division), "_"), "_"), nil
	case NamingLower:
		return strings.ToLower(division), nil
	case NamingRaw:
		return division, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownNaming, n)
	}
}

// Config locates a factor library.
type Config struct {
	// BasePath is the directory holding the library.
	BasePath string
	// Naming maps divisions to storage names.
	Naming Naming
	// Backend is "csv" (default) or "sqlite".
	Backend string
}

// Version stamps each write of a division store.
type Version struct {
	ID       string    `json:"id"`
	Division string    `json:"division"`
	Written  time.Time `json:"written"`
	Records  int       `json:"records"`
}

// Backend reads and writes whole division stores. Implementations need
// not be safe for concurrent writes to the same division; the Library
// serializes them.
type Backend interface {
	// Load returns the records of a division store and whether it exists.
	Load(ctx context.Context, name string) ([]model.Record, bool, error)
	// Save replaces a division store atomically.
	Save(ctx context.Context, name string, recs []model.Record, v Version) error
	// Version returns the last write stamp of a division store.
	Version(ctx context.Context, name string) (Version, bool, error)
	// Names lists the stored division names.
	Names(ctx context.Context) ([]string, error)
	Close() error
}
