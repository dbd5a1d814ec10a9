// Package dedupe tracks record keys to enforce the uniqueness invariant.
package dedupe

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/pkg/metrics"
)

// Deduper records seen keys so duplicates can be detected.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key model.Key) bool

	// Unrecord removes a key, e.g. when the record carrying it was replaced.
	Unrecord(ctx context.Context, key model.Key)

	Size() int64
}

// inMemoryDeduper implements Deduper with an unbounded map. Eviction would
// let duplicates slip through, so there is none.
type inMemoryDeduper struct {
	mu       sync.Mutex
	seen     map[model.Key]struct{}
	capacity int
	size     atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[model.Key]struct{}, d.capacity)
	return d
}

// SeenAndRecord atomically checks if key was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key model.Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}
	d.seen[key] = struct{}{}
	d.size.Add(1)
	return false
}

// Unrecord removes key from the seen set.
func (d *inMemoryDeduper) Unrecord(_ context.Context, key model.Key) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		delete(d.seen, key)
		d.size.Add(-1)
	}
}

// Size returns the current number of recorded keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// Check verifies that recs hold at most one value per key. The error wraps
// model.ErrDataIntegrity and names the first duplicated key.
func Check(ctx context.Context, recs []model.Record) error {
	d := NewInMemoryDeduper(WithCapacity(len(recs)))
	for _, r := range recs {
		k := model.KeyOf(r)
		if d.SeenAndRecord(ctx, k) {
			metrics.RecordDuplicateKey(r.Division)
			return fmt.Errorf("duplicate record %s: %w", k, model.ErrDataIntegrity)
		}
	}
	return nil
}
