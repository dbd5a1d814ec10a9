package backtest

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/pkg/metrics"
)

// Bucketed is a factor record with its quantile bucket, 1 being the lowest.
type Bucketed struct {
	model.Record
	Bucket int
}

// BucketOption configures Bucket.
type BucketOption func(*bucketConfig)

type bucketConfig struct {
	perDivision bool
}

// PerDivision ranks each division separately instead of pooling all
// divisions that share a date.
func PerDivision() BucketOption {
	return func(c *bucketConfig) { c.perDivision = true }
}

// Bucket splits each (date, field) cross-section into n buckets by
// ascending value. Ties keep input order. Missing values are dropped and
// dates with fewer than n values are skipped.
func Bucket(factors []model.Record, n int, opts ...BucketOption) ([]Bucketed, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBuckets, n)
	}
	var cfg bucketConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	type sliceKey struct {
		Day      int64
		Field    string
		Division string
	}
	slices := make(map[sliceKey][]int)
	var order []sliceKey
	for i, r := range factors {
		if math.IsNaN(r.Value) {
			continue
		}
		k := sliceKey{Day: model.DayNumber(r.Date), Field: r.Field}
		if cfg.perDivision {
			k.Division = r.Division
		}
		if _, ok := slices[k]; !ok {
			order = append(order, k)
		}
		slices[k] = append(slices[k], i)
	}

	var out []Bucketed
	for _, k := range order {
		idx := slices[k]
		if len(idx) < n {
			metrics.RecordInsufficientSlice("bucket")
			continue
		}
		sort.SliceStable(idx, func(a, b int) bool { return factors[idx[a]].Value < factors[idx[b]].Value })
		for pos, i := range idx {
			out = append(out, Bucketed{Record: factors[i], Bucket: pos*n/len(idx) + 1})
		}
	}
	return out, nil
}
