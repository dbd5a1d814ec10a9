package repository

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/okian/panelfactor/internal/domain/model"
)

var csvHeader = []string{"division", "season", "date", "team", "field", "value", "filled"} //nolint:gochecknoglobals // fixed layout

// CSVBackend keeps one CSV file per division plus a JSON version sidecar.
type CSVBackend struct {
	dir string
}

// NewCSVBackend creates a CSV backend in dir.
func NewCSVBackend(dir string) *CSVBackend {
	return &CSVBackend{dir: dir}
}

func (b *CSVBackend) dataPath(name string) string    { return filepath.Join(b.dir, name+".csv") }
func (b *CSVBackend) versionPath(name string) string { return filepath.Join(b.dir, name+".version.json") }

// Load reads a division file.
func (b *CSVBackend) Load(ctx context.Context, name string) ([]model.Record, bool, error) {
	f, err := os.Open(b.dataPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	recs, err := ReadRecords(ctx, f)
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", b.dataPath(name), err)
	}
	return recs, true, nil
}

// Save writes a division file and its version through temp files renamed
// into place.
func (b *CSVBackend) Save(_ context.Context, name string, recs []model.Record, v Version) error {
	if err := writeAtomic(b.dataPath(name), func(w io.Writer) error {
		return WriteRecords(w, recs)
	}); err != nil {
		return err
	}
	return writeAtomic(b.versionPath(name), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// Version reads the version sidecar.
func (b *CSVBackend) Version(_ context.Context, name string) (Version, bool, error) {
	raw, err := os.ReadFile(b.versionPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return Version{}, false, nil
	}
	if err != nil {
		return Version{}, false, err
	}
	var v Version
	if err := json.Unmarshal(raw, &v); err != nil {
		return Version{}, false, fmt.Errorf("%w: %s: %w", ErrCorruptStore, b.versionPath(name), err)
	}
	return v, true, nil
}

// Names lists the division files.
func (b *CSVBackend) Names(_ context.Context) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(b.dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSuffix(filepath.Base(m), ".csv"))
	}
	sort.Strings(out)
	return out, nil
}

// Close is a no-op.
func (b *CSVBackend) Close() error { return nil }

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// WriteRecords writes recs as CSV with a header. Missing values are empty.
func WriteRecords(w io.Writer, recs []model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	row := make([]string, len(csvHeader))
	for _, r := range recs {
		row[0] = r.Division
		row[1] = r.Season
		row[2] = r.Date.Format(time.DateOnly)
		row[3] = r.Team
		row[4] = r.Field
		row[5] = formatValue(r.Value)
		row[6] = "0"
		if r.Filled {
			row[6] = "1"
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRecords parses CSV written by WriteRecords.
func ReadRecords(ctx context.Context, r io.Reader) ([]model.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)
	cr.ReuseRecord = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: header: %w", ErrCorruptStore, err)
	}

	var out []model.Record
	for line := 2; ; line++ {
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrCorruptStore, line, err)
		}
		date, err := time.Parse(time.DateOnly, row[2])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: date %q", ErrCorruptStore, line, row[2])
		}
		value, err := parseValue(row[5])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: value %q", ErrCorruptStore, line, row[5])
		}
		out = append(out, model.Record{
			Division: row[0],
			Season:   row[1],
			Date:     date,
			Team:     row[3],
			Field:    row[4],
			Value:    value,
			Filled:   row[6] == "1",
		})
	}
	return out, nil
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseValue(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
