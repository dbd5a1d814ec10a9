// Package ingest reads the canonical long-format event table:
// division, season, date, home_team, away_team, field, value.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/okian/panelfactor/internal/domain/model"
	"github.com/okian/panelfactor/pkg/metrics"
)

// Columns is the canonical header, in write order.
var Columns = []string{"division", "season", "date", "home_team", "away_team", "field", "value"} //nolint:gochecknoglobals // fixed layout

// dateLayouts are tried in order.
var dateLayouts = []string{time.DateOnly, "02/01/2006", "02/01/06", time.RFC3339} //nolint:gochecknoglobals // fixed layouts

// ReadFile reads events from a .csv or .xlsx file. For workbooks the first
// sheet is read.
func ReadFile(ctx context.Context, path string) ([]model.Event, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		events, err := ReadCSV(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return events, nil
	case ".xlsx":
		return ReadXLSX(ctx, path, "")
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
}

// ReadCSV parses events from r. Header names are matched
// case-insensitively and may come in any order; extra columns are ignored.
func ReadCSV(ctx context.Context, r io.Reader) ([]model.Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	p, err := newParser(header)
	if err != nil {
		return nil, err
	}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := p.add(ctx, line, row); err != nil {
			return nil, err
		}
	}
	metrics.RecordEventsIngested(len(p.events))
	return p.events, nil
}

// ReadXLSX parses events from a sheet of a workbook laid out like the CSV.
// An empty sheet name means the first sheet.
func ReadXLSX(ctx context.Context, path, sheet string) ([]model.Event, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	p, err := newParser(rows[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for i, row := range rows[1:] {
		if err := p.add(ctx, i+2, row); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	metrics.RecordEventsIngested(len(p.events))
	return p.events, nil
}

// WriteCSV writes events in the canonical layout.
func WriteCSV(w io.Writer, events []model.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, e := range events {
		if err := cw.Write([]string{
			e.Division, e.Season, e.Date.Format(time.DateOnly),
			e.HomeTeam, e.AwayTeam, e.Field, e.Value,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type parser struct {
	col    map[string]int
	events []model.Event
}

func newParser(header []string) (*parser, error) {
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range Columns {
		if _, ok := col[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	return &parser{col: col}, nil
}

func (p *parser) add(ctx context.Context, line int, row []string) error {
	if line%10000 == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	get := func(name string) string {
		i := p.col[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
		return nil
	}

	var date time.Time
	if raw := get("date"); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		date = d
	}
	p.events = append(p.events, model.Event{
		Division: get("division"),
		Season:   get("season"),
		Date:     date,
		HomeTeam: get("home_team"),
		AwayTeam: get("away_team"),
		Field:    get("field"),
		Value:    get("value"),
	})
	return nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
}
