package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // database/sql driver

	"github.com/okian/panelfactor/internal/domain/model"
)

// SQLiteBackend keeps every division in one SQLite database, partitioned
// by a division column.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (and migrates) library.db in dir.
func NewSQLiteBackend(dir string) (*SQLiteBackend, error) {
	dbPath := filepath.Join(dir, "library.db")

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Writes are serialized by the Library.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	b := &SQLiteBackend{db: db}
	if err := b.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return b, nil
}

func (b *SQLiteBackend) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS factors (
		store TEXT NOT NULL,
		division TEXT NOT NULL,
		season TEXT NOT NULL,
		date TEXT NOT NULL,
		team TEXT NOT NULL,
		field TEXT NOT NULL,
		value REAL,
		filled INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (store, division, season, date, team, field)
	);

	CREATE INDEX IF NOT EXISTS idx_factors_field ON factors(store, field);

	CREATE TABLE IF NOT EXISTS versions (
		store TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		division TEXT NOT NULL,
		written_at TEXT NOT NULL,
		records INTEGER NOT NULL
	);
	`
	_, err := b.db.Exec(schema)
	return err
}

// Load reads the rows of one store.
func (b *SQLiteBackend) Load(ctx context.Context, name string) ([]model.Record, bool, error) {
	if _, ok, err := b.Version(ctx, name); err != nil || !ok {
		return nil, false, err
	}

	rows, err := b.db.QueryContext(ctx, `
		SELECT division, season, date, team, field, value, filled
		FROM factors WHERE store = ?`, name)
	if err != nil {
		return nil, true, fmt.Errorf("query factors: %w", err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var (
			r      model.Record
			date   string
			value  sql.NullFloat64
			filled int
		)
		if err := rows.Scan(&r.Division, &r.Season, &date, &r.Team, &r.Field, &value, &filled); err != nil {
			return nil, true, fmt.Errorf("scan factor: %w", err)
		}
		if r.Date, err = time.Parse(time.DateOnly, date); err != nil {
			return nil, true, fmt.Errorf("%w: date %q", ErrCorruptStore, date)
		}
		r.Value = math.NaN()
		if value.Valid {
			r.Value = value.Float64
		}
		r.Filled = filled == 1
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, true, err
	}
	model.SortRecords(out)
	return out, true, nil
}

// Save replaces one store inside a transaction.
func (b *SQLiteBackend) Save(ctx context.Context, name string, recs []model.Record, v Version) (err error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM factors WHERE store = ?`, name); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO factors (store, division, season, date, team, field, value, filled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		value := sql.NullFloat64{Float64: r.Value, Valid: !math.IsNaN(r.Value)}
		filled := 0
		if r.Filled {
			filled = 1
		}
		if _, err = stmt.ExecContext(ctx, name, r.Division, r.Season, r.Date.Format(time.DateOnly),
			r.Team, r.Field, value, filled); err != nil {
			return fmt.Errorf("insert %s: %w", model.KeyOf(r), err)
		}
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO versions (store, id, division, written_at, records) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(store) DO UPDATE SET
			id = excluded.id, division = excluded.division,
			written_at = excluded.written_at, records = excluded.records`,
		name, v.ID, v.Division, v.Written.Format(time.RFC3339Nano), v.Records); err != nil {
		return fmt.Errorf("stamp version: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Version reads the last stamp of one store.
func (b *SQLiteBackend) Version(ctx context.Context, name string) (Version, bool, error) {
	var (
		v       Version
		written string
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT id, division, written_at, records FROM versions WHERE store = ?`, name,
	).Scan(&v.ID, &v.Division, &written, &v.Records)
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, false, nil
	}
	if err != nil {
		return Version{}, false, fmt.Errorf("query version: %w", err)
	}
	if v.Written, err = time.Parse(time.RFC3339Nano, written); err != nil {
		return Version{}, false, fmt.Errorf("%w: written_at %q", ErrCorruptStore, written)
	}
	return v, true, nil
}

// Names lists the stores.
func (b *SQLiteBackend) Names(ctx context.Context) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT store FROM versions ORDER BY store`)
	if err != nil {
		return nil, fmt.Errorf("query stores: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
