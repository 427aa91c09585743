package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/poolwatch/poolwatch/internal/occupancy"
)

// The timestamp primary key doubles as the range-scan index and as the
// duplicate guard: the database, not application code, arbitrates
// duplicate-timestamp inserts.
const schema = `
CREATE TABLE IF NOT EXISTS samples (
    timestamp  INTEGER PRIMARY KEY,
    occupancy  INTEGER NOT NULL CHECK (occupancy >= 0),
    capacity   INTEGER,
    raw_status TEXT
);
`

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
}

// SQLite is the durable SampleStore. WAL mode keeps the single writer
// from blocking concurrent readers, and a single-row INSERT is atomic,
// so an interrupted cycle can never leave a partial sample behind.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and if needed creates) the database at path, applies
// the production pragmas, and ensures the schema exists. Parent
// directories are created automatically.
func NewSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	return &SQLite{db: db}, nil
}

// NewMemorySQLite opens an in-memory database for tests. MaxOpenConns(1)
// ensures every query hits the same database (each connection to
// ":memory:" would otherwise get its own). Cleanup closes it.
func NewMemorySQLite(t testing.TB) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("store.NewMemorySQLite: %v", err)
	}
	s.db.SetMaxOpenConns(1)
	t.Cleanup(func() { s.Close() })
	return s
}

// Insert stores one sample. A sample whose timestamp (at second
// precision) is already present is rejected with ErrDuplicateSample and
// the stored row is left as-is.
func (s *SQLite) Insert(ctx context.Context, sample occupancy.Sample) error {
	var capacity sql.NullInt64
	if sample.Capacity != nil {
		capacity = sql.NullInt64{Int64: int64(*sample.Capacity), Valid: true}
	}
	var raw sql.NullString
	if sample.RawStatus != "" {
		raw = sql.NullString{String: sample.RawStatus, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO samples (timestamp, occupancy, capacity, raw_status) VALUES (?, ?, ?, ?)`,
		sample.Timestamp.UTC().Unix(), sample.Occupancy, capacity, raw,
	)
	if err != nil {
		return fmt.Errorf("store: insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: insert result: %w", err)
	}
	if n == 0 {
		return occupancy.ErrDuplicateSample
	}
	return nil
}

// Latest returns the most recently inserted sample, or ErrNoData.
func (s *SQLite) Latest(ctx context.Context) (occupancy.Sample, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT timestamp, occupancy, capacity, raw_status FROM samples ORDER BY timestamp DESC LIMIT 1`,
	)
	sample, err := scanSample(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return occupancy.Sample{}, occupancy.ErrNoData
	}
	if err != nil {
		return occupancy.Sample{}, fmt.Errorf("store: latest: %w", err)
	}
	return sample, nil
}

// Range returns all samples with timestamp >= since, oldest first. An
// empty result is a normal outcome, not an error.
func (s *SQLite) Range(ctx context.Context, since time.Time) ([]occupancy.Sample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, occupancy, capacity, raw_status FROM samples WHERE timestamp >= ? ORDER BY timestamp ASC`,
		since.UTC().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("store: range: %w", err)
	}
	defer rows.Close()

	var samples []occupancy.Sample
	for rows.Next() {
		sample, err := scanSample(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("store: range scan: %w", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: range rows: %w", err)
	}
	return samples, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func scanSample(scan func(...any) error) (occupancy.Sample, error) {
	var (
		ts       int64
		occ      int
		capacity sql.NullInt64
		raw      sql.NullString
	)
	if err := scan(&ts, &occ, &capacity, &raw); err != nil {
		return occupancy.Sample{}, err
	}

	sample := occupancy.Sample{
		Timestamp: time.Unix(ts, 0).UTC(),
		Occupancy: occ,
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		sample.Capacity = &c
	}
	if raw.Valid {
		sample.RawStatus = raw.String
	}
	return sample, nil
}
