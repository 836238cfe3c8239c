// Package sqlite persists run history and raw climate payloads in a SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/florascope-service/internal/domain"

	_ "modernc.org/sqlite"
)

// timeFormat is fixed width so stored timestamps stay readable and sortable.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a SQLite-backed run history and payload archive.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New wraps an open database handle. Call Migrate before use.
func New(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Open opens the database at path, applies pending migrations and returns
// the store. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	s := New(db, logger)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts or replaces the summary of a run.
func (s *Store) RecordRun(ctx context.Context, r domain.RunRecord) error {
	var peak sql.NullInt64
	if r.PeakMonth > 0 {
		peak = sql.NullInt64{Int64: int64(r.PeakMonth), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, started_at_ns, duration_ms, observations, flagged, peak_month,
		                  climate_enabled, strategy, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			started_at_ns = excluded.started_at_ns,
			duration_ms = excluded.duration_ms,
			observations = excluded.observations,
			flagged = excluded.flagged,
			peak_month = excluded.peak_month,
			climate_enabled = excluded.climate_enabled,
			strategy = excluded.strategy,
			status = excluded.status,
			error = excluded.error
	`, r.ID, r.StartedAt.UTC().Format(timeFormat), r.StartedAt.UnixNano(), r.Duration.Milliseconds(), r.Observations, r.Flagged,
		peak, r.ClimateEnabled, r.Strategy, r.Status, r.Error)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, duration_ms, observations, flagged, peak_month,
		       climate_enabled, strategy, status, error
		FROM runs
		ORDER BY started_at_ns DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		var (
			r          domain.RunRecord
			startedAt  string
			durationMS int64
			peak       sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &startedAt, &durationMS, &r.Observations, &r.Flagged, &peak,
			&r.ClimateEnabled, &r.Strategy, &r.Status, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse started_at of run %s: %w", r.ID, err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if peak.Valid {
			r.PeakMonth = int(peak.Int64)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
