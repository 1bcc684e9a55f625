package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	// Pure-Go SQLite driver registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/metrics"
)

// timestamps are stored as fixed-width UTC text so lexical order is
// chronological order.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

const defaultBusyTimeout = 5 * time.Second

// migrations are applied in order. Each entry is one schema version.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS kpi_submissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			role TEXT NOT NULL,
			person_name TEXT NOT NULL,
			email TEXT NOT NULL,
			week_of TEXT NOT NULL,
			metrics TEXT NOT NULL,
			submitted_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_person ON kpi_submissions(email, role, submitted_at)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_week ON kpi_submissions(week_of)`,
		`CREATE TABLE IF NOT EXISTS kpi_goals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			role TEXT NOT NULL,
			metric_name TEXT NOT NULL,
			goal_type TEXT NOT NULL DEFAULT 'minimum',
			goal_value REAL NOT NULL,
			goal_max REAL NOT NULL DEFAULT 0,
			frequency TEXT NOT NULL DEFAULT 'weekly',
			UNIQUE(role, metric_name)
		)`,
		`CREATE TABLE IF NOT EXISTS team_members (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL,
			slack_user_id TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1
		)`,
	},
	{
		`CREATE TABLE IF NOT EXISTS alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			person_name TEXT NOT NULL,
			email TEXT NOT NULL,
			role TEXT NOT NULL,
			metric_name TEXT NOT NULL,
			alert_type TEXT NOT NULL,
			consecutive_misses INTEGER NOT NULL,
			last_week_of TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			resolved INTEGER NOT NULL DEFAULT 0,
			resolved_at TEXT,
			resolution TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_open
			ON alerts(email, role, metric_name, alert_type) WHERE resolved = 0`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_person ON alerts(email, role)`,
	},
}

// SQLiteStore implements Store on a single SQLite connection.
type SQLiteStore struct {
	db          *sql.DB
	busyTimeout time.Duration
	now         func() time.Time
	closed      atomic.Bool
}

var _ Store = (*SQLiteStore)(nil)

// New wraps an already opened database. It does not run migrations.
func New(db *sql.DB, opts ...Option) *SQLiteStore {
	s := &SQLiteStore{db: db, busyTimeout: defaultBusyTimeout, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens (or creates) the database at path and migrates it.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	const op = "repository.open"
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, model.WrapKind(op, model.ErrStore, err)
	}
	// SQLite allows one writer. A single connection also keeps ":memory:"
	// databases alive for the lifetime of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := New(db, opts...)
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	if path != ":memory:" && !strings.Contains(path, "mode=memory") {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, model.WrapKind(op, model.ErrStore, fmt.Errorf("%s: %w", p, err))
		}
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies pending schema versions.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	const op = "repository.migrate"
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return s.fail(op, err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return s.fail(op, err)
	}

	for v := current; v < len(migrations); v++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return s.fail(op, err)
		}
		for _, stmt := range migrations[v] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return s.fail(op, fmt.Errorf("version %d: %w", v+1, err))
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			v+1, formatTS(s.now())); err != nil {
			_ = tx.Rollback()
			return s.fail(op, err)
		}
		if err := tx.Commit(); err != nil {
			return s.fail(op, err)
		}
	}
	return nil
}

// Ping checks the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.db.PingContext(ctx); err != nil {
		return s.fail("repository.ping", err)
	}
	return nil
}

// Close releases the database. Calling it more than once is safe.
func (s *SQLiteStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// fail wraps a driver error as a store error and counts it.
func (s *SQLiteStore) fail(op string, err error) error {
	metrics.RecordStoreError(op)
	if s.closed.Load() {
		return model.WrapKind(op, ErrClosed, err)
	}
	return model.WrapKind(op, model.ErrStore, err)
}

func observeQuery(start time.Time) {
	metrics.RecordStoreQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}

func observeUpdate(start time.Time) {
	metrics.RecordStoreUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
}

func formatTS(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }
