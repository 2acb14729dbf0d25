// Package sqldb persists bars, instruments, fundamentals and run results in
// SQLite (default, single file) or PostgreSQL through sqlx.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config configures the store.
type Config struct {
	Driver       string        // "sqlite3" or "postgres"
	DSN          string        // file path for sqlite3, connection URL for postgres
	QueryTimeout time.Duration // per-statement timeout, 30s when zero
}

// Store implements the model storage ports on a SQL database.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration

	// ObserveWrite, when set, receives the latency of each committed write.
	ObserveWrite func(time.Duration)
}

// Open connects, applies the schema and returns a Store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dsn := cfg.DSN
	switch cfg.Driver {
	case DriverSQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("sqldb: unsupported driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldb open: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// Single writer; also keeps one shared :memory: database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqldb ping: %w", err)
	}

	s := &Store{db: db, timeout: cfg.QueryTimeout}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqldb schema: %w", err)
	}

	slog.Info("sql store opened", "driver", cfg.Driver)
	return s, nil
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db.DB }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS instruments (
		code              TEXT PRIMARY KEY,
		name              TEXT NOT NULL,
		special_treatment BOOLEAN NOT NULL DEFAULT FALSE,
		list_date         DATE,
		float_shares      DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS bars (
		code   TEXT NOT NULL,
		date   DATE NOT NULL,
		open   DOUBLE PRECISION NOT NULL,
		high   DOUBLE PRECISION NOT NULL,
		low    DOUBLE PRECISION NOT NULL,
		close  DOUBLE PRECISION NOT NULL,
		volume DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (code, date)
	)`,
	`CREATE TABLE IF NOT EXISTS fundamentals (
		instrument          TEXT NOT NULL,
		report_date         DATE NOT NULL,
		publish_date        DATE NOT NULL,
		total_shares        DOUBLE PRECISION,
		net_profit          DOUBLE PRECISION,
		book_value          DOUBLE PRECISION,
		revenue             DOUBLE PRECISION,
		operating_cash_flow DOUBLE PRECISION,
		dividend_per_share  DOUBLE PRECISION,
		equity              DOUBLE PRECISION,
		nopat               DOUBLE PRECISION,
		invested_capital    DOUBLE PRECISION,
		cogs                DOUBLE PRECISION,
		total_assets        DOUBLE PRECISION,
		actual_eps          DOUBLE PRECISION,
		expected_eps        DOUBLE PRECISION,
		std_eps             DOUBLE PRECISION,
		PRIMARY KEY (instrument, report_date)
	)`,
	`CREATE TABLE IF NOT EXISTS score_runs (
		run_id     TEXT PRIMARY KEY,
		strategy   TEXT NOT NULL,
		date       DATE NOT NULL,
		decisions  TEXT NOT NULL,
		failures   TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scores (
		run_id        TEXT NOT NULL,
		instrument    TEXT NOT NULL,
		rank          INTEGER NOT NULL,
		score         DOUBLE PRECISION NOT NULL,
		contributions TEXT NOT NULL,
		PRIMARY KEY (run_id, instrument)
	)`,
	`CREATE TABLE IF NOT EXISTS backtests (
		run_id       TEXT NOT NULL,
		instrument   TEXT NOT NULL,
		strategy     TEXT NOT NULL,
		horizon      INTEGER NOT NULL,
		total_return DOUBLE PRECISION,
		sharpe       DOUBLE PRECISION,
		max_drawdown DOUBLE PRECISION,
		win_rate     DOUBLE PRECISION,
		observations INTEGER NOT NULL,
		trades       INTEGER NOT NULL,
		created_at   TIMESTAMP NOT NULL,
		PRIMARY KEY (run_id, instrument, strategy)
	)`,
}

func (s *Store) createSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// nullable maps the NaN sentinel to SQL NULL.
func nullable(v float64) sql.NullFloat64 {
	if v != v {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// orUndefined maps SQL NULL back to NaN.
func orUndefined(v sql.NullFloat64) float64 {
	if !v.Valid {
		return nan()
	}
	return v.Float64
}

func day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
