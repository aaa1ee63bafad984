// SPDX-License-Identifier: MIT

// Package history persists probe reports to SQLite so operators can
// inspect past verdicts after the fact.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ManuGH/stepwatch/internal/probe"
	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)
)

// Store provides SQLite persistence for probe reports.
type Store struct {
	db *sql.DB
}

// NewStore initializes the SQLite store and runs migrations.
// WAL mode plus busy_timeout avoids "database locked" errors when the
// API reads while the scheduler writes.
func NewStore(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies database connectivity, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS probe_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_time TEXT NOT NULL,
		threshold_ms INTEGER NOT NULL,
		samples INTEGER NOT NULL,
		elapsed_ms TEXT NOT NULL,
		min_ms INTEGER NOT NULL,
		max_ms INTEGER NOT NULL,
		mean_ms REAL NOT NULL,
		debugged INTEGER NOT NULL CHECK(debugged IN (0, 1))
	);

	CREATE INDEX IF NOT EXISTS idx_probe_runs_time ON probe_runs(run_time);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Insert stores one probe report.
func (s *Store) Insert(ctx context.Context, rep probe.Report) error {
	elapsed, err := json.Marshal(rep.ElapsedMS)
	if err != nil {
		return fmt.Errorf("encode samples: %w", err)
	}

	query := `
	INSERT INTO probe_runs (run_time, threshold_ms, samples, elapsed_ms, min_ms, max_ms, mean_ms, debugged)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	debugged := 0
	if rep.Debugged {
		debugged = 1
	}
	_, err = s.db.ExecContext(ctx, query,
		rep.Time.UTC().Format(time.RFC3339Nano),
		rep.ThresholdMS, rep.Samples, string(elapsed),
		rep.MinMS, rep.MaxMS, rep.MeanMS, debugged,
	)
	if err != nil {
		return fmt.Errorf("insert probe run: %w", err)
	}
	return nil
}

// Recent returns up to limit reports, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]probe.Report, error) {
	if limit < 1 {
		limit = 1
	}
	query := `
	SELECT run_time, threshold_ms, samples, elapsed_ms, min_ms, max_ms, mean_ms, debugged
	FROM probe_runs
	ORDER BY id DESC
	LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var reports []probe.Report
	for rows.Next() {
		var (
			rep      probe.Report
			runTime  string
			elapsed  string
			debugged int
		)
		if err := rows.Scan(&runTime, &rep.ThresholdMS, &rep.Samples, &elapsed,
			&rep.MinMS, &rep.MaxMS, &rep.MeanMS, &debugged); err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339Nano, runTime)
		if err != nil {
			return nil, fmt.Errorf("parse run time %q: %w", runTime, err)
		}
		rep.Time = ts
		if err := json.Unmarshal([]byte(elapsed), &rep.ElapsedMS); err != nil {
			return nil, fmt.Errorf("decode samples: %w", err)
		}
		rep.Debugged = debugged == 1
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

// Prune deletes all but the newest keep rows.
func (s *Store) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	query := `
	DELETE FROM probe_runs
	WHERE id NOT IN (SELECT id FROM probe_runs ORDER BY id DESC LIMIT ?)
	`
	_, err := s.db.ExecContext(ctx, query, keep)
	return err
}
