package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

type migration struct {
	version     int
	description string
	apply       func(tx *sql.Tx) error
}

// migrations is append-only; existing entries never change.
var migrations = []migration{
	{
		version:     1,
		description: "base schema",
		// Applied through schemaSQL on open; recorded here so the
		// version table reflects it.
		apply: func(tx *sql.Tx) error { return nil },
	},
	{
		version:     2,
		description: "analysis run history",
		apply: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS analysis_runs (
					run_id TEXT PRIMARY KEY,
					overall_score REAL NOT NULL,
					overall_level TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)
			`)
			return err
		},
	},
}

// Migrate applies all migrations newer than the recorded schema
// version.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		slog.Info("applying migration", "version", m.version, "description", m.description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_version (version, description) VALUES (?, ?)",
			m.version, m.description); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", m.version, err)
		}
	}
	return nil
}

// RunRecord is one row of the analysis run history.
type RunRecord struct {
	RunID        string  `json:"run_id"`
	OverallScore float64 `json:"overall_score"`
	OverallLevel string  `json:"overall_level"`
	CreatedAt    string  `json:"created_at"`
}

// RecordRun appends a completed analysis run to the history.
func (s *Store) RecordRun(ctx context.Context, runID string, overallScore float64, overallLevel string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO analysis_runs (run_id, overall_score, overall_level) VALUES (?, ?, ?)",
		runID, overallScore, overallLevel)
	return err
}

// RecentRuns returns the newest run records, most recent first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, overall_score, overall_level, created_at
		FROM analysis_runs ORDER BY created_at DESC, run_id LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RunID, &r.OverallScore, &r.OverallLevel, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
