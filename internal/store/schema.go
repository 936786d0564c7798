package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 is written in the subset of SQL both SQLite and Postgres accept.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL,
    applied_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    seed TEXT NOT NULL,  -- decimal uint64
    trials INTEGER NOT NULL,
    config TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trials (
    run_id TEXT NOT NULL REFERENCES runs(id),
    trial INTEGER NOT NULL,
    steps INTEGER NOT NULL,
    cells BIGINT NOT NULL,
    components INTEGER NOT NULL,
    reason TEXT NOT NULL,
    PRIMARY KEY (run_id, trial)
);

CREATE TABLE IF NOT EXISTS trajectories (
    run_id TEXT NOT NULL REFERENCES runs(id),
    trial INTEGER NOT NULL,
    step INTEGER NOT NULL,
    cells BIGINT NOT NULL,
    components INTEGER NOT NULL,
    senescent INTEGER NOT NULL,
    sites INTEGER NOT NULL,
    PRIMARY KEY (run_id, trial, step)
);

CREATE TABLE IF NOT EXISTS mutations (
    run_id TEXT NOT NULL REFERENCES runs(id),
    trial INTEGER NOT NULL,
    mutation_id BIGINT NOT NULL,
    type TEXT NOT NULL,
    coefficient DOUBLE PRECISION NOT NULL,
    frequency DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (run_id, trial, mutation_id)
);
CREATE INDEX IF NOT EXISTS idx_mutations_frequency ON mutations(run_id, trial, frequency);
`

// initSchema creates the tables on first use and records the version.
func (s *Store) initSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(schemaV1, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_version`).Scan(&count); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if count == 0 {
		if _, err := tx.ExecContext(ctx, s.rebind(
			`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`),
			SchemaVersion, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	}
	return tx.Commit()
}

// Version returns the recorded schema version.
func (s *Store) Version(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}
