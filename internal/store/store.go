// Package store persists simulation runs, per-trial outcomes, trajectories
// and final mutation spectra in a SQL database. SQLite (modernc) is the
// default; a postgres:// DSN selects Postgres through pgx.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one invocation of the simulator: a configuration and a seed
// shared by all of its trials.
type Run struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Seed      uint64    `json:"seed"`
	Trials    int       `json:"trials"`
	// Config is the YAML rendering of the configuration.
	Config string `json:"config"`
}

// TrialResult is the final state of one trial.
type TrialResult struct {
	Trial      int    `json:"trial"`
	Steps      int    `json:"steps"`
	Cells      int64  `json:"cells"`
	Components int    `json:"components"`
	Reason     string `json:"reason"`
}

// Point is one row of a trial trajectory.
type Point struct {
	Step       int   `json:"step"`
	Cells      int64 `json:"cells"`
	Components int   `json:"components"`
	Senescent  int   `json:"senescent"`
	Sites      int   `json:"sites"`
}

// MutationRecord is a mutation and its final frequency in a trial.
type MutationRecord struct {
	ID          int64   `json:"id"`
	Type        string  `json:"type"`
	Coefficient float64 `json:"coefficient"`
	Frequency   float64 `json:"frequency"`
}

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// Store is a SQL-backed run store. It is safe for concurrent use.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to dsn and initializes the schema. A DSN starting with
// postgres:// or postgresql:// uses Postgres; anything else is a SQLite
// file path whose parent directory is created if needed.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("store: empty DSN")
	}

	var (
		db  *sql.DB
		d   dialect
		err error
	)
	if isPostgres(dsn) {
		d = dialectPostgres
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	} else {
		d = dialectSQLite
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create store directory: %w", err)
			}
		}
		db, err = sql.Open("sqlite", dsn+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}
	s := &Store{db: db, dialect: d}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders as $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CreateRun records a new run with a fresh identifier.
func (s *Store) CreateRun(ctx context.Context, seed uint64, trials int, config string) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Seed:      seed,
		Trials:    trials,
		Config:    config,
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO runs (id, created_at, seed, trials, config) VALUES (?, ?, ?, ?, ?)`),
		run.ID, run.CreatedAt.Format(time.RFC3339Nano), strconv.FormatUint(seed, 10), trials, config)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// SaveTrial stores a trial's outcome, trajectory and mutations in one
// transaction.
func (s *Store) SaveTrial(ctx context.Context, runID string, result TrialResult, trajectory []Point, mutations []MutationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO trials (run_id, trial, steps, cells, components, reason) VALUES (?, ?, ?, ?, ?, ?)`),
		runID, result.Trial, result.Steps, result.Cells, result.Components, result.Reason); err != nil {
		return fmt.Errorf("insert trial %d: %w", result.Trial, err)
	}

	if len(trajectory) > 0 {
		stmt, err := tx.PrepareContext(ctx, s.rebind(
			`INSERT INTO trajectories (run_id, trial, step, cells, components, senescent, sites) VALUES (?, ?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return fmt.Errorf("prepare trajectory insert: %w", err)
		}
		defer stmt.Close()
		for _, p := range trajectory {
			if _, err := stmt.ExecContext(ctx, runID, result.Trial, p.Step, p.Cells, p.Components, p.Senescent, p.Sites); err != nil {
				return fmt.Errorf("insert trajectory step %d: %w", p.Step, err)
			}
		}
	}

	if len(mutations) > 0 {
		stmt, err := tx.PrepareContext(ctx, s.rebind(
			`INSERT INTO mutations (run_id, trial, mutation_id, type, coefficient, frequency) VALUES (?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return fmt.Errorf("prepare mutation insert: %w", err)
		}
		defer stmt.Close()
		for _, m := range mutations {
			if _, err := stmt.ExecContext(ctx, runID, result.Trial, m.ID, m.Type, m.Coefficient, m.Frequency); err != nil {
				return fmt.Errorf("insert mutation %d: %w", m.ID, err)
			}
		}
	}

	return tx.Commit()
}

// GetRun loads one run.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, created_at, seed, trials, config FROM runs WHERE id = ?`), id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns every run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, seed, trials, config FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run     Run
		created string
		seed    string
	)
	if err := row.Scan(&run.ID, &created, &seed, &run.Trials, &run.Config); err != nil {
		return Run{}, err
	}
	var err error
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Run{}, fmt.Errorf("run %s: bad created_at %q: %w", run.ID, created, err)
	}
	if run.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return Run{}, fmt.Errorf("run %s: bad seed %q: %w", run.ID, seed, err)
	}
	return run, nil
}

// Trials returns the trial outcomes of a run in trial order.
func (s *Store) Trials(ctx context.Context, runID string) ([]TrialResult, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT trial, steps, cells, components, reason FROM trials WHERE run_id = ? ORDER BY trial`), runID)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	var out []TrialResult
	for rows.Next() {
		var r TrialResult
		if err := rows.Scan(&r.Trial, &r.Steps, &r.Cells, &r.Components, &r.Reason); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Trajectory returns one trial's per-step points in step order.
func (s *Store) Trajectory(ctx context.Context, runID string, trial int) ([]Point, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT step, cells, components, senescent, sites FROM trajectories WHERE run_id = ? AND trial = ? ORDER BY step`),
		runID, trial)
	if err != nil {
		return nil, fmt.Errorf("query trajectory: %w", err)
	}
	defer rows.Close()

	var out []Point
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.Step, &p.Cells, &p.Components, &p.Senescent, &p.Sites); err != nil {
			return nil, fmt.Errorf("scan trajectory: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Mutations returns one trial's mutation records ordered by frequency,
// highest first.
func (s *Store) Mutations(ctx context.Context, runID string, trial int) ([]MutationRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT mutation_id, type, coefficient, frequency FROM mutations WHERE run_id = ? AND trial = ? ORDER BY frequency DESC, mutation_id`),
		runID, trial)
	if err != nil {
		return nil, fmt.Errorf("query mutations: %w", err)
	}
	defer rows.Close()

	var out []MutationRecord
	for rows.Next() {
		var m MutationRecord
		if err := rows.Scan(&m.ID, &m.Type, &m.Coefficient, &m.Frequency); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and everything recorded under it.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"mutations", "trajectories", "trials"} {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM `+table+` WHERE run_id = ?`), id); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM runs WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}
