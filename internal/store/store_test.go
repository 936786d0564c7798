package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "runs", "tumorsim.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_InitializesSchema(t *testing.T) {
	s := openTestStore(t)
	v, err := s.Version(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v != SchemaVersion {
		t.Errorf("version = %d, want %d", v, SchemaVersion)
	}
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tumorsim.db")

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	run, err := s.CreateRun(ctx, 1, 1, "tumor: {}\n")
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.GetRun(ctx, run.ID); err != nil {
		t.Errorf("run lost after reopen: %v", err)
	}
	var rows int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_version`).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Errorf("schema_version rows = %d after reopen", rows)
	}
}

func TestOpen_EmptyDSN(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Error("expected error for empty DSN")
	}
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	run, err := s.CreateRun(ctx, math.MaxUint64, 2, "random:\n  seed: 18446744073709551615\n")
	if err != nil {
		t.Fatal(err)
	}
	if run.ID == "" {
		t.Fatal("run has no ID")
	}

	trajectory := []Point{
		{Step: 1, Cells: 2, Components: 1, Sites: 1},
		{Step: 2, Cells: 5, Components: 2, Senescent: 1, Sites: 2},
	}
	mutations := []MutationRecord{
		{ID: 1, Type: "NEUTRAL", Frequency: 0.2},
		{ID: 2, Type: "SELECTIVE", Coefficient: 0.1, Frequency: 0.6},
	}
	if err := s.SaveTrial(ctx, run.ID, TrialResult{Trial: 0, Steps: 2, Cells: 5, Components: 2, Reason: "max_steps"}, trajectory, mutations); err != nil {
		t.Fatalf("SaveTrial: %v", err)
	}
	if err := s.SaveTrial(ctx, run.ID, TrialResult{Trial: 1, Steps: 1, Reason: "extinct"}, nil, nil); err != nil {
		t.Fatalf("SaveTrial: %v", err)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Seed != math.MaxUint64 || got.Trials != 2 || got.Config != run.Config || !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("GetRun = %+v, want %+v", got, run)
	}

	trials, err := s.Trials(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(trials) != 2 || trials[0].Reason != "max_steps" || trials[1].Reason != "extinct" {
		t.Errorf("trials = %+v", trials)
	}

	points, err := s.Trajectory(ctx, run.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 || points[1] != trajectory[1] {
		t.Errorf("trajectory = %+v", points)
	}

	muts, err := s.Mutations(ctx, run.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(muts) != 2 || muts[0].ID != 2 {
		t.Errorf("mutations = %+v, want highest frequency first", muts)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("ListRuns = %d runs", len(runs))
	}

	if err := s.DeleteRun(ctx, run.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetRun(ctx, run.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun after delete: %v", err)
	}
	if points, _ := s.Trajectory(ctx, run.ID, 0); len(points) != 0 {
		t.Errorf("trajectory survived delete: %v", points)
	}
	if err := s.DeleteRun(ctx, run.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestSaveTrial_DuplicateRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	run, err := s.CreateRun(ctx, 1, 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveTrial(ctx, run.ID, TrialResult{Trial: 0, Reason: "extinct"}, nil, nil); err != nil {
		t.Fatal(err)
	}
	err = s.SaveTrial(ctx, run.ID, TrialResult{Trial: 0, Reason: "extinct"}, []Point{{Step: 1}}, nil)
	if err == nil {
		t.Fatal("expected primary key violation")
	}
	if points, _ := s.Trajectory(ctx, run.ID, 0); len(points) != 0 {
		t.Errorf("failed save left %d trajectory rows", len(points))
	}
}

func TestSaveTrial_UnknownRun(t *testing.T) {
	s := openTestStore(t)
	err := s.SaveTrial(context.Background(), "missing", TrialResult{Trial: 0, Reason: "extinct"}, nil, nil)
	if err == nil {
		t.Error("expected foreign key violation for unknown run")
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: dialectPostgres}
	if got := pg.rebind(`SELECT a FROM t WHERE x = ? AND y = ?`); got != `SELECT a FROM t WHERE x = $1 AND y = $2` {
		t.Errorf("postgres rebind = %q", got)
	}
	lite := &Store{dialect: dialectSQLite}
	if got := lite.rebind(`x = ?`); got != `x = ?` {
		t.Errorf("sqlite rebind = %q", got)
	}
}

func TestIsPostgres(t *testing.T) {
	tests := []struct {
		dsn  string
		want bool
	}{
		{"postgres://localhost/tumorsim", true},
		{"postgresql://u@h/db?sslmode=disable", true},
		{"out/tumorsim.db", false},
		{"postgres.db", false},
	}
	for _, tt := range tests {
		if got := isPostgres(tt.dsn); got != tt.want {
			t.Errorf("isPostgres(%q) = %v", tt.dsn, got)
		}
	}
}
