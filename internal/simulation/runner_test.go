package simulation

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nvandessel/tumor-lattice/internal/config"
	"github.com/nvandessel/tumor-lattice/internal/logging"
	"github.com/nvandessel/tumor-lattice/internal/metrics"
	"github.com/nvandessel/tumor-lattice/internal/mutation"
	"github.com/nvandessel/tumor-lattice/internal/tumor"
)

func demeConfig() *config.SimConfig {
	c := config.Default()
	c.Tumor.ComponentType = "DEME"
	c.Tumor.SpatialType = "LATTICE"
	c.Tumor.FounderSize = 20
	c.Tumor.MaxSteps = 25
	c.Tumor.Trials = 6
	c.Lattice.Period = 9
	c.Lattice.Neighborhood = "VON_NEUMANN"
	c.Capacity.Type = "UNIFORM"
	c.Capacity.Value = 50
	c.Growth.BirthRate = 0.4
	c.Growth.DeathRate = 0.1
	c.Division.Type = "THRESHOLD"
	c.Division.Threshold = 0.9
	c.Mutation.Generator = "GLOBAL"
	c.Mutation.NeutralRate = 0.02
	c.Mutation.SelectiveRate = 0.005
	c.Mutation.SelectionCoeff = 0.1
	c.Random.Seed = 12345
	return c
}

func TestNewRunner_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.SimConfig)
	}{
		{"birth rate over one", func(c *config.SimConfig) { c.Growth.BirthRate = 2 }},
		{"NaN birth rate", func(c *config.SimConfig) { c.Growth.BirthRate = math.NaN() }},
		{"NaN division threshold", func(c *config.SimConfig) { c.Division.Threshold = math.NaN() }},
		{"NaN neutral rate", func(c *config.SimConfig) { c.Mutation.NeutralRate = math.NaN() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := demeConfig()
			tt.mutate(c)
			if _, err := NewRunner(c); !config.IsValidationError(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRun_DemeLattice(t *testing.T) {
	r, err := NewRunner(demeConfig(), WithCapacityChecks(), WithParallelism(3))
	if err != nil {
		t.Fatal(err)
	}
	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Trials) != 6 {
		t.Fatalf("got %d trials", len(result.Trials))
	}
	for i, o := range result.Trials {
		if o.Trial != i {
			t.Errorf("trial %d stored at index %d", o.Trial, i)
		}
		if o.Trajectory[0].Step != 0 || o.Trajectory[0].Cells != 20 {
			t.Errorf("trial %d: initial snapshot %+v", i, o.Trajectory[0])
		}
		if o.Final != o.Trajectory[len(o.Trajectory)-1] {
			t.Errorf("trial %d: final snapshot differs from last trajectory point", i)
		}
		var cells int64
		for _, s := range o.Sites {
			cells += s.Cells
			if s.Cells > 50 {
				t.Errorf("trial %d: site %v holds %d cells", i, s.Coord, s.Cells)
			}
			if s.Genotypes < 1 {
				t.Errorf("trial %d: site %v has no genotypes", i, s.Coord)
			}
		}
		if cells != o.Final.Cells {
			t.Errorf("trial %d: sites hold %d cells, final %d", i, cells, o.Final.Cells)
		}
	}
	AssertTerminatedBy(t, result, tumor.ReasonMaxSteps, tumor.ReasonExtinct)
	AssertCellsBounded(t, result, 9*9*9*50)
	AssertSenescenceMonotone(t, result)

	sum := result.Summarize()
	if sum.Trials != 6 || sum.Reasons[tumor.ReasonMaxSteps]+sum.Reasons[tumor.ReasonExtinct] != 6 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRun_SameSeedRegardlessOfParallelism(t *testing.T) {
	run := func(parallel int) *Result {
		r, err := NewRunner(demeConfig(), WithParallelism(parallel))
		if err != nil {
			t.Fatal(err)
		}
		result, err := r.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return result
	}
	AssertSameTrajectories(t, run(1), run(4))
}

func TestRun_PointGrowthMean(t *testing.T) {
	if testing.Short() {
		t.Skip("many trials")
	}
	c := config.Default()
	c.Tumor.MaxSteps = 30
	c.Tumor.Trials = 2000
	c.Random.Seed = 7

	r, err := NewRunner(c)
	if err != nil {
		t.Fatal(err)
	}
	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// Offspring mean 1.1 and variance 0.99 give a standard deviation of
	// about 51 cells at step 30, so the standard error is near 1.1.
	AssertMeanCellsNear(t, result, 30, math.Pow(1.1, 30), 0.25)
}

func TestRun_Senescence(t *testing.T) {
	c := config.Default()
	c.Tumor.ComponentType = "CELL"
	c.Tumor.SpatialType = "LATTICE"
	c.Tumor.MaxSteps = 1000
	c.Tumor.Trials = 2
	c.Lattice.Period = 7
	c.Capacity.Type = "SINGLE"
	c.Growth.BirthRate = 0.6
	c.Growth.DeathRate = 0
	c.Senescence.Type = "NEIGHBORHOOD_OCCUPANCY_FRACTION"
	c.Senescence.Threshold = 0.95

	r, err := NewRunner(c, WithCapacityChecks())
	if err != nil {
		t.Fatal(err)
	}
	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	AssertTerminatedBy(t, result, tumor.ReasonQuiescent)
	AssertSenescenceMonotone(t, result)
	AssertCellsBounded(t, result, 343)
	for _, o := range result.Trials {
		if o.Final.Senescent != o.Final.Components {
			t.Errorf("trial %d: %d of %d components senescent at quiescence", o.Trial, o.Final.Senescent, o.Final.Components)
		}
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := NewRunner(demeConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run with canceled context: %v", err)
	}
}

func TestRun_MetricsEventsAndCallback(t *testing.T) {
	dir := t.TempDir()
	events, err := logging.NewEventLogger(dir, "debug")
	if err != nil {
		t.Fatal(err)
	}
	defer events.Close()
	m := metrics.New()

	var (
		mu   sync.Mutex
		seen []int
	)
	r, err := NewRunner(demeConfig(),
		WithEvents(events),
		WithMetrics(m),
		OnTrial(func(o TrialOutcome) {
			mu.Lock()
			seen = append(seen, o.Trial)
			mu.Unlock()
		}))
	if err != nil {
		t.Fatal(err)
	}
	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(seen) != 6 {
		t.Errorf("callback saw %d trials", len(seen))
	}
	if events.Written() == 0 {
		t.Error("no events logged")
	}
	if _, err := os.Stat(filepath.Join(dir, logging.EventsFile)); err != nil {
		t.Error(err)
	}
	var steps int
	for _, o := range result.Trials {
		steps += o.Final.Step
	}
	if n := testutil.CollectAndCount(m.Registry(), "tumorsim_steps_total"); n != 6 {
		t.Errorf("step series = %d, want one per trial", n)
	}
	if got := sumCounter(t, m, "tumorsim_steps_total"); got != float64(steps) {
		t.Errorf("steps counted = %v, want %d", got, steps)
	}
}

func sumCounter(t *testing.T, m *metrics.Collectors, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestTrialOutcome_Conversions(t *testing.T) {
	o := TrialOutcome{
		Trial:  2,
		Reason: tumor.ReasonMaxSize,
		Final:  tumor.Snapshot{Step: 3, Cells: 40, Components: 2},
		Trajectory: []tumor.Snapshot{
			{Step: 0, Cells: 1, Components: 1, Sites: 1},
			{Step: 3, Cells: 40, Components: 2, Sites: 2},
		},
		Mutations: []mutation.Frequency{
			{Mutation: mutation.Mutation{ID: 4, Type: mutation.Selective, Coefficient: 0.2}, Fraction: 0.5},
		},
	}
	res := o.StoreResult()
	if res.Trial != 2 || res.Steps != 3 || res.Cells != 40 || res.Reason != "max_size" {
		t.Errorf("StoreResult = %+v", res)
	}
	pts := o.Points()
	if len(pts) != 2 || pts[1].Cells != 40 || pts[1].Sites != 2 {
		t.Errorf("Points = %+v", pts)
	}
	recs := o.MutationRecords()
	if len(recs) != 1 || recs[0].Type != "SELECTIVE" || recs[0].Frequency != 0.5 {
		t.Errorf("MutationRecords = %+v", recs)
	}
	if o.CellsAt(0) != 1 || o.CellsAt(1) != 40 || o.CellsAt(99) != 40 {
		t.Errorf("CellsAt gave %d %d %d", o.CellsAt(0), o.CellsAt(1), o.CellsAt(99))
	}
}
