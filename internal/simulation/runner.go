package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/tumor-lattice/internal/config"
	"github.com/nvandessel/tumor-lattice/internal/lattice"
	"github.com/nvandessel/tumor-lattice/internal/logging"
	"github.com/nvandessel/tumor-lattice/internal/metrics"
	"github.com/nvandessel/tumor-lattice/internal/moment"
	"github.com/nvandessel/tumor-lattice/internal/mutation"
	"github.com/nvandessel/tumor-lattice/internal/tumor"
)

// Runner runs every trial of a plan.
type Runner struct {
	plan        *Plan
	logger      *slog.Logger
	events      *logging.EventLogger
	metrics     *metrics.Collectors
	parallelism int
	checkEvery  bool
	onTrial     func(TrialOutcome)
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option { return func(r *Runner) { r.logger = l } }

// WithEvents records engine events to el.
func WithEvents(el *logging.EventLogger) Option { return func(r *Runner) { r.events = el } }

// WithMetrics feeds per-step statistics to c.
func WithMetrics(c *metrics.Collectors) Option { return func(r *Runner) { r.metrics = c } }

// WithParallelism caps concurrently running trials; n < 1 means GOMAXPROCS.
func WithParallelism(n int) Option { return func(r *Runner) { r.parallelism = n } }

// WithCapacityChecks re-verifies occupancy against capacity after every
// step and fails the trial on a mismatch.
func WithCapacityChecks() Option { return func(r *Runner) { r.checkEvery = true } }

// OnTrial is called as each trial finishes, possibly from several
// goroutines at once.
func OnTrial(fn func(TrialOutcome)) Option { return func(r *Runner) { r.onTrial = fn } }

// NewRunner validates c and prepares a runner.
func NewRunner(c *config.SimConfig, opts ...Option) (*Runner, error) {
	plan, err := NewPlan(c)
	if err != nil {
		return nil, err
	}
	r := &Runner{plan: plan, logger: logging.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	if r.parallelism < 1 {
		r.parallelism = runtime.GOMAXPROCS(0)
	}
	return r, nil
}

// Plan returns the validated plan.
func (r *Runner) Plan() *Plan { return r.plan }

// Run executes all trials. The first failing trial cancels the rest.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	n := r.plan.Config.Tumor.Trials
	outcomes := make([]TrialOutcome, n)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for trial := range n {
		g.Go(func() error {
			o, err := r.RunTrial(ctx, trial)
			if err != nil {
				return err
			}
			outcomes[trial] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		Seed:    r.plan.Config.Random.Seed,
		Trials:  outcomes,
		Elapsed: time.Since(start),
	}
	r.logger.Info("run complete",
		"trials", n,
		"elapsed", result.Elapsed.Round(time.Millisecond))
	return result, nil
}

// RunTrial runs one trial to termination.
func (r *Runner) RunTrial(ctx context.Context, trial int) (TrialOutcome, error) {
	start := time.Now()
	t, err := r.plan.NewTrial(trial, TrialOptions{
		Logger:   r.logger,
		Events:   r.events,
		Observer: r.metrics.Trial(trial),
	})
	if err != nil {
		return TrialOutcome{}, err
	}

	trajectory := []tumor.Snapshot{t.Snapshot()}
	for t.State() != tumor.Terminated {
		if err := ctx.Err(); err != nil {
			return TrialOutcome{}, err
		}
		if _, err := t.Step(); err != nil {
			return TrialOutcome{}, fmt.Errorf("trial %d: %w", trial, err)
		}
		if r.checkEvery {
			if err := t.CheckCapacity(); err != nil {
				return TrialOutcome{}, fmt.Errorf("trial %d step %d: %w", trial, t.StepCount(), err)
			}
		}
		trajectory = append(trajectory, t.Snapshot())
	}

	o, err := collect(t, trial, trajectory)
	if err != nil {
		return TrialOutcome{}, err
	}
	o.Elapsed = time.Since(start)
	r.metrics.TrialDone(o.Reason)
	r.logger.Debug("trial complete",
		"trial", trial,
		"reason", string(o.Reason),
		"steps", o.Final.Step,
		"cells", o.Final.Cells)
	if r.onTrial != nil {
		r.onTrial(o)
	}
	return o, nil
}

// collect takes the end-of-trial measurements.
func collect(t *tumor.Tumor, trial int, trajectory []tumor.Snapshot) (TrialOutcome, error) {
	vm, err := t.VectorMoment()
	if err != nil {
		return TrialOutcome{}, fmt.Errorf("trial %d: %w", trial, err)
	}
	freqs := t.MutationFrequencies(nil)

	o := TrialOutcome{
		Trial:          trial,
		Reason:         t.Reason(),
		Final:          t.Snapshot(),
		Trajectory:     trajectory,
		Moment:         vm,
		Mutations:      mutation.SortedFrequencies(freqs),
		MutationCounts: mutation.CountByType(freqs),
	}
	for _, site := range t.Coords() {
		rec := SiteRecord{Coord: site}
		genotypes := make(map[mutation.NodeID]struct{})
		for _, c := range t.Components(site) {
			rec.Components++
			rec.Cells += c.CountCells()
			if c.IsSenescent() {
				rec.Senescent++
			}
			for _, s := range c.Samples() {
				if s.Cells > 0 {
					genotypes[s.Genotype] = struct{}{}
				}
			}
		}
		rec.Genotypes = len(genotypes)
		o.Sites = append(o.Sites, rec)
	}
	return o, nil
}

// SiteRecord is the end-of-trial diversity of one occupied site.
type SiteRecord struct {
	Coord      lattice.Coord
	Components int
	Cells      int64
	Senescent  int
	// Genotypes is the number of distinct genotypes among resident cells.
	Genotypes int
}

// TrialOutcome is everything measured for one trial.
type TrialOutcome struct {
	Trial  int
	Reason tumor.TerminationReason
	Final  tumor.Snapshot
	// Trajectory starts with the founder snapshot at step 0.
	Trajectory     []tumor.Snapshot
	Moment         moment.Vector
	Mutations      []mutation.Frequency
	MutationCounts map[mutation.Type]int
	Sites          []SiteRecord
	Elapsed        time.Duration
}
