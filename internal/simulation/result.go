package simulation

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/nvandessel/tumor-lattice/internal/store"
	"github.com/nvandessel/tumor-lattice/internal/tumor"
)

// Result collects every trial of a run, in trial order.
type Result struct {
	Seed    uint64
	Trials  []TrialOutcome
	Elapsed time.Duration
}

// Summary aggregates final trial states.
type Summary struct {
	Trials      int                             `json:"trials"`
	MeanCells   float64                         `json:"mean_cells"`
	StdDevCells float64                         `json:"stddev_cells"`
	MeanSteps   float64                         `json:"mean_steps"`
	Reasons     map[tumor.TerminationReason]int `json:"reasons"`
	Mutations   int                             `json:"mutations"`
}

// Summarize computes the mean and standard deviation of final sizes and
// tallies termination reasons.
func (r *Result) Summarize() Summary {
	s := Summary{Trials: len(r.Trials), Reasons: make(map[tumor.TerminationReason]int)}
	if len(r.Trials) == 0 {
		return s
	}
	cells := make([]float64, len(r.Trials))
	steps := make([]float64, len(r.Trials))
	for i, o := range r.Trials {
		cells[i] = float64(o.Final.Cells)
		steps[i] = float64(o.Final.Step)
		s.Reasons[o.Reason]++
		s.Mutations += len(o.Mutations)
	}
	if len(cells) > 1 {
		s.MeanCells, s.StdDevCells = stat.MeanStdDev(cells, nil)
	} else {
		s.MeanCells = cells[0]
	}
	s.MeanSteps = stat.Mean(steps, nil)
	return s
}

// MeanCellsAt averages total cells at step across trials. Trials that
// ended earlier contribute their final size.
func (r *Result) MeanCellsAt(step int) float64 {
	if len(r.Trials) == 0 {
		return 0
	}
	xs := make([]float64, len(r.Trials))
	for i, o := range r.Trials {
		xs[i] = float64(o.CellsAt(step))
	}
	return stat.Mean(xs, nil)
}

// CellsAt is the total cell count at step, or the final count if the trial
// ended before it.
func (o TrialOutcome) CellsAt(step int) int64 {
	if step < len(o.Trajectory) {
		return o.Trajectory[step].Cells
	}
	return o.Final.Cells
}

// StoreResult converts the outcome for persistence.
func (o TrialOutcome) StoreResult() store.TrialResult {
	return store.TrialResult{
		Trial:      o.Trial,
		Steps:      o.Final.Step,
		Cells:      o.Final.Cells,
		Components: o.Final.Components,
		Reason:     string(o.Reason),
	}
}

// Points converts the trajectory for persistence.
func (o TrialOutcome) Points() []store.Point {
	out := make([]store.Point, len(o.Trajectory))
	for i, s := range o.Trajectory {
		out[i] = store.Point{
			Step:       s.Step,
			Cells:      s.Cells,
			Components: s.Components,
			Senescent:  s.Senescent,
			Sites:      s.Sites,
		}
	}
	return out
}

// MutationRecords converts the final mutation frequencies for persistence.
func (o TrialOutcome) MutationRecords() []store.MutationRecord {
	out := make([]store.MutationRecord, len(o.Mutations))
	for i, f := range o.Mutations {
		out[i] = store.MutationRecord{
			ID:          int64(f.Mutation.ID),
			Type:        f.Mutation.Type.String(),
			Coefficient: f.Mutation.Coefficient,
			Frequency:   f.Fraction,
		}
	}
	return out
}
