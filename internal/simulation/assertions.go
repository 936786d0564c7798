package simulation

import (
	"math"
	"slices"
	"testing"

	"github.com/nvandessel/tumor-lattice/internal/tumor"
)

// AssertTerminatedBy asserts that every trial ended for one of reasons.
func AssertTerminatedBy(t *testing.T, result *Result, reasons ...tumor.TerminationReason) {
	t.Helper()
	for _, o := range result.Trials {
		if !slices.Contains(reasons, o.Reason) {
			t.Errorf("AssertTerminatedBy: trial %d ended with %q, want one of %v", o.Trial, o.Reason, reasons)
		}
	}
}

// AssertSenescenceMonotone asserts that the senescent component count
// never decreases within a trial. Senescent components neither grow nor
// die, so a drop means one was removed or revived.
func AssertSenescenceMonotone(t *testing.T, result *Result) {
	t.Helper()
	for _, o := range result.Trials {
		for i := 1; i < len(o.Trajectory); i++ {
			if o.Trajectory[i].Senescent < o.Trajectory[i-1].Senescent {
				t.Errorf("AssertSenescenceMonotone: trial %d step %d: senescent %d -> %d",
					o.Trial, o.Trajectory[i].Step, o.Trajectory[i-1].Senescent, o.Trajectory[i].Senescent)
			}
		}
	}
}

// AssertCellsBounded asserts that no snapshot holds more than max cells.
func AssertCellsBounded(t *testing.T, result *Result, max int64) {
	t.Helper()
	for _, o := range result.Trials {
		for _, s := range o.Trajectory {
			if s.Cells > max {
				t.Errorf("AssertCellsBounded: trial %d step %d: %d cells > %d", o.Trial, s.Step, s.Cells, max)
			}
		}
	}
}

// AssertMeanCellsNear asserts that the across-trial mean cell count at step
// is within relTol of want.
func AssertMeanCellsNear(t *testing.T, result *Result, step int, want, relTol float64) {
	t.Helper()
	got := result.MeanCellsAt(step)
	if math.Abs(got-want) > relTol*want {
		t.Errorf("AssertMeanCellsNear: step %d: mean %.4g, want %.4g ± %.0f%%", step, got, want, relTol*100)
	}
}

// AssertSameTrajectories asserts that two results have identical per-step
// cell and component counts for every trial.
func AssertSameTrajectories(t *testing.T, a, b *Result) {
	t.Helper()
	if len(a.Trials) != len(b.Trials) {
		t.Fatalf("AssertSameTrajectories: %d vs %d trials", len(a.Trials), len(b.Trials))
	}
	for i := range a.Trials {
		ta, tb := a.Trials[i].Trajectory, b.Trials[i].Trajectory
		if len(ta) != len(tb) {
			t.Errorf("AssertSameTrajectories: trial %d: %d vs %d steps", i, len(ta), len(tb))
			continue
		}
		for j := range ta {
			if ta[j] != tb[j] {
				t.Errorf("AssertSameTrajectories: trial %d step %d: %+v vs %+v", i, j, ta[j], tb[j])
				break
			}
		}
	}
}
