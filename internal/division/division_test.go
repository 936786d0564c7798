package division

import (
	"errors"
	"math"
	"testing"

	"github.com/nvandessel/tumor-lattice/internal/carrier"
	"github.com/nvandessel/tumor-lattice/internal/growth"
	"github.com/nvandessel/tumor-lattice/internal/lattice"
	"github.com/nvandessel/tumor-lattice/internal/mutation"
	"github.com/nvandessel/tumor-lattice/internal/rng"
)

// fakeTumor places every carrier at home on a periodic lattice with
// uniform capacity and fixed neighbor occupancy.
type fakeTumor struct {
	space    *lattice.Periodic
	home     lattice.Coord
	capacity int64
	occupied map[lattice.Coord]int64
}

func newFakeTumor(t *testing.T, capacity int64) *fakeTumor {
	t.Helper()
	p, err := lattice.NewPeriodic(5)
	if err != nil {
		t.Fatal(err)
	}
	return &fakeTumor{space: p, home: p.Center(), capacity: capacity, occupied: map[lattice.Coord]int64{}}
}

func (f *fakeTumor) Locate(*carrier.Carrier) (lattice.Coord, bool) { return f.home, true }
func (f *fakeTumor) SiteCapacity(lattice.Coord) int64               { return f.capacity }

func (f *fakeTumor) FindAvailable(center lattice.Coord, need int64) []lattice.Coord {
	return lattice.FindAvailable(f.space, center, lattice.VonNeumann, func(c lattice.Coord) int64 {
		return f.capacity - f.occupied[c]
	}, need)
}

func founder(t *testing.T, kind carrier.Kind, size int64) (*carrier.Factory, *carrier.Carrier) {
	t.Helper()
	fac, err := carrier.NewFactory(kind, growth.Rate{Birth: 0.5}, size, mutation.NewArena())
	if err != nil {
		t.Fatal(err)
	}
	return fac, fac.Founder()
}

func TestNewThreshold_Validation(t *testing.T) {
	for _, th := range []float64{1.5, -0.1, math.NaN(), math.Inf(1)} {
		if _, err := NewThreshold(th, 2); !errors.Is(err, ErrThreshold) {
			t.Errorf("threshold %v: %v", th, err)
		}
	}
	if _, err := NewThreshold(0.5, 1); !errors.Is(err, ErrMinSize) {
		t.Errorf("min size 1: %v", err)
	}
}

func TestThreshold_BelowThresholdNoDivision(t *testing.T) {
	m, _ := NewThreshold(0.9, 2)
	tum := newFakeTumor(t, 100)
	_, d := founder(t, carrier.Deme, 89)
	if _, ok := m.Divide(tum, d, rng.New(1)); ok {
		t.Error("deme at 0.89 occupancy must not divide with threshold 0.9")
	}
}

func TestThreshold_DividesToNeighborAndConserves(t *testing.T) {
	m, _ := NewThreshold(0.9, 2)
	tum := newFakeTumor(t, 100)
	fac, d := founder(t, carrier.Deme, 100)
	s := rng.New(4)

	plan, ok := m.Divide(tum, d, s)
	if !ok {
		t.Fatal("expected division at full occupancy")
	}
	isNeighbor := false
	for _, n := range tum.space.Neighbors(tum.home, lattice.VonNeumann) {
		if n == plan.Target {
			isNeighbor = true
		}
	}
	if !isNeighbor {
		t.Errorf("target %v is not a neighbor of %v", plan.Target, tum.home)
	}

	before := d.CountCells()
	clone := fac.Split(d, plan.Transfer)
	if d.CountCells()+clone.CountCells() != before {
		t.Errorf("cells not conserved: %d + %d != %d", d.CountCells(), clone.CountCells(), before)
	}
	if clone.CountCells() != plan.CloneCells() {
		t.Errorf("clone has %d cells, plan said %d", clone.CountCells(), plan.CloneCells())
	}
}

func TestThreshold_NoSpareNeighbor(t *testing.T) {
	m, _ := NewThreshold(0.5, 2)
	tum := newFakeTumor(t, 100)
	for _, n := range tum.space.Neighbors(tum.home, lattice.VonNeumann) {
		tum.occupied[n] = 100
	}
	_, d := founder(t, carrier.Deme, 100)
	if _, ok := m.Divide(tum, d, rng.New(1)); ok {
		t.Error("no neighbor has spare capacity; division must not occur")
	}
}

func TestThreshold_TargetFitsClone(t *testing.T) {
	m, _ := NewThreshold(0.5, 2)
	tum := newFakeTumor(t, 100)
	// Every neighbor but one has only 5 spare cells.
	roomy := tum.space.Neighbors(tum.home, lattice.VonNeumann)[3]
	for _, n := range tum.space.Neighbors(tum.home, lattice.VonNeumann) {
		if n != roomy {
			tum.occupied[n] = 95
		}
	}
	_, d := founder(t, carrier.Lineage, 100)
	s := rng.New(12)
	for i := 0; i < 20; i++ {
		plan, ok := m.Divide(tum, d, s)
		if !ok {
			continue
		}
		if plan.CloneCells() > 5 && plan.Target != roomy {
			t.Fatalf("clone of %d placed at %v with 5 spare", plan.CloneCells(), plan.Target)
		}
	}
}

func TestThreshold_SkipsCellsAndSenescent(t *testing.T) {
	m, _ := NewThreshold(0, 2)
	tum := newFakeTumor(t, 1)
	_, c := founder(t, carrier.Cell, 1)
	if _, ok := m.Divide(tum, c, rng.New(1)); ok {
		t.Error("cells never divide")
	}
	_, d := founder(t, carrier.Deme, 50)
	d.Senesce()
	tum.capacity = 100
	if _, ok := m.Divide(tum, d, rng.New(1)); ok {
		t.Error("senescent carriers never divide")
	}
}

func TestNone(t *testing.T) {
	_, d := founder(t, carrier.Deme, 100)
	if _, ok := (None{}).Divide(newFakeTumor(t, 100), d, rng.New(1)); ok {
		t.Error("None divided")
	}
}
