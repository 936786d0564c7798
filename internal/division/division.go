// Package division decides whether and where an aggregate carrier splits
// off a clone.
package division

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nvandessel/tumor-lattice/internal/carrier"
	"github.com/nvandessel/tumor-lattice/internal/lattice"
	"github.com/nvandessel/tumor-lattice/internal/rng"
)

// Retention is the probability that each cell stays with the parent.
const Retention = 0.5

var (
	// ErrThreshold is returned for a threshold outside [0, 1].
	ErrThreshold = errors.New("division threshold out of range [0, 1]")
	// ErrMinSize is returned for a minimum division size below 2.
	ErrMinSize = errors.New("minimum division size must be at least 2")
)

// Tumor is the occupancy view a division model reads.
type Tumor interface {
	Locate(c *carrier.Carrier) (lattice.Coord, bool)
	SiteCapacity(c lattice.Coord) int64
	// FindAvailable lists neighbors of center with at least need spare cells.
	FindAvailable(center lattice.Coord, need int64) []lattice.Coord
}

// Plan describes a division to apply: the site receiving the clone and the
// cells each lineage transfers (see carrier.Factory.Split).
type Plan struct {
	Target   lattice.Coord
	Transfer []int64
}

// CloneCells is the total number of cells the clone receives.
func (p Plan) CloneCells() int64 {
	var n int64
	for _, k := range p.Transfer {
		n += k
	}
	return n
}

// Model decides divisions. Divide never modifies the tumor or carrier; a
// false result means no division this step.
type Model interface {
	Divide(t Tumor, c *carrier.Carrier, s *rng.Stream) (Plan, bool)
}

// Type names a division policy.
type Type int

const (
	TypeNone Type = iota
	TypeThreshold
)

func (t Type) String() string {
	if t == TypeThreshold {
		return "THRESHOLD"
	}
	return "NONE"
}

// ParseType maps a configuration value to a division Type.
func ParseType(s string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE":
		return TypeNone, nil
	case "THRESHOLD":
		return TypeThreshold, nil
	default:
		return 0, fmt.Errorf("unknown division model %q (valid: NONE, THRESHOLD)", s)
	}
}

// New builds the Model for t.
func New(t Type, threshold float64, minSize int64) (Model, error) {
	switch t {
	case TypeNone:
		return None{}, nil
	case TypeThreshold:
		return NewThreshold(threshold, minSize)
	default:
		return nil, fmt.Errorf("unknown division model %v", t)
	}
}

// None never divides.
type None struct{}

func (None) Divide(Tumor, *carrier.Carrier, *rng.Stream) (Plan, bool) { return Plan{}, false }

// Threshold divides a carrier once its size reaches minSize and its share
// of its site's capacity reaches threshold, provided a neighbor can take
// the clone.
type Threshold struct {
	threshold float64
	minSize   int64
}

// NewThreshold validates the threshold and minimum size.
func NewThreshold(threshold float64, minSize int64) (Threshold, error) {
	if !(threshold >= 0 && threshold <= 1) {
		return Threshold{}, fmt.Errorf("%w: %v", ErrThreshold, threshold)
	}
	if minSize < 2 {
		return Threshold{}, fmt.Errorf("%w: %d", ErrMinSize, minSize)
	}
	return Threshold{threshold: threshold, minSize: minSize}, nil
}

func (m Threshold) Divide(t Tumor, c *carrier.Carrier, s *rng.Stream) (Plan, bool) {
	if !c.Kind().Aggregate() || c.IsSenescent() {
		return Plan{}, false
	}
	n := c.CountCells()
	if n < m.minSize {
		return Plan{}, false
	}
	site, ok := t.Locate(c)
	if !ok {
		return Plan{}, false
	}
	if float64(n)/float64(t.SiteCapacity(site)) < m.threshold {
		return Plan{}, false
	}
	if len(t.FindAvailable(site, 1)) == 0 {
		return Plan{}, false
	}

	plan := Plan{Transfer: drawTransfer(c, s)}
	k := plan.CloneCells()
	if k == 0 || k == n {
		return Plan{}, false
	}
	targets := t.FindAvailable(site, k)
	if len(targets) == 0 {
		return Plan{}, false
	}
	plan.Target = targets[s.IntN(len(targets))]
	return plan, true
}

func drawTransfer(c *carrier.Carrier, s *rng.Stream) []int64 {
	if c.Kind() == carrier.Lineage {
		return []int64{s.Binomial(c.CountCells(), 1-Retention)}
	}
	lineages := c.Lineages()
	out := make([]int64, len(lineages))
	for i, l := range lineages {
		out[i] = s.Binomial(l.CountCells(), 1-Retention)
	}
	return out
}
