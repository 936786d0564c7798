// Package carrier defines the aggregated units a tumor is made of. A Carrier
// is one cell, a lineage of identical cells, or a deme of lineages sharing a
// lattice site; all three share one representation and differ by Kind.
package carrier

import (
	"fmt"
	"strings"

	"github.com/nvandessel/tumor-lattice/internal/growth"
	"github.com/nvandessel/tumor-lattice/internal/mutation"
)

// ID identifies a carrier within one trial. Zero means "no carrier".
type ID int64

// Kind selects how a carrier aggregates cells.
type Kind int

const (
	// Cell holds exactly one cell.
	Cell Kind = iota
	// Lineage holds any number of cells sharing one genotype.
	Lineage
	// Deme holds several lineages at one site.
	Deme
)

func (k Kind) String() string {
	switch k {
	case Cell:
		return "CELL"
	case Lineage:
		return "LINEAGE"
	case Deme:
		return "DEME"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a configuration value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CELL":
		return Cell, nil
	case "LINEAGE":
		return Lineage, nil
	case "DEME":
		return Deme, nil
	default:
		return 0, fmt.Errorf("unknown component type %q (valid: CELL, DEME, LINEAGE)", s)
	}
}

// Aggregate reports whether carriers of this kind can divide.
func (k Kind) Aggregate() bool { return k != Cell }

// Carrier is a unit of one or more genetically identical cells, or for a
// Deme, a collection of such units. The parent link is fixed at creation.
type Carrier struct {
	id     ID
	parent ID
	kind   Kind

	rate     growth.Rate
	cells    int64
	genotype mutation.NodeID

	// lineages is non-nil only for demes.
	lineages []*Carrier

	senescent bool
}

func (c *Carrier) ID() ID { return c.id }

// Parent is the carrier this one descends from; zero for founders.
func (c *Carrier) Parent() ID { return c.parent }

func (c *Carrier) Kind() Kind { return c.kind }

// Rate is the intrinsic growth rate fixed at creation.
func (c *Carrier) Rate() growth.Rate { return c.rate }

// Genotype is the genotype node of a cell or lineage. Demes return the
// founder genotype; use Lineages for their members.
func (c *Carrier) Genotype() mutation.NodeID { return c.genotype }

// CountCells is the number of cells the carrier holds.
func (c *Carrier) CountCells() int64 {
	if c.kind != Deme {
		return c.cells
	}
	var n int64
	for _, l := range c.lineages {
		n += l.cells
	}
	return n
}

// Lineages returns a deme's member lineages. The slice is a copy; the
// lineages themselves are shared.
func (c *Carrier) Lineages() []*Carrier {
	return append([]*Carrier(nil), c.lineages...)
}

// Samples lists (genotype, cells) pairs for mutation frequency queries.
func (c *Carrier) Samples() []mutation.Sample {
	if c.kind != Deme {
		return []mutation.Sample{{Genotype: c.genotype, Cells: c.cells}}
	}
	out := make([]mutation.Sample, 0, len(c.lineages))
	for _, l := range c.lineages {
		out = append(out, mutation.Sample{Genotype: l.genotype, Cells: l.cells})
	}
	return out
}

// IsSenescent reports whether the carrier has permanently stopped growing.
func (c *Carrier) IsSenescent() bool { return c.senescent }

// Senesce marks the carrier senescent. There is no reverse transition.
func (c *Carrier) Senesce() { c.senescent = true }

// IsEmpty reports whether the carrier holds no cells.
func (c *Carrier) IsEmpty() bool { return c.CountCells() == 0 }

// AddCells grows a cell or lineage by n cells.
func (c *Carrier) AddCells(n int64) {
	c.mustNotDeme("AddCells")
	if n < 0 {
		panic(fmt.Sprintf("carrier %d: AddCells(%d)", c.id, n))
	}
	if c.kind == Cell && c.cells+n > 1 {
		panic(fmt.Sprintf("carrier %d: a cell cannot hold %d cells", c.id, c.cells+n))
	}
	c.cells += n
}

// RemoveCells shrinks a cell or lineage by n cells. Removing more cells
// than the carrier holds is a defect.
func (c *Carrier) RemoveCells(n int64) {
	c.mustNotDeme("RemoveCells")
	if n < 0 || n > c.cells {
		panic(fmt.Sprintf("carrier %d: RemoveCells(%d) with %d cells", c.id, n, c.cells))
	}
	c.cells -= n
}

// AddLineage appends a member lineage to a deme.
func (c *Carrier) AddLineage(l *Carrier) {
	if c.kind != Deme || l.kind != Lineage {
		panic(fmt.Sprintf("carrier %d: AddLineage on %v with %v", c.id, c.kind, l.kind))
	}
	c.lineages = append(c.lineages, l)
}

// PruneLineages drops empty member lineages from a deme and returns how
// many were removed.
func (c *Carrier) PruneLineages() int {
	kept := c.lineages[:0]
	for _, l := range c.lineages {
		if l.cells > 0 {
			kept = append(kept, l)
		}
	}
	removed := len(c.lineages) - len(kept)
	for i := len(kept); i < len(c.lineages); i++ {
		c.lineages[i] = nil
	}
	c.lineages = kept
	return removed
}

func (c *Carrier) mustNotDeme(op string) {
	if c.kind == Deme {
		panic(fmt.Sprintf("carrier %d: %s is not defined for demes", c.id, op))
	}
}

func (c *Carrier) String() string {
	return fmt.Sprintf("%s#%d{cells=%d}", c.kind, c.id, c.CountCells())
}
