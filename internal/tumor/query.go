package tumor

import (
	"fmt"
	"slices"

	"github.com/nvandessel/tumor-lattice/internal/carrier"
	"github.com/nvandessel/tumor-lattice/internal/lattice"
	"github.com/nvandessel/tumor-lattice/internal/moment"
	"github.com/nvandessel/tumor-lattice/internal/mutation"
)

// Snapshot is a point-in-time summary of the trial.
type Snapshot struct {
	Step       int               `json:"step"`
	Cells      int64             `json:"cells"`
	Components int               `json:"components"`
	Senescent  int               `json:"senescent"`
	Sites      int               `json:"sites"`
	State      string            `json:"state"`
	Reason     TerminationReason `json:"reason,omitempty"`
}

// Snapshot summarizes the current state.
func (t *Tumor) Snapshot() Snapshot {
	return Snapshot{
		Step:       t.step,
		Cells:      t.cells,
		Components: t.components,
		Senescent:  t.components - t.CountActive(),
		Sites:      len(t.sites),
		State:      t.state.String(),
		Reason:     t.reason,
	}
}

// CountCells is the total number of cells in the tumor.
func (t *Tumor) CountCells() int64 { return t.cells }

// CountComponents is the number of top-level carriers.
func (t *Tumor) CountComponents() int { return t.components }

// CountActive is the number of non-senescent components.
func (t *Tumor) CountActive() int {
	n := 0
	for _, residents := range t.sites {
		for _, c := range residents {
			if !c.IsSenescent() {
				n++
			}
		}
	}
	return n
}

// Coords lists occupied sites in ascending order.
func (t *Tumor) Coords() []lattice.Coord {
	coords := make([]lattice.Coord, 0, len(t.sites))
	for site := range t.sites {
		coords = append(coords, site)
	}
	slices.SortFunc(coords, lattice.Coord.Compare)
	return coords
}

// Components returns the carriers resident at site.
func (t *Tumor) Components(site lattice.Coord) []*carrier.Carrier {
	return slices.Clone(t.sites[site])
}

// Carriers returns every component, ordered by site.
func (t *Tumor) Carriers() []*carrier.Carrier {
	out := make([]*carrier.Carrier, 0, t.components)
	for _, site := range t.Coords() {
		out = append(out, t.sites[site]...)
	}
	return out
}

// VectorMoment computes the shape of the occupied sites, one point per
// component. On a periodic lattice sites are unwrapped around the center.
func (t *Tumor) VectorMoment() (moment.Vector, error) {
	var coords []lattice.Coord
	for _, site := range t.Coords() {
		for range t.sites[site] {
			coords = append(coords, site)
		}
	}
	if p, ok := t.opts.Space.(*lattice.Periodic); ok {
		coords = moment.Unwrap(p, p.Center(), coords)
	}
	return moment.Compute(coords)
}

// MutationFrequencies returns, for every mutation carried by cs, the
// fraction of their cells that carry it. A nil cs means the whole tumor.
func (t *Tumor) MutationFrequencies(cs []*carrier.Carrier) map[mutation.Mutation]float64 {
	if cs == nil {
		cs = t.Carriers()
	}
	var samples []mutation.Sample
	for _, c := range cs {
		samples = append(samples, c.Samples()...)
	}
	return t.Arena().Frequencies(samples)
}

// ReleaseGenotypes frees genotype nodes no live carrier descends from and
// returns how many were freed.
func (t *Tumor) ReleaseGenotypes() int {
	var live []mutation.NodeID
	for _, residents := range t.sites {
		for _, c := range residents {
			for _, s := range c.Samples() {
				live = append(live, s.Genotype)
			}
		}
	}
	freed := t.Arena().Release(live)
	if freed > 0 {
		t.logger.Debug("released genotypes", "step", t.step, "freed", freed, "arena", t.Arena().Len())
	}
	return freed
}

// CheckCapacity recomputes occupancy from the resident carriers and
// verifies it against the cached map, site capacities and the total.
func (t *Tumor) CheckCapacity() error {
	var total int64
	components := 0
	for site, residents := range t.sites {
		var occ int64
		for _, c := range residents {
			n := c.CountCells()
			if n <= 0 {
				return fmt.Errorf("carrier %d at %v holds %d cells", c.ID(), site, n)
			}
			if at, ok := t.location[c.ID()]; !ok || at != site {
				return fmt.Errorf("carrier %d at %v is located at %v", c.ID(), site, at)
			}
			occ += n
			components++
		}
		if occ != t.occupancy[site] {
			return fmt.Errorf("site %v holds %d cells but occupancy is %d", site, occ, t.occupancy[site])
		}
		if capacity := t.SiteCapacity(site); occ > capacity {
			return fmt.Errorf("site %v holds %d cells over capacity %d", site, occ, capacity)
		}
		total += occ
	}
	if len(t.occupancy) != len(t.sites) {
		return fmt.Errorf("%d sites have occupancy but %d have residents", len(t.occupancy), len(t.sites))
	}
	if total != t.cells {
		return fmt.Errorf("sites hold %d cells but total is %d", total, t.cells)
	}
	if components != t.components || components != len(t.location) {
		return fmt.Errorf("found %d components, expected %d", components, t.components)
	}
	return nil
}
