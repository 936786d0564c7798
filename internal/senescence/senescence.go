// Package senescence decides when a carrier permanently stops growing.
package senescence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nvandessel/tumor-lattice/internal/capacity"
	"github.com/nvandessel/tumor-lattice/internal/carrier"
	"github.com/nvandessel/tumor-lattice/internal/lattice"
)

// ErrThreshold is returned for a threshold outside [0, 1].
var ErrThreshold = errors.New("senescence threshold out of range [0, 1]")

// Tumor is the occupancy view a senescence model reads.
type Tumor interface {
	Locate(c *carrier.Carrier) (lattice.Coord, bool)
	Occupancy(c lattice.Coord) int64
	Capacity() capacity.Model
	Space() lattice.Space
}

// Model decides senescence. Senesce reports whether c should become
// senescent now; it does not change c.
type Model interface {
	Senesce(t Tumor, c *carrier.Carrier) bool
}

// Type names a senescence policy.
type Type int

const (
	TypeNone Type = iota
	TypeNeighborhoodOccupancyFraction
)

func (t Type) String() string {
	if t == TypeNeighborhoodOccupancyFraction {
		return "NEIGHBORHOOD_OCCUPANCY_FRACTION"
	}
	return "NONE"
}

// ParseType maps a configuration value to a senescence Type.
func ParseType(s string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE":
		return TypeNone, nil
	case "NEIGHBORHOOD_OCCUPANCY_FRACTION":
		return TypeNeighborhoodOccupancyFraction, nil
	default:
		return 0, fmt.Errorf("unknown senescence model %q (valid: NONE, NEIGHBORHOOD_OCCUPANCY_FRACTION)", s)
	}
}

// New builds the Model for t.
func New(t Type, n lattice.Neighborhood, threshold float64) (Model, error) {
	switch t {
	case TypeNone:
		return None{}, nil
	case TypeNeighborhoodOccupancyFraction:
		return NewNeighborhoodOccupancyFraction(n, threshold)
	default:
		return nil, fmt.Errorf("unknown senescence model %v", t)
	}
}

// None never senesces.
type None struct{}

func (None) Senesce(Tumor, *carrier.Carrier) bool { return false }

// NeighborhoodOccupancyFraction senesces a carrier once its own site's
// occupancy fraction and the combined fraction over the site and its
// neighborhood both reach the threshold.
type NeighborhoodOccupancyFraction struct {
	neighborhood lattice.Neighborhood
	threshold    float64
}

// NewNeighborhoodOccupancyFraction validates the threshold.
func NewNeighborhoodOccupancyFraction(n lattice.Neighborhood, threshold float64) (NeighborhoodOccupancyFraction, error) {
	if !(threshold >= 0 && threshold <= 1) {
		return NeighborhoodOccupancyFraction{}, fmt.Errorf("%w: %v", ErrThreshold, threshold)
	}
	return NeighborhoodOccupancyFraction{neighborhood: n, threshold: threshold}, nil
}

func (m NeighborhoodOccupancyFraction) Senesce(t Tumor, c *carrier.Carrier) bool {
	if c.IsSenescent() {
		return false
	}
	site, ok := t.Locate(c)
	if !ok {
		return false
	}
	if SiteFraction(t, site) < m.threshold {
		return false
	}
	return NeighborhoodFraction(t, site, m.neighborhood) >= m.threshold
}

// SiteFraction is occupancy over capacity at one site.
func SiteFraction(t Tumor, site lattice.Coord) float64 {
	return fraction(t.Occupancy(site), t.Capacity().SiteCapacity(site), site)
}

// NeighborhoodFraction is the occupancy of site plus its neighbors over
// their combined capacity.
func NeighborhoodFraction(t Tumor, site lattice.Coord, n lattice.Neighborhood) float64 {
	occupied := t.Occupancy(site)
	for _, nb := range t.Space().Neighbors(site, n) {
		occupied += t.Occupancy(nb)
	}
	return fraction(occupied, capacity.NeighborhoodCapacity(t.Capacity(), t.Space(), site, n), site)
}

func fraction(occupied, capacity int64, site lattice.Coord) float64 {
	f := float64(occupied) / float64(capacity)
	if f > 1 || occupied < 0 {
		panic(fmt.Sprintf("senescence: invariant violated: occupancy %d of capacity %d at %v", occupied, capacity, site))
	}
	return f
}

// Neighborhood is the neighborhood the combined fraction is taken over.
func (m NeighborhoodOccupancyFraction) Neighborhood() lattice.Neighborhood { return m.neighborhood }

// Threshold is the fraction at which carriers senesce.
func (m NeighborhoodOccupancyFraction) Threshold() float64 { return m.threshold }
