package lattice

import (
	"fmt"
	"strings"
)

// Neighborhood selects which sites count as adjacent to a center site.
type Neighborhood int

const (
	// VonNeumann contains the 6 face-sharing sites.
	VonNeumann Neighborhood = iota
	// Moore contains the 26 sites sharing a face, edge or corner.
	Moore
)

var vonNeumannOffsets = []Coord{
	{X: -1}, {X: 1},
	{Y: -1}, {Y: 1},
	{Z: -1}, {Z: 1},
}

var mooreOffsets = func() []Coord {
	offsets := make([]Coord, 0, 26)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				offsets = append(offsets, Coord{X: dx, Y: dy, Z: dz})
			}
		}
	}
	return offsets
}()

// Offsets returns the unit translations that make up the neighborhood, in a
// fixed order. The returned slice must not be modified.
func (n Neighborhood) Offsets() []Coord {
	if n == Moore {
		return mooreOffsets
	}
	return vonNeumannOffsets
}

// Size is the number of neighbors, excluding the center.
func (n Neighborhood) Size() int {
	return len(n.Offsets())
}

func (n Neighborhood) String() string {
	switch n {
	case VonNeumann:
		return "VON_NEUMANN"
	case Moore:
		return "MOORE"
	default:
		return fmt.Sprintf("Neighborhood(%d)", int(n))
	}
}

// ParseNeighborhood maps a configuration value to a Neighborhood.
func ParseNeighborhood(s string) (Neighborhood, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "VON_NEUMANN", "VONNEUMANN":
		return VonNeumann, nil
	case "MOORE":
		return Moore, nil
	default:
		return 0, fmt.Errorf("unknown neighborhood %q (valid: VON_NEUMANN, MOORE)", s)
	}
}
