// Package lattice provides discrete 3D coordinates, neighborhood enumeration
// and the spatial topologies (point and periodic lattice) a tumor lives on.
package lattice

import "fmt"

// Coord is an integer site address on a 3D lattice.
type Coord struct {
	X, Y, Z int
}

// Origin is the coordinate (0, 0, 0).
var Origin = Coord{}

// Add returns the component-wise sum c + d.
func (c Coord) Add(d Coord) Coord {
	return Coord{X: c.X + d.X, Y: c.Y + d.Y, Z: c.Z + d.Z}
}

// Less orders coordinates lexicographically by (X, Y, Z).
func (c Coord) Less(d Coord) bool {
	if c.X != d.X {
		return c.X < d.X
	}
	if c.Y != d.Y {
		return c.Y < d.Y
	}
	return c.Z < d.Z
}

// Compare returns -1, 0 or +1, consistent with Less.
func (c Coord) Compare(d Coord) int {
	switch {
	case c == d:
		return 0
	case c.Less(d):
		return -1
	default:
		return 1
	}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.X, c.Y, c.Z)
}
