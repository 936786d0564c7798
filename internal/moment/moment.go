// Package moment computes shape statistics of a set of lattice coordinates
// from the eigenvalues of their gyration tensor.
package moment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/nvandessel/tumor-lattice/internal/lattice"
)

// Vector summarizes the spatial distribution of a coordinate set.
type Vector struct {
	// Count is the number of coordinates.
	Count int
	// Center is the center of mass.
	CenterX, CenterY, CenterZ float64
	// Principal holds the gyration tensor eigenvalues, ascending.
	Principal [3]float64
	// RadiusGyration is the square root of the tensor trace.
	RadiusGyration float64
	Asphericity    float64
	Acylindricity  float64
	// Anisotropy is the relative shape anisotropy in [0, 1].
	Anisotropy float64
}

// Compute returns the vector moment of coords. An empty set yields the zero
// Vector. Coordinates are used as given; callers on a periodic lattice
// should unwrap them first.
func Compute(coords []lattice.Coord) (Vector, error) {
	n := len(coords)
	if n == 0 {
		return Vector{}, nil
	}

	var cx, cy, cz float64
	for _, c := range coords {
		cx += float64(c.X)
		cy += float64(c.Y)
		cz += float64(c.Z)
	}
	cx, cy, cz = cx/float64(n), cy/float64(n), cz/float64(n)

	var sxx, syy, szz, sxy, sxz, syz float64
	for _, c := range coords {
		dx, dy, dz := float64(c.X)-cx, float64(c.Y)-cy, float64(c.Z)-cz
		sxx += dx * dx
		syy += dy * dy
		szz += dz * dz
		sxy += dx * dy
		sxz += dx * dz
		syz += dy * dz
	}
	inv := 1 / float64(n)
	tensor := mat.NewSymDense(3, []float64{
		sxx * inv, sxy * inv, sxz * inv,
		sxy * inv, syy * inv, syz * inv,
		sxz * inv, syz * inv, szz * inv,
	})

	var eig mat.EigenSym
	if ok := eig.Factorize(tensor, false); !ok {
		return Vector{}, fmt.Errorf("gyration tensor eigendecomposition failed for %d coordinates", n)
	}
	vals := eig.Values(nil)

	v := Vector{Count: n, CenterX: cx, CenterY: cy, CenterZ: cz}
	for i := range v.Principal {
		// Round-off can push a zero eigenvalue slightly negative.
		v.Principal[i] = math.Max(vals[i], 0)
	}
	l1, l2, l3 := v.Principal[0], v.Principal[1], v.Principal[2]
	rg2 := l1 + l2 + l3
	v.RadiusGyration = math.Sqrt(rg2)
	v.Asphericity = l3 - 0.5*(l1+l2)
	v.Acylindricity = l2 - l1
	if rg2 > 0 {
		v.Anisotropy = (v.Asphericity*v.Asphericity + 0.75*v.Acylindricity*v.Acylindricity) / (rg2 * rg2)
	}
	return v, nil
}

// Unwrap maps periodic coordinates into a contiguous frame anchored at ref
// using minimum-image displacements.
func Unwrap(p *lattice.Periodic, ref lattice.Coord, coords []lattice.Coord) []lattice.Coord {
	out := make([]lattice.Coord, len(coords))
	for i, c := range coords {
		out[i] = ref.Add(p.Displacement(ref, c))
	}
	return out
}
