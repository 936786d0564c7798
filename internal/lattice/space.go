package lattice

import (
	"errors"
	"fmt"
	"strings"
)

// MinPeriod is the smallest period for which all Moore neighbors of a site
// are distinct from each other and from the site itself.
const MinPeriod = 3

// ErrPeriodTooSmall is returned by NewPeriodic for periods below MinPeriod.
var ErrPeriodTooSmall = errors.New("lattice period too small")

// Space is the spatial topology carriers occupy.
type Space interface {
	// Wrap maps an arbitrary coordinate onto its canonical site.
	Wrap(c Coord) Coord
	// Neighbors lists the canonical neighbors of center in a stable order.
	Neighbors(center Coord, n Neighborhood) []Coord
	// Center is the canonical founding site.
	Center() Coord
	// Type reports whether the space is a point or a lattice.
	Type() Type
}

// Type names a spatial topology.
type Type int

const (
	// TypePoint has no spatial structure: a single site, no neighbors.
	TypePoint Type = iota
	// TypeLattice is a periodic cubic lattice.
	TypeLattice
)

func (t Type) String() string {
	if t == TypeLattice {
		return "LATTICE"
	}
	return "POINT"
}

// ParseType maps a configuration value to a spatial Type.
func ParseType(s string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "POINT":
		return TypePoint, nil
	case "LATTICE":
		return TypeLattice, nil
	default:
		return 0, fmt.Errorf("unknown spatial type %q (valid: POINT, LATTICE)", s)
	}
}

// Point is the degenerate space with one site.
type Point struct{}

// Wrap always returns Origin.
func (Point) Wrap(Coord) Coord { return Origin }

// Neighbors always returns an empty slice.
func (Point) Neighbors(Coord, Neighborhood) []Coord { return []Coord{} }

// Center returns Origin.
func (Point) Center() Coord { return Origin }

// Type returns TypePoint.
func (Point) Type() Type { return TypePoint }

// Periodic is a cubic lattice of side Period with periodic boundaries.
// Canonical coordinates lie in [0, Period) along each axis.
type Periodic struct {
	period int
}

// NewPeriodic creates a periodic lattice with the given side length.
func NewPeriodic(period int) (*Periodic, error) {
	if period < MinPeriod {
		return nil, fmt.Errorf("%w: %d < %d", ErrPeriodTooSmall, period, MinPeriod)
	}
	return &Periodic{period: period}, nil
}

// Period returns the lattice side length.
func (p *Periodic) Period() int { return p.period }

// Wrap reduces each component modulo the period.
func (p *Periodic) Wrap(c Coord) Coord {
	return Coord{X: p.mod(c.X), Y: p.mod(c.Y), Z: p.mod(c.Z)}
}

func (p *Periodic) mod(v int) int {
	m := v % p.period
	if m < 0 {
		m += p.period
	}
	return m
}

// Neighbors returns the wrapped neighbors of center in offset order.
func (p *Periodic) Neighbors(center Coord, n Neighborhood) []Coord {
	offsets := n.Offsets()
	out := make([]Coord, len(offsets))
	for i, off := range offsets {
		out[i] = p.Wrap(center.Add(off))
	}
	return out
}

// Center returns the site nearest the middle of the lattice.
func (p *Periodic) Center() Coord {
	h := p.period / 2
	return Coord{X: h, Y: h, Z: h}
}

// Type returns TypeLattice.
func (p *Periodic) Type() Type { return TypeLattice }

// Displacement returns the minimum-image displacement from a to b.
func (p *Periodic) Displacement(a, b Coord) Coord {
	return Coord{X: p.minImage(b.X - a.X), Y: p.minImage(b.Y - a.Y), Z: p.minImage(b.Z - a.Z)}
}

func (p *Periodic) minImage(d int) int {
	d = p.mod(d)
	if d > p.period/2 {
		d -= p.period
	}
	return d
}

// FindAvailable returns the neighbors of center whose spare capacity, as
// reported by spare, is at least need. Order follows Neighbors.
func FindAvailable(s Space, center Coord, n Neighborhood, spare func(Coord) int64, need int64) []Coord {
	var out []Coord
	for _, c := range s.Neighbors(center, n) {
		if spare(c) >= need {
			out = append(out, c)
		}
	}
	return out
}
