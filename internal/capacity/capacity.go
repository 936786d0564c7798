// Package capacity maps lattice sites to their maximum cell occupancy.
package capacity

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/nvandessel/tumor-lattice/internal/lattice"
)

// ErrNonPositive is returned when a configured capacity is zero or negative.
var ErrNonPositive = errors.New("site capacity must be positive")

// Unbounded is the capacity reported by the Unlimited model.
const Unbounded = int64(math.MaxInt64 / 2)

// Model reports how many cells a site can hold.
type Model interface {
	SiteCapacity(c lattice.Coord) int64
}

// Type names a capacity policy.
type Type int

const (
	TypeUniform Type = iota
	TypeSingle
	TypeUnlimited
)

func (t Type) String() string {
	switch t {
	case TypeUniform:
		return "UNIFORM"
	case TypeSingle:
		return "SINGLE"
	case TypeUnlimited:
		return "UNLIMITED"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ParseType maps a configuration value to a capacity Type.
func ParseType(s string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UNIFORM":
		return TypeUniform, nil
	case "SINGLE":
		return TypeSingle, nil
	case "UNLIMITED":
		return TypeUnlimited, nil
	default:
		return 0, fmt.Errorf("unknown capacity type %q (valid: UNIFORM, SINGLE, UNLIMITED)", s)
	}
}

// New builds the model for t. value is only consulted for TypeUniform.
func New(t Type, value int64) (Model, error) {
	switch t {
	case TypeUniform:
		return NewUniform(value)
	case TypeSingle:
		return Single{}, nil
	case TypeUnlimited:
		return Unlimited{}, nil
	default:
		return nil, fmt.Errorf("unknown capacity type %v", t)
	}
}

// Uniform gives every site the same capacity.
type Uniform struct {
	capacity int64
}

// NewUniform returns a Uniform model, rejecting non-positive capacities.
func NewUniform(capacity int64) (Uniform, error) {
	if capacity <= 0 {
		return Uniform{}, fmt.Errorf("%w: %d", ErrNonPositive, capacity)
	}
	return Uniform{capacity: capacity}, nil
}

func (u Uniform) SiteCapacity(lattice.Coord) int64 { return u.capacity }

// Single allows one cell per site.
type Single struct{}

func (Single) SiteCapacity(lattice.Coord) int64 { return 1 }

// Unlimited places no constraint on occupancy.
type Unlimited struct{}

func (Unlimited) SiteCapacity(lattice.Coord) int64 { return Unbounded }

// NeighborhoodCapacity sums the capacity of center and its neighbors.
func NeighborhoodCapacity(m Model, s lattice.Space, center lattice.Coord, n lattice.Neighborhood) int64 {
	total := m.SiteCapacity(center)
	for _, c := range s.Neighbors(center, n) {
		total = saturatingAdd(total, m.SiteCapacity(c))
	}
	return total
}

func saturatingAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
