// Package migration decides whether a carrier relocates.
package migration

import (
	"fmt"
	"strings"

	"github.com/nvandessel/tumor-lattice/internal/carrier"
	"github.com/nvandessel/tumor-lattice/internal/lattice"
)

// Tumor is the occupancy view a migration model reads.
type Tumor interface {
	Locate(c *carrier.Carrier) (lattice.Coord, bool)
	FindAvailable(center lattice.Coord, need int64) []lattice.Coord
}

// Model decides migrations. A false result means the carrier stays put.
type Model interface {
	Migrate(t Tumor, c *carrier.Carrier) (lattice.Coord, bool)
}

// Type names a migration policy.
type Type int

const TypePinned Type = 0

func (t Type) String() string { return "PINNED" }

// ParseType maps a configuration value to a migration Type.
func ParseType(s string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PINNED":
		return TypePinned, nil
	default:
		return 0, fmt.Errorf("unknown migration model %q (valid: PINNED)", s)
	}
}

// New builds the Model for t.
func New(t Type) (Model, error) {
	if t != TypePinned {
		return nil, fmt.Errorf("unknown migration model %v", t)
	}
	return Pinned{}, nil
}

// Pinned never moves anything.
type Pinned struct{}

func (Pinned) Migrate(Tumor, *carrier.Carrier) (lattice.Coord, bool) { return lattice.Coord{}, false }
