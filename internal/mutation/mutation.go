// Package mutation models heritable mutations: their arrival as a Poisson
// process over newborn cells, and the ancestry arena that lets every carrier
// compute its accumulated mutation set without copying its parent's.
package mutation

import (
	"fmt"
	"strings"
)

// ID identifies a mutation. IDs increase monotonically within a trial.
type ID int64

// Type tags the biological role of a mutation.
type Type int

const (
	Neutral Type = iota
	Selective
	Neoantigen
	Scalar
)

func (t Type) String() string {
	switch t {
	case Neutral:
		return "NEUTRAL"
	case Selective:
		return "SELECTIVE"
	case Neoantigen:
		return "NEOANTIGEN"
	case Scalar:
		return "SCALAR"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ParseType maps a name to a mutation Type.
func ParseType(s string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NEUTRAL":
		return Neutral, nil
	case "SELECTIVE":
		return Selective, nil
	case "NEOANTIGEN":
		return Neoantigen, nil
	case "SCALAR":
		return Scalar, nil
	default:
		return 0, fmt.Errorf("unknown mutation type %q", s)
	}
}

// Mutation is immutable once created by a Generator.
type Mutation struct {
	ID   ID
	Type Type
	// Coefficient is the selection coefficient s; the carrier's birth rate
	// is scaled by (1 + s). Zero for neutral and neoantigen mutations.
	Coefficient float64
}

// FitnessFactor is the birth-rate multiplier this mutation confers.
func (m Mutation) FitnessFactor() float64 { return 1 + m.Coefficient }

func (m Mutation) String() string {
	if m.Coefficient != 0 {
		return fmt.Sprintf("%s#%d(s=%.4g)", m.Type, m.ID, m.Coefficient)
	}
	return fmt.Sprintf("%s#%d", m.Type, m.ID)
}
