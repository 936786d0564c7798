package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/nvandessel/tumor-lattice/internal/capacity"
	"github.com/nvandessel/tumor-lattice/internal/carrier"
	"github.com/nvandessel/tumor-lattice/internal/division"
	"github.com/nvandessel/tumor-lattice/internal/growth"
	"github.com/nvandessel/tumor-lattice/internal/lattice"
	"github.com/nvandessel/tumor-lattice/internal/migration"
	"github.com/nvandessel/tumor-lattice/internal/mutation"
	"github.com/nvandessel/tumor-lattice/internal/senescence"
)

// ValidationError names the offending property and value.
type ValidationError struct {
	Property string
	Value    any
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Property, e.Value, e.Reason)
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(property string, value any, err error) *ValidationError {
	return &ValidationError{Property: property, Value: value, Reason: err.Error()}
}

// Resolved holds the typed form of a validated SimConfig.
type Resolved struct {
	Kind         carrier.Kind
	Space        lattice.Type
	Neighborhood lattice.Neighborhood
	Capacity     capacity.Type
	Growth       growth.Type
	Rate         growth.Rate
	Division     division.Type
	Migration    migration.Type
	Senescence   senescence.Type
	// SenescenceNeighborhood may differ from the placement neighborhood.
	SenescenceNeighborhood lattice.Neighborhood
	Generator              mutation.GeneratorType
	Rates                  mutation.Rates
}

// Validate checks that the configuration is valid.
func (c *SimConfig) Validate() error {
	_, err := c.Resolve()
	return err
}

// Resolve parses every enumeration and checks every numeric range,
// returning the first violation as a *ValidationError.
func (c *SimConfig) Resolve() (*Resolved, error) {
	var (
		r   Resolved
		err error
	)
	if r.Kind, err = carrier.ParseKind(c.Tumor.ComponentType); err != nil {
		return nil, invalid("tumor.component_type", c.Tumor.ComponentType, err)
	}
	if r.Space, err = lattice.ParseType(c.Tumor.SpatialType); err != nil {
		return nil, invalid("tumor.spatial_type", c.Tumor.SpatialType, err)
	}
	if c.Tumor.FounderSize < 1 {
		return nil, &ValidationError{Property: "tumor.founder_size", Value: c.Tumor.FounderSize, Reason: "must be positive"}
	}
	if r.Kind == carrier.Cell && c.Tumor.FounderSize != 1 {
		return nil, &ValidationError{Property: "tumor.founder_size", Value: c.Tumor.FounderSize, Reason: "must be 1 for CELL components"}
	}
	if c.Tumor.MaxSteps < 1 {
		return nil, &ValidationError{Property: "tumor.max_steps", Value: c.Tumor.MaxSteps, Reason: "must be positive"}
	}
	if c.Tumor.MaxSize < 0 {
		return nil, &ValidationError{Property: "tumor.max_size", Value: c.Tumor.MaxSize, Reason: "must not be negative"}
	}
	if c.Tumor.Trials < 1 {
		return nil, &ValidationError{Property: "tumor.trials", Value: c.Tumor.Trials, Reason: "must be positive"}
	}
	if c.Tumor.ReleaseInterval < 0 {
		return nil, &ValidationError{Property: "tumor.release_interval", Value: c.Tumor.ReleaseInterval, Reason: "must not be negative"}
	}

	if r.Neighborhood, err = lattice.ParseNeighborhood(c.Lattice.Neighborhood); err != nil {
		return nil, invalid("lattice.neighborhood", c.Lattice.Neighborhood, err)
	}
	if r.Space == lattice.TypeLattice && c.Lattice.Period < lattice.MinPeriod {
		return nil, invalid("lattice.period", c.Lattice.Period, lattice.ErrPeriodTooSmall)
	}

	if r.Capacity, err = capacity.ParseType(c.Capacity.Type); err != nil {
		return nil, invalid("capacity.type", c.Capacity.Type, err)
	}
	if _, err := capacity.New(r.Capacity, c.Capacity.Value); err != nil {
		return nil, invalid("capacity.value", c.Capacity.Value, err)
	}
	if r.Space == lattice.TypePoint && r.Capacity != capacity.TypeUnlimited {
		return nil, &ValidationError{Property: "capacity.type", Value: c.Capacity.Type, Reason: "POINT space requires UNLIMITED capacity"}
	}
	if r.Capacity == capacity.TypeSingle && r.Kind != carrier.Cell {
		return nil, &ValidationError{Property: "capacity.type", Value: c.Capacity.Type, Reason: "SINGLE capacity requires CELL components"}
	}
	if r.Capacity == capacity.TypeUniform && c.Tumor.FounderSize > c.Capacity.Value {
		return nil, &ValidationError{Property: "tumor.founder_size", Value: c.Tumor.FounderSize, Reason: fmt.Sprintf("exceeds site capacity %d", c.Capacity.Value)}
	}

	if r.Growth, err = growth.ParseType(c.Growth.Model); err != nil {
		return nil, invalid("growth.model", c.Growth.Model, err)
	}
	if _, err := growth.NewRate(c.Growth.BirthRate, 0); err != nil {
		return nil, invalid("growth.birth_rate", c.Growth.BirthRate, err)
	}
	if _, err := growth.NewRate(0, c.Growth.DeathRate); err != nil {
		return nil, invalid("growth.death_rate", c.Growth.DeathRate, err)
	}
	r.Rate = growth.Rate{Birth: c.Growth.BirthRate, Death: c.Growth.DeathRate}

	if r.Division, err = division.ParseType(c.Division.Type); err != nil {
		return nil, invalid("division.type", c.Division.Type, err)
	}
	if r.Division == division.TypeThreshold {
		if _, err := division.NewThreshold(c.Division.Threshold, c.Division.MinSize); err != nil {
			if errors.Is(err, division.ErrMinSize) {
				return nil, invalid("division.min_size", c.Division.MinSize, err)
			}
			return nil, invalid("division.threshold", c.Division.Threshold, err)
		}
		if r.Kind == carrier.Cell {
			return nil, &ValidationError{Property: "division.type", Value: c.Division.Type, Reason: "CELL components cannot divide"}
		}
		if r.Space == lattice.TypePoint {
			return nil, &ValidationError{Property: "division.type", Value: c.Division.Type, Reason: "division needs LATTICE space"}
		}
	}

	if r.Migration, err = migration.ParseType(c.Migration.Type); err != nil {
		return nil, invalid("migration.type", c.Migration.Type, err)
	}

	if r.Senescence, err = senescence.ParseType(c.Senescence.Type); err != nil {
		return nil, invalid("senescence.type", c.Senescence.Type, err)
	}
	if r.SenescenceNeighborhood, err = lattice.ParseNeighborhood(c.Senescence.Neighborhood); err != nil {
		return nil, invalid("senescence.neighborhood", c.Senescence.Neighborhood, err)
	}
	if _, err := senescence.New(r.Senescence, r.SenescenceNeighborhood, c.Senescence.Threshold); err != nil {
		return nil, invalid("senescence.threshold", c.Senescence.Threshold, err)
	}

	if r.Generator, err = mutation.ParseGeneratorType(c.Mutation.Generator); err != nil {
		return nil, invalid("mutation.generator", c.Mutation.Generator, err)
	}
	r.Rates = mutation.Rates{
		Neutral:        c.Mutation.NeutralRate,
		Selective:      c.Mutation.SelectiveRate,
		Neoantigen:     c.Mutation.NeoantigenRate,
		Scalar:         c.Mutation.ScalarRate,
		SelectionCoeff: c.Mutation.SelectionCoeff,
		ScalarMean:     c.Mutation.ScalarMean,
		ScalarStdDev:   c.Mutation.ScalarStdDev,
	}
	if err := r.Rates.Validate(); err != nil {
		var re *mutation.RateError
		if errors.As(err, &re) {
			return nil, invalid("mutation."+re.Field, re.Value, re.Err)
		}
		return nil, invalid("mutation.generator", c.Mutation.Generator, err)
	}

	if !slices.Contains([]string{"", "info", "debug", "trace"}, c.Logging.Level) {
		return nil, &ValidationError{Property: "logging.level", Value: c.Logging.Level, Reason: "valid: info, debug, trace"}
	}
	if c.Output.Dir == "" {
		return nil, &ValidationError{Property: "output.dir", Value: `""`, Reason: "must not be empty"}
	}
	return &r, nil
}
