package mutation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/nvandessel/tumor-lattice/internal/rng"
)

var (
	// ErrNegativeRate is returned when a per-type mutation rate is negative.
	ErrNegativeRate = errors.New("mutation rate must be non-negative")
	// ErrNonFinite is returned for a NaN or infinite rate or coefficient.
	ErrNonFinite = errors.New("value must be finite")
)

// RateError names the Rates field that failed validation. Field uses the
// configuration spelling, e.g. "neutral_rate".
type RateError struct {
	Field string
	Value float64
	Err   error
}

func (e *RateError) Error() string {
	return fmt.Sprintf("%s %v: %v", e.Field, e.Value, e.Err)
}

func (e *RateError) Unwrap() error { return e.Err }

// Generator draws the new mutations arising among a step's newborn cells.
type Generator interface {
	// Generate returns one mutation per mutated newborn cell; at most births.
	Generate(s *rng.Stream, births int64) []Mutation
}

// GeneratorType names a mutation source.
type GeneratorType int

const (
	// GeneratorPerfect never mutates.
	GeneratorPerfect GeneratorType = iota
	// GeneratorGlobal draws Poisson arrivals from one configured rate set.
	GeneratorGlobal
)

func (t GeneratorType) String() string {
	if t == GeneratorGlobal {
		return "GLOBAL"
	}
	return "PERFECT"
}

// ParseGeneratorType maps a configuration value to a GeneratorType.
func ParseGeneratorType(s string) (GeneratorType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PERFECT", "NONE":
		return GeneratorPerfect, nil
	case "GLOBAL", "POISSON":
		return GeneratorGlobal, nil
	default:
		return 0, fmt.Errorf("unknown mutation generator %q (valid: PERFECT, GLOBAL)", s)
	}
}

// Rates are mean mutation arrivals per newborn cell, by type.
type Rates struct {
	Neutral    float64
	Selective  float64
	Neoantigen float64
	Scalar     float64

	// SelectionCoeff is the coefficient carried by every selective mutation.
	SelectionCoeff float64
	// ScalarMean and ScalarStdDev parameterize the Gaussian coefficient of
	// scalar mutations.
	ScalarMean   float64
	ScalarStdDev float64
}

// Total is the combined arrival rate.
func (r Rates) Total() float64 {
	return r.Neutral + r.Selective + r.Neoantigen + r.Scalar
}

// Validate rejects negative or non-finite rates, non-finite coefficients
// and a negative scalar standard deviation. The error is a *RateError.
func (r Rates) Validate() error {
	for _, v := range []struct {
		field  string
		value  float64
		nonNeg bool
	}{
		{"neutral_rate", r.Neutral, true},
		{"selective_rate", r.Selective, true},
		{"neoantigen_rate", r.Neoantigen, true},
		{"scalar_rate", r.Scalar, true},
		{"selection_coeff", r.SelectionCoeff, false},
		{"scalar_mean", r.ScalarMean, false},
		{"scalar_stddev", r.ScalarStdDev, true},
	} {
		switch {
		case math.IsNaN(v.value) || math.IsInf(v.value, 0):
			return &RateError{Field: v.field, Value: v.value, Err: ErrNonFinite}
		case v.nonNeg && v.value < 0:
			return &RateError{Field: v.field, Value: v.value, Err: ErrNegativeRate}
		}
	}
	return nil
}

// Perfect is the no-mutation generator.
type Perfect struct{}

func (Perfect) Generate(*rng.Stream, int64) []Mutation { return nil }

// Poisson draws k ~ Poisson(Total × births) mutated cells, capped at births,
// and assigns each a type in proportion to the per-type rates. It owns the
// trial's mutation ID sequence, so one Poisson serves exactly one trial.
type Poisson struct {
	rates Rates
	next  ID
}

// NewPoisson validates rates and returns a generator whose first ID is 1.
func NewPoisson(rates Rates) (*Poisson, error) {
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	return &Poisson{rates: rates, next: 1}, nil
}

// NewGenerator builds the generator for t.
func NewGenerator(t GeneratorType, rates Rates) (Generator, error) {
	switch t {
	case GeneratorPerfect:
		return Perfect{}, nil
	case GeneratorGlobal:
		return NewPoisson(rates)
	default:
		return nil, fmt.Errorf("unknown mutation generator %v", t)
	}
}

// Rates returns the configured rates.
func (p *Poisson) Rates() Rates { return p.rates }

func (p *Poisson) Generate(s *rng.Stream, births int64) []Mutation {
	total := p.rates.Total()
	if births <= 0 || total <= 0 {
		return nil
	}
	k := min(s.Poisson(total*float64(births)), births)
	if k == 0 {
		return nil
	}
	out := make([]Mutation, k)
	for i := range out {
		out[i] = p.draw(s, total)
	}
	return out
}

func (p *Poisson) draw(s *rng.Stream, total float64) Mutation {
	m := Mutation{ID: p.next}
	p.next++

	u := s.Float64() * total
	switch {
	case u < p.rates.Neutral:
		m.Type = Neutral
	case u < p.rates.Neutral+p.rates.Selective:
		m.Type = Selective
		m.Coefficient = p.rates.SelectionCoeff
	case u < p.rates.Neutral+p.rates.Selective+p.rates.Neoantigen:
		m.Type = Neoantigen
	default:
		m.Type = Scalar
		m.Coefficient = s.Normal(p.rates.ScalarMean, p.rates.ScalarStdDev)
	}
	return m
}
