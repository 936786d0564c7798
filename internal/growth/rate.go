// Package growth defines per-step birth/death probabilities, the policies
// that adjust them to local occupancy, and the event counts drawn from them.
package growth

import (
	"errors"
	"fmt"
)

// ErrProbability is returned for a rate outside [0, 1], including NaN.
var ErrProbability = errors.New("probability out of range [0, 1]")

// Rate is a per-cell, per-step (birth, death) probability pair.
type Rate struct {
	Birth float64
	Death float64
}

// NewRate validates both probabilities.
func NewRate(birth, death float64) (Rate, error) {
	if !IsProbability(birth) {
		return Rate{}, fmt.Errorf("birth rate %v: %w", birth, ErrProbability)
	}
	if !IsProbability(death) {
		return Rate{}, fmt.Errorf("death rate %v: %w", death, ErrProbability)
	}
	return Rate{Birth: birth, Death: death}, nil
}

// IsProbability reports whether p lies in [0, 1]. NaN does not.
func IsProbability(p float64) bool { return p >= 0 && p <= 1 }

// Net is the expected per-cell change in one step.
func (r Rate) Net() float64 { return r.Birth - r.Death }

// ScaleBirth returns a copy with the birth probability multiplied by f and
// clamped to [0, 1]. The receiver is unchanged.
func (r Rate) ScaleBirth(f float64) Rate {
	return Rate{Birth: clamp01(r.Birth * f), Death: r.Death}
}

func (r Rate) String() string {
	return fmt.Sprintf("Rate{birth=%.4g, death=%.4g}", r.Birth, r.Death)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
