// Package rng provides the explicit random-generator state threaded through
// a simulation trial. Every draw a trial makes comes from one Stream, so two
// trials built from the same seed produce identical trajectories.
package rng

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// trialSalt decorrelates the PCG stream selector from small trial indices.
const trialSalt = 0x9e3779b97f4a7c15

// Stream is a deterministic pseudo-random generator. It is not safe for
// concurrent use; parallel trials each own their own Stream.
type Stream struct {
	r *rand.Rand
}

// New returns a Stream seeded with seed.
func New(seed uint64) *Stream {
	return ForTrial(seed, 0)
}

// ForTrial derives the independent stream for a trial from a master seed.
func ForTrial(master uint64, trial int) *Stream {
	return &Stream{r: rand.New(rand.NewPCG(master, uint64(trial)^trialSalt))}
}

// Source exposes the stream as a math/rand/v2 source for gonum distributions.
func (s *Stream) Source() rand.Source { return s.r }

// Float64 returns a uniform value in [0, 1).
func (s *Stream) Float64() float64 { return s.r.Float64() }

// IntN returns a uniform value in [0, n). It panics if n <= 0.
func (s *Stream) IntN(n int) int { return s.r.IntN(n) }

// Bernoulli reports success with probability p.
func (s *Stream) Bernoulli(p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	}
	return s.r.Float64() < p
}

// Binomial draws the number of successes in n trials of probability p.
// It panics if p is NaN.
func (s *Stream) Binomial(n int64, p float64) int64 {
	if math.IsNaN(p) {
		panic("rng: binomial probability is NaN")
	}
	switch {
	case n <= 0 || p <= 0:
		return 0
	case p >= 1:
		return n
	case n == 1:
		if s.Bernoulli(p) {
			return 1
		}
		return 0
	}
	d := distuv.Binomial{N: float64(n), P: p, Src: s.r}
	k := int64(math.Round(d.Rand()))
	return min(max(k, 0), n)
}

// Poisson draws a count with mean lambda. It panics if lambda is NaN or
// infinite.
func (s *Stream) Poisson(lambda float64) int64 {
	if math.IsNaN(lambda) || math.IsInf(lambda, 1) {
		panic(fmt.Sprintf("rng: poisson mean %v is not finite", lambda))
	}
	if lambda <= 0 {
		return 0
	}
	d := distuv.Poisson{Lambda: lambda, Src: s.r}
	return int64(math.Round(d.Rand()))
}

// Normal draws from a Gaussian with the given mean and standard deviation.
func (s *Stream) Normal(mu, sigma float64) float64 {
	if sigma <= 0 {
		return mu
	}
	d := distuv.Normal{Mu: mu, Sigma: sigma, Src: s.r}
	return d.Rand()
}

// Shuffle randomizes the order of n elements using swap.
func (s *Stream) Shuffle(n int, swap func(i, j int)) {
	s.r.Shuffle(n, swap)
}
