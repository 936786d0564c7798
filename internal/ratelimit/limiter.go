// Package ratelimit provides token bucket limits for MCP tool calls.
package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

var (
	// ErrLimited is wrapped by every rejection from ToolLimiters.Check.
	ErrLimited = errors.New("rate limit exceeded")
	// ErrInvalidCost is returned by Check for a cost that is not positive.
	ErrInvalidCost = errors.New("request cost must be positive")
)

// Limiter is a per-key token bucket. Requests may cost more than one
// token; a request costing more than the burst drains a full bucket.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64          // tokens per second
	burst   float64          // bucket size and initial fill
	nowFunc func() time.Time // injectable clock for testing
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a limiter refilling at rate tokens per second up to
// burst tokens.
func NewLimiter(rate, burst float64) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Allow takes one token for key.
func (l *Limiter) Allow(key string) bool {
	return l.AllowN(key, 1)
}

// AllowN takes cost tokens for key, or none if the bucket holds fewer.
// A cost that is not positive is never allowed.
func (l *Limiter) AllowN(key string, cost float64) bool {
	if !(cost > 0) {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key)
	cost = min(cost, l.burst)
	if b.tokens < cost {
		return false
	}
	b.tokens -= cost
	return true
}

// Tokens reports the tokens currently available for key.
func (l *Limiter) Tokens(key string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refill(key).tokens
}

// refill tops up key's bucket for the time since it was last touched.
// Callers hold l.mu.
func (l *Limiter) refill(key string) *bucket {
	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, lastCheck: now}
		l.buckets[key] = b
		return b
	}
	if elapsed := now.Sub(b.lastCheck).Seconds(); elapsed > 0 {
		b.tokens = min(b.tokens+l.rate*elapsed, l.burst)
		b.lastCheck = now
	}
	return b
}

// ToolLimiters maps tool names to their limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters returns the default limits. tumor_run is charged one
// token per requested trial.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"tumor_run":             NewLimiter(200.0/60.0, 200), // 200 trials/minute
		"tumor_validate_config": NewLimiter(1.0, 20),         // 60/minute, burst 20
	}
}

// Check charges cost tokens to tool. Tools without a limiter are always
// allowed; a cost that is not positive never is.
func (tl ToolLimiters) Check(tool string, cost float64) error {
	if !(cost > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidCost, cost)
	}
	limiter, ok := tl[tool]
	if !ok {
		return nil
	}
	if !limiter.AllowN(tool, cost) {
		return fmt.Errorf("%w for %s: %.0f of %.0f tokens available, please try again shortly",
			ErrLimited, tool, math.Floor(limiter.Tokens(tool)), min(cost, limiter.burst))
	}
	return nil
}
