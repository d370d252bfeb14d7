// Package backoff computes reconnect delays from the number of consecutive
// connection failures.
package backoff

import (
	"sync"
	"time"
)

// Default reconnect bounds
const (
	DefaultBase = 1 * time.Second
	DefaultMax  = 30 * time.Second
)

// Policy implements capped exponential backoff. The n-th consecutive
// failure (n >= 1) waits min(base*2^(n-1), max). A success resets n to zero.
type Policy struct {
	base     time.Duration // Delay after the first failure
	max      time.Duration // Upper bound for any delay
	failures int           // Count of consecutive failures
	mu       sync.Mutex    // Protects failures
}

// NewPolicy creates a new policy. Non-positive values fall back to the
// defaults, and max is raised to base when smaller.
func NewPolicy(base, max time.Duration) *Policy {
	if base <= 0 {
		base = DefaultBase
	}
	if max <= 0 {
		max = DefaultMax
	}
	if max < base {
		max = base
	}
	return &Policy{base: base, max: max}
}

// Next records a failure and returns the delay to wait before retrying.
func (p *Policy) Next() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failures++
	return p.Delay(p.failures)
}

// Reset clears the failure count after a successful connection.
func (p *Policy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failures = 0
}

// Failures returns the current count of consecutive failures.
func (p *Policy) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.failures
}

// Delay returns the delay for the n-th consecutive failure without
// recording anything. n below 1 is treated as 1.
func (p *Policy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	delay := p.base
	for i := 1; i < n; i++ {
		// Stop doubling once the cap is reached so large n cannot overflow.
		if delay > p.max-delay {
			return p.max
		}
		delay *= 2
	}
	if delay > p.max {
		return p.max
	}
	return delay
}

// Base returns the delay used after the first failure.
func (p *Policy) Base() time.Duration { return p.base }

// Max returns the delay cap.
func (p *Policy) Max() time.Duration { return p.max }
