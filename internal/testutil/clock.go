// Package testutil provides deterministic helpers for tests: a fixed
// wall clock, a monotonic timestamp source, and event builders with
// stable ids. Production code never imports this package.
package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a thread-safe wall clock for tests. Now returns
// a fixed instant until Advance moves it, so budget elapsed-time checks
// and staleness math are exactly reproducible.
type DeterministicClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewDeterministicClock creates a clock pinned to epoch.
func NewDeterministicClock(epoch time.Time) *DeterministicClock {
	return &DeterministicClock{now: epoch}
}

// Now returns the current instant. Pass this method as a clock function
// to code under test.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *DeterministicClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set pins the clock to a specific instant.
func (c *DeterministicClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// TimestampSource hands out strictly increasing event timestamps in
// unix seconds, starting at base and stepping by step per call.
type TimestampSource struct {
	mu   sync.Mutex
	next float64
	step float64
}

// NewTimestampSource creates a source starting at base.
func NewTimestampSource(base, step float64) *TimestampSource {
	if step <= 0 {
		step = 1
	}
	return &TimestampSource{next: base, step: step}
}

// Next returns the next timestamp.
func (s *TimestampSource) Next() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.next
	s.next += s.step
	return ts
}
