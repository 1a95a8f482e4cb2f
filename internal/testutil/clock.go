package testutil

import (
	"sync"
	"time"
)

// FixedClock provides a thread-safe, manually advanced time source for tests.
//
// Unlike the system clock, FixedClock only moves when the test says so.
// This gives deterministic capturedAt/expiresAt stamps on snapshots and
// lets expiry be asserted without sleeping.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock pinned to the given instant.
func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

// Now returns the pinned instant.
//
// Implements the engine's Clock interface.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
//
// Thread-safe: uses mutex to protect the instant.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set pins the clock to a new instant. Used to rewind between subtests
// that share a clock.
func (c *FixedClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
