package testutil

import (
	"sync"
	"time"
)

// FixedClock is a controllable wall clock for tests.
//
// Now returns the same instant until Advance or Set moves it, so note
// timestamps written during a test are predictable.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock frozen at the given unix second.
func NewFixedClock(unix int64) *FixedClock {
	return &FixedClock{now: time.Unix(unix, 0).UTC()}
}

// Now returns the current instant. Implements engine.WallClock.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to the given unix second. It may move backwards.
func (c *FixedClock) Set(unix int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Unix(unix, 0).UTC()
}
