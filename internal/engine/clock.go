package engine

import (
	"sync/atomic"
	"time"
)

// Clock issues search identifiers.
//
// Identifiers are strictly increasing, so a result can be matched against
// the session's tracked identifier to tell whether it is still current.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Uint64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next identifier and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() uint64 {
	return c.seq.Add(1)
}

// WallClock supplies the current time for note timestamps.
type WallClock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
