package engine

import "sync/atomic"

// Clock counts committed generations.
//
// Every successful edit cycle advances the clock by one; rejected cycles
// leave it untouched. The value is never derived from wall-clock time, so a
// replayed session reaches the same generation numbers.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations), so
// observers may read Current while the engine's owner commits.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific generation.
// Used when resuming a journaled session.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new generation.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the latest committed generation without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
