package engine

import "sync/atomic"

// Clock is the monotonic logical clock for journal ordering.
//
// Every accepted bundle is stamped with a strictly increasing seq from this
// clock. Engines opened on an existing store resume from the last journaled
// seq via NewClockAt.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// However, the Engine's single-writer design means only the goroutine
// holding the engine mutex calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Peek returns the sequence number Next would return, without advancing.
// The engine stamps a journal entry with Peek and advances only after the
// transaction commits, so a rolled-back bundle leaves no gap.
func (c *Clock) Peek() int64 {
	return c.seq.Load() + 1
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
