package testutil

import "sync"

// BlockClock hands out deterministic block timestamps for test bundles.
//
// Each Tick returns the current time and then advances it by the step, so a
// scenario replayed from the same start produces identical timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type BlockClock struct {
	mu    sync.Mutex
	start int64
	now   int64
	step  int64
}

// NewBlockClock creates a clock at start that advances by step per Tick.
func NewBlockClock(start, step int64) *BlockClock {
	return &BlockClock{start: start, now: start, step: step}
}

// Tick returns the current timestamp and advances the clock by one step.
func (c *BlockClock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now += c.step
	return t
}

// Now returns the current timestamp without advancing.
func (c *BlockClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by secs, e.g. past a payroll cycle.
func (c *BlockClock) Advance(secs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += secs
}

// Reset returns the clock to its start.
func (c *BlockClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
