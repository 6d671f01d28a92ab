package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates bundle ids "<prefix>-0001", "<prefix>-0002", ...
//
// This enables deterministic journals and golden trace comparison. Unlike
// engine.FixedGenerator it never runs out, so read-only reports (which also
// draw an id) do not have to be planned for.
//
// Thread-safety: SequentialIDs is safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix selects "bundle".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "bundle"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
//
// Implements engine.IDGenerator.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
