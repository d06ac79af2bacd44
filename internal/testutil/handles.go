package testutil

import (
	"fmt"
	"sync"
)

// SequentialHandles generates "<prefix>-1", "<prefix>-2", ... without limit.
//
// Unlike session.FixedGenerator, which panics once its list is consumed, this
// generator suits scenarios that open an unknown number of sessions.
//
// Thread-safety: safe for concurrent use.
type SequentialHandles struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialHandles creates a generator. An empty prefix means "session".
func NewSequentialHandles(prefix string) *SequentialHandles {
	if prefix == "" {
		prefix = "session"
	}
	return &SequentialHandles{prefix: prefix}
}

// Generate returns the next handle.
func (g *SequentialHandles) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
