package session

import (
	"sync"

	"github.com/google/uuid"
)

// HandleGenerator produces unique session handles.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type HandleGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 handles.
//
// Format: "0190a8f4-6c2e-7b1a-9d3f-5e8c2a1b4d6f" (36 characters), short
// enough to fit a Discord custom id alongside the control name.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined handles for testing.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu      sync.Mutex
	handles []string
	idx     int
}

// NewFixedGenerator creates a generator that returns handles in order.
//
//	gen := NewFixedGenerator("s-1", "s-2")
//	gen.Generate() // "s-1"
//	gen.Generate() // "s-2"
//	gen.Generate() // panic: all handles exhausted
func NewFixedGenerator(handles ...string) *FixedGenerator {
	return &FixedGenerator{handles: handles}
}

// Generate returns the next predetermined handle.
// Panics when exhausted to catch test misconfiguration.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.handles) {
		panic("FixedGenerator: all handles exhausted")
	}
	h := g.handles[g.idx]
	g.idx++
	return h
}
