package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator generates predictable operation ids.
//
// This enables deterministic test execution and golden snapshot
// comparison: the first operation gets "<prefix>-0001", the second
// "<prefix>-0002", and so on.
//
// Unlike engine.FixedGenerator, which panics when its list runs out,
// this generator never exhausts. Use it in scenario tests where the
// number of operations is not fixed up front.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator with the given prefix.
//
// An empty prefix defaults to "test-op".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "test-op"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next id in the sequence.
//
// Implements the engine's OperationIDGenerator interface.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
