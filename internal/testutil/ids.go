// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs returns predetermined session IDs in order.
//
// Tests that journal sessions use it so records and golden output carry
// known IDs. Safe for concurrent use.
type SequenceIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewSequenceIDs creates a generator that returns ids in order.
//
//	gen := NewSequenceIDs("s-1", "s-2")
//	gen.Generate() // "s-1"
//	gen.Generate() // "s-2"
//	gen.Generate() // panic: all IDs used
func NewSequenceIDs(ids ...string) *SequenceIDs {
	return &SequenceIDs{ids: ids}
}

// Generate returns the next ID. It panics once every ID has been used:
// the test created more sessions than it declared.
func (g *SequenceIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic(fmt.Sprintf("SequenceIDs: all %d IDs used", len(g.ids)))
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// FixedID generates the same session ID every time.
type FixedID string

// DefaultSessionID is used by FixedID("").
const DefaultSessionID = "test-session-00000000-0000-0000-0000-000000000001"

// Generate returns the fixed ID, or DefaultSessionID if it is empty.
func (id FixedID) Generate() string {
	if id == "" {
		return DefaultSessionID
	}
	return string(id)
}
