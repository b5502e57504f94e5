package graph

import (
	"errors"
	"fmt"
)

// ErrNoSuchNode is returned when a handle does not name a live node.
var ErrNoSuchNode = errors.New("graph: no such node")

// Handle identifies a node for as long as the node is in the graph.
// The zero Handle is never valid.
type Handle struct {
	index uint32
	gen   uint32
}

// IsValid reports whether h was ever issued by a graph.
func (h Handle) IsValid() bool {
	return h.gen != 0
}

// String renders the handle as "<index>v<generation>", e.g. "3v2".
func (h Handle) String() string {
	return fmt.Sprintf("%dv%d", h.index, h.gen)
}

type slot[N any] struct {
	gen   uint32 // generation of the current (or last) occupant
	live  bool
	mark  uint8 // scratch state for Schedule
	value N
	in    []Handle
}

// Graph is a directed graph whose nodes carry values of type N.
type Graph[N any] struct {
	slots []slot[N]
	free  []uint32 // LIFO list of reusable slot indices
	live  int
	edges int
}

// New creates an empty graph with room for capacity nodes.
func New[N any](capacity int) *Graph[N] {
	return &Graph[N]{slots: make([]slot[N], 0, capacity)}
}

// Add inserts a node and returns its handle.
func (g *Graph[N]) Add(v N) Handle {
	var idx uint32
	if n := len(g.free); n > 0 {
		idx = g.free[n-1]
		g.free = g.free[:n-1]
	} else {
		g.slots = append(g.slots, slot[N]{})
		idx = uint32(len(g.slots) - 1)
	}
	s := &g.slots[idx]
	s.gen++
	s.live = true
	s.value = v
	s.in = s.in[:0]
	g.live++
	return Handle{index: idx, gen: s.gen}
}

// Remove deletes a node and every edge touching it, returning its value.
// Reports false if h is stale or was never issued.
func (g *Graph[N]) Remove(h Handle) (N, bool) {
	s := g.lookup(h)
	if s == nil {
		var zero N
		return zero, false
	}
	v := s.value
	var zero N
	s.value = zero
	s.live = false
	g.edges -= len(s.in)
	s.in = s.in[:0]

	for i := range g.slots {
		o := &g.slots[i]
		if !o.live {
			continue
		}
		kept := o.in[:0]
		for _, from := range o.in {
			if from != h {
				kept = append(kept, from)
			}
		}
		g.edges -= len(o.in) - len(kept)
		o.in = kept
	}

	g.free = append(g.free, h.index)
	g.live--
	return v, true
}

// Get returns the value of a live node.
func (g *Graph[N]) Get(h Handle) (N, bool) {
	s := g.lookup(h)
	if s == nil {
		var zero N
		return zero, false
	}
	return s.value, true
}

// MustGet returns the value of a live node and panics on a stale handle.
// Use it only where the caller's own invariants guarantee the handle.
func (g *Graph[N]) MustGet(h Handle) N {
	s := g.lookup(h)
	if s == nil {
		panic(fmt.Sprintf("graph: stale handle %s", h))
	}
	return s.value
}

// Contains reports whether h names a live node.
func (g *Graph[N]) Contains(h Handle) bool {
	return g.lookup(h) != nil
}

// Len returns the number of live nodes.
func (g *Graph[N]) Len() int {
	return g.live
}

// Handles returns the handles of all live nodes in slot order.
func (g *Graph[N]) Handles() []Handle {
	out := make([]Handle, 0, g.live)
	for i := range g.slots {
		if g.slots[i].live {
			out = append(out, Handle{index: uint32(i), gen: g.slots[i].gen})
		}
	}
	return out
}

func (g *Graph[N]) lookup(h Handle) *slot[N] {
	if !h.IsValid() || int(h.index) >= len(g.slots) {
		return nil
	}
	s := &g.slots[h.index]
	if !s.live || s.gen != h.gen {
		return nil
	}
	return s
}
