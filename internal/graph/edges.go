package graph

import "fmt"

// Edge is a directed signal-flow link.
type Edge struct {
	From Handle
	To   Handle
}

// AddEdge appends an edge from → to. Parallel edges are allowed; each one
// is a separate input of the target.
func (g *Graph[N]) AddEdge(from, to Handle) error {
	if !g.Contains(from) {
		return fmt.Errorf("add edge %s→%s: source: %w", from, to, ErrNoSuchNode)
	}
	t := g.lookup(to)
	if t == nil {
		return fmt.Errorf("add edge %s→%s: target: %w", from, to, ErrNoSuchNode)
	}
	t.in = append(t.in, from)
	g.edges++
	return nil
}

// ClearEdges removes every edge. Per-node capacity is kept so rebuilding
// the same topology does not allocate.
func (g *Graph[N]) ClearEdges() {
	for i := range g.slots {
		g.slots[i].in = g.slots[i].in[:0]
	}
	g.edges = 0
}

// Incoming returns the sources of h's incoming edges in insertion order.
// The slice is owned by the graph and valid until the next mutation.
func (g *Graph[N]) Incoming(h Handle) []Handle {
	s := g.lookup(h)
	if s == nil {
		return nil
	}
	return s.in
}

// EdgeCount returns the number of edges.
func (g *Graph[N]) EdgeCount() int {
	return g.edges
}

// Edges returns every edge, grouped by target in slot order and, within a
// target, in insertion order.
func (g *Graph[N]) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	for i := range g.slots {
		s := &g.slots[i]
		if !s.live {
			continue
		}
		to := Handle{index: uint32(i), gen: s.gen}
		for _, from := range s.in {
			out = append(out, Edge{From: from, To: to})
		}
	}
	return out
}
