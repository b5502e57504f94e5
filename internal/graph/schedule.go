package graph

import (
	"errors"
	"fmt"
)

// ErrCycle is returned by Schedule when the upstream graph is not acyclic.
var ErrCycle = errors.New("graph: cycle detected")

const (
	unvisited uint8 = iota
	visiting
	done
)

// Schedule appends to order every node upstream of root, root last, such
// that each node appears after all of its inputs. order is truncated first
// so callers can reuse its capacity.
//
// Nodes that cannot reach root are not scheduled.
func (g *Graph[N]) Schedule(root Handle, order []Handle) ([]Handle, error) {
	order = order[:0]
	if !g.Contains(root) {
		return order, fmt.Errorf("schedule %s: %w", root, ErrNoSuchNode)
	}
	for i := range g.slots {
		g.slots[i].mark = unvisited
	}

	type frame struct {
		h    Handle
		next int // index of the next incoming edge to visit
	}
	stack := []frame{{h: root}}
	g.slots[root.index].mark = visiting

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		s := &g.slots[top.h.index]
		if top.next < len(s.in) {
			from := s.in[top.next]
			top.next++
			switch g.slots[from.index].mark {
			case unvisited:
				g.slots[from.index].mark = visiting
				stack = append(stack, frame{h: from})
			case visiting:
				return order[:0], fmt.Errorf("schedule %s: edge %s→%s: %w", root, from, top.h, ErrCycle)
			}
			continue
		}
		s.mark = done
		order = append(order, top.h)
		stack = stack[:len(stack)-1]
	}
	return order, nil
}
