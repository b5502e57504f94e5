package engine

import (
	"fmt"

	"github.com/roach88/patchbay/internal/ir"
)

// connect discards every edge and rebuilds them from the chain index and
// the references of p, then recomputes the render schedule.
//
// Per chain: node i → node i+1, last node → aggregation. Then per node,
// one edge per ~ref argument, in argument order, from the referenced
// chain's last node. A node's inputs are therefore its chain predecessor
// first, then its references.
func (e *Engine) connect(p ir.Program) {
	e.graph.ClearEdges()

	for _, name := range p.Order {
		hs := e.index[name]
		if len(hs) == 0 {
			continue
		}
		for i := 0; i+1 < len(hs); i++ {
			e.mustEdge(e.graph.AddEdge(hs[i], hs[i+1]))
		}
		e.mustEdge(e.graph.AddEdge(hs[len(hs)-1], e.out))
	}

	for _, name := range p.Order {
		hs := e.index[name]
		for pos, clause := range p.Chains[name].Params {
			for _, ref := range clause.Refs() {
				src := e.index[ref]
				e.mustEdge(e.graph.AddEdge(src[len(src)-1], hs[pos]))
			}
		}
	}

	var err error
	e.order, err = e.graph.Schedule(e.out, e.order)
	if err != nil {
		panic(fmt.Sprintf("engine: %v", err))
	}

	e.steps = e.steps[:0]
	for _, h := range e.order {
		ent := e.graph.MustGet(h)
		ent.in = ent.in[:0]
		for _, from := range e.graph.Incoming(h) {
			ent.in = append(ent.in, e.graph.MustGet(from).out)
		}
		e.steps = append(e.steps, ent)
	}
}

func (e *Engine) mustEdge(err error) {
	if err != nil {
		panic(fmt.Sprintf("engine: %v", err))
	}
}
