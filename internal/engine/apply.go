package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/node"
)

// precheck replays plan against the node names of the live index and
// verifies that every position is in range, that every update targets a
// node of the same name, and that the result is next, chain for chain. It
// mutates nothing.
func (e *Engine) precheck(next ir.Program, plan *Plan) error {
	if plan.applied {
		return NewInvariantError("", -1, "plan already applied")
	}
	if plan.base != e.clock.Current() {
		return NewInvariantError("", -1, "plan reconciled against generation %d, committed generation is %d",
			plan.base, e.clock.Current())
	}

	names := make(map[string][]string, len(e.index))
	for chain, hs := range e.index {
		ns := make([]string, len(hs))
		for i, h := range hs {
			ns[i] = e.graph.MustGet(h).name
		}
		names[chain] = ns
	}

	for _, chain := range plan.Deletes {
		if _, ok := names[chain]; !ok {
			return NewInvariantError(chain, -1, "delete of unknown chain")
		}
		delete(names, chain)
	}
	for _, r := range plan.Removes {
		ns, ok := names[r.Chain]
		if !ok || r.Position < 0 || r.Position >= len(ns) {
			return NewInvariantError(r.Chain, r.Position, "remove outside chain of length %d", len(ns))
		}
		names[r.Chain] = slices.Delete(ns, r.Position, r.Position+1)
	}
	for _, a := range plan.Adds {
		ns := names[a.Chain]
		if a.Position < 0 || a.Position > len(ns) {
			return NewInvariantError(a.Chain, a.Position, "add outside chain of length %d", len(ns))
		}
		if a.Node == nil {
			return NewInvariantError(a.Chain, a.Position, "add without a node")
		}
		names[a.Chain] = slices.Insert(ns, a.Position, a.Name)
	}
	for _, u := range plan.Updates {
		ns, ok := names[u.Chain]
		if !ok || u.Position < 0 || u.Position >= len(ns) {
			return NewInvariantError(u.Chain, u.Position, "update outside chain of length %d", len(ns))
		}
		if ns[u.Position] != u.Name {
			return NewInvariantError(u.Chain, u.Position, "update of %s reaches a %s node", u.Name, ns[u.Position])
		}
	}

	for chain, ns := range names {
		c, ok := next.Chains[chain]
		if !ok {
			return NewInvariantError(chain, -1, "chain survives the plan but is not in the program")
		}
		if len(ns) != len(c.Nodes) {
			return NewInvariantError(chain, -1, "plan leaves %d nodes, program has %d", len(ns), len(c.Nodes))
		}
		for i, n := range ns {
			if n != c.Nodes[i] {
				return NewInvariantError(chain, i, "plan leaves a %s node where the program has %s", n, c.Nodes[i])
			}
		}
	}
	for _, chain := range next.Order {
		if _, ok := names[chain]; !ok && len(next.Chains[chain].Nodes) > 0 {
			return NewInvariantError(chain, -1, "program chain missing after plan")
		}
	}
	return nil
}

// apply executes a checked plan: deletes, removes, adds, then updates. No
// edges are touched. A position outside the index here means precheck was
// bypassed and panics.
func (e *Engine) apply(plan *Plan) {
	plan.applied = true

	for _, name := range plan.Deletes {
		for _, h := range e.index[name] {
			e.graph.Remove(h)
		}
		delete(e.index, name)
		e.log.Debug("chain deleted", "chain", name)
	}

	for _, r := range plan.Removes {
		hs := e.index[r.Chain]
		e.mustSlot(r.Chain, r.Position, len(hs))
		e.graph.Remove(hs[r.Position])
		e.index[r.Chain] = slices.Delete(hs, r.Position, r.Position+1)
		e.log.Debug("node removed", "chain", r.Chain, "position", r.Position)
	}

	for _, a := range plan.Adds {
		hs := e.index[a.Chain]
		e.mustSlot(a.Chain, a.Position, len(hs)+1)
		h := e.graph.Add(&entry{
			chain: a.Chain,
			name:  a.Name,
			node:  a.Node,
			out:   make([]float32, e.ctx.BlockSize),
		})
		e.index[a.Chain] = slices.Insert(hs, a.Position, h)
		e.log.Debug("node added", "chain", a.Chain, "position", a.Position, "node", a.Name)
	}

	for _, u := range plan.Updates {
		hs := e.index[u.Chain]
		e.mustSlot(u.Chain, u.Position, len(hs))
		ent := e.graph.MustGet(hs[u.Position])
		if err := ent.node.Send(node.ClauseMessage(u.Clause)); err != nil {
			// Clauses are checked during reconcile, so this is a factory
			// whose Check and Send disagree. The node keeps its old
			// parameters.
			e.log.Error("node update rejected",
				"chain", u.Chain,
				"position", u.Position,
				"node", u.Name,
				"error", err,
			)
			continue
		}
		e.log.Debug("node updated", "chain", u.Chain, "position", u.Position, "clause", u.Clause.Raw)
	}
}

func (e *Engine) mustSlot(chain string, pos, limit int) {
	if pos < 0 || pos >= limit {
		panic(fmt.Sprintf("engine: plan position %s[%d] outside index of length %d", chain, pos, limit))
	}
}
