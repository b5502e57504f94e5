package engine

import (
	"github.com/roach88/patchbay/internal/compiler"
	"github.com/roach88/patchbay/internal/ir"
)

// CheckRefs validates the references of a program about to be applied.
//
// Every ~ref argument must name a chain of next that has at least one node;
// it reads that chain's last node. References must not form a cycle, a
// chain reading its own output included, since the graph has no feedback
// paths.
//
// The first failure in declaration order is returned as an *UpdateError.
func CheckRefs(next ir.Program) error {
	for _, name := range next.Order {
		c := next.Chains[name]
		for pos, clause := range c.Params {
			for _, ref := range clause.Refs() {
				target, ok := next.Chains[ref]
				if !ok || len(target.Nodes) == 0 {
					return NewRefUnresolvedError(name, pos, ref)
				}
			}
		}
	}
	if cycles := compiler.AnalyzeRefCycles(next); len(cycles) > 0 {
		return NewRefCycleError(cycles[0])
	}
	return nil
}
