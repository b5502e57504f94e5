package engine

import (
	"sort"

	"github.com/roach88/patchbay/internal/ir"
)

// Reconcile diffs the committed program prev against next and returns the
// edit plan between them. It never touches a graph and is safe to call
// concurrently.
//
// Per chain in next, in declaration order:
//   - a new chain becomes one Add per node
//   - an existing chain is aligned by node name (see diffNames); a node
//     whose name survives is kept and gets an Update only if its clause
//     text changed, removed names become Removes, new names become Adds
//
// Chains in prev but not in next become Deletes.
//
// Nodes are built (Adds) or checked (Updates) through f while planning, so
// a bad node name or argument rejects the edit before anything is applied.
func Reconcile(prev, next ir.Program, f Factory) (*Plan, error) {
	plan := &Plan{}

	for _, name := range next.Order {
		c := next.Chains[name]
		old, ok := prev.Chains[name]
		if !ok {
			for i, n := range c.Nodes {
				nd, err := f.Make(n, c.Params[i])
				if err != nil {
					return nil, NewFactoryError(name, i, n, err)
				}
				plan.Adds = append(plan.Adds, Add{Chain: name, Position: i, Name: n, Clause: c.Params[i], Node: nd})
			}
			continue
		}

		var removes []Remove
		for _, op := range diffNames(old.Nodes, c.Nodes) {
			switch op.kind {
			case opCommon:
				clause := c.Params[op.new]
				if clause.Raw == old.Params[op.old].Raw {
					continue
				}
				n := c.Nodes[op.new]
				if err := f.Check(n, clause); err != nil {
					return nil, NewFactoryError(name, op.new, n, err)
				}
				plan.Updates = append(plan.Updates, Update{
					Chain:       name,
					OldPosition: op.old,
					Position:    op.new,
					Name:        n,
					Clause:      clause,
				})
			case opRemove:
				removes = append(removes, Remove{Chain: name, Position: op.old})
			case opAdd:
				n := c.Nodes[op.new]
				nd, err := f.Make(n, c.Params[op.new])
				if err != nil {
					return nil, NewFactoryError(name, op.new, n, err)
				}
				plan.Adds = append(plan.Adds, Add{Chain: name, Position: op.new, Name: n, Clause: c.Params[op.new], Node: nd})
			}
		}
		// Highest slot first so earlier removals do not shift later ones.
		for k := len(removes) - 1; k >= 0; k-- {
			plan.Removes = append(plan.Removes, removes[k])
		}
	}

	for name := range prev.Chains {
		if !next.Has(name) {
			plan.Deletes = append(plan.Deletes, name)
		}
	}
	sort.Strings(plan.Deletes)

	return plan, nil
}
