package engine

import (
	"fmt"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/node"
)

// Factory builds nodes by name. *node.Registry is the production Factory.
//
// Make must be deterministic given identical inputs and must not consult
// any chain's runtime state. Check must accept exactly the clauses Make
// would accept.
type Factory interface {
	Make(name string, clause ir.Clause) (node.Node, error)
	Check(name string, clause ir.Clause) error
}

// Add schedules a freshly built node for insertion at Position.
type Add struct {
	Chain    string
	Position int
	Name     string
	Clause   ir.Clause
	Node     node.Node
}

// Remove schedules the node at Position (in the committed chain) for
// removal.
type Remove struct {
	Chain    string
	Position int
}

// Update delivers a new clause to a node that survives the edit.
//
// OldPosition is the node's slot in the committed chain. Position is its
// slot once removals and additions are applied; the executor looks the
// node up there.
type Update struct {
	Chain       string
	OldPosition int
	Position    int
	Name        string
	Clause      ir.Clause
}

// Plan is the edit plan that turns one committed program into the next.
//
// Each list is in execution order:
//   - Deletes: chain names, sorted
//   - Removes: per chain, descending old position
//   - Adds: per chain, ascending new position
//   - Updates: per chain, ascending new position
//
// A Plan owns the nodes in its Adds until it is applied. It may be applied
// at most once, and only to the generation it was reconciled against.
type Plan struct {
	Deletes []string
	Removes []Remove
	Adds    []Add
	Updates []Update

	base    int64 // generation the plan was reconciled against
	applied bool
}

// Empty reports whether the plan changes nothing.
func (p *Plan) Empty() bool {
	return len(p.Deletes) == 0 && len(p.Removes) == 0 && len(p.Adds) == 0 && len(p.Updates) == 0
}

// Summary counts the plan's operations for the edit journal.
func (p *Plan) Summary() ir.PlanSummary {
	return ir.PlanSummary{
		Adds:    len(p.Adds),
		Removes: len(p.Removes),
		Updates: len(p.Updates),
		Deletes: len(p.Deletes),
	}
}

// Trace renders the plan one operation per line, in execution order.
//
//	delete ~lfo
//	remove a[2]
//	add a[1] lpf 2000
//	update a[0] sin 880
//
// Updates whose slot moved show both positions: "update a[1<-0] sin 880".
func (p *Plan) Trace() []string {
	lines := make([]string, 0, len(p.Deletes)+len(p.Removes)+len(p.Adds)+len(p.Updates))
	for _, d := range p.Deletes {
		lines = append(lines, "delete "+d)
	}
	for _, r := range p.Removes {
		lines = append(lines, fmt.Sprintf("remove %s[%d]", r.Chain, r.Position))
	}
	for _, a := range p.Adds {
		lines = append(lines, fmt.Sprintf("add %s[%d] %s", a.Chain, a.Position, nodeText(a.Name, a.Clause)))
	}
	for _, u := range p.Updates {
		pos := fmt.Sprintf("%d", u.Position)
		if u.OldPosition != u.Position {
			pos = fmt.Sprintf("%d<-%d", u.Position, u.OldPosition)
		}
		lines = append(lines, fmt.Sprintf("update %s[%s] %s", u.Chain, pos, nodeText(u.Name, u.Clause)))
	}
	return lines
}

func nodeText(name string, c ir.Clause) string {
	if c.Raw == "" {
		return name
	}
	return name + " " + c.Raw
}
