package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/node"
)

// RenderBlock renders one block through the committed graph and returns
// the aggregation node's output. The returned slice is owned by the engine
// and overwritten by the next call.
func (e *Engine) RenderBlock() []float32 {
	for _, ent := range e.steps {
		ent.node.Process(ent.in, ent.out)
	}
	return e.steps[len(e.steps)-1].out
}

// SendMessage delivers a control message to the node at position in chain.
// An unknown chain or position returns an ErrCodeNotFound *UpdateError;
// otherwise the node's own Send result is returned.
//
// Connections are only rebuilt by edit cycles, so a message may not add,
// drop, or retarget a ~reference argument.
func (e *Engine) SendMessage(chain string, position int, msg node.Message) error {
	hs, ok := e.index[chain]
	if !ok || position < 0 || position >= len(hs) {
		return NewNotFoundError(chain, position)
	}
	ent := e.graph.MustGet(hs[position])
	cur := e.prev.Chains[chain].Params[position]
	if !keepsRefs(cur, msg) {
		return &UpdateError{
			Code:     ErrCodeBadParams,
			Message:  "references can only change through an edit",
			Chain:    chain,
			Position: position,
			Details:  map[string]string{"node": ent.name},
		}
	}
	if err := ent.node.Send(msg); err != nil {
		return err
	}
	e.log.Debug("message sent", "chain", chain, "position", position, "param", msg.Param, "value", msg.Value)
	return nil
}

// keepsRefs reports whether msg leaves every reference argument of cur
// where it is.
func keepsRefs(cur ir.Clause, msg node.Message) bool {
	if msg.Param == node.ParamAll {
		return slices.Equal(refLayout(cur), refLayout(ir.NewClause(msg.Value)))
	}
	if ir.IsRef(strings.TrimSpace(msg.Value)) {
		return false
	}
	return msg.Param < 0 || msg.Param >= len(cur.Args) || !ir.IsRef(cur.Args[msg.Param])
}

func refLayout(c ir.Clause) []string {
	var out []string
	for k, a := range c.Args {
		if ir.IsRef(a) {
			out = append(out, fmt.Sprintf("%d:%s", k, a))
		}
	}
	return out
}
