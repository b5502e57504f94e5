package node

import (
	"errors"

	"github.com/roach88/patchbay/internal/ir"
)

// ErrUnknownNode is returned when a registry has no constructor for a name.
var ErrUnknownNode = errors.New("unknown node")

// ErrNoParams is returned by nodes that accept no control messages.
var ErrNoParams = errors.New("node has no parameters")

// ParamAll addresses every argument of a node at once. A message with
// Param == ParamAll carries a whole raw argument clause.
const ParamAll = -1

// Node is a stateful audio processing unit.
type Node interface {
	// Process renders one block into out. in holds the input blocks in
	// connection order; out has the engine's block size.
	Process(in [][]float32, out []float32)

	// Send delivers an out-of-band control message. An error leaves the
	// node's parameters unchanged.
	Send(msg Message) error
}

// Message is a control message addressed to one node.
type Message struct {
	// Param is the 0-based argument index, or ParamAll.
	Param int
	// Value is the replacement token, or the whole clause for ParamAll.
	Value string
}

// ClauseMessage builds the message that replaces every argument of a node
// with the arguments of c.
func ClauseMessage(c ir.Clause) Message {
	return Message{Param: ParamAll, Value: c.Raw}
}

// Context carries the engine-wide rendering constants a node is built for.
type Context struct {
	SampleRate float64
	BlockSize  int
}

// DefaultContext matches the config defaults.
var DefaultContext = Context{SampleRate: 48000, BlockSize: 128}
