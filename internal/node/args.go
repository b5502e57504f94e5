package node

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/patchbay/internal/ir"
)

// ParamError reports an argument a node cannot accept.
type ParamError struct {
	Node    string
	Index   int // -1 when the error concerns the argument count
	Token   string
	Message string
}

func (e *ParamError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", e.Node, e.Message)
	}
	return fmt.Sprintf("%s: argument %d (%q): %s", e.Node, e.Index, e.Token, e.Message)
}

// Param is one node argument: a constant, or a reference to another
// chain's output.
type Param struct {
	Value float32
	Ref   string // "~name", empty for constants
}

// IsRef reports whether p reads from a sidechain input.
func (p Param) IsRef() bool {
	return p.Ref != ""
}

var errNotParam = errors.New("not a number or ~reference")

// ParseParam parses a single argument token.
func ParseParam(token string) (Param, error) {
	if ir.IsRef(token) {
		return Param{Ref: token}, nil
	}
	f, err := strconv.ParseFloat(token, 32)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return Param{}, errNotParam
	}
	return Param{Value: float32(f)}, nil
}

// Args holds a node's current arguments and maps reference arguments to
// input indices. Builtin nodes embed it and inherit its Send.
type Args struct {
	spec   *Spec
	ctx    Context
	params []Param
	refIdx []int // per param: ordinal among reference params, or -1
	nrefs  int
}

func newArgs(spec *Spec, ctx Context, tokens []string) (Args, error) {
	a := Args{spec: spec, ctx: ctx}
	params, err := spec.parse(ctx, tokens)
	if err != nil {
		return Args{}, err
	}
	a.set(params)
	return a, nil
}

func (a *Args) set(params []Param) {
	a.params = params
	a.refIdx = a.refIdx[:0]
	a.nrefs = 0
	for _, p := range params {
		if p.IsRef() {
			a.refIdx = append(a.refIdx, a.nrefs)
			a.nrefs++
		} else {
			a.refIdx = append(a.refIdx, -1)
		}
	}
}

// Len returns the number of arguments.
func (a *Args) Len() int {
	return len(a.params)
}

// Param returns argument k.
func (a *Args) Param(k int) Param {
	return a.params[k]
}

// At returns the value of argument k for sample i. A reference whose input
// is not connected reads as silence.
func (a *Args) At(k int, in [][]float32, i int) float32 {
	if a.refIdx[k] < 0 {
		return a.params[k].Value
	}
	j := len(in) - a.nrefs + a.refIdx[k]
	if j < 0 {
		return 0
	}
	return in[j][i]
}

// Source returns the chain predecessor's block, or nil at the head of a
// chain.
func (a *Args) Source(in [][]float32) []float32 {
	if len(in) > a.nrefs {
		return in[0]
	}
	return nil
}

// Send replaces one argument, or all of them for ParamAll. The new
// arguments are validated as a whole before any is applied. A changed
// reference takes effect once the engine rebuilds connections.
func (a *Args) Send(msg Message) error {
	var tokens []string
	if msg.Param == ParamAll {
		tokens = strings.Fields(msg.Value)
	} else {
		if msg.Param < 0 || msg.Param >= len(a.params) {
			return &ParamError{Node: a.spec.Name, Index: msg.Param, Token: msg.Value, Message: "no such argument"}
		}
		tokens = make([]string, len(a.params))
		for k, p := range a.params {
			tokens[k] = formatParam(p)
		}
		tokens[msg.Param] = strings.TrimSpace(msg.Value)
	}
	params, err := a.spec.parse(a.ctx, tokens)
	if err != nil {
		return err
	}
	a.set(params)
	return nil
}

func formatParam(p Param) string {
	if p.IsRef() {
		return p.Ref
	}
	return strconv.FormatFloat(float64(p.Value), 'g', -1, 32)
}
