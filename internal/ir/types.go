package ir

import "strings"

// RefPrefix marks an argument token that reads another chain's output.
// Chain names carrying the same prefix are the only valid reference targets.
const RefPrefix = "~"

// Program is one parsed generation of source text: chain name to chain.
type Program struct {
	Chains map[string]Chain `json:"chains"`
	Order  []string         `json:"order"` // declaration order of chain names
}

// Chain is a named, ordered pipeline of nodes.
//
// INVARIANT: len(Nodes) == len(Params). Params[i] is the clause of Nodes[i].
type Chain struct {
	Name   string   `json:"name"`
	Nodes  []string `json:"nodes"`
	Params []Clause `json:"params"`
	Line   int      `json:"line,omitempty"` // source line of the chain header
}

// Clause is the raw parameter text of one node, opaque to the reconciler.
type Clause struct {
	Raw  string   `json:"raw"`
	Args []string `json:"args"` // whitespace-separated tokens of Raw
}

// NewProgram returns an empty program ready for chains to be added.
func NewProgram() Program {
	return Program{Chains: make(map[string]Chain)}
}

// NewClause builds a clause from raw text, splitting it into argument tokens.
func NewClause(raw string) Clause {
	raw = strings.TrimSpace(raw)
	return Clause{Raw: raw, Args: strings.Fields(raw)}
}

// Refs returns the reference tokens of the clause in argument order.
// Duplicates are preserved; each one becomes its own input edge.
func (c Clause) Refs() []string {
	var refs []string
	for _, a := range c.Args {
		if IsRef(a) {
			refs = append(refs, a)
		}
	}
	return refs
}

// IsRef reports whether an argument token is a chain reference.
func IsRef(token string) bool {
	return len(token) > len(RefPrefix) && strings.HasPrefix(token, RefPrefix)
}

// Add appends a chain, preserving declaration order.
// Replacing an existing name keeps its original position.
func (p *Program) Add(c Chain) {
	if p.Chains == nil {
		p.Chains = make(map[string]Chain)
	}
	if _, ok := p.Chains[c.Name]; !ok {
		p.Order = append(p.Order, c.Name)
	}
	p.Chains[c.Name] = c
}

// Has reports whether the program defines the named chain.
func (p Program) Has(name string) bool {
	_, ok := p.Chains[name]
	return ok
}

// Len returns the number of chains.
func (p Program) Len() int {
	return len(p.Order)
}

// NodeCount returns the total number of nodes across every chain.
func (p Program) NodeCount() int {
	n := 0
	for _, c := range p.Chains {
		n += len(c.Nodes)
	}
	return n
}

// Clone returns a deep copy so a committed generation cannot be mutated
// through a caller's reference.
func (p Program) Clone() Program {
	out := Program{
		Chains: make(map[string]Chain, len(p.Chains)),
		Order:  append([]string(nil), p.Order...),
	}
	for name, c := range p.Chains {
		cc := Chain{
			Name:   c.Name,
			Nodes:  append([]string(nil), c.Nodes...),
			Params: make([]Clause, len(c.Params)),
			Line:   c.Line,
		}
		for i, cl := range c.Params {
			cc.Params[i] = Clause{Raw: cl.Raw, Args: append([]string(nil), cl.Args...)}
		}
		out.Chains[name] = cc
	}
	return out
}
