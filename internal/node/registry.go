package node

import (
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/patchbay/internal/ir"
)

// Constructor builds a node from parsed arguments.
type Constructor func(ctx Context, args Args) Node

// Spec describes one node type.
type Spec struct {
	Name string
	// MinArgs and MaxArgs bound the argument count. MaxArgs < 0 means no
	// upper bound.
	MinArgs int
	MaxArgs int
	// RefsOnly requires every argument to be a ~reference.
	RefsOnly bool
	// Validate, if set, checks parsed arguments against the context. A
	// returned *ParamError without a Node is attributed to this spec.
	Validate func(ctx Context, params []Param) error
	New      Constructor
}

func (s *Spec) parse(ctx Context, tokens []string) ([]Param, error) {
	n := len(tokens)
	if n < s.MinArgs || (s.MaxArgs >= 0 && n > s.MaxArgs) {
		return nil, &ParamError{Node: s.Name, Index: -1, Message: s.arity(n)}
	}
	params := make([]Param, n)
	for k, tok := range tokens {
		p, err := ParseParam(tok)
		if err != nil {
			return nil, &ParamError{Node: s.Name, Index: k, Token: tok, Message: err.Error()}
		}
		if s.RefsOnly && !p.IsRef() {
			return nil, &ParamError{Node: s.Name, Index: k, Token: tok, Message: "expected a ~reference"}
		}
		params[k] = p
	}
	if s.Validate != nil {
		if err := s.Validate(ctx, params); err != nil {
			var pe *ParamError
			if errors.As(err, &pe) && pe.Node == "" {
				pe.Node = s.Name
			}
			return nil, err
		}
	}
	return params, nil
}

func (s *Spec) arity(got int) string {
	switch {
	case s.MaxArgs < 0:
		return fmt.Sprintf("expected at least %d arguments, got %d", s.MinArgs, got)
	case s.MinArgs == s.MaxArgs:
		return fmt.Sprintf("expected %d arguments, got %d", s.MinArgs, got)
	default:
		return fmt.Sprintf("expected %d to %d arguments, got %d", s.MinArgs, s.MaxArgs, got)
	}
}

// Registry maps node names to constructors. Construction is deterministic
// and never consults runtime state.
//
// A Registry is read-only after setup and safe for concurrent Make/Check.
type Registry struct {
	ctx   Context
	specs map[string]*Spec
}

// NewRegistry creates an empty registry building nodes for ctx.
func NewRegistry(ctx Context) *Registry {
	return &Registry{ctx: ctx, specs: make(map[string]*Spec)}
}

// Builtins creates a registry holding the builtin catalog.
func Builtins(ctx Context) *Registry {
	r := NewRegistry(ctx)
	for _, s := range builtinSpecs() {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a node type. Names must be unique.
func (r *Registry) Register(s Spec) error {
	if s.Name == "" || s.New == nil {
		return fmt.Errorf("register node: name and constructor are required")
	}
	if _, ok := r.specs[s.Name]; ok {
		return fmt.Errorf("register node %q: already registered", s.Name)
	}
	r.specs[s.Name] = &s
	return nil
}

// Context returns the rendering constants nodes are built for.
func (r *Registry) Context() Context {
	return r.ctx
}

// Make builds a node from its name and argument clause.
func (r *Registry) Make(name string, clause ir.Clause) (Node, error) {
	s, ok := r.specs[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownNode)
	}
	a, err := newArgs(s, r.ctx, clause.Args)
	if err != nil {
		return nil, err
	}
	return s.New(r.ctx, a), nil
}

// Check reports whether Make would accept name and clause, without
// building anything.
func (r *Registry) Check(name string, clause ir.Clause) error {
	s, ok := r.specs[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknownNode)
	}
	_, err := s.parse(r.ctx, clause.Args)
	return err
}

// Names returns the registered node names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for n := range r.specs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
