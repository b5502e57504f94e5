package engine

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/patchbay/internal/compiler"
	"github.com/roach88/patchbay/internal/graph"
	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/node"
)

const (
	// DefaultBlockSize is the number of samples rendered per block.
	DefaultBlockSize = 128

	// DefaultSampleRate is the rate nodes are built for, in Hz.
	DefaultSampleRate = 48000
)

// entry is one graph vertex: a node plus its output block and the input
// blocks it reads, wired by connect.
type entry struct {
	chain string // "" for the aggregation node
	name  string
	node  node.Node
	out   []float32
	in    [][]float32
}

// Engine reconciles programs into a running graph and renders it.
//
// Thread-safety model:
//   - Nothing is safe for concurrent use; the owner serializes edit
//     cycles, SendMessage, and RenderBlock
//   - Generation may be read from any goroutine
//
// INVARIANTS:
//   - for every chain of the committed program, index[chain] has one handle
//     per node, and slot i holds a node built for Nodes[i]
//   - the aggregation node is never removed and never in index
//   - steps lists every node upstream of the aggregation node in
//     dependency order, aggregation last
type Engine struct {
	log     *slog.Logger
	factory Factory
	ctx     node.Context
	clock   *Clock

	graph *graph.Graph[*entry]
	index map[string][]graph.Handle
	out   graph.Handle

	source string
	prev   ir.Program // committed program

	order []graph.Handle // scratch for Schedule
	steps []*entry
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithFactory sets the node factory.
//
// Default: node.Builtins for the engine's sample rate and block size.
func WithFactory(f Factory) Option {
	return func(e *Engine) {
		e.factory = f
	}
}

// WithBlockSize sets the number of samples per rendered block.
//
// Default: 128 samples (DefaultBlockSize)
func WithBlockSize(n int) Option {
	return func(e *Engine) {
		e.ctx.BlockSize = n
	}
}

// WithSampleRate sets the sample rate nodes are built for.
//
// Default: 48000 Hz (DefaultSampleRate)
func WithSampleRate(hz float64) Option {
	return func(e *Engine) {
		e.ctx.SampleRate = hz
	}
}

// WithLogger sets the logger for edit cycles. Rendering never logs.
//
// Default: slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithClock sets the generation clock.
// Used when resuming a journaled session.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an engine holding an empty program. Its graph contains only
// the aggregation node, so RenderBlock returns silence until the first
// commit.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:   slog.Default(),
		ctx:   node.Context{SampleRate: DefaultSampleRate, BlockSize: DefaultBlockSize},
		clock: NewClock(),
		index: make(map[string][]graph.Handle),
		prev:  ir.NewProgram(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.factory == nil {
		e.factory = node.Builtins(e.ctx)
	}

	e.graph = graph.New[*entry](64)
	e.out = e.graph.Add(&entry{name: "sum", node: node.NewSum(), out: make([]float32, e.ctx.BlockSize)})
	e.connect(e.prev)
	return e
}

// SetSource stores the program text for the next Update or Parse. It does
// not affect the running graph.
func (e *Engine) SetSource(src string) {
	e.source = src
}

// Source returns the text last passed to SetSource.
func (e *Engine) Source() string {
	return e.source
}

// Parse compiles the current source and reconciles it against the
// committed program. It does not touch the graph.
func (e *Engine) Parse() (ir.Program, *Plan, error) {
	next, err := compiler.Compile(e.source)
	if err != nil {
		return ir.Program{}, nil, NewParseError(err)
	}
	plan, err := Reconcile(e.prev, next, e.factory)
	if err != nil {
		return ir.Program{}, nil, err
	}
	plan.base = e.clock.Current()
	return next, plan, nil
}

// Update runs a full edit cycle on the current source: Parse, then
// MakeGraph. On error nothing changed.
func (e *Engine) Update() (*Plan, error) {
	next, plan, err := e.Parse()
	if err != nil {
		return nil, err
	}
	if err := e.MakeGraph(next, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// MakeGraph validates plan against next and the live index, then applies
// it, rebuilds connections, and commits a copy of next. The caller keeps
// ownership of next.
//
// Validation failures return an *UpdateError and leave the engine
// untouched.
func (e *Engine) MakeGraph(next ir.Program, plan *Plan) error {
	if err := CheckRefs(next); err != nil {
		return err
	}
	if err := e.precheck(next, plan); err != nil {
		return err
	}

	e.apply(plan)
	e.connect(next)

	e.prev = next.Clone()
	gen := e.clock.Next()
	s := plan.Summary()
	e.log.Info("generation committed",
		"generation", gen,
		"chains", next.Len(),
		"nodes", e.graph.Len(),
		"adds", s.Adds,
		"removes", s.Removes,
		"updates", s.Updates,
		"deletes", s.Deletes,
	)
	return nil
}

// Generation returns the number of committed edit cycles.
func (e *Engine) Generation() int64 {
	return e.clock.Current()
}

// Program returns a copy of the committed program.
func (e *Engine) Program() ir.Program {
	return e.prev.Clone()
}

// Chains returns a copy of the chain index: chain name → node handles in
// slot order.
func (e *Engine) Chains() map[string][]graph.Handle {
	out := make(map[string][]graph.Handle, len(e.index))
	for name, hs := range e.index {
		out[name] = slices.Clone(hs)
	}
	return out
}

// ChainNames returns the indexed chain names, sorted.
func (e *Engine) ChainNames() []string {
	return slices.Sorted(maps.Keys(e.index))
}

// NodeCount returns the number of nodes in the graph, the aggregation node
// included.
func (e *Engine) NodeCount() int {
	return e.graph.Len()
}

// Output returns the aggregation node's handle.
func (e *Engine) Output() graph.Handle {
	return e.out
}

// Edges returns every edge of the graph, grouped by target.
func (e *Engine) Edges() []graph.Edge {
	return e.graph.Edges()
}

// Node returns the node behind a handle.
func (e *Engine) Node(h graph.Handle) (node.Node, bool) {
	ent, ok := e.graph.Get(h)
	if !ok {
		return nil, false
	}
	return ent.node, true
}

// Label names a handle for diagnostics: "chain/node" for chain nodes,
// "sum" for the aggregation node.
func (e *Engine) Label(h graph.Handle) string {
	ent, ok := e.graph.Get(h)
	if !ok {
		return fmt.Sprintf("<stale %s>", h)
	}
	if ent.chain == "" {
		return ent.name
	}
	return ent.chain + "/" + ent.name
}

// Context returns the sample rate and block size the engine renders with.
func (e *Engine) Context() node.Context {
	return e.ctx
}
