package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/patchbay/internal/compiler"
	"github.com/roach88/patchbay/internal/graph"
	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/node"
)

const testBlockSize = 8

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(
		WithBlockSize(testBlockSize),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func mustCompile(t *testing.T, src string) ir.Program {
	t.Helper()
	p, err := compiler.Compile(src)
	require.NoError(t, err)
	return p
}

func mustUpdate(t *testing.T, e *Engine, src string) *Plan {
	t.Helper()
	e.SetSource(src)
	plan, err := e.Update()
	require.NoError(t, err)
	return plan
}

func testFactory() Factory {
	return node.Builtins(node.Context{SampleRate: DefaultSampleRate, BlockSize: testBlockSize})
}

// edgeLabels renders the engine's edges as "from->to" labels.
func edgeLabels(e *Engine) []string {
	var out []string
	for _, ed := range e.Edges() {
		out = append(out, e.Label(ed.From)+"->"+e.Label(ed.To))
	}
	return out
}

func handle(t *testing.T, e *Engine, chain string, pos int) graph.Handle {
	t.Helper()
	hs, ok := e.Chains()[chain]
	require.True(t, ok, "chain %s not indexed", chain)
	require.Less(t, pos, len(hs))
	return hs[pos]
}
