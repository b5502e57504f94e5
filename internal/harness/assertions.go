package harness

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/graph"
	"github.com/roach88/patchbay/internal/live"
	"github.com/roach88/patchbay/internal/node"
	"github.com/roach88/patchbay/internal/store"
)

// defaultTolerance bounds output comparisons when a scenario sets none.
const defaultTolerance = 1e-6

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			for _, line := range strings.Split(ev.String(), "\n") {
				fmt.Fprintf(&buf, "  %s\n", line)
			}
		}
	}
	return buf.String()
}

// AssertionContext is the final state assertions are evaluated against.
type AssertionContext struct {
	Ctx       context.Context
	Store     *store.Store
	Session   *live.Session
	Snapshots []map[string][]node.Node
	Output    []float32 // last rendered block
	Rendered  int       // blocks rendered in total
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var msgs []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertPlanContains:
			err = assertPlanContains(result.Trace, a)
		case AssertJournal:
			if actx == nil || actx.Store == nil || actx.Session == nil {
				err = fmt.Errorf("assertion[%d]: journal requires a store", i)
			} else {
				err = assertJournal(actx, a)
			}
		case AssertOutput:
			err = assertOutput(actx, a)
		case AssertChainLength, AssertChainAbsent, AssertChainEdges, AssertNodeCount, AssertGeneration, AssertSameNode:
			if actx == nil || actx.Session == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a session", i, a.Type)
				break
			}
			actx.Session.View(func(e *engine.Engine) {
				err = assertGraph(e, actx.Snapshots, a)
			})
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		var ae *AssertionError
		if errors.As(err, &ae) {
			ae.Trace = result.Trace
		}
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

func assertGraph(e *engine.Engine, snapshots []map[string][]node.Node, a Assertion) error {
	chains := e.Chains()

	switch a.Type {
	case AssertChainLength:
		hs, ok := chains[a.Chain]
		if !ok {
			return fail(a, fmt.Sprintf("chain %s with %d nodes", a.Chain, a.Count), "chain not indexed")
		}
		if len(hs) != a.Count {
			return fail(a, fmt.Sprintf("chain %s with %d nodes", a.Chain, a.Count), fmt.Sprintf("%d nodes", len(hs)))
		}

	case AssertChainAbsent:
		if hs, ok := chains[a.Chain]; ok {
			return fail(a, fmt.Sprintf("chain %s absent", a.Chain), fmt.Sprintf("indexed with %d nodes", len(hs)))
		}
		for _, ed := range e.Edges() {
			if ownedBy(e.Label(ed.From), a.Chain) || ownedBy(e.Label(ed.To), a.Chain) {
				return fail(a, fmt.Sprintf("no edges touching %s", a.Chain), e.Label(ed.From)+"->"+e.Label(ed.To))
			}
		}

	case AssertChainEdges:
		got := []string{}
		for _, ed := range e.Edges() {
			if ownedBy(e.Label(ed.From), a.Chain) {
				got = append(got, e.Label(ed.From)+"->"+e.Label(ed.To))
			}
		}
		want := slices.Clone(a.Edges)
		if want == nil {
			want = []string{}
		}
		slices.Sort(got)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			return fail(a, fmt.Sprintf("%q", want), fmt.Sprintf("%q", got))
		}

	case AssertNodeCount:
		if n := e.NodeCount(); n != a.Count {
			return fail(a, fmt.Sprintf("%d nodes", a.Count), fmt.Sprintf("%d nodes", n))
		}

	case AssertGeneration:
		if g := e.Generation(); g != int64(a.Count) {
			return fail(a, fmt.Sprintf("generation %d", a.Count), fmt.Sprintf("generation %d", g))
		}

	case AssertSameNode:
		return assertSameNode(e, chains, snapshots, a)
	}
	return nil
}

func assertSameNode(e *engine.Engine, chains map[string][]graph.Handle, snapshots []map[string][]node.Node, a Assertion) error {
	chain, pos, _ := parseNodeRef(a.Node)
	was := a.Was
	if was == "" {
		was = a.Node
	}
	wasChain, wasPos, _ := parseNodeRef(was)
	expected := fmt.Sprintf("%s is the instance %s was after step %d", a.Node, was, a.Step)

	if a.Step >= len(snapshots) {
		return fail(a, expected, fmt.Sprintf("only %d steps ran", len(snapshots)))
	}
	before := snapshots[a.Step][wasChain]
	if wasPos >= len(before) {
		return fail(a, expected, fmt.Sprintf("no node at %s after step %d", was, a.Step))
	}
	hs := chains[chain]
	if pos >= len(hs) {
		return fail(a, expected, fmt.Sprintf("no node at %s", a.Node))
	}
	now, _ := e.Node(hs[pos])
	if now != before[wasPos] {
		return fail(a, expected, "a different instance")
	}
	return nil
}

// assertOutput checks every sample of the last rendered block.
func assertOutput(actx *AssertionContext, a Assertion) error {
	expected := fmt.Sprintf("every sample %g", a.Value)
	if actx == nil || actx.Rendered == 0 {
		return fail(a, expected, "no block rendered")
	}
	tol := a.Tolerance
	if tol == 0 {
		tol = defaultTolerance
	}
	for i, v := range actx.Output {
		if math.Abs(float64(v)-a.Value) > tol {
			return fail(a, expected, fmt.Sprintf("sample %d is %g", i, v))
		}
	}
	return nil
}

// assertPlanContains checks that some committed edit's plan has the line.
func assertPlanContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Kind == KindEdit && slices.Contains(ev.Plan, a.Line) {
			return nil
		}
	}
	return fail(a, fmt.Sprintf("plan line %q", a.Line), "not found in trace")
}

// assertJournal compares the journal's cycle counts.
func assertJournal(actx *AssertionContext, a Assertion) error {
	state, err := actx.Store.GetSessionState(actx.Ctx, actx.Session.ID())
	if err != nil {
		return fmt.Errorf("journal assertion: %w", err)
	}
	if state.Committed != a.Committed || state.Rejected != a.Rejected {
		return fail(a,
			fmt.Sprintf("%d committed, %d rejected", a.Committed, a.Rejected),
			fmt.Sprintf("%d committed, %d rejected", state.Committed, state.Rejected))
	}
	return nil
}

func fail(a Assertion, expected, actual string) *AssertionError {
	return &AssertionError{Type: a.Type, Expected: expected, Actual: actual}
}

// ownedBy reports whether label names a node of chain.
func ownedBy(label, chain string) bool {
	return strings.HasPrefix(label, chain+"/")
}
