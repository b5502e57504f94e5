package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/live"
	"github.com/roach88/patchbay/internal/node"
	"github.com/roach88/patchbay/internal/store"
	"github.com/roach88/patchbay/internal/testutil"
)

// DefaultBlockSize is the block size scenarios render with unless they
// set block_size.
const DefaultBlockSize = 8

// Harness runs one scenario.
type Harness struct {
	session *live.Session
	logger  *slog.Logger

	block    []float32 // last rendered block
	rendered int

	// snapshots[i] is the chain index after step i, as node instances.
	snapshots []map[string][]node.Node
}

// Run executes a scenario on a fresh engine and in-memory journal and
// returns the result.
//
// Execution flow:
//  1. Create the engine, journal, and session
//  2. Run each step, checking its expectation
//  3. Evaluate assertions against the final state
//
// The error is non-nil only if the harness itself could not run.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	blockSize := scenario.BlockSize
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	opts := []engine.Option{engine.WithBlockSize(blockSize), engine.WithLogger(logger)}
	if scenario.SampleRate > 0 {
		opts = append(opts, engine.WithSampleRate(scenario.SampleRate))
	}

	ctx := context.Background()
	sess, err := live.NewSession(ctx, engine.New(opts...),
		live.WithJournal(st),
		live.WithLogger(logger),
		live.WithIDGenerator(testutil.FixedID(scenario.SessionID)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	h := &Harness{
		session: sess,
		logger:  logger,
		block:   make([]float32, blockSize),
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
		h.snapshot()
	}

	actx := &AssertionContext{
		Ctx:       ctx,
		Store:     st,
		Session:   sess,
		Snapshots: h.snapshots,
		Output:    h.block,
		Rendered:  h.rendered,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) {
	switch {
	case step.Source != nil:
		h.executeEdit(ctx, i, *step.Source, step.Expect, result)
	case step.Send != nil:
		h.executeSend(i, *step.Send, step.Expect, result)
	default:
		for n := 0; n < step.Render; n++ {
			h.session.Process(h.block)
		}
		h.rendered += step.Render
		result.AddTrace(TraceEvent{Step: i, Kind: KindRender, Blocks: step.Render, Generation: h.generation()})
	}
}

func (h *Harness) executeEdit(ctx context.Context, i int, src string, expect *Expect, result *Result) {
	plan, err := h.session.Submit(ctx, src)

	ev := TraceEvent{Step: i, Kind: KindEdit, Status: StatusCommitted, Generation: h.generation()}
	if err != nil {
		ev.Status = StatusRejected
		ev.Code = string(engine.Code(err))
	} else {
		ev.Plan = plan.Trace()
	}
	result.AddTrace(ev)

	if expect == nil {
		expect = &Expect{Status: StatusCommitted}
	}
	checkOutcome(i, ev, err, expect, result)
	if err == nil && expect.Plan != nil && !slices.Equal(ev.Plan, expect.Plan) {
		result.AddError(fmt.Sprintf("steps[%d]: plan mismatch\n  expected: %q\n  actual:   %q", i, expect.Plan, ev.Plan))
	}
	h.logger.Info("edit step completed", "step", i, "status", ev.Status, "generation", ev.Generation)
}

func (h *Harness) executeSend(i int, send SendStep, expect *Expect, result *Result) {
	msg := node.Message{Param: node.ParamAll, Value: send.Value}
	if send.Param != nil {
		msg.Param = *send.Param
	}
	err := h.session.SendMessage(send.Chain, send.Position, msg)

	ev := TraceEvent{
		Step:       i,
		Kind:       KindSend,
		Status:     StatusOK,
		Target:     fmt.Sprintf("%s[%d]", send.Chain, send.Position),
		Generation: h.generation(),
	}
	if err != nil {
		ev.Status = StatusError
		ev.Code = string(engine.Code(err))
	}
	result.AddTrace(ev)

	if expect == nil {
		expect = &Expect{Status: StatusOK}
	}
	checkOutcome(i, ev, err, expect, result)
}

func checkOutcome(i int, ev TraceEvent, err error, expect *Expect, result *Result) {
	if ev.Status != expect.Status {
		result.AddError(fmt.Sprintf("steps[%d]: expected %s, got %s (%v)", i, expect.Status, ev.Status, err))
		return
	}
	if expect.Code != "" && ev.Code != expect.Code {
		result.AddError(fmt.Sprintf("steps[%d]: expected code %s, got %q (%v)", i, expect.Code, ev.Code, err))
	}
}

func (h *Harness) generation() int64 {
	var gen int64
	h.session.View(func(e *engine.Engine) { gen = e.Generation() })
	return gen
}

// snapshot records the node instances of every chain.
func (h *Harness) snapshot() {
	snap := make(map[string][]node.Node)
	h.session.View(func(e *engine.Engine) {
		for name, hs := range e.Chains() {
			nodes := make([]node.Node, len(hs))
			for k, hd := range hs {
				nodes[k], _ = e.Node(hd)
			}
			snap[name] = nodes
		}
	})
	h.snapshots = append(h.snapshots, snap)
}
