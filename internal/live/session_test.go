package live

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/node"
)

func TestSubmitCommits(t *testing.T) {
	s := newTestSession(t)

	plan, err := s.Submit(context.Background(), "a: sin 440 >> mul 0.5")
	require.NoError(t, err)
	assert.Len(t, plan.Adds, 2)

	s.View(func(e *engine.Engine) {
		assert.Equal(t, int64(1), e.Generation())
		assert.Equal(t, 3, e.NodeCount())
	})
}

func TestSubmitResubmitIsEmpty(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	_, err := s.Submit(ctx, "a: sin 440")
	require.NoError(t, err)
	plan, err := s.Submit(ctx, "a: sin 440")
	require.NoError(t, err)
	assert.True(t, plan.Empty())
}

func TestSubmitRejectedReturnsNilPlan(t *testing.T) {
	s := newTestSession(t)

	plan, err := s.Submit(context.Background(), "a: sin 1 >> lpf ~missing")
	require.Error(t, err)
	assert.Nil(t, plan)
	assert.Equal(t, engine.ErrCodeRefUnresolved, engine.Code(err))
}

func TestNewSessionWritesSessionRecord(t *testing.T) {
	j := &memJournal{}
	s := newTestSession(t, WithJournal(j))

	require.Len(t, j.sessions, 1)
	sess := j.sessions[0]
	assert.Equal(t, testSessionID, s.ID())
	assert.Equal(t, testSessionID, sess.ID)
	assert.Equal(t, ir.EngineVersion, sess.EngineVersion)
	assert.Equal(t, ir.IRVersion, sess.IRVersion)
	assert.Equal(t, float64(engine.DefaultSampleRate), sess.SampleRate)
	assert.Equal(t, testBlockSize, sess.BlockSize)
}

func TestNewSessionJournalError(t *testing.T) {
	j := &memJournal{failWrites: true}
	_, err := NewSession(context.Background(), newTestEngine(),
		WithLogger(discardLogger()), WithJournal(j))
	assert.ErrorIs(t, err, errJournalDown)
}

func TestSubmitJournalsEveryCycle(t *testing.T) {
	j := &memJournal{}
	s := newTestSession(t, WithJournal(j))
	ctx := context.Background()

	_, err := s.Submit(ctx, "a: sin 440 >> mul 0.5")
	require.NoError(t, err)
	_, err = s.Submit(ctx, "a: sin 1 >> >> mul 2")
	require.Error(t, err)
	_, err = s.Submit(ctx, "a: sin 880 >> mul 0.5 >> lpf ~nowhere")
	require.Error(t, err)
	_, err = s.Submit(ctx, "a: sin 880 >> mul 0.5 >> lpf 2000")
	require.NoError(t, err)

	recs := j.records()
	require.Len(t, recs, 4)

	committed := recs[0]
	assert.Equal(t, ir.StatusCommitted, committed.Status)
	assert.Equal(t, testSessionID, committed.SessionID)
	assert.Equal(t, int64(1), committed.Generation)
	assert.Len(t, committed.ProgramHash, 64)
	assert.Equal(t, ir.PlanSummary{Adds: 2}, committed.Summary)

	parseFail := recs[1]
	assert.Equal(t, ir.StatusRejected, parseFail.Status)
	assert.Equal(t, string(engine.ErrCodeParseFailed), parseFail.ErrorCode)
	assert.Empty(t, parseFail.ProgramHash, "nothing to hash when parsing fails")
	assert.Equal(t, int64(1), parseFail.Generation, "rejections do not advance the generation")
	assert.True(t, parseFail.Summary.Empty())

	refFail := recs[2]
	assert.Equal(t, string(engine.ErrCodeRefUnresolved), refFail.ErrorCode)
	assert.Len(t, refFail.ProgramHash, 64)
	assert.Equal(t, "~nowhere", refFail.ErrorDetails["ref"])
	assert.NotEmpty(t, refFail.ErrorMessage)

	edit := recs[3]
	assert.Equal(t, int64(2), edit.Generation)
	assert.Equal(t, ir.PlanSummary{Adds: 1, Updates: 1}, edit.Summary)
}

func TestJournalFailureKeepsCommit(t *testing.T) {
	j := &memJournal{}
	m := NewMetrics(prometheus.NewRegistry())
	s := newTestSession(t, WithJournal(j), WithMetrics(m))
	j.failWrites = true

	plan, err := s.Submit(context.Background(), "a: sig 1")
	require.NoError(t, err)
	assert.Len(t, plan.Adds, 1)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.journalErrors))
}

func TestProcessRenders(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Submit(context.Background(), "a: sig 0.5")
	require.NoError(t, err)

	out := make([]float32, testBlockSize)
	s.Process(out)
	assert.Equal(t, filled(testBlockSize, 0.5), out)

	rendered, skipped := s.Stats()
	assert.Equal(t, int64(1), rendered)
	assert.Equal(t, int64(0), skipped)
}

func TestProcessZeroesTail(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Submit(context.Background(), "a: sig 0.5")
	require.NoError(t, err)

	out := filled(testBlockSize+4, 9)
	s.Process(out)
	assert.Equal(t, filled(testBlockSize, 0.5), out[:testBlockSize])
	assert.Equal(t, filled(4, 0), out[testBlockSize:])
}

func TestProcessSkipsWhileEditLockHeld(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	s := newTestSession(t, WithMetrics(m))
	_, err := s.Submit(context.Background(), "a: sig 0.5")
	require.NoError(t, err)

	s.mu.Lock()
	out := filled(testBlockSize, 9)
	s.Process(out)
	s.mu.Unlock()

	assert.Equal(t, filled(testBlockSize, 0), out, "skipped block is silence")
	rendered, skipped := s.Stats()
	assert.Equal(t, int64(0), rendered)
	assert.Equal(t, int64(1), skipped)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.skippedBlocks))

	s.Process(out)
	assert.Equal(t, filled(testBlockSize, 0.5), out)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.blocks))
}

func TestSessionSendMessage(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	s := newTestSession(t, WithMetrics(m))
	_, err := s.Submit(context.Background(), "a: sig 0.5")
	require.NoError(t, err)

	require.NoError(t, s.SendMessage("a", 0, node.Message{Param: 0, Value: "0.25"}))
	out := make([]float32, testBlockSize)
	s.Process(out)
	assert.Equal(t, filled(testBlockSize, 0.25), out)

	err = s.SendMessage("b", 0, node.Message{Param: 0, Value: "1"})
	assert.True(t, engine.IsNotFound(err))

	assert.Equal(t, 1.0, promtest.ToFloat64(m.messages.WithLabelValues("ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.messages.WithLabelValues("error")))
}

func TestSessionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := newTestSession(t, WithMetrics(m))
	ctx := context.Background()

	_, err := s.Submit(ctx, "a: sin 440 >> mul 0.5")
	require.NoError(t, err)
	_, err = s.Submit(ctx, "a: nope")
	require.Error(t, err)
	_, err = s.Submit(ctx, "b: saw 110")
	require.NoError(t, err)

	assert.Equal(t, 2.0, promtest.ToFloat64(m.edits.WithLabelValues("committed")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.edits.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.rejections.WithLabelValues(string(engine.ErrCodeUnknownNode))))
	assert.Equal(t, 3.0, promtest.ToFloat64(m.planOps.WithLabelValues("add")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.planOps.WithLabelValues("delete")))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.generation))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.nodes))

	n, err := promtest.GatherAndCount(reg, "patchbay_edit_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeEdit(nil, assert.AnError, 0, 0, 0)
		m.observeBlock(true)
		m.observeMessage(nil)
		m.observeJournalError()
	})
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", errorCode(engine.NewNotFoundError("a", 0)))
	assert.Equal(t, codeInternal, errorCode(assert.AnError))
}
