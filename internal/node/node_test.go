package node

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/patchbay/internal/ir"
)

func mustMake(t *testing.T, ctx Context, name, clause string) Node {
	t.Helper()
	n, err := Builtins(ctx).Make(name, ir.NewClause(clause))
	require.NoError(t, err)
	return n
}

func assertBlock(t *testing.T, want, got []float32) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "sample %d", i)
	}
}

func TestSine(t *testing.T) {
	n := mustMake(t, Context{SampleRate: 4}, "sin", "1")
	out := make([]float32, 4)

	n.Process(nil, out)

	assertBlock(t, []float32{0, 1, 0, -1}, out)
}

func TestSendKeepsPhase(t *testing.T) {
	n := mustMake(t, Context{SampleRate: 8}, "sin", "1")
	out := make([]float32, 2)
	n.Process(nil, out)

	require.NoError(t, n.Send(Message{Param: ParamAll, Value: "2"}))
	n.Process(nil, out)

	// Phase continues from 0.25 at the new frequency.
	assertBlock(t, []float32{1, float32(math.Sin(2 * math.Pi * 0.5))}, out)
}

func TestSendSingleParam(t *testing.T) {
	n := mustMake(t, DefaultContext, "mul", "2").(*mul)

	require.NoError(t, n.Send(Message{Param: 0, Value: "3"}))
	assert.Equal(t, float32(3), n.Param(0).Value)

	require.NoError(t, n.Send(Message{Param: 0, Value: "~lfo"}))
	assert.True(t, n.Param(0).IsRef())
	assert.Equal(t, "~lfo", n.Param(0).Ref)
}

func TestSendRejectsAndKeepsParams(t *testing.T) {
	n := mustMake(t, DefaultContext, "lpf", "1000").(*lowPass)

	err := n.Send(Message{Param: 1, Value: "2"})
	assert.ErrorContains(t, err, "no such argument")

	err = n.Send(Message{Param: 0, Value: "abc"})
	assert.Error(t, err)

	err = n.Send(Message{Param: ParamAll, Value: "1000 2"})
	assert.Error(t, err)

	assert.Equal(t, float32(1000), n.Param(0).Value, "failed sends change nothing")
}

func TestSawAndSquare(t *testing.T) {
	ctx := Context{SampleRate: 4}
	out := make([]float32, 4)

	mustMake(t, ctx, "saw", "1").Process(nil, out)
	assertBlock(t, []float32{-1, -0.5, 0, 0.5}, out)

	mustMake(t, ctx, "squ", "1").Process(nil, out)
	assertBlock(t, []float32{1, 1, -1, -1}, out)
}

func TestNoiseIsSeeded(t *testing.T) {
	a := make([]float32, 64)
	b := make([]float32, 64)
	c := make([]float32, 64)

	mustMake(t, DefaultContext, "noise", "7").Process(nil, a)
	mustMake(t, DefaultContext, "noise", "7").Process(nil, b)
	mustMake(t, DefaultContext, "noise", "").Process(nil, c)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	for _, v := range a {
		assert.True(t, v >= -1 && v < 1, "sample %v out of range", v)
	}
}

func TestSigReadsReference(t *testing.T) {
	n := mustMake(t, DefaultContext, "sig", "~lfo")
	out := make([]float32, 3)

	n.Process([][]float32{{1, 2, 3}}, out)

	assertBlock(t, []float32{1, 2, 3}, out)
}

func TestMul(t *testing.T) {
	out := make([]float32, 3)

	mustMake(t, DefaultContext, "mul", "0.5").Process([][]float32{{2, 4, 6}}, out)
	assertBlock(t, []float32{1, 2, 3}, out)

	// Source first, then the referenced chain.
	mustMake(t, DefaultContext, "mul", "~env").Process([][]float32{{2, 4, 6}, {0, 1, 2}}, out)
	assertBlock(t, []float32{0, 4, 12}, out)

	mustMake(t, DefaultContext, "mul", "2").Process(nil, out)
	assertBlock(t, []float32{0, 0, 0}, out)
}

func TestAdd(t *testing.T) {
	out := make([]float32, 2)

	mustMake(t, DefaultContext, "add", "1").Process([][]float32{{1, 2}}, out)
	assertBlock(t, []float32{2, 3}, out)

	mustMake(t, DefaultContext, "add", "1").Process(nil, out)
	assertBlock(t, []float32{1, 1}, out)
}

func TestMix(t *testing.T) {
	out := make([]float32, 2)
	n := mustMake(t, DefaultContext, "mix", "~a ~b")

	n.Process([][]float32{{1, 1}, {2, 3}}, out)
	assertBlock(t, []float32{3, 4}, out)

	n.Process([][]float32{{10, 10}, {1, 1}, {2, 3}}, out)
	assertBlock(t, []float32{13, 14}, out)
}

func TestUnconnectedReferenceIsSilent(t *testing.T) {
	out := make([]float32, 2)

	mustMake(t, DefaultContext, "sig", "~gone").Process(nil, out)

	assertBlock(t, []float32{0, 0}, out)
}

func TestLowPassConverges(t *testing.T) {
	n := mustMake(t, Context{SampleRate: 48000}, "lpf", "1000")
	in := [][]float32{{1, 1, 1, 1, 1, 1, 1, 1}}
	out := make([]float32, 8)

	n.Process(in, out)

	for i := 1; i < len(out); i++ {
		assert.Greater(t, out[i], out[i-1])
		assert.Less(t, out[i], float32(1))
	}
}

func TestHighPassRemovesDC(t *testing.T) {
	n := mustMake(t, Context{SampleRate: 48000}, "hpf", "1000")
	in := [][]float32{{1, 1, 1, 1, 1, 1, 1, 1}}
	out := make([]float32, 8)

	n.Process(in, out)

	for i := 1; i < len(out); i++ {
		assert.Less(t, out[i], out[i-1])
		assert.Greater(t, out[i], float32(0))
	}
}

func TestFilterStateSurvivesUpdate(t *testing.T) {
	n := mustMake(t, Context{SampleRate: 48000}, "lpf", "1000")
	in := [][]float32{{1, 1, 1, 1}}
	out := make([]float32, 4)
	n.Process(in, out)
	last := out[3]

	require.NoError(t, n.Send(ClauseMessage(ir.NewClause("2000"))))
	n.Process(in, out)

	assert.Greater(t, out[0], last, "filter memory is kept across the update")
}

func TestDelay(t *testing.T) {
	n := mustMake(t, Context{SampleRate: 48000}, "delayn", "2")
	out := make([]float32, 4)

	n.Process([][]float32{{1, 2, 3, 4}}, out)
	assertBlock(t, []float32{0, 0, 1, 2}, out)

	n.Process([][]float32{{5, 6, 7, 8}}, out)
	assertBlock(t, []float32{3, 4, 5, 6}, out)
}

func TestDelayGrowKeepsHistory(t *testing.T) {
	n := mustMake(t, Context{SampleRate: 2}, "delayn", "1")
	out := make([]float32, 2)
	n.Process([][]float32{{1, 2}}, out)
	assertBlock(t, []float32{0, 1}, out)

	require.NoError(t, n.Send(Message{Param: 0, Value: "4"}))
	out = make([]float32, 4)
	n.Process([][]float32{{3, 4, 5, 6}}, out)

	assertBlock(t, []float32{0, 0, 1, 2}, out)
}

func TestSum(t *testing.T) {
	s := NewSum()
	out := []float32{9, 9}

	s.Process(nil, out)
	assertBlock(t, []float32{0, 0}, out)

	s.Process([][]float32{{1, 2}, {3, 4}}, out)
	assertBlock(t, []float32{4, 6}, out)

	assert.ErrorIs(t, s.Send(Message{}), ErrNoParams)
}
