package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/patchbay/internal/ir"
)

func TestReconcile_NewChainIsAllAdds(t *testing.T) {
	plan, err := Reconcile(ir.NewProgram(), mustCompile(t, "a: sin 440 >> mul 0.5"), testFactory())
	require.NoError(t, err)

	require.Len(t, plan.Adds, 2)
	assert.Equal(t, "sin", plan.Adds[0].Name)
	assert.Equal(t, 0, plan.Adds[0].Position)
	assert.Equal(t, "mul", plan.Adds[1].Name)
	assert.Equal(t, 1, plan.Adds[1].Position)
	assert.NotNil(t, plan.Adds[0].Node)
	assert.NotSame(t, plan.Adds[0].Node, plan.Adds[1].Node)
	assert.Empty(t, plan.Removes)
	assert.Empty(t, plan.Updates)
	assert.Empty(t, plan.Deletes)
}

func TestReconcile_IdenticalProgramIsEmpty(t *testing.T) {
	src := "~lfo: sin 2\nout: saw 110 >> lpf ~lfo >> mul 0.3"

	plan, err := Reconcile(mustCompile(t, src), mustCompile(t, src), testFactory())
	require.NoError(t, err)

	assert.True(t, plan.Empty())
	assert.True(t, plan.Summary().Empty())
}

func TestReconcile_ParameterChangeIsUpdate(t *testing.T) {
	prev := mustCompile(t, "a: sin 440 >> mul 0.5")
	next := mustCompile(t, "a: sin 880 >> mul 0.5 >> lpf 2000")

	plan, err := Reconcile(prev, next, testFactory())
	require.NoError(t, err)

	assert.Equal(t, []Update{{Chain: "a", OldPosition: 0, Position: 0, Name: "sin", Clause: ir.NewClause("880")}}, plan.Updates)
	require.Len(t, plan.Adds, 1)
	assert.Equal(t, "lpf", plan.Adds[0].Name)
	assert.Equal(t, 2, plan.Adds[0].Position)
	assert.Empty(t, plan.Removes)
	assert.Empty(t, plan.Deletes)
}

func TestReconcile_CompleteParameterChangeKeepsIdentity(t *testing.T) {
	prev := mustCompile(t, "a: mix ~x ~y")
	next := mustCompile(t, "a: mix ~z")
	prev.Add(ir.Chain{Name: "~x", Nodes: []string{"sig"}, Params: []ir.Clause{ir.NewClause("1")}})

	plan, err := Reconcile(prev, next, testFactory())
	require.NoError(t, err)

	require.Len(t, plan.Updates, 1)
	assert.Empty(t, plan.Adds)
	assert.Empty(t, plan.Removes)
	assert.Equal(t, []string{"~x"}, plan.Deletes)
}

func TestReconcile_UpdateCarriesBothPositions(t *testing.T) {
	prev := mustCompile(t, "a: noise >> sin 1")
	next := mustCompile(t, "a: sin 2")

	plan, err := Reconcile(prev, next, testFactory())
	require.NoError(t, err)

	assert.Equal(t, []Remove{{Chain: "a", Position: 0}}, plan.Removes)
	require.Len(t, plan.Updates, 1)
	assert.Equal(t, 1, plan.Updates[0].OldPosition)
	assert.Equal(t, 0, plan.Updates[0].Position)
}

func TestReconcile_RemovesDescend(t *testing.T) {
	prev := mustCompile(t, "a: sin 1 >> mul 2 >> lpf 100 >> hpf 10\nb: saw 1 >> mul 1")
	next := mustCompile(t, "a: sin 1\nb: saw 1")

	plan, err := Reconcile(prev, next, testFactory())
	require.NoError(t, err)

	assert.Equal(t, []Remove{
		{Chain: "a", Position: 3},
		{Chain: "a", Position: 2},
		{Chain: "a", Position: 1},
		{Chain: "b", Position: 1},
	}, plan.Removes)
}

func TestReconcile_AddsAscend(t *testing.T) {
	prev := mustCompile(t, "a: mul 1")
	next := mustCompile(t, "a: sin 1 >> mul 1 >> lpf 100 >> hpf 10")

	plan, err := Reconcile(prev, next, testFactory())
	require.NoError(t, err)

	var positions []int
	for _, a := range plan.Adds {
		positions = append(positions, a.Position)
	}
	assert.Equal(t, []int{0, 2, 3}, positions)
}

func TestReconcile_DeletesSorted(t *testing.T) {
	prev := mustCompile(t, "c: sin 1\na: sin 1\nb: sin 1\nkeep: sin 1")
	next := mustCompile(t, "keep: sin 1")

	plan, err := Reconcile(prev, next, testFactory())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, plan.Deletes)
	assert.Empty(t, plan.Removes, "deleted chains are not also emptied node by node")
}

func TestReconcile_FactoryErrors(t *testing.T) {
	tests := []struct {
		name     string
		prev     string
		next     string
		code     UpdateErrorCode
		chain    string
		position int
	}{
		{"unknown node in new chain", "", "a: sin 1 >> reverb 2", ErrCodeUnknownNode, "a", 1},
		{"unknown node added", "a: sin 1", "a: sin 1 >> reverb 2", ErrCodeUnknownNode, "a", 1},
		{"bad params on add", "", "a: sin 1 2", ErrCodeBadParams, "a", 0},
		{"bad params on update", "a: sin 1 >> lpf 100", "a: sin 1 >> lpf 0", ErrCodeBadParams, "a", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reconcile(mustCompile(t, tt.prev), mustCompile(t, tt.next), testFactory())
			require.Error(t, err)

			var ue *UpdateError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, tt.code, ue.Code)
			assert.Equal(t, tt.chain, ue.Chain)
			assert.Equal(t, tt.position, ue.Position)
		})
	}
}

func TestPlan_Trace(t *testing.T) {
	prev := mustCompile(t, "a: noise >> sin 440 >> mul 0.5\n~gone: sig 1")
	next := mustCompile(t, "a: sin 880 >> lpf 2000")

	plan, err := Reconcile(prev, next, testFactory())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"delete ~gone",
		"remove a[2]",
		"remove a[0]",
		"add a[1] lpf 2000",
		"update a[0<-1] sin 880",
	}, plan.Trace())
	assert.Equal(t, ir.PlanSummary{Adds: 1, Removes: 2, Updates: 1, Deletes: 1}, plan.Summary())
}
