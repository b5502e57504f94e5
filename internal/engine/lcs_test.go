package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func common(o, n int) diffOp { return diffOp{kind: opCommon, old: o, new: n} }
func removed(o int) diffOp   { return diffOp{kind: opRemove, old: o, new: -1} }
func added(n int) diffOp     { return diffOp{kind: opAdd, old: -1, new: n} }

func TestDiffNames(t *testing.T) {
	tests := []struct {
		name string
		old  []string
		next []string
		want []diffOp
	}{
		{"identical", []string{"sin", "mul"}, []string{"sin", "mul"},
			[]diffOp{common(0, 0), common(1, 1)}},
		{"append", []string{"sin", "mul"}, []string{"sin", "mul", "lpf"},
			[]diffOp{common(0, 0), common(1, 1), added(2)}},
		{"prepend", []string{"mul"}, []string{"sin", "mul"},
			[]diffOp{added(0), common(0, 1)}},
		{"drop middle", []string{"sin", "mul", "lpf"}, []string{"sin", "lpf"},
			[]diffOp{common(0, 0), removed(1), common(2, 1)}},
		{"replace removes first", []string{"a", "b", "c"}, []string{"a", "x", "c"},
			[]diffOp{common(0, 0), removed(1), added(1), common(2, 2)}},
		{"swap removes first", []string{"a", "b"}, []string{"b", "a"},
			[]diffOp{removed(0), common(1, 0), added(1)}},
		{"from empty", nil, []string{"sin", "mul"},
			[]diffOp{added(0), added(1)}},
		{"to empty", []string{"sin", "mul"}, nil,
			[]diffOp{removed(0), removed(1)}},
		{"both empty", nil, nil, []diffOp{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, diffNames(tt.old, tt.next))
		})
	}
}

func TestDiffNames_DuplicatesMatchEarliest(t *testing.T) {
	// Dropping one of two identical nodes keeps the first instance.
	assert.Equal(t,
		[]diffOp{common(0, 0), removed(1)},
		diffNames([]string{"sin", "sin"}, []string{"sin"}))

	// A duplicate appended after an existing node is a new instance.
	assert.Equal(t,
		[]diffOp{common(0, 0), added(1)},
		diffNames([]string{"sin"}, []string{"sin", "sin"}))

	assert.Equal(t,
		[]diffOp{common(0, 0), removed(1), common(2, 1), added(2)},
		diffNames([]string{"mul", "add", "mul"}, []string{"mul", "mul", "add"}))
}

func TestDiffNames_CommonIsLongest(t *testing.T) {
	old := []string{"sin", "mul", "lpf", "hpf", "mul", "add"}
	next := []string{"saw", "mul", "hpf", "add", "mul", "lpf"}

	ops := diffNames(old, next)

	var commons, removes, adds int
	lastOld, lastNew := -1, -1
	for _, op := range ops {
		switch op.kind {
		case opCommon:
			commons++
			assert.Equal(t, old[op.old], next[op.new])
			assert.Greater(t, op.old, lastOld)
			assert.Greater(t, op.new, lastNew)
			lastOld, lastNew = op.old, op.new
		case opRemove:
			removes++
		case opAdd:
			adds++
		}
	}
	assert.Equal(t, 3, commons, "LCS of the two sequences has length 3")
	assert.Equal(t, len(old), commons+removes)
	assert.Equal(t, len(next), commons+adds)
}
