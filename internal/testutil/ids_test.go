package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceIDs_InOrder(t *testing.T) {
	gen := NewSequenceIDs("s-1", "s-2", "s-3")

	assert.Equal(t, "s-1", gen.Generate())
	assert.Equal(t, "s-2", gen.Generate())
	assert.Equal(t, "s-3", gen.Generate())
}

func TestSequenceIDs_PanicsWhenExhausted(t *testing.T) {
	gen := NewSequenceIDs("only")
	gen.Generate()

	assert.PanicsWithValue(t, "SequenceIDs: all 1 IDs used", func() {
		gen.Generate()
	})
}

func TestSequenceIDs_ThreadSafe(t *testing.T) {
	const n = 200
	ids := make([]string, n)
	for i := range ids {
		ids[i] = string(rune('a'+i%26)) + string(rune('0'+i/26))
	}
	gen := NewSequenceIDs(ids...)

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < n/10; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, n, "every ID handed out exactly once")
}

func TestFixedID(t *testing.T) {
	assert.Equal(t, "abc", FixedID("abc").Generate())
	assert.Equal(t, "abc", FixedID("abc").Generate())
	assert.Equal(t, DefaultSessionID, FixedID("").Generate())
}
