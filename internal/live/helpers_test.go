package live

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/testutil"
)

const (
	testBlockSize = 8
	testSessionID = "0190c5b2-0000-7000-8000-000000000001"
)

var errJournalDown = errors.New("journal down")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine() *engine.Engine {
	return engine.New(
		engine.WithBlockSize(testBlockSize),
		engine.WithLogger(discardLogger()),
	)
}

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{
		WithLogger(discardLogger()),
		WithIDGenerator(testutil.FixedID(testSessionID)),
	}, opts...)
	s, err := NewSession(context.Background(), newTestEngine(), opts...)
	require.NoError(t, err)
	return s
}

// memJournal records writes in memory.
type memJournal struct {
	mu          sync.Mutex
	sessions    []ir.SessionRecord
	generations []ir.GenerationRecord
	failWrites  bool
}

func (j *memJournal) WriteSession(_ context.Context, sess ir.SessionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.failWrites {
		return errJournalDown
	}
	j.sessions = append(j.sessions, sess)
	return nil
}

func (j *memJournal) WriteGeneration(_ context.Context, rec ir.GenerationRecord) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.failWrites {
		return 0, errJournalDown
	}
	rec.Seq = int64(len(j.generations) + 1)
	j.generations = append(j.generations, rec)
	return rec.Seq, nil
}

func (j *memJournal) records() []ir.GenerationRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]ir.GenerationRecord(nil), j.generations...)
}

func filled(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}
