package live

import (
	"context"
	"fmt"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
)

// ReplaySource reads a journaled session. *store.Store is the production
// ReplaySource.
type ReplaySource interface {
	ReadSession(ctx context.Context, id string) (ir.SessionRecord, error)
	CommittedSources(ctx context.Context, sessionID string) ([]ir.GenerationRecord, error)
}

// Mismatch is one difference between a journaled cycle and its replay.
type Mismatch struct {
	Seq        int64
	Generation int64
	Field      string // "status", "generation", "program_hash" or "summary"
	Want       string
	Got        string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("seq %d (generation %d): %s: want %s, got %s", m.Seq, m.Generation, m.Field, m.Want, m.Got)
}

// ReplayResult reports a replay.
type ReplayResult struct {
	SessionID  string
	Replayed   int
	Mismatches []Mismatch
}

// OK reports whether every replayed cycle matched its record.
func (r ReplayResult) OK() bool {
	return len(r.Mismatches) == 0
}

// Replay re-runs the committed cycles of a session through a fresh engine
// built with the session's sample rate and block size, then opts.
//
// Each cycle must commit again with the recorded generation, program hash
// and plan summary. Rejected cycles changed nothing and are not replayed.
func Replay(ctx context.Context, src ReplaySource, sessionID string, opts ...engine.Option) (ReplayResult, error) {
	sess, err := src.ReadSession(ctx, sessionID)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	recs, err := src.CommittedSources(ctx, sessionID)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	eopts := append([]engine.Option{
		engine.WithSampleRate(sess.SampleRate),
		engine.WithBlockSize(sess.BlockSize),
	}, opts...)
	eng := engine.New(eopts...)

	res := ReplayResult{SessionID: sessionID}
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Replayed++

		mismatch := func(field, want, got string) {
			res.Mismatches = append(res.Mismatches, Mismatch{
				Seq: rec.Seq, Generation: rec.Generation, Field: field, Want: want, Got: got,
			})
		}

		eng.SetSource(rec.Source)
		plan, err := eng.Update()
		if err != nil {
			mismatch("status", ir.StatusCommitted, err.Error())
			continue
		}
		if got := eng.Generation(); got != rec.Generation {
			mismatch("generation", fmt.Sprint(rec.Generation), fmt.Sprint(got))
		}
		if got, _ := ir.ProgramHash(eng.Program()); got != rec.ProgramHash {
			mismatch("program_hash", rec.ProgramHash, got)
		}
		if got := plan.Summary(); got != rec.Summary {
			mismatch("summary", fmt.Sprintf("%+v", rec.Summary), fmt.Sprintf("%+v", got))
		}
	}
	return res, nil
}
