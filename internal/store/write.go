package store

import (
	"context"
	"fmt"

	"github.com/roach88/patchbay/internal/ir"
)

// WriteSession inserts a session record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a session reopened with
// the same ID keeps its original row.
func (s *Store) WriteSession(ctx context.Context, sess ir.SessionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, engine_version, ir_version, sample_rate, block_size)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.EngineVersion,
		sess.IRVersion,
		sess.SampleRate,
		sess.BlockSize,
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteGeneration appends one edit cycle to the journal and returns the
// seq it was assigned. rec.Seq is ignored.
//
// Note: The session referenced by SessionID must exist (foreign key constraint).
func (s *Store) WriteGeneration(ctx context.Context, rec ir.GenerationRecord) (int64, error) {
	if rec.Status != ir.StatusCommitted && rec.Status != ir.StatusRejected {
		return 0, fmt.Errorf("write generation: invalid status %q", rec.Status)
	}

	details, err := marshalDetails(rec.ErrorDetails)
	if err != nil {
		return 0, fmt.Errorf("write generation: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO generations
		(session_id, generation, program_hash, source, status,
		 error_code, error_message, error_details, adds, removes, updates, deletes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.SessionID,
		rec.Generation,
		rec.ProgramHash,
		rec.Source,
		rec.Status,
		rec.ErrorCode,
		rec.ErrorMessage,
		details,
		rec.Summary.Adds,
		rec.Summary.Removes,
		rec.Summary.Updates,
		rec.Summary.Deletes,
	)
	if err != nil {
		return 0, fmt.Errorf("write generation: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("write generation: %w", err)
	}
	return seq, nil
}
