package store

import (
	"context"
	"fmt"

	"github.com/roach88/patchbay/internal/ir"
)

// SessionState summarizes a session for resumption and replay.
type SessionState struct {
	Session         ir.SessionRecord
	Generations     []ir.GenerationRecord
	Committed       int
	Rejected        int
	LastSeq         int64
	LastGeneration  int64  // Engine generation after the last committed cycle
	LastProgramHash string // Program hash of the last committed cycle
	LastSource      string // Source of the last committed cycle
}

// GetSessionState reads a session and all of its edit cycles.
func (s *Store) GetSessionState(ctx context.Context, sessionID string) (SessionState, error) {
	sess, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return SessionState{}, fmt.Errorf("get session state: %w", err)
	}

	recs, err := s.ReadGenerations(ctx, sessionID)
	if err != nil {
		return SessionState{}, fmt.Errorf("get session state: %w", err)
	}

	state := SessionState{Session: sess, Generations: recs}
	for _, rec := range recs {
		state.LastSeq = rec.Seq
		if !rec.Committed() {
			state.Rejected++
			continue
		}
		state.Committed++
		state.LastGeneration = rec.Generation
		state.LastProgramHash = rec.ProgramHash
		state.LastSource = rec.Source
	}
	return state, nil
}

// CommittedSources returns the committed records of a session in seq
// order: the input for replaying the session through a fresh engine.
func (s *Store) CommittedSources(ctx context.Context, sessionID string) ([]ir.GenerationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, session_id, generation, program_hash, source, status,
		       error_code, error_message, error_details, adds, removes, updates, deletes
		FROM generations
		WHERE session_id = ? AND status = ?
		ORDER BY seq ASC
	`, sessionID, ir.StatusCommitted)
	if err != nil {
		return nil, fmt.Errorf("query committed generations: %w", err)
	}
	defer rows.Close()

	records := []ir.GenerationRecord{}
	for rows.Next() {
		rec, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate committed generations: %w", err)
	}
	return records, nil
}
