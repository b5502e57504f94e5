package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/patchbay/internal/ir"
)

// ReadSession returns one session. Returns ErrNotFound if it does not exist.
func (s *Store) ReadSession(ctx context.Context, id string) (ir.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, engine_version, ir_version, sample_rate, block_size
		FROM sessions
		WHERE id = ?
	`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.SessionRecord{}, fmt.Errorf("read session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.SessionRecord{}, fmt.Errorf("read session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns every session, oldest first.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ListSessions(ctx context.Context) ([]ir.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, engine_version, ir_version, sample_rate, block_size
		FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []ir.SessionRecord{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// LatestSession returns the most recently started session. Returns
// ErrNotFound if the journal is empty.
func (s *Store) LatestSession(ctx context.Context) (ir.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, engine_version, ir_version, sample_rate, block_size
		FROM sessions
		ORDER BY id COLLATE BINARY DESC
		LIMIT 1
	`)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.SessionRecord{}, fmt.Errorf("latest session: %w", ErrNotFound)
	}
	if err != nil {
		return ir.SessionRecord{}, fmt.Errorf("latest session: %w", err)
	}
	return sess, nil
}

// ReadGenerations returns every edit cycle of a session in seq order.
//
// Returns an empty slice (not nil) if the session has no cycles.
func (s *Store) ReadGenerations(ctx context.Context, sessionID string) ([]ir.GenerationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, session_id, generation, program_hash, source, status,
		       error_code, error_message, error_details, adds, removes, updates, deletes
		FROM generations
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query generations: %w", err)
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
		return nil, fmt.Errorf("iterate generations: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (ir.SessionRecord, error) {
	var sess ir.SessionRecord
	err := row.Scan(&sess.ID, &sess.EngineVersion, &sess.IRVersion, &sess.SampleRate, &sess.BlockSize)
	return sess, err
}

func scanGeneration(row scanner) (ir.GenerationRecord, error) {
	var (
		rec     ir.GenerationRecord
		details string
	)
	err := row.Scan(
		&rec.Seq,
		&rec.SessionID,
		&rec.Generation,
		&rec.ProgramHash,
		&rec.Source,
		&rec.Status,
		&rec.ErrorCode,
		&rec.ErrorMessage,
		&details,
		&rec.Summary.Adds,
		&rec.Summary.Removes,
		&rec.Summary.Updates,
		&rec.Summary.Deletes,
	)
	if err != nil {
		return ir.GenerationRecord{}, fmt.Errorf("scan generation: %w", err)
	}
	rec.ErrorDetails, err = unmarshalDetails(details)
	if err != nil {
		return ir.GenerationRecord{}, fmt.Errorf("scan generation %d: %w", rec.Seq, err)
	}
	return rec, nil
}
