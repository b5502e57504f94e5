package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/patchbay/internal/ir"
)

// createTestStore creates a new journal in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession writes a session record with default constants.
func createTestSession(t *testing.T, s *Store, id string) ir.SessionRecord {
	t.Helper()
	sess := ir.SessionRecord{
		ID:            id,
		EngineVersion: "0.1.0",
		IRVersion:     "1",
		SampleRate:    48000,
		BlockSize:     128,
	}
	if err := s.WriteSession(context.Background(), sess); err != nil {
		t.Fatalf("WriteSession() failed: %v", err)
	}
	return sess
}

func committed(sessionID string, gen int64, src string, sum ir.PlanSummary) ir.GenerationRecord {
	return ir.GenerationRecord{
		SessionID:   sessionID,
		Generation:  gen,
		ProgramHash: "hash-" + src,
		Source:      src,
		Status:      ir.StatusCommitted,
		Summary:     sum,
	}
}

func rejected(sessionID string, gen int64, src, code string) ir.GenerationRecord {
	return ir.GenerationRecord{
		SessionID:    sessionID,
		Generation:   gen,
		Source:       src,
		Status:       ir.StatusRejected,
		ErrorCode:    code,
		ErrorMessage: "rejected: " + code,
		ErrorDetails: map[string]string{"ref": "~x"},
	}
}
