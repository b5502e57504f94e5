package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/node"
)

// codeInternal labels errors that are not *engine.UpdateError.
const codeInternal = "INTERNAL"

// Journal records sessions and their edit cycles. *store.Store is the
// production Journal.
type Journal interface {
	WriteSession(ctx context.Context, sess ir.SessionRecord) error
	WriteGeneration(ctx context.Context, rec ir.GenerationRecord) (int64, error)
}

// Session serializes access to one engine.
//
// Thread-safety model:
//   - Submit, SendMessage and View take the edit lock
//   - Process never waits: if the lock is held it outputs silence
//   - Process must be called from one goroutine (the audio callback)
type Session struct {
	id      string
	log     *slog.Logger
	journal Journal
	metrics *Metrics
	ids     IDGenerator

	mu  sync.Mutex
	eng *engine.Engine

	rendered atomic.Int64
	skipped  atomic.Int64
}

// Option configures a Session.
type Option func(*Session)

// WithJournal records every edit cycle in j.
func WithJournal(j Journal) Option {
	return func(s *Session) {
		s.journal = j
	}
}

// WithMetrics reports edits and rendering to m.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithLogger sets the session logger.
//
// Default: slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithIDGenerator sets the session ID source.
//
// Default: UUIDv7Generator
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Session) {
		s.ids = g
	}
}

// NewSession wraps eng. With a journal, the session record is written
// before NewSession returns.
func NewSession(ctx context.Context, eng *engine.Engine, opts ...Option) (*Session, error) {
	s := &Session{
		log: slog.Default(),
		ids: UUIDv7Generator{},
		eng: eng,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.id = s.ids.Generate()
	s.log = s.log.With("session", s.id)

	if s.journal != nil {
		ectx := eng.Context()
		err := s.journal.WriteSession(ctx, ir.SessionRecord{
			ID:            s.id,
			EngineVersion: ir.EngineVersion,
			IRVersion:     ir.IRVersion,
			SampleRate:    ectx.SampleRate,
			BlockSize:     ectx.BlockSize,
		})
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Submit runs one edit cycle on src and journals the outcome.
//
// The returned error is the edit cycle's; a journal failure is logged and
// counted but does not undo a committed cycle.
func (s *Session) Submit(ctx context.Context, src string) (*engine.Plan, error) {
	s.mu.Lock()
	start := time.Now()
	s.eng.SetSource(src)
	next, plan, err := s.eng.Parse()
	var hash string
	if err == nil {
		hash = s.programHash(next)
		err = s.eng.MakeGraph(next, plan)
	}
	elapsed := time.Since(start)
	gen := s.eng.Generation()
	nodes := s.eng.NodeCount()
	s.mu.Unlock()

	s.metrics.observeEdit(plan, err, elapsed, gen, nodes)
	if err != nil {
		plan = nil
		s.log.Warn("edit rejected", "generation", gen, "code", errorCode(err), "error", err)
	}

	if s.journal != nil {
		rec := generationRecord(s.id, gen, hash, src, plan, err)
		if _, jerr := s.journal.WriteGeneration(ctx, rec); jerr != nil {
			s.metrics.observeJournalError()
			s.log.Error("journal write failed", "generation", gen, "error", jerr)
		}
	}
	return plan, err
}

// Process renders one block into out. If an edit cycle holds the lock,
// out is filled with silence instead and the block counts as skipped.
//
// out should have the engine's block size; samples past it are zeroed.
func (s *Session) Process(out []float32) {
	if !s.mu.TryLock() {
		clear(out)
		s.skipped.Add(1)
		s.metrics.observeBlock(true)
		return
	}
	n := copy(out, s.eng.RenderBlock())
	s.mu.Unlock()

	clear(out[n:])
	s.rendered.Add(1)
	s.metrics.observeBlock(false)
}

// SendMessage delivers msg to the node at position in chain.
// See engine.Engine.SendMessage.
func (s *Session) SendMessage(chain string, position int, msg node.Message) error {
	s.mu.Lock()
	err := s.eng.SendMessage(chain, position, msg)
	s.mu.Unlock()

	s.metrics.observeMessage(err)
	return err
}

// View calls fn with the engine under the edit lock. fn must not retain
// the engine.
func (s *Session) View(fn func(e *engine.Engine)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.eng)
}

// Stats reports how many blocks Process rendered and skipped.
func (s *Session) Stats() (rendered, skipped int64) {
	return s.rendered.Load(), s.skipped.Load()
}

func (s *Session) programHash(p ir.Program) string {
	h, err := ir.ProgramHash(p)
	if err != nil {
		s.log.Warn("program hash failed", "error", err)
		return ""
	}
	return h
}

func generationRecord(session string, gen int64, hash, src string, plan *engine.Plan, err error) ir.GenerationRecord {
	rec := ir.GenerationRecord{
		SessionID:   session,
		Generation:  gen,
		ProgramHash: hash,
		Source:      src,
		Status:      ir.StatusCommitted,
	}
	if err == nil {
		rec.Summary = plan.Summary()
		return rec
	}
	rec.Status = ir.StatusRejected
	rec.ErrorCode = errorCode(err)
	rec.ErrorMessage = err.Error()
	var ue *engine.UpdateError
	if errors.As(err, &ue) {
		rec.ErrorDetails = ue.Details
	}
	return rec
}

func errorCode(err error) string {
	if c := engine.Code(err); c != "" {
		return string(c)
	}
	return codeInternal
}
