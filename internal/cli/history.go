package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/store"
)

// JournalOptions holds the journal flag shared by history and replay.
type JournalOptions struct {
	*RootOptions
	Database string
}

// SessionSummary is one journaled session.
type SessionSummary struct {
	ID             string  `json:"id"`
	EngineVersion  string  `json:"engine_version"`
	SampleRate     float64 `json:"sample_rate"`
	BlockSize      int     `json:"block_size"`
	Committed      int     `json:"committed"`
	Rejected       int     `json:"rejected"`
	LastGeneration int64   `json:"last_generation"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "List journaled sessions and their edit cycles",
		Long: `Without arguments, list every session in the journal with its cycle
counts. With a session ID, list that session's edit cycles in order.

Examples:
  patchbay history --db ./session.db
  patchbay history --db ./session.db 0192f0c4-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runHistorySession(opts, args[0], cmd)
			}
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite journal (default: config journal)")
	return cmd
}

// openJournal opens an existing journal named by --db or the config.
func openJournal(opts *JournalOptions) (*store.Store, error) {
	path := opts.Database
	if path == "" {
		cfg, err := loadConfig(opts.RootOptions)
		if err != nil {
			return nil, err
		}
		path = cfg.Journal
	}
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no journal: pass --db or set journal in the config")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "journal not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return st, nil
}

func runHistory(opts *JournalOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openJournal(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	lines := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		state, err := st.GetSessionState(ctx, sess.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read session %s", sess.ID), err)
		}
		s := SessionSummary{
			ID:             sess.ID,
			EngineVersion:  sess.EngineVersion,
			SampleRate:     sess.SampleRate,
			BlockSize:      sess.BlockSize,
			Committed:      state.Committed,
			Rejected:       state.Rejected,
			LastGeneration: state.LastGeneration,
		}
		summaries = append(summaries, s)
		lines = append(lines, fmt.Sprintf("%s  %.0f Hz/%d  %d committed, %d rejected, generation %d",
			s.ID, s.SampleRate, s.BlockSize, s.Committed, s.Rejected, s.LastGeneration))
	}

	if len(lines) == 0 {
		lines = []string{"No sessions found in journal."}
	}
	return formatter.Lines(lines, summaries)
}

func runHistorySession(opts *JournalOptions, id string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openJournal(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	state, err := st.GetSessionState(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return WrapExitError(ExitCommandError, "session not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	lines := make([]string, 0, len(state.Generations))
	for _, rec := range state.Generations {
		lines = append(lines, cycleLine(rec))
		if opts.Verbose && rec.Committed() {
			for _, l := range strings.Split(strings.TrimRight(rec.Source, "\n"), "\n") {
				lines = append(lines, "    | "+l)
			}
		}
	}
	if len(lines) == 0 {
		lines = []string{"No edit cycles recorded."}
	}
	return formatter.Lines(lines, state.Generations)
}

// cycleLine renders one journaled cycle:
//
//	#3 gen 2 committed 1f0c9a2e41b7 +1 -0 ~1 x0
//	#4 gen 2 rejected REF_UNRESOLVED: chain ~lfo is not defined
func cycleLine(rec ir.GenerationRecord) string {
	if !rec.Committed() {
		return fmt.Sprintf("#%d gen %d rejected %s: %s", rec.Seq, rec.Generation, rec.ErrorCode, rec.ErrorMessage)
	}
	hash := rec.ProgramHash
	if len(hash) > 12 {
		hash = hash[:12]
	}
	s := rec.Summary
	return fmt.Sprintf("#%d gen %d committed %s +%d -%d ~%d x%d",
		rec.Seq, rec.Generation, hash, s.Adds, s.Removes, s.Updates, s.Deletes)
}
