package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/live"
	"github.com/roach88/patchbay/internal/store"
)

// ReplayOptions are the replay command's flags.
type ReplayOptions struct {
	JournalOptions
	SessionID string // empty replays every session
}

// ReplaySessionResult is the verdict for one journaled session.
type ReplaySessionResult struct {
	SessionID     string   `json:"session_id"`
	Replayed      int      `json:"replayed"`
	Deterministic bool     `json:"deterministic"`
	Mismatches    []string `json:"mismatches,omitempty"`
}

// ReplayResult aggregates a replay run.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand returns the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{JournalOptions: JournalOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay journaled sessions and verify determinism",
		Long: `Re-run every committed edit cycle of a session through a fresh engine
and check that each one commits again with the journaled generation,
program hash and plan summary.

Exits 1 when any session diverges from its journal and 2 when the
journal cannot be opened.

Examples:
  patchbay replay --db ./session.db
  patchbay replay --db ./session.db --session 0192f0c4-...
  patchbay replay --db ./session.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite journal (default: config journal)")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openJournal(&opts.JournalOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	var ids []string
	if opts.SessionID != "" {
		ids = []string{opts.SessionID}
	} else {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		for _, s := range sessions {
			ids = append(ids, s.ID)
		}
	}

	if len(ids) == 0 && opts.Format != "json" {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions found in journal.")
		return nil
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(ids)),
		TotalSessions:    len(ids),
		AllDeterministic: true,
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger := commandLogger(opts.RootOptions, cmd, cfg)

	for _, id := range ids {
		sessionResult, err := replaySession(ctx, st, id, engine.WithLogger(logger))
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", id), err)
		}

		result.Sessions = append(result.Sessions, sessionResult)
		if !sessionResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	return reportReplay(cmd, opts.Format, result, opts.Verbose)
}

func replaySession(ctx context.Context, st *store.Store, id string, opts ...engine.Option) (ReplaySessionResult, error) {
	r, err := live.Replay(ctx, st, id, opts...)
	if err != nil {
		return ReplaySessionResult{}, err
	}
	out := ReplaySessionResult{
		SessionID:     r.SessionID,
		Replayed:      r.Replayed,
		Deterministic: r.OK(),
	}
	for _, m := range r.Mismatches {
		out.Mismatches = append(out.Mismatches, m.String())
	}
	return out, nil
}

// reportReplay prints the per-session verdicts, or the whole result as a
// JSON envelope. Any diverging session makes it return ExitFailure.
func reportReplay(cmd *cobra.Command, format string, result ReplayResult, verbose bool) error {
	var failure *ExitError
	if !result.AllDeterministic {
		failure = NewExitError(ExitFailure, "determinism verification failed")
	}

	w := cmd.OutOrStdout()
	if format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if failure != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_DETERMINISM", Message: failure.Message}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(w, "Replay Summary: %d session(s)\n\n", result.TotalSessions)
		for _, s := range result.Sessions {
			printReplayedSession(w, s, verbose)
		}
		if failure == nil {
			fmt.Fprintln(w, "✓ All sessions verified deterministic")
		} else {
			fmt.Fprintln(w, "✗ Determinism verification failed")
		}
	}

	if failure != nil {
		return failure
	}
	return nil
}

// printReplayedSession shows at most three mismatches unless verbose.
func printReplayedSession(w io.Writer, s ReplaySessionResult, verbose bool) {
	mark := "✓"
	if !s.Deterministic {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s Session: %s\n", mark, s.SessionID)
	fmt.Fprintf(w, "  Replayed: %d committed cycle(s)\n", s.Replayed)

	shown := s.Mismatches
	if !verbose && len(shown) > 3 {
		shown = shown[:3]
	}
	for _, m := range shown {
		fmt.Fprintf(w, "  %s\n", m)
	}
	if hidden := len(s.Mismatches) - len(shown); hidden > 0 {
		fmt.Fprintf(w, "  ... %d more (use --verbose)\n", hidden)
	}
	fmt.Fprintln(w)
}
