package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
)

// PlanResult is the mutation plan between two programs.
type PlanResult struct {
	From    string         `json:"from"`
	To      string         `json:"to"`
	Trace   []string       `json:"trace"`
	Summary ir.PlanSummary `json:"summary"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <from> <to>",
		Short: "Show the edit plan between two programs",
		Long: `Commit <from> on a fresh engine, then reconcile <to> against it and
print the plan one operation per line, in execution order:

  delete <chain>
  remove <chain>[<pos>]
  add <chain>[<pos>] <node> <args>
  update <chain>[<pos>] <node> <args>

Exit codes:
  0 - Both programs are valid
  1 - Either program would be rejected
  2 - Command error (file not found, bad config)

Example:
  patchbay plan before.pb after.pb`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(rootOpts, args[0], args[1], cmd)
		},
	}
	addEngineFlags(cmd)
	return cmd
}

func runPlan(opts *RootOptions, fromPath, toPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := engineConfig(opts, cmd)
	if err != nil {
		return err
	}
	from, err := os.ReadFile(fromPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read program", err)
	}
	to, err := os.ReadFile(toPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read program", err)
	}

	e := engine.New(engineOptions(cfg, commandLogger(opts, cmd, cfg))...)
	e.SetSource(string(from))
	if _, err := e.Update(); err != nil {
		return formatter.Fail("E_PLAN", fmt.Errorf("%s: %w", fromPath, err))
	}
	e.SetSource(string(to))
	plan, err := e.Update()
	if err != nil {
		return formatter.Fail("E_PLAN", fmt.Errorf("%s: %w", toPath, err))
	}

	result := PlanResult{From: fromPath, To: toPath, Trace: plan.Trace(), Summary: plan.Summary()}
	if plan.Empty() {
		return formatter.Lines([]string{"no changes"}, result)
	}
	return formatter.Lines(result.Trace, result)
}
