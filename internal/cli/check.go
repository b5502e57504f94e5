package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
)

// CheckResult describes a program that would commit on an empty engine.
type CheckResult struct {
	File        string   `json:"file"`
	Chains      []string `json:"chains"`
	Nodes       int      `json:"nodes"` // including the aggregation node
	ProgramHash string   `json:"program_hash"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <program>",
		Short: "Parse and validate a program without playing it",
		Long: `Run a full edit cycle for a program against an empty engine.

Reports parse errors with their line and column, unresolved or cyclic
~references, unknown nodes and bad parameters, exactly as a live edit
would be rejected.

Exit codes:
  0 - Program is valid
  1 - Program would be rejected
  2 - Command error (file not found, bad config)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
	addEngineFlags(cmd)
	return cmd
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := engineConfig(opts, cmd)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read program", err)
	}

	e := engine.New(engineOptions(cfg, commandLogger(opts, cmd, cfg))...)
	e.SetSource(string(src))
	if _, err := e.Update(); err != nil {
		return formatter.Fail("E_CHECK", fmt.Errorf("%s: %w", path, err))
	}

	hash, err := ir.ProgramHash(e.Program())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash program", err)
	}
	result := CheckResult{
		File:        path,
		Chains:      e.ChainNames(),
		Nodes:       e.NodeCount(),
		ProgramHash: hash,
	}
	formatter.VerboseLog("program hash %s", hash)

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("✓ %s: %d chain(s), %d node(s)", path, len(result.Chains), result.Nodes))
}
