package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/patchbay/internal/config"
	"github.com/roach88/patchbay/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // optional CUE config file
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the patchbay CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "patchbay",
		Short: "patchbay - live-codable audio graphs",
		Long: `A live-coding audio engine. Programs are chains of nodes; every edit is
reconciled against the running graph so unchanged nodes keep their state.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to a CUE config file")

	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewPlayCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// loadConfig reads --config, or the defaults when it is unset.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from the config. --verbose forces
// debug level.
func newLogger(w io.Writer, cfg config.Config, verbose bool) *slog.Logger {
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // keeps JSON on stdout clean
		Verbose:   opts.Verbose,
	}
}

// addEngineFlags registers the flags that override engine settings from
// the config file.
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("sample-rate", 0, "sample rate in Hz (overrides config)")
	cmd.Flags().Int("block-size", 0, "samples per block (overrides config)")
}

// engineConfig loads the config and applies the engine flags that were
// set on cmd.
func engineConfig(opts *RootOptions, cmd *cobra.Command) (config.Config, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("sample-rate") {
		cfg.SampleRate, _ = flags.GetFloat64("sample-rate")
	}
	if flags.Changed("block-size") {
		cfg.BlockSize, _ = flags.GetInt("block-size")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

// commandLogger is the logger for one-shot commands: silent unless
// --verbose is set.
func commandLogger(opts *RootOptions, cmd *cobra.Command, cfg config.Config) *slog.Logger {
	if opts.Verbose {
		return newLogger(cmd.ErrOrStderr(), cfg, true)
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// engineOptions builds an engine matching cfg.
func engineOptions(cfg config.Config, logger *slog.Logger) []engine.Option {
	return []engine.Option{
		engine.WithSampleRate(cfg.SampleRate),
		engine.WithBlockSize(cfg.BlockSize),
		engine.WithLogger(logger),
	}
}
