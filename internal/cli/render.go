package cli

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/patchbay/internal/audio"
	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/live"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Output  string
	Seconds float64
	Blocks  int
	WAV     bool
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <program>",
		Short: "Render a program offline",
		Long: `Render a program to mono float32 samples without an audio device.

The output is headerless little-endian float32 unless --wav is set; a
WAV file needs -o because its header is written last. --blocks takes
precedence over --seconds.

Examples:
  patchbay render song.pb --seconds 4 --wav -o song.wav
  patchbay render song.pb --blocks 16 | hexdump -C`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "-", "output file (- for stdout)")
	cmd.Flags().Float64Var(&opts.Seconds, "seconds", 1, "length to render")
	cmd.Flags().IntVar(&opts.Blocks, "blocks", 0, "number of blocks to render")
	cmd.Flags().BoolVar(&opts.WAV, "wav", false, "write a 32-bit float WAV file (requires -o)")
	addEngineFlags(cmd)

	return cmd
}

func runRender(opts *RenderOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := engineConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read program", err)
	}

	blocks := opts.Blocks
	if blocks <= 0 {
		if opts.Seconds <= 0 {
			return NewExitError(ExitCommandError, "nothing to render: --seconds and --blocks are both zero")
		}
		blocks = int(math.Ceil(opts.Seconds * cfg.SampleRate / float64(cfg.BlockSize)))
	}

	if opts.WAV {
		if opts.Output == "-" {
			return NewExitError(ExitCommandError, "--wav needs an output file: pass -o <file>")
		}
		if blocks > audio.MaxWAVFrames/cfg.BlockSize {
			return NewExitError(ExitCommandError, fmt.Sprintf("%d block(s) of %d samples do not fit in a WAV file", blocks, cfg.BlockSize))
		}
	}

	ctx := cmd.Context()
	logger := commandLogger(opts.RootOptions, cmd, cfg)
	sess, err := live.NewSession(ctx, engine.New(engineOptions(cfg, logger)...), live.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start session", err)
	}
	if _, err := sess.Submit(ctx, string(src)); err != nil {
		return formatter.Fail("E_RENDER", fmt.Errorf("%s: %w", path, err))
	}

	if err := writeRender(opts, sess, cfg.SampleRate, cfg.BlockSize, blocks, cmd.OutOrStdout()); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}

	formatter.VerboseLog("rendered %d block(s) of %d samples at %.0f Hz", blocks, cfg.BlockSize, cfg.SampleRate)
	return nil
}

// writeRender renders blocks from src as raw samples to stdout or
// opts.Output, or as a WAV file when opts.WAV is set.
func writeRender(opts *RenderOptions, src audio.BlockSource, sampleRate float64, blockSize, blocks int, stdout io.Writer) (err error) {
	block := make([]float32, blockSize)
	if opts.Output == "-" {
		bw := bufio.NewWriter(stdout)
		if err := audio.Render(src, audio.NewRawSink(bw), block, blocks); err != nil {
			return err
		}
		return bw.Flush()
	}

	f, err := os.Create(opts.Output)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if opts.WAV {
		sink := audio.NewWAVSink(f, sampleRate)
		if err := audio.Render(src, sink, block, blocks); err != nil {
			return err
		}
		return sink.Close()
	}
	bw := bufio.NewWriter(f)
	if err := audio.Render(src, audio.NewRawSink(bw), block, blocks); err != nil {
		return err
	}
	return bw.Flush()
}
