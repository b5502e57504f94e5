package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/patchbay/internal/audio"
	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/live"
	"github.com/roach88/patchbay/internal/store"
)

// Player is an opened audio output.
type Player interface {
	Info() string
	Run(ctx context.Context) error
	Close() error
}

// OpenPlayerFunc opens an audio output that pulls blocks from src.
type OpenPlayerFunc func(src audio.BlockSource, sampleRate float64, blockSize, channels int) (Player, error)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Journal     string
	MetricsAddr string
	Channels    int
	NoWatch     bool

	// OpenPlayer allows overriding the audio output (for testing).
	// If nil, defaults to the PortAudio default device.
	OpenPlayer OpenPlayerFunc
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	return newPlayCommand(&PlayOptions{RootOptions: rootOpts})
}

func newPlayCommand(opts *PlayOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <program>",
		Short: "Play a program and re-apply it on every save",
		Long: `Play a program on the default audio device.

The program file is watched; every save is submitted as an edit cycle.
Rejected edits are logged and the previous graph keeps playing. With a
journal, every cycle is recorded for history and replay.

Example:
  patchbay play song.pb --journal ./session.db
  patchbay play song.pb --metrics-addr :9464 --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite journal path (overrides config)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")
	cmd.Flags().IntVar(&opts.Channels, "channels", 2, "output channels")
	cmd.Flags().BoolVar(&opts.NoWatch, "no-watch", false, "play without watching the file")
	addEngineFlags(cmd)

	return cmd
}

func runPlay(opts *PlayOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := engineConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	if opts.Journal != "" {
		cfg.Journal = opts.Journal
	}
	if opts.MetricsAddr != "" {
		cfg.MetricsAddr = opts.MetricsAddr
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg, opts.Verbose)
	slog.SetDefault(logger)

	src, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read program", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	sopts := []live.Option{live.WithLogger(logger), live.WithMetrics(live.NewMetrics(reg))}

	if cfg.Journal != "" {
		slog.Info("opening journal", "path", cfg.Journal)
		st, err := store.Open(cfg.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing journal", "error", closeErr)
			}
		}()
		sopts = append(sopts, live.WithJournal(st))
	}

	sess, err := live.NewSession(ctx, engine.New(engineOptions(cfg, logger)...), sopts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start session", err)
	}
	if _, err := sess.Submit(ctx, string(src)); err != nil {
		return formatter.Fail("E_PLAY", fmt.Errorf("%s: %w", path, err))
	}

	open := opts.OpenPlayer
	if open == nil {
		open = openDevice
	}
	player, err := open(sess, cfg.SampleRate, cfg.BlockSize, opts.Channels)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open audio output", err)
	}
	defer func() {
		if closeErr := player.Close(); closeErr != nil {
			slog.Error("error closing audio output", "error", closeErr)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return player.Run(gctx) })

	if !opts.NoWatch {
		w, err := live.NewWatcher(path, func(ctx context.Context, src string) error {
			_, err := sess.Submit(ctx, src)
			return err
		}, live.WatcherOptions{Debounce: cfg.WatchDebounce(), Rate: cfg.WatchRate, Logger: logger})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to watch program", err)
		}
		w.Seen(string(src))
		g.Go(func() error { return w.Run(gctx) })
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		g.Go(func() error {
			slog.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return srv.Shutdown(context.Background())
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Playing %s on %s\n", path, player.Info())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	slog.Info("session started", "session", sess.ID(), "journal", cfg.Journal)

	err = g.Wait()
	rendered, skipped := sess.Stats()
	slog.Info("session stopped", "session", sess.ID(), "blocks", rendered, "skipped_blocks", skipped)
	if err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "playback failed", err)
	}
	return nil
}

func openDevice(src audio.BlockSource, sampleRate float64, blockSize, channels int) (Player, error) {
	return audio.OpenDevice(src, sampleRate, blockSize, channels)
}
