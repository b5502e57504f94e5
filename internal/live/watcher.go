package live

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// SubmitFunc receives the contents of a changed program file.
type SubmitFunc func(ctx context.Context, src string) error

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Debounce is how long the file must stay quiet before it is read.
	// Default: 50ms
	Debounce time.Duration

	// Rate caps submissions per second; bursts of one.
	// Default: 4
	Rate float64

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Watcher re-submits a program file whenever it changes.
//
// The parent directory is watched rather than the file, so editors that
// save by writing a temporary file and renaming it over the original are
// seen. Changes are coalesced for the debounce window, rate limited, and
// skipped when the contents equal the last submission.
type Watcher struct {
	path     string
	fsw      *fsnotify.Watcher
	submit   SubmitFunc
	debounce time.Duration
	limiter  *rate.Limiter
	log      *slog.Logger

	last string
}

// NewWatcher watches path. Call Run to start delivering changes.
func NewWatcher(path string, submit SubmitFunc, opts WatcherOptions) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 50 * time.Millisecond
	}
	if opts.Rate <= 0 {
		opts.Rate = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	return &Watcher{
		path:     abs,
		fsw:      fsw,
		submit:   submit,
		debounce: opts.Debounce,
		limiter:  rate.NewLimiter(rate.Limit(opts.Rate), 1),
		log:      opts.Logger.With("file", abs),
	}, nil
}

// Seen records src as already submitted, so an unchanged file is not
// submitted again. Used after the initial load.
func (w *Watcher) Seen(src string) {
	w.last = src
}

// Run delivers changes until ctx is canceled. It returns nil on
// cancellation and closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			if err := w.limiter.Wait(ctx); err != nil {
				return nil
			}
			w.reload(ctx)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

func (w *Watcher) reload(ctx context.Context) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.log.Warn("reload failed", "error", err)
		return
	}
	src := string(data)
	if src == w.last {
		return
	}
	w.last = src
	if err := w.submit(ctx, src); err != nil {
		w.log.Debug("submitted program rejected", "error", err)
		return
	}
	w.log.Debug("program reloaded")
}
