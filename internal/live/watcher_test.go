package live

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects submissions from a Watcher.
type recorder struct {
	mu   sync.Mutex
	srcs []string
}

func (r *recorder) submit(_ context.Context, src string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.srcs = append(r.srcs, src)
	return nil
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.srcs...)
}

func startWatcher(t *testing.T, path string, submit SubmitFunc, opts WatcherOptions) *Watcher {
	t.Helper()
	opts.Logger = discardLogger()
	w, err := NewWatcher(path, submit, opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return w
}

func TestWatcherSubmitsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.pb")
	require.NoError(t, os.WriteFile(path, []byte("a: sin 440"), 0o644))

	rec := &recorder{}
	startWatcher(t, path, rec.submit, WatcherOptions{Debounce: 10 * time.Millisecond, Rate: 100})

	require.NoError(t, os.WriteFile(path, []byte("a: sin 880"), 0o644))

	require.Eventually(t, func() bool {
		srcs := rec.snapshot()
		return len(srcs) == 1 && srcs[0] == "a: sin 880"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherCoalescesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.pb")
	require.NoError(t, os.WriteFile(path, []byte("a: sin 1"), 0o644))

	rec := &recorder{}
	startWatcher(t, path, rec.submit, WatcherOptions{Debounce: 200 * time.Millisecond, Rate: 100})

	for _, src := range []string{"a: sin 2", "a: sin 3", "a: sin 4", "a: sin 5"} {
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}

	require.Eventually(t, func() bool {
		srcs := rec.snapshot()
		return len(srcs) > 0 && srcs[len(srcs)-1] == "a: sin 5"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Less(t, len(rec.snapshot()), 4, "writes within the debounce window coalesce")
}

func TestWatcherSkipsUnchangedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.pb")
	require.NoError(t, os.WriteFile(path, []byte("a: sin 1"), 0o644))

	rec := &recorder{}
	startWatcher(t, path, rec.submit, WatcherOptions{Debounce: 10 * time.Millisecond, Rate: 100})

	require.NoError(t, os.WriteFile(path, []byte("a: sin 2"), 0o644))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("a: sin 2"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"a: sin 2"}, rec.snapshot())
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "set.pb")
	require.NoError(t, os.WriteFile(path, []byte("a: sin 1"), 0o644))

	rec := &recorder{}
	startWatcher(t, path, rec.submit, WatcherOptions{Debounce: 10 * time.Millisecond, Rate: 100})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.pb"), []byte("b: saw 1"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestWatcherSeen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.pb")
	require.NoError(t, os.WriteFile(path, []byte("a: sin 1"), 0o644))

	rec := &recorder{}
	w, err := NewWatcher(path, rec.submit, WatcherOptions{Debounce: 10 * time.Millisecond, Rate: 100, Logger: discardLogger()})
	require.NoError(t, err)
	w.Seen("a: sin 1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Touch without changing content.
	require.NoError(t, os.WriteFile(path, []byte("a: sin 1"), 0o644))
	time.Sleep(100 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Empty(t, rec.snapshot())
}

func TestNewWatcherMissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "no", "such", "set.pb"), func(context.Context, string) error { return nil }, WatcherOptions{})
	assert.Error(t, err)
}
