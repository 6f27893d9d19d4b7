package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeWatcherWakesOnHeadChange(t *testing.T) {
	if testing.Short() {
		t.Skip("debounce wait")
	}
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	require.NoError(t, os.MkdirAll(filepath.Join(gitDir, "refs", "heads"), 0o755))
	head := filepath.Join(gitDir, "HEAD")
	require.NoError(t, os.WriteFile(head, []byte("ref: refs/heads/main\n"), 0o644))

	var wakes atomic.Int32
	w, err := NewTreeWatcher(root, func() { wakes.Add(1) }, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	// Let the watcher register its paths before touching HEAD.
	time.Sleep(100 * time.Millisecond)

	// A burst of updates must coalesce into a single debounced wake-up.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(head, []byte("ref: refs/heads/feature\n"), 0o644))
		time.Sleep(20 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return wakes.Load() > 0 },
		watchDebounce+3*time.Second, 50*time.Millisecond)
	assert.Equal(t, int32(1), wakes.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancellation")
	}
}

func TestTreeWatcherMissingHead(t *testing.T) {
	w, err := NewTreeWatcher(t.TempDir(), func() {}, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Start(ctx) // logs the missing HEAD and still honors cancellation
}
