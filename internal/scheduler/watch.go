package scheduler

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 2 * time.Second

// TreeWatcher wakes the scheduler early when the source tree's git HEAD
// moves (commit, checkout, pull from another terminal). Polling remains the
// baseline; the watcher only shortens the latency of the next cycle.
type TreeWatcher struct {
	gitDir  string
	watcher *fsnotify.Watcher
	wake    func()
	logger  *log.Logger
}

// NewTreeWatcher watches the .git directory of the tree at root.
func NewTreeWatcher(root string, wake func(), logger *log.Logger) (*TreeWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &TreeWatcher{
		gitDir:  filepath.Join(root, ".git"),
		watcher: w,
		wake:    wake,
		logger:  logger,
	}, nil
}

// Start blocks until ctx is cancelled; run it in a goroutine. Events are
// debounced so a burst of ref updates triggers a single wake-up.
func (w *TreeWatcher) Start(ctx context.Context) {
	defer w.watcher.Close()

	if err := w.watcher.Add(filepath.Join(w.gitDir, "HEAD")); err != nil {
		w.logger.Printf("watch: cannot watch HEAD: %v", err)
	}
	for _, extra := range []string{filepath.Join(w.gitDir, "refs", "heads"), filepath.Join(w.gitDir, "packed-refs")} {
		if _, err := os.Stat(extra); err == nil {
			_ = w.watcher.Add(extra)
		}
	}

	var timer *time.Timer
	fire := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(watchDebounce, w.wake)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				fire()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("watch: %v", err)
		}
	}
}
