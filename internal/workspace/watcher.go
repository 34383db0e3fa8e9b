package workspace

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes the workspace manifest and lock file and flips a
// stale flag when either changes. The BSP capability surface has no
// build-target-changed push, so staleness is only surfaced through
// logs until the client sends workspace/reload.
type Watcher struct {
	watcher  *fsnotify.Watcher
	stale    atomic.Bool
	stopChan chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	logger   Logger
}

// NewWatcher starts watching the manifest directory for Cargo.toml
// and Cargo.lock writes
func NewWatcher(manifestPath string, logger Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create manifest watcher: %w", err)
	}

	// Watch the directory rather than the files: editors replace
	// Cargo.toml atomically, which drops a direct file watch.
	if err := fsWatcher.Add(filepath.Dir(manifestPath)); err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch manifest directory: %w", err)
	}

	w := &Watcher{
		watcher:  fsWatcher,
		stopChan: make(chan struct{}),
		stopped:  make(chan struct{}),
		logger:   logger,
	}
	go w.watchLoop()
	return w, nil
}

func (w *Watcher) watchLoop() {
	defer close(w.stopped)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isManifestFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if w.stale.CompareAndSwap(false, true) {
					w.logger.Info("Workspace manifest changed (%s); build targets are stale until workspace/reload", filepath.Base(event.Name))
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Manifest watcher error: %v", err)

		case <-w.stopChan:
			return
		}
	}
}

func isManifestFile(path string) bool {
	base := filepath.Base(path)
	return base == "Cargo.toml" || base == "Cargo.lock"
}

// Stale reports whether the manifest changed since the last Reset
func (w *Watcher) Stale() bool {
	return w.stale.Load()
}

// Reset clears the stale flag, typically after a workspace/reload
func (w *Watcher) Reset() {
	w.stale.Store(false)
}

// Close stops the watch loop and releases the fsnotify watcher
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopChan)
		err = w.watcher.Close()
		<-w.stopped
	})
	return err
}
