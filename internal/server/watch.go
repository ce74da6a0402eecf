package server

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/feedview/internal/logging"
)

// watchDebounce collects the burst of events an editor save produces.
const watchDebounce = 50 * time.Millisecond

// Watcher drops index entries when their documents change on disk.
type Watcher struct {
	watcher *fsnotify.Watcher
	index   *Index
	logger  *logging.Logger
}

// NewWatcher watches dir, the on-disk directory behind index.
func NewWatcher(dir string, index *Index, logger *logging.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Watcher{watcher: w, index: index, logger: logger}, nil
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer func() { _ = w.watcher.Close() }()

	debounce := time.NewTimer(0)
	<-debounce.C
	defer debounce.Stop()

	pending := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			pending[strings.TrimSuffix(filepath.Base(ev.Name), ".json")] = struct{}{}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			for name := range pending {
				w.index.Invalidate(name)
				w.logger.Info("feed document changed", "feed", name)
			}
			clear(pending)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("content watch error", "error", err)
		}
	}
}
