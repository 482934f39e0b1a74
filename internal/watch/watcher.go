// ABOUTME: Recursive document directory watcher built on fsnotify
// ABOUTME: Coalesces bursts of file events into a single debounced callback
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/harper/folio/internal/core"
	"github.com/harper/folio/internal/logging"
)

// DefaultDebounce is the quiet period after the last event before reacting
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports changes to .txt and .md files anywhere under a root directory
type Watcher struct {
	root     string
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger
}

// New watches root and every directory below it
func New(root string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{root: root, fsw: fsw, debounce: debounce, logger: logging.OrNop(logger)}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree registers dir and its subdirectories, skipping hidden ones
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Run calls onChange after each burst of relevant events until ctx is done.
// A failing onChange is logged and watching continues.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context) error) error {
	defer func() { _ = w.fsw.Close() }()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.logger.Warn("watching new directory", zap.String("dir", ev.Name), zap.Error(err))
					}
					// files may land before the watch is in place
					pending = true
					timer.Reset(w.debounce)
					continue
				}
			}
			if !Relevant(ev) {
				continue
			}
			w.logger.Debug("document event", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			pending = true
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				pending = true
				timer.Reset(w.debounce)
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			if err := onChange(ctx); err != nil {
				w.logger.Error("reacting to document change", zap.Error(err))
			}
		}
	}
}

// Close stops watching without waiting for Run
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Relevant reports whether ev touches a file the ingestor would read
func Relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return core.IsDocumentPath(ev.Name)
}
