// Package watch fills target documents as they appear or change in a
// directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/dgallion1/docfill/internal/pipeline"
	"github.com/fsnotify/fsnotify"
)

// Handler is called with a target path once its events have settled.
type Handler func(ctx context.Context, path string)

// Watcher debounces filesystem events in one directory. A change to the
// info source, which may live elsewhere, re-queues every target in the
// directory.
type Watcher struct {
	dir      string
	dirAbs   string
	infoPath string
	infoAbs  string
	prefix   string
	debounce time.Duration
	handle   Handler
	log      *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

func New(dir, infoPath, prefix string, debounce time.Duration, handle Handler, log *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		dir:      dir,
		dirAbs:   pipeline.AbsPath(dir),
		infoPath: infoPath,
		infoAbs:  pipeline.AbsPath(infoPath),
		prefix:   prefix,
		debounce: debounce,
		handle:   handle,
		log:      log,
		pending:  make(map[string]time.Time),
	}
}

// Run watches until ctx is cancelled. Handlers run on the Run goroutine,
// one at a time.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	// Editors often replace files by rename, so the info source is watched
	// through its directory.
	if infoDir := filepath.Dir(w.infoAbs); infoDir != w.dirAbs {
		if err := fw.Add(infoDir); err != nil {
			return fmt.Errorf("watch %s: %w", infoDir, err)
		}
	}
	w.log.Info("watching directory", "dir", w.dir, "info", w.infoPath, "debounce", w.debounce)

	tick := w.debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.onEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watch error", "error", err)
		case <-ticker.C:
			for _, p := range w.settled(time.Now()) {
				if ctx.Err() != nil {
					return nil
				}
				w.handle(ctx, p)
			}
		}
	}
}

func (w *Watcher) onEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	abs := pipeline.AbsPath(ev.Name)

	if abs == w.infoAbs {
		targets, err := pipeline.Discover(w.dir, w.infoPath, w.prefix)
		if err != nil {
			w.log.Warn("rescan after info change failed", "error", err)
			return
		}
		w.log.Info("info source changed, refilling", "targets", len(targets))
		for _, t := range targets {
			w.touch(t)
		}
		return
	}

	if filepath.Dir(abs) != w.dirAbs || !pipeline.IsTarget(abs, w.prefix) {
		return
	}
	w.log.Debug("target event", "file", filepath.Base(abs), "op", ev.Op.String())
	w.touch(ev.Name)
}

func (w *Watcher) touch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = time.Now()
}

// settled removes and returns, sorted, the paths quiet for the debounce
// window.
func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for p, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			out = append(out, p)
			delete(w.pending, p)
		}
	}
	slices.Sort(out)
	return out
}
