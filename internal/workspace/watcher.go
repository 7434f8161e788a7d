package workspace

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher turns recursive fsnotify events under the workspace roots into
// coalesced batches published through a Hub.
type Watcher struct {
	fsw      *fsnotify.Watcher
	hub      *Hub
	roots    []string
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	dirs    map[string]bool
	pending map[string]Event
	timer   *time.Timer

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long raw events are coalesced before publishing.
// Zero publishes every event immediately.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// NewWatcher creates a watcher for roots. Call Start to begin watching.
func NewWatcher(roots []string, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		fsw:      fsw,
		hub:      NewHub(roots),
		roots:    append([]string(nil), roots...),
		debounce: 100 * time.Millisecond,
		logger:   slog.New(slog.DiscardHandler),
		dirs:     make(map[string]bool),
		pending:  make(map[string]Event),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Subscribe registers fn for batches of events matching pattern.
func (w *Watcher) Subscribe(pattern string, fn func([]Event)) func() {
	return w.hub.Subscribe(pattern, fn)
}

// Start adds every root recursively and begins the event loop.
// Roots that cannot be watched are logged and skipped.
func (w *Watcher) Start() {
	w.startOnce.Do(func() {
		for _, root := range w.roots {
			w.addTree(root)
		}
		go w.loop()
	})
}

// addTree watches dir and its subdirectories, skipping VCS, dependency and
// hidden directories.
func (w *Watcher) addTree(dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != dir && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			w.logger.Warn("watcher: cannot watch directory", slog.String("path", p), slog.Any("error", err))
			return nil
		}
		w.mu.Lock()
		w.dirs[p] = true
		w.mu.Unlock()
		return nil
	})
}

func skipDir(name string) bool {
	return name == "node_modules" || name == "vendor" || strings.HasPrefix(name, ".")
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher: fsnotify error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) handle(raw fsnotify.Event) {
	var op Op
	switch {
	case raw.Has(fsnotify.Create):
		op = OpCreate
	case raw.Has(fsnotify.Write):
		op = OpWrite
	case raw.Has(fsnotify.Remove):
		op = OpRemove
	case raw.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	if w.underSkippedDir(raw.Name) {
		return
	}
	ev := Event{Path: raw.Name, Op: op}
	if op == OpCreate && isDir(raw.Name) {
		if skipDir(filepath.Base(raw.Name)) {
			return
		}
		ev.Dir = true
		w.addTree(raw.Name)
	}
	if op == OpRemove || op == OpRename {
		w.mu.Lock()
		if w.dirs[raw.Name] {
			ev.Dir = true
			delete(w.dirs, raw.Name)
		}
		w.mu.Unlock()
	}

	if w.debounce <= 0 {
		w.hub.Publish(ev)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.pending[ev.Path]; ok {
		ev = coalesce(prev, ev)
	}
	w.pending[ev.Path] = ev
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

// coalesce merges two pending events for one path. A write never hides an
// earlier create or removal, since editors save a new file as create then
// write.
func coalesce(prev, next Event) Event {
	next.Dir = next.Dir || prev.Dir
	if next.Op == OpWrite && prev.Op != OpWrite {
		next.Op = prev.Op
	}
	return next
}

// underSkippedDir reports whether path lies beneath a directory addTree
// refuses to watch.
func (w *Watcher) underSkippedDir(path string) bool {
	root, ok := ContainingRoot(w.roots, path)
	if !ok {
		return false
	}
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if skipDir(part) {
			return true
		}
	}
	return false
}

// flush publishes every pending event as one batch.
func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 || w.ctx.Err() != nil {
		w.mu.Unlock()
		return
	}
	batch := make([]Event, 0, len(w.pending))
	for _, ev := range w.pending {
		batch = append(batch, ev)
	}
	w.pending = make(map[string]Event)
	w.mu.Unlock()

	w.logger.Debug("watcher: publishing changes", slog.Int("events", len(batch)))
	w.hub.Publish(batch...)
}

// Close stops the event loop and drops any pending events.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.cancel()
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.pending = make(map[string]Event)
		w.mu.Unlock()
		err = w.fsw.Close()
		select {
		case <-w.done:
		case <-time.After(time.Second):
		}
	})
	return err
}

func isDir(path string) bool {
	fi, err := statFn(path)
	return err == nil && fi.IsDir()
}
