// Package preview finds the image that documents a component, by the
// component's file path or by its name, and caches the answers until an
// image changes.
package preview

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/smileynet/compview/internal/workspace"
)

// ImageExtensions lists preview image extensions in priority order.
var ImageExtensions = []string{".png", ".jpg", ".jpeg"}

const (
	// PreviewDir holds previews named after their component.
	PreviewDir = "__previews__"
	// ImageGlob matches every preview image anywhere in the workspace.
	ImageGlob = "**/*.{png,jpg,jpeg}"
	// NameKeyPrefix marks cache keys of workspace-wide name lookups.
	NameKeyPrefix = "@name:"
)

// ExpectedFilenames lists the preview paths a user can add for name, one
// per naming convention.
func ExpectedFilenames(name string) []string {
	return []string{
		name + ".preview" + ImageExtensions[0],
		PreviewDir + "/" + name + ImageExtensions[0],
	}
}

// Locator finds preview images. Its cache is private: callers only observe
// lookups and change notifications.
type Locator struct {
	fs       workspace.FS
	searcher workspace.Searcher
	exclude  string
	logger   *slog.Logger
	metrics  *Metrics

	cache  *cache
	probes sync.Mutex
	group  singleflight.Group

	mu        sync.Mutex
	nextID    int
	listeners map[int]func()
	unwatch   []func()
}

// Option configures a Locator.
type Option func(*Locator)

// WithExclude sets the glob excluded from workspace-wide searches.
func WithExclude(pattern string) Option {
	return func(l *Locator) { l.exclude = pattern }
}

// WithLogger sets the locator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locator) { l.logger = logger }
}

// WithMetrics records cache activity in m.
func WithMetrics(m *Metrics) Option {
	return func(l *Locator) { l.metrics = m }
}

// New creates a Locator probing through fs and searching through searcher.
func New(fs workspace.FS, searcher workspace.Searcher, opts ...Option) *Locator {
	l := &Locator{
		fs:        fs,
		searcher:  searcher,
		exclude:   workspace.DefaultExclude,
		logger:    slog.New(slog.DiscardHandler),
		listeners: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.cache = newCache(CacheSize, l.metrics)
	return l
}

// FindByPath returns the preview of the component defined at path: a
// <base>.preview.<ext> sibling, else <dir>/__previews__/<base>.<ext>.
// Both positive and negative answers are cached.
func (l *Locator) FindByPath(path string) (string, bool) {
	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return l.probeCached("path", path, dir, base)
}

// FindInDir looks for the preview of name next to files in dir. It serves
// barrel files, where the resolved file is an index that re-exports name.
func (l *Locator) FindInDir(name, dir string) (string, bool) {
	return l.probeCached("dir", filepath.Join(dir, name), dir, name)
}

// HasPreview reports whether the component at path has a preview.
func (l *Locator) HasPreview(path string) bool {
	_, ok := l.FindByPath(path)
	return ok
}

func (l *Locator) probeCached(kind, key, dir, base string) (string, bool) {
	l.probes.Lock()
	defer l.probes.Unlock()

	if e, ok := l.cache.get(kind, key); ok {
		return e.image, !e.absent
	}
	gen := l.cache.gen()
	image, ok := l.probe(dir, base)
	e := missing
	if ok {
		e = found(image)
	}
	l.cache.put(gen, key, e)
	return image, ok
}

func (l *Locator) probe(dir, base string) (string, bool) {
	for _, ext := range ImageExtensions {
		if candidate := filepath.Join(dir, base+".preview"+ext); l.fs.Exists(candidate) {
			return candidate, true
		}
	}
	for _, ext := range ImageExtensions {
		if candidate := filepath.Join(dir, PreviewDir, base+ext); l.fs.Exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// FindByName searches the whole workspace for **/<name>.preview.<ext>, then
// **/__previews__/<name>.<ext>, skipping excluded directories. The first
// match wins. Concurrent calls for the same name share one search.
//
// A search error is returned and nothing is cached for it.
func (l *Locator) FindByName(ctx context.Context, name string) (string, bool, error) {
	key := NameKeyPrefix + name
	if e, ok := l.cache.get("name", key); ok {
		return e.image, !e.absent, nil
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		gen := l.cache.gen()
		image, err := l.search(ctx, name)
		if err != nil {
			return "", err
		}
		e := missing
		if image != "" {
			e = found(image)
		}
		l.cache.put(gen, key, e)
		return image, nil
	})
	if err != nil {
		return "", false, fmt.Errorf("preview: find %s: %w", name, err)
	}
	image := v.(string)
	return image, image != "", nil
}

func (l *Locator) search(ctx context.Context, name string) (string, error) {
	var patterns []string
	for _, ext := range ImageExtensions {
		patterns = append(patterns, "**/"+name+".preview"+ext)
	}
	for _, ext := range ImageExtensions {
		patterns = append(patterns, "**/"+PreviewDir+"/"+name+ext)
	}
	for _, pattern := range patterns {
		files, err := l.searcher.Find(ctx, workspace.Query{Include: pattern, Exclude: l.exclude, Limit: 1})
		if err != nil {
			return "", err
		}
		if len(files) > 0 {
			l.logger.Debug("preview: found by name", slog.String("name", name), slog.String("image", files[0]))
			return files[0], nil
		}
	}
	return "", nil
}

// Invalidate clears every cached answer and notifies OnChange listeners.
func (l *Locator) Invalidate() {
	l.cache.purge()
	l.metrics.invalidated()
	l.logger.Debug("preview: cache invalidated")

	l.mu.Lock()
	fns := make([]func(), 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// OnChange registers fn to run after every invalidation. The returned func
// unregisters it.
func (l *Locator) OnChange(fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := l.nextID
	l.listeners[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.listeners, id)
	}
}

// Watch invalidates the cache whenever src reports an image change.
func (l *Locator) Watch(src workspace.ChangeSource) {
	cancel := src.Subscribe(ImageGlob, func(events []workspace.Event) {
		l.logger.Debug("preview: image change", slog.Int("events", len(events)), slog.String("first", events[0].Path))
		l.Invalidate()
	})
	l.mu.Lock()
	l.unwatch = append(l.unwatch, cancel)
	l.mu.Unlock()
}

// Close stops watching, drops listeners and clears the cache.
func (l *Locator) Close() {
	l.mu.Lock()
	unwatch := l.unwatch
	l.unwatch = nil
	l.listeners = make(map[int]func())
	l.mu.Unlock()
	for _, cancel := range unwatch {
		cancel()
	}
	l.cache.purge()
}
