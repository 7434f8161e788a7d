// Package catalog lists the component files that have a preview and
// decorates files with a preview badge.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/smileynet/compview"
	"github.com/smileynet/compview/internal/markup"
	"github.com/smileynet/compview/internal/workspace"
)

// Badge is shown next to files that have a preview.
const Badge = "🖼"

// BadgeTooltip explains the badge when the tooltip template cannot be
// rendered.
const BadgeTooltip = "Component preview available"

// Item is one component with a preview.
type Item struct {
	Label string // file name, e.g. "Hero03.tsx"
	Name  string // component name, e.g. "Hero03"
	Path  string // absolute source path
	Image string // absolute preview path
}

// Decoration is the badge for one file.
type Decoration struct {
	Badge   string
	Tooltip string
}

// Composer renders a named message template.
type Composer interface {
	Compose(name string, data any) (string, error)
}

// Locator answers preview questions for component files.
type Locator interface {
	FindByPath(path string) (string, bool)
	OnChange(fn func()) (cancel func())
}

// Catalog lists previewed components and notifies listeners when the list
// may have changed.
type Catalog struct {
	searcher workspace.Searcher
	locator  Locator
	pattern  string
	exclude  string
	limit    int
	roots    []string
	msgs     Composer
	logger   *slog.Logger

	mu        sync.Mutex
	nextID    int
	listeners map[int]func()
	cancels   []func()
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithPattern sets the glob selecting candidate source files.
func WithPattern(p string) Option { return func(c *Catalog) { c.pattern = p } }

// WithExclude sets the glob excluded from the listing.
func WithExclude(p string) Option { return func(c *Catalog) { c.exclude = p } }

// WithLimit caps the number of candidate files examined.
func WithLimit(n int) Option { return func(c *Catalog) { c.limit = n } }

// WithRoots sets the workspace roots tooltip paths are shown relative to.
func WithRoots(roots []string) Option { return func(c *Catalog) { c.roots = roots } }

// WithComposer sets the renderer for badge tooltips. The default renders
// the embedded templates.
func WithComposer(m Composer) Option { return func(c *Catalog) { c.msgs = m } }

// WithLogger sets the catalog's logger.
func WithLogger(l *slog.Logger) Option { return func(c *Catalog) { c.logger = l } }

// New creates a Catalog. It refreshes whenever the locator reports a
// preview change.
func New(searcher workspace.Searcher, locator Locator, opts ...Option) *Catalog {
	c := &Catalog{
		searcher:  searcher,
		locator:   locator,
		pattern:   "**/*.tsx",
		exclude:   workspace.DefaultExclude,
		limit:     500,
		msgs:      markup.NewLoader(compview.Templates),
		logger:    slog.New(slog.DiscardHandler),
		listeners: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cancels = append(c.cancels, locator.OnChange(c.notify))
	return c
}

// List returns the candidate files that have a preview, sorted by
// case-insensitive file name. Each preview is resolved once, through the
// locator's cache.
func (c *Catalog) List(ctx context.Context) ([]Item, error) {
	files, err := c.searcher.Find(ctx, workspace.Query{Include: c.pattern, Exclude: c.exclude, Limit: c.limit})
	if err != nil {
		return nil, fmt.Errorf("catalog: listing %s: %w", c.pattern, err)
	}
	sort.SliceStable(files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(files[i])) < strings.ToLower(filepath.Base(files[j]))
	})

	items := make([]Item, 0, len(files))
	for _, f := range files {
		image, ok := c.locator.FindByPath(f)
		if !ok {
			continue
		}
		label := filepath.Base(f)
		items = append(items, Item{
			Label: label,
			Name:  strings.TrimSuffix(label, filepath.Ext(label)),
			Path:  f,
			Image: image,
		})
	}
	c.logger.Debug("catalog: listed", slog.Int("candidates", len(files)), slog.Int("items", len(items)))
	return items, nil
}

// Decorate returns the preview badge for .tsx files that have a preview.
// The tooltip is rendered from the tooltip template.
func (c *Catalog) Decorate(path string) (Decoration, bool) {
	if !strings.HasSuffix(path, ".tsx") {
		return Decoration{}, false
	}
	image, ok := c.locator.FindByPath(path)
	if !ok {
		return Decoration{}, false
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tooltip, err := c.msgs.Compose(markup.Tooltip, markup.NewHoverData(name, image, c.roots))
	if err != nil {
		c.logger.Warn("catalog: rendering tooltip", slog.String("path", path), slog.Any("error", err))
		tooltip = BadgeTooltip
	}
	return Decoration{Badge: Badge, Tooltip: strings.TrimSpace(tooltip)}, true
}

// OnChange registers fn to run whenever the listing may have changed.
func (c *Catalog) OnChange(fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Watch refreshes listeners when candidate source files are created or
// deleted. Edits do not change the listing.
func (c *Catalog) Watch(src workspace.ChangeSource) {
	cancel := src.Subscribe(c.pattern, func(events []workspace.Event) {
		for _, ev := range events {
			if ev.Op != workspace.OpWrite {
				c.notify()
				return
			}
		}
	})
	c.mu.Lock()
	c.cancels = append(c.cancels, cancel)
	c.mu.Unlock()
}

func (c *Catalog) notify() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Close detaches from every change source and drops listeners.
func (c *Catalog) Close() {
	c.mu.Lock()
	cancels := c.cancels
	c.cancels = nil
	c.listeners = make(map[int]func())
	c.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}
