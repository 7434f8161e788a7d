// Package session wires the resolution pipeline for one workspace and owns
// every object whose lifetime is the session: the preview cache, the
// watcher, the cursor debouncer and the last-shown state.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/smileynet/compview"
	"github.com/smileynet/compview/internal/catalog"
	"github.com/smileynet/compview/internal/config"
	"github.com/smileynet/compview/internal/markup"
	"github.com/smileynet/compview/internal/orchestrator"
	"github.com/smileynet/compview/internal/preview"
	"github.com/smileynet/compview/internal/resolve"
	"github.com/smileynet/compview/internal/workspace"
)

// Session is the composition root of one workspace.
type Session struct {
	Roots        []string
	Config       config.Config
	Locator      *preview.Locator
	Resolver     *resolve.Resolver
	Orchestrator *orchestrator.Orchestrator
	Catalog      *catalog.Catalog
	Markup       *markup.Loader
	Changes      *workspace.Hub

	trigger *orchestrator.CursorTrigger
	watcher *workspace.Watcher
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

type options struct {
	cfg       config.Config
	presenter orchestrator.Presenter
	fs        workspace.FS
	searcher  workspace.Searcher
	logger    *slog.Logger
	registry  prometheus.Registerer
	noWatch   bool
}

// Option configures a Session.
type Option func(*options)

// WithConfig replaces the default configuration.
func WithConfig(cfg config.Config) Option { return func(o *options) { o.cfg = cfg } }

// WithPresenter sets where orchestrator commands go. Without one they are
// dropped, which suits callers that only use Lookup.
func WithPresenter(p orchestrator.Presenter) Option { return func(o *options) { o.presenter = p } }

// WithFS replaces the existence probe.
func WithFS(fs workspace.FS) Option { return func(o *options) { o.fs = fs } }

// WithSearcher replaces the workspace search.
func WithSearcher(s workspace.Searcher) Option { return func(o *options) { o.searcher = s } }

// WithLogger sets the logger passed to every component.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithRegisterer registers component metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option { return func(o *options) { o.registry = reg } }

// WithoutWatcher disables the filesystem watcher regardless of config.
func WithoutWatcher() Option { return func(o *options) { o.noWatch = true } }

// New builds a session over roots. Roots are made absolute. The filesystem
// watcher starts immediately when enabled.
func New(roots []string, opts ...Option) (*Session, error) {
	o := options{
		cfg:       config.DefaultConfig(),
		presenter: discard{},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("session: at least one workspace root is required")
	}
	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		a, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("session: root %s: %w", r, err)
		}
		abs = append(abs, a)
	}
	if o.fs == nil {
		o.fs = workspace.OSFS{}
	}
	if o.searcher == nil {
		o.searcher = workspace.NewSearcher(abs, workspace.WithSearchLogger(o.logger))
	}

	reg := resolve.NewRegistry()
	resolve.RegisterBuiltins(reg)
	scanner, err := reg.NewScanner(o.cfg.Search.ImportScanner)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	var (
		previewMetrics *preview.Metrics
		orchMetrics    *orchestrator.Metrics
	)
	if o.registry != nil {
		previewMetrics = preview.NewMetrics(o.registry)
		orchMetrics = orchestrator.NewMetrics(o.registry)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		Roots:   abs,
		Config:  o.cfg,
		Changes: workspace.NewHub(abs),
		logger:  o.logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.Locator = preview.New(o.fs, o.searcher,
		preview.WithExclude(o.cfg.Search.Exclude),
		preview.WithLogger(o.logger),
		preview.WithMetrics(previewMetrics))
	s.Locator.Watch(s.Changes)
	s.Resolver = resolve.New(o.fs, resolve.WithScanner(scanner), resolve.WithLogger(o.logger))
	s.Orchestrator = orchestrator.New(s.Locator, s.Resolver, o.presenter,
		orchestrator.WithLogger(o.logger),
		orchestrator.WithMetrics(orchMetrics))
	s.Markup = markup.NewLoader(compview.OverlayFS(config.TemplatesDir(abs[0]), compview.Templates))
	s.Catalog = catalog.New(o.searcher, s.Locator,
		catalog.WithPattern(o.cfg.Catalog.Pattern),
		catalog.WithExclude(o.cfg.Search.Exclude),
		catalog.WithLimit(o.cfg.Catalog.Limit),
		catalog.WithRoots(abs),
		catalog.WithComposer(s.Markup),
		catalog.WithLogger(o.logger))
	s.Catalog.Watch(s.Changes)
	s.trigger = orchestrator.NewCursorTrigger(s.Orchestrator, o.cfg.Trigger.Debounce, o.cfg.Trigger.Languages)

	if o.cfg.Watch.Enabled && !o.noWatch {
		w, err := workspace.NewWatcher(abs,
			workspace.WithDebounce(o.cfg.Watch.Debounce),
			workspace.WithWatcherLogger(o.logger))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("session: starting watcher: %w", err)
		}
		w.Subscribe("**", func(events []workspace.Event) { s.Changes.Publish(events...) })
		w.Start()
		s.watcher = w
	}

	o.logger.Info("session: started", slog.Any("roots", abs), slog.Bool("watch", s.watcher != nil))
	return s, nil
}

// Cursor records a cursor move in a document. Resolution happens after the
// debounce delay on a background goroutine.
func (s *Session) Cursor(docPath, text string, offset int) {
	s.trigger.Cursor(s.ctx, docPath, text, offset, s.Roots)
}

// Flush resolves a pending cursor move now instead of after the debounce
// delay.
func (s *Session) Flush() {
	s.trigger.Flush()
}

// Clear shows the empty state and forgets the last shown component.
func (s *Session) Clear() {
	s.Orchestrator.Clear()
}

// OpenFile shows the component defined by path right away.
func (s *Session) OpenFile(path string) (orchestrator.Command, orchestrator.Outcome) {
	return s.Orchestrator.ShowForFile(s.ctx, path)
}

// Lookup resolves the component named under offset without deduplication or
// presentation. It reports false when there is no component name there.
func (s *Session) Lookup(ctx context.Context, docPath, text string, offset int) (orchestrator.Command, bool, error) {
	req, ok := orchestrator.CursorRequest(text, offset, docPath, s.Roots)
	if !ok {
		return orchestrator.Command{}, false, nil
	}
	cmd, err := s.Orchestrator.Lookup(ctx, req)
	if err != nil {
		return orchestrator.Command{}, false, err
	}
	return cmd, true, nil
}

// HoverData builds template data for a lookup result.
func (s *Session) HoverData(cmd orchestrator.Command) markup.HoverData {
	return markup.NewHoverData(cmd.Name, cmd.Image, s.Roots)
}

// Close cancels pending work, stops the watcher and clears session state.
// It is safe to call more than once.
func (s *Session) Close() {
	s.cancel()
	if s.trigger != nil {
		s.trigger.Stop()
	}
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			s.logger.Warn("session: closing watcher", slog.Any("error", err))
		}
		s.watcher = nil
	}
	if s.Catalog != nil {
		s.Catalog.Close()
	}
	if s.Orchestrator != nil {
		s.Orchestrator.Close()
		s.Orchestrator.Reset()
	}
	if s.Locator != nil {
		s.Locator.Close()
	}
}

type discard struct{}

func (discard) RenderEmpty() {}

func (discard) RenderImage(string, string) {}

func (discard) RenderNotFound(string) {}
