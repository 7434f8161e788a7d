// Package orchestrator turns component requests into presentation commands:
// it deduplicates repeated names, runs the preview lookup chain and discards
// results that a newer request has overtaken.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/smileynet/compview/internal/resolve"
)

// Locator finds preview images.
type Locator interface {
	FindByPath(path string) (string, bool)
	FindInDir(name, dir string) (string, bool)
	FindByName(ctx context.Context, name string) (string, bool, error)
}

// Notifier reports preview changes. Locators that implement it reset the
// orchestrator's deduplication on every change.
type Notifier interface {
	OnChange(fn func()) (cancel func())
}

// Resolver finds the file defining a component name.
type Resolver interface {
	Resolve(name string, doc resolve.Document, roots []string) (string, bool)
}

// Orchestrator owns the last-shown state and serializes presentation.
type Orchestrator struct {
	locator   Locator
	resolver  Resolver
	presenter Presenter
	logger    *slog.Logger
	metrics   *Metrics
	unsub     func()

	mu         sync.Mutex
	lastShown  string
	generation uint64

	presentMu sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics records outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an Orchestrator. A nil resolver disables resolution from
// documents, leaving only name searches for cursor requests.
func New(locator Locator, resolver Resolver, presenter Presenter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		locator:   locator,
		resolver:  resolver,
		presenter: presenter,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	if n, ok := locator.(Notifier); ok {
		o.unsub = n.OnChange(o.Reset)
	}
	return o
}

// Show runs req through deduplication and the lookup chain, then presents
// the result unless a newer request started in the meantime. It blocks
// until the lookup completes.
func (o *Orchestrator) Show(ctx context.Context, req Request) (Command, Outcome) {
	if req.Name == "" {
		o.metrics.request(OutcomeNone)
		return Command{}, OutcomeNone
	}

	o.mu.Lock()
	if req.Name == o.lastShown {
		o.mu.Unlock()
		o.metrics.request(OutcomeDuplicate)
		return Command{}, OutcomeDuplicate
	}
	o.lastShown = req.Name
	o.generation++
	gen := o.generation
	o.mu.Unlock()

	cmd, err := o.Lookup(ctx, req)
	if err != nil {
		o.logger.Debug("orchestrator: lookup abandoned", slog.String("name", req.Name), slog.Any("error", err))
		o.metrics.request(OutcomeStale)
		return Command{}, OutcomeStale
	}

	outcome := o.present(gen, cmd)
	o.metrics.request(outcome)
	return cmd, outcome
}

// ShowForCursor shows the component named under offset in the document.
func (o *Orchestrator) ShowForCursor(ctx context.Context, text string, offset int, docPath string, roots []string) (Command, Outcome) {
	req, ok := CursorRequest(text, offset, docPath, roots)
	if !ok {
		o.metrics.request(OutcomeNone)
		return Command{}, OutcomeNone
	}
	return o.Show(ctx, req)
}

// ShowForFile shows the component defined by the file at path.
func (o *Orchestrator) ShowForFile(ctx context.Context, path string) (Command, Outcome) {
	return o.Show(ctx, FileRequest(path))
}

// Lookup resolves req to an image or not-found command without touching the
// last-shown state or the presenter. When the component file is known it
// checks beside the file, then for the name in the file's directory, then
// across the workspace; otherwise it searches the workspace directly.
//
// An error means the context ended before the workspace search finished.
func (o *Orchestrator) Lookup(ctx context.Context, req Request) (Command, error) {
	file := req.File
	if file == "" && req.Doc != nil && o.resolver != nil {
		file, _ = o.resolver.Resolve(req.Name, *req.Doc, req.Roots)
	}

	if file != "" {
		if image, ok := o.locator.FindByPath(file); ok {
			return o.found(req.Name, image, "path"), nil
		}
		if image, ok := o.locator.FindInDir(req.Name, filepath.Dir(file)); ok {
			return o.found(req.Name, image, "dir"), nil
		}
	}

	image, ok, err := o.locator.FindByName(ctx, req.Name)
	if err != nil {
		if ctx.Err() != nil {
			return Command{}, fmt.Errorf("orchestrator: lookup %s: %w", req.Name, ctx.Err())
		}
		o.logger.Warn("orchestrator: workspace search failed", slog.String("name", req.Name), slog.Any("error", err))
	}
	if ok {
		return o.found(req.Name, image, "name"), nil
	}
	o.metrics.lookup(KindNotFound, "name")
	return Command{Kind: KindNotFound, Name: req.Name}, nil
}

func (o *Orchestrator) found(name, image, stage string) Command {
	o.metrics.lookup(KindImage, stage)
	return Command{Kind: KindImage, Name: name, Image: image}
}

// present applies cmd if gen is still the newest request. Holding presentMu
// across the check and the render keeps commands in request order.
func (o *Orchestrator) present(gen uint64, cmd Command) Outcome {
	o.presentMu.Lock()
	defer o.presentMu.Unlock()

	o.mu.Lock()
	current := o.generation
	o.mu.Unlock()
	if gen != current {
		o.logger.Debug("orchestrator: discarding stale result", slog.String("name", cmd.Name))
		return OutcomeStale
	}
	cmd.Apply(o.presenter)
	return OutcomePresented
}

// Clear renders the empty state and forgets the last shown name.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	o.lastShown = ""
	o.generation++
	o.mu.Unlock()

	o.presentMu.Lock()
	defer o.presentMu.Unlock()
	o.presenter.RenderEmpty()
}

// Reset forgets the last shown name so the next request always renders.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastShown = ""
}

// lastShownName returns the name most recently accepted for display.
func (o *Orchestrator) lastShownName() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastShown
}

// Close detaches from the locator's change notifications.
func (o *Orchestrator) Close() {
	if o.unsub != nil {
		o.unsub()
		o.unsub = nil
	}
}
