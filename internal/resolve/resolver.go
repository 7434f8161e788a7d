package resolve

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/smileynet/compview/internal/extract"
	"github.com/smileynet/compview/internal/workspace"
)

// Document is the context a name was found in.
type Document struct {
	Path string // absolute path of the document
	Text string
}

// Resolver finds the file defining a component name by trying, in order:
// the document's imports, the document's directory, and the conventional
// component directories of each workspace root.
type Resolver struct {
	prober  Prober
	scanner Scanner
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithScanner sets the import scanner. The default is RegexpScanner.
func WithScanner(s Scanner) Option {
	return func(r *Resolver) { r.scanner = s }
}

// WithLogger sets the resolver's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a Resolver that probes through fs.
func New(fs workspace.FS, opts ...Option) *Resolver {
	r := &Resolver{
		prober:  NewProber(fs),
		scanner: RegexpScanner{},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the absolute path of the file defining name. A false
// result is an ordinary outcome, not a failure. Names that are not valid
// component names never resolve and cost no probes.
func (r *Resolver) Resolve(name string, doc Document, roots []string) (string, bool) {
	if !extract.Valid(name) {
		return "", false
	}
	strategies := []struct {
		name string
		fn   func() (string, bool)
	}{
		{"imports", func() (string, bool) { return r.fromImports(name, doc, roots) }},
		{"same-dir", func() (string, bool) { return r.fromSameDir(name, doc) }},
		{"component-dirs", func() (string, bool) { return r.fromComponentDirs(name, roots) }},
	}
	for _, s := range strategies {
		if path, ok := s.fn(); ok {
			r.logger.Debug("resolve: found component file",
				slog.String("name", name),
				slog.String("strategy", s.name),
				slog.String("path", path))
			return path, true
		}
	}
	r.logger.Debug("resolve: no component file", slog.String("name", name))
	return "", false
}

// fromImports tries default bindings before named ones, each in source order.
func (r *Resolver) fromImports(name string, doc Document, roots []string) (string, bool) {
	if doc.Text == "" {
		return "", false
	}
	imports := r.scanner.Scan(doc.Text)
	var defaults, named []Import
	for _, imp := range imports {
		switch {
		case imp.Default == name:
			defaults = append(defaults, imp)
		case imp.Binds(name):
			named = append(named, imp)
		}
	}
	for _, imp := range append(defaults, named...) {
		if path, ok := r.resolveSpecifier(imp.Path, doc, roots); ok {
			return path, true
		}
	}
	return "", false
}

// resolveSpecifier resolves relative specifiers against the document's
// directory and everything else against the source roots of the workspace
// root that holds the document.
func (r *Resolver) resolveSpecifier(spec string, doc Document, roots []string) (string, bool) {
	if strings.HasPrefix(spec, ".") {
		if doc.Path == "" {
			return "", false
		}
		return r.prober.Probe(filepath.Join(filepath.Dir(doc.Path), filepath.FromSlash(spec)))
	}

	rel := filepath.FromSlash(strings.TrimPrefix(spec, AliasPrefix))
	for _, root := range candidateRoots(roots, doc.Path) {
		for _, prefix := range SourceRoots {
			if path, ok := r.prober.Probe(filepath.Join(root, prefix, rel)); ok {
				return path, true
			}
		}
	}
	return "", false
}

// candidateRoots returns the root containing docPath, or every root when
// the document lies outside the workspace.
func candidateRoots(roots []string, docPath string) []string {
	if docPath != "" {
		if root, ok := workspace.ContainingRoot(roots, docPath); ok {
			return []string{root}
		}
	}
	return roots
}

func (r *Resolver) fromSameDir(name string, doc Document) (string, bool) {
	if doc.Path == "" {
		return "", false
	}
	return r.prober.Probe(filepath.Join(filepath.Dir(doc.Path), name))
}

func (r *Resolver) fromComponentDirs(name string, roots []string) (string, bool) {
	for _, root := range roots {
		for _, dir := range ComponentDirs {
			if path, ok := r.prober.Probe(filepath.Join(root, filepath.FromSlash(dir), name)); ok {
				return path, true
			}
		}
	}
	return "", false
}
