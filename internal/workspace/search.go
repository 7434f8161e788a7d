package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExclude keeps dependency directories out of workspace searches.
const DefaultExclude = "**/node_modules/**"

// pruneProbe is joined to a directory's path to ask whether the exclude
// pattern covers everything beneath that directory.
const pruneProbe = "\x00"

var errLimitReached = errors.New("workspace: search limit reached")

// Query describes a globbed search across every workspace root.
type Query struct {
	Include string // doublestar pattern relative to a root, slash separated
	Exclude string // optional doublestar pattern; matching files and directories are skipped
	Limit   int    // maximum results; zero or negative means unlimited
}

// Searcher lists workspace paths matching a query.
type Searcher interface {
	Find(ctx context.Context, q Query) ([]string, error)
}

// DirSearcher walks the workspace roots on disk.
type DirSearcher struct {
	roots  []string
	logger *slog.Logger
}

// SearchOption configures a DirSearcher.
type SearchOption func(*DirSearcher)

// WithSearchLogger sets the logger used for skipped-entry diagnostics.
func WithSearchLogger(l *slog.Logger) SearchOption {
	return func(s *DirSearcher) { s.logger = l }
}

// NewSearcher creates a searcher over roots, walked in the given order.
func NewSearcher(roots []string, opts ...SearchOption) *DirSearcher {
	s := &DirSearcher{
		roots:  append([]string(nil), roots...),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Find walks each root in lexical order and returns absolute paths of files
// matching q.Include. Unreadable entries are skipped.
func (s *DirSearcher) Find(ctx context.Context, q Query) ([]string, error) {
	if !doublestar.ValidatePattern(q.Include) {
		return nil, fmt.Errorf("workspace: invalid include pattern %q", q.Include)
	}
	if q.Exclude != "" && !doublestar.ValidatePattern(q.Exclude) {
		return nil, fmt.Errorf("workspace: invalid exclude pattern %q", q.Exclude)
	}

	var found []string
	for _, root := range s.roots {
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				s.logger.Debug("search: skipping unreadable entry", slog.String("path", p), slog.Any("error", err))
				return nil
			}
			rel, relErr := filepath.Rel(root, p)
			if relErr != nil || rel == "." {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if d.Name() == ".git" || (q.Exclude != "" && match(q.Exclude, path.Join(rel, pruneProbe))) {
					return filepath.SkipDir
				}
				return nil
			}
			if q.Exclude != "" && match(q.Exclude, rel) {
				return nil
			}
			if !match(q.Include, rel) {
				return nil
			}
			found = append(found, p)
			if q.Limit > 0 && len(found) >= q.Limit {
				return errLimitReached
			}
			return nil
		})
		if errors.Is(err, errLimitReached) {
			return found, nil
		}
		if err != nil {
			return found, err
		}
	}
	return found, nil
}

// match reports whether name matches pattern; malformed patterns never match.
func match(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}
