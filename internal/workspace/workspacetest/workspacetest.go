// Package workspacetest provides fakes and fixtures for code that consumes
// the workspace capabilities.
package workspacetest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/smileynet/compview/internal/workspace"
)

// Tree creates files (slash-separated paths relative to the returned root)
// under a fresh temporary directory. Every file gets a few placeholder bytes.
func Tree(t testing.TB, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		Touch(t, filepath.Join(root, filepath.FromSlash(f)))
	}
	return root
}

// Touch creates path and any missing parent directories.
func Touch(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// MapFS is an in-memory existence oracle that records every probe.
type MapFS struct {
	mu     sync.Mutex
	paths  map[string]bool
	probes []string
}

// NewMapFS creates a MapFS containing paths.
func NewMapFS(paths ...string) *MapFS {
	m := &MapFS{paths: make(map[string]bool)}
	for _, p := range paths {
		m.paths[filepath.Clean(p)] = true
	}
	return m
}

// Add makes path exist.
func (m *MapFS) Add(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[filepath.Clean(path)] = true
}

// Remove makes path absent.
func (m *MapFS) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.paths, filepath.Clean(path))
}

// Exists implements workspace.FS.
func (m *MapFS) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes = append(m.probes, path)
	return m.paths[filepath.Clean(path)]
}

// Probes returns every path probed so far, in order.
func (m *MapFS) Probes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.probes...)
}

// ProbeCount returns the number of probes so far.
func (m *MapFS) ProbeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.probes)
}

// Find implements workspace.Searcher over the in-memory paths, so one MapFS
// can back both capabilities. Results are sorted for determinism.
func (m *MapFS) Find(ctx context.Context, q workspace.Query) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var found []string
	for p := range m.paths {
		slash := filepath.ToSlash(p)
		rel := slash
		if len(rel) > 0 && rel[0] == '/' {
			rel = rel[1:]
		}
		if q.Exclude != "" {
			if ok, _ := doublestar.Match(q.Exclude, rel); ok {
				continue
			}
		}
		if ok, _ := doublestar.Match(q.Include, rel); ok {
			found = append(found, p)
		}
	}
	sort.Strings(found)
	if q.Limit > 0 && len(found) > q.Limit {
		found = found[:q.Limit]
	}
	return found, nil
}

// CountingSearcher wraps a Searcher and counts calls.
type CountingSearcher struct {
	Searcher workspace.Searcher

	mu      sync.Mutex
	queries []workspace.Query
}

// Find implements workspace.Searcher.
func (c *CountingSearcher) Find(ctx context.Context, q workspace.Query) ([]string, error) {
	c.mu.Lock()
	c.queries = append(c.queries, q)
	c.mu.Unlock()
	return c.Searcher.Find(ctx, q)
}

// Calls returns the number of Find calls so far.
func (c *CountingSearcher) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queries)
}

// Queries returns every query seen so far.
func (c *CountingSearcher) Queries() []workspace.Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]workspace.Query(nil), c.queries...)
}
