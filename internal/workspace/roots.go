// Package workspace provides the host capabilities the resolution pipeline
// consumes: existence probes, globbed workspace search and a filesystem
// change stream.
package workspace

import (
	"path/filepath"
	"strings"
)

// ContainingRoot returns the longest root that contains path.
func ContainingRoot(roots []string, path string) (string, bool) {
	best := ""
	for _, root := range roots {
		if !within(root, path) {
			continue
		}
		if len(root) > len(best) {
			best = root
		}
	}
	return best, best != ""
}

// RelSlash returns path relative to its containing root in slash form.
// Paths outside every root are returned in slash form without a leading
// separator so that patterns beginning with "**/" still match them.
func RelSlash(roots []string, path string) string {
	if root, ok := ContainingRoot(roots, path); ok {
		if rel, err := filepath.Rel(root, path); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return strings.TrimPrefix(filepath.ToSlash(path), "/")
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
