// Package resolve locates the source file that defines a component name.
package resolve

import (
	"path/filepath"
	"slices"

	"github.com/smileynet/compview/internal/workspace"
)

// SourceExtensions lists recognized source extensions in priority order.
var SourceExtensions = []string{".tsx", ".ts", ".jsx", ".js"}

// AliasPrefix is stripped from bare import paths before root-relative lookup.
const AliasPrefix = "@/"

// SourceRoots are the root-relative prefixes tried for bare import paths.
var SourceRoots = []string{"src", "app", ""}

// ComponentDirs are the conventional component directories probed under
// every workspace root.
var ComponentDirs = []string{"src/blocks", "src/components", "blocks", "components"}

// Prober expands a base path into candidate source files and returns the
// first that exists.
type Prober struct {
	fs workspace.FS
}

// NewProber creates a Prober backed by fs.
func NewProber(fs workspace.FS) Prober {
	return Prober{fs: fs}
}

// Probe checks base directly when it already carries a source extension.
// Otherwise it tries base+ext, then base/index+ext, for each extension in
// priority order.
func (p Prober) Probe(base string) (string, bool) {
	if slices.Contains(SourceExtensions, filepath.Ext(base)) {
		if p.fs.Exists(base) {
			return base, true
		}
		return "", false
	}
	for _, ext := range SourceExtensions {
		if candidate := base + ext; p.fs.Exists(candidate) {
			return candidate, true
		}
	}
	for _, ext := range SourceExtensions {
		if candidate := filepath.Join(base, "index"+ext); p.fs.Exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}
