package workspace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirSearcher_Find(t *testing.T) {
	root := tree(t,
		"src/blocks/Hero03.preview.png",
		"src/blocks/Hero03.tsx",
		"node_modules/lib/Hero03.preview.png",
		"packages/ui/node_modules/x/Hero03.preview.png",
		".git/Hero03.preview.png",
		"Hero03.preview.png",
	)
	s := NewSearcher([]string{root})

	// Given an include pattern for a preview filename and the default exclude
	// When searching
	got, err := s.Find(context.Background(), Query{
		Include: "**/Hero03.preview.png",
		Exclude: DefaultExclude,
	})

	// Then only files outside dependency and VCS directories are returned
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "Hero03.preview.png"),
		filepath.Join(root, "src", "blocks", "Hero03.preview.png"),
	}, got)
}

func TestDirSearcher_FindLimit(t *testing.T) {
	root := tree(t, "a/X.tsx", "b/Y.tsx", "c/Z.tsx")
	s := NewSearcher([]string{root})

	got, err := s.Find(context.Background(), Query{Include: "**/*.tsx", Limit: 2})

	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDirSearcher_FindAcrossRoots(t *testing.T) {
	first := tree(t, "Card.tsx")
	second := tree(t, "lib/Card.tsx")
	s := NewSearcher([]string{first, second})

	got, err := s.Find(context.Background(), Query{Include: "**/Card.tsx"})

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(first, "Card.tsx"),
		filepath.Join(second, "lib", "Card.tsx"),
	}, got)
}

func TestDirSearcher_InvalidPattern(t *testing.T) {
	s := NewSearcher([]string{t.TempDir()})
	_, err := s.Find(context.Background(), Query{Include: "[unclosed"})
	assert.Error(t, err)
}

func TestDirSearcher_CanceledContext(t *testing.T) {
	root := tree(t, "a.tsx")
	s := NewSearcher([]string{root})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Find(ctx, Query{Include: "**/*.tsx"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDirSearcher_MissingRoot(t *testing.T) {
	s := NewSearcher([]string{filepath.Join(t.TempDir(), "missing")})
	got, err := s.Find(context.Background(), Query{Include: "**/*"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOSFS_Exists(t *testing.T) {
	root := tree(t, "src/Card.tsx")
	fs := OSFS{}
	assert.True(t, fs.Exists(filepath.Join(root, "src", "Card.tsx")))
	assert.True(t, fs.Exists(filepath.Join(root, "src")), "directories exist")
	assert.False(t, fs.Exists(filepath.Join(root, "src", "Nope.tsx")))
}
