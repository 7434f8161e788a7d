package orchestrator

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// DefaultDebounce is the quiet period before a cursor move is resolved.
const DefaultDebounce = 150 * time.Millisecond

// DefaultLanguages are the document extensions cursor moves are resolved in.
var DefaultLanguages = []string{".tsx", ".ts", ".jsx", ".js", ".astro", ".vue", ".svelte", ".mdx"}

// Shower accepts requests. *Orchestrator implements it.
type Shower interface {
	Show(ctx context.Context, req Request) (Command, Outcome)
}

// CursorTrigger debounces cursor moves and forwards the last one as a
// request. Documents in other languages are ignored.
type CursorTrigger struct {
	shower    Shower
	debouncer *Debouncer
	languages []string
}

// NewCursorTrigger creates a trigger that waits delay after the last move.
// Nil languages means DefaultLanguages.
func NewCursorTrigger(shower Shower, delay time.Duration, languages []string) *CursorTrigger {
	if languages == nil {
		languages = DefaultLanguages
	}
	return &CursorTrigger{
		shower:    shower,
		debouncer: NewDebouncer(delay),
		languages: languages,
	}
}

// Accepts reports whether cursor moves in docPath are resolved.
func (t *CursorTrigger) Accepts(docPath string) bool {
	return slices.Contains(t.languages, strings.ToLower(filepath.Ext(docPath)))
}

// Cursor records a cursor move. The name is extracted when the delay
// expires, so a burst of moves costs one extraction.
func (t *CursorTrigger) Cursor(ctx context.Context, docPath, text string, offset int, roots []string) {
	if !t.Accepts(docPath) {
		return
	}
	t.debouncer.Trigger(func() {
		if req, ok := CursorRequest(text, offset, docPath, roots); ok {
			t.shower.Show(ctx, req)
		}
	})
}

// Flush resolves the pending move now instead of after the delay.
func (t *CursorTrigger) Flush() {
	t.debouncer.Flush()
}

// Stop cancels any pending move.
func (t *CursorTrigger) Stop() {
	t.debouncer.Stop()
}
