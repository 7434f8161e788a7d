package dashboard

import (
	"context"
	"fmt"
	"path"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/compview/internal/catalog"
	"github.com/smileynet/compview/internal/workspace"
)

// CursorMarker is the prefix shown on the selected row.
const CursorMarker = "▸ "

// browseState manages the component list, cursor, and loading/error states
// for the left pane.
type browseState struct {
	items   []catalog.Item
	cursor  int
	loading bool
	err     error
}

// newBrowseState returns a browseState in the loading state.
func newBrowseState() browseState {
	return browseState{loading: true}
}

// initBrowse returns a tea.Cmd that calls lister.List() asynchronously
// and wraps the result in a ListMsg.
func initBrowse(ctx context.Context, lister Lister) tea.Cmd {
	return func() tea.Msg {
		items, err := lister.List(ctx)
		return ListMsg{Items: items, Err: err}
	}
}

// Update processes messages for the browse state.
func (bs browseState) Update(msg tea.Msg) (browseState, tea.Cmd) {
	switch msg := msg.(type) {
	case ListMsg:
		return bs.applyList(msg.Items, msg.Err), nil

	case tea.KeyMsg:
		if bs.loading {
			return bs, nil
		}
		return bs.handleKey(msg)
	}

	return bs, nil
}

// applyList applies a fetched list (or error) to the browse state. The
// cursor stays on the previously selected file when it is still listed.
func (bs browseState) applyList(items []catalog.Item, err error) browseState {
	bs.loading = false
	if err != nil {
		bs.err = err
		bs.items = nil
		bs.cursor = 0
		return bs
	}
	selected := bs.SelectedPath()
	bs.err = nil
	bs.items = append([]catalog.Item(nil), items...)
	bs.cursor = 0
	for i, it := range bs.items {
		if it.Path == selected {
			bs.cursor = i
			break
		}
	}
	return bs
}

func (bs browseState) handleKey(msg tea.KeyMsg) (browseState, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if len(bs.items) > 0 {
			bs.cursor--
			if bs.cursor < 0 {
				bs.cursor = len(bs.items) - 1
			}
		}
		return bs, nil

	case "down", "j":
		if len(bs.items) > 0 {
			bs.cursor++
			if bs.cursor >= len(bs.items) {
				bs.cursor = 0
			}
		}
		return bs, nil

	case "enter":
		if item, ok := bs.Selected(); ok {
			return bs, func() tea.Msg { return OpenMsg{Item: item} }
		}
		return bs, nil

	case "r":
		bs.loading = true
		bs.err = nil
		return bs, func() tea.Msg { return RefreshMsg{} }
	}

	return bs, nil
}

// Selected returns the item at the cursor.
func (bs browseState) Selected() (catalog.Item, bool) {
	if len(bs.items) == 0 || bs.cursor < 0 || bs.cursor >= len(bs.items) {
		return catalog.Item{}, false
	}
	return bs.items[bs.cursor], true
}

// SelectedPath returns the source path at the cursor, or "" if the list is
// empty or still loading.
func (bs browseState) SelectedPath() string {
	item, _ := bs.Selected()
	return item.Path
}

// View renders the list pane content for the given dimensions.
// spinnerView is the current spinner frame (may be empty when spinner is inactive).
func (bs browseState) View(width, height int, roots []string, spinnerView string) string {
	if bs.loading {
		return fmt.Sprintf("%s Loading components...", spinnerView)
	}

	if bs.err != nil {
		return fmt.Sprintf("Error: %s\n\nPress r to retry", bs.err)
	}

	if len(bs.items) == 0 {
		return "No components with previews. Press r to refresh"
	}

	// Keep the cursor visible when the list is taller than the pane.
	start := 0
	if height > 0 && bs.cursor >= height {
		start = bs.cursor - height + 1
	}
	end := len(bs.items)
	if height > 0 && end-start > height {
		end = start + height
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		item := bs.items[i]
		if i > start {
			b.WriteByte('\n')
		}
		if i == bs.cursor {
			b.WriteString(CursorMarker)
		} else {
			b.WriteString("  ")
		}
		b.WriteString(item.Name)
		if dir := path.Dir(workspace.RelSlash(roots, item.Path)); dir != "." {
			b.WriteString(" " + mutedText.Render(dir))
		}
	}
	return b.String()
}
