// Package dashboard implements a two-pane TUI for browsing the components
// that have a preview. Separate from internal/tui which renders the live
// preview panel.
package dashboard

import (
	"context"

	"github.com/smileynet/compview/internal/catalog"
	"github.com/smileynet/compview/internal/orchestrator"
)

// Focus represents which pane has keyboard focus.
type Focus int

const (
	PaneLeft  Focus = iota // Left pane (component list) has focus.
	PaneRight              // Right pane (preview detail viewport) has focus.
)

// Detail describes the preview of one catalog item for the right pane.
type Detail struct {
	Name   string
	Source string // source path relative to its workspace root
	Image  string // preview path relative to its workspace root
	Width  int    // zero when the image header could not be read
	Height int
}

// --- Consumer-side interfaces ---

// Lister fetches the catalog of components with previews.
type Lister interface {
	List(ctx context.Context) ([]catalog.Item, error)
}

// Describer builds the detail for a single item.
type Describer interface {
	Describe(item catalog.Item) (Detail, error)
}

// Opener sends a component file to the preview panel.
type Opener interface {
	OpenFile(path string) (orchestrator.Command, orchestrator.Outcome)
}

// --- tea.Msg types ---

// ListMsg carries the result of a Lister.List() call.
type ListMsg struct {
	Items []catalog.Item
	Err   error
}

// DetailMsg carries the result of a Describer.Describe() call.
type DetailMsg struct {
	Path   string
	Detail Detail
	Err    error
}

// OpenMsg asks the dashboard to open the given item.
type OpenMsg struct {
	Item catalog.Item
}

// OpenedMsg carries the command produced by opening an item.
type OpenedMsg struct {
	Command orchestrator.Command
	Outcome orchestrator.Outcome
}

// RefreshMsg requests a reload of the component list.
type RefreshMsg struct{}

// CatalogChangedMsg reports that the catalog may have changed on disk.
type CatalogChangedMsg struct{}
