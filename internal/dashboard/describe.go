package dashboard

import (
	"fmt"
	"strings"

	"github.com/smileynet/compview/internal/catalog"
	"github.com/smileynet/compview/internal/preview"
	"github.com/smileynet/compview/internal/workspace"
)

// FileDescriber describes items from the files on disk.
type FileDescriber struct {
	Roots []string
}

// Describe reads the preview's image header. A missing or undecodable
// image still yields a Detail without dimensions.
func (d FileDescriber) Describe(item catalog.Item) (Detail, error) {
	if item.Image == "" {
		return Detail{}, fmt.Errorf("dashboard: %s has no preview", item.Label)
	}
	det := Detail{
		Name:   item.Name,
		Source: workspace.RelSlash(d.Roots, item.Path),
		Image:  workspace.RelSlash(d.Roots, item.Image),
	}
	if w, h, ok := preview.ImageSize(item.Image); ok {
		det.Width, det.Height = w, h
	}
	return det, nil
}

// renderDetail formats a Detail for the right pane.
func renderDetail(d Detail) string {
	var b strings.Builder
	b.WriteString(titleText.Render(d.Name) + " " + catalog.Badge + "\n\n")
	fmt.Fprintf(&b, "%s %s\n", labelText.Render("Source: "), d.Source)
	fmt.Fprintf(&b, "%s %s\n", labelText.Render("Preview:"), d.Image)
	if d.Width > 0 {
		fmt.Fprintf(&b, "%s %dx%d\n", labelText.Render("Size:   "), d.Width, d.Height)
	}
	b.WriteString("\n" + mutedText.Render("enter shows it in the preview panel"))
	return b.String()
}
