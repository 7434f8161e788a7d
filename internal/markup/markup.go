// Package markup renders the user-facing preview messages from text
// templates.
package markup

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"go.lsp.dev/uri"

	"github.com/smileynet/compview/internal/preview"
	"github.com/smileynet/compview/internal/workspace"
)

// Template names, without the .tmpl suffix.
const (
	Empty    = "empty.txt"
	NotFound = "notfound.txt"
	Hover    = "hover.md"
	Tooltip  = "tooltip.md"
)

// ErrEmpty indicates a template file exists but contains no content.
var ErrEmpty = errors.New("markup: empty template")

// HoverData holds the values interpolated into message templates.
type HoverData struct {
	Name      string
	ImagePath string   // absolute, empty when there is no preview
	ImageURI  string   // file:// URI of ImagePath
	ImageFile string   // ImagePath relative to its workspace root
	Expected  []string // filenames the user could add
}

// NewHoverData builds template data for name. An empty imagePath describes
// a component without a preview.
func NewHoverData(name, imagePath string, roots []string) HoverData {
	d := HoverData{
		Name:     name,
		Expected: preview.ExpectedFilenames(name),
	}
	if imagePath != "" {
		d.ImagePath = imagePath
		d.ImageURI = string(uri.File(imagePath))
		d.ImageFile = workspace.RelSlash(roots, imagePath)
	}
	return d
}

// Loader reads templates from a filesystem, normally compview.OverlayFS so
// users can override the embedded defaults.
type Loader struct {
	fsys fs.FS
}

// NewLoader creates a Loader that reads <name>.tmpl files from fsys.
func NewLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

// Load reads the template source for name.
func (l *Loader) Load(name string) (string, error) {
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("markup: invalid template name %q", name)
	}
	data, err := fs.ReadFile(l.fsys, name+".tmpl")
	if err != nil {
		return "", fmt.Errorf("markup: loading %s: %w", name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmpty, name)
	}
	return string(data), nil
}

// Compose loads the named template and executes it with data.
// Unknown fields are errors.
func (l *Loader) Compose(name string, data any) (string, error) {
	raw, err := l.Load(name)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(raw)
	if err != nil {
		return "", fmt.Errorf("markup: parsing template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("markup: executing template %s: %w", name, err)
	}
	return buf.String(), nil
}
