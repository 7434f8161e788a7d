package orchestrator

import (
	"path/filepath"
	"strings"

	"github.com/smileynet/compview/internal/extract"
	"github.com/smileynet/compview/internal/resolve"
)

// Request asks the orchestrator to show the preview for one component.
// Exactly one of File and Doc is normally set: File when the component file
// is already known, Doc when it must be resolved from the document the name
// was found in. The document is only resolved once deduplication has passed.
type Request struct {
	Name  string
	File  string
	Doc   *resolve.Document
	Roots []string
}

// CursorRequest builds a request from the identifier under offset. It
// reports false when no component name is there.
func CursorRequest(text string, offset int, docPath string, roots []string) (Request, bool) {
	name, ok := extract.Extract(text, offset)
	if !ok {
		return Request{}, false
	}
	return Request{
		Name:  name,
		Doc:   &resolve.Document{Path: docPath, Text: text},
		Roots: roots,
	}, true
}

// FileRequest builds a request for a component file, naming the component
// after the file.
func FileRequest(path string) Request {
	base := filepath.Base(path)
	return Request{
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
		File: path,
	}
}
