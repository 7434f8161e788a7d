package lspserver

import (
	"fmt"
	"os"
	"sync"
)

// Documents holds the text of the documents the editor has open. Closed
// documents are read from disk.
type Documents struct {
	mu   sync.RWMutex
	open map[string]string
}

// NewDocuments returns an empty store.
func NewDocuments() *Documents {
	return &Documents{open: make(map[string]string)}
}

// Open records the full text of path.
func (d *Documents) Open(path, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open[path] = text
}

// Change replaces the text of an open document. Changes to documents that
// were never opened are recorded as opens.
func (d *Documents) Change(path, text string) {
	d.Open(path, text)
}

// Close forgets path.
func (d *Documents) Close(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.open, path)
}

func (d *Documents) isOpen(path string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.open[path]
	return ok
}

// Text returns the editor's text for path, or the file contents when the
// document is not open.
func (d *Documents) Text(path string) (string, error) {
	d.mu.RLock()
	text, ok := d.open[path]
	d.mu.RUnlock()
	if ok {
		return text, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("lspserver: reading %s: %w", path, err)
	}
	return string(data), nil
}

func (d *Documents) count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.open)
}
