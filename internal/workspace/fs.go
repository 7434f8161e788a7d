package workspace

import "os"

// FS answers "does path exist" synchronously. Implementations treat every
// probe failure (permission denied, transient I/O errors) as absence.
type FS interface {
	Exists(path string) bool
}

// OSFS probes the local filesystem.
type OSFS struct{}

// Exists reports whether path can be stat'ed.
func (OSFS) Exists(path string) bool {
	_, err := statFn(path)
	return err == nil
}

// statFn is replaced in tests.
var statFn = os.Stat
