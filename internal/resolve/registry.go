package resolve

import (
	"fmt"
	"sort"
	"strings"
)

// ScannerFactory creates a Scanner.
type ScannerFactory func() (Scanner, error)

// Registry maps import-scanner names to factories.
// It is not safe for concurrent use; registration should happen at startup.
type Registry struct {
	factories map[string]ScannerFactory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ScannerFactory)}
}

// Register adds a named scanner factory. Overwrites if name already exists.
// Panics if name is empty or f is nil (programmer error).
func (r *Registry) Register(name string, f ScannerFactory) {
	if name == "" {
		panic("resolve: Register called with empty name")
	}
	if f == nil {
		panic("resolve: Register called with nil factory")
	}
	r.factories[name] = f
}

// NewScanner instantiates a scanner by name.
func (r *Registry) NewScanner(name string) (Scanner, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, &UnknownScannerError{
			Name:      name,
			Available: r.AvailableScanners(),
		}
	}
	s, err := f()
	if err != nil {
		return nil, fmt.Errorf("resolve: scanner factory %q: %w", name, err)
	}
	return s, nil
}

// AvailableScanners returns registered scanner names in sorted order.
func (r *Registry) AvailableScanners() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownScannerError indicates a scanner name is not registered.
type UnknownScannerError struct {
	Name      string
	Available []string
}

func (e *UnknownScannerError) Error() string {
	return fmt.Sprintf("unknown import scanner %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// RegisterBuiltins registers every scanner compiled into the binary.
func RegisterBuiltins(reg *Registry) {
	reg.Register("regexp", func() (Scanner, error) { return RegexpScanner{}, nil })
	registerTreeSitter(reg)
}
