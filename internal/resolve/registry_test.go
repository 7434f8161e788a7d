package resolve

import (
	"errors"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("register and create scanner", func(t *testing.T) {
		r := NewRegistry()
		r.Register("regexp", func() (Scanner, error) { return RegexpScanner{}, nil })

		s, err := r.NewScanner("regexp")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Name() != "regexp" {
			t.Errorf("Name() = %q, want %q", s.Name(), "regexp")
		}
	})

	t.Run("unknown scanner returns UnknownScannerError", func(t *testing.T) {
		r := NewRegistry()
		r.Register("regexp", func() (Scanner, error) { return RegexpScanner{}, nil })

		_, err := r.NewScanner("nonexistent")
		var use *UnknownScannerError
		if !errors.As(err, &use) {
			t.Fatalf("expected *UnknownScannerError, got %T", err)
		}
		if use.Name != "nonexistent" {
			t.Errorf("Name = %q, want %q", use.Name, "nonexistent")
		}
		if len(use.Available) != 1 || use.Available[0] != "regexp" {
			t.Errorf("Available = %v, want [regexp]", use.Available)
		}
	})

	t.Run("factory error is wrapped", func(t *testing.T) {
		r := NewRegistry()
		boom := errors.New("boom")
		r.Register("broken", func() (Scanner, error) { return nil, boom })

		_, err := r.NewScanner("broken")
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want wrapping %v", err, boom)
		}
	})

	t.Run("register panics on empty name", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic")
			}
		}()
		NewRegistry().Register("", func() (Scanner, error) { return RegexpScanner{}, nil })
	})

	t.Run("register panics on nil factory", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic")
			}
		}()
		NewRegistry().Register("x", nil)
	})
}

func TestRegisterBuiltins(t *testing.T) {
	// Given an empty registry
	reg := NewRegistry()

	// When RegisterBuiltins is called
	RegisterBuiltins(reg)

	// Then the regexp scanner is always available
	s, err := reg.NewScanner("regexp")
	if err != nil {
		t.Fatalf("NewScanner(regexp) error: %v", err)
	}
	if s.Name() != "regexp" {
		t.Errorf("Name() = %q", s.Name())
	}
}
