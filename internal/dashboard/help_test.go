package dashboard

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/help"
)

func TestHelpBindings_LeftPane(t *testing.T) {
	// Given: help bindings for the list pane
	allKeys := collectKeys(HelpBindings(PaneLeft).ShortHelp())

	// Then: enter and quit keys are present
	if !containsKey(allKeys, "enter") {
		t.Error("list help should contain 'enter' key")
	}
	if !containsKey(allKeys, "q") {
		t.Error("list help should contain 'q' key")
	}
}

func TestHelpBindings_RightPane(t *testing.T) {
	// Given: help bindings for the detail pane
	allKeys := collectKeys(HelpBindings(PaneRight).ShortHelp())

	// Then: enter is absent but quit is present
	if containsKey(allKeys, "enter") {
		t.Error("detail help should not contain 'enter' key")
	}
	if !containsKey(allKeys, "q") {
		t.Error("detail help should contain 'q' key")
	}
}

func TestHelpBindings_RendersWithHelpModel(t *testing.T) {
	h := help.New()
	h.Width = 120

	view := stripANSI(h.View(HelpBindings(PaneLeft)))
	if !strings.Contains(view, "show preview") {
		t.Errorf("help view should describe enter, got %q", view)
	}
}
