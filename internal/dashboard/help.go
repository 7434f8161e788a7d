package dashboard

import "github.com/charmbracelet/bubbles/help"

// HelpBindings returns the help.KeyMap for the focused pane,
// providing context-aware help bar content.
func HelpBindings(focus Focus) help.KeyMap {
	if focus == PaneRight {
		return DetailKeyMap()
	}
	return BrowseKeyMap()
}
