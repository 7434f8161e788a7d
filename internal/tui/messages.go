package tui

import (
	"strings"

	"github.com/smileynet/compview"
	"github.com/smileynet/compview/internal/markup"
	"github.com/smileynet/compview/internal/orchestrator"
)

// Composer renders a named message template.
type Composer interface {
	Compose(name string, data any) (string, error)
}

// embedded renders the built-in templates when no Composer is configured.
var embedded Composer = markup.NewLoader(compview.Templates)

// message renders the template text for an empty or not-found command.
// A failing template is reported in place of the message.
func message(c Composer, cmd orchestrator.Command, roots []string) string {
	if c == nil {
		c = embedded
	}
	name := markup.Empty
	if cmd.Kind == orchestrator.KindNotFound {
		name = markup.NotFound
	}
	text, err := c.Compose(name, markup.NewHoverData(cmd.Name, "", roots))
	if err != nil {
		return "error: " + err.Error()
	}
	return strings.TrimRight(text, "\n")
}

// indent prefixes every non-blank line of text.
func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
