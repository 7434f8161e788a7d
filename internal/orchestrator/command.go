package orchestrator

import "fmt"

// Kind identifies a presentation command.
type Kind int

const (
	KindEmpty    Kind = iota // Nothing selected yet.
	KindImage                // A preview image was found.
	KindNotFound             // The name was recognized but has no preview.
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindImage:
		return "image"
	case KindNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// Command is one instruction for the presentation layer.
type Command struct {
	Kind  Kind
	Name  string
	Image string // absolute path, set for KindImage
}

func (c Command) String() string {
	switch c.Kind {
	case KindImage:
		return fmt.Sprintf("image %s %s", c.Name, c.Image)
	case KindNotFound:
		return fmt.Sprintf("not-found %s", c.Name)
	default:
		return c.Kind.String()
	}
}

// Presenter renders commands. Defined here (the consumer) so any display
// can receive them.
type Presenter interface {
	RenderEmpty()
	RenderImage(name, imagePath string)
	RenderNotFound(name string)
}

// Apply sends c to p.
func (c Command) Apply(p Presenter) {
	switch c.Kind {
	case KindEmpty:
		p.RenderEmpty()
	case KindImage:
		p.RenderImage(c.Name, c.Image)
	case KindNotFound:
		p.RenderNotFound(c.Name)
	}
}

// Outcome says what Show did with a request.
type Outcome int

const (
	OutcomeNone      Outcome = iota // No component name; nothing happened.
	OutcomeDuplicate                // Same name as the last shown; skipped before any lookup.
	OutcomeStale                    // A newer request started first; the result was discarded.
	OutcomePresented                // A command reached the presenter.
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeStale:
		return "stale"
	case OutcomePresented:
		return "presented"
	default:
		return "unknown"
	}
}
