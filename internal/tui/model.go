package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/compview/internal/orchestrator"
	"github.com/smileynet/compview/internal/preview"
)

// historySize bounds the recently shown list.
const historySize = 8

var (
	nameStyle  = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// PreviewMsg carries one presentation command to the display.
type PreviewMsg struct {
	Command orchestrator.Command
}

// DoneMsg signals that the session ended normally.
type DoneMsg struct{}

// ErrorMsg signals that the session failed with an error.
type ErrorMsg struct {
	Err error
}

func (PreviewMsg) isDisplayEvent() {}
func (DoneMsg) isDisplayEvent()    {}
func (ErrorMsg) isDisplayEvent()   {}

// imageSizeMsg reports decoded image dimensions for a shown image.
type imageSizeMsg struct {
	path          string
	width, height int
}

// Model is the Bubble Tea model for the preview panel.
type Model struct {
	current    orchestrator.Command
	width      int
	imgW, imgH int
	history    []string
	roots      []string
	msgs       Composer
	spinner    spinner.Model
	done       bool
	err        error
	cancelFunc context.CancelFunc
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithCancelFunc sets the function called when the user quits.
func WithCancelFunc(fn context.CancelFunc) ModelOption {
	return func(m *Model) { m.cancelFunc = fn }
}

// WithRoots sets the workspace roots used to shorten image paths.
func WithRoots(roots []string) ModelOption {
	return func(m *Model) { m.roots = roots }
}

// WithComposer sets the renderer for the empty and not-found messages.
func WithComposer(c Composer) ModelOption {
	return func(m *Model) { m.msgs = c }
}

// NewModel creates a Model in the empty state.
func NewModel(opts ...ModelOption) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := Model{spinner: s}
	for _, o := range opts {
		o(&m)
	}
	return m
}

// Init starts the spinner tick.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case PreviewMsg:
		m.current = msg.Command
		m.imgW, m.imgH = 0, 0
		if msg.Command.Kind == orchestrator.KindEmpty {
			return m, nil
		}
		m.remember(msg.Command.Name)
		if msg.Command.Kind == orchestrator.KindImage {
			return m, readImageSize(msg.Command.Image)
		}
		return m, nil

	case imageSizeMsg:
		if m.current.Kind == orchestrator.KindImage && m.current.Image == msg.path {
			m.imgW, m.imgH = msg.width, msg.height
		}
		return m, nil

	case DoneMsg:
		m.done = true
		return m, tea.Quit

	case ErrorMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.done {
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancelFunc != nil {
				m.cancelFunc()
			}
			m.done = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// remember moves name to the front of the history.
func (m *Model) remember(name string) {
	h := slices.DeleteFunc(slices.Clone(m.history), func(s string) bool { return s == name })
	h = append([]string{name}, h...)
	if len(h) > historySize {
		h = h[:historySize]
	}
	m.history = h
}

// View renders the current preview state.
func (m Model) View() string {
	var b strings.Builder

	switch m.current.Kind {
	case orchestrator.KindEmpty:
		title, rest, _ := strings.Cut(message(m.msgs, m.current, m.roots), "\n")
		fmt.Fprintf(&b, "  %s %s\n", m.spinner.View(), title)
		if rest = strings.TrimSpace(rest); rest != "" {
			b.WriteString(faintStyle.Render(indent(rest, "    ")) + "\n")
		}
	case orchestrator.KindImage:
		fmt.Fprintf(&b, "  ✓ %s\n", nameStyle.Render(m.current.Name))
		fmt.Fprintf(&b, "    %s\n", displayPath(m.roots, m.current.Image))
		if m.imgW > 0 {
			fmt.Fprintf(&b, "    %dx%d\n", m.imgW, m.imgH)
		}
	case orchestrator.KindNotFound:
		fmt.Fprintf(&b, "  ✗ %s\n", nameStyle.Render(m.current.Name))
		b.WriteString(indent(message(m.msgs, m.current, m.roots), "    ") + "\n")
	}

	if len(m.history) > 1 {
		b.WriteString("\n" + faintStyle.Render("  Recent: "+strings.Join(m.history[1:], ", ")) + "\n")
	}

	if m.done && m.err != nil {
		b.WriteString("\n  " + errStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	return b.String()
}

// readImageSize decodes the image header off the update loop.
func readImageSize(path string) tea.Cmd {
	return func() tea.Msg {
		w, h, ok := preview.ImageSize(path)
		if !ok {
			return nil
		}
		return imageSizeMsg{path: path, width: w, height: h}
	}
}
