package dashboard

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/compview/internal/orchestrator"
)

// helpBarHeight is the number of lines reserved for the help bar at the bottom.
const helpBarHeight = 1

// borderChrome is the number of lines consumed by top + bottom borders.
const borderChrome = 2

// statusHeight is the line under the detail viewport that reports the last open.
const statusHeight = 1

// Model is the root Bubble Tea model for the catalog browser.
// It manages a two-pane layout with focus management.
type Model struct {
	focus    Focus
	width    int
	height   int
	viewport viewport.Model
	help     help.Model
	spinner  spinner.Model

	browse    browseState
	cache     *Cache
	detailErr error
	status    string

	ctx       context.Context
	roots     []string
	lister    Lister
	describer Describer
	opener    Opener
}

// Option configures a Model.
type Option func(*Model)

// WithLister sets the source of the component list.
func WithLister(l Lister) Option { return func(m *Model) { m.lister = l } }

// WithDescriber sets how the detail pane is built.
func WithDescriber(d Describer) Option { return func(m *Model) { m.describer = d } }

// WithOpener sets where enter sends the selected component.
func WithOpener(o Opener) Option { return func(m *Model) { m.opener = o } }

// WithRoots sets the workspace roots used to shorten paths.
func WithRoots(roots []string) Option { return func(m *Model) { m.roots = roots } }

// WithContext sets the context passed to list calls.
func WithContext(ctx context.Context) Option { return func(m *Model) { m.ctx = ctx } }

// NewModel creates a dashboard Model with left-pane focus. Without a lister
// the list starts empty.
func NewModel(opts ...Option) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := Model{
		focus:    PaneLeft,
		viewport: viewport.New(0, 0),
		help:     help.New(),
		spinner:  s,
		cache:    NewCache(),
		ctx:      context.Background(),
	}
	for _, o := range opts {
		o(&m)
	}
	if m.describer == nil {
		m.describer = FileDescriber{Roots: m.roots}
	}
	if m.lister != nil {
		m.browse = newBrowseState()
	}
	return m
}

// Forward sends a CatalogChangedMsg to p whenever src reports a change.
// Call it once p is running; the returned function unsubscribes.
func Forward(p *tea.Program, src interface{ OnChange(func()) func() }) func() {
	return src.OnChange(func() { p.Send(CatalogChangedMsg{}) })
}

// Init starts the spinner and the first list load.
func (m Model) Init() tea.Cmd {
	if m.lister == nil {
		return nil
	}
	return tea.Batch(m.spinner.Tick, initBrowse(m.ctx, m.lister))
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		_, rightWidth := PaneWidths(msg.Width)
		vpWidth := rightWidth - borderChrome
		if vpWidth < 0 {
			vpWidth = 0
		}
		m.viewport.Width = vpWidth
		m.viewport.Height = max(m.contentHeight()-statusHeight, 1)
		return m, nil

	case ListMsg:
		m.browse, _ = m.browse.Update(msg)
		return m, m.selectDetail()

	case DetailMsg:
		if msg.Path != m.browse.SelectedPath() {
			return m, nil
		}
		if msg.Err != nil {
			m.detailErr = msg.Err
			m.viewport.SetContent("")
			return m, nil
		}
		d := msg.Detail
		m.cache.Set(msg.Path, &d)
		m.detailErr = nil
		m.viewport.SetContent(renderDetail(d))
		m.viewport.GotoTop()
		return m, nil

	case OpenMsg:
		if m.opener == nil {
			return m, nil
		}
		opener, path := m.opener, msg.Item.Path
		return m, func() tea.Msg {
			cmd, outcome := opener.OpenFile(path)
			return OpenedMsg{Command: cmd, Outcome: outcome}
		}

	case OpenedMsg:
		m.status = openedStatus(msg)
		return m, nil

	case RefreshMsg, CatalogChangedMsg:
		m.cache.Invalidate()
		if m.lister == nil {
			return m, nil
		}
		m.browse.loading = true
		m.browse.err = nil
		return m, tea.Batch(m.spinner.Tick, initBrowse(m.ctx, m.lister))

	case spinner.TickMsg:
		if !m.browse.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey processes key messages with global and pane-specific routing.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		if m.focus == PaneLeft {
			m.focus = PaneRight
		} else {
			m.focus = PaneLeft
		}
		return m, nil
	}

	if m.focus == PaneRight {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	before := m.browse.SelectedPath()
	var cmd tea.Cmd
	m.browse, cmd = m.browse.Update(msg)
	if m.browse.SelectedPath() != before {
		return m, tea.Batch(cmd, m.selectDetail())
	}
	return m, cmd
}

// selectDetail shows the cached detail of the selected item, or starts
// describing it.
func (m *Model) selectDetail() tea.Cmd {
	m.detailErr = nil
	item, ok := m.browse.Selected()
	if !ok {
		m.viewport.SetContent("")
		return nil
	}
	if d, ok := m.cache.Get(item.Path); ok {
		m.viewport.SetContent(renderDetail(*d))
		return nil
	}
	m.viewport.SetContent(mutedText.Render("Loading " + item.Name + "..."))
	describer := m.describer
	return func() tea.Msg {
		d, err := describer.Describe(item)
		return DetailMsg{Path: item.Path, Detail: d, Err: err}
	}
}

func openedStatus(msg OpenedMsg) string {
	switch msg.Outcome {
	case orchestrator.OutcomeDuplicate:
		return "already showing"
	case orchestrator.OutcomeStale:
		return "superseded by a newer request"
	case orchestrator.OutcomeNone:
		return "not a component file"
	}
	switch msg.Command.Kind {
	case orchestrator.KindImage:
		return fmt.Sprintf("showing %s", msg.Command.Name)
	case orchestrator.KindNotFound:
		return fmt.Sprintf("no preview for %s", msg.Command.Name)
	}
	return msg.Command.String()
}

// contentHeight returns the usable height for pane content,
// accounting for border chrome and the help bar.
func (m Model) contentHeight() int {
	h := m.height - borderChrome - helpBarHeight
	if h < 1 {
		return 1
	}
	return h
}

// View renders the two-pane layout with help bar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	leftWidth, rightWidth := PaneWidths(m.width)
	contentHeight := m.contentHeight()

	var leftStyle, rightStyle lipgloss.Style
	if m.focus == PaneLeft {
		leftStyle = FocusedBorder()
		rightStyle = UnfocusedBorder()
	} else {
		leftStyle = UnfocusedBorder()
		rightStyle = FocusedBorder()
	}

	leftStyle = leftStyle.
		Width(leftWidth - borderChrome).
		Height(contentHeight)
	rightStyle = rightStyle.
		Width(rightWidth - borderChrome).
		Height(contentHeight)

	leftPane := leftStyle.Render(m.browse.View(leftWidth-borderChrome, contentHeight, m.roots, m.spinner.View()))
	rightPane := rightStyle.Render(m.viewRight())
	panes := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)
	helpView := m.help.View(HelpBindings(m.focus))

	return lipgloss.JoinVertical(lipgloss.Left, panes, helpView)
}

// viewRight renders the detail viewport and the status line.
func (m Model) viewRight() string {
	if m.detailErr != nil {
		return errText.Render("Error: " + m.detailErr.Error())
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), mutedText.Render(m.status))
}
