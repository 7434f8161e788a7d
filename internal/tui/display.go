package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/smileynet/compview/internal/orchestrator"
	"github.com/smileynet/compview/internal/preview"
	"github.com/smileynet/compview/internal/workspace"
)

// DisplayEvent is an event sent to a Display via the update channel.
// Implemented by PreviewMsg, DoneMsg, and ErrorMsg.
type DisplayEvent interface {
	isDisplayEvent()
}

// Verify at compile time that message types implement DisplayEvent.
var (
	_ DisplayEvent = PreviewMsg{}
	_ DisplayEvent = DoneMsg{}
	_ DisplayEvent = ErrorMsg{}

	_ orchestrator.Presenter = (*Bridge)(nil)
)

// Display renders presentation commands.
type Display interface {
	Run(ctx context.Context, events <-chan DisplayEvent) error
}

// DisplayOptions configures display creation.
type DisplayOptions struct {
	Writer     io.Writer          // Output destination (default: os.Stdout).
	ForcePlain bool               // Force plain text even if TTY.
	Roots      []string           // Workspace roots; image paths are shown relative to them.
	Composer   Composer           // Renders the empty and not-found messages (default: embedded templates).
	CancelFunc context.CancelFunc // Called by TUI on quit keypress (ignored by PlainDisplay).
	// DisableInput stops the TUI from reading keys, for when stdin carries
	// editor events. Quit then comes from context cancellation.
	DisableInput bool
}

// NewDisplay returns a TUI display when stdout is a TTY, or a plain text
// display otherwise. ForcePlain overrides TTY detection.
func NewDisplay(opts DisplayOptions) Display {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	if opts.ForcePlain || !isTTY(opts.Writer) {
		return &PlainDisplay{w: opts.Writer, roots: opts.Roots, msgs: opts.Composer}
	}

	return &TUIDisplay{w: opts.Writer, roots: opts.Roots, msgs: opts.Composer, cancelFunc: opts.CancelFunc, noInput: opts.DisableInput}
}

// IsTerminal reports whether w is connected to a terminal.
func IsTerminal(w io.Writer) bool { return isTTY(w) }

// isTTY reports whether w is connected to a terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Bridge manages the channel between the orchestrator and a Display consumer.
// It implements orchestrator.Presenter.
type Bridge struct {
	mu     sync.Mutex
	closed bool
	ch     chan DisplayEvent
}

// NewBridge creates a Bridge with a buffered event channel.
func NewBridge() *Bridge {
	return &Bridge{ch: make(chan DisplayEvent, 16)}
}

// Events returns the read-only channel for Display.Run() to consume.
func (b *Bridge) Events() <-chan DisplayEvent {
	return b.ch
}

// Send delivers a command to the display.
// It blocks if the channel buffer (16) is full. Commands sent after Done or
// Error are dropped.
func (b *Bridge) Send(cmd orchestrator.Command) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.ch <- PreviewMsg{Command: cmd}
}

// RenderEmpty sends an empty-state command.
func (b *Bridge) RenderEmpty() {
	b.Send(orchestrator.Command{Kind: orchestrator.KindEmpty})
}

// RenderImage sends an image command.
func (b *Bridge) RenderImage(name, imagePath string) {
	b.Send(orchestrator.Command{Kind: orchestrator.KindImage, Name: name, Image: imagePath})
}

// RenderNotFound sends a not-found command.
func (b *Bridge) RenderNotFound(name string) {
	b.Send(orchestrator.Command{Kind: orchestrator.KindNotFound, Name: name})
}

// Done signals the end of the session and closes the channel.
func (b *Bridge) Done() {
	b.finish(DoneMsg{})
}

// Error signals session failure and closes the channel.
func (b *Bridge) Error(err error) {
	b.finish(ErrorMsg{Err: err})
}

func (b *Bridge) finish(ev DisplayEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.ch <- ev
	close(b.ch)
}

// PlainDisplay renders commands as timestamped text lines.
type PlainDisplay struct {
	w     io.Writer
	roots []string
	msgs  Composer
}

// NewPlainDisplay returns a PlainDisplay writing to w. A nil composer uses
// the embedded message templates.
func NewPlainDisplay(w io.Writer, roots []string, msgs Composer) *PlainDisplay {
	return &PlainDisplay{w: w, roots: roots, msgs: msgs}
}

// Run loops over events, printing each command as a text line.
// Returns the session error if one was sent, or context error if cancelled.
func (d *PlainDisplay) Run(ctx context.Context, events <-chan DisplayEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch msg := ev.(type) {
			case PreviewMsg:
				d.Render(msg.Command)
			case DoneMsg:
				return nil
			case ErrorMsg:
				return msg.Err
			}
		}
	}
}

// Render writes one command.
func (d *PlainDisplay) Render(cmd orchestrator.Command) {
	ts := time.Now().Format("15:04:05")
	switch cmd.Kind {
	case orchestrator.KindEmpty:
		_, _ = fmt.Fprintf(d.w, "[%s] empty\n%s\n", ts, indent(message(d.msgs, cmd, d.roots), plainIndent))
	case orchestrator.KindImage:
		size := ""
		if w, h, ok := preview.ImageSize(cmd.Image); ok {
			size = fmt.Sprintf(" (%dx%d)", w, h)
		}
		_, _ = fmt.Fprintf(d.w, "[%s] image %s %s%s\n", ts, cmd.Name, displayPath(d.roots, cmd.Image), size)
	case orchestrator.KindNotFound:
		_, _ = fmt.Fprintf(d.w, "[%s] not-found %s\n%s\n", ts, cmd.Name, indent(message(d.msgs, cmd, d.roots), plainIndent))
	}
}

// plainIndent aligns message lines under the timestamp.
const plainIndent = "           "

// displayPath shortens p relative to its workspace root.
func displayPath(roots []string, p string) string {
	if _, ok := workspace.ContainingRoot(roots, p); !ok {
		return p
	}
	return workspace.RelSlash(roots, p)
}

// TUIDisplay renders commands using a Bubble Tea terminal UI.
// Falls back to PlainDisplay if the TUI program fails to start.
type TUIDisplay struct {
	w          io.Writer
	roots      []string
	msgs       Composer
	cancelFunc context.CancelFunc
	noInput    bool
}

// Run starts the Bubble Tea program and feeds events from the channel.
// If the TUI fails to initialize, it falls back to plain text output.
func (d *TUIDisplay) Run(ctx context.Context, events <-chan DisplayEvent) error {
	opts := []ModelOption{WithRoots(d.roots), WithComposer(d.msgs)}
	if d.cancelFunc != nil {
		opts = append(opts, WithCancelFunc(d.cancelFunc))
	}
	model := NewModel(opts...)
	progOpts := []tea.ProgramOption{tea.WithOutput(d.w), tea.WithContext(ctx)}
	if d.noInput {
		progOpts = append(progOpts, tea.WithInput(nil))
	}
	p := tea.NewProgram(model, progOpts...)

	// Forward events through an intermediate channel so we can stop
	// the goroutine cleanly on TUI failure before falling back.
	fwd := make(chan DisplayEvent, 16)
	stop := make(chan struct{})

	go func() {
		defer close(fwd)
		for ev := range events {
			select {
			case fwd <- ev:
			case <-stop:
				return
			}
		}
	}()

	go func() {
		for ev := range fwd {
			p.Send(ev)
		}
	}()

	final, err := p.Run()
	if err != nil {
		close(stop)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		plain := &PlainDisplay{w: d.w, roots: d.roots, msgs: d.msgs}
		return plain.Run(ctx, events)
	}
	if m, ok := final.(Model); ok && m.err != nil {
		return m.err
	}
	return nil
}
