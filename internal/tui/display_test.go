package tui

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smileynet/compview/internal/orchestrator"
)

// writePNG creates a w x h PNG at path.
func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

// --- isTTY ---

func TestIsTTY_NonFileWriter(t *testing.T) {
	var buf bytes.Buffer
	if isTTY(&buf) {
		t.Error("non-*os.File writer should not be a TTY")
	}
}

func TestIsTTY_RegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "test")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	if IsTerminal(f) {
		t.Error("regular file should not be a TTY")
	}
}

// --- Bridge ---

func TestBridge_RenderImageDeliversPreview(t *testing.T) {
	b := NewBridge()

	go b.RenderImage("Hero03", "/w/src/blocks/Hero03.preview.png")

	got := <-b.Events()
	pm, ok := got.(PreviewMsg)
	if !ok {
		t.Fatalf("expected PreviewMsg, got %T", got)
	}
	want := orchestrator.Command{Kind: orchestrator.KindImage, Name: "Hero03", Image: "/w/src/blocks/Hero03.preview.png"}
	if pm.Command != want {
		t.Errorf("command = %+v, want %+v", pm.Command, want)
	}
}

func TestBridge_ApplyRoutesEveryKind(t *testing.T) {
	// Given: a bridge used as the orchestrator's presenter
	b := NewBridge()
	cmds := []orchestrator.Command{
		{Kind: orchestrator.KindEmpty},
		{Kind: orchestrator.KindNotFound, Name: "Feature17"},
		{Kind: orchestrator.KindImage, Name: "Hero03", Image: "/a.png"},
	}

	// When: each command is applied
	for _, c := range cmds {
		c.Apply(b)
	}
	b.Done()

	// Then: the events arrive in order, followed by DoneMsg
	var got []orchestrator.Command
	for ev := range b.Events() {
		if pm, ok := ev.(PreviewMsg); ok {
			got = append(got, pm.Command)
		}
	}
	if len(got) != len(cmds) {
		t.Fatalf("got %d commands, want %d", len(got), len(cmds))
	}
	for i := range cmds {
		if got[i] != cmds[i] {
			t.Errorf("command[%d] = %+v, want %+v", i, got[i], cmds[i])
		}
	}
}

func TestBridge_DoneSendsDoneAndCloses(t *testing.T) {
	b := NewBridge()

	go b.Done()

	got := <-b.Events()
	if _, ok := got.(DoneMsg); !ok {
		t.Fatalf("expected DoneMsg, got %T", got)
	}

	_, open := <-b.Events()
	if open {
		t.Error("channel should be closed after Done")
	}
}

func TestBridge_ErrorSendsErrorAndCloses(t *testing.T) {
	b := NewBridge()

	go b.Error(errors.New("watcher failed"))

	got := <-b.Events()
	em, ok := got.(ErrorMsg)
	if !ok {
		t.Fatalf("expected ErrorMsg, got %T", got)
	}
	if em.Err.Error() != "watcher failed" {
		t.Errorf("error = %q, want %q", em.Err, "watcher failed")
	}

	_, open := <-b.Events()
	if open {
		t.Error("channel should be closed after Error")
	}
}

func TestBridge_SendAfterDoneIsDropped(t *testing.T) {
	b := NewBridge()
	b.Done()
	b.Done()
	b.RenderNotFound("Late")

	var n int
	for range b.Events() {
		n++
	}
	if n != 1 {
		t.Errorf("got %d events, want only the DoneMsg", n)
	}
}

// --- PlainDisplay ---

func TestPlainDisplay_RendersImageRelativeToRoot(t *testing.T) {
	root := t.TempDir()
	img := filepath.Join(root, "src", "blocks", "Hero03.preview.png")
	writePNG(t, img, 12, 8)

	var buf bytes.Buffer
	d := NewPlainDisplay(&buf, []string{root}, nil)

	ch := make(chan DisplayEvent, 2)
	ch <- PreviewMsg{Command: orchestrator.Command{Kind: orchestrator.KindImage, Name: "Hero03", Image: img}}
	ch <- DoneMsg{}
	close(ch)

	if err := d.Run(context.Background(), ch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "image Hero03 src/blocks/Hero03.preview.png (12x8)") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestPlainDisplay_RendersNotFoundWithExpectedNames(t *testing.T) {
	var buf bytes.Buffer
	d := &PlainDisplay{w: &buf}

	d.Render(orchestrator.Command{Kind: orchestrator.KindNotFound, Name: "Feature17"})

	out := buf.String()
	if !strings.Contains(out, "not-found Feature17") {
		t.Errorf("output should name the component, got:\n%s", out)
	}
	for _, want := range []string{"Expected one of:", "Feature17.preview.png", "__previews__/Feature17.png"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q, got:\n%s", want, out)
		}
	}
}

func TestPlainDisplay_RendersEmpty(t *testing.T) {
	var buf bytes.Buffer
	d := &PlainDisplay{w: &buf}

	d.Render(orchestrator.Command{Kind: orchestrator.KindEmpty})

	out := buf.String()
	if !strings.Contains(out, "] empty") || !strings.Contains(out, "Place the cursor on a component name") {
		t.Errorf("unexpected output: %q", out)
	}
}

type stubComposer struct {
	names []string
	err   error
}

func (c *stubComposer) Compose(name string, data any) (string, error) {
	c.names = append(c.names, name)
	if c.err != nil {
		return "", c.err
	}
	return "custom " + name + "\nsecond line\n", nil
}

func TestPlainDisplay_MessagesComeFromComposer(t *testing.T) {
	// Given a display with user-supplied templates
	var buf bytes.Buffer
	msgs := &stubComposer{}
	d := NewPlainDisplay(&buf, nil, msgs)

	// When rendering the empty and not-found states
	d.Render(orchestrator.Command{Kind: orchestrator.KindEmpty})
	d.Render(orchestrator.Command{Kind: orchestrator.KindNotFound, Name: "Nav"})

	// Then both messages are composed from their templates
	out := buf.String()
	if got := strings.Join(msgs.names, ","); got != "empty.txt,notfound.txt" {
		t.Errorf("composed %q", got)
	}
	for _, want := range []string{"custom empty.txt", "not-found Nav", "custom notfound.txt", "  second line"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q, got:\n%s", want, out)
		}
	}
}

func TestPlainDisplay_TemplateErrorIsShown(t *testing.T) {
	var buf bytes.Buffer
	d := NewPlainDisplay(&buf, nil, &stubComposer{err: errors.New("markup: loading notfound.txt: missing")})

	d.Render(orchestrator.Command{Kind: orchestrator.KindNotFound, Name: "Nav"})

	if !strings.Contains(buf.String(), "error: markup: loading notfound.txt") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestPlainDisplay_ImageOutsideRootsKeepsAbsolutePath(t *testing.T) {
	var buf bytes.Buffer
	d := &PlainDisplay{w: &buf, roots: []string{"/workspace"}}

	d.Render(orchestrator.Command{Kind: orchestrator.KindImage, Name: "Hero03", Image: "/elsewhere/Hero03.png"})

	if !strings.Contains(buf.String(), "image Hero03 /elsewhere/Hero03.png") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestPlainDisplay_HandlesContextCancellation(t *testing.T) {
	var buf bytes.Buffer
	d := &PlainDisplay{w: &buf}
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan DisplayEvent)

	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx, ch)
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestPlainDisplay_ReturnsErrorFromErrorMsg(t *testing.T) {
	var buf bytes.Buffer
	d := &PlainDisplay{w: &buf}

	ch := make(chan DisplayEvent, 1)
	ch <- ErrorMsg{Err: errors.New("watcher failed")}
	close(ch)

	err := d.Run(context.Background(), ch)
	if err == nil || !strings.Contains(err.Error(), "watcher failed") {
		t.Errorf("expected session error, got %v", err)
	}
}

// --- NewDisplay factory ---

func TestNewDisplay_ForcePlainReturnsPlainDisplay(t *testing.T) {
	d := NewDisplay(DisplayOptions{Writer: os.Stdout, ForcePlain: true})

	if _, ok := d.(*PlainDisplay); !ok {
		t.Errorf("ForcePlain should return *PlainDisplay, got %T", d)
	}
}

func TestNewDisplay_NonTTYReturnsPlainDisplay(t *testing.T) {
	var buf bytes.Buffer
	d := NewDisplay(DisplayOptions{Writer: &buf})

	if _, ok := d.(*PlainDisplay); !ok {
		t.Errorf("non-TTY writer should return *PlainDisplay, got %T", d)
	}
}

func TestNewDisplay_DefaultsWriterToStdout(t *testing.T) {
	d := NewDisplay(DisplayOptions{ForcePlain: true, Roots: []string{"/w"}})

	pd, ok := d.(*PlainDisplay)
	if !ok {
		t.Fatalf("expected *PlainDisplay, got %T", d)
	}
	if pd.w != os.Stdout {
		t.Error("default Writer should be os.Stdout")
	}
	if len(pd.roots) != 1 || pd.roots[0] != "/w" {
		t.Errorf("roots = %v, want [/w]", pd.roots)
	}
}
