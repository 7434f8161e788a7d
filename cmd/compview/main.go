package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.lsp.dev/protocol"
	"golang.org/x/sync/errgroup"

	"github.com/smileynet/compview/internal/catalog"
	"github.com/smileynet/compview/internal/config"
	"github.com/smileynet/compview/internal/dashboard"
	"github.com/smileynet/compview/internal/lspserver"
	"github.com/smileynet/compview/internal/orchestrator"
	"github.com/smileynet/compview/internal/session"
	"github.com/smileynet/compview/internal/tui"
	"github.com/smileynet/compview/internal/workspace"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	// errNotFound reports a component without a preview image.
	errNotFound = errors.New("no preview image found")
	// errNoComponent reports a cursor that is not on a component name.
	errNoComponent = errors.New("no component name at the cursor")
	errNoTTY       = errors.New("requires a terminal (TTY)")
)

// Globals are flags shared by every command.
type Globals struct {
	Roots    []string `name:"root" short:"r" help:"Workspace root; repeat for multi-root workspaces." default:"."`
	LogLevel string   `name:"log-level" help:"Override log.level (debug, info, warn, error)."`
}

// CLI is the top-level command structure for compview.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version." short:"V"`
	Show    ShowCmd          `cmd:"" help:"Show the preview for the component under a cursor position."`
	File    FileCmd          `cmd:"" help:"Show the preview for a component source file."`
	List    ListCmd          `cmd:"" help:"List components that have a preview."`
	Badge   BadgeCmd         `cmd:"" help:"Print the preview badge for a file."`
	Panel   PanelCmd         `cmd:"" help:"Run the preview panel, fed by editor events on stdin."`
	Browse  BrowseCmd        `cmd:"" help:"Browse previewed components interactively."`
	Serve   ServeCmd         `cmd:"" help:"Run the hover language server on stdin/stdout."`
}

// env holds what every command builds before it can run.
type env struct {
	roots  []string
	cfg    *config.Config
	logger *slog.Logger
	reg    *prometheus.Registry
}

// setup validates the roots, loads layered config for the first root and
// builds the logger. Log lines go to logw.
func (g *Globals) setup(logw io.Writer) (*env, error) {
	roots := make([]string, 0, len(g.Roots))
	for _, r := range g.Roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("root %s: %w", r, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("root %s: %w", r, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("root %s: not a directory", r)
		}
		roots = append(roots, abs)
	}
	if len(roots) == 0 {
		return nil, errors.New("at least one --root is required")
	}

	cfg, err := loadConfig(roots[0])
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	logger, err := newLogger(logw, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return &env{roots: roots, cfg: cfg, logger: logger, reg: prometheus.NewRegistry()}, nil
}

// session starts a session over the env's roots.
func (e *env) session(opts ...session.Option) (*session.Session, error) {
	base := []session.Option{
		session.WithConfig(*e.cfg),
		session.WithLogger(e.logger),
		session.WithRegisterer(e.reg),
	}
	return session.New(e.roots, append(base, opts...)...)
}

// loadConfig loads layered config from user and project paths with env overrides.
func loadConfig(root string) (*config.Config, error) {
	cfg, err := config.LoadLayered(config.UserPath(), config.ProjectPath(root))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// serveMetrics exposes reg at addr until ctx ends. An empty addr disables it.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) error {
	if addr == "" {
		return nil
	}
	reg.MustRegister(collectors.NewGoCollector())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	logger.Info("metrics: serving", slog.String("addr", ln.Addr().String()))

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics: %w", err)
	}
}

// --- One-shot commands ---

// looker resolves the component under a cursor.
type looker interface {
	Lookup(ctx context.Context, docPath, text string, offset int) (orchestrator.Command, bool, error)
}

// ShowCmd resolves the component under a cursor position.
type ShowCmd struct {
	Doc    string `arg:"" help:"Document containing the cursor." type:"existingfile"`
	Line   int    `arg:"" help:"Cursor line (1-based)."`
	Column int    `arg:"" help:"Cursor column in UTF-16 units (1-based)."`
}

// Run executes the show command.
func (c *ShowCmd) Run(g *Globals) error {
	e, err := g.setup(os.Stderr)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	s, err := e.session(session.WithoutWatcher())
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	defer s.Close()

	doc, err := filepath.Abs(c.Doc)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	data, err := os.ReadFile(doc)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	return c.run(context.Background(), s, tui.NewPlainDisplay(os.Stdout, s.Roots, s.Markup), doc, string(data))
}

// run resolves and prints one cursor position, enabling testable wiring.
func (c *ShowCmd) run(ctx context.Context, l looker, out *tui.PlainDisplay, doc, text string) error {
	offset, err := cursorOffset(text, c.Line, c.Column)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	cmd, found, err := l.Lookup(ctx, doc, text, offset)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	if !found {
		return fmt.Errorf("show: %w", errNoComponent)
	}
	out.Render(cmd)
	if cmd.Kind == orchestrator.KindNotFound {
		return fmt.Errorf("show: %s: %w", cmd.Name, errNotFound)
	}
	return nil
}

// cursorOffset converts a 1-based line and column to a byte offset.
func cursorOffset(text string, line, column int) (int, error) {
	if line < 1 || column < 1 {
		return 0, fmt.Errorf("line and column are 1-based, got %d:%d", line, column)
	}
	return lspserver.Offset(text, protocol.Position{Line: uint32(line - 1), Character: uint32(column - 1)}), nil
}

// fileOpener shows the component defined by a source file.
type fileOpener interface {
	OpenFile(path string) (orchestrator.Command, orchestrator.Outcome)
}

// FileCmd shows the preview for a component source file.
type FileCmd struct {
	Path string `arg:"" help:"Component source file." type:"path"`
}

// Run executes the file command.
func (c *FileCmd) Run(g *Globals) error {
	e, err := g.setup(os.Stderr)
	if err != nil {
		return fmt.Errorf("file: %w", err)
	}
	s, err := e.session(session.WithoutWatcher())
	if err != nil {
		return fmt.Errorf("file: %w", err)
	}
	defer s.Close()
	return c.run(s, tui.NewPlainDisplay(os.Stdout, s.Roots, s.Markup))
}

// run shows one file, enabling testable wiring.
func (c *FileCmd) run(o fileOpener, out *tui.PlainDisplay) error {
	path, err := filepath.Abs(c.Path)
	if err != nil {
		return fmt.Errorf("file: %w", err)
	}
	cmd, outcome := o.OpenFile(path)
	if outcome == orchestrator.OutcomeNone {
		return fmt.Errorf("file: %s is not a component file", c.Path)
	}
	out.Render(cmd)
	if cmd.Kind == orchestrator.KindNotFound {
		return fmt.Errorf("file: %s: %w", cmd.Name, errNotFound)
	}
	return nil
}

// ListCmd lists components that have a preview.
type ListCmd struct{}

// Run executes the list command.
func (c *ListCmd) Run(g *Globals) error {
	e, err := g.setup(os.Stderr)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	s, err := e.session(session.WithoutWatcher())
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	defer s.Close()
	return c.run(context.Background(), os.Stdout, s.Catalog, s.Roots)
}

// run prints the catalog, enabling testable wiring.
func (c *ListCmd) run(ctx context.Context, w io.Writer, l dashboard.Lister, roots []string) error {
	items, err := l.List(ctx)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, "No components with previews.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, it := range items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", it.Name, workspace.RelSlash(roots, it.Path), workspace.RelSlash(roots, it.Image))
	}
	return tw.Flush()
}

// decorator answers badge questions for files.
type decorator interface {
	Decorate(path string) (catalog.Decoration, bool)
}

// BadgeCmd prints the preview badge for a file.
type BadgeCmd struct {
	Path string `arg:"" help:"Source file to decorate." type:"path"`
}

// Run executes the badge command.
func (c *BadgeCmd) Run(g *Globals) error {
	e, err := g.setup(os.Stderr)
	if err != nil {
		return fmt.Errorf("badge: %w", err)
	}
	s, err := e.session(session.WithoutWatcher())
	if err != nil {
		return fmt.Errorf("badge: %w", err)
	}
	defer s.Close()
	return c.run(os.Stdout, s.Catalog)
}

// run prints one decoration, enabling testable wiring.
func (c *BadgeCmd) run(w io.Writer, d decorator) error {
	path, err := filepath.Abs(c.Path)
	if err != nil {
		return fmt.Errorf("badge: %w", err)
	}
	dec, ok := d.Decorate(path)
	if !ok {
		return fmt.Errorf("badge: %s: %w", c.Path, errNotFound)
	}
	_, _ = fmt.Fprintf(w, "%s\n%s\n", dec.Badge, dec.Tooltip)
	return nil
}

// --- Long-running commands ---

// PanelCmd runs the preview panel. Editor events arrive as JSON lines.
type PanelCmd struct {
	Input string `help:"File or FIFO carrying editor events; - reads stdin." default:"-"`
	NoTUI bool   `help:"Force plain text output even if stdout is a TTY." default:"false"`
}

// Run builds the session and display and runs the panel until the input
// ends or the user quits.
func (c *PanelCmd) Run(g *Globals) error {
	e, err := g.setup(os.Stderr)
	if err != nil {
		return fmt.Errorf("panel: %w", err)
	}

	in := io.Reader(os.Stdin)
	if c.Input != "-" {
		f, err := os.Open(c.Input)
		if err != nil {
			return fmt.Errorf("panel: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bridge := tui.NewBridge()
	s, err := e.session(session.WithPresenter(bridge))
	if err != nil {
		return fmt.Errorf("panel: %w", err)
	}
	defer s.Close()

	display := tui.NewDisplay(tui.DisplayOptions{
		Writer:       os.Stdout,
		ForcePlain:   c.NoTUI,
		Roots:        s.Roots,
		Composer:     s.Markup,
		CancelFunc:   cancel,
		DisableInput: c.Input == "-",
	})
	return c.run(ctx, cancel, in, s, display, bridge, e)
}

// run wires the event reader, the display and the metrics endpoint into one
// process group, enabling testable wiring.
func (c *PanelCmd) run(ctx context.Context, cancel context.CancelFunc, in io.Reader, sink eventSink, display tui.Display, bridge *tui.Bridge, e *env) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		err := display.Run(gctx, bridge.Events())
		// Keep draining so late presentations never block the session.
		go func() {
			for range bridge.Events() {
			}
		}()
		return err
	})

	g.Go(func() error {
		sink.Clear()
		err := readEvents(gctx, in, sink, e.logger)
		if err == nil && gctx.Err() == nil {
			sink.Flush()
		}
		if err != nil {
			bridge.Error(err)
		} else {
			bridge.Done()
		}
		return err
	})

	g.Go(func() error { return serveMetrics(gctx, e.cfg.Metrics.Addr, e.reg, e.logger) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("panel: %w", err)
	}
	return nil
}

// teaRunner abstracts Bubble Tea program execution for testing.
type teaRunner interface {
	Run() (tea.Model, error)
}

// BrowseCmd opens the two-pane component browser.
type BrowseCmd struct{}

// Run builds real dependencies and launches the browser TUI.
func (b *BrowseCmd) Run(g *Globals) error {
	if !tui.IsTerminal(os.Stdout) {
		return fmt.Errorf("browse: %w", errNoTTY)
	}
	e, err := g.setup(os.Stderr)
	if err != nil {
		return fmt.Errorf("browse: %w", err)
	}
	s, err := e.session()
	if err != nil {
		return fmt.Errorf("browse: %w", err)
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := dashboard.NewModel(
		dashboard.WithLister(s.Catalog),
		dashboard.WithOpener(s),
		dashboard.WithRoots(s.Roots),
		dashboard.WithContext(ctx),
	)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	unforward := dashboard.Forward(prog, s.Catalog)
	defer unforward()

	return b.run(true, prog)
}

// run executes the tea program, enabling testable wiring.
func (b *BrowseCmd) run(isTTY bool, prog teaRunner) error {
	if !isTTY {
		return fmt.Errorf("browse: %w", errNoTTY)
	}
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("browse: %w", err)
	}
	return nil
}

// ServeCmd runs the hover language server over stdio.
type ServeCmd struct{}

// Run builds the session and serves LSP on stdin/stdout. Logs go to stderr.
func (c *ServeCmd) Run(g *Globals) error {
	e, err := g.setup(os.Stderr)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	s, err := e.session()
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := lspserver.New(s, s.Markup, s.Changes,
		lspserver.WithLogger(e.logger),
		lspserver.WithVersion(version))
	return c.run(ctx, srv, stdio{ReadCloser: os.Stdin, WriteCloser: os.Stdout}, e)
}

// run serves one connection next to the metrics endpoint, enabling testable
// wiring.
func (c *ServeCmd) run(ctx context.Context, srv *lspserver.Server, rwc io.ReadWriteCloser, e *env) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return srv.Serve(gctx, rwc)
	})
	g.Go(func() error { return serveMetrics(gctx, e.cfg.Metrics.Addr, e.reg, e.logger) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// stdio joins stdin and stdout into one connection.
type stdio struct {
	io.ReadCloser
	io.WriteCloser
}

func (s stdio) Close() error {
	return errors.Join(s.ReadCloser.Close(), s.WriteCloser.Close())
}

// Exit codes.
const (
	exitSuccess  = 0
	exitNotFound = 1
	exitSetup    = 2
)

// exitCode maps an error to the appropriate exit code.
func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return exitSuccess
	case errors.Is(err, errNotFound), errors.Is(err, errNoComponent):
		return exitNotFound
	case errors.Is(err, lspserver.ErrNoShutdown):
		// LSP clients expect 1 when exit arrives without shutdown.
		return exitNotFound
	}
	return exitSetup
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Description("Component preview resolution for editor panels, hovers and terminals."),
		kong.Vars{"version": version + " " + commit + " " + date})
	err := ctx.Run(&cli.Globals)
	if code := exitCode(err); code != exitSuccess {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(code)
	}
}
