package lspserver

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/smileynet/compview/internal/markup"
	"github.com/smileynet/compview/internal/orchestrator"
	"github.com/smileynet/compview/internal/session"
	"github.com/smileynet/compview/internal/workspace/workspacetest"
)

const page = `import Feature17 from '../blocks/Feature17';

export const Page = () => <Feature17 />;
`

// client is the editor side of a served connection.
type client struct {
	conn *jsonrpc2.Conn
	done <-chan error
}

func serve(t *testing.T, srv *Server) *client {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, serverSide) }()

	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(func(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) (any, error) {
			return nil, nil
		}))
	t.Cleanup(func() { _ = conn.Close() })
	return &client{conn: conn, done: done}
}

func (c *client) call(t *testing.T, method string, params, result any) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.conn.Call(ctx, method, params, result)
}

func (c *client) notify(t *testing.T, method string, params any) {
	t.Helper()
	require.NoError(t, c.conn.Notify(context.Background(), method, params))
}

func (c *client) open(t *testing.T, path, text string) {
	t.Helper()
	c.notify(t, "textDocument/didOpen", protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri.File(path), LanguageID: "typescriptreact", Version: 1, Text: text},
	})
}

func (c *client) hover(t *testing.T, path string, line, char uint32) *protocol.Hover {
	t.Helper()
	var h *protocol.Hover
	err := c.call(t, "textDocument/hover", protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri.File(path)},
			Position:     protocol.Position{Line: line, Character: char},
		},
	}, &h)
	require.NoError(t, err)
	return h
}

func (c *client) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-c.done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
		return nil
	}
}

func newSessionServer(t *testing.T, files ...string) (*Server, *session.Session, string) {
	t.Helper()
	root := workspacetest.Tree(t, files...)
	s, err := session.New([]string{root}, session.WithoutWatcher())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return New(s, s.Markup, s.Changes, WithVersion("test")), s, root
}

func TestServer_InitializeReportsCapabilities(t *testing.T) {
	srv, _, _ := newSessionServer(t)
	c := serve(t, srv)

	var res struct {
		Capabilities struct {
			TextDocumentSync struct {
				OpenClose bool `json:"openClose"`
				Change    int  `json:"change"`
			} `json:"textDocumentSync"`
			HoverProvider bool `json:"hoverProvider"`
		} `json:"capabilities"`
		ServerInfo protocol.ServerInfo `json:"serverInfo"`
	}
	require.NoError(t, c.call(t, "initialize", protocol.InitializeParams{}, &res))

	assert.True(t, res.Capabilities.TextDocumentSync.OpenClose)
	assert.Equal(t, int(protocol.TextDocumentSyncKindFull), res.Capabilities.TextDocumentSync.Change)
	assert.True(t, res.Capabilities.HoverProvider)
	assert.Equal(t, "compview", res.ServerInfo.Name)
	assert.Equal(t, "test", res.ServerInfo.Version)
}

func TestServer_HoverShowsImportedPreview(t *testing.T) {
	// Given: an open page importing a component that has a preview
	srv, _, root := newSessionServer(t, "src/blocks/Feature17.tsx", "src/blocks/Feature17.preview.png")
	c := serve(t, srv)
	doc := filepath.Join(root, "src", "pages", "Page.tsx")
	c.open(t, doc, page)

	// When: hovering the JSX tag
	h := c.hover(t, doc, 2, 29)

	// Then: the markdown embeds the image and the range covers the name
	require.NotNil(t, h)
	img := filepath.Join(root, "src", "blocks", "Feature17.preview.png")
	assert.Equal(t, protocol.Markdown, h.Contents.Kind)
	assert.Contains(t, h.Contents.Value, "**Feature17**")
	assert.Contains(t, h.Contents.Value, string(uri.File(img)))
	assert.Contains(t, h.Contents.Value, "Preview: `src/blocks/Feature17.preview.png`")
	require.NotNil(t, h.Range)
	assert.Equal(t, protocol.Position{Line: 2, Character: 27}, h.Range.Start)
	assert.Equal(t, protocol.Position{Line: 2, Character: 36}, h.Range.End)
}

func TestServer_HoverListsExpectedFilenamesWhenMissing(t *testing.T) {
	srv, _, root := newSessionServer(t, "src/pages/Page.tsx")
	c := serve(t, srv)
	doc := filepath.Join(root, "src", "pages", "Page.tsx")
	c.open(t, doc, "const a = <Sidebar />;\n")

	h := c.hover(t, doc, 0, 13)

	require.NotNil(t, h)
	assert.Contains(t, h.Contents.Value, "_No preview image found._")
	assert.Contains(t, h.Contents.Value, "`Sidebar.preview.png`")
	assert.Contains(t, h.Contents.Value, "`__previews__/Sidebar.png`")
}

func TestServer_HoverOffComponentIsNull(t *testing.T) {
	srv, _, root := newSessionServer(t, "src/pages/Page.tsx")
	c := serve(t, srv)
	doc := filepath.Join(root, "src", "pages", "Page.tsx")
	c.open(t, doc, page)

	assert.Nil(t, c.hover(t, doc, 2, 8), "keyword under the cursor")
	assert.Nil(t, c.hover(t, filepath.Join(root, "missing.tsx"), 0, 0), "unreadable document")
}

func TestServer_HoverReadsUnopenedFileFromDisk(t *testing.T) {
	srv, _, root := newSessionServer(t, "src/blocks/Feature17.tsx", "src/blocks/Feature17.preview.png")
	doc := filepath.Join(root, "src", "pages", "Page.tsx")
	require.NoError(t, os.MkdirAll(filepath.Dir(doc), 0o755))
	require.NoError(t, os.WriteFile(doc, []byte(page), 0o644))
	c := serve(t, srv)

	h := c.hover(t, doc, 2, 29)

	require.NotNil(t, h)
	assert.Contains(t, h.Contents.Value, "Feature17.preview.png")
}

func TestServer_DidChangeReplacesDocument(t *testing.T) {
	srv, _, root := newSessionServer(t, "src/blocks/Hero03.preview.png")
	c := serve(t, srv)
	doc := filepath.Join(root, "src", "pages", "Page.tsx")
	c.open(t, doc, "const a = 1;\n")

	c.notify(t, "textDocument/didChange", protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri.File(doc)},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: "const a = <Hero03 />;\n"}},
	})
	h := c.hover(t, doc, 0, 12)

	require.NotNil(t, h)
	assert.Contains(t, h.Contents.Value, "**Hero03**")

	c.notify(t, "textDocument/didClose", protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri.File(doc)},
	})
	// Close is a notification; a following request is handled after it.
	_ = c.hover(t, doc, 0, 0)
	assert.False(t, srv.docs.isOpen(doc))
}

func TestServer_WatchedFileEventsInvalidatePreviews(t *testing.T) {
	// Given: a hover that found no preview
	srv, _, root := newSessionServer(t, "src/pages/Page.tsx")
	c := serve(t, srv)
	doc := filepath.Join(root, "src", "pages", "Page.tsx")
	c.open(t, doc, "const a = <Sidebar />;\n")
	require.Contains(t, c.hover(t, doc, 0, 13).Contents.Value, "_No preview image found._")

	// When: the image is added and the editor reports it
	img := filepath.Join(root, "src", "Sidebar.preview.png")
	workspacetest.Touch(t, img)
	c.notify(t, "workspace/didChangeWatchedFiles", protocol.DidChangeWatchedFilesParams{
		Changes: []*protocol.FileEvent{{Type: protocol.FileChangeTypeCreated, URI: uri.File(img)}},
	})

	// Then: the next hover sees it
	h := c.hover(t, doc, 0, 13)
	require.NotNil(t, h)
	assert.Contains(t, h.Contents.Value, "Preview: `src/Sidebar.preview.png`")
}

func TestServer_UnknownRequestIsMethodNotFound(t *testing.T) {
	srv, _, _ := newSessionServer(t)
	c := serve(t, srv)

	err := c.call(t, "textDocument/definition", map[string]any{}, nil)

	var rpcErr *jsonrpc2.Error
	require.True(t, errors.As(err, &rpcErr), "got %v", err)
	assert.Equal(t, int64(jsonrpc2.CodeMethodNotFound), rpcErr.Code)

	// Unknown notifications are ignored and the connection stays usable.
	c.notify(t, "$/setTrace", map[string]any{"value": "off"})
	require.NoError(t, c.call(t, "shutdown", nil, nil))
}

func TestServer_ShutdownThenExit(t *testing.T) {
	srv, _, _ := newSessionServer(t)
	c := serve(t, srv)

	require.NoError(t, c.call(t, "shutdown", nil, nil))
	c.notify(t, "exit", nil)

	assert.NoError(t, c.wait(t))
}

func TestServer_ExitWithoutShutdown(t *testing.T) {
	srv, _, _ := newSessionServer(t)
	c := serve(t, srv)

	c.notify(t, "exit", nil)

	assert.ErrorIs(t, c.wait(t), ErrNoShutdown)
}

func TestServer_ContextCancelStopsServe(t *testing.T) {
	srv := New(fakeBackend{}, markup.NewLoader(os.DirFS(t.TempDir())), nil)
	serverSide, clientSide := net.Pipe()
	t.Cleanup(func() { _ = clientSide.Close() })
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, serverSide) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

type fakeBackend struct {
	err error
}

func (f fakeBackend) Lookup(context.Context, string, string, int) (orchestrator.Command, bool, error) {
	if f.err != nil {
		return orchestrator.Command{}, false, f.err
	}
	return orchestrator.Command{Kind: orchestrator.KindNotFound, Name: "Hero03"}, true, nil
}

func (fakeBackend) HoverData(cmd orchestrator.Command) markup.HoverData {
	return markup.HoverData{Name: cmd.Name}
}

func TestServer_LookupErrorIsReturnedToClient(t *testing.T) {
	dir := t.TempDir()
	srv := New(fakeBackend{err: errors.New("search failed")}, markup.NewLoader(os.DirFS(dir)), nil)
	c := serve(t, srv)
	doc := filepath.Join(dir, "Page.tsx")
	c.open(t, doc, "<Hero03 />")

	var h *protocol.Hover
	err := c.call(t, "textDocument/hover", protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri.File(doc)},
			Position:     protocol.Position{Character: 2},
		},
	}, &h)

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "search failed"), "got %v", err)
}

func TestServer_MissingTemplateIsReturnedToClient(t *testing.T) {
	dir := t.TempDir()
	srv := New(fakeBackend{}, markup.NewLoader(os.DirFS(dir)), nil)
	c := serve(t, srv)
	doc := filepath.Join(dir, "Page.tsx")
	c.open(t, doc, "<Hero03 />")

	var h *protocol.Hover
	err := c.call(t, "textDocument/hover", protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri.File(doc)},
			Position:     protocol.Position{Character: 2},
		},
	}, &h)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "hover.md")
}

func TestFilename(t *testing.T) {
	p, ok := filename(uri.File("/w/src/Page.tsx"))
	assert.True(t, ok)
	assert.Equal(t, "/w/src/Page.tsx", p)

	_, ok = filename("untitled:Untitled-1")
	assert.False(t, ok)
	_, ok = filename("::not a uri")
	assert.False(t, ok)
}
