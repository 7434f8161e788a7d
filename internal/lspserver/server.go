// Package lspserver answers editor hover requests with component previews
// over the Language Server Protocol.
package lspserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/smileynet/compview/internal/extract"
	"github.com/smileynet/compview/internal/markup"
	"github.com/smileynet/compview/internal/orchestrator"
	"github.com/smileynet/compview/internal/workspace"
)

// ErrNoShutdown is returned by Serve when the client sent exit without a
// preceding shutdown request.
var ErrNoShutdown = errors.New("lspserver: exit without shutdown")

// Backend resolves the component under a cursor.
type Backend interface {
	Lookup(ctx context.Context, docPath, text string, offset int) (orchestrator.Command, bool, error)
	HoverData(cmd orchestrator.Command) markup.HoverData
}

// Composer renders a named message template.
type Composer interface {
	Compose(name string, data any) (string, error)
}

// Publisher receives file changes reported by the editor.
type Publisher interface {
	Publish(events ...workspace.Event)
}

// Server is a stdio language server that offers hover previews.
type Server struct {
	backend  Backend
	composer Composer
	changes  Publisher
	docs     *Documents
	logger   *slog.Logger
	version  string

	mu       sync.Mutex
	shutdown bool
	exited   bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

// WithVersion sets the version reported in the initialize result.
func WithVersion(v string) Option { return func(s *Server) { s.version = v } }

// New creates a Server. changes may be nil when the editor's file events
// should be ignored.
func New(backend Backend, composer Composer, changes Publisher, opts ...Option) *Server {
	s := &Server{
		backend:  backend,
		composer: composer,
		changes:  changes,
		docs:     NewDocuments(),
		logger:   slog.New(slog.DiscardHandler),
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve speaks LSP over rwc until the client exits, the connection drops or
// ctx ends.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream,
		jsonrpc2.HandlerWithError(s.handle).SuppressErrClosed(),
		jsonrpc2.SetLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug)))

	select {
	case <-ctx.Done():
		_ = conn.Close()
		<-conn.DisconnectNotify()
		return ctx.Err()
	case <-conn.DisconnectNotify():
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exited && !s.shutdown {
		return ErrNoShutdown
	}
	return nil
}

func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	s.logger.Debug("lspserver: request", slog.String("method", req.Method), slog.Bool("notification", req.Notif))

	switch req.Method {
	case "initialize":
		return s.initialize(), nil

	case "initialized":
		return nil, nil

	case "shutdown":
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		return nil, nil

	case "exit":
		s.mu.Lock()
		s.exited = true
		s.mu.Unlock()
		return nil, conn.Close()

	case "textDocument/didOpen":
		var params protocol.DidOpenTextDocumentParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		if path, ok := filename(params.TextDocument.URI); ok {
			s.docs.Open(path, params.TextDocument.Text)
			s.logger.Debug("lspserver: opened", slog.String("path", path), slog.Int("open", s.docs.count()))
		}
		return nil, nil

	case "textDocument/didChange":
		var params protocol.DidChangeTextDocumentParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		path, ok := filename(params.TextDocument.URI)
		if !ok || len(params.ContentChanges) == 0 {
			return nil, nil
		}
		// Full sync: the last change holds the whole document.
		s.docs.Change(path, params.ContentChanges[len(params.ContentChanges)-1].Text)
		return nil, nil

	case "textDocument/didClose":
		var params protocol.DidCloseTextDocumentParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		if path, ok := filename(params.TextDocument.URI); ok {
			s.docs.Close(path)
			s.logger.Debug("lspserver: closed", slog.String("path", path), slog.Int("open", s.docs.count()))
		}
		return nil, nil

	case "textDocument/hover":
		var params protocol.HoverParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return s.hover(ctx, params)

	case "workspace/didChangeWatchedFiles":
		var params protocol.DidChangeWatchedFilesParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		s.fileChanges(params)
		return nil, nil
	}

	if req.Notif {
		return nil, nil
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: fmt.Sprintf("method not supported: %s", req.Method)}
}

func (s *Server) initialize() protocol.InitializeResult {
	return protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			HoverProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{Name: "compview", Version: s.version},
	}
}

// hover returns nil when the position is not on a component name.
func (s *Server) hover(ctx context.Context, params protocol.HoverParams) (*protocol.Hover, error) {
	path, ok := filename(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	text, err := s.docs.Text(path)
	if err != nil {
		s.logger.Debug("lspserver: hover on unreadable document", slog.String("path", path), slog.Any("error", err))
		return nil, nil
	}

	offset := Offset(text, params.Position)
	cmd, found, err := s.backend.Lookup(ctx, path, text, offset)
	if err != nil {
		return nil, fmt.Errorf("lspserver: hover: %w", err)
	}
	if !found {
		return nil, nil
	}

	md, err := s.composer.Compose(markup.Hover, s.backend.HoverData(cmd))
	if err != nil {
		return nil, fmt.Errorf("lspserver: hover: %w", err)
	}
	h := &protocol.Hover{Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: md}}
	if start, end, ok := extract.Span(text, offset); ok {
		h.Range = &protocol.Range{Start: Position(text, start), End: Position(text, end)}
	}
	return h, nil
}

// fileChanges forwards the editor's file events as workspace events.
func (s *Server) fileChanges(params protocol.DidChangeWatchedFilesParams) {
	if s.changes == nil {
		return
	}
	events := make([]workspace.Event, 0, len(params.Changes))
	for _, ch := range params.Changes {
		if ch == nil {
			continue
		}
		path, ok := filename(ch.URI)
		if !ok {
			continue
		}
		var op workspace.Op
		switch ch.Type {
		case protocol.FileChangeTypeCreated:
			op = workspace.OpCreate
		case protocol.FileChangeTypeChanged:
			op = workspace.OpWrite
		case protocol.FileChangeTypeDeleted:
			op = workspace.OpRemove
		default:
			continue
		}
		events = append(events, workspace.Event{Path: path, Op: op})
	}
	if len(events) > 0 {
		s.changes.Publish(events...)
	}
}

func decode(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

// filename converts a file:// URI to a path. Other schemes are rejected.
func filename(u protocol.DocumentURI) (string, bool) {
	parsed, err := url.ParseRequestURI(string(u))
	if err != nil || parsed.Scheme != uri.FileScheme {
		return "", false
	}
	return uri.URI(u).Filename(), true
}
