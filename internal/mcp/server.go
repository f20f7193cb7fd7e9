package mcp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"codenav/internal/budget"
	"codenav/internal/config"
	"codenav/internal/envelope"
	"codenav/internal/hierarchy"
	"codenav/internal/index"
	"codenav/internal/overflow"
	"codenav/internal/shape"
	"codenav/internal/slogutil"
)

// Options configures a Server.
type Options struct {
	Version         string
	ProjectName     string
	ProjectLanguage string

	// Index answers all symbol queries. Required.
	Index index.ProjectIndex

	// Freshness describes the loaded index for status reporting. Optional.
	Freshness *envelope.IndexFreshness

	// Store holds the full result sets truncated responses point back to.
	Store overflow.Store

	// Graph bounds relationship traversals; zero fields fall back to the
	// package defaults.
	Graph config.GraphConfig

	// Budget bounds response size.
	Budget budget.Config

	// AllowExternal reports whether an external symbol may be kept on an
	// outgoing edge. Nil allows none.
	AllowExternal func(index.SymbolRef) bool

	Logger *slog.Logger
}

// Server is the stdio MCP server. It reads newline-delimited JSON-RPC
// messages, runs each request on its own goroutine under a cancellable
// context, and keeps reading so a notifications/cancelled can abort an
// in-flight request.
type Server struct {
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	writeMu sync.Mutex

	logger  *slog.Logger
	version string

	projectName     string
	projectLanguage string

	idx       index.ProjectIndex
	freshness *envelope.IndexFreshness
	store     overflow.Store
	builder   *hierarchy.Builder
	shaper    *shape.Shaper
	graph     config.GraphConfig

	tools map[string]ToolHandler

	mu       sync.Mutex
	inflight map[string]context.CancelFunc // request key -> cancel
	wg       sync.WaitGroup
}

// NewServer creates a server over the given index and stores.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	graph := opts.Graph
	if graph.MaxDepth <= 0 {
		graph.MaxDepth = hierarchy.DefaultMaxDepth
	}
	if graph.MaxNodes <= 0 {
		graph.MaxNodes = hierarchy.DefaultMaxNodes
	}

	builder := hierarchy.NewBuilder(opts.Index, logger)
	if opts.AllowExternal != nil {
		builder.AllowExternal(opts.AllowExternal)
	}

	server := &Server{
		stdin:           os.Stdin,
		stdout:          os.Stdout,
		logger:          logger,
		version:         opts.Version,
		projectName:     opts.ProjectName,
		projectLanguage: opts.ProjectLanguage,
		idx:             opts.Index,
		freshness:       opts.Freshness,
		store:           opts.Store,
		builder:         builder,
		shaper:          shape.NewShaper(opts.Store, opts.Budget, logger),
		graph:           graph,
		tools:           make(map[string]ToolHandler),
		inflight:        make(map[string]context.CancelFunc),
	}

	server.RegisterTools()

	return server
}

// Start starts the server and processes messages until stdin closes.
func (s *Server) Start() error {
	s.logger.Info("MCP server starting",
		"version", s.version,
		"project", s.projectName,
	)

	for {
		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("MCP server shutting down (EOF)")
				s.wg.Wait()
				return nil
			}
			s.logger.Error("error reading message", "error", err.Error())

			// Try to send error response if we can extract an ID
			if msg != nil && msg.Id != nil {
				_ = s.writeError(msg.Id, ParseError, fmt.Sprintf("Failed to parse message: %v", err))
			}
			continue
		}

		s.dispatch(msg)
	}
}

// dispatch routes one message. Notifications are handled inline on the read
// loop; requests run on their own goroutine so the loop keeps reading.
func (s *Server) dispatch(msg *MCPMessage) {
	if msg.IsNotification() {
		s.handleNotification(msg)
		return
	}
	if !msg.IsRequest() {
		_ = s.writeError(msg.Id, InvalidRequest, "Invalid message: not a request or notification")
		return
	}
	s.dispatchRequest(msg)
}

// dispatchRequest runs a request under its own cancellable context. The
// cancel func is registered before the goroutine starts so a cancellation
// arriving right behind the request still finds it.
func (s *Server) dispatchRequest(msg *MCPMessage) {
	ctx, cancel := context.WithCancel(context.Background())
	key := requestKey(msg.Id)

	s.mu.Lock()
	s.inflight[key] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, key)
			s.mu.Unlock()
			cancel()
		}()

		response := s.handleRequest(ctx, msg)
		if response == nil {
			return
		}
		if err := s.writeMessage(response); err != nil {
			s.logger.Error("error writing response", "error", err.Error())
		}
	}()
}

// cancelRequest aborts the in-flight request with the given id. A
// cancellation for an id that already completed is a no-op.
func (s *Server) cancelRequest(id interface{}) {
	key := requestKey(id)

	s.mu.Lock()
	cancel, ok := s.inflight[key]
	s.mu.Unlock()

	if !ok {
		s.logger.Debug("cancellation for unknown or completed request", "id", id)
		return
	}
	s.logger.Info("cancelling request", "id", id)
	cancel()
}

// requestKey normalizes a JSON-RPC id (string or number) for map lookup.
func requestKey(id interface{}) string {
	return fmt.Sprintf("%v", id)
}

// SetStdin sets the input stream (for testing)
func (s *Server) SetStdin(r io.Reader) {
	s.stdin = r
	s.scanner = nil // Reset scanner so it will be recreated with new reader
}

// SetStdout sets the output stream (for testing)
func (s *Server) SetStdout(w io.Writer) {
	s.stdout = w
}
