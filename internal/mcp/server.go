package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/blevlabs/TuningTracker/internal/tracker"
)

const (
	// MCPVersion is the protocol version we support.
	MCPVersion = "2024-11-05"

	// ServerName is the name of this MCP server.
	ServerName = "aitracker"

	// maxLineSize bounds a single JSON-RPC message.
	maxLineSize = 4 << 20
)

// Backend is the part of *tracker.Tracker the tools use.
type Backend interface {
	Search(ctx context.Context, class string, concepts []string, opts ...tracker.SearchOption) ([]tracker.DataObject, error)
	GetObject(ctx context.Context, class, id string, properties ...string) (*tracker.DataObject, error)
	AddObject(ctx context.Context, class string, properties map[string]any) (string, error)
	DeleteObject(ctx context.Context, class, id string) error
	ExportAll(ctx context.Context, class, path string, properties ...string) (*tracker.ExportResult, error)
	GetSchema(ctx context.Context) (*tracker.Schema, error)
}

// Server is the MCP server for aitracker.
type Server struct {
	backend Backend
	version string
	tools   map[string]tool
	order   []string

	reader io.Reader
	writer io.Writer

	initialized bool
}

// Option configures a Server.
type Option func(*Server)

// WithIO replaces stdin and stdout.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(s *Server) {
		s.reader = r
		s.writer = w
	}
}

// WithVersion sets the version reported to clients.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates a new MCP server over backend.
func NewServer(backend Backend, opts ...Option) *Server {
	s := &Server{
		backend: backend,
		version: "dev",
		reader:  os.Stdin,
		writer:  os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

// Run processes requests until the input ends or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	log.Info("MCP server starting", "tools", len(s.tools))

	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.sendError(nil, ErrorCodeParse, "Parse error", err.Error())
			continue
		}
		if req.JSONRPC != "2.0" || req.Method == "" {
			s.sendError(req.ID, ErrorCodeInvalidRequest, "Invalid request", "jsonrpc must be 2.0 and method is required")
			continue
		}

		s.handleRequest(ctx, req)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}
	log.Info("MCP server received EOF, shutting down")
	return nil
}

func (s *Server) handleRequest(ctx context.Context, req Request) {
	log.Debug("Received request", "method", req.Method, "id", req.ID)

	var result any
	var err error

	switch req.Method {
	case "initialize":
		result, err = s.handleInitialize(req.Params)
	case "initialized", "notifications/initialized":
		s.initialized = true
		log.Info("MCP server initialized")
		return
	case "tools/list":
		result = s.handleListTools()
	case "tools/call":
		result, err = s.handleCallTool(ctx, req.Params)
	case "ping":
		result = map[string]any{}
	default:
		if req.ID == nil {
			log.Debug("Ignoring notification", "method", req.Method)
			return
		}
		s.sendError(req.ID, ErrorCodeMethodNotFound, "Method not found", req.Method)
		return
	}

	var invalid *invalidParamsError
	switch {
	case errors.As(err, &invalid):
		s.sendError(req.ID, ErrorCodeInvalidParams, "Invalid params", invalid.Error())
	case err != nil:
		s.sendError(req.ID, ErrorCodeInternal, "Internal error", err.Error())
	default:
		s.sendResult(req.ID, result)
	}
}

type invalidParamsError struct{ err error }

func (e *invalidParamsError) Error() string { return e.err.Error() }
func (e *invalidParamsError) Unwrap() error { return e.err }

func (s *Server) handleInitialize(params json.RawMessage) (*InitializeResult, error) {
	var p InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &invalidParamsError{err}
		}
	}

	log.Info("Initializing MCP server",
		"clientName", p.ClientInfo.Name,
		"clientVersion", p.ClientInfo.Version,
		"protocolVersion", p.ProtocolVersion,
	)

	return &InitializeResult{
		ProtocolVersion: MCPVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo: ServerInfo{
			Name:    ServerName,
			Version: s.version,
		},
	}, nil
}

func (s *Server) handleListTools() *ListToolsResult {
	tools := make([]Tool, 0, len(s.order))
	for _, name := range s.order {
		tools = append(tools, s.tools[name].def)
	}
	return &ListToolsResult{Tools: tools}
}

// handleCallTool runs a tool. Tool failures are reported in the result with
// IsError set, not as JSON-RPC errors, so the model can read them.
func (s *Server) handleCallTool(ctx context.Context, params json.RawMessage) (*CallToolResult, error) {
	var p CallToolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &invalidParamsError{err}
	}

	t, ok := s.tools[p.Name]
	if !ok {
		return textResult(fmt.Sprintf("Unknown tool: %s", p.Name), true), nil
	}

	log.Debug("Calling tool", "name", p.Name)

	args := p.Arguments
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	text, err := t.run(ctx, args)
	if err != nil {
		log.Debug("Tool failed", "name", p.Name, "error", err)
		return textResult("Error: "+err.Error(), true), nil
	}
	return textResult(text, false), nil
}

func textResult(text string, isError bool) *CallToolResult {
	return &CallToolResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: isError,
	}
}

func (s *Server) sendResult(id any, result any) {
	s.send(Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func (s *Server) sendError(id any, code int, message, data string) {
	s.send(Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	})
}

func (s *Server) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("Failed to marshal response", "error", err)
		return
	}
	if _, err := fmt.Fprintln(s.writer, string(data)); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}
