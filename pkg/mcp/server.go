package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/figma"
	"github.com/gnana997/codeconnect/pkg/indexer"
	"github.com/gnana997/codeconnect/pkg/mcplog"
)

// Config holds the optional collaborators of a Server.
type Config struct {
	// Figma validates documents against the REST API. nil disables
	// validate_document.
	Figma figma.Client
	// CallLog records every tool call. nil disables call logging.
	CallLog *mcplog.Logger
	Logger  *slog.Logger
}

// Server implements the MCP server for Code Connect, exposing the document
// index of one project.
type Server struct {
	mcpServer *server.MCPServer
	scanner   *indexer.WorkspaceScanner
	index     *indexer.DocumentIndex
	figma     figma.Client // may be nil without an access token
	callLog   *mcplog.Logger
	logger    *slog.Logger
}

// NewServer creates a new MCP server over the index fed by scanner.
func NewServer(scanner *indexer.WorkspaceScanner, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		scanner: scanner,
		index:   scanner.Index(),
		figma:   cfg.Figma,
		callLog: cfg.CallLog,
		logger:  logger,
	}

	opts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	}
	if s.callLog != nil {
		opts = append(opts, server.WithToolHandlerMiddleware(s.loggingMiddleware()))
	}
	s.mcpServer = server.NewMCPServer("codeconnect", connect.Version, opts...)

	s.mcpServer.AddTools(
		server.ServerTool{Tool: parseFileTool(), Handler: s.handleParseFile},
		server.ServerTool{Tool: listDocumentsTool(), Handler: s.handleListDocuments},
		server.ServerTool{Tool: getDocumentTool(), Handler: s.handleGetDocument},
		server.ServerTool{Tool: componentSignatureTool(), Handler: s.handleComponentSignature},
		server.ServerTool{Tool: validateDocumentTool(), Handler: s.handleValidateDocument},
		server.ServerTool{Tool: indexStatusTool(), Handler: s.handleIndexStatus},
	)

	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
