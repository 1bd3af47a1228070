package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/retrieval"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/snippets"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/toc"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Deps are the services exposed as tools. Tools whose service is nil are
// not registered.
type Deps struct {
	TOC          toc.Store
	Snippets     *snippets.Service
	Orchestrator *retrieval.Orchestrator
}

// Server wraps an MCP server that exposes the table of contents, snippet
// retrieval and the answer pipeline as tools.
type Server struct {
	deps Deps
	mcp  *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(deps Deps) *Server {
	s := &Server{deps: deps}

	s.mcp = server.NewMCPServer(
		"sherpa",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	if s.deps.TOC != nil {
		s.mcp.AddTool(searchTOCTool, s.handleSearchTOC)
	}
	if s.deps.Snippets != nil {
		s.mcp.AddTool(retrieveSnippetsTool, s.handleRetrieveSnippets)
		s.mcp.AddTool(searchSnippetsTool, s.handleSearchSnippets)
	}
	if s.deps.Orchestrator != nil {
		s.mcp.AddTool(askCodebaseTool, s.handleAskCodebase)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
