// Package mcp exposes the tool registry to external AI agents over the
// Model Context Protocol. The bridge is registry-driven: whatever tools
// are registered become MCP tools, schema and all.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/tempohq/tempo/internal/tools"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server backed by the tool registry.
type Server struct {
	registry *tools.Registry
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server exposing every tool in the
// registry. The registry's permission grant decides which calls are
// allowed to run; the rest come back as errors pointing the caller at
// the interactive chat surface.
func NewServer(registry *tools.Registry) *Server {
	s := &Server{registry: registry}

	s.mcp = server.NewMCPServer(
		"tempo",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools converts each registry definition into an MCP tool.
func (s *Server) registerTools() {
	for _, def := range s.registry.List() {
		s.mcp.AddTool(convertTool(def), s.handlerFor(def.Name))
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
