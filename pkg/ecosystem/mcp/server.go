// Package mcp exposes starter over the Model Context Protocol so agents
// can validate, plan and dry-run Starterfiles.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server with starter tools registered.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"starter",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("starter/validate",
			mcp.WithDescription("Validate a Starterfile YAML document"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the Starterfile")),
		),
		HandleValidate,
	)

	s.AddTool(
		mcp.NewTool("starter/plan",
			mcp.WithDescription("Resolve a Starterfile and show the execution order, waves and alt groups"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the Starterfile")),
		),
		HandlePlan,
	)

	s.AddTool(
		mcp.NewTool("starter/up",
			mcp.WithDescription("Run a Starterfile (defaults to dry-run mode for safety)"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the Starterfile")),
			mcp.WithString("mode", mcp.Description("Execution mode: real or dry-run")),
		),
		HandleUp,
	)

	s.AddTool(
		mcp.NewTool("starter/schema",
			mcp.WithDescription("Export the Starterfile JSON Schema"),
		),
		HandleSchema,
	)

	return s
}
