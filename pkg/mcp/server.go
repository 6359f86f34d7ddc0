// Package mcp exposes the benchmark over the Model Context Protocol so
// agent hosts can list scenarios, run them, and fetch schemas.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/camarero-ai/dinerbench/pkg/config"
)

// NewServer creates an MCP server with dinerbench tools registered.
func NewServer(version string, cfg *config.Config) *server.MCPServer {
	s := server.NewMCPServer(
		"dinerbench",
		version,
		server.WithToolCapabilities(true),
	)

	h := &handlers{cfg: cfg}

	s.AddTool(
		mcp.NewTool("dinerbench/scenarios",
			mcp.WithDescription("List available test scenarios, optionally filtered"),
			mcp.WithString("category", mcp.Description("Only scenarios in this category")),
			mcp.WithString("tag", mcp.Description("Only scenarios carrying this tag")),
		),
		h.HandleScenarios,
	)

	s.AddTool(
		mcp.NewTool("dinerbench/validate",
			mcp.WithDescription("Validate a scenario JSON file"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the scenario JSON file")),
		),
		h.HandleValidate,
	)

	s.AddTool(
		mcp.NewTool("dinerbench/run",
			mcp.WithDescription("Run one scenario against a recorded replay transcript"),
			mcp.WithString("scenario", mcp.Required(), mcp.Description("Scenario name or path")),
			mcp.WithString("replay", mcp.Description("Path to the replay transcript (defaults to the configured replay dir)")),
		),
		h.HandleRun,
	)

	s.AddTool(
		mcp.NewTool("dinerbench/suite",
			mcp.WithDescription("Run the full scenario suite against a recorded replay transcript and report compliance"),
			mcp.WithString("replay", mcp.Description("Path to the replay transcript (defaults to the configured replay dir)")),
			mcp.WithString("category", mcp.Description("Only scenarios in this category")),
		),
		h.HandleSuite,
	)

	s.AddTool(
		mcp.NewTool("dinerbench/schema",
			mcp.WithDescription("Export dinerbench JSON Schema (scenario or result)"),
			mcp.WithString("type", mcp.Required(), mcp.Description("Schema type: 'scenario' or 'result'")),
		),
		h.HandleSchema,
	)

	return s
}
