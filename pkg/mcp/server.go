// Package mcp exposes suite validation, grading and source analysis as MCP
// tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates an MCP server with the grader tools registered.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"grader",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("grader/validate",
			mcp.WithDescription("Validate a grader suite YAML file"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the suite YAML file")),
		),
		HandleValidate,
	)

	s.AddTool(
		mcp.NewTool("grader/run",
			mcp.WithDescription("Grade a candidate program with a suite and return every test record"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the suite YAML file")),
			mcp.WithString("candidate", mcp.Description("Candidate program, overriding the suite's (optional)")),
		),
		HandleRun,
	)

	s.AddTool(
		mcp.NewTool("grader/kinds",
			mcp.WithDescription("List the check kinds a suite may use, with their parameters"),
		),
		HandleKinds,
	)

	s.AddTool(
		mcp.NewTool("grader/analyze",
			mcp.WithDescription("Report static facts about a program: calls, loops, operators, functions"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the program source")),
		),
		HandleAnalyze,
	)

	return s
}
