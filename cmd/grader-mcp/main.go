// Package main provides the grader-mcp binary, an MCP server exposing
// suite validation and grading to agents.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	gmcp "github.com/ormasoftchile/grader/pkg/mcp"
)

var version = "dev"

func main() {
	s := gmcp.NewServer(version)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
