package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/grader/pkg/analyzer"
	"github.com/ormasoftchile/grader/pkg/grader"
	"github.com/ormasoftchile/grader/pkg/program"
	"github.com/ormasoftchile/grader/pkg/report"
	"github.com/ormasoftchile/grader/pkg/suite"
	"github.com/ormasoftchile/grader/pkg/trace"
)

// HandleValidate implements the grader/validate MCP tool.
func HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	s, errs := suite.ValidateFile(path)
	if len(suite.Errors(errs)) > 0 {
		return errorResult(formatErrors(errs)), nil
	}
	msg := fmt.Sprintf("✓ %s is valid (%d tests)", suiteName(s, path), len(s.Tests))
	if len(errs) > 0 {
		msg += "\n" + formatErrors(errs)
	}
	return textResult(msg), nil
}

// HandleRun implements the grader/run MCP tool.
func HandleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}
	candidate, _ := args["candidate"].(string)

	s, errs := suite.ValidateFile(path)
	if len(suite.Errors(errs)) > 0 {
		return errorResult(formatErrors(errs)), nil
	}
	runID := trace.NewRunID()
	e, err := grader.New(s.EngineOptions(candidate)...)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	sum, err := suite.Run(ctx, e, s)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	name := candidate
	if p := e.Program(); p != nil {
		name = p.Identity()
	}
	var out strings.Builder
	if err := report.WriteJSON(&out, report.Meta{Suite: suiteName(s, path), Candidate: name, RunID: runID}, sum); err != nil {
		return errorResult(err.Error()), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(out.String())},
		IsError: sum.Failed > 0,
	}, nil
}

// HandleKinds implements the grader/kinds MCP tool.
func HandleKinds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(grader.Kinds(), "", "  ")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

// HandleAnalyze implements the grader/analyze MCP tool.
func HandleAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}
	p, err := program.Load(path)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	data, err := json.MarshalIndent(analyzer.New(ctx, p).Facts(), "", "  ")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

func suiteName(s *suite.Suite, path string) string {
	if s != nil && s.Name != "" {
		return s.Name
	}
	return path
}

func formatErrors(errs []*suite.ValidationError) string {
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
