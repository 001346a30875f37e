// Package mcpserver exposes the pipeline as MCP tools over stdio.
//
// Each tool is a struct with its collaborators injected via constructor,
// a Definition() returning the mcp.Tool schema and a Handle() method.
package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ariel-frischer/codeforge/internal/prompts"
	"github.com/ariel-frischer/codeforge/internal/store"
	"github.com/ariel-frischer/codeforge/internal/workflow"
)

// RunFunc runs the pipeline over the requirement documents in promptsDir.
// An empty promptsDir means the configured default.
type RunFunc func(ctx context.Context, promptsDir string) (*workflow.Summary, error)

// LoadFunc reads the requirement documents in promptsDir.
type LoadFunc func(promptsDir string) ([]prompts.Info, error)

// RunLister lists recorded runs, newest first.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
}

// Deps are the collaborators the tools call. History may be nil, in which
// case list_runs is not registered.
type Deps struct {
	Run     RunFunc
	Load    LoadFunc
	History RunLister
}

// New creates the MCP server with every tool registered.
func New(version string, d Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"codeforge",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	runTool := NewRunPipelineTool(d.Run)
	s.AddTool(runTool.Definition(), runTool.Handle)

	detectTool := NewDetectStackTool(d.Load)
	s.AddTool(detectTool.Definition(), detectTool.Handle)

	if d.History != nil {
		runsTool := NewListRunsTool(d.History)
		s.AddTool(runsTool.Definition(), runsTool.Handle)
	}
	return s
}

// Serve blocks serving s on stdin/stdout.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `codeforge turns requirement documents into a generated project.
Use detect_stack to preview the technology stack, run_pipeline to generate
and commit a project, and list_runs to inspect earlier runs.`
