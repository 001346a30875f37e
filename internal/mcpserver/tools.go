package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ariel-frischer/codeforge/internal/techstack"
)

// RunPipelineTool handles the run_pipeline tool.
type RunPipelineTool struct {
	run RunFunc
}

func NewRunPipelineTool(run RunFunc) *RunPipelineTool {
	return &RunPipelineTool{run: run}
}

func (t *RunPipelineTool) Definition() mcp.Tool {
	return mcp.NewTool("run_pipeline",
		mcp.WithDescription("Run the full generation pipeline over a prompts directory and return the run summary as JSON."),
		mcp.WithString("prompts_dir",
			mcp.Description("Directory holding the requirement files (default: configured prompts_dir)"),
		),
	)
}

func (t *RunPipelineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.run == nil {
		return mcp.NewToolResultError("pipeline is not configured"), nil
	}
	summary, err := t.run(ctx, req.GetString("prompts_dir", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("pipeline failed to start: %v", err)), nil
	}
	return jsonResult(summary)
}

// DetectStackTool handles the detect_stack tool.
type DetectStackTool struct {
	load LoadFunc
}

func NewDetectStackTool(load LoadFunc) *DetectStackTool {
	return &DetectStackTool{load: load}
}

func (t *DetectStackTool) Definition() mcp.Tool {
	return mcp.NewTool("detect_stack",
		mcp.WithDescription("Detect the technology stack from inline requirement text or from a prompts directory."),
		mcp.WithString("text",
			mcp.Description("Requirement text to analyze. Takes precedence over prompts_dir."),
		),
		mcp.WithString("prompts_dir",
			mcp.Description("Directory holding the requirement files"),
		),
	)
}

func (t *DetectStackTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if text := strings.TrimSpace(req.GetString("text", "")); text != "" {
		return jsonResult(techstack.DetectText(text))
	}
	if t.load == nil {
		return mcp.NewToolResultError("either 'text' or a configured prompts directory is required"), nil
	}
	docs, err := t.load(req.GetString("prompts_dir", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read prompts: %v", err)), nil
	}
	return jsonResult(techstack.Detect(docs))
}

// ListRunsTool handles the list_runs tool.
type ListRunsTool struct {
	history RunLister
}

func NewListRunsTool(history RunLister) *ListRunsTool {
	return &ListRunsTool{history: history}
}

func (t *ListRunsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_runs",
		mcp.WithDescription("List recent pipeline runs with status, stack and duration."),
		mcp.WithNumber("limit",
			mcp.Description("Max runs (default: 10)"),
		),
	)
}

func (t *ListRunsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", 10)
	runs, err := t.history.ListRuns(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list runs: %v", err)), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("No runs recorded yet."), nil
	}

	var sb strings.Builder
	sb.WriteString("## Recent Runs\n\n")
	for _, r := range runs {
		outcome := "failed"
		if r.Success {
			outcome = "success"
		}
		fmt.Fprintf(&sb, "- **%s** %s: %s/%s, %d files, %d errors, %s\n",
			r.WorkflowID, outcome, r.Language, r.Framework, r.FilesCount, r.ErrorsCount, r.Duration())
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// intArg reads a numeric argument. JSON numbers arrive as float64.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok || v <= 0 {
		return defaultVal
	}
	return int(v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
