package mcpserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/codeforge/internal/prompts"
	"github.com/ariel-frischer/codeforge/internal/store"
	"github.com/ariel-frischer/codeforge/internal/workflow"
)

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

type fakeHistory struct {
	runs  []store.Run
	err   error
	limit int
}

func (f *fakeHistory) ListRuns(_ context.Context, limit int) ([]store.Run, error) {
	f.limit = limit
	return f.runs, f.err
}

func TestRunPipelineTool(t *testing.T) {
	var gotDir string
	tool := NewRunPipelineTool(func(_ context.Context, dir string) (*workflow.Summary, error) {
		gotDir = dir
		return &workflow.Summary{Success: true, WorkflowID: "20260101_000000_abcd1234"}, nil
	})

	assert.Equal(t, "run_pipeline", tool.Definition().Name)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"prompts_dir": "reqs"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "reqs", gotDir)
	assert.Contains(t, resultText(res), `"workflow_id": "20260101_000000_abcd1234"`)
	assert.Contains(t, resultText(res), `"success": true`)
}

func TestRunPipelineTool_error(t *testing.T) {
	tool := NewRunPipelineTool(func(context.Context, string) (*workflow.Summary, error) {
		return nil, errors.New("no prompt files found")
	})

	res, err := tool.Handle(context.Background(), makeReq(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "no prompt files found")
}

func TestDetectStackTool_text(t *testing.T) {
	tool := NewDetectStackTool(nil)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"text": "Use Java (17) with Spring Boot and Maven",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(res), `"language": "java"`)
	assert.Contains(t, resultText(res), `"framework": "spring-boot"`)
}

func TestDetectStackTool_promptsDir(t *testing.T) {
	tool := NewDetectStackTool(func(dir string) ([]prompts.Info, error) {
		assert.Equal(t, "docs", dir)
		return []prompts.Info{{Order: 1, Key: "P1", Type: prompts.TypeTechnicalGuidelines, Content: "Use Python with FastAPI"}}, nil
	})

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"prompts_dir": "docs"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), `"language": "python"`)
}

func TestDetectStackTool_noInput(t *testing.T) {
	res, err := NewDetectStackTool(nil).Handle(context.Background(), makeReq(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListRunsTool(t *testing.T) {
	h := &fakeHistory{runs: []store.Run{{
		WorkflowID:    "run-1",
		Success:       true,
		Language:      "golang",
		Framework:     "gin",
		FilesCount:    4,
		DurationMilli: int64(2 * time.Second / time.Millisecond),
	}}}
	tool := NewListRunsTool(h)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"limit": float64(3)}))
	require.NoError(t, err)
	assert.Equal(t, 3, h.limit)
	text := resultText(res)
	assert.Contains(t, text, "**run-1** success: golang/gin, 4 files, 0 errors, 2s")
}

func TestListRunsTool_emptyAndDefaults(t *testing.T) {
	h := &fakeHistory{}
	res, err := NewListRunsTool(h).Handle(context.Background(), makeReq(nil))
	require.NoError(t, err)
	assert.Equal(t, 10, h.limit)
	assert.Equal(t, "No runs recorded yet.", resultText(res))
}

func TestDefinitions(t *testing.T) {
	assert.Equal(t, "detect_stack", NewDetectStackTool(nil).Definition().Name)

	def := NewListRunsTool(&fakeHistory{}).Definition()
	assert.Equal(t, "list_runs", def.Name)
	_, ok := def.InputSchema.Properties["limit"]
	assert.True(t, ok)

	require.NotNil(t, New("test", Deps{History: &fakeHistory{}}))
}
