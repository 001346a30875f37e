package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	older := Run{WorkflowID: "20250101_120000_aaaaaaaa", Status: "failed", Language: "java", StartedAt: base, FinishedAt: base.Add(time.Second), DurationMilli: 1000, ErrorsCount: 1}
	newer := Run{WorkflowID: "20250101_130000_bbbbbbbb", Status: "completed", Success: true, Language: "golang", Framework: "gin",
		FilesCount: 4, RepoStatus: "committed_locally", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + 2*time.Second), DurationMilli: 2000}

	require.NoError(t, s.RecordRun(ctx, older, nil))
	require.NoError(t, s.RecordRun(ctx, newer, []AgentOutput{
		{Sequence: 1, AgentName: "prevalidation", Status: "COMPLETED", DurationMilli: 10, InputTokens: 100, OutputTokens: 20},
		{Sequence: 2, AgentName: "business_context", Status: "COMPLETED"},
	}))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.WorkflowID, runs[0].WorkflowID)
	assert.True(t, runs[0].Success)
	assert.Equal(t, "gin", runs[0].Framework)
	assert.Equal(t, 2*time.Second, runs[0].Duration())
	assert.True(t, newer.StartedAt.Equal(runs[0].StartedAt))
	assert.False(t, runs[1].Success)

	outputs, err := s.AgentOutputs(ctx, newer.WorkflowID)
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	assert.Equal(t, "prevalidation", outputs[0].AgentName)
	assert.Equal(t, 100, outputs[0].InputTokens)

	limited, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecordRunReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	run := Run{WorkflowID: "20250101_120000_cccccccc", Status: "in_progress", StartedAt: time.Now()}

	require.NoError(t, s.RecordRun(ctx, run, []AgentOutput{{Sequence: 1, AgentName: "prevalidation", Status: "RUNNING"}}))
	run.Status = "completed"
	require.NoError(t, s.RecordRun(ctx, run, []AgentOutput{{Sequence: 1, AgentName: "prevalidation", Status: "COMPLETED"}}))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0].Status)

	outputs, err := s.AgentOutputs(ctx, run.WorkflowID)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, "COMPLETED", outputs[0].Status)
}

func TestEmptyStore(t *testing.T) {
	runs, err := openTestStore(t).ListRuns(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
