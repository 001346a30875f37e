package workflow

import (
	"context"
	"time"

	"github.com/ariel-frischer/codeforge/internal/publish"
	"github.com/ariel-frischer/codeforge/internal/store"
	"github.com/ariel-frischer/codeforge/internal/techstack"
)

// Summary is the final record of a run.
type Summary struct {
	Success         bool                    `json:"success" yaml:"success"`
	WorkflowID      string                  `json:"workflow_id" yaml:"workflow_id"`
	Status          Status                  `json:"status" yaml:"status"`
	TechnologyStack techstack.Stack         `json:"technology_stack" yaml:"technology_stack"`
	GeneratedFiles  []GeneratedFile         `json:"generated_files" yaml:"generated_files"`
	RepositoryInfo  *publish.RepositoryInfo `json:"repository_info" yaml:"repository_info"`
	// ExecutionTime is the wall time of the run in seconds.
	ExecutionTime float64                 `json:"execution_time" yaml:"execution_time"`
	AgentOutputs  map[string]*AgentOutput `json:"agent_outputs" yaml:"agent_outputs"`
	Errors        []LogEntry              `json:"errors" yaml:"errors"`
	Warnings      []LogEntry              `json:"warnings" yaml:"warnings"`
	Summary       Totals                  `json:"summary" yaml:"summary"`

	startedAt  time.Time
	finishedAt time.Time
}

// Totals are the headline counters of a run.
type Totals struct {
	TotalAgents         int     `json:"total_agents" yaml:"total_agents"`
	SuccessfulAgents    int     `json:"successful_agents" yaml:"successful_agents"`
	TotalFilesGenerated int     `json:"total_files_generated" yaml:"total_files_generated"`
	TotalErrors         int     `json:"total_errors" yaml:"total_errors"`
	WorkflowDuration    float64 `json:"workflow_duration" yaml:"workflow_duration"`
}

// BuildSummary derives the summary of a finished state. A run succeeds only
// when it completed with no recorded errors.
func BuildSummary(state *WorkflowState) *Summary {
	var started, finished time.Time
	if state.ExecutionStartTime != nil {
		started = *state.ExecutionStartTime
	}
	if state.ExecutionEndTime != nil {
		finished = *state.ExecutionEndTime
	}
	var elapsed float64
	if !started.IsZero() && !finished.IsZero() {
		elapsed = finished.Sub(started).Seconds()
	}

	successful := 0
	for _, out := range state.AgentOutputs {
		if out.Status == AgentCompleted {
			successful++
		}
	}

	return &Summary{
		Success:         state.Status == StatusCompleted && len(state.Errors) == 0,
		WorkflowID:      state.WorkflowID,
		Status:          state.Status,
		TechnologyStack: state.TechnologyStack,
		GeneratedFiles:  state.GeneratedFiles,
		RepositoryInfo:  state.RepositoryInfo,
		ExecutionTime:   elapsed,
		AgentOutputs:    state.AgentOutputs,
		Errors:          state.Errors,
		Warnings:        state.Warnings,
		Summary: Totals{
			TotalAgents:         len(state.AgentSequence),
			SuccessfulAgents:    successful,
			TotalFilesGenerated: len(state.GeneratedFiles),
			TotalErrors:         len(state.Errors),
			WorkflowDuration:    elapsed,
		},
		startedAt:  started,
		finishedAt: finished,
	}
}

// HistoryStore is the part of *store.Store a HistoryRecorder writes to.
type HistoryStore interface {
	RecordRun(ctx context.Context, run store.Run, outputs []store.AgentOutput) error
}

// HistoryRecorder saves summaries as run history rows.
type HistoryRecorder struct {
	Store HistoryStore
}

// RecordSummary implements Recorder.
func (r HistoryRecorder) RecordSummary(ctx context.Context, s *Summary) error {
	run, outputs := s.HistoryRecord()
	return r.Store.RecordRun(ctx, run, outputs)
}

// HistoryRecord converts the summary into history rows, with stage rows in
// pipeline order.
func (s *Summary) HistoryRecord() (store.Run, []store.AgentOutput) {
	run := store.Run{
		WorkflowID:    s.WorkflowID,
		Status:        string(s.Status),
		Success:       s.Success,
		Language:      s.TechnologyStack.Language,
		Framework:     s.TechnologyStack.Framework,
		Database:      s.TechnologyStack.Database,
		BuildTool:     s.TechnologyStack.BuildTool,
		FilesCount:    len(s.GeneratedFiles),
		ErrorsCount:   len(s.Errors),
		StartedAt:     s.startedAt,
		FinishedAt:    s.finishedAt,
		DurationMilli: int64(s.ExecutionTime * 1000),
	}
	if s.RepositoryInfo != nil {
		run.RepoStatus = s.RepositoryInfo.Status
		run.LocalPath = s.RepositoryInfo.LocalPath
	}

	outputs := make([]store.AgentOutput, 0, len(s.AgentOutputs))
	for i, name := range AgentSequence {
		out, ok := s.AgentOutputs[name]
		if !ok {
			continue
		}
		outputs = append(outputs, store.AgentOutput{
			Sequence:      i + 1,
			AgentName:     name,
			Status:        string(out.Status),
			ErrorMessage:  out.ErrorMessage,
			DurationMilli: int64(out.ExecutionTime * 1000),
			InputTokens:   out.TokenUsage.InputTokens,
			OutputTokens:  out.TokenUsage.OutputTokens,
		})
	}
	return run, outputs
}
