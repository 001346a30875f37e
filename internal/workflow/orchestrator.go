// codeforge - Requirements-to-project generation pipeline
// Author: Ariel Frischer
// Source: https://github.com/ariel-frischer/codeforge

// Package workflow runs the eight-stage generation pipeline over a single
// WorkflowState. Stages run strictly in order. Each sees a read-only View and
// returns a StageResult; the Orchestrator checks preconditions, merges
// outputs, records telemetry and decides after every stage whether to go on.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariel-frischer/codeforge/internal/completion"
	"github.com/ariel-frischer/codeforge/internal/observability"
	"github.com/ariel-frischer/codeforge/internal/prompts"
)

var timeNow = time.Now

// Context labels used in error and warning entries.
const (
	ContextStateValidation   = "state_validation"
	ContextPrevalidationGate = "prevalidation_gate"
	ContextCancelled         = "cancelled"
)

// Checkpointer persists a state snapshot after every stage.
type Checkpointer interface {
	Save(id string, v any) error
}

// Recorder stores the final summary of a run.
type Recorder interface {
	RecordSummary(ctx context.Context, s *Summary) error
}

// Orchestrator drives the stage sequence.
type Orchestrator struct {
	stages      []Stage
	logger      *zap.Logger
	metrics     *observability.Metrics
	tracer      trace.Tracer
	checkpoints Checkpointer
	recorder    Recorder
	progress    *ProgressController
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l *zap.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

func WithMetrics(m *observability.Metrics) Option { return func(o *Orchestrator) { o.metrics = m } }

func WithCheckpoints(c Checkpointer) Option { return func(o *Orchestrator) { o.checkpoints = c } }

func WithRecorder(r Recorder) Option { return func(o *Orchestrator) { o.recorder = r } }

func WithProgress(d ProgressDisplay) Option {
	return func(o *Orchestrator) { o.progress = NewProgressController(d) }
}

// NewOrchestrator creates an orchestrator over stages, which must follow
// AgentSequence order.
func NewOrchestrator(stages []Stage, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stages:   stages,
		logger:   zap.NewNop(),
		tracer:   observability.Tracer(),
		progress: NewProgressController(nil),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// Run builds a fresh state from docs and runs the pipeline. Every call starts
// a new workflow id; there is no resume.
func (o *Orchestrator) Run(ctx context.Context, docs []prompts.Info) (*WorkflowState, *Summary) {
	state := NewState(docs)
	return state, o.Execute(ctx, state)
}

// Execute runs the stages over an existing state until the sequence is
// exhausted or a stage halts it.
func (o *Orchestrator) Execute(ctx context.Context, state *WorkflowState) *Summary {
	logger := o.logger.With(zap.String("workflow_id", state.WorkflowID))
	stack := state.TechnologyStack

	ctx, span := o.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		observability.AttrWorkflowID.String(state.WorkflowID),
		observability.AttrLanguage.String(stack.Language),
		observability.AttrFramework.String(stack.Framework),
	))
	defer span.End()

	start := timeNow()
	state.ExecutionStartTime = &start
	state.Status = StatusInProgress
	logger.Info("workflow started",
		zap.String("language", stack.Language),
		zap.String("framework", stack.Framework),
		zap.Float64("confidence", stack.Confidence),
	)

	halted := -1
	for i, stage := range o.stages {
		if err := ctx.Err(); err != nil {
			state.CurrentAgent = stage.Name()
			state.CurrentAgentIndex = i
			state.addError(stage.Name(), ContextCancelled, fmt.Sprintf("workflow cancelled: %v", err))
			halted = i
			break
		}

		o.executeStage(ctx, logger, state, i, stage)

		if !o.shouldContinue(logger, state, stage.Name()) {
			halted = i + 1
			break
		}
	}

	if halted >= 0 {
		o.markSkipped(state, halted)
		state.Status = StatusFailed
	} else {
		state.CurrentAgent = ""
		state.CurrentAgentIndex = len(o.stages)
		state.Status = StatusCompleted
	}
	end := timeNow()
	state.ExecutionEndTime = &end
	o.checkpoint(logger, state)

	summary := BuildSummary(state)
	o.metrics.RecordWorkflowCompletion(string(state.Status))
	o.metrics.RecordGeneratedFiles(summary.Summary.TotalFilesGenerated)
	span.SetAttributes(observability.AttrStatus.String(string(state.Status)))
	if !summary.Success {
		observability.EndSpanWithError(span, errors.New(lastError(state)))
	}

	if o.recorder != nil {
		if err := o.recorder.RecordSummary(ctx, summary); err != nil {
			logger.Warn("failed to record run history", zap.Error(err))
		}
	}

	logger.Info("workflow finished",
		zap.String("status", string(state.Status)),
		zap.Int("successful_agents", summary.Summary.SuccessfulAgents),
		zap.Int("errors", len(state.Errors)),
		zap.Duration("duration", end.Sub(start)),
	)
	return summary
}

// executeStage runs one stage attempt and merges its result.
func (o *Orchestrator) executeStage(ctx context.Context, logger *zap.Logger, state *WorkflowState, index int, stage Stage) {
	name := stage.Name()
	total := len(o.stages)
	state.CurrentAgent = name
	state.CurrentAgentIndex = index
	stageLogger := logger.With(zap.String("stage", name))

	if missing := missingKeys(state, stage.Requires()); len(missing) > 0 {
		msg := "Missing required state keys: " + strings.Join(missing, ", ")
		state.addError(name, ContextStateValidation, msg)
		state.setAgentOutput(&AgentOutput{AgentName: name, Status: AgentFailed, ErrorMessage: msg})
		stageLogger.Error("stage precondition failed", zap.Strings("missing", missing))
		o.metrics.RecordStage(name, string(AgentFailed), 0)
		o.progress.FinishStage(index, total, name, AgentFailed, 0, errors.New(msg))
		o.checkpoint(logger, state)
		return
	}

	state.setAgentOutput(&AgentOutput{AgentName: name, Status: AgentRunning})
	o.progress.StartStage(index, total, name)
	stageLogger.Info("stage started")

	ctx, span := o.tracer.Start(ctx, "workflow.stage."+name, trace.WithAttributes(
		observability.AttrWorkflowID.String(state.WorkflowID),
		observability.AttrStage.String(name),
	))
	start := timeNow()
	result := runSafely(ctx, stage, NewView(state))
	elapsed := timeNow().Sub(start)

	out := &AgentOutput{
		AgentName:     name,
		Output:        result.Raw,
		ExecutionTime: elapsed.Seconds(),
		TokenUsage:    result.Usage,
	}
	for _, w := range result.Warnings {
		state.addWarning(name, processContext(name), w)
	}

	var stageErr error
	if result.Failure != nil || result.Output == nil {
		failure := result.Failure
		if failure == nil {
			failure = &StageFailure{Context: processContext(name), Err: errors.New("stage returned no output")}
		}
		stageErr = failure.Err
		out.Status = AgentFailed
		out.ErrorMessage = failure.Err.Error()
		state.addError(name, failure.Context, failure.Err.Error())
		stageLogger.Error("stage failed", zap.String("context", failure.Context), zap.Error(failure.Err), zap.Duration("elapsed", elapsed))
	} else {
		result.Output.apply(state)
		out.Status = AgentCompleted
		stageLogger.Info("stage completed",
			zap.Duration("elapsed", elapsed),
			zap.Int("input_tokens", result.Usage.InputTokens),
			zap.Int("output_tokens", result.Usage.OutputTokens),
		)
	}
	state.setAgentOutput(out)

	span.SetAttributes(observability.AttrStatus.String(string(out.Status)))
	observability.EndSpanWithError(span, stageErr)
	span.End()

	o.metrics.RecordStage(name, string(out.Status), elapsed)
	o.progress.FinishStage(index, total, name, out.Status, elapsed, stageErr)
	o.checkpoint(logger, state)
}

// runSafely converts a panic inside a stage into a failure.
func runSafely(ctx context.Context, stage Stage, view View) (result StageResult) {
	defer func() {
		if r := recover(); r != nil {
			result = Failed(processContext(stage.Name()), fmt.Errorf("panic: %v", r))
		}
	}()
	return stage.Run(ctx, view)
}

// shouldContinue is the gate evaluated after every stage: the stage's flag
// is set and no error was recorded. Prevalidation must also allow
// proceeding.
func (o *Orchestrator) shouldContinue(logger *zap.Logger, state *WorkflowState, stage string) bool {
	if !state.Complete(stage) || len(state.Errors) > 0 {
		return false
	}
	if stage == StagePrevalidation && state.ValidationResult != nil && !state.ValidationResult.CanProceed {
		msg := fmt.Sprintf("prevalidation status %s does not allow proceeding", state.ValidationResult.Status)
		state.addWarning(stage, ContextPrevalidationGate, msg)
		logger.Warn("workflow halted by prevalidation", zap.String("status", state.ValidationResult.Status))
		return false
	}
	return true
}

// markSkipped records every stage from index on as SKIPPED.
func (o *Orchestrator) markSkipped(state *WorkflowState, from int) {
	for i := from; i < len(o.stages); i++ {
		name := o.stages[i].Name()
		if _, ok := state.AgentOutputs[name]; ok {
			continue
		}
		state.setAgentOutput(&AgentOutput{AgentName: name, Status: AgentSkipped})
		o.metrics.RecordStage(name, string(AgentSkipped), 0)
		o.progress.FinishStage(i, len(o.stages), name, AgentSkipped, 0, nil)
	}
}

func (o *Orchestrator) checkpoint(logger *zap.Logger, state *WorkflowState) {
	if o.checkpoints == nil {
		return
	}
	if err := o.checkpoints.Save(state.WorkflowID, state); err != nil {
		logger.Warn("failed to save checkpoint", zap.Error(err))
	}
}

func missingKeys(state *WorkflowState, keys []string) []string {
	var missing []string
	for _, k := range keys {
		if !state.Has(k) {
			missing = append(missing, k)
		}
	}
	return missing
}

func lastError(state *WorkflowState) string {
	if n := len(state.Errors); n > 0 {
		e := state.Errors[n-1]
		return fmt.Sprintf("%s: %s", e.Agent, e.ErrorMessage)
	}
	if n := len(state.Warnings); n > 0 {
		w := state.Warnings[n-1]
		return fmt.Sprintf("%s: %s", w.Agent, w.ErrorMessage)
	}
	return "workflow failed"
}

// TotalUsage sums token usage over all stage attempts.
func TotalUsage(state *WorkflowState) completion.Usage {
	var total completion.Usage
	for _, out := range state.AgentOutputs {
		total = total.Add(out.TokenUsage)
	}
	return total
}
