package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/codeforge/internal/completion"
	"github.com/ariel-frischer/codeforge/internal/observability"
	"github.com/ariel-frischer/codeforge/internal/parser"
	"github.com/ariel-frischer/codeforge/internal/prompts"
	"github.com/ariel-frischer/codeforge/internal/publish"
)

func javaDocs() []prompts.Info {
	return []prompts.Info{
		{Order: 1, Key: "P1", Type: prompts.TypeTechnicalGuidelines, Content: "Use Java (17) with Spring Boot and Maven, PostgreSQL database"},
		{Order: 2, Key: "P2", Type: prompts.TypeBusinessRequirements, Content: "An online shop where customers place orders."},
	}
}

func pythonDocs() []prompts.Info {
	return []prompts.Info{
		{Order: 1, Key: "P1", Type: prompts.TypeTechnicalGuidelines, Content: "Use Python with FastAPI and PostgreSQL"},
		{Order: 2, Key: "P2", Type: prompts.TypeBusinessRequirements, Content: "An online shop where customers place orders."},
	}
}

type fixture struct {
	llm         *MockCompletion
	publisher   *MockPublisher
	checkpoints *MockCheckpoints
	recorder    *MockRecorder
}

func newFixture() *fixture {
	return &fixture{
		llm:         NewMockCompletion(),
		publisher:   NewMockPublisher(),
		checkpoints: &MockCheckpoints{},
		recorder:    &MockRecorder{},
	}
}

func (f *fixture) orchestrator(opts ...Option) *Orchestrator {
	stages := DefaultStages(Deps{Completion: f.llm, Publisher: f.publisher})
	opts = append([]Option{WithCheckpoints(f.checkpoints), WithRecorder(f.recorder)}, opts...)
	return NewOrchestrator(stages, opts...)
}

func TestRun_happyPath(t *testing.T) {
	f := newFixture()
	state, summary := f.orchestrator().Run(context.Background(), javaDocs())

	require.True(t, summary.Success, "errors: %v", state.Errors)
	assert.Equal(t, StatusCompleted, state.Status)
	assert.Empty(t, state.Errors)
	assert.Equal(t, "", state.CurrentAgent)
	assert.Equal(t, len(AgentSequence), state.CurrentAgentIndex)
	require.NotNil(t, state.ExecutionStartTime)
	require.NotNil(t, state.ExecutionEndTime)

	for _, name := range AgentSequence {
		assert.True(t, state.Complete(name), name)
		require.Contains(t, state.AgentOutputs, name)
		assert.Equal(t, AgentCompleted, state.AgentOutputs[name].Status, name)
	}

	// Spring layouts are fully templated and capped at max_items.
	assert.Len(t, state.GeneratedFiles, DefaultMaxItems)
	assert.Zero(t, f.llm.CallsFor(StageCodeGeneration))
	assert.Equal(t, "src/main/java/com/retail/Application.java", state.GeneratedFiles[0].Path)
	assert.Equal(t, "pom.xml", state.GeneratedFiles[1].Path)

	require.Len(t, f.publisher.Calls, 1)
	req := f.publisher.Calls[0]
	assert.Equal(t, "pom.xml", req.Manifest.Path)
	assert.Contains(t, req.Manifest.Content, "generated pom")
	assert.Len(t, req.Files, DefaultMaxItems)
	assert.Contains(t, req.Readme, state.WorkflowID)
	assert.Contains(t, req.CommitMessage, "java spring-boot")

	require.NotNil(t, state.RepositoryInfo)
	assert.Equal(t, publish.StatusCommittedLocally, state.RepositoryInfo.Status)

	assert.Equal(t, 8, summary.Summary.TotalAgents)
	assert.Equal(t, 8, summary.Summary.SuccessfulAgents)
	assert.Equal(t, DefaultMaxItems, summary.Summary.TotalFilesGenerated)
	assert.Zero(t, summary.Summary.TotalErrors)

	assert.Len(t, f.checkpoints.Saves, len(AgentSequence)+1)
	require.Len(t, f.recorder.Summaries, 1)
	assert.Equal(t, state.WorkflowID, f.recorder.Summaries[0].WorkflowID)
}

func TestRun_tokenUsageRecorded(t *testing.T) {
	f := newFixture()
	state, _ := f.orchestrator().Run(context.Background(), javaDocs())

	assert.Equal(t, 10, state.AgentOutputs[StagePrevalidation].TokenUsage.InputTokens)
	assert.Zero(t, state.AgentOutputs[StageCodeStructure].TokenUsage.Total())
	// prevalidation, business context, evaluation, dependencies, guardrails
	assert.Equal(t, 5*30, TotalUsage(state).Total())
}

func TestRun_generationUsesCompletionWithoutTemplates(t *testing.T) {
	f := newFixture()
	state, summary := f.orchestrator().Run(context.Background(), pythonDocs())

	require.True(t, summary.Success, "errors: %v", state.Errors)
	// app/main.py plus model and router per entity.
	assert.Equal(t, 5, f.llm.CallsFor(StageCodeGeneration))
	require.Len(t, state.GeneratedFiles, 5)
	assert.Equal(t, "app/main.py", state.GeneratedFiles[0].Path)
	assert.Equal(t, "generated source", state.GeneratedFiles[0].Content)
	assert.Equal(t, len("generated source"), state.GeneratedFiles[0].Size)
	assert.Equal(t, "requirements.txt", f.publisher.Calls[0].Manifest.Path)
}

func TestRun_generationFailureHalts(t *testing.T) {
	f := newFixture()
	f.llm.WithError(StageCodeGeneration, errors.New("backend down"))
	state, summary := f.orchestrator().Run(context.Background(), pythonDocs())

	assert.False(t, summary.Success)
	assert.Equal(t, StatusFailed, state.Status)
	require.Len(t, state.Errors, 1)
	assert.Equal(t, StageCodeGeneration, state.Errors[0].Agent)
	assert.Equal(t, "code_generation_process", state.Errors[0].Context)
	assert.Contains(t, state.Errors[0].ErrorMessage, "generating app/main.py")
	assert.False(t, state.CodeGenerationComplete)
	assert.Nil(t, state.GeneratedFiles)

	// Earlier outputs stay for inspection.
	assert.NotNil(t, state.ProjectStructure)
	assert.Equal(t, AgentFailed, state.AgentOutputs[StageCodeGeneration].Status)
	for _, name := range AgentSequence[4:] {
		assert.Equal(t, AgentSkipped, state.AgentOutputs[name].Status, name)
	}
	assert.Empty(t, f.publisher.Calls)
}

func TestRun_prevalidationGate(t *testing.T) {
	f := newFixture()
	f.llm.WithResponse(StagePrevalidation, "VALIDATION_STATUS: FAIL\nCONFIDENCE_SCORE: 0.2\n")
	state, summary := f.orchestrator().Run(context.Background(), javaDocs())

	assert.False(t, summary.Success)
	assert.Equal(t, StatusFailed, state.Status)
	assert.True(t, state.PrevalidationComplete)
	assert.Empty(t, state.Errors)
	require.Len(t, state.Warnings, 1)
	assert.Equal(t, ContextPrevalidationGate, state.Warnings[0].Context)
	assert.Equal(t, AgentCompleted, state.AgentOutputs[StagePrevalidation].Status)
	assert.Equal(t, AgentSkipped, state.AgentOutputs[StageBusinessContext].Status)
	assert.Zero(t, f.llm.CallsFor(StageBusinessContext))
}

func TestRun_prevalidationWarningProceeds(t *testing.T) {
	f := newFixture()
	f.llm.WithResponse(StagePrevalidation, "VALIDATION_STATUS: WARNING\n")
	state, summary := f.orchestrator().Run(context.Background(), javaDocs())

	assert.True(t, summary.Success, "errors: %v", state.Errors)
	assert.True(t, state.ValidationResult.RequiresAttention)
}

func TestRun_guardrailsRejected(t *testing.T) {
	f := newFixture()
	f.llm.WithResponse(StageGuardrails, rejectedGuardrails)
	state, summary := f.orchestrator().Run(context.Background(), javaDocs())

	assert.False(t, summary.Success)
	assert.True(t, state.GuardrailsComplete)
	assert.Equal(t, parser.ApprovalRejected, state.GuardrailsResults.ApprovalStatus)
	assert.False(t, state.CodePushComplete)
	assert.Nil(t, state.RepositoryInfo)
	require.Len(t, state.Errors, 1)
	assert.Equal(t, ContextGuardrailsFailed, state.Errors[0].Context)
	assert.Equal(t, StageCodePush, state.Errors[0].Agent)
	assert.Empty(t, f.publisher.Calls)
}

func TestRun_guardrailsConditionalPublishes(t *testing.T) {
	f := newFixture()
	f.llm.WithResponse(StageGuardrails, "GUARDRAILS_STATUS: WARNING\nAPPROVAL_STATUS: CONDITIONAL\n")
	state, summary := f.orchestrator().Run(context.Background(), javaDocs())

	assert.True(t, summary.Success, "errors: %v", state.Errors)
	assert.Len(t, f.publisher.Calls, 1)
}

func TestRun_malformedEvaluationStillCompletes(t *testing.T) {
	f := newFixture()
	f.llm.WithResponse(StageCodeEvaluation, "I could not review this code, sorry.")
	state, summary := f.orchestrator().Run(context.Background(), javaDocs())

	assert.True(t, summary.Success, "errors: %v", state.Errors)
	assert.Equal(t, AgentCompleted, state.AgentOutputs[StageCodeEvaluation].Status)
	require.NotNil(t, state.EvaluationResults)
	assert.Zero(t, state.EvaluationResults.OverallScore)
	assert.Empty(t, state.EvaluationResults.Scores)
}

func TestRun_publishFailure(t *testing.T) {
	f := newFixture()
	f.publisher.Err = errors.New("disk full")
	state, summary := f.orchestrator().Run(context.Background(), javaDocs())

	assert.False(t, summary.Success)
	require.Len(t, state.Errors, 1)
	assert.Equal(t, "code_push_process", state.Errors[0].Context)
	assert.Equal(t, "disk full", state.Errors[0].ErrorMessage)
}

func TestExecute_preconditionHalt(t *testing.T) {
	f := newFixture()
	stages := DefaultStages(Deps{Completion: f.llm})
	o := NewOrchestrator([]Stage{stages[2], stages[3]})

	state := NewState(javaDocs())
	summary := o.Execute(context.Background(), state)

	assert.False(t, summary.Success)
	require.Len(t, state.Errors, 1)
	assert.Equal(t, ContextStateValidation, state.Errors[0].Context)
	assert.Equal(t, "Missing required state keys: business_context", state.Errors[0].ErrorMessage)
	assert.False(t, state.CodeStructureComplete)
	assert.Nil(t, state.ProjectStructure)
	assert.Equal(t, AgentFailed, state.AgentOutputs[StageCodeStructure].Status)
	assert.Equal(t, AgentSkipped, state.AgentOutputs[StageCodeGeneration].Status)
	assert.Empty(t, f.llm.Calls)
}

func TestExecute_stageNeverRunsAfterFailure(t *testing.T) {
	ran := false
	stages := []Stage{
		funcStage{name: StagePrevalidation, run: func(context.Context, View) StageResult {
			return Failed("prevalidation_process", errors.New("nope"))
		}},
		funcStage{name: StageBusinessContext, run: func(context.Context, View) StageResult {
			ran = true
			return Succeeded(BusinessContextOutput{}, "", completion.Usage{})
		}},
	}
	state := NewState(javaDocs())
	NewOrchestrator(stages).Execute(context.Background(), state)

	assert.False(t, ran)
	assert.False(t, state.BusinessContextComplete)
	assert.Equal(t, "nope", state.AgentOutputs[StagePrevalidation].ErrorMessage)
}

func TestExecute_panicRecovered(t *testing.T) {
	stages := []Stage{
		funcStage{name: StagePrevalidation, run: func(context.Context, View) StageResult {
			panic("kaboom")
		}},
	}
	state := NewState(javaDocs())
	summary := NewOrchestrator(stages).Execute(context.Background(), state)

	assert.False(t, summary.Success)
	require.Len(t, state.Errors, 1)
	assert.Equal(t, "prevalidation_process", state.Errors[0].Context)
	assert.Contains(t, state.Errors[0].ErrorMessage, "kaboom")
}

func TestExecute_nilOutputIsFailure(t *testing.T) {
	stages := []Stage{
		funcStage{name: StagePrevalidation, run: func(context.Context, View) StageResult {
			return StageResult{}
		}},
	}
	state := NewState(javaDocs())
	NewOrchestrator(stages).Execute(context.Background(), state)

	require.Len(t, state.Errors, 1)
	assert.Equal(t, AgentFailed, state.AgentOutputs[StagePrevalidation].Status)
}

func TestExecute_cancelledContext(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, summary := f.orchestrator().Run(ctx, javaDocs())

	assert.False(t, summary.Success)
	require.Len(t, state.Errors, 1)
	assert.Equal(t, ContextCancelled, state.Errors[0].Context)
	for _, name := range AgentSequence {
		assert.Equal(t, AgentSkipped, state.AgentOutputs[name].Status, name)
	}
	assert.Empty(t, f.llm.Calls)
}

func TestExecute_viewIsReadOnly(t *testing.T) {
	stages := []Stage{
		funcStage{name: StagePrevalidation, run: func(_ context.Context, v View) StageResult {
			docs := v.Prompts()
			docs[0].Content = "mutated"
			return Succeeded(PrevalidationOutput{Result: parser.ParseValidation("VALIDATION_STATUS: PASS")}, "", completion.Usage{})
		}},
	}
	state := NewState(javaDocs())
	NewOrchestrator(stages).Execute(context.Background(), state)

	assert.NotEqual(t, "mutated", state.Prompts[0].Content)
}

func TestExecute_metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.InitMetrics(reg)
	f := newFixture()
	f.llm.WithResponse(StageGuardrails, rejectedGuardrails)

	f.orchestrator(WithMetrics(m)).Run(context.Background(), javaDocs())

	count, err := testutil.GatherAndCount(reg, "codeforge_stage_executions_total")
	require.NoError(t, err)
	assert.Equal(t, len(AgentSequence), count)
}

func TestSummary_historyRecord(t *testing.T) {
	f := newFixture()
	_, summary := f.orchestrator().Run(context.Background(), javaDocs())

	run, outputs := summary.HistoryRecord()
	assert.Equal(t, summary.WorkflowID, run.WorkflowID)
	assert.True(t, run.Success)
	assert.Equal(t, "java", run.Language)
	assert.Equal(t, publish.StatusCommittedLocally, run.RepoStatus)
	require.Len(t, outputs, len(AgentSequence))
	for i, out := range outputs {
		assert.Equal(t, i+1, out.Sequence)
		assert.Equal(t, AgentSequence[i], out.AgentName)
	}
}
