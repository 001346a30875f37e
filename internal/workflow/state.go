package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ariel-frischer/codeforge/internal/completion"
	"github.com/ariel-frischer/codeforge/internal/parser"
	"github.com/ariel-frischer/codeforge/internal/prompts"
	"github.com/ariel-frischer/codeforge/internal/publish"
	"github.com/ariel-frischer/codeforge/internal/techstack"
)

// Status is the lifecycle state of a whole run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusPaused     Status = "paused"
)

// AgentStatus is the lifecycle state of one stage.
type AgentStatus string

const (
	AgentNotStarted AgentStatus = "NOT_STARTED"
	AgentRunning    AgentStatus = "RUNNING"
	AgentCompleted  AgentStatus = "COMPLETED"
	AgentFailed     AgentStatus = "FAILED"
	AgentSkipped    AgentStatus = "SKIPPED"
)

// Stage names, in pipeline order.
const (
	StagePrevalidation        = "prevalidation"
	StageBusinessContext      = "business_context"
	StageCodeStructure        = "code_structure"
	StageCodeGeneration       = "code_generation"
	StageCodeEvaluation       = "code_evaluation"
	StageDependencyEvaluation = "dependency_evaluation"
	StageGuardrails           = "guardrails"
	StageCodePush             = "code_push"
)

// AgentSequence is the fixed stage order.
var AgentSequence = []string{
	StagePrevalidation,
	StageBusinessContext,
	StageCodeStructure,
	StageCodeGeneration,
	StageCodeEvaluation,
	StageDependencyEvaluation,
	StageGuardrails,
	StageCodePush,
}

// State keys a stage may require.
const (
	KeyPrompts               = "prompts"
	KeyTechnologyStack       = "technology_stack"
	KeyPrevalidationComplete = "prevalidation_complete"
	KeyBusinessContext       = "business_context"
	KeyProjectStructure      = "project_structure"
	KeyGeneratedFiles        = "generated_files"
	KeyEvaluationResults     = "evaluation_results"
	KeyDependencyAnalysis    = "dependency_analysis"
	KeyGuardrailsResults     = "guardrails_results"
)

// GeneratedFile is one file produced by code generation.
type GeneratedFile struct {
	Path    string `json:"path" yaml:"path"`
	Purpose string `json:"purpose" yaml:"purpose"`
	Content string `json:"content" yaml:"content"`
	Type    string `json:"type" yaml:"type"`
	Size    int    `json:"size" yaml:"size"`
}

// AgentOutput is the telemetry recorded for every stage attempt.
type AgentOutput struct {
	AgentName     string           `json:"agent_name" yaml:"agent_name"`
	Status        AgentStatus      `json:"status" yaml:"status"`
	Output        string           `json:"output,omitempty" yaml:"output,omitempty"`
	ErrorMessage  string           `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	ExecutionTime float64          `json:"execution_time" yaml:"execution_time"`
	TokenUsage    completion.Usage `json:"token_usage" yaml:"token_usage"`
}

// LogEntry is one structured error or warning.
type LogEntry struct {
	Agent        string    `json:"agent" yaml:"agent"`
	ErrorMessage string    `json:"error_message" yaml:"error_message"`
	Context      string    `json:"context" yaml:"context"`
	Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
}

// WorkflowState is the single record threaded through a run. Only the
// orchestrator mutates it; stages see a View and return outputs.
type WorkflowState struct {
	WorkflowID         string     `json:"workflow_id" yaml:"workflow_id"`
	Status             Status     `json:"status" yaml:"status"`
	CurrentAgent       string     `json:"current_agent" yaml:"current_agent"`
	CurrentAgentIndex  int        `json:"current_agent_index" yaml:"current_agent_index"`
	AgentSequence      []string   `json:"agent_sequence" yaml:"agent_sequence"`
	ExecutionStartTime *time.Time `json:"execution_start_time,omitempty" yaml:"execution_start_time,omitempty"`
	ExecutionEndTime   *time.Time `json:"execution_end_time,omitempty" yaml:"execution_end_time,omitempty"`

	Prompts         []prompts.Info  `json:"prompts" yaml:"prompts"`
	TechnologyStack techstack.Stack `json:"technology_stack" yaml:"technology_stack"`

	PrevalidationComplete        bool `json:"prevalidation_complete" yaml:"prevalidation_complete"`
	BusinessContextComplete      bool `json:"business_context_complete" yaml:"business_context_complete"`
	CodeStructureComplete        bool `json:"code_structure_complete" yaml:"code_structure_complete"`
	CodeGenerationComplete       bool `json:"code_generation_complete" yaml:"code_generation_complete"`
	CodeEvaluationComplete       bool `json:"code_evaluation_complete" yaml:"code_evaluation_complete"`
	DependencyEvaluationComplete bool `json:"dependency_evaluation_complete" yaml:"dependency_evaluation_complete"`
	GuardrailsComplete           bool `json:"guardrails_complete" yaml:"guardrails_complete"`
	CodePushComplete             bool `json:"code_push_complete" yaml:"code_push_complete"`

	ValidationResult   *parser.Validation      `json:"validation_result,omitempty" yaml:"validation_result,omitempty"`
	BusinessContext    *parser.BusinessContext `json:"business_context,omitempty" yaml:"business_context,omitempty"`
	ProjectStructure   *ProjectStructure       `json:"project_structure,omitempty" yaml:"project_structure,omitempty"`
	GeneratedFiles     []GeneratedFile         `json:"generated_files,omitempty" yaml:"generated_files,omitempty"`
	EvaluationResults  *parser.Evaluation      `json:"evaluation_results,omitempty" yaml:"evaluation_results,omitempty"`
	DependencyAnalysis *parser.Dependencies    `json:"dependency_analysis,omitempty" yaml:"dependency_analysis,omitempty"`
	GuardrailsResults  *parser.Guardrails      `json:"guardrails_results,omitempty" yaml:"guardrails_results,omitempty"`
	RepositoryInfo     *publish.RepositoryInfo `json:"repository_info,omitempty" yaml:"repository_info,omitempty"`

	AgentOutputs map[string]*AgentOutput `json:"agent_outputs" yaml:"agent_outputs"`
	Errors       []LogEntry              `json:"errors" yaml:"errors"`
	Warnings     []LogEntry              `json:"warnings" yaml:"warnings"`
}

// NewWorkflowID returns "YYYYMMDD_HHMMSS_<uuid8>".
func NewWorkflowID(t time.Time) string {
	return fmt.Sprintf("%s_%s", t.Format("20060102_150405"), uuid.New().String()[:8])
}

// NewState creates a pending state for docs. The technology stack is
// detected here, once, and never recomputed.
func NewState(docs []prompts.Info) *WorkflowState {
	sequence := make([]string, len(AgentSequence))
	copy(sequence, AgentSequence)
	return &WorkflowState{
		WorkflowID:      NewWorkflowID(timeNow()),
		Status:          StatusPending,
		CurrentAgent:    sequence[0],
		AgentSequence:   sequence,
		Prompts:         docs,
		TechnologyStack: techstack.Detect(docs),
		AgentOutputs:    map[string]*AgentOutput{},
		Errors:          []LogEntry{},
		Warnings:        []LogEntry{},
	}
}

// Has reports whether a required key is present and non-empty.
func (s *WorkflowState) Has(key string) bool {
	switch key {
	case KeyPrompts:
		return len(s.Prompts) > 0
	case KeyTechnologyStack:
		return s.TechnologyStack.Language != ""
	case KeyPrevalidationComplete:
		return s.PrevalidationComplete
	case KeyBusinessContext:
		return s.BusinessContext != nil
	case KeyProjectStructure:
		return s.ProjectStructure != nil
	case KeyGeneratedFiles:
		return s.GeneratedFiles != nil
	case KeyEvaluationResults:
		return s.EvaluationResults != nil
	case KeyDependencyAnalysis:
		return s.DependencyAnalysis != nil
	case KeyGuardrailsResults:
		return s.GuardrailsResults != nil
	default:
		return false
	}
}

// Complete reports the completion flag of a stage.
func (s *WorkflowState) Complete(stage string) bool {
	switch stage {
	case StagePrevalidation:
		return s.PrevalidationComplete
	case StageBusinessContext:
		return s.BusinessContextComplete
	case StageCodeStructure:
		return s.CodeStructureComplete
	case StageCodeGeneration:
		return s.CodeGenerationComplete
	case StageCodeEvaluation:
		return s.CodeEvaluationComplete
	case StageDependencyEvaluation:
		return s.DependencyEvaluationComplete
	case StageGuardrails:
		return s.GuardrailsComplete
	case StageCodePush:
		return s.CodePushComplete
	default:
		return false
	}
}

func (s *WorkflowState) addError(agent, context, message string) {
	s.Errors = append(s.Errors, LogEntry{Agent: agent, ErrorMessage: message, Context: context, Timestamp: timeNow()})
}

func (s *WorkflowState) addWarning(agent, context, message string) {
	s.Warnings = append(s.Warnings, LogEntry{Agent: agent, ErrorMessage: message, Context: context, Timestamp: timeNow()})
}

func (s *WorkflowState) setAgentOutput(out *AgentOutput) {
	if s.AgentOutputs == nil {
		s.AgentOutputs = map[string]*AgentOutput{}
	}
	s.AgentOutputs[out.AgentName] = out
}
