package workflow

import (
	"context"
	"fmt"

	"github.com/ariel-frischer/codeforge/internal/completion"
	"github.com/ariel-frischer/codeforge/internal/parser"
	"github.com/ariel-frischer/codeforge/internal/prompts"
	"github.com/ariel-frischer/codeforge/internal/publish"
	"github.com/ariel-frischer/codeforge/internal/techstack"
)

// Stage is one step of the pipeline. Run must not retain the view and
// reports failure through the result instead of returning an error.
type Stage interface {
	Name() string
	// Requires lists the state keys that must be present before Run.
	Requires() []string
	Run(ctx context.Context, view View) StageResult
}

// StageOutput is the write-once payload a stage hands back. Only the
// orchestrator applies it.
type StageOutput interface {
	apply(s *WorkflowState)
}

// StageFailure is a structured stage error.
type StageFailure struct {
	Context string
	Err     error
}

func (f *StageFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Context, f.Err)
}

func (f *StageFailure) Unwrap() error {
	return f.Err
}

// StageResult is either an output or a failure, plus telemetry.
type StageResult struct {
	Output   StageOutput
	Raw      string
	Usage    completion.Usage
	Warnings []string
	Failure  *StageFailure
}

// Succeeded builds a successful result.
func Succeeded(out StageOutput, raw string, usage completion.Usage) StageResult {
	return StageResult{Output: out, Raw: raw, Usage: usage}
}

// Failed builds a failed result.
func Failed(context string, err error) StageResult {
	return StageResult{Failure: &StageFailure{Context: context, Err: err}}
}

// View is a read-only window onto the state of prior stages.
type View struct {
	s *WorkflowState
}

// NewView wraps s. Stages never see the state itself.
func NewView(s *WorkflowState) View {
	return View{s: s}
}

func (v View) WorkflowID() string { return v.s.WorkflowID }

func (v View) Prompts() []prompts.Info {
	return append([]prompts.Info(nil), v.s.Prompts...)
}

func (v View) Stack() techstack.Stack { return v.s.TechnologyStack }

func (v View) Validation() parser.Validation {
	if v.s.ValidationResult == nil {
		return parser.ParseValidation("")
	}
	return *v.s.ValidationResult
}

func (v View) BusinessContext() parser.BusinessContext {
	if v.s.BusinessContext == nil {
		return parser.ParseBusinessContext("")
	}
	return *v.s.BusinessContext
}

func (v View) ProjectStructure() ProjectStructure {
	if v.s.ProjectStructure == nil {
		return ProjectStructure{}
	}
	return *v.s.ProjectStructure
}

func (v View) GeneratedFiles() []GeneratedFile {
	return append([]GeneratedFile(nil), v.s.GeneratedFiles...)
}

func (v View) Evaluation() parser.Evaluation {
	if v.s.EvaluationResults == nil {
		return parser.ParseEvaluation("")
	}
	return *v.s.EvaluationResults
}

func (v View) Dependencies() parser.Dependencies {
	if v.s.DependencyAnalysis == nil {
		return parser.ParseDependencies("", v.s.TechnologyStack.BuildTool)
	}
	return *v.s.DependencyAnalysis
}

func (v View) Guardrails() parser.Guardrails {
	if v.s.GuardrailsResults == nil {
		return parser.ParseGuardrails("")
	}
	return *v.s.GuardrailsResults
}

// Per-stage outputs. Each sets exactly its own payload and flag.

type PrevalidationOutput struct{ Result parser.Validation }

func (o PrevalidationOutput) apply(s *WorkflowState) {
	r := o.Result
	s.ValidationResult = &r
	s.PrevalidationComplete = true
}

type BusinessContextOutput struct{ Result parser.BusinessContext }

func (o BusinessContextOutput) apply(s *WorkflowState) {
	r := o.Result
	s.BusinessContext = &r
	s.BusinessContextComplete = true
}

type CodeStructureOutput struct{ Result ProjectStructure }

func (o CodeStructureOutput) apply(s *WorkflowState) {
	r := o.Result
	s.ProjectStructure = &r
	s.CodeStructureComplete = true
}

type CodeGenerationOutput struct{ Files []GeneratedFile }

func (o CodeGenerationOutput) apply(s *WorkflowState) {
	s.GeneratedFiles = append([]GeneratedFile{}, o.Files...)
	s.CodeGenerationComplete = true
}

type CodeEvaluationOutput struct{ Result parser.Evaluation }

func (o CodeEvaluationOutput) apply(s *WorkflowState) {
	r := o.Result
	s.EvaluationResults = &r
	s.CodeEvaluationComplete = true
}

type DependencyOutput struct{ Result parser.Dependencies }

func (o DependencyOutput) apply(s *WorkflowState) {
	r := o.Result
	s.DependencyAnalysis = &r
	s.DependencyEvaluationComplete = true
}

type GuardrailsOutput struct{ Result parser.Guardrails }

func (o GuardrailsOutput) apply(s *WorkflowState) {
	r := o.Result
	s.GuardrailsResults = &r
	s.GuardrailsComplete = true
}

type CodePushOutput struct{ Info publish.RepositoryInfo }

func (o CodePushOutput) apply(s *WorkflowState) {
	info := o.Info
	s.RepositoryInfo = &info
	s.CodePushComplete = true
}
