package workflow

import (
	"context"
	"strings"
	"sync"

	"github.com/ariel-frischer/codeforge/internal/completion"
	"github.com/ariel-frischer/codeforge/internal/publish"
)

// stagePromptPrefixes identify which stage sent a prompt.
var stagePromptPrefixes = map[string]string{
	StagePrevalidation:        "Analyze the following requirements",
	StageBusinessContext:      "Extract structured business context",
	StageCodeGeneration:       "Generate complete, production-ready code",
	StageCodeEvaluation:       "Evaluate the following generated code",
	StageDependencyEvaluation: "Determine the dependencies",
	StageGuardrails:           "Apply guardrails",
}

// MockCompletion is a scripted completion.Service. Responses and errors are
// keyed by the stage that sent the prompt.
type MockCompletion struct {
	mu        sync.Mutex
	Responses map[string]string
	Errors    map[string]error
	Usage     completion.Usage

	// Call tracking
	Calls []completion.Request
}

// NewMockCompletion returns a service answering every stage with a
// well-formed, approving response.
func NewMockCompletion() *MockCompletion {
	return &MockCompletion{
		Responses: map[string]string{
			StagePrevalidation:        validResponse,
			StageBusinessContext:      businessResponse,
			StageCodeGeneration:       "generated source",
			StageCodeEvaluation:       evaluationResponse,
			StageDependencyEvaluation: dependencyResponse,
			StageGuardrails:           approvedGuardrails,
		},
		Errors: map[string]error{},
		Usage:  completion.Usage{InputTokens: 10, OutputTokens: 20},
	}
}

// WithResponse replaces the response for a stage.
func (m *MockCompletion) WithResponse(stage, text string) *MockCompletion {
	m.Responses[stage] = text
	return m
}

// WithError makes a stage's prompt fail.
func (m *MockCompletion) WithError(stage string, err error) *MockCompletion {
	m.Errors[stage] = err
	return m
}

// Complete implements completion.Service.
func (m *MockCompletion) Complete(_ context.Context, req completion.Request) (*completion.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)

	stage := classify(req.Prompt)
	if err := m.Errors[stage]; err != nil {
		return nil, err
	}
	return &completion.Response{Text: m.Responses[stage], Usage: m.Usage}, nil
}

// CallsFor counts prompts sent by a stage.
func (m *MockCompletion) CallsFor(stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if classify(c.Prompt) == stage {
			n++
		}
	}
	return n
}

func classify(prompt string) string {
	for stage, prefix := range stagePromptPrefixes {
		if strings.HasPrefix(prompt, prefix) {
			return stage
		}
	}
	return ""
}

// MockPublisher records publish requests.
type MockPublisher struct {
	Info  publish.RepositoryInfo
	Err   error
	Calls []publish.Request
}

// NewMockPublisher returns a publisher reporting a local commit.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{Info: publish.RepositoryInfo{
		Status:     publish.StatusCommittedLocally,
		LocalPath:  "/tmp/generated",
		CommitHash: "abc123",
		Branch:     "main",
	}}
}

// Publish implements Publisher.
func (m *MockPublisher) Publish(_ context.Context, req publish.Request) (*publish.RepositoryInfo, error) {
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	info := m.Info
	info.ProjectName = req.ProjectName
	info.FilesWritten = len(req.Files)
	return &info, nil
}

// MockCheckpoints records snapshot ids.
type MockCheckpoints struct {
	Saves []string
	Err   error
}

func (m *MockCheckpoints) Save(id string, _ any) error {
	m.Saves = append(m.Saves, id)
	return m.Err
}

// MockRecorder keeps the recorded summaries.
type MockRecorder struct {
	Summaries []*Summary
}

func (m *MockRecorder) RecordSummary(_ context.Context, s *Summary) error {
	m.Summaries = append(m.Summaries, s)
	return nil
}

// funcStage is a Stage backed by a function.
type funcStage struct {
	name     string
	requires []string
	run      func(ctx context.Context, v View) StageResult
}

func (s funcStage) Name() string       { return s.name }
func (s funcStage) Requires() []string { return s.requires }
func (s funcStage) Run(ctx context.Context, v View) StageResult {
	return s.run(ctx, v)
}

const validResponse = `VALIDATION_STATUS: PASS
CONFIDENCE_SCORE: 0.9

RECOMMENDATIONS:
- Add pagination
`

const businessResponse = `BUSINESS_DOMAIN:
- Primary Domain: Retail
- Use Case: Online ordering

CORE_ENTITIES:
- Customer: a person who buys
- Order: a purchase
- Customer: duplicate

BUSINESS_PROCESSES:
- Checkout
`

const evaluationResponse = `OVERALL_SCORE: 8 - solid
CODE_QUALITY: 7 - readable
SECURITY: 9 - fine

RECOMMENDATIONS:
- Add tests
`

const dependencyResponse = `CORE_DEPENDENCIES:
- org.springframework.boot:spring-boot-starter-web

TESTING_DEPENDENCIES:
- junit

DEPENDENCY_FILE_CONTENT:
<project>generated pom</project>
`

const approvedGuardrails = `GUARDRAILS_STATUS: PASS
SECURITY_COMPLIANCE: PASS - ok
CODE_QUALITY_COMPLIANCE: PASS - ok
APPROVAL_STATUS: APPROVED
`

const rejectedGuardrails = `GUARDRAILS_STATUS: FAIL
SECURITY_COMPLIANCE: FAIL - secrets in code
CRITICAL_ISSUES:
- Hard-coded password
APPROVAL_STATUS: REJECTED
`
