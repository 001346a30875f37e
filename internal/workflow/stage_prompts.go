package workflow

import (
	"fmt"
	"strings"

	"github.com/ariel-frischer/codeforge/internal/parser"
	"github.com/ariel-frischer/codeforge/internal/prompts"
	"github.com/ariel-frischer/codeforge/internal/techstack"
)

// SystemPrompt describes the detected stack to the completion service.
func SystemPrompt(stack techstack.Stack) string {
	return fmt.Sprintf(`You are an expert software engineer specializing in %s development.

Technology Stack Context:
- Programming Language: %s
- Framework: %s
- Database: %s
- Build Tool: %s

Write clean, maintainable %s code that follows %s conventions, handles errors,
logs meaningfully, is covered by tests, manages dependencies with %s and uses
%s well.`,
		titleWord(stack.Language), stack.Language, stack.Framework, stack.Database, stack.BuildTool,
		stack.Language, stack.Framework, stack.BuildTool, stack.Database)
}

func stackBlock(stack techstack.Stack) string {
	return fmt.Sprintf("- Language: %s\n- Framework: %s\n- Database: %s\n- Build Tool: %s",
		stack.Language, stack.Framework, stack.Database, stack.BuildTool)
}

func validationPrompt(docs []prompts.Info, stack techstack.Stack) string {
	return fmt.Sprintf(`Analyze the following requirements and validate them against the detected stack.

DETECTED TECHNOLOGY STACK:
%s
- Confidence: %.2f

REQUIREMENTS TO VALIDATE:
%s

Assess technical feasibility, completeness, consistency, technology alignment,
scope and risks. Answer in exactly this format:

VALIDATION_STATUS: [PASS/FAIL/WARNING]
CONFIDENCE_SCORE: [0.0-1.0]

TECHNICAL_FEASIBILITY:
- [assessment]

COMPLETENESS_CHECK:
- [missing requirements]

CONSISTENCY_ANALYSIS:
- [inconsistencies]

TECHNOLOGY_ALIGNMENT:
- [alignment]

SCOPE_ASSESSMENT:
- [scope]

RISK_IDENTIFICATION:
- [risk and mitigation]

RECOMMENDATIONS:
- [recommendation]

NEXT_STEPS:
- [step]
`, stackBlock(stack), stack.Confidence, prompts.Section(docs))
}

func businessPrompt(docs []prompts.Info, stack techstack.Stack) string {
	return fmt.Sprintf(`Extract structured business context for a %s application using %s.

REQUIREMENTS:
%s

Answer in exactly this format:

BUSINESS_DOMAIN:
- Primary Domain: [e.g. E-commerce, Healthcare]
- Use Case: [main use case]

CORE_ENTITIES:
- [EntityName]: [description]

ENTITY_RELATIONSHIPS:
- [relationship]

BUSINESS_PROCESSES:
- [process]

DATA_FLOW:
- [flow]

INTEGRATION_POINTS:
- [external system]

BUSINESS_RULES:
- [rule]

USER_PERSONAS:
- [persona]

SUCCESS_CRITERIA:
- Functional: [what the system must do]
- Non-Functional: [performance, security]
- Business: [business value]

TECHNICAL_IMPLICATIONS:
- Architecture Patterns: [patterns]
- Security Requirements: [security]
- Scalability Needs: [scalability]
- Compliance: [compliance]
`, stack.Language, stack.Framework, prompts.Section(docs))
}

func generationSystemPrompt(stack techstack.Stack) string {
	return fmt.Sprintf(`You are an expert %s developer specializing in %s.
Generate clean, production-ready code. Focus on:
- Code quality and maintainability
- Error handling and logging
- Security
- Performance
- Documentation
- Testability`, stack.Language, stack.Framework)
}

func generationPrompt(f CoreFile, stack techstack.Stack, bc parser.BusinessContext, maxItems int) string {
	entities := bc.Entities
	if len(entities) > maxItems {
		entities = entities[:maxItems]
	}
	return fmt.Sprintf(`Generate complete, production-ready code for the following file:

FILE: %s
PURPOSE: %s

TECHNOLOGY STACK:
%s

BUSINESS CONTEXT:
- Domain: %s
- Key Entities: %s

REQUIREMENTS:
1. Follow %s and %s best practices
2. Handle errors and log them
3. Document public types and functions
4. Validate input where appropriate
5. Keep the code testable
6. Include all imports

Please provide ONLY the file content without any explanations or markdown formatting.
`, f.Path, f.Purpose, stackBlock(stack), bc.Domain, strings.Join(entities, ", "),
		stack.Language, stack.Framework)
}

func evaluationSystemPrompt(stack techstack.Stack) string {
	return fmt.Sprintf("You are a senior %s code reviewer with expertise in %s.", stack.Language, stack.Framework)
}

const excerptLimit = 500

func evaluationPrompt(files []GeneratedFile, stack techstack.Stack, maxItems int) string {
	if len(files) > maxItems {
		files = files[:maxItems]
	}
	var b strings.Builder
	for _, f := range files {
		content := f.Content
		if len(content) > excerptLimit {
			content = content[:excerptLimit] + "..."
		}
		fmt.Fprintf(&b, "=== %s ===\nPurpose: %s\nContent (first %d chars):\n%s\n\n", f.Path, f.Purpose, excerptLimit, content)
	}

	var format strings.Builder
	format.WriteString("OVERALL_SCORE: [1-10]\n")
	for _, c := range parser.EvaluationCategories {
		fmt.Fprintf(&format, "%s: [1-10] - [brief explanation]\n", c)
	}

	return fmt.Sprintf(`Evaluate the following generated code for a %s application.

TECHNOLOGY STACK:
- Language: %s
- Framework: %s

GENERATED FILES:
%s
Score code quality, security, performance, maintainability, testability and
documentation from 1 to 10. Answer in exactly this format:

%s
RECOMMENDATIONS:
- [recommendation]

ISSUES_FOUND:
- [issue]
`, stack.Language, stack.Language, stack.Framework, b.String(), format.String())
}

func dependencySystemPrompt(stack techstack.Stack) string {
	return fmt.Sprintf("You are an expert in %s dependency management using %s.", stack.Language, stack.BuildTool)
}

func dependencyPrompt(stack techstack.Stack, ps ProjectStructure, bc parser.BusinessContext, maxItems int) string {
	entities := bc.Entities
	if len(entities) > maxItems {
		entities = entities[:maxItems]
	}
	layout := strings.Join(ps.Directories, "\n")
	if len(layout) > excerptLimit {
		layout = layout[:excerptLimit] + "..."
	}
	var known []string
	for _, d := range ps.Dependencies {
		known = append(known, fmt.Sprintf("- %s %s", d.Name, d.Version))
	}

	return fmt.Sprintf(`Determine the dependencies for a %s %s application.

TECHNOLOGY STACK:
%s

BUSINESS CONTEXT:
- Domain: %s
- Entities: %s

PROJECT STRUCTURE:
%s

KNOWN DEPENDENCIES:
%s

Answer in exactly this format:

CORE_DEPENDENCIES:
- [name:version]

DATABASE_DEPENDENCIES:
- [name:version]

TESTING_DEPENDENCIES:
- [name:version]

SECURITY_DEPENDENCIES:
- [name:version]

LOGGING_DEPENDENCIES:
- [name:version]

BUILD_DEPENDENCIES:
- [name:version]

DEPENDENCY_FILE_CONTENT:
[complete %s manifest]
`, stack.Language, stack.Framework, stackBlock(stack), bc.Domain, strings.Join(entities, ", "),
		layout, strings.Join(known, "\n"), stack.BuildTool)
}

func guardrailsSystemPrompt(stack techstack.Stack) string {
	return fmt.Sprintf("You are a senior security and compliance officer with expertise in %s applications.", stack.Language)
}

func guardrailsPrompt(stack techstack.Stack, eval parser.Evaluation, fileCount int) string {
	var checks strings.Builder
	for _, c := range parser.ComplianceCategories {
		fmt.Fprintf(&checks, "%s: [PASS/FAIL/WARNING] - [explanation]\n", c)
	}
	return fmt.Sprintf(`Apply guardrails and compliance checks to this %s application.

TECHNOLOGY STACK:
- Language: %s
- Framework: %s

CURRENT EVALUATION SCORES:
- Overall Score: %d/10
- Security Score: %d/10
- Code Quality Score: %d/10

GENERATED FILES COUNT: %d

Check security, code quality, business logic, deployment readiness and
regulatory compliance. Answer in exactly this format:

GUARDRAILS_STATUS: [PASS/FAIL/WARNING]
%s
CRITICAL_ISSUES:
- [issue]

RECOMMENDATIONS:
- [recommendation]

APPROVAL_STATUS: [APPROVED/REJECTED/CONDITIONAL]

APPROVAL_CONDITIONS:
- [condition]
`, stack.Language, stack.Language, stack.Framework, eval.OverallScore,
		eval.Scores["security"], eval.Scores["code_quality"], fileCount, checks.String())
}
