package workflow

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/ariel-frischer/codeforge/internal/completion"
	"github.com/ariel-frischer/codeforge/internal/parser"
	"github.com/ariel-frischer/codeforge/internal/publish"
	"github.com/ariel-frischer/codeforge/internal/techstack"
	"github.com/ariel-frischer/codeforge/internal/templates"
)

// DefaultMaxItems caps every list that is sent to or expanded from the
// completion service.
const DefaultMaxItems = 8

// Publisher writes and commits the generated project.
type Publisher interface {
	Publish(ctx context.Context, req publish.Request) (*publish.RepositoryInfo, error)
}

// Deps are the collaborators the built-in stages call.
type Deps struct {
	Completion completion.Service
	Templates  *templates.Catalog
	Publisher  Publisher
	MaxItems   int
	MaxTokens  int
}

func (d Deps) maxItems() int {
	if d.MaxItems <= 0 {
		return DefaultMaxItems
	}
	return d.MaxItems
}

func (d Deps) catalog() *templates.Catalog {
	if d.Templates == nil {
		return templates.New()
	}
	return d.Templates
}

// ask sends one prompt and returns the text and usage.
func (d Deps) ask(ctx context.Context, prompt, system string) (string, completion.Usage, error) {
	if d.Completion == nil {
		return "", completion.Usage{}, errors.New("no completion service configured")
	}
	resp, err := d.Completion.Complete(ctx, completion.Request{Prompt: prompt, SystemPrompt: system, MaxTokens: d.MaxTokens})
	if err != nil {
		return "", completion.Usage{}, err
	}
	return resp.Text, resp.Usage, nil
}

// DefaultStages returns the eight built-in stages in pipeline order.
func DefaultStages(d Deps) []Stage {
	return []Stage{
		&prevalidationStage{d},
		&businessContextStage{d},
		&codeStructureStage{d},
		&codeGenerationStage{d},
		&codeEvaluationStage{d},
		&dependencyStage{d},
		&guardrailsStage{d},
		&codePushStage{d},
	}
}

func processContext(stage string) string {
	return stage + "_process"
}

type prevalidationStage struct{ deps Deps }

func (s *prevalidationStage) Name() string { return StagePrevalidation }

func (s *prevalidationStage) Requires() []string {
	return []string{KeyPrompts, KeyTechnologyStack}
}

func (s *prevalidationStage) Run(ctx context.Context, v View) StageResult {
	stack := v.Stack()
	text, usage, err := s.deps.ask(ctx, validationPrompt(v.Prompts(), stack), SystemPrompt(stack))
	if err != nil {
		return Failed(processContext(s.Name()), err)
	}
	return Succeeded(PrevalidationOutput{Result: parser.ParseValidation(text)}, text, usage)
}

type businessContextStage struct{ deps Deps }

func (s *businessContextStage) Name() string { return StageBusinessContext }

func (s *businessContextStage) Requires() []string {
	return []string{KeyPrompts, KeyTechnologyStack, KeyPrevalidationComplete}
}

func (s *businessContextStage) Run(ctx context.Context, v View) StageResult {
	stack := v.Stack()
	text, usage, err := s.deps.ask(ctx, businessPrompt(v.Prompts(), stack), SystemPrompt(stack))
	if err != nil {
		return Failed(processContext(s.Name()), err)
	}
	return Succeeded(BusinessContextOutput{Result: parser.ParseBusinessContext(text)}, text, usage)
}

type codeStructureStage struct{ deps Deps }

func (s *codeStructureStage) Name() string { return StageCodeStructure }

func (s *codeStructureStage) Requires() []string {
	return []string{KeyPrompts, KeyTechnologyStack, KeyBusinessContext}
}

func (s *codeStructureStage) Run(_ context.Context, v View) StageResult {
	ps := BuildLayout(v.Stack(), v.BusinessContext(), s.deps.maxItems())
	summary := fmt.Sprintf("%s layout with %d core files", ps.Language, len(ps.CoreFiles))
	return Succeeded(CodeStructureOutput{Result: ps}, summary, completion.Usage{})
}

type codeGenerationStage struct{ deps Deps }

func (s *codeGenerationStage) Name() string { return StageCodeGeneration }

func (s *codeGenerationStage) Requires() []string {
	return []string{KeyPrompts, KeyTechnologyStack, KeyBusinessContext, KeyProjectStructure}
}

// Run renders or generates the first maxItems core files, one at a time in
// layout order.
func (s *codeGenerationStage) Run(ctx context.Context, v View) StageResult {
	stack := v.Stack()
	bc := v.BusinessContext()
	ps := v.ProjectStructure()
	catalog := s.deps.catalog()

	coreFiles := ps.CoreFiles
	if len(coreFiles) > s.deps.maxItems() {
		coreFiles = coreFiles[:s.deps.maxItems()]
	}

	var usage completion.Usage
	files := make([]GeneratedFile, 0, len(coreFiles))
	for _, cf := range coreFiles {
		var content string
		if cf.Template != "" {
			content = catalog.Render(cf.Template, templateContext(cf, stack, bc, ps))
		} else {
			text, u, err := s.deps.ask(ctx, generationPrompt(cf, stack, bc, s.deps.maxItems()), generationSystemPrompt(stack))
			if err != nil {
				return Failed(processContext(s.Name()), fmt.Errorf("generating %s: %w", cf.Path, err))
			}
			usage = usage.Add(u)
			content = text
		}
		files = append(files, GeneratedFile{
			Path:    cf.Path,
			Purpose: cf.Purpose,
			Content: content,
			Type:    cf.Type,
			Size:    len(content),
		})
	}

	summary := fmt.Sprintf("generated %d of %d core files", len(files), len(ps.CoreFiles))
	return Succeeded(CodeGenerationOutput{Files: files}, summary, usage)
}

var javaLayers = map[string]bool{"model": true, "repository": true, "service": true, "controller": true}

// templateContext builds the rendering context for one core file.
func templateContext(cf CoreFile, stack techstack.Stack, bc parser.BusinessContext, ps ProjectStructure) templates.Context {
	stem := strings.TrimSuffix(path.Base(cf.Path), path.Ext(cf.Path))
	subpackage := ""
	if dir := path.Base(path.Dir(cf.Path)); javaLayers[dir] {
		subpackage = dir
	}

	pkg := ps.BasePackage
	if pkg == "" {
		pkg = "com.example"
	}
	app := ps.AppName
	if app == "" {
		app = strings.ToLower(strings.ReplaceAll(bc.Domain, " ", ""))
	}
	module := ps.ModuleName
	if module == "" {
		module = "github.com/company/" + app
	}

	entityNames := ps.Entities
	if entityNames == nil {
		entityNames = []string{}
	}

	return templates.Context{
		"package":      pkg,
		"app_name":     app,
		"entity_name":  entityName(cf, stem),
		"class_name":   stem,
		"module_name":  module,
		"subpackage":   subpackage,
		"language":     stack.Language,
		"framework":    stack.Framework,
		"database":     stack.Database,
		"build_tool":   stack.BuildTool,
		"domain":       bc.Domain,
		"entities":     bc.Entities,
		"entity_names": entityNames,
	}
}

// entityName prefers the entity recorded by the layout. Otherwise it strips
// a layer suffix from the file stem.
func entityName(cf CoreFile, stem string) string {
	if cf.Entity != "" {
		return cf.Entity
	}
	for _, suffix := range []string{"Repository", "Service", "Controller", "_handler", "Handler"} {
		if name := strings.TrimSuffix(stem, suffix); name != stem && name != "" {
			return titleWord(name)
		}
	}
	if cf.Type == "entity" || cf.Type == "model" {
		return titleWord(stem)
	}
	return "Entity"
}

type codeEvaluationStage struct{ deps Deps }

func (s *codeEvaluationStage) Name() string { return StageCodeEvaluation }

func (s *codeEvaluationStage) Requires() []string {
	return []string{KeyGeneratedFiles, KeyTechnologyStack}
}

func (s *codeEvaluationStage) Run(ctx context.Context, v View) StageResult {
	stack := v.Stack()
	text, usage, err := s.deps.ask(ctx, evaluationPrompt(v.GeneratedFiles(), stack, s.deps.maxItems()), evaluationSystemPrompt(stack))
	if err != nil {
		return Failed(processContext(s.Name()), err)
	}
	return Succeeded(CodeEvaluationOutput{Result: parser.ParseEvaluation(text)}, text, usage)
}

type dependencyStage struct{ deps Deps }

func (s *dependencyStage) Name() string { return StageDependencyEvaluation }

func (s *dependencyStage) Requires() []string {
	return []string{KeyTechnologyStack, KeyProjectStructure, KeyBusinessContext}
}

func (s *dependencyStage) Run(ctx context.Context, v View) StageResult {
	stack := v.Stack()
	prompt := dependencyPrompt(stack, v.ProjectStructure(), v.BusinessContext(), s.deps.maxItems())
	text, usage, err := s.deps.ask(ctx, prompt, dependencySystemPrompt(stack))
	if err != nil {
		return Failed(processContext(s.Name()), err)
	}
	return Succeeded(DependencyOutput{Result: parser.ParseDependencies(text, stack.BuildTool)}, text, usage)
}

type guardrailsStage struct{ deps Deps }

func (s *guardrailsStage) Name() string { return StageGuardrails }

func (s *guardrailsStage) Requires() []string {
	return []string{KeyGeneratedFiles, KeyEvaluationResults, KeyTechnologyStack}
}

func (s *guardrailsStage) Run(ctx context.Context, v View) StageResult {
	stack := v.Stack()
	prompt := guardrailsPrompt(stack, v.Evaluation(), len(v.GeneratedFiles()))
	text, usage, err := s.deps.ask(ctx, prompt, guardrailsSystemPrompt(stack))
	if err != nil {
		return Failed(processContext(s.Name()), err)
	}
	return Succeeded(GuardrailsOutput{Result: parser.ParseGuardrails(text)}, text, usage)
}

// ContextGuardrailsFailed marks a push refused by the guardrails verdict.
const ContextGuardrailsFailed = "guardrails_failed"

type codePushStage struct{ deps Deps }

func (s *codePushStage) Name() string { return StageCodePush }

func (s *codePushStage) Requires() []string {
	return []string{KeyGeneratedFiles, KeyGuardrailsResults, KeyDependencyAnalysis}
}

// Run publishes only when guardrails approved the output, outright or
// with conditions.
func (s *codePushStage) Run(ctx context.Context, v View) StageResult {
	g := v.Guardrails()
	if !g.Approved() {
		return Failed(ContextGuardrailsFailed, fmt.Errorf("guardrails approval status %s does not allow publishing", g.ApprovalStatus))
	}
	if s.deps.Publisher == nil {
		return Failed(processContext(s.Name()), errors.New("no repository publisher configured"))
	}

	stack := v.Stack()
	projectName := publish.ProjectName(stack.Language, stack.Framework, timeNow())
	files := v.GeneratedFiles()
	deps := v.Dependencies()

	req := publish.Request{
		ProjectName:   projectName,
		Files:         make([]publish.File, 0, len(files)),
		Manifest:      publish.File{Path: publish.ManifestName(stack.BuildTool), Content: deps.FileContent},
		Readme:        s.readme(v, projectName),
		CommitMessage: fmt.Sprintf("Add generated %s %s application: %s", stack.Language, stack.Framework, projectName),
	}
	for _, f := range files {
		req.Files = append(req.Files, publish.File{Path: f.Path, Content: f.Content})
	}

	info, err := s.deps.Publisher.Publish(ctx, req)
	if err != nil {
		return Failed(processContext(s.Name()), err)
	}
	raw := fmt.Sprintf("%s: %s", info.Status, info.LocalPath)
	return Succeeded(CodePushOutput{Info: *info}, raw, completion.Usage{})
}

func (s *codePushStage) readme(v View, projectName string) string {
	stack := v.Stack()
	files := v.GeneratedFiles()
	list := make([]map[string]string, 0, len(files))
	for _, f := range files {
		list = append(list, map[string]string{"path": f.Path, "purpose": f.Purpose})
	}
	return s.deps.catalog().Render("readme", templates.Context{
		"project_name":      projectName,
		"domain":            v.BusinessContext().Domain,
		"language":          stack.Language,
		"framework":         stack.Framework,
		"database":          stack.Database,
		"build_tool":        stack.BuildTool,
		"files":             list,
		"dependency_count":  v.Dependencies().TotalDependencies,
		"evaluation_score":  v.Evaluation().OverallScore,
		"guardrails_status": v.Guardrails().Status,
		"workflow_id":       v.WorkflowID(),
		"generated_at":      timeNow().Format("2006-01-02 15:04:05"),
	})
}
