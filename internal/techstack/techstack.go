// Package techstack infers the target technology stack from requirement text.
//
// Detection runs in two phases. An explicit declaration in the technical
// guidelines document ("use java", "golang (") wins with confidence 1.0.
// Otherwise the combined corpus is scored against ordered regex tables.
// Both phases end with a cross-check that replaces a framework which does
// not belong to the detected language.
package techstack

import (
	"math"
	"regexp"
	"strings"

	"github.com/ariel-frischer/codeforge/internal/prompts"
)

// Unknown marks any field that could not be determined.
const Unknown = "unknown"

// Stack is the detected technology stack. It is computed once per run.
type Stack struct {
	Language        string   `json:"language" yaml:"language"`
	Framework       string   `json:"framework" yaml:"framework"`
	Database        string   `json:"database" yaml:"database"`
	BuildTool       string   `json:"build_tool" yaml:"build_tool"`
	Confidence      float64  `json:"confidence" yaml:"confidence"`
	AdditionalTools []string `json:"additional_tools" yaml:"additional_tools"`
}

// IsKnown reports whether a language was detected.
func (s Stack) IsKnown() bool {
	return s.Language != "" && s.Language != Unknown
}

// Detect infers the stack from ordered documents. It is a pure function of
// its input.
func Detect(docs []prompts.Info) Stack {
	combined := strings.ToLower(prompts.Combine(docs))

	stack, ok := detectExplicit(guidelines(docs))
	if !ok {
		stack = detectPatterns(combined)
	}
	stack.Framework = validFramework(stack.Language, stack.Framework)
	stack.AdditionalTools = detectTools(combined)
	return stack
}

// DetectText runs detection on a single technical-guidelines text.
func DetectText(text string) Stack {
	return Detect([]prompts.Info{{
		Order:   1,
		Key:     "P1",
		Content: text,
		Type:    prompts.TypeTechnicalGuidelines,
	}})
}

// guidelines returns the lower-cased first document keyed P1 or typed as
// technical guidelines.
func guidelines(docs []prompts.Info) string {
	for _, d := range docs {
		if d.Key == "P1" || d.Type == prompts.TypeTechnicalGuidelines {
			return strings.ToLower(d.Content)
		}
	}
	return ""
}

func containsAny(text string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func detectExplicit(text string) (Stack, bool) {
	s := Stack{
		Language:   Unknown,
		Framework:  Unknown,
		Database:   Unknown,
		BuildTool:  Unknown,
		Confidence: 1.0,
	}

	switch {
	case containsAny(text, "use java", "java ("):
		s.Language = "java"
		if containsAny(text, "spring boot", "spring-boot") {
			s.Framework = "spring-boot"
		}
		switch {
		case strings.Contains(text, "maven"):
			s.BuildTool = "maven"
		case strings.Contains(text, "gradle"):
			s.BuildTool = "gradle"
		}
	case containsAny(text, "use python", "python ("):
		s.Language = "python"
		switch {
		case strings.Contains(text, "django"):
			s.Framework = "django"
		case strings.Contains(text, "flask"):
			s.Framework = "flask"
		case strings.Contains(text, "fastapi"):
			s.Framework = "fastapi"
		}
	case containsAny(text, "use go", "use golang", "golang ("):
		s.Language = "golang"
		switch {
		case strings.Contains(text, "gin"):
			s.Framework = "gin"
		case strings.Contains(text, "fiber"):
			s.Framework = "fiber"
		}
	default:
		return Stack{}, false
	}

	switch {
	case containsAny(text, "postgresql", "postgres"):
		s.Database = "postgresql"
	case strings.Contains(text, "mysql"):
		s.Database = "mysql"
	case containsAny(text, "mongodb", "mongo"):
		s.Database = "mongodb"
	}

	if s.BuildTool == Unknown {
		s.BuildTool = defaultBuildTools[s.Language]
	}
	if s.Framework == Unknown {
		s.Framework = defaultFrameworks[s.Language]
	}
	return s, true
}

func detectPatterns(text string) Stack {
	language := languageTable.best(text)
	framework := frameworkTable.best(text)

	database := databaseTable.best(text)
	if database == "" {
		database = Unknown
	}
	buildTool := buildToolTable.best(text)
	if buildTool == "" {
		buildTool = defaultBuildTools[language]
	}
	if buildTool == "" {
		buildTool = Unknown
	}

	s := Stack{
		Language:   orUnknown(language),
		Framework:  orUnknown(framework),
		Database:   database,
		BuildTool:  buildTool,
		Confidence: confidence(text, language, framework),
	}
	return s
}

var mentionPattern = regexp.MustCompile(`\b(?:java|python|golang|javascript|typescript|csharp|rust|kotlin|scala|php)\b`)

// confidence is the share of language mentions that name the detected
// language, boosted by 1.2 when a framework pattern also matched.
func confidence(text, language, framework string) float64 {
	if language == "" || language == Unknown {
		return 0.0
	}
	total := len(mentionPattern.FindAllStringIndex(text, -1))
	if total == 0 {
		return 0.0
	}
	own := len(regexp.MustCompile(`\b`+regexp.QuoteMeta(language)+`\b`).FindAllStringIndex(text, -1))

	c := float64(own) / float64(total)
	if framework != "" && framework != Unknown {
		c = math.Min(1.0, c*1.2)
	}
	return math.Round(c*100) / 100
}

func detectTools(text string) []string {
	tools := []string{}
	for _, c := range toolTable {
		if c.score(text) > 0 {
			tools = append(tools, c.name)
		}
	}
	return tools
}

// validFramework replaces a framework that does not belong to language with
// the language default. Languages without a default get Unknown.
func validFramework(language, framework string) string {
	for _, f := range validFrameworks[language] {
		if f == framework {
			return framework
		}
	}
	if def, ok := defaultFrameworks[language]; ok {
		return def
	}
	return Unknown
}

// ValidFrameworks lists the frameworks accepted for a language.
func ValidFrameworks(language string) []string {
	return append([]string(nil), validFrameworks[language]...)
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}
