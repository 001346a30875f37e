package workflow

import (
	"path"
	"regexp"
	"strings"

	"github.com/ariel-frischer/codeforge/internal/parser"
	"github.com/ariel-frischer/codeforge/internal/techstack"
)

// CoreFile is a file the generation stage must produce. Template is empty
// when the content comes from the completion service.
type CoreFile struct {
	Path     string `json:"path" yaml:"path"`
	Type     string `json:"type" yaml:"type"`
	Purpose  string `json:"purpose" yaml:"purpose"`
	Template string `json:"template,omitempty" yaml:"template,omitempty"`
	Entity   string `json:"entity,omitempty" yaml:"entity,omitempty"`
}

// Dependency is a library the layout expects the project to need.
type Dependency struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	Scope   string `json:"scope,omitempty" yaml:"scope,omitempty"`
}

// ProjectStructure is the language-conditioned project layout.
type ProjectStructure struct {
	Language     string       `json:"language" yaml:"language"`
	Framework    string       `json:"framework" yaml:"framework"`
	BuildTool    string       `json:"build_tool" yaml:"build_tool"`
	AppName      string       `json:"app_name" yaml:"app_name"`
	BasePackage  string       `json:"base_package,omitempty" yaml:"base_package,omitempty"`
	ModuleName   string       `json:"module_name,omitempty" yaml:"module_name,omitempty"`
	Entities     []string     `json:"entities" yaml:"entities"`
	Directories  []string     `json:"directories" yaml:"directories"`
	RootFiles    []CoreFile   `json:"root_files" yaml:"root_files"`
	CoreFiles    []CoreFile   `json:"core_files" yaml:"core_files"`
	Dependencies []Dependency `json:"dependencies" yaml:"dependencies"`
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// SanitizeEntities cleans raw entity lines into type names: the text before
// the first ":" then "-", alphanumerics only, title-cased. Empty results are
// skipped, duplicates keep their first position, and at most limit names
// are returned.
func SanitizeEntities(raw []string, limit int) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, e := range raw {
		if limit > 0 && len(out) >= limit {
			break
		}
		name, _, _ := strings.Cut(e, ":")
		name, _, _ = strings.Cut(name, "-")
		name = titleWord(nonAlnum.ReplaceAllString(strings.TrimSpace(name), ""))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// titleWord upper-cases the first letter and lower-cases the rest, skipping
// leading digits the way word title-casing does.
func titleWord(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			upper = true
		case upper:
			b.WriteString(strings.ToUpper(string(r)))
			upper = false
		default:
			b.WriteString(strings.ToLower(string(r)))
		}
	}
	return b.String()
}

// javaPackage is com.<domain alnum lower, at most 20 chars>.
func javaPackage(domain string) string {
	clean := strings.ToLower(nonAlnum.ReplaceAllString(domain, ""))
	if len(clean) > 20 {
		clean = clean[:20]
	}
	if clean == "" || clean == techstack.Unknown {
		clean = "app"
	}
	return "com." + clean
}

// slug lower-cases domain and joins its alphanumeric runs with sep.
func slug(domain, sep string) string {
	parts := strings.FieldsFunc(strings.ToLower(domain), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	if len(parts) == 0 || (len(parts) == 1 && parts[0] == techstack.Unknown) {
		return "app"
	}
	return strings.Join(parts, sep)
}

// pascal joins the alphanumeric runs of domain in title case.
func pascal(domain string) string {
	parts := strings.FieldsFunc(domain, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strings.ToUpper(p[:1]) + p[1:])
	}
	if b.Len() == 0 || strings.EqualFold(b.String(), techstack.Unknown) {
		return "App"
	}
	return b.String()
}

// BuildLayout derives the project structure from the stack and the business
// context. Core file paths are unique; the first occurrence wins.
func BuildLayout(stack techstack.Stack, bc parser.BusinessContext, maxItems int) ProjectStructure {
	entities := SanitizeEntities(bc.Entities, maxItems)

	var ps ProjectStructure
	switch strings.ToLower(stack.Language) {
	case "java":
		ps = javaLayout(stack, bc, entities)
	case "golang":
		ps = golangLayout(stack, bc, entities)
	case "python":
		ps = pythonLayout(stack, bc, entities)
	case "javascript", "typescript":
		ps = nodeLayout(stack, bc)
	case "csharp":
		ps = dotnetLayout(stack, bc)
	default:
		ps = genericLayout(stack, bc)
	}
	ps.Language = stack.Language
	ps.Framework = stack.Framework
	if ps.BuildTool == "" {
		ps.BuildTool = stack.BuildTool
	}
	ps.Entities = entities
	ps.CoreFiles = uniqueFiles(ps.CoreFiles)
	if ps.Dependencies == nil {
		ps.Dependencies = []Dependency{}
	}
	return ps
}

func uniqueFiles(files []CoreFile) []CoreFile {
	seen := map[string]bool{}
	out := []CoreFile{}
	for _, f := range files {
		p := path.Clean(f.Path)
		if seen[p] {
			continue
		}
		seen[p] = true
		f.Path = p
		out = append(out, f)
	}
	return out
}

func javaLayout(stack techstack.Stack, bc parser.BusinessContext, entities []string) ProjectStructure {
	spring := strings.Contains(strings.ToLower(stack.Framework), "spring")
	pkg := javaPackage(bc.Domain)
	src := "src/main/java/" + strings.ReplaceAll(pkg, ".", "/")

	pick := func(springName, plain string) string {
		if spring {
			return springName
		}
		return plain
	}

	files := []CoreFile{{
		Path:     src + "/Application.java",
		Type:     "main_class",
		Purpose:  "Main application class",
		Template: pick("spring_boot_main", "java_main"),
	}}
	// Build file first: max_items truncates from the end.
	buildFile := CoreFile{Path: "build.gradle", Type: "build", Purpose: "Build configuration"}
	if stack.BuildTool == "maven" {
		buildFile = CoreFile{Path: "pom.xml", Type: "build", Purpose: "Build configuration", Template: "maven_pom"}
		files = append(files, buildFile)
	}
	for _, e := range entities {
		files = append(files,
			CoreFile{Path: src + "/model/" + e + ".java", Type: "entity", Purpose: e + " entity class", Template: pick("jpa_entity", "java_class"), Entity: e},
			CoreFile{Path: src + "/repository/" + e + "Repository.java", Type: "repository", Purpose: e + " data access", Template: pick("spring_repository", "java_interface"), Entity: e},
			CoreFile{Path: src + "/service/" + e + "Service.java", Type: "service", Purpose: e + " business logic", Template: pick("spring_service", "java_class"), Entity: e},
			CoreFile{Path: src + "/controller/" + e + "Controller.java", Type: "controller", Purpose: e + " REST API", Template: pick("spring_controller", "java_class"), Entity: e},
		)
	}

	var deps []Dependency
	if spring {
		for _, starter := range []string{"web", "data-jpa", "security", "validation"} {
			deps = append(deps, Dependency{Name: "spring-boot-starter-" + starter, Version: "3.2.3", Scope: "compile"})
		}
		deps = append(deps, Dependency{Name: "spring-boot-starter-test", Version: "3.2.3", Scope: "test"})
	}
	switch strings.ToLower(stack.Database) {
	case "postgresql":
		deps = append(deps, Dependency{Name: "postgresql", Version: "42.7.2", Scope: "runtime"})
	case "mysql":
		deps = append(deps, Dependency{Name: "mysql-connector-java", Version: "8.0.33", Scope: "runtime"})
	}

	return ProjectStructure{
		AppName:     strings.TrimPrefix(pkg, "com."),
		BasePackage: pkg,
		Directories: []string{
			src + "/config", src + "/controller", src + "/service", src + "/repository",
			src + "/model", src + "/dto", src + "/exception", src + "/util",
			"src/main/resources/db/migration",
			"src/test/java/" + strings.ReplaceAll(pkg, ".", "/"),
			"src/test/resources",
		},
		RootFiles: []CoreFile{
			buildFile,
			{Path: "README.md", Purpose: "Project documentation"},
			{Path: "Dockerfile", Purpose: "Container configuration"},
			{Path: ".gitignore", Purpose: "Git ignore rules"},
		},
		CoreFiles:    files,
		Dependencies: deps,
	}
}

func golangLayout(stack techstack.Stack, bc parser.BusinessContext, entities []string) ProjectStructure {
	gin := strings.Contains(strings.ToLower(stack.Framework), "gin")
	app := slug(bc.Domain, "-")
	module := "github.com/company/" + app

	entry := "go_main"
	if gin {
		entry = "gin_main"
	}
	files := []CoreFile{
		{Path: "cmd/" + app + "/main.go", Type: "main", Purpose: "Application entry point", Template: entry},
		{Path: "go.mod", Type: "module", Purpose: "Go module definition", Template: "go_mod"},
	}
	for _, e := range entities {
		lower := strings.ToLower(e)
		files = append(files,
			CoreFile{Path: "internal/model/" + lower + ".go", Type: "model", Purpose: e + " model struct", Template: "go_model", Entity: e},
		)
		handler := CoreFile{Path: "internal/api/handlers/" + lower + "_handler.go", Type: "handler", Purpose: e + " HTTP handlers", Entity: e}
		if gin {
			handler.Template = "gin_handler"
		}
		files = append(files, handler)
	}

	var deps []Dependency
	if gin {
		deps = append(deps, Dependency{Name: "github.com/gin-gonic/gin", Version: "v1.10.0"})
	}
	if strings.ToLower(stack.Database) == "postgresql" {
		deps = append(deps,
			Dependency{Name: "gorm.io/gorm", Version: "v1.25.7"},
			Dependency{Name: "gorm.io/driver/postgres", Version: "v1.5.6"},
		)
	}

	return ProjectStructure{
		AppName:    app,
		BuildTool:  "go-mod",
		ModuleName: module,
		Directories: []string{
			"cmd/" + app, "internal/api/handlers", "internal/api/middleware", "internal/service",
			"internal/repository", "internal/model", "internal/config", "pkg", "migrations",
		},
		RootFiles: []CoreFile{
			{Path: "go.mod", Purpose: "Go module definition"},
			{Path: "README.md", Purpose: "Project documentation"},
			{Path: "Dockerfile", Purpose: "Container configuration"},
			{Path: "Makefile", Purpose: "Build automation"},
		},
		CoreFiles:    files,
		Dependencies: deps,
	}
}

func pythonLayout(stack techstack.Stack, bc parser.BusinessContext, entities []string) ProjectStructure {
	app := slug(bc.Domain, "_")
	fw := strings.ToLower(stack.Framework)

	var files []CoreFile
	var dirs []string
	var deps []Dependency
	switch {
	case strings.Contains(fw, "django"):
		files = []CoreFile{
			{Path: "manage.py", Type: "main", Purpose: "Django management entry point"},
			{Path: app + "/settings.py", Type: "config", Purpose: "Django settings"},
			{Path: app + "/urls.py", Type: "routes", Purpose: "URL configuration"},
		}
		for _, e := range entities {
			files = append(files, CoreFile{Path: app + "/models/" + strings.ToLower(e) + ".py", Type: "model", Purpose: e + " Django model", Entity: e})
		}
		dirs = []string{app, app + "/models", app + "/views", app + "/migrations", "tests"}
		deps = []Dependency{{Name: "Django", Version: "5.0.3"}, {Name: "djangorestframework", Version: "3.15.1"}}
	case strings.Contains(fw, "fastapi"):
		files = []CoreFile{{Path: "app/main.py", Type: "main", Purpose: "FastAPI application entry point"}}
		for _, e := range entities {
			lower := strings.ToLower(e)
			files = append(files,
				CoreFile{Path: "app/models/" + lower + ".py", Type: "model", Purpose: e + " Pydantic model", Entity: e},
				CoreFile{Path: "app/routers/" + lower + ".py", Type: "router", Purpose: e + " API routes", Entity: e},
			)
		}
		dirs = []string{"app", "app/models", "app/routers", "app/services", "tests"}
		deps = []Dependency{{Name: "fastapi", Version: "0.110.0"}, {Name: "uvicorn", Version: "0.29.0"}, {Name: "pydantic", Version: "2.6.4"}}
	case strings.Contains(fw, "flask"):
		files = []CoreFile{{Path: "app.py", Type: "main", Purpose: "Flask application entry point"}}
		for _, e := range entities {
			files = append(files, CoreFile{Path: "models/" + strings.ToLower(e) + ".py", Type: "model", Purpose: e + " model", Entity: e})
		}
		dirs = []string{"models", "routes", "templates", "tests"}
		deps = []Dependency{{Name: "Flask", Version: "3.0.2"}}
	default:
		files = []CoreFile{{Path: "main.py", Type: "main", Purpose: "Application entry point"}}
		for _, e := range entities {
			files = append(files, CoreFile{Path: app + "/" + strings.ToLower(e) + ".py", Type: "model", Purpose: e + " module", Entity: e})
		}
		dirs = []string{app, "tests"}
	}

	return ProjectStructure{
		AppName:     app,
		Directories: dirs,
		RootFiles: []CoreFile{
			{Path: "requirements.txt", Purpose: "Python dependencies"},
			{Path: "README.md", Purpose: "Project documentation"},
			{Path: "Dockerfile", Purpose: "Container configuration"},
		},
		CoreFiles:    files,
		Dependencies: deps,
	}
}

func nodeLayout(stack techstack.Stack, bc parser.BusinessContext) ProjectStructure {
	ext := "js"
	if strings.ToLower(stack.Language) == "typescript" {
		ext = "ts"
	}
	var deps []Dependency
	if strings.Contains(strings.ToLower(stack.Framework), "express") {
		deps = append(deps,
			Dependency{Name: "express", Version: "^4.18.2", Scope: "dependency"},
			Dependency{Name: "@types/express", Version: "^4.17.17", Scope: "devDependency"},
		)
	}
	if ext == "ts" {
		deps = append(deps,
			Dependency{Name: "typescript", Version: "^5.0.0", Scope: "devDependency"},
			Dependency{Name: "@types/node", Version: "^20.0.0", Scope: "devDependency"},
		)
	}
	return ProjectStructure{
		AppName:   slug(bc.Domain, "-"),
		BuildTool: "npm",
		Directories: []string{
			"src/controllers", "src/services", "src/models", "src/middleware", "src/routes",
			"src/config", "tests/unit", "tests/integration",
		},
		RootFiles: []CoreFile{
			{Path: "package.json", Purpose: "NPM package configuration"},
			{Path: "README.md", Purpose: "Project documentation"},
		},
		CoreFiles: []CoreFile{
			{Path: "src/app." + ext, Type: "main", Purpose: "Main application file"},
			{Path: "package.json", Type: "config", Purpose: "NPM package configuration"},
		},
		Dependencies: deps,
	}
}

func dotnetLayout(stack techstack.Stack, bc parser.BusinessContext) ProjectStructure {
	app := pascal(bc.Domain)
	deps := []Dependency{
		{Name: "Microsoft.AspNetCore.App", Version: "8.0.0"},
		{Name: "Microsoft.EntityFrameworkCore", Version: "8.0.0"},
	}
	if strings.ToLower(stack.Database) == "postgresql" {
		deps = append(deps, Dependency{Name: "Npgsql.EntityFrameworkCore.PostgreSQL", Version: "8.0.0"})
	}
	return ProjectStructure{
		AppName:   app,
		BuildTool: "dotnet",
		Directories: []string{
			app + ".API/Controllers", app + ".Core/Entities", app + ".Core/Services",
			app + ".Infrastructure/Data", app + ".Tests",
		},
		RootFiles: []CoreFile{
			{Path: app + ".sln", Purpose: "Solution file"},
			{Path: "README.md", Purpose: "Project documentation"},
		},
		CoreFiles: []CoreFile{
			{Path: app + ".API/Program.cs", Type: "main", Purpose: "Application entry point"},
			{Path: app + ".sln", Type: "solution", Purpose: "Solution file"},
		},
		Dependencies: deps,
	}
}

func genericLayout(_ techstack.Stack, bc parser.BusinessContext) ProjectStructure {
	return ProjectStructure{
		AppName:     slug(bc.Domain, "_"),
		Directories: []string{"src", "tests", "docs", "config"},
		RootFiles: []CoreFile{
			{Path: "README.md", Purpose: "Project documentation"},
			{Path: ".gitignore", Purpose: "Git ignore rules"},
		},
		CoreFiles: []CoreFile{},
	}
}
