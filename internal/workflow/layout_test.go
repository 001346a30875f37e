package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/codeforge/internal/parser"
	"github.com/ariel-frischer/codeforge/internal/techstack"
)

func TestSanitizeEntities(t *testing.T) {
	tests := map[string]struct {
		raw   []string
		limit int
		want  []string
	}{
		"strips descriptions": {
			raw:  []string{"Customer: a buyer", "order - a purchase"},
			want: []string{"Customer", "Order"},
		},
		"drops duplicates and blanks": {
			raw:  []string{"Customer", "", "customer: again", "  "},
			want: []string{"Customer"},
		},
		"removes punctuation": {
			raw:  []string{"line item", "user_account!"},
			want: []string{"Lineitem", "Useraccount"},
		},
		"respects limit": {
			raw:   []string{"A1", "B2", "C3"},
			limit: 2,
			want:  []string{"A1", "B2"},
		},
		"nil input": {
			want: []string{},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeEntities(tc.raw, tc.limit))
		})
	}
}

func TestNamingHelpers(t *testing.T) {
	assert.Equal(t, "com.retailbanking", javaPackage("Retail Banking"))
	assert.Equal(t, "com.abcdefghijklmnopqrst", javaPackage("abcdefghijklmnopqrstuvwxyz"))
	assert.Equal(t, "com.app", javaPackage("unknown"))
	assert.Equal(t, "com.app", javaPackage(""))

	assert.Equal(t, "retail-banking", slug("Retail Banking", "-"))
	assert.Equal(t, "retail_banking", slug("Retail & Banking", "_"))
	assert.Equal(t, "app", slug("", "-"))

	assert.Equal(t, "RetailBanking", pascal("retail banking"))
	assert.Equal(t, "App", pascal("unknown"))
}

func TestBuildLayout_javaSpring(t *testing.T) {
	stack := techstack.Stack{Language: "java", Framework: "spring-boot", Database: "postgresql", BuildTool: "maven"}
	bc := parser.BusinessContext{Domain: "Retail", Entities: []string{"Customer", "Order"}}

	ps := BuildLayout(stack, bc, DefaultMaxItems)

	assert.Equal(t, "com.retail", ps.BasePackage)
	assert.Equal(t, []string{"Customer", "Order"}, ps.Entities)
	require.Len(t, ps.CoreFiles, 10)
	assert.Equal(t, "src/main/java/com/retail/Application.java", ps.CoreFiles[0].Path)
	assert.Equal(t, "spring_boot_main", ps.CoreFiles[0].Template)
	assert.Equal(t, "pom.xml", ps.CoreFiles[1].Path)
	assert.Equal(t, "maven_pom", ps.CoreFiles[1].Template)
	assert.Equal(t, "jpa_entity", ps.CoreFiles[2].Template)
	assert.Equal(t, "Customer", ps.CoreFiles[2].Entity)

	names := []string{}
	for _, d := range ps.Dependencies {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "spring-boot-starter-web")
	assert.Contains(t, names, "postgresql")
}

func TestBuildLayout_javaPlainGradle(t *testing.T) {
	stack := techstack.Stack{Language: "java", Framework: "unknown", BuildTool: "gradle"}
	ps := BuildLayout(stack, parser.BusinessContext{Entities: []string{"Book"}}, DefaultMaxItems)

	require.Len(t, ps.CoreFiles, 5)
	assert.Equal(t, "java_main", ps.CoreFiles[0].Template)
	assert.Equal(t, "java_interface", ps.CoreFiles[2].Template)
	assert.Equal(t, "build.gradle", ps.RootFiles[0].Path)
	assert.Empty(t, ps.Dependencies)
	assert.NotNil(t, ps.Dependencies)
}

func TestBuildLayout_golangGin(t *testing.T) {
	stack := techstack.Stack{Language: "golang", Framework: "gin", Database: "postgresql", BuildTool: "go-mod"}
	bc := parser.BusinessContext{Domain: "Order Tracking", Entities: []string{"Order"}}

	ps := BuildLayout(stack, bc, DefaultMaxItems)

	assert.Equal(t, "github.com/company/order-tracking", ps.ModuleName)
	assert.Equal(t, "go-mod", ps.BuildTool)
	paths := make([]string, 0, len(ps.CoreFiles))
	for _, f := range ps.CoreFiles {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{
		"cmd/order-tracking/main.go",
		"go.mod",
		"internal/model/order.go",
		"internal/api/handlers/order_handler.go",
	}, paths)
	assert.Equal(t, "gin_main", ps.CoreFiles[0].Template)
	assert.Equal(t, "gin_handler", ps.CoreFiles[3].Template)
}

func TestBuildLayout_golangPlainHandlersUseCompletion(t *testing.T) {
	stack := techstack.Stack{Language: "golang", Framework: "fiber"}
	ps := BuildLayout(stack, parser.BusinessContext{Entities: []string{"Order"}}, DefaultMaxItems)

	assert.Equal(t, "go_main", ps.CoreFiles[0].Template)
	assert.Empty(t, ps.CoreFiles[3].Template)
}

func TestBuildLayout_otherLanguages(t *testing.T) {
	tests := map[string]struct {
		stack     techstack.Stack
		firstPath string
		buildTool string
	}{
		"fastapi":    {techstack.Stack{Language: "python", Framework: "fastapi", BuildTool: "pip"}, "app/main.py", "pip"},
		"django":     {techstack.Stack{Language: "python", Framework: "django", BuildTool: "pip"}, "manage.py", "pip"},
		"flask":      {techstack.Stack{Language: "python", Framework: "flask", BuildTool: "pip"}, "app.py", "pip"},
		"python":     {techstack.Stack{Language: "python", Framework: "unknown", BuildTool: "pip"}, "main.py", "pip"},
		"javascript": {techstack.Stack{Language: "javascript", Framework: "express"}, "src/app.js", "npm"},
		"typescript": {techstack.Stack{Language: "typescript", Framework: "nestjs"}, "src/app.ts", "npm"},
		"csharp":     {techstack.Stack{Language: "csharp", Framework: "asp.net"}, "Shop.API/Program.cs", "dotnet"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ps := BuildLayout(tc.stack, parser.BusinessContext{Domain: "shop"}, DefaultMaxItems)
			require.NotEmpty(t, ps.CoreFiles)
			assert.Equal(t, tc.firstPath, ps.CoreFiles[0].Path)
			assert.Equal(t, tc.buildTool, ps.BuildTool)
		})
	}
}

func TestBuildLayout_unknownLanguage(t *testing.T) {
	ps := BuildLayout(techstack.Stack{Language: "unknown", Framework: "unknown"}, parser.BusinessContext{}, DefaultMaxItems)

	assert.Empty(t, ps.CoreFiles)
	assert.NotEmpty(t, ps.Directories)
}

func TestBuildLayout_entityBudget(t *testing.T) {
	stack := techstack.Stack{Language: "java", Framework: "spring-boot", BuildTool: "maven"}
	bc := parser.BusinessContext{Entities: []string{"A1", "B2", "C3", "D4"}}

	ps := BuildLayout(stack, bc, 2)

	assert.Equal(t, []string{"A1", "B2"}, ps.Entities)
	assert.Len(t, ps.CoreFiles, 1+2*4+1)
}

func TestBuildLayout_mavenBuildFileSurvivesFileCap(t *testing.T) {
	stack := techstack.Stack{Language: "java", Framework: "spring-boot", BuildTool: "maven"}
	bc := parser.BusinessContext{Entities: []string{"Customer", "Order", "Invoice"}}

	ps := BuildLayout(stack, bc, DefaultMaxItems)
	capped := ps.CoreFiles[:DefaultMaxItems]

	paths := make([]string, 0, len(capped))
	for _, f := range capped {
		paths = append(paths, f.Path)
	}
	assert.Contains(t, paths, "pom.xml")
}

func TestBuildLayout_pathsUnique(t *testing.T) {
	stack := techstack.Stack{Language: "golang", Framework: "gin"}
	bc := parser.BusinessContext{Entities: []string{"Order", "order", "ORDER: again", "Item"}}

	ps := BuildLayout(stack, bc, DefaultMaxItems)

	seen := map[string]bool{}
	for _, f := range ps.CoreFiles {
		assert.False(t, seen[f.Path], "duplicate path %s", f.Path)
		seen[f.Path] = true
	}
	assert.Len(t, ps.CoreFiles, 6)
}

func TestUniqueFiles_firstWins(t *testing.T) {
	files := uniqueFiles([]CoreFile{
		{Path: "a/b.go", Purpose: "first"},
		{Path: "a/./b.go", Purpose: "second"},
		{Path: "c.go"},
	})

	require.Len(t, files, 2)
	assert.Equal(t, "first", files[0].Purpose)
	assert.False(t, strings.Contains(files[0].Path, "./"))
}
