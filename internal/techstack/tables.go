package techstack

import "regexp"

// candidate is one scored alternative. Its score is the total number of
// non-overlapping matches of all its patterns.
type candidate struct {
	name     string
	patterns []*regexp.Regexp
}

func (c candidate) score(text string) int {
	n := 0
	for _, p := range c.patterns {
		n += len(p.FindAllStringIndex(text, -1))
	}
	return n
}

// table is ordered; ties go to the earlier candidate.
type table []candidate

// best returns the highest-scoring candidate, or "" when nothing matched.
func (t table) best(text string) string {
	bestName, bestScore := "", 0
	for _, c := range t {
		if s := c.score(text); s > bestScore {
			bestName, bestScore = c.name, s
		}
	}
	return bestName
}

func cand(name string, patterns ...string) candidate {
	c := candidate{name: name}
	for _, p := range patterns {
		c.patterns = append(c.patterns, regexp.MustCompile(p))
	}
	return c
}

var languageTable = table{
	cand("java", `\bjava\b`, `spring\s*boot`, `maven`, `gradle`),
	cand("python", `\bpython\b`, `django`, `flask`, `fastapi`, `pip`, `requirements\.txt`),
	cand("golang", `\bgo\b`, `\bgolang\b`, `gin`, `fiber`, `go\.mod`),
	cand("javascript", `\bjavascript\b`, `\bjs\b`, `node\.?js`, `express`, `npm`),
	cand("typescript", `\btypescript\b`, `\bts\b`, `nestjs`),
	cand("csharp", `\bc#\b`, `\bcsharp\b`, `\.net`, `asp\.net`),
	cand("rust", `\brust\b`, `cargo`, `actix`),
	cand("kotlin", `\bkotlin\b`, `ktor`),
	cand("scala", `\bscala\b`, `akka`, `play`),
	cand("php", `\bphp\b`, `laravel`, `symfony`, `composer`),
}

var frameworkTable = table{
	cand("spring-boot", `spring\s*boot`, `@springbootapplication`),
	cand("django", `\bdjango\b`),
	cand("flask", `\bflask\b`),
	cand("fastapi", `\bfastapi\b`),
	cand("gin", `\bgin\b`, `gin-gonic`),
	cand("fiber", `\bfiber\b`),
	cand("express", `\bexpress\b.*js`),
	cand("nestjs", `\bnestjs\b`, `nest\.js`),
	cand("asp.net", `asp\.net`, `\.net\s*core`),
	cand("laravel", `\blaravel\b`),
	cand("rails", `ruby\s*on\s*rails`, `\brails\b`),
}

var databaseTable = table{
	cand("postgresql", `postgresql`, `postgres`, `psql`),
	cand("mysql", `\bmysql\b`),
	cand("mongodb", `\bmongodb\b`, `\bmongo\b`),
	cand("sqlite", `\bsqlite\b`),
	cand("redis", `\bredis\b`),
	cand("oracle", `\boracle\b`),
	cand("sqlserver", `sql\s*server`, `mssql`),
}

var buildToolTable = table{
	cand("maven", `\bmaven\b`, `pom\.xml`),
	cand("gradle", `\bgradle\b`, `build\.gradle`),
	cand("npm", `\bnpm\b`, `package\.json`),
	cand("yarn", `\byarn\b`),
	cand("pip", `\bpip\b`, `requirements\.txt`),
	cand("poetry", `\bpoetry\b`, `pyproject\.toml`),
	cand("cargo", `\bcargo\b`, `cargo\.toml`),
	cand("go-mod", `go\.mod`, `go\s*mod`),
	cand("composer", `\bcomposer\b`, `composer\.json`),
}

var toolTable = table{
	cand("docker", `\bdocker\b`, `dockerfile`),
	cand("kubernetes", `\bkubernetes\b`, `\bk8s\b`),
	cand("kafka", `\bkafka\b`),
	cand("rabbitmq", `\brabbitmq\b`),
	cand("redis", `\bredis\b`),
	cand("elasticsearch", `\belasticsearch\b`),
	cand("terraform", `\bterraform\b`),
	cand("github-actions", `github\s*actions`),
}

var defaultBuildTools = map[string]string{
	"java":       "maven",
	"python":     "pip",
	"golang":     "go-mod",
	"javascript": "npm",
	"typescript": "npm",
	"rust":       "cargo",
	"php":        "composer",
}

var defaultFrameworks = map[string]string{
	"java":       "spring-boot",
	"python":     "fastapi",
	"golang":     "gin",
	"javascript": "express",
	"typescript": "express",
	"csharp":     "asp.net",
	"php":        "laravel",
}

var validFrameworks = map[string][]string{
	"java":       {"spring-boot"},
	"python":     {"django", "flask", "fastapi"},
	"golang":     {"gin", "fiber"},
	"javascript": {"express", "nestjs"},
	"typescript": {"nestjs", "express"},
	"csharp":     {"asp.net"},
	"php":        {"laravel"},
}
