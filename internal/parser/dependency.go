package parser

// Dependencies is the parsed dependency analysis.
type Dependencies struct {
	Core     []string `json:"core_dependencies" yaml:"core_dependencies"`
	Database []string `json:"database_dependencies" yaml:"database_dependencies"`
	Testing  []string `json:"testing_dependencies" yaml:"testing_dependencies"`
	Security []string `json:"security_dependencies" yaml:"security_dependencies"`
	Logging  []string `json:"logging_dependencies" yaml:"logging_dependencies"`
	Build    []string `json:"build_dependencies" yaml:"build_dependencies"`
	// FileContent is the manifest text for BuildTool, as returned.
	FileContent       string `json:"dependency_file_content" yaml:"dependency_file_content"`
	BuildTool         string `json:"build_tool" yaml:"build_tool"`
	TotalDependencies int    `json:"total_dependencies" yaml:"total_dependencies"`
}

var dependencySchema = Schema{
	{Token: "CORE_DEPENDENCIES:", Field: "core", Kind: List},
	{Token: "DATABASE_DEPENDENCIES:", Field: "database", Kind: List},
	{Token: "TESTING_DEPENDENCIES:", Field: "testing", Kind: List},
	{Token: "SECURITY_DEPENDENCIES:", Field: "security", Kind: List},
	{Token: "LOGGING_DEPENDENCIES:", Field: "logging", Kind: List},
	{Token: "BUILD_DEPENDENCIES:", Field: "build", Kind: List},
	{Token: "DEPENDENCY_FILE_CONTENT:", Field: "file_content", Kind: Text},
}

// ParseDependencies decodes a dependency response for the given build tool.
func ParseDependencies(text, buildTool string) Dependencies {
	s := dependencySchema.Parse(text)

	d := Dependencies{
		Core:        s.list("core"),
		Database:    s.list("database"),
		Testing:     s.list("testing"),
		Security:    s.list("security"),
		Logging:     s.list("logging"),
		Build:       s.list("build"),
		FileContent: s.Texts["file_content"],
		BuildTool:   buildTool,
	}
	d.TotalDependencies = len(d.Core) + len(d.Database) + len(d.Testing) +
		len(d.Security) + len(d.Logging) + len(d.Build)
	return d
}
