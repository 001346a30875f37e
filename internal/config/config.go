// codeforge - Requirements-to-project generation pipeline
// Author: Ariel Frischer
// Source: https://github.com/ariel-frischer/codeforge

// Package config provides hierarchical configuration for codeforge using koanf.
// Values are layered with priority: environment variables (CODEFORGE_*) >
// project config (.codeforge/config.yml or .json) > user config
// (~/.config/codeforge/config.yml) > built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CODEFORGE_"

// Configuration holds every tunable of the pipeline and its collaborators.
type Configuration struct {
	// PromptsDir holds the requirement documents (P1-PreTech.txt, ...).
	PromptsDir string `koanf:"prompts_dir" yaml:"prompts_dir" validate:"required"`
	// PromptFiles is the ordered list of requirement files. Order is significant.
	PromptFiles []string `koanf:"prompt_files" yaml:"prompt_files" validate:"required,min=1"`
	// OutputDir receives generated projects, one directory per run.
	OutputDir string `koanf:"output_dir" yaml:"output_dir" validate:"required"`
	// StateDir holds checkpoints and the run history database.
	StateDir string `koanf:"state_dir" yaml:"state_dir" validate:"required"`

	// Backend selects the text completion service: anthropic | cli.
	Backend   string `koanf:"backend" yaml:"backend" validate:"oneof=anthropic cli"`
	Model     string `koanf:"model" yaml:"model"`
	MaxTokens int    `koanf:"max_tokens" yaml:"max_tokens" validate:"min=1,max=200000"`
	APIKey    string `koanf:"api_key" yaml:"-"`
	APIURL    string `koanf:"api_url" yaml:"api_url"`
	// CLICommand is a command template with a {{PROMPT}} placeholder,
	// used when Backend is "cli". Example: "claude -p {{PROMPT}}"
	CLICommand string `koanf:"cli_command" yaml:"cli_command"`
	// AgentTimeout bounds each completion call, in seconds. 0 disables it.
	AgentTimeout int `koanf:"agent_timeout" yaml:"agent_timeout" validate:"min=0"`

	// MaxItems caps how many entities, files or snippets any stage sends to
	// (or requests from) the completion service in a single call.
	MaxItems int `koanf:"max_items" yaml:"max_items" validate:"min=1,max=100"`

	Git GitConfig `koanf:"git" yaml:"git"`

	LogLevel  string `koanf:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `koanf:"log_format" yaml:"log_format" validate:"oneof=console json"`
	// MetricsAddr serves Prometheus metrics when non-empty (e.g. ":9090").
	MetricsAddr string `koanf:"metrics_addr" yaml:"metrics_addr"`
	// Tracing exports per-stage spans to stderr.
	Tracing bool `koanf:"tracing" yaml:"tracing"`
}

// GitConfig controls how generated projects are committed and pushed.
type GitConfig struct {
	RepoURL     string `koanf:"repo_url" yaml:"repo_url"`
	Remote      string `koanf:"remote" yaml:"remote"`
	Branch      string `koanf:"branch" yaml:"branch"`
	Token       string `koanf:"token" yaml:"-"`
	AuthorName  string `koanf:"author_name" yaml:"author_name"`
	AuthorEmail string `koanf:"author_email" yaml:"author_email" validate:"omitempty,email"`
}

// LoadOptions configures how configuration is loaded.
type LoadOptions struct {
	// ProjectConfigPath overrides the project config path.
	ProjectConfigPath string
	// SkipUserConfig ignores the user-level config file (used by tests).
	SkipUserConfig bool
}

// Load loads configuration from defaults, user, project and environment sources.
func Load(projectConfigPath string) (*Configuration, error) {
	return LoadWithOptions(LoadOptions{ProjectConfigPath: projectConfigPath})
}

// LoadWithOptions loads configuration with custom options.
func LoadWithOptions(opts LoadOptions) (*Configuration, error) {
	k := koanf.New(".")

	loadDefaults(k)

	if !opts.SkipUserConfig {
		if userPath, err := UserConfigPath(); err == nil {
			if err := loadFile(k, userPath, "user"); err != nil {
				return nil, err
			}
		}
	}

	projectPath := opts.ProjectConfigPath
	if projectPath == "" {
		projectPath = ProjectConfigPath()
	}
	if err := loadFile(k, projectPath, "project"); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	return finalizeConfig(k)
}

func loadDefaults(k *koanf.Koanf) {
	for key, value := range GetDefaults() {
		k.Set(key, value)
	}
}

// loadFile loads a YAML or JSON config file. A missing file is not an error.
func loadFile(k *koanf.Koanf, path, configType string) error {
	if !fileExists(path) {
		return nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return fmt.Errorf("failed to load %s config %s: %w", configType, path, err)
		}
	default:
		if err := ValidateYAMLSyntax(path); err != nil {
			return fmt.Errorf("validating YAML syntax for %s config: %w", configType, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("failed to load %s config %s: %w", configType, path, err)
		}
	}
	return nil
}

func finalizeConfig(k *koanf.Koanf) (*Configuration, error) {
	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyCredentialFallbacks(&cfg)

	if err := ValidateConfigValues(&cfg, "config"); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.StateDir = expandHomePath(cfg.StateDir)
	cfg.OutputDir = expandHomePath(cfg.OutputDir)
	cfg.PromptsDir = expandHomePath(cfg.PromptsDir)

	return &cfg, nil
}

// applyCredentialFallbacks reads well-known credential variables when the
// codeforge-specific ones are unset.
func applyCredentialFallbacks(cfg *Configuration) {
	if cfg.APIKey == "" {
		cfg.APIKey = firstEnv("ANTHROPIC_API_KEY", "CLAUDE_API_KEY")
	}
	if cfg.Git.Token == "" {
		cfg.Git.Token = firstEnv("GITHUB_TOKEN")
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// envTransform converts environment variable names to config keys.
// A double underscore separates nesting levels:
// CODEFORGE_MAX_ITEMS -> max_items, CODEFORGE_GIT__REPO_URL -> git.repo_url
func envTransform(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
