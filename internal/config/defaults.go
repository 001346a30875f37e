package config

// GetDefaultConfigTemplate returns a commented config file written by
// 'codeforge config init'.
func GetDefaultConfigTemplate() string {
	return `# codeforge configuration
# Environment variables override this file: CODEFORGE_MAX_ITEMS=5, CODEFORGE_GIT__BRANCH=dev

# Inputs and outputs
prompts_dir: prompts                  # Directory holding the requirement documents
prompt_files:                         # Ordered; key is the prefix before "-" (P1, P2, ...)
  - P1-PreTech.txt
  - P2-Business.txt
  - P3-PostTech.txt
  - P4-Mock.txt
output_dir: generated_code            # One sub-directory per generated project
state_dir: .codeforge                 # Checkpoints and run history

# Text completion
backend: anthropic                    # anthropic | cli
model: claude-3-5-sonnet-20241022
max_tokens: 4000
cli_command: ""                       # e.g. "claude -p {{PROMPT}}" when backend is cli
agent_timeout: 300                    # Seconds per completion call (0 = no timeout)
max_items: 8                          # Max entities/files per external call

# Publishing
git:
  repo_url: ""                        # Reported in the run summary
  remote: origin
  branch: main
  author_name: codeforge
  author_email: codeforge@codeforge.local

# Observability
log_level: info                       # debug | info | warn | error
log_format: console                   # console | json
metrics_addr: ""                      # e.g. :9090 to expose /metrics
tracing: false                        # Print per-stage spans to stderr
`
}

// GetDefaults returns the built-in defaults keyed by koanf path.
func GetDefaults() map[string]interface{} {
	return map[string]interface{}{
		"prompts_dir":      "prompts",
		"prompt_files":     []string{"P1-PreTech.txt", "P2-Business.txt", "P3-PostTech.txt", "P4-Mock.txt"},
		"output_dir":       "generated_code",
		"state_dir":        ".codeforge",
		"backend":          "anthropic",
		"model":            "claude-3-5-sonnet-20241022",
		"max_tokens":       4000,
		"api_url":          "https://api.anthropic.com/v1/messages",
		"cli_command":      "",
		"agent_timeout":    300,
		"max_items":        8,
		"git.repo_url":     "",
		"git.remote":       "origin",
		"git.branch":       "main",
		"git.author_name":  "codeforge",
		"git.author_email": "codeforge@codeforge.local",
		"log_level":        "info",
		"log_format":       "console",
		"metrics_addr":     "",
		"tracing":          false,
	}
}
