// Package health checks that the collaborators a pipeline run depends on
// are reachable before any stage starts. The report backs 'codeforge doctor'.
package health

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ariel-frischer/codeforge/internal/completion"
	"github.com/ariel-frischer/codeforge/internal/config"
	"github.com/ariel-frischer/codeforge/internal/prompts"
)

// CheckResult represents the result of a single health check
type CheckResult struct {
	Name    string
	Passed  bool
	Message string
	// Optional checks are reported but never fail the report.
	Optional bool
}

// HealthReport contains all health check results
type HealthReport struct {
	Checks []CheckResult
	Passed bool
}

// RunHealthChecks runs all health checks against cfg and returns a report.
func RunHealthChecks(cfg *config.Configuration) *HealthReport {
	report := &HealthReport{Passed: true}
	for _, check := range []CheckResult{
		CheckCompletionBackend(cfg),
		CheckPrompts(cfg.PromptsDir, cfg.PromptFiles),
		CheckWritableDir("Output directory", cfg.OutputDir),
		CheckWritableDir("State directory", cfg.StateDir),
		CheckGitRemote(cfg.Git),
	} {
		report.Checks = append(report.Checks, check)
		if !check.Passed && !check.Optional {
			report.Passed = false
		}
	}
	return report
}

// CheckCompletionBackend verifies credentials for the anthropic backend or
// that the cli backend's command resolves in PATH.
func CheckCompletionBackend(cfg *config.Configuration) CheckResult {
	const name = "Completion backend"

	switch cfg.Backend {
	case "cli":
		client, err := completion.NewCommandClient(cfg.CLICommand, 0)
		if err != nil {
			return CheckResult{Name: name, Message: err.Error()}
		}
		if err := client.Validate(); err != nil {
			return CheckResult{Name: name, Message: err.Error()}
		}
		return CheckResult{Name: name, Passed: true, Message: "cli command found"}
	default:
		if cfg.APIKey == "" {
			return CheckResult{Name: name, Message: "no API key (set ANTHROPIC_API_KEY or CODEFORGE_API_KEY)"}
		}
		return CheckResult{Name: name, Passed: true, Message: fmt.Sprintf("anthropic API key set (model %s)", cfg.Model)}
	}
}

// CheckPrompts verifies that at least one requirement document is readable.
func CheckPrompts(dir string, files []string) CheckResult {
	const name = "Requirement documents"

	docs, err := prompts.NewReader(dir, files, nil).Load()
	if err != nil {
		if errors.Is(err, prompts.ErrNoPrompts) {
			return CheckResult{Name: name, Message: fmt.Sprintf("none found in %s", dir)}
		}
		return CheckResult{Name: name, Message: err.Error()}
	}
	msg := fmt.Sprintf("%d of %d found in %s", len(docs), len(files), dir)
	return CheckResult{Name: name, Passed: true, Message: msg}
}

// CheckWritableDir creates dir if needed and probes it with a temp file.
func CheckWritableDir(name, dir string) CheckResult {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return CheckResult{Name: name, Message: fmt.Sprintf("cannot create %s: %v", dir, err)}
	}
	f, err := os.CreateTemp(dir, ".codeforge-probe-*")
	if err != nil {
		return CheckResult{Name: name, Message: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	f.Close()
	os.Remove(f.Name())

	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return CheckResult{Name: name, Passed: true, Message: abs}
}

// CheckGitRemote reports where generated projects end up. Publishing works
// without a remote, so the check is optional.
func CheckGitRemote(git config.GitConfig) CheckResult {
	const name = "Git remote"

	if git.RepoURL == "" {
		return CheckResult{Name: name, Optional: true, Message: "not configured, projects are committed locally"}
	}
	if git.Token == "" {
		if _, err := exec.LookPath("git"); err != nil {
			return CheckResult{Name: name, Optional: true, Message: "no token and no git credential helper available"}
		}
		return CheckResult{Name: name, Passed: true, Optional: true, Message: git.RepoURL + " (system credentials)"}
	}
	return CheckResult{Name: name, Passed: true, Optional: true, Message: git.RepoURL + " (token)"}
}

// FormatReport formats the health report for console output
func FormatReport(report *HealthReport) string {
	var output string
	for _, check := range report.Checks {
		switch {
		case check.Passed:
			output += fmt.Sprintf("✓ %s: %s\n", check.Name, check.Message)
		case check.Optional:
			output += fmt.Sprintf("○ %s: %s\n", check.Name, check.Message)
		default:
			output += fmt.Sprintf("✗ %s: %s\n", check.Name, check.Message)
		}
	}
	return output
}
