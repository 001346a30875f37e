package cli

import (
	clierrors "github.com/ariel-frischer/codeforge/internal/errors"
)

// Exit codes for the codeforge CLI
// These codes support scripting and CI/CD integration
const (
	// ExitSuccess indicates the command succeeded
	ExitSuccess = 0

	// ExitFailure indicates a runtime failure
	ExitFailure = 1

	// ExitPipelineHalted indicates the pipeline ran but did not complete
	ExitPipelineHalted = 2

	// ExitInvalidArguments indicates invalid command arguments
	ExitInvalidArguments = 3

	// ExitMissingDependencies indicates missing configuration, prompts or credentials
	ExitMissingDependencies = 4
)

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if cliErr := clierrors.AsCLIError(err); cliErr != nil {
		return cliErr.Category.ExitCode()
	}
	return ExitFailure
}
