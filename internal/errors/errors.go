// Package errors provides categorized CLI errors for codeforge.
// Each error carries remediation hints that are printed below the message.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory classifies a CLIError for display and exit codes.
type ErrorCategory int

const (
	// Argument errors come from invalid flags or positional arguments.
	Argument ErrorCategory = iota
	// Configuration errors come from invalid or missing configuration.
	Configuration
	// Prerequisite errors mean an input the pipeline needs is missing
	// (prompt files, API credentials, CLI agent binary).
	Prerequisite
	// Runtime errors happen while talking to collaborators.
	Runtime
	// Pipeline errors mean the workflow ran but halted before completion.
	Pipeline
)

// String returns a human-readable name for the error category.
func (c ErrorCategory) String() string {
	switch c {
	case Argument:
		return "Argument Error"
	case Configuration:
		return "Configuration Error"
	case Prerequisite:
		return "Prerequisite Error"
	case Runtime:
		return "Runtime Error"
	case Pipeline:
		return "Pipeline Halted"
	default:
		return "Error"
	}
}

// ExitCode maps the category onto the CLI exit codes.
func (c ErrorCategory) ExitCode() int {
	switch c {
	case Argument:
		return 3
	case Configuration, Prerequisite:
		return 4
	case Pipeline:
		return 2
	default:
		return 1
	}
}

// CLIError is a structured error with category and remediation guidance.
type CLIError struct {
	Category    ErrorCategory
	Message     string
	Remediation []string
	// Usage shows the correct command syntax for argument errors.
	Usage string
	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

func newError(category ErrorCategory, message string, remediation []string) *CLIError {
	return &CLIError{Category: category, Message: message, Remediation: remediation}
}

// NewArgumentError creates an argument error.
func NewArgumentError(message string, remediation ...string) *CLIError {
	return newError(Argument, message, remediation)
}

// NewArgumentErrorWithUsage creates an argument error that shows correct usage.
func NewArgumentErrorWithUsage(message, usage string, remediation ...string) *CLIError {
	err := newError(Argument, message, remediation)
	err.Usage = usage
	return err
}

// NewConfigError creates a configuration error.
func NewConfigError(message string, remediation ...string) *CLIError {
	return newError(Configuration, message, remediation)
}

// NewPrerequisiteError creates a prerequisite error.
func NewPrerequisiteError(message string, remediation ...string) *CLIError {
	return newError(Prerequisite, message, remediation)
}

// NewRuntimeError creates a runtime error.
func NewRuntimeError(message string, remediation ...string) *CLIError {
	return newError(Runtime, message, remediation)
}

// NewPipelineError reports a workflow that halted at the given stage.
func NewPipelineError(workflowID, stage string, errorCount int) *CLIError {
	msg := fmt.Sprintf("workflow %s halted at stage %q", workflowID, stage)
	if errorCount > 0 {
		msg = fmt.Sprintf("%s with %d error(s)", msg, errorCount)
	}
	return newError(Pipeline, msg, []string{
		"Inspect the run with 'codeforge history --id " + workflowID + "'",
		"Re-run with --debug to see stage output",
	})
}

// Wrap wraps err with a category, keeping its message.
func Wrap(err error, category ErrorCategory, remediation ...string) *CLIError {
	if err == nil {
		return nil
	}
	wrapped := newError(category, err.Error(), remediation)
	wrapped.Err = err
	return wrapped
}

// WrapWithMessage wraps err with a custom message prefix.
func WrapWithMessage(err error, category ErrorCategory, message string, remediation ...string) *CLIError {
	if err == nil {
		return nil
	}
	wrapped := newError(category, fmt.Sprintf("%s: %v", message, err), remediation)
	wrapped.Err = err
	return wrapped
}

// AsCLIError finds a CLIError in err's chain. Returns nil if there is none.
func AsCLIError(err error) *CLIError {
	var cliErr *CLIError
	if stderrors.As(err, &cliErr) {
		return cliErr
	}
	return nil
}
