// codeforge - Requirements-to-project generation pipeline
// Author: Ariel Frischer
// Source: https://github.com/ariel-frischer/codeforge

// Package cli implements the codeforge command line.
package cli

import (
	"github.com/spf13/cobra"

	clierrors "github.com/ariel-frischer/codeforge/internal/errors"
)

// Command groups shown in help output.
const (
	GroupPipeline      = "pipeline"
	GroupInspection    = "inspection"
	GroupConfiguration = "configuration"
)

var rootCmd = &cobra.Command{
	Use:   "codeforge",
	Short: "Generate a project from requirement documents",
	Long: `codeforge reads requirement documents, detects the technology stack and
runs an eight-stage pipeline: prevalidation, business context, code structure,
code generation, code evaluation, dependency evaluation, guardrails and
code push. The generated project is written under output_dir and committed
to a git repository.`,
	Example: `  # Run the full pipeline over ./prompts
  codeforge run

  # Preview the detected technology stack
  codeforge detect --prompts-dir requirements

  # List recent runs
  codeforge history`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupPipeline, Title: "Pipeline:"},
		&cobra.Group{ID: GroupInspection, Title: "Inspection:"},
		&cobra.Group{ID: GroupConfiguration, Title: "Configuration:"},
	)

	rootCmd.PersistentFlags().String("config", "", "Path to project config file (default: .codeforge/config.yml)")
	rootCmd.PersistentFlags().String("prompts-dir", "", "Directory holding the requirement documents (overrides config)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: console or json (overrides config)")
}

// Execute runs the root command and prints any error.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		clierrors.FprintError(rootCmd.ErrOrStderr(), err)
	}
	return err
}
