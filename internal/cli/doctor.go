package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	clierrors "github.com/ariel-frischer/codeforge/internal/errors"
	"github.com/ariel-frischer/codeforge/internal/health"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that a pipeline run can start",
	Long: `Check the completion backend credentials, the requirement documents, the
output and state directories and the git remote. Exits non-zero when a
required check fails.`,
	Example: `  codeforge doctor
  codeforge doctor --prompts-dir ./reqs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		report := health.RunHealthChecks(cfg)
		fmt.Fprint(cmd.OutOrStdout(), health.FormatReport(report))
		if !report.Passed {
			return clierrors.NewPrerequisiteError("health checks failed", "Fix the checks marked ✗ above")
		}
		return nil
	},
}

func init() {
	doctorCmd.GroupID = GroupConfiguration
	rootCmd.AddCommand(doctorCmd)
}
