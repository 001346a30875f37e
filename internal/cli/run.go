package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	clierrors "github.com/ariel-frischer/codeforge/internal/errors"
	"github.com/ariel-frischer/codeforge/internal/progress"
	"github.com/ariel-frischer/codeforge/internal/workflow"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full generation pipeline",
	Long: `Run every pipeline stage over the requirement documents in prompts_dir.

Stages run in a fixed order and the run stops at the first stage that fails.
Stages after the halt point are reported as skipped. Each stage is
checkpointed under state_dir/runs and the finished run is recorded in the
run history.`,
	Example: `  # Run with the configured prompts directory
  codeforge run

  # Run over another directory and print the summary as JSON
  codeforge run --prompts-dir ./reqs --json

  # Cap entities and generated files at 4
  codeforge run --max-items 4`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("max-items") {
			cfg.MaxItems, _ = cmd.Flags().GetInt("max-items")
			if cfg.MaxItems < 1 {
				return clierrors.NewArgumentErrorWithUsage("--max-items must be at least 1", "codeforge run --max-items 8")
			}
		}
		if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
			cfg.OutputDir = dir
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		var display workflow.ProgressDisplay
		if !asJSON {
			display = progress.NewDisplay(cmd.OutOrStdout(), progress.DetectTerminalCapabilities())
		}

		summary, err := a.runPipeline(ctx, "", display)
		if err != nil {
			return err
		}

		if asJSON {
			if err := writeJSON(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
		} else {
			printSummary(cmd.OutOrStdout(), summary)
		}
		return pipelineError(summary)
	},
}

func init() {
	runCmd.GroupID = GroupPipeline
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("json", false, "Print the run summary as JSON")
	runCmd.Flags().Int("max-items", 0, "Maximum entities/files per external call (overrides config)")
	runCmd.Flags().String("output-dir", "", "Directory for generated projects (overrides config)")
}

// pipelineError returns nil for a successful run and a pipeline error
// naming the halting stage otherwise.
func pipelineError(s *workflow.Summary) error {
	if s.Success {
		return nil
	}
	return clierrors.NewPipelineError(s.WorkflowID, haltedStage(s), len(s.Errors))
}

// haltedStage is the last stage that ran before the halt.
func haltedStage(s *workflow.Summary) string {
	halted := ""
	for _, name := range workflow.AgentSequence {
		out, ok := s.AgentOutputs[name]
		if !ok || out.Status == workflow.AgentSkipped {
			break
		}
		halted = name
		if out.Status == workflow.AgentFailed {
			break
		}
	}
	if halted == "" {
		return workflow.AgentSequence[0]
	}
	return halted
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSummary renders the human summary of a run.
func printSummary(w io.Writer, s *workflow.Summary) {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintln(w)
	if s.Success {
		fmt.Fprintf(w, "%s workflow %s\n", green("Completed"), cyan(s.WorkflowID))
	} else {
		fmt.Fprintf(w, "%s workflow %s\n", red("Failed"), cyan(s.WorkflowID))
	}

	stack := s.TechnologyStack
	fmt.Fprintf(w, "  Stack:    %s / %s / %s / %s (confidence %.2f)\n",
		stack.Language, stack.Framework, stack.Database, stack.BuildTool, stack.Confidence)
	fmt.Fprintf(w, "  Stages:   %d/%d completed\n", s.Summary.SuccessfulAgents, s.Summary.TotalAgents)
	fmt.Fprintf(w, "  Files:    %d generated\n", s.Summary.TotalFilesGenerated)
	fmt.Fprintf(w, "  Duration: %.1fs\n", s.Summary.WorkflowDuration)

	if info := s.RepositoryInfo; info != nil {
		fmt.Fprintf(w, "  Output:   %s (%s)\n", info.LocalPath, info.Status)
		if info.CommitHash != "" {
			fmt.Fprintf(w, "  Commit:   %s on %s\n", info.CommitHash, info.Branch)
		}
		if info.Note != "" {
			fmt.Fprintf(w, "  Note:     %s\n", yellow(info.Note))
		}
		if info.Error != "" {
			fmt.Fprintf(w, "  Push:     %s\n", red(info.Error))
		}
	}

	for _, e := range s.Errors {
		fmt.Fprintf(w, "  %s %s [%s]: %s\n", red("error"), e.Agent, e.Context, e.ErrorMessage)
	}
	for _, e := range s.Warnings {
		fmt.Fprintf(w, "  %s %s [%s]: %s\n", yellow("warning"), e.Agent, e.Context, e.ErrorMessage)
	}
}
