package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	clierrors "github.com/ariel-frischer/codeforge/internal/errors"
	"github.com/ariel-frischer/codeforge/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recent pipeline runs",
	Long:  `View recorded pipeline runs with status, stack, file count and duration. Use --id to list the stages of one run.`,
	Example: `  codeforge history
  codeforge history --limit 5
  codeforge history --id 20260101_120000_abcd1234`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		id, _ := cmd.Flags().GetString("id")

		if limit < 0 {
			return clierrors.NewArgumentError(fmt.Sprintf("limit must be positive, got %d", limit))
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, err := store.Open(cfg.HistoryDBPath())
		if err != nil {
			return clierrors.WrapWithMessage(err, clierrors.Runtime, "opening run history")
		}
		defer db.Close()

		if id != "" {
			return showRun(cmd.Context(), cmd.OutOrStdout(), db, id)
		}
		return listRuns(cmd.Context(), cmd.OutOrStdout(), db, limit)
	},
}

func init() {
	historyCmd.GroupID = GroupInspection
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Show the last N runs")
	historyCmd.Flags().String("id", "", "Show the stages of one run")
}

func listRuns(ctx context.Context, out io.Writer, db *store.Store, limit int) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No history available.")
		return nil
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	for _, r := range runs {
		status := green(r.Status)
		if !r.Success {
			status = red(r.Status)
		}
		fmt.Fprintf(out, "%s  %s  %-9s  %s/%s  files=%d errors=%d  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			cyan(r.WorkflowID),
			status,
			r.Language, r.Framework,
			r.FilesCount, r.ErrorsCount,
			r.Duration())
	}
	return nil
}

func showRun(ctx context.Context, out io.Writer, db *store.Store, id string) error {
	outputs, err := db.AgentOutputs(ctx, id)
	if err != nil {
		return fmt.Errorf("loading run %s: %w", id, err)
	}
	if len(outputs) == 0 {
		return clierrors.NewArgumentError(fmt.Sprintf("no run with id %s", id), "List runs with 'codeforge history'")
	}

	red := color.New(color.FgRed).SprintFunc()
	for _, o := range outputs {
		line := fmt.Sprintf("%d. %-22s %-9s %6dms  tokens=%d/%d",
			o.Sequence, o.AgentName, o.Status, o.DurationMilli, o.InputTokens, o.OutputTokens)
		if o.ErrorMessage != "" {
			line += "  " + red(o.ErrorMessage)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
