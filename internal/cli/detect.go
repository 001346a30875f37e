package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ariel-frischer/codeforge/internal/prompts"
	"github.com/ariel-frischer/codeforge/internal/techstack"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect the technology stack of the requirement documents",
	Long: `Detect the language, framework, database and build tool declared or implied
by the requirement documents, without calling the completion service.`,
	Example: `  codeforge detect
  codeforge detect --prompts-dir ./reqs --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a := &app{cfg: cfg, logger: zap.NewNop()}
		docs, err := a.loadPrompts("")
		if err != nil {
			return err
		}

		stack := techstack.Detect(docs)
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), stack)
		}
		printStack(cmd, docs, stack)
		return nil
	},
}

func init() {
	detectCmd.GroupID = GroupInspection
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().Bool("json", false, "Print the stack as JSON")
}

func printStack(cmd *cobra.Command, docs []prompts.Info, stack techstack.Stack) {
	out := cmd.OutOrStdout()
	cyan := color.New(color.FgCyan).SprintFunc()

	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Filename)
	}
	fmt.Fprintf(out, "Documents:  %s\n", strings.Join(names, ", "))
	fmt.Fprintf(out, "Language:   %s\n", cyan(stack.Language))
	fmt.Fprintf(out, "Framework:  %s\n", cyan(stack.Framework))
	fmt.Fprintf(out, "Database:   %s\n", cyan(stack.Database))
	fmt.Fprintf(out, "Build tool: %s\n", cyan(stack.BuildTool))
	fmt.Fprintf(out, "Confidence: %.2f\n", stack.Confidence)
	if len(stack.AdditionalTools) > 0 {
		fmt.Fprintf(out, "Tools:      %s\n", strings.Join(stack.AdditionalTools, ", "))
	}
}
