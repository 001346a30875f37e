package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	clierrors "github.com/ariel-frischer/codeforge/internal/errors"
	"github.com/ariel-frischer/codeforge/internal/parser"
	"github.com/ariel-frischer/codeforge/internal/workflow"
)

// responseParsers decode a saved completion response for a stage.
var responseParsers = map[string]func(text, buildTool string) any{
	workflow.StagePrevalidation: func(text, _ string) any {
		return parser.ParseValidation(text)
	},
	workflow.StageBusinessContext: func(text, _ string) any {
		return parser.ParseBusinessContext(text)
	},
	workflow.StageCodeEvaluation: func(text, _ string) any {
		return parser.ParseEvaluation(text)
	},
	workflow.StageDependencyEvaluation: func(text, buildTool string) any {
		return parser.ParseDependencies(text, buildTool)
	},
	workflow.StageGuardrails: func(text, _ string) any {
		return parser.ParseGuardrails(text)
	},
}

func parserStages() []string {
	names := make([]string, 0, len(responseParsers))
	for name := range responseParsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse a saved completion response the way a stage would",
	Long: `Run a stage's response parser over a saved completion response and print
the structured result. Useful for checking model output against the section
headers each stage expects.`,
	Example: `  codeforge validate --stage guardrails --file response.txt
  codeforge validate --stage dependency_evaluation --file deps.txt --build-tool maven --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stage, _ := cmd.Flags().GetString("stage")
		file, _ := cmd.Flags().GetString("file")
		buildTool, _ := cmd.Flags().GetString("build-tool")
		asJSON, _ := cmd.Flags().GetBool("json")

		parse, ok := responseParsers[stage]
		if !ok {
			return clierrors.NewArgumentErrorWithUsage(
				fmt.Sprintf("unknown stage %q", stage),
				"codeforge validate --stage <stage> --file <response>",
				"Valid stages: "+strings.Join(parserStages(), ", "),
			)
		}
		if file == "" {
			return clierrors.NewArgumentErrorWithUsage("--file is required", "codeforge validate --stage <stage> --file <response>")
		}

		data, err := os.ReadFile(file)
		if err != nil {
			return clierrors.WrapWithMessage(err, clierrors.Argument, "reading response file")
		}

		result := parse(string(data), buildTool)
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), result)
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	validateCmd.GroupID = GroupInspection
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().String("stage", "", "Stage whose parser to run ("+strings.Join(parserStages(), ", ")+")")
	validateCmd.Flags().String("file", "", "File holding the saved response")
	validateCmd.Flags().String("build-tool", "unknown", "Build tool recorded for dependency responses")
	validateCmd.Flags().Bool("json", false, "Print the result as JSON")
}
