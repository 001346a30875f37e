package cli

import (
	"context"

	"github.com/spf13/cobra"

	clierrors "github.com/ariel-frischer/codeforge/internal/errors"
	"github.com/ariel-frischer/codeforge/internal/mcpserver"
	"github.com/ariel-frischer/codeforge/internal/prompts"
	"github.com/ariel-frischer/codeforge/internal/version"
	"github.com/ariel-frischer/codeforge/internal/workflow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline as MCP tools over stdio",
	Long: `Start an MCP server on stdin/stdout exposing run_pipeline, detect_stack and
list_runs. Logs go to stderr so they never mix with the protocol stream.`,
	Example: `  # Register with an MCP client
  codeforge serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		deps := mcpserver.Deps{
			Run: func(ctx context.Context, dir string) (*workflow.Summary, error) {
				return a.runPipeline(ctx, dir, nil)
			},
			Load: func(dir string) ([]prompts.Info, error) {
				return a.loadPrompts(dir)
			},
		}
		if a.history != nil {
			deps.History = a.history
		}

		if err := mcpserver.Serve(mcpserver.New(version.Version, deps)); err != nil {
			return clierrors.Wrap(err, clierrors.Runtime)
		}
		return nil
	},
}

func init() {
	serveCmd.GroupID = GroupPipeline
	rootCmd.AddCommand(serveCmd)
}
