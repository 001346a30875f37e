package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ariel-frischer/codeforge/internal/config"
	clierrors "github.com/ariel-frischer/codeforge/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage codeforge configuration",
	Long: `Manage codeforge configuration settings.

Configuration is loaded with the following priority (highest to lowest):
  1. Environment variables (CODEFORGE_*)
  2. Project config (.codeforge/config.yml or .codeforge/config.json)
  3. User config (~/.config/codeforge/config.yml)
  4. Built-in defaults`,
	Example: `  # Show the effective configuration
  codeforge config show

  # Write a commented project config
  codeforge config init --project`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  "Show the configuration after merging every source. Credentials are never printed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented configuration file",
	Long: `Write the default configuration with comments. By default the user-level
file is created; use --project for .codeforge/config.yml. Existing files are
left unchanged unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetBool("project")
		force, _ := cmd.Flags().GetBool("force")

		path := filepath.Join(".codeforge", "config.yml")
		if !project {
			userPath, err := config.UserConfigPath()
			if err != nil {
				return clierrors.WrapWithMessage(err, clierrors.Configuration, "locating user config directory",
					"Use --project to write .codeforge/config.yml instead")
			}
			path = userPath
		}
		return writeConfigTemplate(cmd, path, force)
	},
}

func init() {
	configCmd.GroupID = GroupConfiguration
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd)

	configInitCmd.Flags().Bool("project", false, "Write the project config instead of the user config")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
}

func writeConfigTemplate(cmd *cobra.Command, path string, force bool) error {
	out := cmd.OutOrStdout()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintf(out, "%s %s already exists (use --force to overwrite)\n", yellow("!"), path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return clierrors.WrapWithMessage(err, clierrors.Runtime, "creating config directory")
	}
	if err := os.WriteFile(path, []byte(config.GetDefaultConfigTemplate()), 0o644); err != nil {
		return clierrors.WrapWithMessage(err, clierrors.Runtime, "writing config")
	}
	fmt.Fprintf(out, "%s wrote %s\n", green("✓"), path)
	return nil
}
