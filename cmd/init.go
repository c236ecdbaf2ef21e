package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/flanksource/spec-unit/config"
	"github.com/spf13/cobra"
)

var (
	force      bool
	tomlConfig bool
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a spec-unit.yaml configuration file",
	Long: `Create a spec-unit.yaml configuration file listing every built-in rule with
its default severity and options.

Examples:
  # Initialize in current directory
  spec-unit init

  # Write spec-unit.toml instead
  spec-unit init --toml

  # Force overwrite existing file
  spec-unit init --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration file")
	initCmd.Flags().BoolVar(&tomlConfig, "toml", false, "Write TOML instead of YAML")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	path, err := config.WriteStarterConfig(targetDir, tomlConfig, force)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	color.New(color.FgGreen).Fprintf(out, "✓ Created %s\n", path)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Adjust severities and options, or disable rules you do not want")
	fmt.Fprintln(out, "  2. Run 'spec-unit check' to lint your specs")
	return nil
}
