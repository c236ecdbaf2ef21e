package cmd

import (
	"fmt"

	"github.com/flanksource/spec-unit/config"
	"github.com/flanksource/spec-unit/internal/source"
	"github.com/flanksource/spec-unit/output"
	"github.com/flanksource/spec-unit/parser"
	"github.com/spf13/cobra"
)

var treeFormat string

var treeCmd = &cobra.Command{
	Use:   "tree <file>...",
	Short: "Print the description tree of spec files",
	Long: `Parse spec files and print their describe/context/it tree.

Formats:
  pretty  box-drawn tree with lines, pending markers and expectation counts
  json    the parsed tree as JSON
  ruby    a normalized skeleton of the file (blocks and names)

Examples:
  spec-unit tree spec/models/user_spec.rb
  spec-unit tree spec/models/user_spec.rb --tree-format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().StringVar(&treeFormat, "tree-format", "pretty", "Tree format: pretty, json, ruby")
}

func runTree(cmd *cobra.Command, args []string) error {
	wd, err := GetWorkingDir()
	if err != nil {
		return err
	}
	cfg, _, err := loadProjectConfig(wd)
	if err != nil {
		return configError(err)
	}
	aliases, err := config.Aliases(cfg)
	if err != nil {
		return configError(err)
	}

	p := parser.New(parser.Options{Aliases: aliases})
	reader := source.NewReader()
	for _, file := range args {
		text, err := reader.Read(file)
		if err != nil {
			return err
		}
		tree, err := p.Parse(file, text)
		if err != nil {
			return &ExitError{Code: ExitViolations, Err: err}
		}
		if err := output.WriteTree(cmd.OutOrStdout(), tree, treeFormat); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}
	return nil
}
