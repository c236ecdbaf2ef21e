package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/flanksource/clicky"
	"github.com/flanksource/spec-unit/rules"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type ruleInfo struct {
	ID          string `json:"id" pretty:"label=Rule"`
	Description string `json:"description" pretty:"label=Description"`
	Targets     string `json:"targets" pretty:"label=Targets"`
	Severity    string `json:"severity" pretty:"label=Severity"`
	Enabled     bool   `json:"enabled" pretty:"label=Enabled"`
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the built-in rules",
	Long: `List the built-in rules with the node kinds they check, their default
severity and whether they are enabled by default.

Custom rules are declared under "custom:" in spec-unit.yaml as CEL expressions
over node, ancestors and siblings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defs := rules.DefaultRegistry.List()
		out := cmd.OutOrStdout()

		if resolveFormat() == "json" {
			output, err := clicky.Format(lo.Map(defs, func(d rules.Definition, _ int) ruleInfo {
				return ruleInfo{d.ID, d.Description, d.Targets.String(), string(d.Severity), d.Enabled}
			}), clicky.FormatOptions{Format: "json"})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, output)
			return nil
		}

		rows := lo.Map(defs, func(d rules.Definition, _ int) []string {
			return []string{d.ID, d.Targets.String(), string(d.Severity), lo.Ternary(d.Enabled, "yes", "no"), d.Description}
		})
		t := table.New().
			Headers("RULE", "TARGETS", "SEVERITY", "ENABLED", "DESCRIPTION").
			Rows(rows...).
			BorderTop(false).
			BorderBottom(false).
			BorderLeft(false).
			BorderRight(false).
			BorderRow(false).
			BorderColumn(false).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 2, 0, 0)
				}
				return lipgloss.NewStyle().Padding(0, 2, 0, 0)
			})
		fmt.Fprintln(out, t.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
