package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/flanksource/spec-unit/models"
	"github.com/flanksource/spec-unit/parser"
)

var (
	suiteStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	contextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	exampleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// WriteTree prints a parsed file as json, a ruby skeleton or a box-drawn tree
func WriteTree(w io.Writer, tree *models.FileTree, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(tree)
	case "ruby":
		_, err := io.WriteString(w, parser.Format(tree))
		return err
	case "", "pretty":
		fmt.Fprintf(w, "%s (%d nodes)\n", fileStyle.Render(models.RelativePath(tree.File)), tree.Count())
		for i, root := range tree.Roots {
			writeNode(w, root, "", i == len(tree.Roots)-1)
		}
		return nil
	}
	return fmt.Errorf("unknown tree format %q, must be one of: pretty, json, ruby", format)
}

func writeNode(w io.Writer, n *models.DescriptionNode, prefix string, last bool) {
	branch, childPrefix := "├── ", prefix+"│   "
	if last {
		branch, childPrefix = "└── ", prefix+"    "
	}

	style := exampleStyle
	switch n.Kind {
	case models.KindSuite:
		style = suiteStyle
	case models.KindContext:
		style = contextStyle
	}

	label := n.Keyword
	if n.Text != "" {
		label += " " + n.Text
	}
	notes := []string{fmt.Sprintf("line %d", n.Location.Line)}
	if n.Pending {
		notes = append(notes, "pending")
	}
	if n.GeneratedBy != nil {
		notes = append(notes, fmt.Sprintf("loop at line %d", n.GeneratedBy.Line))
	}
	if n.Kind == models.KindExample && n.Expectations() > 0 {
		notes = append(notes, fmt.Sprintf("%d expectations", n.Expectations()))
	}

	fmt.Fprintf(w, "%s%s%s %s\n", prefix, branch, style.Render(label), lineStyle.Render("("+strings.Join(notes, ", ")+")"))
	for i, child := range n.Children {
		writeNode(w, child, childPrefix, i == len(n.Children)-1)
	}
}
