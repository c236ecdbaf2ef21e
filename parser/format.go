package parser

import (
	"strings"

	"github.com/flanksource/spec-unit/models"
)

// Format renders the forest as a canonical spec skeleton: every block keeps its
// keyword and description, bodies are dropped. Parsing the output yields the
// same tree shape.
func Format(tree *models.FileTree) string {
	var b strings.Builder
	for i, root := range tree.Roots {
		if i > 0 {
			b.WriteString("\n")
		}
		formatNode(&b, root)
	}
	return b.String()
}

func formatNode(b *strings.Builder, n *models.DescriptionNode) {
	indent := strings.Repeat("  ", n.Depth)
	b.WriteString(indent)
	b.WriteString(n.Keyword)
	if n.Text != "" {
		b.WriteString(" ")
		if n.Quoted {
			b.WriteString(Quote(n.Text))
		} else {
			b.WriteString(n.Text)
		}
	}
	if n.Pending {
		b.WriteString("\n")
		return
	}
	b.WriteString(" do\n")
	for _, child := range n.Children {
		formatNode(b, child)
	}
	b.WriteString(indent)
	b.WriteString("end\n")
}

// Quote renders s as a single-quoted Ruby string literal
func Quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}
