package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/flanksource/spec-unit/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown renders the report as a GitHub flavoured markdown document
func Markdown(result *models.AnalysisResult) string {
	var b strings.Builder
	counts := result.CountBySeverity()

	b.WriteString("# Spec Style Report\n\n")
	fmt.Fprintf(&b, "- **Files analyzed:** %d\n", result.FileCount)
	fmt.Fprintf(&b, "- **Rules applied:** %d\n", result.RuleCount)
	fmt.Fprintf(&b, "- **Violations:** %d (%d errors, %d warnings, %d info)\n",
		len(result.Violations), counts[models.SeverityError], counts[models.SeverityWarning], counts[models.SeverityInfo])
	if len(result.Unparseable) > 0 {
		fmt.Fprintf(&b, "- **Unparseable files:** %d\n", len(result.Unparseable))
	}
	if len(result.RuleErrors) > 0 {
		fmt.Fprintf(&b, "- **Rule errors:** %d\n", len(result.RuleErrors))
	}
	b.WriteString("\n")

	if isEmpty(result) {
		b.WriteString("No violations found.\n")
		return b.String()
	}

	if len(result.Violations) > 0 {
		b.WriteString("| Location | Rule | Severity | Example | Message |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, v := range result.Violations {
			fmt.Fprintf(&b, "| `%s:%d` | %s | %s | %s | %s |\n",
				models.RelativePath(v.File), v.Line, v.Rule, v.Severity, cell(v.FullName), cell(v.Message))
		}
		b.WriteString("\n")
	}

	if len(result.Unparseable) > 0 {
		b.WriteString("## Unparseable files\n\n")
		for _, f := range result.Unparseable {
			fmt.Fprintf(&b, "- `%s:%d`: %s\n", models.RelativePath(f.File), f.Line, f.Message)
		}
		b.WriteString("\n")
	}

	if len(result.RuleErrors) > 0 {
		b.WriteString("## Rule errors\n\n")
		b.WriteString("These rule evaluations failed and were skipped.\n\n")
		b.WriteString("| Location | Rule | Error |\n")
		b.WriteString("|---|---|---|\n")
		for _, e := range result.RuleErrors {
			fmt.Fprintf(&b, "| `%s:%d` | %s | %s |\n", models.RelativePath(e.File), e.Line, e.Rule, cell(e.Message))
		}
	}
	return b.String()
}

// cell escapes text for a markdown table cell
func cell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

func writeHTML(w io.Writer, result *models.AnalysisResult) error {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(result)), &body); err != nil {
		return fmt.Errorf("failed to render html: %w", err)
	}

	_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>Spec Style Report</title>
	<style>
		body { font-family: Arial, sans-serif; margin: 20px; }
		h1 { color: #333; }
		table { border-collapse: collapse; width: 100%%; }
		th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
		th { background-color: #f2f2f2; }
		tr:nth-child(even) { background-color: #f9f9f9; }
	</style>
</head>
<body>
%s</body>
</html>
`, body.String())
	return err
}
