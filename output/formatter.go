package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/flanksource/spec-unit/models"
	"github.com/samber/lo"
)

// Formats lists the supported report formats
var Formats = []string{"text", "pretty", "compact", "json", "markdown", "html", "sqlite"}

// ExitCode is 0 for a clean run and 1 when there are violations or unparseable files
func ExitCode(result *models.AnalysisResult) int {
	if result != nil && result.HasFailures() {
		return 1
	}
	return 0
}

// ValidateFormat rejects unknown format names
func ValidateFormat(format string) error {
	if format == "" || lo.Contains(Formats, format) {
		return nil
	}
	return fmt.Errorf("unknown format %q, must be one of: %s", format, strings.Join(Formats, ", "))
}

// ErrOutputRequired is returned for formats that cannot be written to a stream
var ErrOutputRequired = errors.New("the sqlite format needs an output file, use -o report.db")

type OutputManager struct {
	format string
	output string
}

func NewOutputManager(format string) *OutputManager {
	if format == "" {
		format = "text"
	}
	return &OutputManager{
		format: format,
	}
}

// SetOutputFile writes the report to file instead of stdout
func (o *OutputManager) SetOutputFile(file string) {
	o.output = file
}

// Output writes the report to the configured file, or stdout
func (o *OutputManager) Output(result *models.AnalysisResult) error {
	if o.format == "sqlite" {
		if o.output == "" {
			return ErrOutputRequired
		}
		return WriteSQLite(o.output, result)
	}
	if o.output == "" {
		return o.Write(os.Stdout, result)
	}
	file, err := os.Create(o.output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", o.output, err)
	}
	defer file.Close()
	return o.Write(file, result)
}

// Write renders the report in the configured format. The result is not modified.
func (o *OutputManager) Write(w io.Writer, result *models.AnalysisResult) error {
	switch o.format {
	case "json":
		return writeJSON(w, result)
	case "pretty":
		return writeTree(w, result)
	case "compact":
		return writeCompact(w, result)
	case "markdown":
		_, err := io.WriteString(w, Markdown(result))
		return err
	case "html":
		return writeHTML(w, result)
	case "text":
		return writeText(w, result)
	case "sqlite":
		return ErrOutputRequired
	}
	return ValidateFormat(o.format)
}

// writeText prints one line per problem, the way compilers do
func writeText(w io.Writer, result *models.AnalysisResult) error {
	for _, f := range result.Unparseable {
		if _, err := fmt.Fprintln(w, f.String()); err != nil {
			return err
		}
	}
	for _, v := range result.Violations {
		if _, err := fmt.Fprintln(w, v.String()); err != nil {
			return err
		}
	}
	for _, e := range result.RuleErrors {
		if _, err := fmt.Fprintln(w, e.String()); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, result *models.AnalysisResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	counts := result.CountBySeverity()
	output := map[string]interface{}{
		"summary": map[string]int{
			"files_analyzed": result.FileCount,
			"rules_applied":  result.RuleCount,
			"violations":     len(result.Violations),
			"errors":         counts[models.SeverityError],
			"warnings":       counts[models.SeverityWarning],
			"info":           counts[models.SeverityInfo],
			"unparseable":    len(result.Unparseable),
		},
		"violations":  lo.Ternary(result.Violations == nil, []models.Violation{}, result.Violations),
		"unparseable": result.Unparseable,
		"rule_errors": result.RuleErrors,
	}

	return encoder.Encode(output)
}

var (
	fileStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	violationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	ruleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	lineStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

func severityStyle(s models.Severity) lipgloss.Style {
	switch s {
	case models.SeverityWarning:
		return warningStyle
	case models.SeverityInfo:
		return infoStyle
	}
	return violationStyle
}

// groupByFile returns the files in sorted order with their violations
func groupByFile(result *models.AnalysisResult) ([]string, map[string][]models.Violation) {
	fileMap := lo.GroupBy(result.Violations, func(v models.Violation) string { return v.File })
	for _, f := range result.Unparseable {
		if _, ok := fileMap[f.File]; !ok {
			fileMap[f.File] = nil
		}
	}
	files := lo.Keys(fileMap)
	sort.Strings(files)
	return files, fileMap
}

// isEmpty is true when a run has nothing to report
func isEmpty(result *models.AnalysisResult) bool {
	return len(result.Violations) == 0 && len(result.Unparseable) == 0 && len(result.RuleErrors) == 0
}

// writeRuleErrors lists the rule evaluations that were skipped
func writeRuleErrors(w io.Writer, result *models.AnalysisResult, indent string) {
	if len(result.RuleErrors) == 0 {
		return
	}
	fmt.Fprintf(w, "%s%s\n", indent, warningStyle.Render(fmt.Sprintf("Rule errors (%d)", len(result.RuleErrors))))
	for i, e := range result.RuleErrors {
		branch := lo.Ternary(i == len(result.RuleErrors)-1, "└── ", "├── ")
		fmt.Fprintf(w, "%s%s%s %s %s\n", indent, branch,
			fileStyle.Render(fmt.Sprintf("%s:%d", models.RelativePath(e.File), e.Line)),
			ruleStyle.Render(e.Rule),
			warningStyle.Render(e.Message))
	}
}

func unparseable(result *models.AnalysisResult) map[string]models.ParseFailure {
	return lo.SliceToMap(result.Unparseable, func(f models.ParseFailure) (string, models.ParseFailure) {
		return f.File, f
	})
}

func writeCompact(w io.Writer, result *models.AnalysisResult) error {
	if isEmpty(result) {
		return nil
	}
	files, fileMap := groupByFile(result)
	failures := unparseable(result)

	fmt.Fprintln(w, "Spec style violations (compact)")
	fmt.Fprintln(w, strings.Repeat("─", 80))

	for _, file := range files {
		if f, ok := failures[file]; ok {
			fmt.Fprintf(w, "  %s %s\n", fileStyle.Render(models.RelativePath(file)), violationStyle.Render("unparseable: "+f.Message))
			continue
		}
		violations := fileMap[file]

		// Count violations by rule
		ruleCount := lo.CountValuesBy(violations, func(v models.Violation) string { return v.Rule })
		var ruleSummary []string
		for rule, count := range ruleCount {
			if count > 1 {
				ruleSummary = append(ruleSummary, fmt.Sprintf("%s×%d", rule, count))
			} else {
				ruleSummary = append(ruleSummary, rule)
			}
		}
		sort.Strings(ruleSummary)

		fmt.Fprintf(w, "  %s %s %s\n",
			fileStyle.Render(models.RelativePath(file)),
			violationStyle.Render(fmt.Sprintf("(%d)", len(violations))),
			ruleStyle.Render(strings.Join(ruleSummary, ", ")))
	}
	writeRuleErrors(w, result, "  ")

	fmt.Fprintln(w, strings.Repeat("─", 80))
	return nil
}

func writeTree(w io.Writer, result *models.AnalysisResult) error {
	if isEmpty(result) {
		return nil
	}
	files, fileMap := groupByFile(result)
	failures := unparseable(result)

	fmt.Fprintln(w, "Spec style violations")
	fmt.Fprintln(w, strings.Repeat("─", 80))

	for i, file := range files {
		violations := fileMap[file]
		isLast := i == len(files)-1
		branch, prefix := "├── ", "│   "
		if isLast {
			branch, prefix = "└── ", "    "
		}

		if f, ok := failures[file]; ok {
			fmt.Fprintf(w, "%s%s %s\n", branch, fileStyle.Render(models.RelativePath(file)),
				violationStyle.Render(fmt.Sprintf("unparseable (line %d): %s", f.Line, f.Message)))
			if !isLast {
				fmt.Fprintln(w, "│")
			}
			continue
		}

		fmt.Fprintf(w, "%s%s (%d violations)\n", branch, fileStyle.Render(models.RelativePath(file)), len(violations))

		ruleMap := lo.GroupBy(violations, func(v models.Violation) string { return v.Rule })
		rules := lo.Keys(ruleMap)
		sort.Strings(rules)

		for j, rule := range rules {
			ruleViolations := ruleMap[rule]
			isLastRule := j == len(rules)-1
			ruleBranch, rulePrefix := "├── ", prefix+"│   "
			if isLastRule {
				ruleBranch, rulePrefix = "└── ", prefix+"    "
			}
			fmt.Fprintf(w, "%s%s%s\n", prefix, ruleBranch, ruleStyle.Render(rule))

			for k, v := range ruleViolations {
				leaf := "├── "
				if k == len(ruleViolations)-1 {
					leaf = "└── "
				}
				fmt.Fprintf(w, "%s%s%s %s\n", rulePrefix, leaf,
					severityStyle(v.Severity).Render(v.Message),
					lineStyle.Render(fmt.Sprintf("(line %d)", v.Line)))
			}
		}

		if !isLast {
			fmt.Fprintln(w, "│")
		}
	}
	if len(result.RuleErrors) > 0 {
		if len(files) > 0 {
			fmt.Fprintln(w)
		}
		writeRuleErrors(w, result, "")
	}

	fmt.Fprintln(w, strings.Repeat("─", 80))
	return nil
}
