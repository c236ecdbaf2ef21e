package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Severity of a violation
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ParseSeverity validates a severity name
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityError:
		return SeverityError, nil
	case SeverityWarning, "warn":
		return SeverityWarning, nil
	case SeverityInfo:
		return SeverityInfo, nil
	}
	return "", fmt.Errorf("invalid severity %q, must be one of: error, warning, info", s)
}

type Violation struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Column   int      `json:"column,omitempty"`
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`

	// The line of code the violation was found on.
	Code string `json:"code,omitempty"`

	Kind     Kind   `json:"kind"`
	FullName string `json:"full_name,omitempty"`

	// Node is the offending node; it is owned by the parsed tree.
	Node *DescriptionNode `json:"-"`
}

// String renders the violation the way compilers do: file:line: [rule-id] message
func (v Violation) String() string {
	return fmt.Sprintf("%s:%d: [%s] %s", RelativePath(v.File), v.Line, v.Rule, v.Message)
}

// Location returns where the violation is anchored
func (v Violation) Location() Location {
	return Location{File: v.File, Line: v.Line, Column: v.Column}
}

// MarshalJSON implements custom JSON marshaling for Violation to use relative file paths
func (v Violation) MarshalJSON() ([]byte, error) {
	type ViolationAlias Violation
	return json.Marshal(&struct {
		File string `json:"file"`
		*ViolationAlias
	}{
		File:           RelativePath(v.File),
		ViolationAlias: (*ViolationAlias)(&v),
	})
}

// RelativePath converts path to one relative to the current directory when it lives below it
func RelativePath(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(cwd, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// ParseFailure records a file that could not be parsed.
type ParseFailure struct {
	File    string `json:"file"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

func (p ParseFailure) String() string {
	return fmt.Sprintf("%s:%d: [parse-error] %s", RelativePath(p.File), p.Line, p.Message)
}

// RuleError records a rule that failed while evaluating a node; the rule is skipped for that node.
type RuleError struct {
	Rule    string `json:"rule"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (e RuleError) String() string {
	return fmt.Sprintf("%s:%d: [rule-error] rule %s failed: %s", RelativePath(e.File), e.Line, e.Rule, e.Message)
}

type AnalysisResult struct {
	Violations  []Violation    `json:"violations"`
	Unparseable []ParseFailure `json:"unparseable,omitempty"`
	RuleErrors  []RuleError    `json:"rule_errors,omitempty"`
	FileCount   int            `json:"file_count"`
	RuleCount   int            `json:"rule_count"`
}

// HasFailures is true when anything should fail the run
func (r *AnalysisResult) HasFailures() bool {
	return len(r.Violations) > 0 || len(r.Unparseable) > 0
}

// CountBySeverity returns the number of violations for each severity
func (r *AnalysisResult) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, v := range r.Violations {
		counts[v.Severity]++
	}
	return counts
}

// FilesWithViolations returns the number of distinct files that have at least one violation
func (r *AnalysisResult) FilesWithViolations() int {
	files := make(map[string]struct{})
	for _, v := range r.Violations {
		files[v.File] = struct{}{}
	}
	return len(files)
}

// FileReport is everything a run produced for one file
type FileReport struct {
	File        string        `json:"file"`
	Violations  []Violation   `json:"violations,omitempty"`
	RuleErrors  []RuleError   `json:"rule_errors,omitempty"`
	Unparseable *ParseFailure `json:"unparseable,omitempty"`
}
