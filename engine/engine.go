// Package engine evaluates rule sets against parsed description trees.
package engine

import (
	"fmt"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/spec-unit/models"
	"github.com/flanksource/spec-unit/rules"
)

// Engine applies a fixed rule set. It holds no per-run state and is safe for
// concurrent use.
type Engine struct {
	set *rules.Set
}

// Evaluation is the outcome of evaluating one tree
type Evaluation struct {
	Violations []models.Violation
	RuleErrors []models.RuleError
}

func New(set *rules.Set) *Engine {
	return &Engine{set: set}
}

// Rules returns the active rules
func (e *Engine) Rules() []rules.ActiveRule {
	return e.set.Rules()
}

// Evaluate visits every node once in pre-order and checks each applicable rule.
// A rule that fails or panics on a node is skipped for that node and recorded
// as a RuleError. Violations are sorted by file, line and rule id.
func (e *Engine) Evaluate(tree *models.FileTree) Evaluation {
	var result Evaluation
	if tree == nil {
		return result
	}

	tree.Walk(func(node *models.DescriptionNode) bool {
		scope := rules.Scope{
			Tree:      tree,
			Ancestors: node.Ancestors(),
			Siblings:  tree.Siblings(node),
		}
		for _, active := range e.set.Rules() {
			if !active.Targets().Has(node.Kind) {
				continue
			}
			res, err := safeCheck(active, node, scope)
			if err != nil {
				logger.Warnf("rule %s skipped for %s: %v", active.ID(), node.Location, err)
				result.RuleErrors = append(result.RuleErrors, models.RuleError{
					Rule:    active.ID(),
					File:    node.Location.File,
					Line:    node.Location.Line,
					Message: err.Error(),
				})
				continue
			}
			if !res.Failed {
				continue
			}
			result.Violations = append(result.Violations, e.violation(tree, node, active, res))
		}
		return true
	})

	SortViolations(result.Violations)
	return result
}

func (e *Engine) violation(tree *models.FileTree, node *models.DescriptionNode, active rules.ActiveRule, res rules.Result) models.Violation {
	builder := models.NewViolationBuilder(active.ID()).
		WithNode(node).
		WithSeverity(active.Severity).
		WithMessage(res.Message)
	line := node.Location.Line
	if res.Anchor != nil {
		builder = builder.WithLocation(*res.Anchor)
		line = res.Anchor.Line
	}
	return builder.WithCode(strings.TrimSpace(tree.Line(line))).Build()
}

// safeCheck turns a panicking rule into an error
func safeCheck(rule rules.Rule, node *models.DescriptionNode, scope rules.Scope) (res rules.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debugf("rule %s panicked: %v\n%s", rule.ID(), r, debug.Stack())
			res = rules.Result{}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return rule.Check(node, scope)
}

// SortViolations orders violations by file, line and rule id. Column and message
// break the remaining ties so the order never depends on evaluation order.
func SortViolations(violations []models.Violation) {
	sort.SliceStable(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.Message < b.Message
	})
}
