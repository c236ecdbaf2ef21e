package rules

import (
	"fmt"
	"strings"

	"github.com/flanksource/spec-unit/models"
	"github.com/samber/lo"
)

type oneExpectation struct {
	ruleBase
	limit int
}

func newOneExpectation(opts models.RuleOptions) (Rule, error) {
	if err := checkOptions(OneExpectationID, opts, "max"); err != nil {
		return nil, err
	}
	limit, err := opts.Int("max", 1)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", OneExpectationID, err)
	}
	if limit < 1 {
		return nil, fmt.Errorf("rule %s: max must be at least 1, got %d", OneExpectationID, limit)
	}
	return oneExpectation{ruleBase: ruleBase{id: OneExpectationID, targets: models.TargetExample}, limit: limit}, nil
}

// Check counts assertion calls made directly in the example body. Calls inside
// helper methods, nested blocks with their own examples, or aggregate_failures
// groups are not distinguished, so the count is approximate.
func (r oneExpectation) Check(node *models.DescriptionNode, _ Scope) (Result, error) {
	count := node.Expectations()
	if count <= r.limit {
		return Pass(), nil
	}
	lines := lo.Map(node.ExpectationLines, func(l int, _ int) string { return fmt.Sprint(l) })
	return Fail("example makes %d expectations (lines %s), expected at most %d; split it or use aggregate_failures",
		count, strings.Join(lines, ", "), r.limit), nil
}

type noIteratorExamples struct {
	ruleBase
}

func newNoIteratorExamples(opts models.RuleOptions) (Rule, error) {
	if err := checkOptions(NoIteratorExamplesID, opts); err != nil {
		return nil, err
	}
	return noIteratorExamples{ruleBase{id: NoIteratorExamplesID, targets: models.TargetAll}}, nil
}

// Check reports a loop once, on the first sibling it generates, anchored at the loop
func (r noIteratorExamples) Check(node *models.DescriptionNode, scope Scope) (Result, error) {
	if node.GeneratedBy == nil {
		return Pass(), nil
	}
	loop := *node.GeneratedBy
	generated := lo.Filter(scope.Siblings, func(s *models.DescriptionNode, _ int) bool {
		return s.GeneratedBy != nil && *s.GeneratedBy == loop
	})
	if len(generated) > 0 && generated[0] != node {
		return Pass(), nil
	}
	noun := "block"
	if len(generated) > 1 {
		noun = "blocks"
	}
	result := Fail("%d %s %s generated in a loop, declare each one literally",
		lo.Max([]int{len(generated), 1}), node.Kind, noun)
	result.Anchor = &loop
	return result, nil
}
