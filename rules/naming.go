package rules

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/flanksource/spec-unit/models"
	"github.com/samber/lo"
)

var defaultContextPrefixes = []string{"when", "with", "without"}

type grammaticalName struct {
	ruleBase
	prefixes []string
}

func newGrammaticalName(opts models.RuleOptions) (Rule, error) {
	if err := checkOptions(GrammaticalNameID, opts, "context-prefixes"); err != nil {
		return nil, err
	}
	raw, err := opts.Strings("context-prefixes", defaultContextPrefixes)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", GrammaticalNameID, err)
	}
	prefixes := lo.Compact(lo.Map(raw, func(p string, _ int) string {
		return strings.ToLower(strings.TrimSpace(p))
	}))
	if len(prefixes) == 0 {
		return nil, fmt.Errorf("rule %s: context-prefixes must not be empty", GrammaticalNameID)
	}
	return grammaticalName{
		ruleBase: ruleBase{id: GrammaticalNameID, targets: models.TargetContext | models.TargetExample},
		prefixes: prefixes,
	}, nil
}

// Check is a word-level heuristic, it does not parse English
func (r grammaticalName) Check(node *models.DescriptionNode, _ Scope) (Result, error) {
	if !node.Quoted || strings.TrimSpace(node.Text) == "" {
		return Pass(), nil
	}
	first := strings.ToLower(firstWord(node.Text))
	switch node.Kind {
	case models.KindContext:
		if !lo.Contains(r.prefixes, first) {
			return Fail("context description %q should start with one of: %s", node.Text, strings.Join(r.prefixes, ", ")), nil
		}
	case models.KindExample:
		if first == "it" {
			return Fail("example description repeats \"it\", the runner already prefixes it"), nil
		}
	}
	return Pass(), nil
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimRight(fields[0], ",:;")
}

type shortDescription struct {
	ruleBase
	maxLength int
}

func newShortDescription(opts models.RuleOptions) (Rule, error) {
	if err := checkOptions(ShortDescriptionID, opts, "max-length"); err != nil {
		return nil, err
	}
	maxLength, err := opts.Int("max-length", 40)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", ShortDescriptionID, err)
	}
	if maxLength < 1 {
		return nil, fmt.Errorf("rule %s: max-length must be at least 1, got %d", ShortDescriptionID, maxLength)
	}
	return shortDescription{ruleBase: ruleBase{id: ShortDescriptionID, targets: models.TargetExample}, maxLength: maxLength}, nil
}

func (r shortDescription) Check(node *models.DescriptionNode, _ Scope) (Result, error) {
	if !node.Quoted {
		return Pass(), nil
	}
	if n := utf8.RuneCountInString(node.Text); n > r.maxLength {
		return Fail("example description is %d characters long (max %d), move the setup into a context", n, r.maxLength), nil
	}
	return Pass(), nil
}

var bareMethod = regexp.MustCompile(`^[a-z_][a-z0-9_]*[?!=]?$`)

type methodDescription struct {
	ruleBase
}

func newMethodDescription(opts models.RuleOptions) (Rule, error) {
	if err := checkOptions(MethodDescriptionID, opts); err != nil {
		return nil, err
	}
	return methodDescription{ruleBase{id: MethodDescriptionID, targets: models.TargetSuite}}, nil
}

// Check flags nested groups such as describe 'save'. Top-level groups usually
// name a class and are left alone.
func (r methodDescription) Check(node *models.DescriptionNode, _ Scope) (Result, error) {
	if node.Kind != models.KindSuite || node.Depth == 0 || !node.Quoted {
		return Pass(), nil
	}
	if !bareMethod.MatchString(node.Text) {
		return Pass(), nil
	}
	return Fail("describe %q looks like a method name, use '#%s' for instance methods or '.%s' for class methods",
		node.Text, node.Text, node.Text), nil
}
