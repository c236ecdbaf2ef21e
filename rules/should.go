package rules

import (
	"regexp"
	"strings"

	"github.com/flanksource/spec-unit/models"
)

var (
	shouldVerb    = regexp.MustCompile(`(?i)\bshould(n't|\s+not)?\s+\w`)
	leadingShould = regexp.MustCompile(`(?i)^\s*should(n't|\s+not)?\s+(\S+)(.*)$`)
)

// subordinators start a clause that is not the one naming the behaviour
var subordinators = map[string]bool{
	"when": true, "if": true, "unless": true, "because": true, "while": true, "until": true,
	"after": true, "before": true, "since": true, "where": true, "whether": true, "though": true,
	"although": true, "once": true, "as": true, "that": true, "which": true,
}

// mainClause returns the text up to the first comma or subordinating word
func mainClause(text string) string {
	if i := strings.IndexAny(text, ",;"); i >= 0 {
		text = text[:i]
	}
	words := strings.Fields(text)
	for i, word := range words {
		if i > 0 && subordinators[strings.ToLower(word)] {
			return strings.Join(words[:i], " ")
		}
	}
	return strings.Join(words, " ")
}

// HasLeadingShould is true when "should" is the leading verb of the description:
// "should return true", "user should be an admin", but not "returns nil when it should"
func HasLeadingShould(text string) bool {
	return shouldVerb.MatchString(mainClause(text))
}

type noShould struct {
	ruleBase
}

func newNoShould(opts models.RuleOptions) (Rule, error) {
	if err := checkOptions(NoShouldID, opts); err != nil {
		return nil, err
	}
	return noShould{ruleBase{id: NoShouldID, targets: models.TargetExample}}, nil
}

func (r noShould) Check(node *models.DescriptionNode, _ Scope) (Result, error) {
	if node.Kind != models.KindExample || !HasLeadingShould(node.Text) {
		return Pass(), nil
	}
	if suggestion := PresentTense(node.Text); suggestion != "" {
		return Fail("do not use \"should\" in example descriptions, use %q", suggestion), nil
	}
	return Fail("do not use \"should\" in example descriptions, use the third person present tense"), nil
}

// PresentTense rewrites "should return true" as "returns true" and
// "should not save" as "does not save". It returns "" when the text does not
// start with should.
func PresentTense(text string) string {
	m := leadingShould.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	negated, verb, rest := m[1] != "", m[2], m[3]
	if negated {
		return "does not " + verb + rest
	}
	return ThirdPerson(verb) + rest
}

// ThirdPerson conjugates a bare English verb in the third person singular
func ThirdPerson(verb string) string {
	lower := strings.ToLower(verb)
	switch lower {
	case "be":
		return "is"
	case "have":
		return "has"
	case "do":
		return "does"
	case "go":
		return "goes"
	}
	switch {
	case strings.HasSuffix(lower, "s"), strings.HasSuffix(lower, "sh"), strings.HasSuffix(lower, "ch"),
		strings.HasSuffix(lower, "x"), strings.HasSuffix(lower, "z"), strings.HasSuffix(lower, "o"):
		return verb + "es"
	case len(lower) > 1 && strings.HasSuffix(lower, "y") && !strings.ContainsRune("aeiou", rune(lower[len(lower)-2])):
		return verb[:len(verb)-1] + "ies"
	}
	return verb + "s"
}
