package rules

import "github.com/flanksource/spec-unit/models"

const (
	NoShouldID           = "no-should"
	OneExpectationID     = "one-expectation"
	NoIteratorExamplesID = "no-iterator-examples"
	GrammaticalNameID    = "grammatical-name"
	ShortDescriptionID   = "short-description"
	MethodDescriptionID  = "method-description"
)

// NewBuiltinRegistry returns a registry with every built-in rule
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	r.Register(Definition{
		ID:          NoShouldID,
		Description: `Example descriptions use the third person present tense, not "should" as the leading verb`,
		Targets:     models.TargetExample,
		Severity:    models.SeverityError,
		Enabled:     true,
		New:         newNoShould,
	})
	r.Register(Definition{
		ID:          OneExpectationID,
		Description: "Each example makes a single top-level expectation (best-effort)",
		Targets:     models.TargetExample,
		Severity:    models.SeverityWarning,
		Enabled:     true,
		New:         newOneExpectation,
	})
	r.Register(Definition{
		ID:          NoIteratorExamplesID,
		Description: "Examples and groups are declared literally, not generated in a loop",
		Targets:     models.TargetAll,
		Severity:    models.SeverityError,
		Enabled:     true,
		New:         newNoIteratorExamples,
	})
	r.Register(Definition{
		ID:          GrammaticalNameID,
		Description: "Descriptions read as a sentence: contexts start with when/with/without (best-effort)",
		Targets:     models.TargetContext | models.TargetExample,
		Severity:    models.SeverityWarning,
		Enabled:     true,
		New:         newGrammaticalName,
	})
	r.Register(Definition{
		ID:          ShortDescriptionID,
		Description: "Example descriptions stay short; split long ones with a context",
		Targets:     models.TargetExample,
		Severity:    models.SeverityInfo,
		Enabled:     true,
		New:         newShortDescription,
	})
	r.Register(Definition{
		ID:          MethodDescriptionID,
		Description: `Groups describing a method use "#method" or ".method"`,
		Targets:     models.TargetSuite,
		Severity:    models.SeverityWarning,
		Enabled:     true,
		New:         newMethodDescription,
	})
	return r
}

// ruleBase carries the identity shared by all built-in rules
type ruleBase struct {
	id      string
	targets models.KindSet
}

func (r ruleBase) ID() string {
	return r.id
}

func (r ruleBase) Targets() models.KindSet {
	return r.targets
}
