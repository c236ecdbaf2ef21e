package rules_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flanksource/spec-unit/models"
	"github.com/flanksource/spec-unit/rules"
)

var _ = Describe("Rule set", func() {
	disabled := false

	It("enables every built-in rule by default, sorted by id", func() {
		set, err := rules.NewSet(nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(set.IDs()).To(Equal([]string{
			"grammatical-name", "method-description", "no-iterator-examples",
			"no-should", "one-expectation", "short-description",
		}))
	})

	It("applies toggles and severity overrides", func() {
		set, err := rules.NewSet(&models.Config{
			Rules: map[string]models.RuleConfig{
				"short-description": {Enabled: &disabled},
				"one-expectation":   {Severity: "error"},
			},
		}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(set.IDs()).NotTo(ContainElement("short-description"))
		for _, r := range set.Rules() {
			if r.ID() == "one-expectation" {
				Expect(r.Severity).To(Equal(models.SeverityError))
			}
			if r.ID() == "grammatical-name" {
				Expect(r.Severity).To(Equal(models.SeverityWarning))
			}
		}
	})

	It("fails on unknown rule ids", func() {
		_, err := rules.NewSet(&models.Config{
			Rules: map[string]models.RuleConfig{"no-shuold": {}},
		}, nil)
		Expect(err).To(MatchError(ContainSubstring(`unknown rule "no-shuold"`)))
	})

	It("collects every configuration error", func() {
		_, err := rules.NewSet(&models.Config{
			Rules: map[string]models.RuleConfig{
				"no-should":         {Severity: "fatal"},
				"short-description": {Options: models.RuleOptions{"max-length": 0}},
			},
			Custom: []models.CustomRule{
				{ID: "no-should", Expr: "true"},
				{ID: "broken", Expr: "node.text ==="},
				{ID: "not-bool", Expr: `node.text + "!"`},
			},
		}, nil)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(And(
			ContainSubstring(`invalid severity "fatal"`),
			ContainSubstring("max-length must be at least 1"),
			ContainSubstring("custom rule no-should: duplicate rule id"),
			ContainSubstring("custom rule broken: invalid expression"),
			ContainSubstring("custom rule not-bool: expression must return a bool"),
		))
	})

	It("adds custom rules with their severity", func() {
		set, err := rules.NewSet(&models.Config{
			Custom: []models.CustomRule{{
				ID:       "no-todo",
				Targets:  []string{"example"},
				Expr:     `node.text.contains("TODO")`,
				Severity: "info",
			}},
		}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(set.IDs()).To(ContainElement("no-todo"))
		Expect(set.Len()).To(Equal(7))
	})
})

var _ = Describe("CEL rules", func() {
	src := `
describe Article do
  context "when published" do
    it "TODO: renders the title" do
    end

    it "renders the body" do
    end
  end
end
`

	It("reports nodes matching the expression with a templated message", func() {
		rule, err := rules.NewCELRule(models.CustomRule{
			ID:      "no-todo",
			Targets: []string{"example"},
			Expr:    `node.text.startsWith("TODO")`,
			Message: `{{ .node.full_name }} is unfinished ({{ len .siblings }} siblings)`,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(rule.Targets()).To(Equal(models.TargetExample))

		tree := mustParse(src)
		result := check(rule, tree, "TODO: renders the title")
		Expect(result.Failed).To(BeTrue())
		Expect(result.Message).To(Equal("Article when published TODO: renders the title is unfinished (2 siblings)"))

		Expect(check(rule, tree, "renders the body").Failed).To(BeFalse())
	})

	It("sees the ancestor chain", func() {
		rule, err := rules.NewCELRule(models.CustomRule{
			ID:   "shallow",
			Expr: `size(ancestors) > 1 && ancestors.exists(a, a.kind == "context")`,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(rule.Targets()).To(Equal(models.TargetAll))

		tree := mustParse(src)
		Expect(check(rule, tree, "renders the body").Failed).To(BeTrue())
		Expect(check(rule, tree, "when published").Failed).To(BeFalse())
	})

	It("rejects bad targets", func() {
		_, err := rules.NewCELRule(models.CustomRule{ID: "x", Targets: []string{"scenario_outline"}, Expr: "true"})
		Expect(err).To(MatchError(ContainSubstring("unknown node kind")))
	})

	It("returns an error when a dynamic expression is not a bool", func() {
		rule, err := rules.NewCELRule(models.CustomRule{ID: "dyn", Expr: `node["text"]`})
		Expect(err).NotTo(HaveOccurred())
		n := find(mustParse(src), "renders the body")
		_, err = rule.Check(n, rules.Scope{})
		Expect(err).To(HaveOccurred())
	})
})
