package rules_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flanksource/spec-unit/models"
	"github.com/flanksource/spec-unit/rules"
)

var _ = Describe("Built-in rules", func() {
	It("registers every rule with a factory", func() {
		ids := []string{}
		for _, def := range rules.DefaultRegistry.List() {
			Expect(def.New).NotTo(BeNil())
			ids = append(ids, def.ID)
		}
		Expect(ids).To(Equal([]string{
			"grammatical-name", "method-description", "no-iterator-examples",
			"no-should", "one-expectation", "short-description",
		}))
	})

	It("rejects options a rule does not understand", func() {
		def, _ := rules.DefaultRegistry.Get(rules.NoShouldID)
		_, err := def.New(models.RuleOptions{"max": 2})
		Expect(err).To(MatchError(ContainSubstring("takes no options")))

		def, _ = rules.DefaultRegistry.Get(rules.ShortDescriptionID)
		_, err = def.New(models.RuleOptions{"max-lenght": 2})
		Expect(err).To(MatchError(ContainSubstring(`unknown option "max-lenght"`)))
		_, err = def.New(models.RuleOptions{"max-length": "long"})
		Expect(err).To(HaveOccurred())
	})

	Describe("no-should", func() {
		tree := func() *models.FileTree {
			return mustParse(`
describe Article do
  it "should return true" do
    expect(subject).to be_truthy
  end

  it "returns true" do
    expect(subject).to be_truthy
  end

  it "shouldn't publish drafts" do
    expect(subject).not_to be_published
  end

  it "is shouldered by the author" do
  end
end
`)
		}

		It("fails an example that starts with should and suggests the present tense", func() {
			result := check(builtin(rules.NoShouldID, nil), tree(), "should return true")
			Expect(result.Failed).To(BeTrue())
			Expect(result.Message).To(ContainSubstring(`"returns true"`))
		})

		It("passes the third person present tense", func() {
			Expect(check(builtin(rules.NoShouldID, nil), tree(), "returns true").Failed).To(BeFalse())
		})

		It("catches contractions", func() {
			result := check(builtin(rules.NoShouldID, nil), tree(), "shouldn't publish drafts")
			Expect(result.Failed).To(BeTrue())
			Expect(result.Message).To(ContainSubstring(`"does not publish drafts"`))
		})

		It("only matches should as a word", func() {
			Expect(check(builtin(rules.NoShouldID, nil), tree(), "is shouldered by the author").Failed).To(BeFalse())
		})

		DescribeTable("only matches should as the leading verb",
			func(text string, expected bool) {
				Expect(rules.HasLeadingShould(text)).To(Equal(expected))
			},
			Entry("leading", "should return true", true),
			Entry("after a subject", "the user should be an admin", true),
			Entry("negated", "should not save", true),
			Entry("at the end of a subordinate clause", "returns nil when it should", false),
			Entry("inside a subordinate clause", "retries if the request should be repeated", false),
			Entry("after a comma", "returns early, as it should", false),
			Entry("without a verb", "should", false),
			Entry("present tense", "returns true", false),
		)

		DescribeTable("conjugates verbs in the third person",
			func(verb, expected string) {
				Expect(rules.ThirdPerson(verb)).To(Equal(expected))
			},
			Entry("regular", "return", "returns"),
			Entry("be", "be", "is"),
			Entry("have", "have", "has"),
			Entry("sibilant", "push", "pushes"),
			Entry("x", "fix", "fixes"),
			Entry("consonant y", "apply", "applies"),
			Entry("vowel y", "destroy", "destroys"),
		)

		It("rewrites negations", func() {
			Expect(rules.PresentTense("should not save the record")).To(Equal("does not save the record"))
			Expect(rules.PresentTense("returns true")).To(BeEmpty())
		})
	})

	Describe("one-expectation", func() {
		src := `
describe Article do
  it "has a title" do
    expect(article.title).to eq("Hello")
  end

  it "has a title and a body" do
    expect(article.title).to eq("Hello")
    expect(article.body).to eq("World")
  end

  it "is valid" do
    is_expected.to be_valid
    article.should be_persisted
    expect(article).to be_published
  end
end
`
		It("passes a single expectation", func() {
			Expect(check(builtin(rules.OneExpectationID, nil), mustParse(src), "has a title").Failed).To(BeFalse())
		})

		It("reports the lines of each expectation", func() {
			result := check(builtin(rules.OneExpectationID, nil), mustParse(src), "has a title and a body")
			Expect(result.Failed).To(BeTrue())
			Expect(result.Message).To(ContainSubstring("2 expectations (lines 8, 9)"))
		})

		It("counts should and is_expected", func() {
			result := check(builtin(rules.OneExpectationID, nil), mustParse(src), "is valid")
			Expect(result.Message).To(ContainSubstring("3 expectations"))
		})

		It("honors the max option", func() {
			rule := builtin(rules.OneExpectationID, models.RuleOptions{"max": 3})
			Expect(check(rule, mustParse(src), "is valid").Failed).To(BeFalse())
		})
	})

	Describe("no-iterator-examples", func() {
		src := `
describe Article do
  %w[draft published archived].each do |state|
    it "is #{state}" do
      expect(article.state).to be_present
    end

    it "renders #{state}" do
    end

    it "exports #{state}" do
    end
  end

  it "has a title" do
  end
end
`
		It("reports a loop once, anchored at the loop", func() {
			tree := mustParse(src)
			rule := builtin(rules.NoIteratorExamplesID, nil)

			var failed []rules.Result
			tree.Walk(func(n *models.DescriptionNode) bool {
				result, err := rule.Check(n, scopeOf(tree, n))
				Expect(err).NotTo(HaveOccurred())
				if result.Failed {
					failed = append(failed, result)
				}
				return true
			})

			Expect(failed).To(HaveLen(1))
			Expect(failed[0].Message).To(ContainSubstring("3 example blocks"))
			Expect(failed[0].Anchor).NotTo(BeNil())
			Expect(failed[0].Anchor.Line).To(Equal(3))
		})

		It("passes literal examples", func() {
			Expect(check(builtin(rules.NoIteratorExamplesID, nil), mustParse(src), "has a title").Failed).To(BeFalse())
		})
	})

	Describe("grammatical-name", func() {
		src := `
describe Article do
  context "when published" do
    it "it is visible" do
    end
  end

  context "published" do
    it "is visible" do
    end
  end

  context "given a draft" do
  end
end
`
		It("accepts contexts starting with a configured prefix", func() {
			Expect(check(builtin(rules.GrammaticalNameID, nil), mustParse(src), "when published").Failed).To(BeFalse())
		})

		It("flags contexts without a prefix", func() {
			result := check(builtin(rules.GrammaticalNameID, nil), mustParse(src), "published")
			Expect(result.Failed).To(BeTrue())
			Expect(result.Message).To(ContainSubstring("when, with, without"))
		})

		It("flags examples that repeat it", func() {
			Expect(check(builtin(rules.GrammaticalNameID, nil), mustParse(src), "it is visible").Failed).To(BeTrue())
			Expect(check(builtin(rules.GrammaticalNameID, nil), mustParse(src), "is visible").Failed).To(BeFalse())
		})

		It("uses configured prefixes", func() {
			rule := builtin(rules.GrammaticalNameID, models.RuleOptions{"context-prefixes": []any{"when", "Given"}})
			Expect(check(rule, mustParse(src), "given a draft").Failed).To(BeFalse())
		})
	})

	Describe("short-description", func() {
		src := `
describe Article do
  it "is short" do
  end

  it "returns the title of the article in upper case when published" do
  end
end
`
		It("reports long descriptions", func() {
			rule := builtin(rules.ShortDescriptionID, nil)
			Expect(check(rule, mustParse(src), "is short").Failed).To(BeFalse())
			result := check(rule, mustParse(src), "returns the title of the article in upper case when published")
			Expect(result.Failed).To(BeTrue())
			Expect(result.Message).To(ContainSubstring("(max 40)"))
		})

		It("honors max-length", func() {
			rule := builtin(rules.ShortDescriptionID, models.RuleOptions{"max-length": 100})
			Expect(check(rule, mustParse(src), "returns the title of the article in upper case when published").Failed).To(BeFalse())
		})
	})

	Describe("method-description", func() {
		src := `
describe "publish" do
  describe "save" do
  end

  describe "#save" do
  end

  describe "valid?" do
  end

  describe "with a title" do
  end
end
`
		rule := func() rules.Rule { return builtin(rules.MethodDescriptionID, nil) }

		It("ignores top-level groups", func() {
			Expect(check(rule(), mustParse(src), "publish").Failed).To(BeFalse())
		})

		It("flags bare method names", func() {
			result := check(rule(), mustParse(src), "save")
			Expect(result.Failed).To(BeTrue())
			Expect(result.Message).To(ContainSubstring("'#save'"))
			Expect(check(rule(), mustParse(src), "valid?").Failed).To(BeTrue())
		})

		It("accepts prefixed methods and sentences", func() {
			Expect(check(rule(), mustParse(src), "#save").Failed).To(BeFalse())
			Expect(check(rule(), mustParse(src), "with a title").Failed).To(BeFalse())
		})
	})
})
