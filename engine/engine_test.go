package engine_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flanksource/spec-unit/engine"
	"github.com/flanksource/spec-unit/models"
	"github.com/flanksource/spec-unit/parser"
	"github.com/flanksource/spec-unit/rules"
)

// stubRule lets tests control the outcome per node
type stubRule struct {
	id      string
	targets models.KindSet
	check   func(n *models.DescriptionNode) (rules.Result, error)
}

func (r stubRule) ID() string              { return r.id }
func (r stubRule) Targets() models.KindSet { return r.targets }
func (r stubRule) Check(n *models.DescriptionNode, _ rules.Scope) (rules.Result, error) {
	return r.check(n)
}

func defaultEngine() *engine.Engine {
	set, err := rules.NewSet(nil, nil)
	Expect(err).NotTo(HaveOccurred())
	return engine.New(set)
}

func parse(src string) *models.FileTree {
	tree, err := parser.Parse("spec/models/article_spec.rb", src)
	Expect(err).NotTo(HaveOccurred())
	return tree
}

var _ = Describe("Engine", func() {
	It("reports exactly one no-should violation at the example", func() {
		tree := parse(`describe Article do
  it "should return true" do
    expect(article).to be_valid
  end
end
`)
		eval := defaultEngine().Evaluate(tree)
		Expect(eval.RuleErrors).To(BeEmpty())
		Expect(eval.Violations).To(HaveLen(1))

		v := eval.Violations[0]
		Expect(v.Rule).To(Equal("no-should"))
		Expect(v.Line).To(Equal(2))
		Expect(v.Severity).To(Equal(models.SeverityError))
		Expect(v.Kind).To(Equal(models.KindExample))
		Expect(v.FullName).To(Equal("Article should return true"))
		Expect(v.Code).To(Equal(`it "should return true" do`))
		Expect(v.String()).To(HavePrefix("spec/models/article_spec.rb:2: [no-should] "))
	})

	It("reports nothing for the present tense", func() {
		tree := parse(`describe Article do
  it "returns true" do
    expect(article).to be_valid
  end
end
`)
		Expect(defaultEngine().Evaluate(tree).Violations).To(BeEmpty())
	})

	It("reports one no-iterator-examples violation per loop, anchored at the loop", func() {
		tree := parse(`describe Calculator do
  [1, 2, 3].each do |n|
    it "adds #{n}" do
      expect(subject.add(n, 0)).to eq(n)
    end

    it "subtracts #{n}" do
      expect(subject.sub(n, 0)).to eq(n)
    end

    it "multiplies #{n}" do
      expect(subject.mul(n, 1)).to eq(n)
    end
  end
end
`)
		eval := defaultEngine().Evaluate(tree)
		loops := []models.Violation{}
		for _, v := range eval.Violations {
			if v.Rule == rules.NoIteratorExamplesID {
				loops = append(loops, v)
			}
		}
		Expect(loops).To(HaveLen(1))
		Expect(loops[0].Line).To(Equal(2))
		Expect(loops[0].Code).To(Equal("[1, 2, 3].each do |n|"))
	})

	It("is deterministic", func() {
		src := `describe "save" do
  describe "publish" do
    context "published" do
      it "should be visible and have a very long description indeed" do
        expect(a).to eq(1)
        expect(b).to eq(2)
      end
    end
  end
end
`
		e := defaultEngine()
		first := e.Evaluate(parse(src))
		second := e.Evaluate(parse(src))
		Expect(first.Violations).NotTo(BeEmpty())
		Expect(fmt.Sprint(first.Violations)).To(Equal(fmt.Sprint(second.Violations)))
	})

	It("orders violations by file, line and rule id", func() {
		tree := parse(`describe Article do
  context "published" do
    it "should be visible to every visitor of the public site" do
      expect(a).to eq(1)
      expect(b).to eq(2)
    end
  end
end
`)
		eval := defaultEngine().Evaluate(tree)
		var keys []string
		for _, v := range eval.Violations {
			keys = append(keys, fmt.Sprintf("%d:%s", v.Line, v.Rule))
		}
		Expect(keys).To(Equal([]string{
			"2:grammatical-name",
			"3:no-should",
			"3:one-expectation",
			"3:short-description",
		}))
	})

	It("only applies rules to the kinds they target", func() {
		var seen []models.Kind
		set := rules.NewSetOf(rules.ActiveRule{
			Rule: stubRule{id: "groups", targets: models.TargetGroups, check: func(n *models.DescriptionNode) (rules.Result, error) {
				seen = append(seen, n.Kind)
				return rules.Pass(), nil
			}},
			Severity: models.SeverityInfo,
		})
		engine.New(set).Evaluate(parse(`describe A do
  context "when b" do
    it "works" do
    end
  end
end
`))
		Expect(seen).To(Equal([]models.Kind{models.KindSuite, models.KindContext}))
	})

	It("skips a rule that errors or panics on a node and keeps going", func() {
		set := rules.NewSetOf(
			rules.ActiveRule{
				Rule: stubRule{id: "explodes", targets: models.TargetExample, check: func(n *models.DescriptionNode) (rules.Result, error) {
					if n.Text == "panics" {
						panic("boom")
					}
					return rules.Result{}, errors.New("cannot check")
				}},
				Severity: models.SeverityError,
			},
			rules.ActiveRule{
				Rule: stubRule{id: "flags", targets: models.TargetExample, check: func(n *models.DescriptionNode) (rules.Result, error) {
					return rules.Fail("flagged %s", n.Text), nil
				}},
				Severity: models.SeverityWarning,
			},
		)
		eval := engine.New(set).Evaluate(parse(`describe A do
  it "panics" do
  end
  it "errors" do
  end
end
`))
		Expect(eval.RuleErrors).To(HaveLen(2))
		Expect(eval.RuleErrors[0].Message).To(ContainSubstring("panic: boom"))
		Expect(eval.RuleErrors[1].Message).To(Equal("cannot check"))
		Expect(eval.Violations).To(HaveLen(2))
		Expect(eval.Violations[0].Message).To(Equal("flagged panics"))
		Expect(eval.Violations[0].Severity).To(Equal(models.SeverityWarning))
	})

	It("does not mutate the tree", func() {
		tree := parse(`describe Article do
  it "should work" do
  end
end
`)
		before := tree.Shapes()
		defaultEngine().Evaluate(tree)
		Expect(tree.Shapes()).To(Equal(before))
	})
})
