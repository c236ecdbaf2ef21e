package parser_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flanksource/spec-unit/models"
	"github.com/flanksource/spec-unit/parser"
)

const userSpec = `require 'spec_helper'

RSpec.describe User do
  let(:user) { build(:user) }

  describe '#name' do
    context 'when the name is blank' do
      it 'is invalid' do
        expect(user).not_to be_valid
      end
    end

    it 'returns the full name' do
      expect(user.name).to eq('Jane Doe')
      expect(user.first_name).to eq('Jane')
    end
  end

  it 'is pending'
end
`

func parse(src string) *models.FileTree {
	tree, err := parser.Parse("user_spec.rb", src)
	Expect(err).NotTo(HaveOccurred())
	return tree
}

func byText(tree *models.FileTree, text string) *models.DescriptionNode {
	var found *models.DescriptionNode
	tree.Walk(func(n *models.DescriptionNode) bool {
		if found == nil && n.Text == text {
			found = n
		}
		return found == nil
	})
	Expect(found).NotTo(BeNil(), "no node %q", text)
	return found
}

var _ = Describe("Parser", func() {
	Describe("building the description tree", func() {
		It("nests describe, context and it blocks", func() {
			tree := parse(userSpec)
			Expect(tree.Roots).To(HaveLen(1))
			Expect(tree.Count()).To(Equal(6))

			root := tree.Roots[0]
			Expect(root.Kind).To(Equal(models.KindSuite))
			Expect(root.Keyword).To(Equal("RSpec.describe"))
			Expect(root.Text).To(Equal("User"))
			Expect(root.Quoted).To(BeFalse())
			Expect(root.Location.Line).To(Equal(3))

			Expect(root.Children).To(HaveLen(2))
			Expect(root.Children[0].Text).To(Equal("#name"))
			Expect(root.Children[1].Text).To(Equal("is pending"))
		})

		It("derives depth and full names from the ancestors", func() {
			tree := parse(userSpec)
			example := byText(tree, "is invalid")
			Expect(example.Kind).To(Equal(models.KindExample))
			Expect(example.Depth).To(Equal(3))
			Expect(example.FullName).To(Equal("User #name when the name is blank is invalid"))
			Expect(example.Location.Line).To(Equal(8))
			Expect(example.Parent.Kind).To(Equal(models.KindContext))
		})

		It("declares examples without a block as pending", func() {
			tree := parse(userSpec)
			Expect(byText(tree, "is pending").Pending).To(BeTrue())
			Expect(byText(tree, "is invalid").Pending).To(BeFalse())
		})

		It("keeps multiple top level groups in source order", func() {
			tree := parse(`describe 'first' do
end

shared_examples 'a model' do
  it 'saves'
end

context 'last' do
end
`)
			Expect(tree.Roots).To(HaveLen(3))
			Expect(tree.Roots[0].Text).To(Equal("first"))
			Expect(tree.Roots[1].Kind).To(Equal(models.KindSuite))
			Expect(tree.Roots[2].Kind).To(Equal(models.KindContext))
		})

		It("accepts brace blocks and parenthesised descriptions", func() {
			tree := parse(`describe('Stack') {
  it('is empty') { expect(subject).to be_empty }
}
`)
			Expect(tree.Count()).To(Equal(2))
			Expect(byText(tree, "is empty").Expectations()).To(Equal(1))
		})

		It("recognises configured aliases", func() {
			p := parser.New(parser.Options{Aliases: map[string]models.Kind{"scenario_outline": models.KindExample}})
			tree, err := p.Parse("feature_spec.rb", `feature 'Sign in' do
  scenario_outline 'with valid credentials' do
  end
end
`)
			Expect(err).NotTo(HaveOccurred())
			Expect(byText(tree, "with valid credentials").Kind).To(Equal(models.KindExample))
		})
	})

	Describe("counting expectations", func() {
		It("records the line of every expectation in an example body", func() {
			tree := parse(userSpec)
			Expect(byText(tree, "returns the full name").ExpectationLines).To(Equal([]int{14, 15}))
			Expect(byText(tree, "is invalid").ExpectationLines).To(Equal([]int{9}))
		})

		It("counts one-liner and legacy expectation syntax", func() {
			tree := parse(`describe Integer do
  subject { 1 }
  it { is_expected.to eq(1) }
  it 'uses should' do
    subject.should eq(1)
    subject.should_not eq(2)
  end
end
`)
			Expect(tree.Roots[0].Children[0].Expectations()).To(Equal(1))
			Expect(byText(tree, "uses should").Expectations()).To(Equal(2))
		})
	})

	Describe("loops", func() {
		It("marks examples generated inside an iterator block", func() {
			tree := parse(`describe Calculator do
  [1, 2, 3].each do |n|
    it "doubles #{n}" do
      expect(n * 2).to eq(n + n)
    end
  end

  it 'adds' do
  end
end
`)
			looped := tree.Roots[0].Children[0]
			Expect(looped.Text).To(HavePrefix("doubles"))
			Expect(looped.GeneratedBy).NotTo(BeNil())
			Expect(looped.GeneratedBy.Line).To(Equal(2))
			Expect(byText(tree, "adds").GeneratedBy).To(BeNil())
		})

		It("recognises times and keyword loops", func() {
			tree := parse(`describe 'retry policy' do
  3.times do |i|
    it 'retries'
  end

  for attempt in [1, 2] do
    it 'attempts'
  end
end
`)
			Expect(byText(tree, "retries").GeneratedBy.Line).To(Equal(2))
			Expect(byText(tree, "attempts").GeneratedBy.Line).To(Equal(6))
		})

		It("does not treat the block parameter it as an example", func() {
			tree := parse(`describe 'numbers' do
  let(:doubled) { [1, 2].map { it * 2 } }
end
`)
			Expect(tree.Count()).To(Equal(1))
		})
	})

	Describe("ruby syntax that must not confuse block matching", func() {
		It("ignores keywords in strings, comments and heredocs", func() {
			tree := parse(`# describe 'commented out' do
describe 'Importer' do
  let(:csv) do
    <<~CSV
      name,end
      do something
    CSV
  end

  it 'does not end early do' do
    expect(import(csv)).to eq(1)
  end
end
`)
			Expect(tree.Count()).To(Equal(2))
			Expect(byText(tree, "does not end early do").Expectations()).To(Equal(1))
		})

		It("handles modifier conditionals inside blocks", func() {
			tree := parse(`describe 'ci' do
  before { skip if ENV['CI'] }

  it 'runs' do
    return unless enabled?
    expect(run).to be(true)
  end
end
`)
			Expect(tree.Count()).To(Equal(2))
		})
	})

	Describe("errors", func() {
		It("reports an unclosed block at the line it was opened", func() {
			_, err := parser.Parse("broken_spec.rb", `describe 'x' do
  it 'y' do
end
`)
			var parseErr *parser.ParseError
			Expect(errors.As(err, &parseErr)).To(BeTrue())
			Expect(parseErr.File).To(Equal("broken_spec.rb"))
			Expect(parseErr.Line).To(Equal(1))
			Expect(parseErr.Message).To(ContainSubstring(`unclosed "do"`))
		})

		It("reports an unexpected end", func() {
			_, err := parser.Parse("broken_spec.rb", "describe 'x' do\nend\nend\n")
			var parseErr *parser.ParseError
			Expect(errors.As(err, &parseErr)).To(BeTrue())
			Expect(parseErr.Line).To(Equal(3))
		})

		It("rejects blocks whose kind cannot be determined", func() {
			_, err := parser.Parse("odd_spec.rb", "RSpec.something 'x' do\nend\n")
			Expect(err).To(MatchError(ContainSubstring("cannot determine the kind of block RSpec.something")))
		})

		It("accepts a file without any groups", func() {
			tree := parse("require 'spec_helper'\n")
			Expect(tree.Roots).To(BeEmpty())
		})
	})

	Describe("Format", func() {
		It("renders a skeleton that parses back to the same shape", func() {
			tree := parse(userSpec)
			formatted := parser.Format(tree)
			Expect(formatted).To(ContainSubstring("    context 'when the name is blank' do\n"))

			again := parse(formatted)
			Expect(again.Shapes()).To(Equal(tree.Shapes()))
		})

		It("escapes quotes", func() {
			Expect(parser.Quote(`it's`)).To(Equal(`'it\'s'`))
		})
	})
})
