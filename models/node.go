package models

import (
	"fmt"
	"strings"
)

// Kind is the closed set of description block kinds.
type Kind int

const (
	KindSuite Kind = iota
	KindContext
	KindExample
)

var kindNames = map[Kind]string{
	KindSuite:   "suite",
	KindContext: "context",
	KindExample: "example",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind converts a kind name (suite, context, example) to a Kind
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "suite", "describe", "group":
		return KindSuite, nil
	case "context":
		return KindContext, nil
	case "example", "it":
		return KindExample, nil
	}
	return 0, fmt.Errorf("unknown node kind %q, must be one of: suite, context, example", s)
}

// KindSet is a bitmask of kinds a rule applies to.
type KindSet uint8

const (
	TargetSuite   KindSet = 1 << KindSuite
	TargetContext KindSet = 1 << KindContext
	TargetExample KindSet = 1 << KindExample

	TargetGroups = TargetSuite | TargetContext
	TargetAll    = TargetSuite | TargetContext | TargetExample
)

// Has reports whether k is part of the set
func (s KindSet) Has(k Kind) bool {
	return s&(1<<k) != 0
}

func (s KindSet) String() string {
	var names []string
	for _, k := range []Kind{KindSuite, KindContext, KindExample} {
		if s.Has(k) {
			names = append(names, k.String())
		}
	}
	return strings.Join(names, ",")
}

// ParseKindSet builds a KindSet from kind names
func ParseKindSet(names []string) (KindSet, error) {
	var set KindSet
	for _, name := range names {
		k, err := ParseKind(name)
		if err != nil {
			return 0, err
		}
		set |= 1 << k
	}
	return set, nil
}

// Location points at a position in a source file. Lines and columns are 1-based.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// DescriptionNode is one describe/context/it block.
type DescriptionNode struct {
	Kind     Kind     `json:"kind"`
	Keyword  string   `json:"keyword"`
	Text     string   `json:"text"`
	Quoted   bool     `json:"quoted,omitempty"`
	FullName string   `json:"full_name"`
	Depth    int      `json:"depth"`
	Location Location `json:"location"`

	// Pending is set for examples declared without a block.
	Pending bool `json:"pending,omitempty"`

	// GeneratedBy is the loop that sits between this node and its parent.
	GeneratedBy *Location `json:"generated_by,omitempty"`

	// ExpectationLines holds the lines of assertion calls made directly in an example body.
	ExpectationLines []int `json:"expectation_lines,omitempty"`

	Parent   *DescriptionNode   `json:"-"`
	Children []*DescriptionNode `json:"children,omitempty"`
}

// NewNode creates a node and attaches it to parent (nil for roots),
// deriving depth and full name from the ancestor chain.
func NewNode(parent *DescriptionNode, kind Kind, keyword, text string, loc Location) *DescriptionNode {
	node := &DescriptionNode{
		Kind:     kind,
		Keyword:  keyword,
		Text:     text,
		Location: loc,
		Parent:   parent,
	}
	if parent != nil {
		node.Depth = parent.Depth + 1
		parent.Children = append(parent.Children, node)
	}
	node.FullName = JoinNames(parent.fullName(), text)
	return node
}

func (n *DescriptionNode) fullName() string {
	if n == nil {
		return ""
	}
	return n.FullName
}

// JoinNames concatenates description texts the way the test runner prints them
func JoinNames(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// Ancestors returns the chain from the root down to the parent of n
func (n *DescriptionNode) Ancestors() []*DescriptionNode {
	var chain []*DescriptionNode
	for p := n.Parent; p != nil; p = p.Parent {
		chain = append([]*DescriptionNode{p}, chain...)
	}
	return chain
}

// Expectations returns the number of top-level assertion calls in the body
func (n *DescriptionNode) Expectations() int {
	return len(n.ExpectationLines)
}

func (n *DescriptionNode) String() string {
	if n.Text == "" {
		return fmt.Sprintf("%s (%s)", n.Keyword, n.Location)
	}
	return fmt.Sprintf("%s %q (%s)", n.Keyword, n.Text, n.Location)
}

// AsMap exposes the node to expression languages
func (n *DescriptionNode) AsMap() map[string]any {
	m := map[string]any{
		"kind":         n.Kind.String(),
		"keyword":      n.Keyword,
		"text":         n.Text,
		"quoted":       n.Quoted,
		"full_name":    n.FullName,
		"depth":        n.Depth,
		"file":         n.Location.File,
		"line":         n.Location.Line,
		"pending":      n.Pending,
		"generated":    n.GeneratedBy != nil,
		"expectations": n.Expectations(),
		"children":     len(n.Children),
	}
	return m
}

// FileTree is the forest parsed from one file.
type FileTree struct {
	File  string             `json:"file"`
	Roots []*DescriptionNode `json:"roots"`
	Lines []string           `json:"-"`
}

// Walk visits every node in pre-order, children in source order.
// Returning false from fn skips the node's children.
func (t *FileTree) Walk(fn func(n *DescriptionNode) bool) {
	for _, root := range t.Roots {
		walk(root, fn)
	}
}

func walk(n *DescriptionNode, fn func(n *DescriptionNode) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		walk(child, fn)
	}
}

// Count returns the total number of nodes in the forest
func (t *FileTree) Count() int {
	count := 0
	t.Walk(func(*DescriptionNode) bool {
		count++
		return true
	})
	return count
}

// Siblings returns the ordered children of n's parent (or the roots), including n
func (t *FileTree) Siblings(n *DescriptionNode) []*DescriptionNode {
	if n.Parent != nil {
		return n.Parent.Children
	}
	return t.Roots
}

// Line returns the source line (1-based) or "" when out of range
func (t *FileTree) Line(line int) string {
	if line < 1 || line > len(t.Lines) {
		return ""
	}
	return t.Lines[line-1]
}

// Shape is the location independent structure of a node, used to compare trees.
type Shape struct {
	Kind     Kind
	Keyword  string
	Text     string
	FullName string
	Depth    int
	Pending  bool
	Children []Shape
}

// Shapes returns the location independent structure of the forest
func (t *FileTree) Shapes() []Shape {
	return shapes(t.Roots)
}

func shapes(nodes []*DescriptionNode) []Shape {
	var out []Shape
	for _, n := range nodes {
		out = append(out, Shape{
			Kind:     n.Kind,
			Keyword:  n.Keyword,
			Text:     n.Text,
			FullName: n.FullName,
			Depth:    n.Depth,
			Pending:  n.Pending,
			Children: shapes(n.Children),
		})
	}
	return out
}
