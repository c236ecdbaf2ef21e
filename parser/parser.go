package parser

import (
	"fmt"
	"strings"

	"github.com/flanksource/spec-unit/models"
)

// DefaultKeywords maps the RSpec DSL methods to the kind of node they declare
var DefaultKeywords = map[string]models.Kind{
	"describe":            models.KindSuite,
	"xdescribe":           models.KindSuite,
	"fdescribe":           models.KindSuite,
	"feature":             models.KindSuite,
	"shared_examples":     models.KindSuite,
	"shared_examples_for": models.KindSuite,
	"shared_context":      models.KindSuite,
	"context":             models.KindContext,
	"xcontext":            models.KindContext,
	"fcontext":            models.KindContext,
	"it":                  models.KindExample,
	"xit":                 models.KindExample,
	"fit":                 models.KindExample,
	"specify":             models.KindExample,
	"xspecify":            models.KindExample,
	"example":             models.KindExample,
	"scenario":            models.KindExample,
	"its":                 models.KindExample,
}

// iteratorMethods take a block that runs once per element
var iteratorMethods = map[string]bool{
	"each": true, "each_with_index": true, "each_with_object": true, "each_pair": true,
	"each_key": true, "each_value": true, "each_slice": true, "each_cons": true,
	"each_entry": true, "each_char": true, "each_line": true, "reverse_each": true,
	"times": true, "upto": true, "downto": true, "step": true, "loop": true,
	"map": true, "flat_map": true, "collect": true, "product": true, "combination": true,
	"permutation": true, "cycle": true,
}

var expectationMethods = map[string]bool{
	"expect":                 true,
	"expect_any_instance_of": true,
	"is_expected":            true,
	"are_expected":           true,
	"should":                 true,
	"should_not":             true,
}

// rspecBlockMethods are RSpec.<method> calls that take a block without declaring a node
var rspecBlockMethods = map[string]bool{
	"configure":       true,
	"configuration":   true,
	"world":           true,
	"current_example": true,
}

// keywords after which `if`/`unless`/`while`/`until` start an expression instead of a modifier
var conditionKeywords = map[string]bool{
	"and": true, "or": true, "not": true, "then": true, "else": true, "when": true, "in": true,
}

// Options configures the parser. It is passed explicitly, never read from globals.
type Options struct {
	// Aliases adds DSL method names, e.g. "scenario_outline" -> example
	Aliases map[string]models.Kind
}

// Parser builds description forests from spec files
type Parser struct {
	keywords map[string]models.Kind
}

// New creates a parser with the default RSpec keywords plus opts.Aliases
func New(opts Options) *Parser {
	keywords := make(map[string]models.Kind, len(DefaultKeywords)+len(opts.Aliases))
	for name, kind := range DefaultKeywords {
		keywords[name] = kind
	}
	for name, kind := range opts.Aliases {
		keywords[name] = kind
	}
	return &Parser{keywords: keywords}
}

// Parse parses text with the default keywords
func Parse(file, text string) (*models.FileTree, error) {
	return New(Options{}).Parse(file, text)
}

// Parse turns the source of a spec file into a forest of description nodes.
// It fails with a *ParseError when blocks are unbalanced or a block's kind cannot
// be determined.
func (p *Parser) Parse(file, text string) (*models.FileTree, error) {
	s := &state{
		file:      file,
		text:      text,
		keywords:  p.keywords,
		lexer:     NewLexer(text),
		stmtStart: true,
	}
	if err := s.run(); err != nil {
		return nil, err
	}
	return &models.FileTree{File: file, Roots: s.roots, Lines: splitLines(text)}, nil
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}

type frameKind int

const (
	frameDo frameKind = iota
	frameBrace
	frameParen
	frameBracket
	frameKeyword
)

type callSite struct {
	name string
	loc  models.Location
}

type frame struct {
	kind   frameKind
	open   string
	line   int
	column int

	node *models.DescriptionNode
	loop *models.Location

	// awaitingDo is set on while/until/for until their condition ends
	awaitingDo bool
	// defHeader is set on def until its signature ends
	defHeader bool

	saved callSite
}

// dslCall is a describe/context/it call whose block has not been seen yet
type dslCall struct {
	kind    models.Kind
	known   bool
	keyword string
	loc     models.Location
	depth   int

	started   bool
	parens    bool
	argDone   bool
	argStart  int
	argEnd    int
	argTokens int
	argString *Token
}

func (c *dslCall) description(src string) (string, bool) {
	if c.argTokens == 0 {
		return "", false
	}
	if c.argTokens == 1 && c.argString != nil {
		return c.argString.Value, true
	}
	return strings.TrimSpace(src[c.argStart:c.argEnd]), false
}

type state struct {
	file     string
	text     string
	keywords map[string]models.Kind
	lexer    *Lexer

	stack []*frame
	roots []*models.DescriptionNode

	prev           Token
	stmtStart      bool
	pendingNewline bool
	expectParams   bool
	inParams       bool

	call     *dslCall
	lastCall callSite
	rspec    *Token
}

func (s *state) errorAt(line, column int, format string, args ...any) error {
	return &ParseError{File: s.file, Line: line, Column: column, Message: fmt.Sprintf(format, args...)}
}

func (s *state) loc(tok Token) models.Location {
	return models.Location{File: s.file, Line: tok.Line, Column: tok.Column}
}

func (s *state) top() *frame {
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

func (s *state) push(f *frame) {
	s.stack = append(s.stack, f)
}

func (s *state) pop() *frame {
	f := s.top()
	s.stack = s.stack[:len(s.stack)-1]
	return f
}

func (s *state) run() error {
	for {
		tok := s.lexer.NextToken()
		switch tok.Type {
		case TokenError:
			return s.errorAt(tok.Line, tok.Column, "%s", tok.Value)
		case TokenEOF:
			s.endStatement()
			if f := s.top(); f != nil {
				return s.errorAt(f.line, f.column, "unclosed %q opened at line %d", f.open, f.line)
			}
			return nil
		case TokenNewline:
			if !s.continues() {
				s.pendingNewline = true
			}
			continue
		}

		if s.pendingNewline {
			s.pendingNewline = false
			if !tok.Is(".") && !tok.Is("&.") {
				s.endStatement()
			}
		}
		if err := s.handle(tok); err != nil {
			return err
		}
		s.prev = tok
	}
}

// continues reports whether a newline after the previous token continues the statement
func (s *state) continues() bool {
	if top := s.top(); top != nil && (top.kind == frameParen || top.kind == frameBracket) {
		return true
	}
	switch s.prev.Type {
	case TokenPunct:
		switch s.prev.Value {
		case ",", ".", "&.", "::", "&&", "||", "=", "+", "-", "*", "/", "%", "**",
			"==", "!=", "=~", "!~", "<", ">", "<=", ">=", "<=>", "=>", "->", "<<", ">>",
			"?", ":", "!", "+=", "-=", "*=", "/=", "||=", "&&=", "\\":
			return true
		}
	case TokenIdent:
		return s.prev.Value == "and" || s.prev.Value == "or" || s.prev.Value == "not"
	}
	return false
}

// endStatement closes the current statement: a DSL call still waiting for its
// block is declared without one.
func (s *state) endStatement() {
	if c := s.call; c != nil {
		if len(s.stack) == c.depth {
			s.declare(c, false)
		}
		if len(s.stack) <= c.depth {
			s.call = nil
		}
	}
	if top := s.top(); top != nil {
		top.awaitingDo = false
		top.defHeader = false
	}
	s.stmtStart = true
	s.lastCall = callSite{}
	s.rspec = nil
}

// operandExpected reports whether the previous token leaves room for an expression,
// which tells an `x = if ...` apart from a trailing `... if x` modifier.
func (s *state) operandExpected() bool {
	if s.stmtStart {
		return true
	}
	switch s.prev.Type {
	case TokenPunct:
		return s.prev.Value != ")" && s.prev.Value != "]" && s.prev.Value != "}"
	case TokenLabel:
		return true
	case TokenIdent:
		return conditionKeywords[s.prev.Value]
	}
	return false
}

func (s *state) handle(tok Token) error {
	if s.expectParams {
		s.expectParams = false
		if tok.Is("|") {
			s.inParams = true
			return nil
		}
		if tok.Is("||") {
			return nil
		}
	}
	if s.inParams {
		if tok.Is("|") {
			s.inParams = false
			s.stmtStart = true
		}
		return nil
	}

	switch tok.Type {
	case TokenIdent:
		return s.ident(tok)
	case TokenPunct:
		return s.punct(tok)
	}
	s.argument(tok)
	s.stmtStart = false
	return nil
}

func (s *state) ident(tok Token) error {
	rspec := s.rspec
	s.rspec = nil

	if s.prev.Type == TokenPunct && (s.prev.Value == "." || s.prev.Value == "&." || s.prev.Value == "::") {
		if rspec != nil && s.prev.Value == "." {
			s.startRSpecCall(*rspec, tok)
			return nil
		}
		s.countExpectation(tok, true)
		s.lastCall = callSite{name: tok.Value, loc: s.loc(tok)}
		s.argument(tok)
		s.stmtStart = false
		return nil
	}

	switch tok.Value {
	case "end":
		return s.closeEnd(tok)
	case "do":
		return s.openDo(tok)
	case "def", "class", "module", "begin", "case":
		s.endArgument()
		s.push(&frame{kind: frameKeyword, open: tok.Value, line: tok.Line, column: tok.Column, defHeader: tok.Value == "def"})
		s.stmtStart = tok.Value == "begin"
		return nil
	case "if", "unless", "while", "until":
		s.endArgument()
		if s.operandExpected() {
			f := &frame{kind: frameKeyword, open: tok.Value, line: tok.Line, column: tok.Column}
			if tok.Value == "while" || tok.Value == "until" {
				loc := s.loc(tok)
				f.loop = &loc
				f.awaitingDo = true
			}
			s.push(f)
		}
		s.stmtStart = false
		return nil
	case "for":
		loc := s.loc(tok)
		s.push(&frame{kind: frameKeyword, open: tok.Value, line: tok.Line, column: tok.Column, loop: &loc, awaitingDo: true})
		s.stmtStart = false
		return nil
	case "then", "else", "ensure":
		s.stmtStart = true
		return nil
	case "RSpec":
		if s.stmtStart && s.call == nil {
			t := tok
			s.rspec = &t
			s.stmtStart = false
			return nil
		}
	}

	if kind, ok := s.keywords[tok.Value]; ok && s.stmtStart && s.call == nil {
		s.startCall(kind, true, tok.Value, s.loc(tok))
		s.stmtStart = false
		return nil
	}

	s.countExpectation(tok, false)
	if s.stmtStart {
		s.lastCall = callSite{name: tok.Value, loc: s.loc(tok)}
	}
	s.argument(tok)
	s.stmtStart = false
	return nil
}

func (s *state) startRSpecCall(rspec, name Token) {
	keyword := "RSpec." + name.Value
	if kind, ok := s.keywords[name.Value]; ok {
		s.startCall(kind, true, keyword, s.loc(rspec))
	} else if rspecBlockMethods[name.Value] {
		s.lastCall = callSite{name: name.Value, loc: s.loc(name)}
	} else {
		s.startCall(0, false, keyword, s.loc(rspec))
	}
	s.stmtStart = false
}

func (s *state) startCall(kind models.Kind, known bool, keyword string, loc models.Location) {
	s.call = &dslCall{
		kind:    kind,
		known:   known,
		keyword: keyword,
		loc:     loc,
		depth:   len(s.stack),
	}
}

// argument records tok as part of the first argument of a pending DSL call
func (s *state) argument(tok Token) {
	c := s.call
	if c == nil || c.argDone {
		return
	}
	depth := len(s.stack) - c.depth
	if !c.started {
		c.started = true
		if tok.Is("(") && !tok.SpaceBefore {
			c.parens = true
			return
		}
		if tok.Type == TokenPunct && !startsArgument(tok) {
			// `it * 2`, `it.name`: the block parameter, not an example
			s.call = nil
			return
		}
	}
	argDepth := 0
	if c.parens {
		argDepth = 1
	}
	if depth <= argDepth && tok.Is(",") {
		c.argDone = true
		return
	}
	if c.argTokens == 0 {
		c.argStart = tok.Start
	}
	c.argEnd = tok.End
	c.argTokens++
	if c.argTokens == 1 && tok.Type == TokenString {
		t := tok
		c.argString = &t
	}
}

func startsArgument(tok Token) bool {
	switch tok.Value {
	case "(", "->", "::":
		return true
	case "[":
		return tok.SpaceBefore
	}
	return false
}

func (s *state) endArgument() {
	if s.call != nil && len(s.stack) == s.call.depth {
		s.call.argDone = true
	}
}

func (s *state) countExpectation(tok Token, methodPos bool) {
	top := s.top()
	if top == nil || top.node == nil || top.node.Kind != models.KindExample {
		return
	}
	name := tok.Value
	if methodPos {
		if name != "should" && name != "should_not" {
			return
		}
	} else if !expectationMethods[name] && !strings.HasPrefix(name, "assert") {
		return
	}
	top.node.ExpectationLines = append(top.node.ExpectationLines, tok.Line)
}

// enclosing returns the nearest node on the stack and the innermost loop between it and the top
func (s *state) enclosing() (*models.DescriptionNode, *models.Location) {
	var loop *models.Location
	for i := len(s.stack) - 1; i >= 0; i-- {
		f := s.stack[i]
		if f.node != nil {
			return f.node, loop
		}
		if f.loop != nil && loop == nil {
			loop = f.loop
		}
	}
	return nil, loop
}

func (s *state) declare(c *dslCall, hasBlock bool) *models.DescriptionNode {
	s.call = nil
	if !c.known || (!hasBlock && c.argTokens == 0) {
		return nil
	}
	text, quoted := c.description(s.text)
	parent, loop := s.enclosing()
	node := models.NewNode(parent, c.kind, c.keyword, text, c.loc)
	node.Quoted = quoted
	node.Pending = !hasBlock
	if loop != nil {
		l := *loop
		node.GeneratedBy = &l
	}
	if parent == nil {
		s.roots = append(s.roots, node)
	}
	return node
}

// openBlock pushes a do/brace frame, declaring the pending DSL call when the block belongs to it
func (s *state) openBlock(kind frameKind, tok Token) error {
	f := &frame{kind: kind, open: tok.Value, line: tok.Line, column: tok.Column}
	if c := s.call; c != nil && len(s.stack) == c.depth {
		if !c.known {
			return s.errorAt(c.loc.Line, c.loc.Column, "cannot determine the kind of block %s", c.keyword)
		}
		f.node = s.declare(c, true)
	} else if iteratorMethods[s.lastCall.name] {
		loc := s.lastCall.loc
		f.loop = &loc
	}
	s.push(f)
	s.expectParams = true
	s.stmtStart = true
	s.lastCall = callSite{}
	return nil
}

func (s *state) openDo(tok Token) error {
	if top := s.top(); top != nil && top.awaitingDo {
		top.awaitingDo = false
		s.stmtStart = true
		return nil
	}
	return s.openBlock(frameDo, tok)
}

// isBlockBrace tells a block `{` from a hash literal by the token before it
func (s *state) isBlockBrace() bool {
	switch s.prev.Type {
	case TokenIdent:
		return !valueKeywords[s.prev.Value] || (s.call != nil && s.prev.Value == s.call.keyword)
	case TokenString, TokenSymbol, TokenNumber, TokenRegex:
		return s.call != nil && len(s.stack) == s.call.depth
	case TokenPunct:
		return s.prev.Value == ")" || s.prev.Value == "]" || s.prev.Value == "->"
	}
	return false
}

func (s *state) punct(tok Token) error {
	switch tok.Value {
	case ";":
		s.endStatement()
		return nil
	case "{":
		if s.isBlockBrace() {
			return s.openBlock(frameBrace, tok)
		}
		s.argument(tok)
		s.push(&frame{kind: frameBrace, open: "{", line: tok.Line, column: tok.Column})
		s.stmtStart = false
		return nil
	case "(", "[":
		s.argument(tok)
		kind := frameParen
		if tok.Value == "[" {
			kind = frameBracket
		}
		s.push(&frame{kind: kind, open: tok.Value, line: tok.Line, column: tok.Column, saved: s.lastCall})
		s.stmtStart = false
		return nil
	case ")", "]", "}":
		return s.close(tok)
	case "=":
		if top := s.top(); top != nil && top.defHeader && tok.SpaceBefore {
			// endless method definition: def name(args) = expression
			s.pop()
		}
	}
	s.argument(tok)
	s.stmtStart = false
	return nil
}

var closers = map[string]frameKind{
	")": frameParen,
	"]": frameBracket,
	"}": frameBrace,
}

func (s *state) close(tok Token) error {
	top := s.top()
	if top == nil {
		return s.errorAt(tok.Line, tok.Column, "unexpected %q", tok.Value)
	}
	if top.kind != closers[tok.Value] {
		return s.errorAt(tok.Line, tok.Column, "unexpected %q: %q opened at line %d is still open", tok.Value, top.open, top.line)
	}
	if c := s.call; c != nil && !c.argDone {
		if c.parens && tok.Value == ")" && len(s.stack)-1 == c.depth {
			c.argDone = true
		} else {
			s.argument(tok)
		}
	}
	s.finishCallInFrame()
	s.pop()
	if top.kind == frameParen || top.kind == frameBracket {
		s.lastCall = top.saved
	}
	s.stmtStart = false
	return nil
}

func (s *state) closeEnd(tok Token) error {
	top := s.top()
	if top == nil {
		return s.errorAt(tok.Line, tok.Column, "unexpected 'end'")
	}
	if top.kind != frameDo && top.kind != frameKeyword {
		return s.errorAt(tok.Line, tok.Column, "unexpected 'end': %q opened at line %d is still open", top.open, top.line)
	}
	s.finishCallInFrame()
	s.pop()
	s.stmtStart = false
	return nil
}

// finishCallInFrame declares a block-less call that is still pending when its frame closes
func (s *state) finishCallInFrame() {
	if c := s.call; c != nil && len(s.stack) == c.depth {
		s.declare(c, false)
	}
}
