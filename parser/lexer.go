package parser

import (
	"fmt"
	"strings"
)

// TokenType represents the type of token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError
	TokenNewline
	TokenIdent
	TokenLabel
	TokenString
	TokenSymbol
	TokenRegex
	TokenNumber
	TokenPunct
)

var tokenTypeNames = map[TokenType]string{
	TokenEOF:     "EOF",
	TokenError:   "ERROR",
	TokenNewline: "NEWLINE",
	TokenIdent:   "IDENT",
	TokenLabel:   "LABEL",
	TokenString:  "STRING",
	TokenSymbol:  "SYMBOL",
	TokenRegex:   "REGEX",
	TokenNumber:  "NUMBER",
	TokenPunct:   "PUNCT",
}

// Token represents a lexical token. Value holds the decoded content for
// strings, the name for identifiers and labels, and the raw text otherwise.
type Token struct {
	Type   TokenType
	Value  string
	Line   int
	Column int
	Start  int
	End    int

	// SpaceBefore is set when whitespace separates the token from the previous one
	SpaceBefore bool
}

// String returns string representation of token
func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR: %s", t.Value)
	}
	return fmt.Sprintf("%s(%s)", tokenTypeNames[t.Type], t.Value)
}

// Is reports whether the token is the punctuation or identifier v
func (t Token) Is(v string) bool {
	return (t.Type == TokenPunct || t.Type == TokenIdent) && t.Value == v
}

// operators are matched longest first
var operators = []string{
	"**=", "<=>", "===", "...", "||=", "&&=", "<<=", ">>=",
	"::", "&.", "&&", "||", "==", "!=", "=~", "!~", "=>", "->", "<=", ">=", "<<", ">>",
	"**", "+=", "-=", "*=", "/=", "%=", "|=", "&=", "^=", "..",
}

// keywords after which an expression (not an operator) is expected
var valueKeywords = map[string]bool{
	"if": true, "unless": true, "while": true, "until": true, "and": true, "or": true,
	"not": true, "return": true, "when": true, "in": true, "do": true, "then": true,
	"else": true, "elsif": true, "case": true, "yield": true, "puts": true, "p": true,
}

type heredoc struct {
	id     string
	indent bool
	line   int
	column int
}

// Lexer tokenizes the subset of Ruby needed to recover block structure
type Lexer struct {
	input  string
	pos    int
	line   int
	column int

	prev     Token
	heredocs []heredoc
}

// NewLexer creates a new lexer
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		line:   1,
		column: 1,
		prev:   Token{Type: TokenNewline},
	}
}

func (l *Lexer) peek(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *Lexer) advance() byte {
	c := l.input[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return c
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// valueExpected reports whether the previous token leaves the lexer in a
// position where an operand, not an operator, comes next.
func (l *Lexer) valueExpected() bool {
	switch l.prev.Type {
	case TokenNewline, TokenLabel:
		return true
	case TokenPunct:
		switch l.prev.Value {
		case ")", "]", "}":
			return false
		}
		return true
	case TokenIdent:
		return valueKeywords[l.prev.Value]
	}
	return false
}

// argumentExpected covers `method /re/` and `method <<~EOS` style calls
func (l *Lexer) argumentExpected(spaceBefore bool) bool {
	if l.valueExpected() {
		return true
	}
	if l.prev.Type == TokenIdent && spaceBefore {
		next := l.peek(1)
		return next != ' ' && next != '=' && next != '\t'
	}
	return false
}

func (l *Lexer) errorf(line, column int, format string, args ...any) Token {
	return Token{Type: TokenError, Value: fmt.Sprintf(format, args...), Line: line, Column: column, Start: l.pos, End: l.pos}
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	tok := l.next()
	if tok.Type != TokenError {
		l.prev = tok
	}
	return tok
}

func (l *Lexer) next() Token {
	spaceBefore := false
	for {
		if l.atEOF() {
			if len(l.heredocs) > 0 {
				h := l.heredocs[0]
				return l.errorf(h.line, h.column, "unterminated heredoc %s", h.id)
			}
			return Token{Type: TokenEOF, Line: l.line, Column: l.column, Start: l.pos, End: l.pos}
		}
		c := l.peek(0)
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\f':
			l.advance()
			spaceBefore = true
			continue
		case c == '\\' && l.peek(1) == '\n':
			l.advance()
			l.advance()
			spaceBefore = true
			continue
		case c == '#':
			for !l.atEOF() && l.peek(0) != '\n' {
				l.advance()
			}
			continue
		case c == '=' && l.column == 1 && strings.HasPrefix(l.input[l.pos:], "=begin"):
			if tok, ok := l.skipBlockComment(); !ok {
				return tok
			}
			continue
		case c == '\n':
			line, column, start := l.line, l.column, l.pos
			l.advance()
			if len(l.heredocs) > 0 {
				if tok, ok := l.readHeredocBodies(); !ok {
					return tok
				}
			}
			return Token{Type: TokenNewline, Value: "\n", Line: line, Column: column, Start: start, End: start + 1}
		}
		break
	}

	line, column, start := l.line, l.column, l.pos
	tok := l.scan(spaceBefore)
	tok.Line = line
	tok.Column = column
	tok.Start = start
	if tok.Type != TokenError {
		tok.End = l.pos
	}
	tok.SpaceBefore = spaceBefore
	return tok
}

func (l *Lexer) scan(spaceBefore bool) Token {
	c := l.peek(0)
	switch {
	case isIdentStart(c) || c == '@' || c == '$':
		return l.readIdentifier()
	case isDigit(c):
		return l.readNumber()
	case c == '\'':
		return l.readQuoted('\'', '\'', false)
	case c == '"' || c == '`':
		return l.readQuoted(c, c, true)
	case c == ':' && (l.peek(1) == '"' || l.peek(1) == '\''):
		l.advance()
		tok := l.readQuoted(l.peek(0), l.peek(0), l.peek(0) == '"')
		if tok.Type == TokenString {
			tok.Type = TokenSymbol
		}
		return tok
	case c == ':' && l.peek(1) != ':' && isIdentStart(l.peek(1)):
		l.advance()
		begin := l.pos
		for !l.atEOF() && isIdentChar(l.peek(0)) {
			l.advance()
		}
		if p := l.peek(0); p == '?' || p == '!' || (p == '=' && l.peek(1) != '>' && l.peek(1) != '=') {
			l.advance()
		}
		return Token{Type: TokenSymbol, Value: l.input[begin:l.pos]}
	case c == '%' && l.isPercentLiteral(spaceBefore):
		return l.readPercentLiteral()
	case c == '/' && l.argumentExpected(spaceBefore):
		return l.readRegex()
	case c == '<' && l.peek(1) == '<' && l.argumentExpected(spaceBefore):
		if tok, ok := l.readHeredocStart(); ok {
			return tok
		}
	}

	for _, op := range operators {
		if strings.HasPrefix(l.input[l.pos:], op) {
			for range op {
				l.advance()
			}
			return Token{Type: TokenPunct, Value: op}
		}
	}
	l.advance()
	return Token{Type: TokenPunct, Value: string(c)}
}

func (l *Lexer) skipBlockComment() (Token, bool) {
	line, column := l.line, l.column
	for !l.atEOF() {
		// consume the current line
		for !l.atEOF() && l.peek(0) != '\n' {
			l.advance()
		}
		if l.atEOF() {
			break
		}
		l.advance()
		if strings.HasPrefix(l.input[l.pos:], "=end") {
			for !l.atEOF() && l.peek(0) != '\n' {
				l.advance()
			}
			return Token{}, true
		}
	}
	return l.errorf(line, column, "unterminated =begin comment"), false
}

// readIdentifier reads identifiers, constants, instance/global variables and labels
func (l *Lexer) readIdentifier() Token {
	begin := l.pos
	for l.peek(0) == '@' {
		l.advance()
	}
	if l.peek(0) == '$' {
		l.advance()
		if !isIdentStart(l.peek(0)) && !l.atEOF() {
			l.advance()
			return Token{Type: TokenIdent, Value: l.input[begin:l.pos]}
		}
	}
	for !l.atEOF() && isIdentChar(l.peek(0)) {
		l.advance()
	}
	if p := l.peek(0); (p == '?' || p == '!') && l.peek(1) != '=' {
		l.advance()
	} else if (p == '?' || p == '!') && l.peek(1) == '=' && l.peek(2) == '=' {
		l.advance()
	}
	name := l.input[begin:l.pos]
	if l.peek(0) == ':' && l.peek(1) != ':' && l.prev.Value != "?" {
		l.advance()
		return Token{Type: TokenLabel, Value: name}
	}
	return Token{Type: TokenIdent, Value: name}
}

func (l *Lexer) readNumber() Token {
	begin := l.pos
	for !l.atEOF() {
		c := l.peek(0)
		if isIdentChar(c) || (c == '.' && isDigit(l.peek(1))) {
			l.advance()
			continue
		}
		break
	}
	return Token{Type: TokenNumber, Value: l.input[begin:l.pos]}
}

// readQuoted reads a string delimited by open/close. Interpolated strings keep
// #{...} sections verbatim in the value.
func (l *Lexer) readQuoted(open, close byte, interpolate bool) Token {
	line, column := l.line, l.column
	l.advance()
	var value strings.Builder
	depth := 0
	for {
		if l.atEOF() {
			return l.errorf(line, column, "unterminated string literal")
		}
		c := l.advance()
		switch {
		case c == '\\':
			if l.atEOF() {
				return l.errorf(line, column, "unterminated string literal")
			}
			next := l.advance()
			if !interpolate {
				if next == close || next == open || next == '\\' {
					value.WriteByte(next)
				} else {
					value.WriteByte('\\')
					value.WriteByte(next)
				}
				continue
			}
			switch next {
			case 'n':
				value.WriteByte('\n')
			case 't':
				value.WriteByte('\t')
			case 'r':
				value.WriteByte('\r')
			case 'e':
				value.WriteByte(0x1b)
			case 's':
				value.WriteByte(' ')
			case '0':
				value.WriteByte(0)
			default:
				value.WriteByte(next)
			}
		case interpolate && c == '#' && l.peek(0) == '{':
			value.WriteByte(c)
			value.WriteByte(l.advance())
			if err := l.copyInterpolation(&value); err != "" {
				return l.errorf(line, column, "%s", err)
			}
		case c == open && open != close:
			depth++
			value.WriteByte(c)
		case c == close:
			if depth == 0 {
				return Token{Type: TokenString, Value: value.String()}
			}
			depth--
			value.WriteByte(c)
		default:
			value.WriteByte(c)
		}
	}
}

// copyInterpolation copies the body of #{...} including the closing brace
func (l *Lexer) copyInterpolation(value *strings.Builder) string {
	depth := 1
	for !l.atEOF() {
		c := l.advance()
		value.WriteByte(c)
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return ""
			}
		case '"', '\'':
			for !l.atEOF() {
				d := l.advance()
				value.WriteByte(d)
				if d == '\\' && !l.atEOF() {
					value.WriteByte(l.advance())
					continue
				}
				if d == c {
					break
				}
			}
		}
	}
	return "unterminated string interpolation"
}

func closingDelimiter(c byte) byte {
	switch c {
	case '(':
		return ')'
	case '[':
		return ']'
	case '{':
		return '}'
	case '<':
		return '>'
	}
	return c
}

func isPercentDelimiter(c byte) bool {
	return c != 0 && !isIdentChar(c) && c != ' ' && c != '\n' && c != '\t' && c != '='
}

func (l *Lexer) isPercentLiteral(spaceBefore bool) bool {
	if !l.argumentExpected(spaceBefore) {
		return false
	}
	next := l.peek(1)
	if strings.IndexByte("qQwWiIrsx", next) >= 0 {
		return isPercentDelimiter(l.peek(2))
	}
	return isPercentDelimiter(next)
}

func (l *Lexer) readPercentLiteral() Token {
	l.advance()
	kind := byte('Q')
	if strings.IndexByte("qQwWiIrsx", l.peek(0)) >= 0 {
		kind = l.advance()
	}
	open := l.peek(0)
	interpolate := strings.IndexByte("QWIrx", kind) >= 0
	tok := l.readQuoted(open, closingDelimiter(open), interpolate)
	if tok.Type != TokenString {
		return tok
	}
	switch kind {
	case 'r':
		for !l.atEOF() && isIdentChar(l.peek(0)) {
			l.advance()
		}
		tok.Type = TokenRegex
	case 's':
		tok.Type = TokenSymbol
	}
	return tok
}

func (l *Lexer) readRegex() Token {
	line, column := l.line, l.column
	l.advance()
	begin := l.pos
	inClass := false
	for {
		if l.atEOF() {
			return l.errorf(line, column, "unterminated regular expression")
		}
		c := l.advance()
		switch {
		case c == '\\' && !l.atEOF():
			l.advance()
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			value := l.input[begin : l.pos-1]
			for !l.atEOF() && isIdentChar(l.peek(0)) {
				l.advance()
			}
			return Token{Type: TokenRegex, Value: value}
		}
	}
}

// readHeredocStart recognises <<ID, <<-ID, <<~ID and their quoted forms. The body
// is consumed when the current line ends.
func (l *Lexer) readHeredocStart() (Token, bool) {
	i := 2
	indent := false
	if c := l.peek(i); c == '~' || c == '-' {
		indent = true
		i++
	}
	quote := l.peek(i)
	if quote == '\'' || quote == '"' || quote == '`' {
		i++
	} else {
		quote = 0
	}
	idStart := i
	for isIdentChar(l.peek(i)) {
		i++
	}
	if i == idStart || isDigit(l.peek(idStart)) {
		return Token{}, false
	}
	id := l.input[l.pos+idStart : l.pos+i]
	if quote != 0 {
		if l.peek(i) != quote {
			return Token{}, false
		}
		i++
	} else if !indent && strings.ToUpper(id) != id {
		// `a <<b` is far more likely a shift than a heredoc
		return Token{}, false
	}
	l.heredocs = append(l.heredocs, heredoc{id: id, indent: indent, line: l.line, column: l.column})
	for n := 0; n < i; n++ {
		l.advance()
	}
	return Token{Type: TokenString, Value: ""}, true
}

func (l *Lexer) readHeredocBodies() (Token, bool) {
	for len(l.heredocs) > 0 {
		h := l.heredocs[0]
		for {
			if l.atEOF() {
				return l.errorf(h.line, h.column, "unterminated heredoc %s", h.id), false
			}
			begin := l.pos
			for !l.atEOF() && l.peek(0) != '\n' {
				l.advance()
			}
			text := strings.TrimRight(l.input[begin:l.pos], "\r")
			if !l.atEOF() {
				l.advance()
			}
			if h.indent {
				text = strings.TrimSpace(text)
			}
			if text == h.id {
				break
			}
		}
		l.heredocs = l.heredocs[1:]
	}
	return Token{}, true
}

// TokenizeAll returns all tokens from the input
func (l *Lexer) TokenizeAll() []Token {
	var tokens []Token
	for {
		token := l.NextToken()
		tokens = append(tokens, token)
		if token.Type == TokenEOF || token.Type == TokenError {
			break
		}
	}
	return tokens
}
