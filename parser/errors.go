package parser

import "fmt"

// ParseError is returned when a file cannot be turned into a description tree:
// unbalanced blocks, unterminated literals or a block whose kind is unknown.
type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}
