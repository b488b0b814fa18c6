package parser

import (
	"fmt"
	"strings"
)

// ParseError reports a lex or grammar failure with its source position.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// FormatParseErrors renders errors with a source excerpt and caret.
func FormatParseErrors(errs []ParseError, source string) string {
	if len(errs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		parts = append(parts, formatParseError(err, source))
	}
	return strings.Join(parts, "\n")
}

func formatParseError(err ParseError, source string) string {
	if err.Line == 0 || source == "" {
		return "parse error: " + err.Message
	}
	lines := strings.Split(source, "\n")
	line := err.Line
	col := err.Column
	if line < 1 || line > len(lines) {
		return "parse error: " + err.Message
	}
	lineText := strings.TrimRight(lines[line-1], "\r")
	if col < 1 {
		col = 1
	}
	if col > len(lineText)+1 {
		col = len(lineText) + 1
	}
	caret := strings.Repeat(" ", col-1) + "^"
	return fmt.Sprintf(
		"parse error: %s\n  at %d:%d\n  %d | %s\n    | %s",
		err.Message,
		line,
		err.Column,
		line,
		lineText,
		caret,
	)
}
