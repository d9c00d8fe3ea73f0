package devinparser

import (
	"errors"
	"fmt"
)

// ParseError is a non-fatal problem found while parsing. Errors are collected
// into a ParseResult; they never abort a parse.
type ParseError struct {
	Message string
	Pos     Position
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("line %d, col %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error { return e.Cause }

// RuleError reports a rule-scoped problem: an unknown rule name (no AST is
// produced) or input that does not match the rule (an empty node is).
type RuleError struct {
	ParseError
	Rule string
}

// ErrInvalidRule is the cause of every RuleError for an unknown rule name.
var ErrInvalidRule = errors.New("invalid rule name")

func newInvalidRuleError(rule string) *RuleError {
	return &RuleError{
		ParseError: ParseError{
			Message: fmt.Sprintf("Invalid rule name: %s", rule),
			Cause:   ErrInvalidRule,
		},
		Rule: rule,
	}
}

// ParseResult is the outcome of a parse: an AST (nil on failure) and the
// errors collected along the way. Errors is never nil.
type ParseResult struct {
	AST    *Node
	Errors []error
}

// OK reports whether an AST was produced.
func (r *ParseResult) OK() bool { return r.AST != nil }

// Err joins the collected errors, or returns nil when there are none.
func (r *ParseResult) Err() error {
	return errors.Join(r.Errors...)
}
