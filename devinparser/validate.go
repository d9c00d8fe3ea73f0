package devinparser

import (
	"fmt"
	"strings"
)

// Severity represents the severity level of a lint diagnostic.
type Severity int

const (
	// Error means the document will not run as written.
	Error Severity = iota
	// Warning means the document runs but behavior may be unexpected.
	Warning
	// Info is an informational note.
	Info
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "ERROR"
	case Warning:
		return "WARNING"
	case Info:
		return "INFO"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// MarshalText encodes the severity by its name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Diagnostic is a single lint finding.
type Diagnostic struct {
	Rule     string   // rule identifier (e.g., "unclosed_expression")
	Severity Severity // ERROR, WARNING, or INFO
	Message  string   // human-readable description
	Pos      Position // location of the offending construct
	Fix      string   // suggested fix (optional)
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", d.Severity, d.Rule, d.Message)
	if d.Pos.Line > 0 {
		fmt.Fprintf(&b, " (line %d, col %d)", d.Pos.Line, d.Pos.Column)
	}
	if d.Fix != "" {
		fmt.Fprintf(&b, " -- fix: %s", d.Fix)
	}
	return b.String()
}

// LintRule is the interface for a single lint rule.
type LintRule interface {
	Name() string
	Apply(file *Node) []Diagnostic
}

// ValidationError carries the error-severity diagnostics of a document.
type ValidationError struct {
	Diagnostics []Diagnostic
}

func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		lines[i] = d.String()
	}
	return fmt.Sprintf("%d lint error(s):\n  %s", len(e.Diagnostics), strings.Join(lines, "\n  "))
}

// Validate runs all built-in rules (and any extra rules) against a parsed
// file. Returns all diagnostics regardless of severity.
func Validate(file *Node, extraRules ...LintRule) []Diagnostic {
	if file == nil {
		return nil
	}
	rules := builtInRules()
	rules = append(rules, extraRules...)

	var diagnostics []Diagnostic
	for _, rule := range rules {
		diagnostics = append(diagnostics, rule.Apply(file)...)
	}
	return diagnostics
}

// ValidateOrError is Validate plus a *ValidationError when any diagnostic
// has Error severity. All diagnostics are returned either way.
func ValidateOrError(file *Node, extraRules ...LintRule) ([]Diagnostic, error) {
	diagnostics := Validate(file, extraRules...)

	var failed []Diagnostic
	for _, d := range diagnostics {
		if d.Severity == Error {
			failed = append(failed, d)
		}
	}
	if len(failed) > 0 {
		return diagnostics, &ValidationError{Diagnostics: failed}
	}
	return diagnostics, nil
}

func builtInRules() []LintRule {
	return []LintRule{
		unclosedExpressionRule{},
		unclosedCodeFenceRule{},
		unclosedFrontMatterRule{},
		duplicateFrontMatterKeyRule{},
		branchOrderRule{},
		conditionSyntaxRule{},
		emptyWhenRule{},
		variableReassignedRule{},
	}
}

// Built-in rules

// unclosed_expression: every #if needs #endif and every #when needs #end.
type unclosedExpressionRule struct{}

func (unclosedExpressionRule) Name() string { return "unclosed_expression" }

func (unclosedExpressionRule) Apply(file *Node) []Diagnostic {
	var diags []Diagnostic
	for _, n := range Find(file, NodeExpressionBlock) {
		expr := n.Expression
		if expr.Closed {
			continue
		}
		closer := "#endif"
		if expr.Keyword == "when" {
			closer = "#end"
		}
		diags = append(diags, Diagnostic{
			Rule:     "unclosed_expression",
			Severity: Warning,
			Message:  fmt.Sprintf("#%s block is never closed", expr.Keyword),
			Pos:      n.Pos,
			Fix:      fmt.Sprintf("add %s after the block body", closer),
		})
	}
	return diags
}

// unclosed_code_fence: a ``` fence runs to the end of the document.
type unclosedCodeFenceRule struct{}

func (unclosedCodeFenceRule) Name() string { return "unclosed_code_fence" }

func (unclosedCodeFenceRule) Apply(file *Node) []Diagnostic {
	var diags []Diagnostic
	for _, n := range Find(file, NodeCodeBlock) {
		if n.Code.Closed {
			continue
		}
		diags = append(diags, Diagnostic{
			Rule:     "unclosed_code_fence",
			Severity: Warning,
			Message:  "code fence is never closed; the rest of the document is treated as code",
			Pos:      n.Pos,
			Fix:      "add a closing ``` line",
		})
	}
	return diags
}

// unclosed_front_matter: the --- header has no closing fence.
type unclosedFrontMatterRule struct{}

func (unclosedFrontMatterRule) Name() string { return "unclosed_front_matter" }

func (unclosedFrontMatterRule) Apply(file *Node) []Diagnostic {
	for _, n := range Find(file, NodeFrontMatterHeader) {
		if !n.FrontMatter.Closed {
			return []Diagnostic{{
				Rule:     "unclosed_front_matter",
				Severity: Error,
				Message:  "front matter is never closed; the whole document was read as header",
				Pos:      n.Pos,
				Fix:      "add a closing --- line after the last key",
			}}
		}
	}
	return nil
}

// duplicate_front_matter_key: each header key should appear once.
type duplicateFrontMatterKeyRule struct{}

func (duplicateFrontMatterKeyRule) Name() string { return "duplicate_front_matter_key" }

func (duplicateFrontMatterKeyRule) Apply(file *Node) []Diagnostic {
	var diags []Diagnostic
	for _, n := range Find(file, NodeFrontMatterHeader) {
		seen := make(map[string]bool)
		for _, e := range n.FrontMatter.Entries {
			if seen[e.Key] {
				diags = append(diags, Diagnostic{
					Rule:     "duplicate_front_matter_key",
					Severity: Warning,
					Message:  fmt.Sprintf("front matter key %q is defined more than once; the last value wins", e.Key),
					Pos:      e.Pos,
					Fix:      fmt.Sprintf("remove the earlier %q lines", e.Key),
				})
			}
			seen[e.Key] = true
		}
	}
	return diags
}

// branch_order: #else must be the final arm of an #if; #default the final
// arm of a #when.
type branchOrderRule struct{}

func (branchOrderRule) Name() string { return "branch_order" }

func (branchOrderRule) Apply(file *Node) []Diagnostic {
	var diags []Diagnostic
	for _, n := range Find(file, NodeExpressionBlock) {
		var final *Branch
		for _, b := range n.Expression.Branches {
			if final != nil {
				diags = append(diags, Diagnostic{
					Rule:     "branch_order",
					Severity: Error,
					Message:  fmt.Sprintf("#%s follows #%s and can never be reached", b.Kind, final.Kind),
					Pos:      b.Pos,
					Fix:      fmt.Sprintf("move #%s to the end of the block", final.Kind),
				})
			}
			if b.Kind == BranchElse || b.Kind == BranchDefault {
				final = b
			}
		}
	}
	return diags
}

// condition_syntax: #if and #elseif guards must be well formed.
type conditionSyntaxRule struct{}

func (conditionSyntaxRule) Name() string { return "condition_syntax" }

func (conditionSyntaxRule) Apply(file *Node) []Diagnostic {
	var diags []Diagnostic
	for _, n := range Find(file, NodeExpressionBlock) {
		for _, b := range n.Expression.Branches {
			if b.Condition == nil || b.Condition.Valid {
				continue
			}
			msg := fmt.Sprintf("invalid #%s condition %q", b.Kind, b.Condition.Raw)
			if b.Condition.Raw == "" {
				msg = fmt.Sprintf("#%s has no condition", b.Kind)
			}
			diags = append(diags, Diagnostic{
				Rule:     "condition_syntax",
				Severity: Error,
				Message:  msg,
				Pos:      b.Pos,
				Fix:      "use (name), (!name) or (name == value)",
			})
		}
	}
	return diags
}

// empty_when: a #when block without any #case or #default selects nothing.
type emptyWhenRule struct{}

func (emptyWhenRule) Name() string { return "empty_when" }

func (emptyWhenRule) Apply(file *Node) []Diagnostic {
	var diags []Diagnostic
	for _, n := range Find(file, NodeExpressionBlock) {
		if n.Expression.Keyword != "when" || len(n.Expression.Branches) > 0 {
			continue
		}
		diags = append(diags, Diagnostic{
			Rule:     "empty_when",
			Severity: Warning,
			Message:  fmt.Sprintf("#when %s has no case branches", n.Expression.Subject),
			Pos:      n.Pos,
			Fix:      "add #case <value> or #default branches",
		})
	}
	return diags
}

// variable_reassigned: a later assignment overrides an earlier one.
type variableReassignedRule struct{}

func (variableReassignedRule) Name() string { return "variable_reassigned" }

func (variableReassignedRule) Apply(file *Node) []Diagnostic {
	var diags []Diagnostic
	first := make(map[string]Position)
	for _, n := range Find(file, NodeVariableBlock) {
		if !n.Variable.IsAssignment() {
			continue
		}
		name := n.Variable.Name
		if pos, ok := first[name]; ok {
			diags = append(diags, Diagnostic{
				Rule:     "variable_reassigned",
				Severity: Info,
				Message:  fmt.Sprintf("$%s is reassigned (first assigned at line %d)", name, pos.Line),
				Pos:      n.Pos,
			})
			continue
		}
		first[name] = n.Pos
	}
	return diags
}
