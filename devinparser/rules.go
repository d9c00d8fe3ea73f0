package devinparser

import (
	"fmt"
	"log/slog"
	"sort"
)

// Rule names accepted by ParseRule.
const (
	RuleFrontMatterHeader = "frontMatterHeader"
	RuleAgentBlock        = "agentBlock"
	RuleCommandBlock      = "commandBlock"
	RuleVariableBlock     = "variableBlock"
	RuleExpressionBlock   = "expressionBlock"
	RuleCodeBlock         = "codeBlock"
	RuleComments          = "comments"
)

// ruleFunc parses one production at the cursor, returning nil when the
// input does not start with it.
type ruleFunc func(s *state) *Node

type production struct {
	kind  NodeKind
	parse ruleFunc
}

var rules = map[string]production{
	RuleFrontMatterHeader: {NodeFrontMatterHeader, (*state).parseFrontMatter},
	RuleAgentBlock:        {NodeAgentBlock, (*state).parseAgent},
	RuleCommandBlock:      {NodeCommandBlock, (*state).parseCommand},
	RuleVariableBlock:     {NodeVariableBlock, (*state).parseVariable},
	RuleExpressionBlock:   {NodeExpressionBlock, func(s *state) *Node { return s.parseExpression(0) }},
	RuleCodeBlock: {NodeCodeBlock, func(s *state) *Node {
		if s.peek().Kind != TokenCodeBlockStart {
			return nil
		}
		return s.parseCode()
	}},
	RuleComments: {NodeComments, func(s *state) *Node {
		if s.peek().Kind != TokenComments {
			return nil
		}
		return s.parseComment()
	}},
}

// Rules returns the rule names accepted by ParseRule, sorted.
func Rules() []string {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseRule parses src as a single grammar production. Leading whitespace
// is skipped. Only an unknown rule name fails without an AST. A fragment
// that does not match the rule yields an empty node of the rule's kind
// spanning the input, plus a RuleError.
func (p *Parser) ParseRule(rule, src string) *ParseResult {
	prod, ok := rules[rule]
	if !ok {
		return &ParseResult{Errors: []error{newInvalidRuleError(rule)}}
	}

	s := p.newState(src)
	s.skipBlank()
	from := s.pos
	node := prod.parse(s)
	if node == nil {
		s.pos = from
		node = s.unmatchedNode(prod.kind)
		s.errors = append(s.errors, &RuleError{
			ParseError: ParseError{
				Message: fmt.Sprintf("input does not match rule %s", rule),
				Pos:     node.Pos,
			},
			Rule: rule,
		})
	}

	s.skipBlank()
	if !s.atEOF() {
		s.errorf(s.peek().Pos, "unexpected trailing input after %s", rule)
	}
	if p.logger != nil {
		p.logger.Debug("rule parsed",
			slog.String("component", "parser"),
			slog.String("rule", rule),
			slog.Int("errors", len(s.errors)))
	}
	return &ParseResult{AST: node, Errors: s.errors}
}

// unmatchedNode consumes the rest of the input into a node of the given
// kind with an empty payload.
func (s *state) unmatchedNode(kind NodeKind) *Node {
	from := s.pos
	for !s.atEOF() {
		s.next()
	}
	start := s.peek()
	end := start.Pos.Offset
	if first, last, ok := s.contentRange(from, s.pos); ok {
		start, end = s.tokens[first], s.tokens[last].End()
	}
	node := s.newNode(kind, start, end)

	switch kind {
	case NodeFrontMatterHeader:
		node.FrontMatter = &FrontMatter{}
	case NodeAgentBlock:
		node.Agent = &Agent{}
	case NodeCommandBlock:
		node.Command = &Command{}
	case NodeVariableBlock:
		node.Variable = &Variable{}
	case NodeExpressionBlock:
		node.Expression = &Expression{}
	case NodeCodeBlock:
		node.Code = &Code{}
	case NodeComments:
		node.Text = s.src[node.Start:node.End]
	}
	return node
}
