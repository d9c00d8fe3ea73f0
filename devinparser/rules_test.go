package devinparser

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRuleInvalidName(t *testing.T) {
	res := ParseRule("invalidRule", "test")
	assert.Nil(t, res.AST)
	assert.False(t, res.OK())
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Error(), "Invalid rule name")
	assert.Contains(t, res.Errors[0].Error(), "invalidRule")
	assert.True(t, errors.Is(res.Errors[0], ErrInvalidRule))

	var rerr *RuleError
	require.ErrorAs(t, res.Errors[0], &rerr)
	assert.Equal(t, "invalidRule", rerr.Rule)
}

func TestParseRuleInvalidNameSkipsLexing(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	res := NewParser(WithLogger(logger)).ParseRule("nope", "@a")
	assert.Nil(t, res.AST)
	assert.NotContains(t, buf.String(), "tokenized")
}

func TestRules(t *testing.T) {
	assert.Equal(t, []string{
		"agentBlock", "codeBlock", "commandBlock", "comments",
		"expressionBlock", "frontMatterHeader", "variableBlock",
	}, Rules())
}

func TestParseRuleFragments(t *testing.T) {
	tests := []struct {
		rule  string
		input string
		kind  NodeKind
	}{
		{RuleFrontMatterHeader, "---\na: 1\n---", NodeFrontMatterHeader},
		{RuleAgentBlock, "@coder", NodeAgentBlock},
		{RuleCommandBlock, "/file: main.go", NodeCommandBlock},
		{RuleVariableBlock, "  $x = 1", NodeVariableBlock},
		{RuleExpressionBlock, "#if (a)\nb\n#endif", NodeExpressionBlock},
		{RuleExpressionBlock, "#when a\ncase 1\nx\nend", NodeExpressionBlock},
		{RuleCodeBlock, "```go\nx := 1\n```\n", NodeCodeBlock},
		{RuleComments, "// hi", NodeComments},
	}
	for _, tt := range tests {
		res := ParseRule(tt.rule, tt.input)
		require.True(t, res.OK(), "rule %s input %q: %v", tt.rule, tt.input, res.Errors)
		assert.Equal(t, tt.kind, res.AST.Kind, "rule %s", tt.rule)
		assert.Empty(t, res.Errors, "rule %s input %q", tt.rule, tt.input)
	}
}

func TestParseRuleMismatch(t *testing.T) {
	res := ParseRule(RuleAgentBlock, "/command")
	require.True(t, res.OK())
	assert.Equal(t, NodeAgentBlock, res.AST.Kind)
	assert.Empty(t, res.AST.Agent.Name)
	assert.Equal(t, 0, res.AST.Start)
	assert.Equal(t, len("/command"), res.AST.End)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Error(), "does not match rule agentBlock")

	var rerr *RuleError
	require.ErrorAs(t, res.Errors[0], &rerr)
	assert.Equal(t, RuleAgentBlock, rerr.Rule)
	assert.False(t, errors.Is(rerr, ErrInvalidRule))
}

func TestParseRuleBareMarkers(t *testing.T) {
	tests := []struct {
		rule  string
		input string
		kind  NodeKind
	}{
		{RuleAgentBlock, "@", NodeAgentBlock},
		{RuleCommandBlock, "/", NodeCommandBlock},
		{RuleExpressionBlock, "#", NodeExpressionBlock},
		{RuleVariableBlock, "  $  ", NodeVariableBlock},
		{RuleCodeBlock, "", NodeCodeBlock},
		{RuleComments, "plain", NodeComments},
		{RuleFrontMatterHeader, "name: x", NodeFrontMatterHeader},
	}
	for _, tt := range tests {
		res := ParseRule(tt.rule, tt.input)
		require.True(t, res.OK(), "rule %s input %q", tt.rule, tt.input)
		assert.Equal(t, tt.kind, res.AST.Kind, "rule %s input %q", tt.rule, tt.input)
		assert.LessOrEqual(t, res.AST.Start, res.AST.End, "rule %s input %q", tt.rule, tt.input)
		assert.NotEmpty(t, res.Errors, "rule %s input %q", tt.rule, tt.input)
	}

	res := ParseRule(RuleComments, "plain")
	assert.Equal(t, "plain", res.AST.Text)
}

func TestParseRuleTrailingInput(t *testing.T) {
	res := ParseRule(RuleAgentBlock, "@coder please")
	require.NotNil(t, res.AST)
	assert.Equal(t, "coder", res.AST.Agent.Name)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Error(), "unexpected trailing input after agentBlock")
}

func TestParseRuleFrontMatterAnywhere(t *testing.T) {
	// A fragment is tokenized on its own, so the header is always first.
	res := ParseRule(RuleFrontMatterHeader, "\n\n---\nname: frag\n---\n")
	require.True(t, res.OK())
	v, ok := res.AST.FrontMatter.Get("name")
	require.True(t, ok)
	assert.Equal(t, "frag", v.Str)
}

func FuzzParseRule(f *testing.F) {
	names := Rules()
	for i, src := range append(losslessInputs, yamlInputs...) {
		f.Add(names[i%len(names)], src)
	}
	f.Fuzz(func(t *testing.T, rule, src string) {
		res := ParseRule(rule, src)
		if res.Errors == nil {
			t.Fatalf("rule %q returned nil errors", rule)
		}
		if _, known := rules[rule]; known && res.AST == nil {
			t.Fatalf("rule %q on %q returned no AST: %v", rule, src, res.Errors)
		}
	})
}
