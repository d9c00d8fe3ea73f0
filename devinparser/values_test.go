package devinparser

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValueLiterals(t *testing.T) {
	tests := []struct {
		tok  Token
		kind ValueKind
		want any
	}{
		{Token{Kind: TokenQuoteString, Value: `"hello"`}, ValueString, "hello"},
		{Token{Kind: TokenQuoteString, Value: `'single'`}, ValueString, "single"},
		{Token{Kind: TokenQuoteString, Value: `"a\"b\n"`}, ValueString, "a\"b\n"},
		{Token{Kind: TokenQuoteString, Value: `"open`}, ValueString, "open"},
		{Token{Kind: TokenQuoteString, Value: `"keep \q"`}, ValueString, `keep \q`},
		{Token{Kind: TokenNumber, Value: "42"}, ValueInt, int64(42)},
		{Token{Kind: TokenNumber, Value: "2.5"}, ValueFloat, 2.5},
		{Token{Kind: TokenBoolean, Value: "true"}, ValueBool, true},
		{Token{Kind: TokenBoolean, Value: "false"}, ValueBool, false},
		{Token{Kind: TokenIdentifier, Value: "plain"}, ValueString, "plain"},
	}
	for _, tt := range tests {
		v, err := ParseValue(tt.tok)
		require.NoError(t, err, "token %q", tt.tok.Value)
		assert.Equal(t, tt.kind, v.Kind, "token %q", tt.tok.Value)
		assert.Equal(t, tt.want, v.Interface(), "token %q", tt.tok.Value)
		assert.Equal(t, tt.tok.Value, v.Raw, "token %q", tt.tok.Value)
	}
}

func TestParseValueHugeIntegerBecomesFloat(t *testing.T) {
	v, err := ParseValue(Token{Kind: TokenNumber, Value: "99999999999999999999"})
	require.NoError(t, err)
	assert.Equal(t, ValueFloat, v.Kind)
	assert.InDelta(t, 1e20, v.Float, 1e6)
}

func TestParseValueRejectsPunctuation(t *testing.T) {
	_, err := ParseValue(Token{Kind: TokenColon, Value: ":", Pos: Position{Line: 3, Column: 2}})
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Pos.Line)
	assert.Contains(t, err.Error(), "COLON")
}

func TestIsLiteral(t *testing.T) {
	assert.True(t, IsLiteral(TokenQuoteString))
	assert.True(t, IsLiteral(TokenNumber))
	assert.True(t, IsLiteral(TokenBoolean))
	assert.False(t, IsLiteral(TokenIdentifier))
	assert.False(t, IsLiteral(TokenColon))
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		raw  string
		kind ValueKind
		want any
	}{
		{"", ValueNull, nil},
		{"  ", ValueNull, nil},
		{"~", ValueNull, nil},
		{"hello world", ValueString, "hello world"},
		{`"quoted"`, ValueString, "quoted"},
		{"12", ValueInt, int64(12)},
		{"0.5", ValueFloat, 0.5},
		{"yes", ValueString, "yes"},
		{"true", ValueBool, true},
		{"[a, 2]", ValueList, []any{"a", int64(2)}},
		{"{k: v, n: 1}", ValueMap, map[string]any{"k": "v", "n": int64(1)}},
		{"\n  - x\n  - y", ValueList, []any{"x", "y"}},
	}
	for _, tt := range tests {
		v, err := DecodeValue(tt.raw)
		require.NoError(t, err, "raw %q", tt.raw)
		assert.Equal(t, tt.kind, v.Kind, "raw %q", tt.raw)
		assert.Equal(t, tt.want, v.Interface(), "raw %q", tt.raw)
		assert.Equal(t, tt.raw, v.Raw, "raw %q", tt.raw)
	}
}

func TestDecodeValueMapKeepsOrder(t *testing.T) {
	v, err := DecodeValue("{z: 1, a: 2, m: 3}")
	require.NoError(t, err)
	require.Len(t, v.Entries, 3)
	assert.Equal(t, "z", v.Entries[0].Key)
	assert.Equal(t, "a", v.Entries[1].Key)
	assert.Equal(t, "m", v.Entries[2].Key)
}

func TestDecodeValueInvalidYAML(t *testing.T) {
	v, err := DecodeValue("[unclosed")
	require.Error(t, err)
	assert.Equal(t, ValueString, v.Kind)
	assert.Equal(t, "[unclosed", v.Str)
}

func TestDecodeValueAliases(t *testing.T) {
	v, err := DecodeValue("[&a {k: 1}, *a]")
	require.NoError(t, err)
	require.Len(t, v.Items, 2)
	assert.True(t, v.Items[0].Equal(v.Items[1]))

	v, err = DecodeValue("&a [*a]")
	require.ErrorIs(t, err, ErrCyclicAlias)
	assert.Equal(t, ValueString, v.Kind)

	_, err = DecodeValue("&m {self: *m}")
	assert.ErrorIs(t, err, ErrCyclicAlias)
}

// nestedAnchors builds a value whose alias expansion grows as 9^levels.
func nestedAnchors(levels int) string {
	parts := []string{"&l0 [x, x, x, x, x, x, x, x, x]"}
	for i := 1; i <= levels; i++ {
		refs := strings.TrimSuffix(strings.Repeat(fmt.Sprintf("*l%d, ", i-1), 9), ", ")
		parts = append(parts, fmt.Sprintf("&l%d [%s]", i, refs))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func TestDecodeValueExcessiveAliasing(t *testing.T) {
	_, err := DecodeValue(nestedAnchors(2))
	require.NoError(t, err)

	_, err = DecodeValue(nestedAnchors(8))
	assert.ErrorIs(t, err, ErrExcessiveAliasing)
}

func TestParseSurvivesHostileYAML(t *testing.T) {
	res := Parse("---\nx: &a [*a]\n---\n")
	require.NotNil(t, res.AST)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Error(), "cyclic yaml alias")

	res = Parse("$v = " + nestedAnchors(8) + "\n")
	require.NotNil(t, res.AST)
	require.Len(t, res.AST.Variables(), 1)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0].Error(), "excessive yaml aliasing")
}

func TestValueEqual(t *testing.T) {
	one, _ := DecodeValue("1")
	oneFloat, _ := DecodeValue("1.0")
	two, _ := DecodeValue("2")
	str, _ := DecodeValue(`"1"`)
	list, _ := DecodeValue("[1, {a: b}]")
	same, _ := DecodeValue("[1.0, {a: b}]")
	other, _ := DecodeValue("[1, {a: c}]")

	assert.True(t, one.Equal(oneFloat))
	assert.False(t, one.Equal(two))
	assert.False(t, one.Equal(str))
	assert.True(t, list.Equal(same))
	assert.False(t, list.Equal(other))
	assert.True(t, Value{Kind: ValueNull}.Equal(Value{Kind: ValueNull, Raw: "~"}))
}

func TestValueInterfaceInfinity(t *testing.T) {
	v, err := DecodeValue(".inf")
	require.NoError(t, err)
	assert.Equal(t, ValueFloat, v.Kind)
	assert.True(t, math.IsInf(v.Float, 1))
}
