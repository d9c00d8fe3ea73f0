package astdump

import (
	"bytes"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/martinemde/devins/devinparser"
)

const document = "---\nname: demo\ntags: [a, b]\n---\n@bob /file: main.go\n$x = 1\n#if ($x)\nyes\n#else\nno\n#endif\n"

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"json", FormatJSON, true},
		{"", FormatJSON, true},
		{"YAML", FormatYAML, true},
		{"yml", FormatYAML, true},
		{"toml", FormatTOML, true},
		{"xml", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if !tt.ok {
			assert.Error(t, err, "format %q", tt.in)
			continue
		}
		require.NoError(t, err, "format %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestFromResultMirrorsTree(t *testing.T) {
	res := devinparser.Parse(document)
	require.Empty(t, res.Errors)

	doc := FromResult(res)
	require.NotNil(t, doc.AST)
	assert.Equal(t, "FILE", doc.AST.Kind)
	require.Len(t, doc.AST.Children, len(res.AST.Children))
	for i, c := range res.AST.Children {
		assert.Equal(t, string(c.Kind), doc.AST.Children[i].Kind)
		assert.Equal(t, c.Start, doc.AST.Children[i].Start)
		assert.Equal(t, c.End, doc.AST.Children[i].End)
	}
	assert.NotNil(t, doc.Errors)
}

func TestFromNodePayloads(t *testing.T) {
	doc := FromResult(devinparser.Parse(document))
	byKind := map[string]*Node{}
	for _, c := range doc.AST.Children {
		byKind[c.Kind] = c
	}

	fm := byKind["FRONT_MATTER_HEADER"]
	require.NotNil(t, fm)
	assert.True(t, fm.FrontMatter.Closed)
	require.Len(t, fm.FrontMatter.Entries, 2)
	assert.Equal(t, "demo", fm.FrontMatter.Entries[0].Value)
	assert.Equal(t, []any{"a", "b"}, fm.FrontMatter.Entries[1].Value)

	assert.Equal(t, "bob", byKind["AGENT_BLOCK"].Agent.Name)
	assert.Equal(t, "file", byKind["COMMAND_BLOCK"].Command.Name)
	assert.Equal(t, "main.go", byKind["COMMAND_BLOCK"].Command.Args)

	v := byKind["VARIABLE_BLOCK"].Variable
	assert.True(t, v.Assignment)
	assert.Equal(t, int64(1), v.Value)

	expr := byKind["EXPRESSION_BLOCK"]
	require.NotNil(t, expr.Expression)
	assert.Empty(t, expr.Children)
	assert.True(t, expr.Expression.Closed)
	require.Len(t, expr.Expression.Branches, 2)
	assert.Equal(t, "if", expr.Expression.Branches[0].Kind)
	assert.Equal(t, "x", expr.Expression.Branches[0].Condition.Subject)
	assert.Equal(t, "else", expr.Expression.Branches[1].Kind)
	assert.Nil(t, expr.Expression.Branches[1].Condition)
}

func TestFromResultErrors(t *testing.T) {
	doc := FromResult(devinparser.Parse("#if\nbody\n#endif"))
	require.Len(t, doc.Errors, 1)
	assert.Equal(t, "missing condition", doc.Errors[0].Message)
	assert.Equal(t, 1, doc.Errors[0].Line)

	doc = FromResult(devinparser.ParseRule("nope", "x"))
	assert.Nil(t, doc.AST)
	require.Len(t, doc.Errors, 1)
	assert.Equal(t, "Invalid rule name: nope", doc.Errors[0].Message)
	assert.Zero(t, doc.Errors[0].Line)
}

func TestFromTokens(t *testing.T) {
	tokens := devinparser.Tokenize("@bob hi")
	list := FromTokens(tokens)
	require.Len(t, list.Tokens, len(tokens))
	assert.Equal(t, tokens[0].Kind.String(), list.Tokens[0].Kind)
	assert.Equal(t, "@", list.Tokens[0].Value)
	assert.Equal(t, 2, list.Tokens[1].Column)
	assert.Equal(t, 1, list.Tokens[1].Offset)
}

func TestEncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatJSON, FromResult(devinparser.Parse(document))))
	require.True(t, gjson.Valid(buf.String()))
	assert.Equal(t, "FILE", gjson.Get(buf.String(), "ast.kind").String())
	assert.Equal(t, "bob", gjson.Get(buf.String(), `ast.children.#(kind=="AGENT_BLOCK").agent.name`).String())
}

func TestEncodeYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatYAML, FromResult(devinparser.Parse(document))))

	var out struct {
		AST struct {
			Kind     string `yaml:"kind"`
			Children []struct {
				Kind string `yaml:"kind"`
			} `yaml:"children"`
		} `yaml:"ast"`
		Errors []any `yaml:"errors"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "FILE", out.AST.Kind)
	assert.NotEmpty(t, out.AST.Children)
	assert.Empty(t, out.Errors)
}

func TestEncodeTOML(t *testing.T) {
	list := FromTokens(devinparser.Tokenize("/file: a.go\n"))
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatTOML, list))

	var got TokenList
	_, err := toml.Decode(buf.String(), &got)
	require.NoError(t, err)
	assert.Equal(t, list, got)

	buf.Reset()
	require.NoError(t, Encode(&buf, FormatTOML, FromResult(devinparser.Parse(document))))
	var doc map[string]any
	_, err = toml.Decode(buf.String(), &doc)
	require.NoError(t, err)
	ast, ok := doc["ast"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "FILE", ast["kind"])
}

func TestEncodeTOMLDropsNulls(t *testing.T) {
	doc := FromResult(devinparser.Parse("---\nx: [1, null]\ny: {a: null, b: 2}\nz: null\n---\n$v = [null, [null, 3]]\n"))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatTOML, doc))

	var out struct {
		AST struct {
			Children []struct {
				FrontMatter struct {
					Entries []struct {
						Key   string `toml:"key"`
						Value any    `toml:"value"`
					} `toml:"entries"`
				} `toml:"frontMatter"`
				Variable struct {
					Value any `toml:"value"`
				} `toml:"variable"`
			} `toml:"children"`
		} `toml:"ast"`
	}
	_, err := toml.Decode(buf.String(), &out)
	require.NoError(t, err)
	require.Len(t, out.AST.Children, 2)

	entries := out.AST.Children[0].FrontMatter.Entries
	require.Len(t, entries, 3)
	assert.Equal(t, []any{int64(1)}, entries[0].Value)
	assert.Equal(t, map[string]any{"b": int64(2)}, entries[1].Value)
	assert.Nil(t, entries[2].Value)
	assert.Equal(t, []any{[]any{int64(3)}}, out.AST.Children[1].Variable.Value)

	// The caller's document keeps its nulls.
	assert.Equal(t, []any{int64(1), nil}, doc.AST.Children[0].FrontMatter.Entries[0].Value)

	buf.Reset()
	require.NoError(t, Encode(&buf, FormatJSON, doc))
	assert.Equal(t, "null", gjson.Get(buf.String(), "ast.children.0.frontMatter.entries.0.value.1").Raw)
}

func TestEncodeUnknownFormat(t *testing.T) {
	err := Encode(&bytes.Buffer{}, Format("xml"), TokenList{})
	assert.ErrorContains(t, err, "unknown format")
}

func TestQuery(t *testing.T) {
	doc := FromResult(devinparser.Parse(document))

	res, err := Query(doc, "ast.children.#.kind")
	require.NoError(t, err)
	var kinds []string
	for _, k := range res.Array() {
		kinds = append(kinds, k.String())
	}
	require.Len(t, kinds, len(doc.AST.Children))
	assert.Equal(t, doc.AST.Children[0].Kind, kinds[0])

	res, err = Query(doc, "ast.children.0.frontMatter.entries.1.value.1")
	require.NoError(t, err)
	assert.Equal(t, "b", res.String())

	res, err = Query(doc, "ast.nothing")
	require.NoError(t, err)
	assert.False(t, res.Exists())
}
