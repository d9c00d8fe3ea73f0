// Package astdump converts parse results and tokens into plain documents
// and encodes them as JSON, YAML or TOML.
package astdump

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/martinemde/devins/devinparser"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Formats lists the supported encodings.
var Formats = []Format{FormatJSON, FormatYAML, FormatTOML}

// ParseFormat resolves a format name, accepting "yml" for YAML.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unknown format %q (want json, yaml or toml)", name)
}

// Document is the dump of a ParseResult.
type Document struct {
	AST    *Node   `json:"ast,omitempty" yaml:"ast,omitempty" toml:"ast,omitempty"`
	Errors []Error `json:"errors" yaml:"errors" toml:"errors"`
}

// Error is a parse error with its location.
type Error struct {
	Message string `json:"message" yaml:"message" toml:"message"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty" toml:"line,omitempty"`
	Column  int    `json:"column,omitempty" yaml:"column,omitempty" toml:"column,omitempty"`
}

// Node mirrors devinparser.Node with one optional payload per kind.
type Node struct {
	Kind     string  `json:"kind" yaml:"kind" toml:"kind"`
	Line     int     `json:"line" yaml:"line" toml:"line"`
	Column   int     `json:"column" yaml:"column" toml:"column"`
	Start    int     `json:"start" yaml:"start" toml:"start"`
	End      int     `json:"end" yaml:"end" toml:"end"`
	Text     string  `json:"text,omitempty" yaml:"text,omitempty" toml:"text,omitempty"`
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty" toml:"children,omitempty"`

	FrontMatter *FrontMatter `json:"frontMatter,omitempty" yaml:"frontMatter,omitempty" toml:"frontMatter,omitempty"`
	Agent       *Agent       `json:"agent,omitempty" yaml:"agent,omitempty" toml:"agent,omitempty"`
	Command     *Command     `json:"command,omitempty" yaml:"command,omitempty" toml:"command,omitempty"`
	Variable    *Variable    `json:"variable,omitempty" yaml:"variable,omitempty" toml:"variable,omitempty"`
	Expression  *Expression  `json:"expression,omitempty" yaml:"expression,omitempty" toml:"expression,omitempty"`
	Code        *Code        `json:"code,omitempty" yaml:"code,omitempty" toml:"code,omitempty"`
}

type FrontMatter struct {
	Closed  bool         `json:"closed" yaml:"closed" toml:"closed"`
	Entries []FrontEntry `json:"entries" yaml:"entries" toml:"entries"`
}

type FrontEntry struct {
	Key   string `json:"key" yaml:"key" toml:"key"`
	Raw   string `json:"raw" yaml:"raw" toml:"raw"`
	Value any    `json:"value" yaml:"value" toml:"value,omitempty"`
}

type Agent struct {
	Name   string `json:"name" yaml:"name" toml:"name"`
	Quoted bool   `json:"quoted,omitempty" yaml:"quoted,omitempty" toml:"quoted,omitempty"`
}

type Command struct {
	Name     string `json:"name" yaml:"name" toml:"name"`
	Args     string `json:"args" yaml:"args" toml:"args"`
	HasColon bool   `json:"hasColon" yaml:"hasColon" toml:"hasColon"`
}

type Variable struct {
	Name       string `json:"name" yaml:"name" toml:"name"`
	Assignment bool   `json:"assignment" yaml:"assignment" toml:"assignment"`
	Raw        string `json:"raw,omitempty" yaml:"raw,omitempty" toml:"raw,omitempty"`
	Value      any    `json:"value,omitempty" yaml:"value,omitempty" toml:"value,omitempty"`
}

// Expression groups nested nodes by branch; the owning Node has no
// Children of its own.
type Expression struct {
	Keyword  string   `json:"keyword" yaml:"keyword" toml:"keyword"`
	Subject  string   `json:"subject,omitempty" yaml:"subject,omitempty" toml:"subject,omitempty"`
	Closed   bool     `json:"closed" yaml:"closed" toml:"closed"`
	Depth    int      `json:"depth" yaml:"depth" toml:"depth"`
	Branches []Branch `json:"branches" yaml:"branches" toml:"branches"`
}

type Branch struct {
	Kind      string     `json:"kind" yaml:"kind" toml:"kind"`
	Line      int        `json:"line" yaml:"line" toml:"line"`
	Condition *Condition `json:"condition,omitempty" yaml:"condition,omitempty" toml:"condition,omitempty"`
	Match     any        `json:"match,omitempty" yaml:"match,omitempty" toml:"match,omitempty"`
	Children  []*Node    `json:"children,omitempty" yaml:"children,omitempty" toml:"children,omitempty"`
}

type Condition struct {
	Raw     string `json:"raw" yaml:"raw" toml:"raw"`
	Valid   bool   `json:"valid" yaml:"valid" toml:"valid"`
	Negated bool   `json:"negated,omitempty" yaml:"negated,omitempty" toml:"negated,omitempty"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty" toml:"subject,omitempty"`
	Op      string `json:"op,omitempty" yaml:"op,omitempty" toml:"op,omitempty"`
	Value   any    `json:"value,omitempty" yaml:"value,omitempty" toml:"value,omitempty"`
}

type Code struct {
	Language string `json:"language,omitempty" yaml:"language,omitempty" toml:"language,omitempty"`
	Body     string `json:"body" yaml:"body" toml:"body"`
	Closed   bool   `json:"closed" yaml:"closed" toml:"closed"`
}

// Token mirrors devinparser.Token.
type Token struct {
	Kind   string `json:"kind" yaml:"kind" toml:"kind"`
	Value  string `json:"value" yaml:"value" toml:"value"`
	Line   int    `json:"line" yaml:"line" toml:"line"`
	Column int    `json:"column" yaml:"column" toml:"column"`
	Offset int    `json:"offset" yaml:"offset" toml:"offset"`
}

// TokenList is the dump of a token stream. It is a struct so that every
// encoding, TOML included, has a top-level table.
type TokenList struct {
	Tokens []Token `json:"tokens" yaml:"tokens" toml:"tokens"`
}

// FromResult converts a parse result.
func FromResult(res *devinparser.ParseResult) Document {
	doc := Document{AST: FromNode(res.AST), Errors: []Error{}}
	for _, err := range res.Errors {
		e := Error{Message: err.Error()}
		if pos, ok := errorPos(err); ok {
			e.Message = pos.message
			e.Line, e.Column = pos.line, pos.column
		}
		doc.Errors = append(doc.Errors, e)
	}
	return doc
}

type errPos struct {
	message      string
	line, column int
}

func errorPos(err error) (errPos, bool) {
	switch e := err.(type) {
	case *devinparser.ParseError:
		return errPos{e.Message, e.Pos.Line, e.Pos.Column}, true
	case *devinparser.RuleError:
		return errPos{e.Message, e.Pos.Line, e.Pos.Column}, true
	}
	return errPos{}, false
}

// FromNode converts a node and its descendants. A nil node yields nil.
func FromNode(n *devinparser.Node) *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Kind:   string(n.Kind),
		Line:   n.Pos.Line,
		Column: n.Pos.Column,
		Start:  n.Start,
		End:    n.End,
		Text:   n.Text,
	}

	switch n.Kind {
	case devinparser.NodeFrontMatterHeader:
		fm := &FrontMatter{Closed: n.FrontMatter.Closed, Entries: []FrontEntry{}}
		for _, e := range n.FrontMatter.Entries {
			fm.Entries = append(fm.Entries, FrontEntry{Key: e.Key, Raw: e.Raw, Value: e.Value.Interface()})
		}
		out.FrontMatter = fm
	case devinparser.NodeAgentBlock:
		out.Agent = &Agent{Name: n.Agent.Name, Quoted: n.Agent.Quoted}
	case devinparser.NodeCommandBlock:
		out.Command = &Command{Name: n.Command.Name, Args: n.Command.Args, HasColon: n.Command.HasColon}
	case devinparser.NodeVariableBlock:
		v := &Variable{Name: n.Variable.Name, Raw: n.Variable.Raw, Assignment: n.Variable.IsAssignment()}
		if n.Variable.Value != nil {
			v.Value = n.Variable.Value.Interface()
		}
		out.Variable = v
	case devinparser.NodeCodeBlock:
		out.Code = &Code{Language: n.Code.Language, Body: n.Code.Body, Closed: n.Code.Closed}
	case devinparser.NodeExpressionBlock:
		out.Expression = fromExpression(n.Expression)
		return out
	}

	for _, c := range n.Children {
		out.Children = append(out.Children, FromNode(c))
	}
	return out
}

func fromExpression(e *devinparser.Expression) *Expression {
	out := &Expression{Keyword: e.Keyword, Subject: e.Subject, Closed: e.Closed, Depth: e.Depth, Branches: []Branch{}}
	for _, b := range e.Branches {
		branch := Branch{Kind: string(b.Kind), Line: b.Pos.Line}
		if c := b.Condition; c != nil {
			branch.Condition = &Condition{Raw: c.Raw, Valid: c.Valid, Negated: c.Negated, Subject: c.Subject, Op: c.Op}
			if c.Value != nil {
				branch.Condition.Value = c.Value.Interface()
			}
		}
		if b.Match != nil {
			branch.Match = b.Match.Interface()
		}
		for _, c := range b.Children {
			branch.Children = append(branch.Children, FromNode(c))
		}
		out.Branches = append(out.Branches, branch)
	}
	return out
}

// FromTokens converts a token stream.
func FromTokens(tokens []devinparser.Token) TokenList {
	list := TokenList{Tokens: make([]Token, 0, len(tokens))}
	for _, tok := range tokens {
		list.Tokens = append(list.Tokens, Token{
			Kind:   tok.Kind.String(),
			Value:  tok.Value,
			Line:   tok.Pos.Line,
			Column: tok.Pos.Column,
			Offset: tok.Pos.Offset,
		})
	}
	return list
}

// Encode writes v to w in the given format. TOML has no null, so null
// values of a Document or Node are left out of TOML output.
func Encode(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(withoutNulls(v)); err != nil {
			return fmt.Errorf("encoding toml: %w", err)
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

// Query evaluates a gjson path against the JSON form of v.
func Query(v any, path string) (gjson.Result, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encoding json: %w", err)
	}
	return gjson.GetBytes(data, path), nil
}

func withoutNulls(v any) any {
	switch v := v.(type) {
	case Document:
		v.AST = v.AST.withoutNulls()
		return v
	case *Document:
		if v == nil {
			return v
		}
		return withoutNulls(*v)
	case *Node:
		return v.withoutNulls()
	}
	return v
}

// withoutNulls returns a copy of the tree with null values dropped.
func (n *Node) withoutNulls() *Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Children = nodesWithoutNulls(n.Children)

	if fm := n.FrontMatter; fm != nil {
		out.FrontMatter = &FrontMatter{Closed: fm.Closed, Entries: make([]FrontEntry, len(fm.Entries))}
		for i, e := range fm.Entries {
			e.Value = dropNulls(e.Value)
			out.FrontMatter.Entries[i] = e
		}
	}
	if v := n.Variable; v != nil {
		cp := *v
		cp.Value = dropNulls(v.Value)
		out.Variable = &cp
	}
	if e := n.Expression; e != nil {
		cp := *e
		cp.Branches = make([]Branch, len(e.Branches))
		for i, b := range e.Branches {
			b.Match = dropNulls(b.Match)
			if b.Condition != nil {
				c := *b.Condition
				c.Value = dropNulls(c.Value)
				b.Condition = &c
			}
			b.Children = nodesWithoutNulls(b.Children)
			cp.Branches[i] = b
		}
		out.Expression = &cp
	}
	return &out
}

func nodesWithoutNulls(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, c := range nodes {
		out[i] = c.withoutNulls()
	}
	return out
}

// dropNulls removes nil list items and map values, recursively.
func dropNulls(v any) any {
	switch v := v.(type) {
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			if item = dropNulls(item); item != nil {
				out = append(out, item)
			}
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			if item = dropNulls(item); item != nil {
				out[k] = item
			}
		}
		return out
	}
	return v
}
