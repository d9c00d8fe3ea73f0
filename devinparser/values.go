package devinparser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValueKind discriminates the Value tagged union.
type ValueKind string

const (
	ValueString ValueKind = "string"
	ValueInt    ValueKind = "int"
	ValueFloat  ValueKind = "float"
	ValueBool   ValueKind = "bool"
	ValueNull   ValueKind = "null"
	ValueList   ValueKind = "list"
	ValueMap    ValueKind = "map"
)

// Value is a literal from a variable assignment, a condition or front
// matter. Kind determines which typed field is populated.
type Value struct {
	Kind    ValueKind
	Str     string       // populated when Kind == ValueString
	Int     int64        // populated when Kind == ValueInt
	Float   float64      // populated when Kind == ValueFloat
	Bool    bool         // populated when Kind == ValueBool
	Items   []Value      // populated when Kind == ValueList
	Entries []ValueEntry // populated when Kind == ValueMap, in source order
	Raw     string       // original text representation, always set
}

// ValueEntry is one key of a map value.
type ValueEntry struct {
	Key   string
	Value Value
}

// String returns the original text representation of the value.
func (v Value) String() string { return v.Raw }

// Interface converts the value to plain Go data (string, int64, float64,
// bool, nil, []any, map[string]any).
func (v Value) Interface() any {
	switch v.Kind {
	case ValueString:
		return v.Str
	case ValueInt:
		return v.Int
	case ValueFloat:
		return v.Float
	case ValueBool:
		return v.Bool
	case ValueList:
		items := make([]any, len(v.Items))
		for i, item := range v.Items {
			items[i] = item.Interface()
		}
		return items
	case ValueMap:
		m := make(map[string]any, len(v.Entries))
		for _, e := range v.Entries {
			m[e.Key] = e.Value.Interface()
		}
		return m
	default:
		return nil
	}
}

// Equal compares two values by kind and content, ignoring Raw. Ints and
// floats compare numerically.
func (v Value) Equal(o Value) bool {
	if v.isNumber() && o.isNumber() {
		return v.number() == o.number()
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueString:
		return v.Str == o.Str
	case ValueBool:
		return v.Bool == o.Bool
	case ValueNull:
		return true
	case ValueList:
		if len(v.Items) != len(o.Items) {
			return false
		}
		for i := range v.Items {
			if !v.Items[i].Equal(o.Items[i]) {
				return false
			}
		}
		return true
	case ValueMap:
		if len(v.Entries) != len(o.Entries) {
			return false
		}
		for i := range v.Entries {
			if v.Entries[i].Key != o.Entries[i].Key || !v.Entries[i].Value.Equal(o.Entries[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) isNumber() bool { return v.Kind == ValueInt || v.Kind == ValueFloat }

func (v Value) number() float64 {
	if v.Kind == ValueInt {
		return float64(v.Int)
	}
	return v.Float
}

// IsLiteral reports whether the token kind can be converted by ParseValue.
func IsLiteral(kind TokenKind) bool {
	switch kind {
	case TokenQuoteString, TokenNumber, TokenBoolean:
		return true
	}
	return false
}

// ParseValue converts a literal token into a typed Value. Identifiers in
// value position are treated as unquoted strings.
func ParseValue(tok Token) (Value, error) {
	switch tok.Kind {
	case TokenQuoteString:
		return Value{Kind: ValueString, Str: unquote(tok.Value), Raw: tok.Value}, nil

	case TokenNumber:
		if strings.Contains(tok.Value, ".") {
			f, err := strconv.ParseFloat(tok.Value, 64)
			if err != nil {
				return Value{}, &ParseError{
					Message: fmt.Sprintf("invalid number %q: %v", tok.Value, err),
					Pos:     tok.Pos,
					Cause:   err,
				}
			}
			return Value{Kind: ValueFloat, Float: f, Raw: tok.Value}, nil
		}
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			// Too large for int64; keep it as a float.
			f, ferr := strconv.ParseFloat(tok.Value, 64)
			if ferr != nil {
				return Value{}, &ParseError{
					Message: fmt.Sprintf("invalid number %q: %v", tok.Value, err),
					Pos:     tok.Pos,
					Cause:   err,
				}
			}
			return Value{Kind: ValueFloat, Float: f, Raw: tok.Value}, nil
		}
		return Value{Kind: ValueInt, Int: n, Raw: tok.Value}, nil

	case TokenBoolean:
		return Value{Kind: ValueBool, Bool: tok.Value == "true", Raw: tok.Value}, nil

	case TokenIdentifier:
		return Value{Kind: ValueString, Str: tok.Value, Raw: tok.Value}, nil

	default:
		return Value{}, &ParseError{
			Message: fmt.Sprintf("unexpected token %s in value position", tok.Kind),
			Pos:     tok.Pos,
		}
	}
}

// unquote strips the delimiters of a QUOTE_STRING and resolves the common
// escapes. Unterminated strings keep everything after the opening quote.
func unquote(s string) string {
	if s == "" {
		return s
	}
	quote := s[0]
	body := s[1:]
	if len(body) > 0 && body[len(body)-1] == quote && !escapedAt(body, len(body)-1) {
		body = body[:len(body)-1]
	}
	if !strings.Contains(body, `\`) {
		return body
	}

	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch != '\\' || i+1 >= len(body) {
			sb.WriteByte(ch)
			continue
		}
		i++
		switch esc := body[i]; esc {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case '\\', '"', '\'':
			sb.WriteByte(esc)
		default:
			// Preserve unknown escapes as-is
			sb.WriteByte('\\')
			sb.WriteByte(esc)
		}
	}
	return sb.String()
}

// escapedAt reports whether the byte at i is preceded by an odd number of backslashes.
func escapedAt(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// DecodeValue interprets raw as a YAML value: front matter values and
// non-literal assignments such as lists or flow maps.
func DecodeValue(raw string) (Value, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Value{Kind: ValueNull, Raw: raw}, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return Value{Kind: ValueString, Str: trimmed, Raw: raw}, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return Value{Kind: ValueNull, Raw: raw}, nil
	}
	d := &yamlDecoder{budget: aliasBudget(len(raw)), expanding: map[*yaml.Node]bool{}}
	v, err := d.value(doc.Content[0])
	if err != nil {
		return Value{Kind: ValueString, Str: trimmed, Raw: raw}, err
	}
	v.Raw = raw
	return v, nil
}

// ErrCyclicAlias and ErrExcessiveAliasing reject YAML whose aliases would
// expand forever or out of proportion to the input.
var (
	ErrCyclicAlias       = errors.New("cyclic yaml alias")
	ErrExcessiveAliasing = errors.New("excessive yaml aliasing")
)

// aliasBudget bounds the nodes one value may expand to, linear in its size.
func aliasBudget(size int) int {
	return 1024 + 4*size
}

// yamlDecoder converts a yaml.Node tree to a Value, expanding aliases.
type yamlDecoder struct {
	budget    int
	expanding map[*yaml.Node]bool
}

func (d *yamlDecoder) value(n *yaml.Node) (Value, error) {
	d.budget--
	if d.budget < 0 {
		return Value{}, ErrExcessiveAliasing
	}

	switch n.Kind {
	case yaml.AliasNode:
		if n.Alias == nil {
			return Value{Kind: ValueNull}, nil
		}
		if d.expanding[n.Alias] {
			return Value{}, fmt.Errorf("%w *%s", ErrCyclicAlias, n.Value)
		}
		d.expanding[n.Alias] = true
		v, err := d.value(n.Alias)
		delete(d.expanding, n.Alias)
		return v, err

	case yaml.SequenceNode, yaml.MappingNode:
		// An anchored collection may be referenced from inside itself.
		d.expanding[n] = true
		defer delete(d.expanding, n)
		if n.Kind == yaml.SequenceNode {
			return d.sequence(n)
		}
		return d.mapping(n)

	case yaml.ScalarNode:
		return fromScalar(n)
	}
	return Value{Kind: ValueNull}, nil
}

func (d *yamlDecoder) sequence(n *yaml.Node) (Value, error) {
	v := Value{Kind: ValueList, Raw: n.Value}
	for _, item := range n.Content {
		iv, err := d.value(item)
		if err != nil {
			return v, err
		}
		v.Items = append(v.Items, iv)
	}
	return v, nil
}

func (d *yamlDecoder) mapping(n *yaml.Node) (Value, error) {
	v := Value{Kind: ValueMap}
	for i := 0; i+1 < len(n.Content); i += 2 {
		val, err := d.value(n.Content[i+1])
		if err != nil {
			return v, err
		}
		v.Entries = append(v.Entries, ValueEntry{Key: n.Content[i].Value, Value: val})
	}
	return v, nil
}

func fromScalar(n *yaml.Node) (Value, error) {
	v := Value{Raw: n.Value}
	switch n.ShortTag() {
	case "!!int":
		if err := n.Decode(&v.Int); err != nil {
			return Value{Kind: ValueString, Str: n.Value, Raw: n.Value}, nil
		}
		v.Kind = ValueInt
	case "!!float":
		if err := n.Decode(&v.Float); err != nil {
			return Value{Kind: ValueString, Str: n.Value, Raw: n.Value}, nil
		}
		v.Kind = ValueFloat
	case "!!bool":
		if err := n.Decode(&v.Bool); err != nil {
			return Value{}, err
		}
		v.Kind = ValueBool
	case "!!null":
		v.Kind = ValueNull
	default:
		v.Kind = ValueString
		v.Str = n.Value
	}
	return v, nil
}
