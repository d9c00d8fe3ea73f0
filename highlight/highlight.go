// Package highlight renders DevIns source with terminal colors, driven by
// the token stream of devinparser.
package highlight

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/martinemde/devins/devinparser"
)

// Class is the highlighting category of a span of source.
type Class int

const (
	ClassText Class = iota
	ClassMarker
	ClassAgent
	ClassCommand
	ClassVariable
	ClassKeyword
	ClassString
	ClassNumber
	ClassOperator
	ClassComment
	ClassCode
	ClassFrontMatter
)

var classNames = [...]string{
	ClassText:        "text",
	ClassMarker:      "marker",
	ClassAgent:       "agent",
	ClassCommand:     "command",
	ClassVariable:    "variable",
	ClassKeyword:     "keyword",
	ClassString:      "string",
	ClassNumber:      "number",
	ClassOperator:    "operator",
	ClassComment:     "comment",
	ClassCode:        "code",
	ClassFrontMatter: "frontmatter",
}

func (c Class) String() string {
	if c >= 0 && int(c) < len(classNames) {
		return classNames[c]
	}
	return "unknown"
}

// Span is a classified byte range of the source.
type Span struct {
	Start int
	End   int
	Class Class
}

// Colors
var (
	colorMarker   = lipgloss.Color("#7C3AED")
	colorAgent    = lipgloss.Color("#10B981")
	colorCommand  = lipgloss.Color("#06B6D4")
	colorVariable = lipgloss.Color("#F59E0B")
	colorKeyword  = lipgloss.Color("#8B5CF6")
	colorString   = lipgloss.Color("#84CC16")
	colorNumber   = lipgloss.Color("#F97316")
	colorMuted    = lipgloss.Color("#6B7280")
	colorCode     = lipgloss.Color("#94A3B8")
)

// Theme maps classes to styles. Classes without a style are written as is.
type Theme map[Class]lipgloss.Style

// DefaultTheme builds the standard theme for a renderer.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	base := r.NewStyle().TabWidth(lipgloss.NoTabConversion)
	return Theme{
		ClassMarker:      base.Foreground(colorMarker).Bold(true),
		ClassAgent:       base.Foreground(colorAgent).Bold(true),
		ClassCommand:     base.Foreground(colorCommand).Bold(true),
		ClassVariable:    base.Foreground(colorVariable),
		ClassKeyword:     base.Foreground(colorKeyword).Bold(true),
		ClassString:      base.Foreground(colorString),
		ClassNumber:      base.Foreground(colorNumber),
		ClassOperator:    base.Foreground(colorMarker),
		ClassComment:     base.Foreground(colorMuted).Italic(true),
		ClassCode:        base.Foreground(colorCode),
		ClassFrontMatter: base.Foreground(colorMuted),
	}
}

// Highlighter renders source for one output.
type Highlighter struct {
	renderer *lipgloss.Renderer
	theme    Theme
	color    bool
}

// Option configures a Highlighter.
type Option func(*Highlighter)

// WithColor forces colors on or off regardless of the output terminal.
func WithColor(on bool) Option {
	return func(h *Highlighter) {
		if on {
			h.renderer.SetColorProfile(termenv.ANSI256)
		} else {
			h.renderer.SetColorProfile(termenv.Ascii)
		}
	}
}

// WithTheme replaces the default theme.
func WithTheme(theme Theme) Option {
	return func(h *Highlighter) { h.theme = theme }
}

// New creates a Highlighter whose color support is detected from w.
func New(w io.Writer, opts ...Option) *Highlighter {
	h := &Highlighter{renderer: lipgloss.NewRenderer(w)}
	h.theme = DefaultTheme(h.renderer)
	for _, opt := range opts {
		opt(h)
	}
	h.color = h.renderer.ColorProfile() != termenv.Ascii
	return h
}

// Render returns src with every span styled. Without color support the
// output equals src byte for byte.
func (h *Highlighter) Render(src string) string {
	if !h.color {
		return src
	}
	var sb strings.Builder
	sb.Grow(len(src) * 2)
	for _, span := range Spans(src) {
		text := src[span.Start:span.End]
		style, ok := h.theme[span.Class]
		if !ok || strings.TrimSpace(text) == "" {
			sb.WriteString(text)
			continue
		}
		sb.WriteString(style.Render(text))
	}
	return sb.String()
}

// Spans classifies src into contiguous spans covering every byte. Adjacent
// tokens of the same class are merged; whitespace is always ClassText.
func Spans(src string) []Span {
	var (
		spans       []Span
		prev        devinparser.TokenKind
		frontMatter bool
	)
	add := func(start, end int, class Class) {
		if n := len(spans); n > 0 && spans[n-1].Class == class && spans[n-1].End == start {
			spans[n-1].End = end
			return
		}
		spans = append(spans, Span{Start: start, End: end, Class: class})
	}

	for _, tok := range devinparser.Tokenize(src) {
		if tok.Kind == devinparser.TokenEOF {
			break
		}
		class := classify(tok.Kind, prev)
		switch tok.Kind {
		case devinparser.TokenFrontMatterStart:
			frontMatter = tok.Pos.Offset == firstContent(src)
		case devinparser.TokenFrontMatterEnd:
			frontMatter = false
			class = ClassMarker
		default:
			if frontMatter && class == ClassText {
				class = ClassFrontMatter
			}
		}
		if tok.Kind == devinparser.TokenWhiteSpace || tok.Kind == devinparser.TokenNewline {
			// Styled spans never contain line breaks.
			class = ClassText
		} else {
			prev = tok.Kind
		}
		add(tok.Pos.Offset, tok.End(), class)
	}
	return spans
}

func classify(kind, prev devinparser.TokenKind) Class {
	switch kind {
	case devinparser.TokenAgentStart, devinparser.TokenCommandStart, devinparser.TokenVariableStart,
		devinparser.TokenSharp, devinparser.TokenFrontMatterStart, devinparser.TokenCodeBlockStart:
		return ClassMarker
	case devinparser.TokenIdentifier:
		switch prev {
		case devinparser.TokenAgentStart:
			return ClassAgent
		case devinparser.TokenCommandStart:
			return ClassCommand
		case devinparser.TokenVariableStart:
			return ClassVariable
		case devinparser.TokenCodeBlockStart:
			return ClassKeyword
		}
		return ClassText
	case devinparser.TokenQuoteString:
		if prev == devinparser.TokenAgentStart {
			return ClassAgent
		}
		return ClassString
	case devinparser.TokenNumber, devinparser.TokenBoolean:
		return ClassNumber
	case devinparser.TokenColon, devinparser.TokenLParen, devinparser.TokenRParen, devinparser.TokenEqEq,
		devinparser.TokenNotEq, devinparser.TokenEquals, devinparser.TokenNot, devinparser.TokenLT, devinparser.TokenGT:
		return ClassOperator
	case devinparser.TokenComments:
		return ClassComment
	case devinparser.TokenCodeContent:
		return ClassCode
	}
	if kind.IsKeyword() {
		return ClassKeyword
	}
	return ClassText
}

// firstContent returns the offset of the first non-blank byte of src.
func firstContent(src string) int {
	return len(src) - len(strings.TrimLeft(src, " \t\r\n\f\v"))
}
