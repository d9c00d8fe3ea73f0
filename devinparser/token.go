package devinparser

// TokenKind identifies the type of a lexical token.
type TokenKind int

const (
	TokenEOF         TokenKind = iota
	TokenTextSegment           // free text
	TokenWhiteSpace            // run of spaces/tabs
	TokenNewline               // \n or \r\n
	TokenComments              // // to end of line

	// Structural markers
	TokenFrontMatterStart // --- opening the document
	TokenFrontMatterEnd   // --- closing front matter
	TokenAgentStart       // @
	TokenCommandStart     // /
	TokenVariableStart    // $
	TokenSharp            // #
	TokenCodeBlockStart   // ``` (opening and closing fence)
	TokenCodeContent      // one line of fenced body

	TokenIdentifier  // [\pL_][\pL\pN_-]*
	TokenNumber      // [0-9]+(.[0-9]+)?
	TokenBoolean     // true | false
	TokenQuoteString // "..." or '...', delimiters included

	TokenColon  // :
	TokenLParen // (
	TokenRParen // )
	TokenEqEq   // ==
	TokenNotEq  // !=
	TokenEquals // =
	TokenNot    // !
	TokenLT     // <
	TokenGT     // >

	// Keywords (identifier text checked against keyword map)
	TokenIf      // if
	TokenElseIf  // elseif
	TokenElse    // else
	TokenEndIf   // endif
	TokenWhen    // when
	TokenCase    // case
	TokenDefault // default
	TokenEnd     // end
)

var tokenNames = map[TokenKind]string{
	TokenEOF:              "EOF",
	TokenTextSegment:      "TEXT_SEGMENT",
	TokenWhiteSpace:       "WHITE_SPACE",
	TokenNewline:          "NEWLINE",
	TokenComments:         "COMMENTS",
	TokenFrontMatterStart: "FRONTMATTER_START",
	TokenFrontMatterEnd:   "FRONTMATTER_END",
	TokenAgentStart:       "AGENT_START",
	TokenCommandStart:     "COMMAND_START",
	TokenVariableStart:    "VARIABLE_START",
	TokenSharp:            "SHARP",
	TokenCodeBlockStart:   "CODE_BLOCK_START",
	TokenCodeContent:      "CODE_CONTENT",
	TokenIdentifier:       "IDENTIFIER",
	TokenNumber:           "NUMBER",
	TokenBoolean:          "BOOLEAN",
	TokenQuoteString:      "QUOTE_STRING",
	TokenColon:            "COLON",
	TokenLParen:           "LPAREN",
	TokenRParen:           "RPAREN",
	TokenEqEq:             "EQEQ",
	TokenNotEq:            "NEQ",
	TokenEquals:           "EQUALS",
	TokenNot:              "NOT",
	TokenLT:               "LT",
	TokenGT:               "GT",
	TokenIf:               "IF",
	TokenElseIf:           "ELSEIF",
	TokenElse:             "ELSE",
	TokenEndIf:            "ENDIF",
	TokenWhen:             "WHEN",
	TokenCase:             "CASE",
	TokenDefault:          "DEFAULT",
	TokenEnd:              "END",
}

func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the kind by its name.
func (k TokenKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// IsKeyword reports whether k is one of the reserved expression keywords.
func (k TokenKind) IsKeyword() bool {
	return k >= TokenIf && k <= TokenEnd
}

// Token is a single lexical unit produced by the Lexer. Concatenating the
// Value of every token in order reproduces the source exactly.
type Token struct {
	Kind       TokenKind
	Value      string
	Pos        Position
	LineBreaks int // newlines contained in Value; 1 for NEWLINE, 0 otherwise
}

// End returns the byte offset just past the token.
func (t Token) End() int { return t.Pos.Offset + len(t.Value) }

// isBlank reports whether the token carries no content of its own.
func (t Token) isBlank() bool {
	return t.Kind == TokenWhiteSpace || t.Kind == TokenNewline
}

// keywords maps keyword strings to their token kinds.
var keywords = map[string]TokenKind{
	"if":      TokenIf,
	"elseif":  TokenElseIf,
	"else":    TokenElse,
	"endif":   TokenEndIf,
	"when":    TokenWhen,
	"case":    TokenCase,
	"default": TokenDefault,
	"end":     TokenEnd,
	"true":    TokenBoolean,
	"false":   TokenBoolean,
}

// lineKeywords may open a line in text mode (branches of a #when body).
var lineKeywords = map[string]bool{
	"case":    true,
	"default": true,
	"end":     true,
}
