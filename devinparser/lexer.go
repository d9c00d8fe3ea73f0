package devinparser

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"
)

// lexMode selects how the characters after a marker are classified.
type lexMode int

const (
	modeText  lexMode = iota // prose: words, whitespace, markers at word boundaries
	modeLine                 // structured until end of line: identifiers, literals, operators
	modeAgent                // exactly one agent name, then back to resume
)

// Lexer tokenizes DevIns source text into a lossless stream of tokens.
// It never fails: every byte of input belongs to exactly one token.
type Lexer struct {
	src    string
	pos    int // current byte offset
	line   int // current line (1-based)
	col    int // current column in runes (1-based)
	peeked *Token

	mode        lexMode
	resume      lexMode
	lineStart   bool // only whitespace seen on the current line
	boundary    bool // previous character was whitespace or start of input
	seenContent bool // a non-blank token has been emitted
	frontMatter bool // between the opening and closing ---
	fmDone      bool // front matter already opened once
	code        bool // inside a fenced code body
	codeOpener  bool // on the line of an opening fence
	langPending bool // language id may follow the opening fence

	logger *slog.Logger
}

// NewLexer creates a new Lexer for the given source text.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1, lineStart: true, boundary: true}
}

// Tokenize returns every token of src, ending with a single EOF token.
func Tokenize(src string) []Token {
	return NewLexer(src).All()
}

// All drains the lexer and returns the remaining tokens including EOF.
func (l *Lexer) All() []Token {
	tokens := make([]Token, 0, len(l.src)/4+1)
	for {
		tok := l.Next()
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			break
		}
	}
	if l.logger != nil {
		l.logger.Debug("tokenized", slog.Int("tokens", len(tokens)), slog.Int("bytes", len(l.src)))
	}
	return tokens
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() Token {
	if l.peeked != nil {
		return *l.peeked
	}
	tok := l.scan()
	l.peeked = &tok
	return tok
}

// Next returns the next token and advances the lexer.
func (l *Lexer) Next() Token {
	if l.peeked != nil {
		tok := *l.peeked
		l.peeked = nil
		return tok
	}
	return l.scan()
}

func (l *Lexer) currentPos() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.pos}
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.src)
}

func (l *Lexer) peekByte(ahead int) byte {
	if l.pos+ahead >= len(l.src) {
		return 0
	}
	return l.src[l.pos+ahead]
}

func (l *Lexer) peekRune() rune {
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func (l *Lexer) hasPrefix(s string) bool {
	return strings.HasPrefix(l.src[l.pos:], s)
}

// emit consumes n bytes as a token of the given kind and updates the
// position counters and line-state flags.
func (l *Lexer) emit(kind TokenKind, n int) Token {
	tok := Token{Kind: kind, Value: l.src[l.pos : l.pos+n], Pos: l.currentPos()}
	l.pos += n

	switch kind {
	case TokenNewline:
		tok.LineBreaks = 1
		l.line++
		l.col = 1
		l.lineStart = true
		l.boundary = true
		if l.codeOpener {
			l.codeOpener = false
			l.code = true
		}
		l.langPending = false
		if l.frontMatter {
			l.mode = modeLine
		} else {
			l.mode = modeText
		}
	case TokenWhiteSpace:
		l.col += utf8.RuneCountInString(tok.Value)
		l.boundary = true
	default:
		l.col += utf8.RuneCountInString(tok.Value)
		l.lineStart = false
		l.boundary = false
		l.seenContent = true
	}
	return tok
}

func (l *Lexer) scan() Token {
	if l.atEnd() {
		return Token{Kind: TokenEOF, Pos: l.currentPos()}
	}

	if n := l.newlineLen(); n > 0 {
		return l.emit(TokenNewline, n)
	}

	if l.code {
		return l.scanCodeLine()
	}

	if l.langPending {
		l.langPending = false
		if n := l.runLen(func(r rune) bool { return !isSpaceRune(r) }); n > 0 {
			return l.emit(TokenIdentifier, n)
		}
	}

	if l.lineStart {
		if tok, ok := l.scanLineStart(); ok {
			return tok
		}
	}

	switch l.mode {
	case modeAgent:
		return l.scanAgentName()
	case modeLine:
		return l.scanLineToken()
	default:
		return l.scanText()
	}
}

// newlineLen returns the length of the line terminator at the cursor, or 0.
func (l *Lexer) newlineLen() int {
	switch l.peekByte(0) {
	case '\n':
		return 1
	case '\r':
		if l.peekByte(1) == '\n' {
			return 2
		}
	}
	return 0
}

// lineEnd returns the byte offset of the terminator ending the current line.
func (l *Lexer) lineEnd() int {
	i := strings.IndexByte(l.src[l.pos:], '\n')
	if i < 0 {
		return len(l.src)
	}
	end := l.pos + i
	if end > l.pos && l.src[end-1] == '\r' {
		end--
	}
	return end
}

// spaceLen returns the length of the whitespace run at the cursor.
func (l *Lexer) spaceLen() int {
	n := 0
	for l.pos+n < len(l.src) {
		ch := l.src[l.pos+n]
		if ch == ' ' || ch == '\t' || ch == '\f' || ch == '\v' {
			n++
			continue
		}
		if ch == '\r' && (l.pos+n+1 >= len(l.src) || l.src[l.pos+n+1] != '\n') {
			n++
			continue
		}
		break
	}
	return n
}

// runLen returns the byte length of the rune run at the cursor that satisfies
// keep, stopping at line terminators.
func (l *Lexer) runLen(keep func(rune) bool) int {
	n := 0
	for l.pos+n < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos+n:])
		if r == '\n' || (r == '\r' && l.pos+n+1 < len(l.src) && l.src[l.pos+n+1] == '\n') || !keep(r) {
			break
		}
		n += size
	}
	return n
}

func (l *Lexer) scanCodeLine() Token {
	indent := l.spaceLen()
	if strings.HasPrefix(l.src[l.pos+indent:], "```") {
		if indent > 0 {
			return l.emit(TokenWhiteSpace, indent)
		}
		l.code = false
		l.mode = modeText
		return l.emit(TokenCodeBlockStart, 3)
	}
	return l.emit(TokenCodeContent, l.lineEnd()-l.pos)
}

// scanLineStart handles constructs that are only recognized as the first
// non-blank text on a line: fences, front matter, comments and the bare
// branch keywords of a #when body.
func (l *Lexer) scanLineStart() (Token, bool) {
	if n := l.spaceLen(); n > 0 {
		return l.emit(TokenWhiteSpace, n), true
	}

	switch {
	case l.hasPrefix("---"):
		switch {
		case l.frontMatter:
			l.frontMatter = false
			l.mode = modeText
			return l.emit(TokenFrontMatterEnd, 3), true
		case !l.seenContent && !l.fmDone:
			l.frontMatter = true
			l.fmDone = true
			l.mode = modeLine
			return l.emit(TokenFrontMatterStart, 3), true
		default:
			return l.emit(TokenFrontMatterStart, 3), true
		}

	case l.frontMatter:
		return Token{}, false

	case l.hasPrefix("```"):
		l.codeOpener = true
		l.langPending = true
		return l.emit(TokenCodeBlockStart, 3), true

	case l.hasPrefix("//"):
		return l.emit(TokenComments, l.lineEnd()-l.pos), true
	}

	// Bare branch keywords only count at column 1.
	if l.mode == modeText && l.col == 1 && isIdentStart(l.peekRune()) {
		n := l.runLen(isIdentPart)
		word := l.src[l.pos : l.pos+n]
		if lineKeywords[word] {
			if word != "end" {
				l.mode = modeLine
			}
			return l.emit(keywords[word], n), true
		}
	}
	return Token{}, false
}

// scanMarker emits a block marker if one starts at a word boundary.
func (l *Lexer) scanMarker() (Token, bool) {
	if !l.boundary {
		return Token{}, false
	}
	switch l.peekByte(0) {
	case '@':
		l.resume = l.mode
		tok := l.emit(TokenAgentStart, 1)
		l.mode = modeAgent
		return tok, true
	case '/':
		l.mode = modeLine
		return l.emit(TokenCommandStart, 1), true
	case '$':
		l.mode = modeLine
		return l.emit(TokenVariableStart, 1), true
	case '#':
		l.mode = modeLine
		return l.emit(TokenSharp, 1), true
	}
	return Token{}, false
}

func (l *Lexer) scanText() Token {
	if n := l.spaceLen(); n > 0 {
		return l.emit(TokenWhiteSpace, n)
	}
	if tok, ok := l.scanMarker(); ok {
		return tok
	}
	n := l.runLen(func(r rune) bool { return !isSpaceRune(r) })
	if n == 0 {
		n = 1
	}
	return l.emit(TokenTextSegment, n)
}

func (l *Lexer) scanAgentName() Token {
	l.mode = l.resume
	r := l.peekRune()
	switch {
	case isIdentStart(r):
		return l.emit(TokenIdentifier, l.runLen(isIdentPart))
	case r == '"' || r == '\'':
		return l.scanQuoted()
	}
	return l.scan()
}

func (l *Lexer) scanLineToken() Token {
	if n := l.spaceLen(); n > 0 {
		return l.emit(TokenWhiteSpace, n)
	}
	if tok, ok := l.scanMarker(); ok {
		return tok
	}

	r := l.peekRune()
	switch {
	case r == '"' || r == '\'':
		return l.scanQuoted()
	case isDigit(r):
		return l.scanNumber()
	case isIdentStart(r):
		n := l.runLen(isIdentPart)
		if kind, ok := keywords[l.src[l.pos:l.pos+n]]; ok {
			return l.emit(kind, n)
		}
		return l.emit(TokenIdentifier, n)
	}

	switch {
	case l.hasPrefix("=="):
		return l.emit(TokenEqEq, 2)
	case l.hasPrefix("!="):
		return l.emit(TokenNotEq, 2)
	}
	switch r {
	case '$':
		// Operands such as ($x == 1) reference variables without a boundary.
		return l.emit(TokenVariableStart, 1)
	case '=':
		return l.emit(TokenEquals, 1)
	case '!':
		return l.emit(TokenNot, 1)
	case ':':
		return l.emit(TokenColon, 1)
	case '(':
		return l.emit(TokenLParen, 1)
	case ')':
		return l.emit(TokenRParen, 1)
	case '<':
		return l.emit(TokenLT, 1)
	case '>':
		return l.emit(TokenGT, 1)
	}

	// Anything else is text up to the next character the line grammar knows.
	_, first := utf8.DecodeRuneInString(l.src[l.pos:])
	saved := l.pos
	l.pos += first
	rest := l.runLen(func(r rune) bool { return !stopsLineText(r) })
	l.pos = saved
	return l.emit(TokenTextSegment, first+rest)
}

// scanQuoted consumes a quoted string including its delimiters. An
// unterminated string runs to the end of the line.
func (l *Lexer) scanQuoted() Token {
	quote := l.src[l.pos]
	end := l.lineEnd()
	i := l.pos + 1
	for i < end {
		ch := l.src[i]
		if ch == '\\' && i+1 < end {
			i += 2
			continue
		}
		i++
		if ch == quote {
			break
		}
	}
	if i > end {
		i = end
	}
	return l.emit(TokenQuoteString, i-l.pos)
}

func (l *Lexer) scanNumber() Token {
	n := l.runLen(isDigit)
	if l.peekByte(n) == '.' && isDigit(rune(l.peekByte(n+1))) {
		saved := l.pos
		l.pos += n + 1
		n += 1 + l.runLen(isDigit)
		l.pos = saved
	}
	return l.emit(TokenNumber, n)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isSpaceRune(r rune) bool {
	return r == ' ' || r == '\t' || r == '\f' || r == '\v' || r == '\r'
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r) || r == '-'
}

// stopsLineText reports whether r begins a token the line grammar classifies.
func stopsLineText(r rune) bool {
	if isSpaceRune(r) || isDigit(r) || isIdentStart(r) {
		return true
	}
	return strings.ContainsRune("\"'=!:()<>$", r)
}
