package devinparser

import (
	"fmt"
	"log/slog"
	"strings"
)

// DefaultMaxDepth bounds the nesting of expression blocks.
const DefaultMaxDepth = 64

// Parser parses DevIns documents. A Parser holds only configuration and is
// safe for concurrent use; every call owns its own cursor state.
type Parser struct {
	logger   *slog.Logger
	maxDepth int
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger enables debug logging of lexer and parser summaries.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

// WithMaxDepth sets how deeply expression blocks may nest. Deeper blocks
// are kept as text and reported.
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		if depth > 0 {
			p.maxDepth = depth
		}
	}
}

// NewParser creates a Parser with the given options.
func NewParser(opts ...Option) *Parser {
	p := &Parser{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// Parse parses a complete document into a FILE node. It never fails:
// malformed input yields a best-effort tree plus errors.
func Parse(src string) *ParseResult {
	return defaultParser.Parse(src)
}

// ParseRule parses src as a single grammar production. See Rules for the
// accepted names.
func ParseRule(rule, src string) *ParseResult {
	return defaultParser.ParseRule(rule, src)
}

// Parse parses a complete document into a FILE node.
func (p *Parser) Parse(src string) *ParseResult {
	s := p.newState(src)
	root := s.parseFile()
	if p.logger != nil {
		p.logger.Debug("parse complete",
			slog.String("component", "parser"),
			slog.Int("blocks", len(root.Children)),
			slog.Int("errors", len(s.errors)))
	}
	return &ParseResult{AST: root, Errors: s.errors}
}

// state is the cursor of a single parse call.
type state struct {
	src      string
	tokens   []Token
	pos      int
	errors   []error
	maxDepth int
}

func (p *Parser) newState(src string) *state {
	lex := NewLexer(src)
	if p.logger != nil {
		lex.logger = p.logger.With(slog.String("component", "lexer"))
	}
	return &state{
		src:      src,
		tokens:   lex.All(),
		errors:   []error{},
		maxDepth: p.maxDepth,
	}
}

func (s *state) peek() Token {
	return s.peekAt(0)
}

func (s *state) peekAt(n int) Token {
	if s.pos+n < len(s.tokens) {
		return s.tokens[s.pos+n]
	}
	return s.tokens[len(s.tokens)-1]
}

func (s *state) next() Token {
	tok := s.peek()
	if tok.Kind != TokenEOF {
		s.pos++
	}
	return tok
}

func (s *state) atEOF() bool {
	return s.peek().Kind == TokenEOF
}

// offset returns the byte offset of the token at the cursor.
func (s *state) offset() int {
	return s.peek().Pos.Offset
}

func (s *state) skipSpace() {
	for s.peek().Kind == TokenWhiteSpace {
		s.next()
	}
}

func (s *state) skipBlank() {
	for s.peek().isBlank() {
		s.next()
	}
}

// skipLine advances to the line terminator (not consuming it) and returns
// the byte offset where the line content ends.
func (s *state) skipLine() int {
	for !s.atEOF() && s.peek().Kind != TokenNewline {
		s.next()
	}
	return s.offset()
}

// atLineStart reports whether only whitespace precedes the cursor on its line.
func (s *state) atLineStart() bool {
	for i := s.pos - 1; i >= 0; i-- {
		switch s.tokens[i].Kind {
		case TokenWhiteSpace:
			continue
		case TokenNewline:
			return true
		default:
			return false
		}
	}
	return true
}

func (s *state) errorf(pos Position, format string, args ...any) {
	s.errors = append(s.errors, &ParseError{Message: fmt.Sprintf(format, args...), Pos: pos})
}

// contentRange returns the first and last non-blank token in tokens[from:to].
func (s *state) contentRange(from, to int) (first, last int, ok bool) {
	first, last = from, to-1
	for first <= last && s.tokens[first].isBlank() {
		first++
	}
	for last >= first && s.tokens[last].isBlank() {
		last--
	}
	return first, last, first <= last
}

func (s *state) newNode(kind NodeKind, first Token, end int) *Node {
	return &Node{Kind: kind, Pos: first.Pos, Start: first.Pos.Offset, End: end}
}

func (s *state) parseFile() *Node {
	root := &Node{
		Kind:  NodeFile,
		Pos:   Position{Line: 1, Column: 1},
		Start: 0,
		End:   len(s.src),
	}
	if header := s.parseFrontMatter(); header != nil {
		root.Children = append(root.Children, header)
	}
	root.Children = append(root.Children, s.parseBody(0, nil)...)
	return root
}

// parseBody parses blocks and free text until stop reports a terminator or
// the input ends. Free text between blocks becomes TEXT nodes; runs of pure
// whitespace are dropped.
func (s *state) parseBody(depth int, stop func() bool) []*Node {
	var nodes []*Node
	textStart := -1
	flush := func(end int) {
		if textStart < 0 {
			return
		}
		if n := s.textNode(textStart, end); n != nil {
			nodes = append(nodes, n)
		}
		textStart = -1
	}

	for !s.atEOF() {
		if stop != nil && stop() {
			break
		}
		start := s.pos
		if n := s.parseBlock(depth); n != nil {
			flush(start)
			nodes = append(nodes, n)
			continue
		}
		if textStart < 0 {
			textStart = s.pos
		}
		s.next()
	}
	flush(s.pos)
	return nodes
}

func (s *state) textNode(from, to int) *Node {
	first, last, ok := s.contentRange(from, to)
	if !ok {
		return nil
	}
	n := s.newNode(NodeText, s.tokens[first], s.tokens[last].End())
	n.Text = s.src[n.Start:n.End]
	return n
}

// parseBlock tries the block grammars in priority order at the cursor.
// A grammar that does not match leaves the cursor unchanged.
func (s *state) parseBlock(depth int) *Node {
	switch s.peek().Kind {
	case TokenAgentStart:
		return s.parseAgent()
	case TokenCommandStart:
		return s.parseCommand()
	case TokenVariableStart:
		return s.parseVariable()
	case TokenSharp:
		return s.parseExpression(depth)
	case TokenCodeBlockStart:
		return s.parseCode()
	case TokenComments:
		return s.parseComment()
	}
	return nil
}

func (s *state) parseAgent() *Node {
	start := s.pos
	at := s.next()
	if at.Kind != TokenAgentStart {
		s.pos = start
		return nil
	}

	name := s.peek()
	agent := &Agent{}
	switch name.Kind {
	case TokenIdentifier:
		agent.Name = name.Value
	case TokenQuoteString:
		agent.Name = unquote(name.Value)
		agent.Quoted = true
	default:
		s.pos = start
		return nil
	}
	s.next()

	n := s.newNode(NodeAgentBlock, at, name.End())
	n.Agent = agent
	return n
}

func (s *state) parseCommand() *Node {
	start := s.pos
	slash := s.next()
	name := s.peek()
	if slash.Kind != TokenCommandStart || !(name.Kind == TokenIdentifier || name.Kind.IsKeyword()) {
		s.pos = start
		return nil
	}
	s.next()

	cmd := &Command{Name: name.Value}
	end := name.End()
	if s.peek().Kind == TokenColon {
		cmd.HasColon = true
		end = s.next().End()
	}

	from := s.pos
	s.skipLine()
	if first, last, ok := s.contentRange(from, s.pos); ok {
		cmd.Args = s.src[s.tokens[first].Pos.Offset:s.tokens[last].End()]
		end = s.tokens[last].End()
	}

	n := s.newNode(NodeCommandBlock, slash, end)
	n.Command = cmd
	return n
}

func (s *state) parseVariable() *Node {
	start := s.pos
	dollar := s.next()
	name := s.peek()
	if dollar.Kind != TokenVariableStart || name.Kind != TokenIdentifier {
		s.pos = start
		return nil
	}
	s.next()

	v := &Variable{Name: name.Value}
	end := name.End()

	save := s.pos
	s.skipSpace()
	if s.peek().Kind != TokenEquals {
		// Bare reference: $name
		s.pos = save
	} else {
		eq := s.next()
		end = eq.End()
		from := s.pos
		s.skipLine()
		first, last, ok := s.contentRange(from, s.pos)
		if !ok {
			s.errorf(eq.Pos, "missing value in assignment to $%s", v.Name)
			v.Value = &Value{Kind: ValueNull}
		} else {
			end = s.tokens[last].End()
			v.Raw = s.src[s.tokens[first].Pos.Offset:end]
			value, err := s.literal(first, last, v.Raw)
			if err != nil {
				s.errorf(s.tokens[first].Pos, "invalid value for $%s: %v", v.Name, err)
			}
			v.Value = &value
		}
	}

	n := s.newNode(NodeVariableBlock, dollar, end)
	n.Variable = v
	return n
}

// literal converts tokens[first..last] to a value: a single literal token
// directly, anything else through YAML.
func (s *state) literal(first, last int, raw string) (Value, error) {
	if first == last {
		tok := s.tokens[first]
		if IsLiteral(tok.Kind) || tok.Kind == TokenIdentifier {
			return ParseValue(tok)
		}
	}
	return DecodeValue(raw)
}

func (s *state) parseComment() *Node {
	tok := s.next()
	n := s.newNode(NodeComments, tok, tok.End())
	n.Text = tok.Value
	return n
}

func (s *state) parseCode() *Node {
	open := s.next()
	code := &Code{}
	if tok := s.peek(); tok.Kind == TokenIdentifier {
		code.Language = tok.Value
		s.next()
	}
	s.skipLine()
	if s.peek().Kind == TokenNewline {
		s.next()
	}

	bodyStart := s.pos
	for !s.atEOF() && s.peek().Kind != TokenCodeBlockStart {
		s.next()
	}
	bodyEnd := s.pos

	end := s.tokens[s.pos-1].End()
	if s.peek().Kind == TokenCodeBlockStart {
		code.Closed = true
		end = s.next().End()
		// The fence line's indentation and the newline before it are not body.
		if bodyEnd > bodyStart && s.tokens[bodyEnd-1].Kind == TokenWhiteSpace {
			bodyEnd--
		}
		if bodyEnd > bodyStart && s.tokens[bodyEnd-1].Kind == TokenNewline {
			bodyEnd--
		}
	}
	if bodyEnd > bodyStart {
		code.Body = s.src[s.tokens[bodyStart].Pos.Offset:s.tokens[bodyEnd-1].End()]
	}

	n := s.newNode(NodeCodeBlock, open, end)
	n.Code = code
	return n
}

// parseExpression parses #if ... #endif and #when ... #end blocks. The
// keyword must follow the # directly.
func (s *state) parseExpression(depth int) *Node {
	start := s.pos
	sharp := s.next()
	kw := s.peek()
	if sharp.Kind != TokenSharp || (kw.Kind != TokenIf && kw.Kind != TokenWhen) {
		s.pos = start
		return nil
	}
	if depth >= s.maxDepth {
		s.errorf(sharp.Pos, "expression blocks nested deeper than %d levels", s.maxDepth)
		s.pos = start
		return nil
	}
	s.next()

	n := s.newNode(NodeExpressionBlock, sharp, kw.End())
	expr := &Expression{Keyword: kw.Value, Depth: depth}
	n.Expression = expr
	if kw.Kind == TokenIf {
		s.parseIfBranches(n, sharp, depth)
	} else {
		s.parseWhenBranches(n, depth)
	}
	for _, b := range expr.Branches {
		n.Children = append(n.Children, b.Children...)
	}
	return n
}

func (s *state) parseIfBranches(n *Node, sharp Token, depth int) {
	expr := n.Expression
	branch := &Branch{Kind: BranchIf, Pos: sharp.Pos}
	branch.Condition, n.End = s.parseCondition(sharp.Pos, n.End)

	for {
		branch.Children = s.parseBody(depth+1, s.atIfTerminator)
		expr.Branches = append(expr.Branches, branch)
		if last := lastEnd(branch.Children); last > n.End {
			n.End = last
		}
		if s.atEOF() {
			return
		}

		sh := s.next()
		kw := s.next()
		n.End = kw.End()
		switch kw.Kind {
		case TokenElseIf:
			branch = &Branch{Kind: BranchElseIf, Pos: sh.Pos}
			branch.Condition, n.End = s.parseCondition(sh.Pos, n.End)
		case TokenElse:
			branch = &Branch{Kind: BranchElse, Pos: sh.Pos}
			s.skipLine()
		default:
			expr.Closed = true
			return
		}
	}
}

func (s *state) atIfTerminator() bool {
	if s.peek().Kind != TokenSharp {
		return false
	}
	switch s.peekAt(1).Kind {
	case TokenElseIf, TokenElse, TokenEndIf:
		return true
	}
	return false
}

// parseCondition consumes the rest of the line as an #if / #elseif guard.
// It returns the condition and the end offset of its text (or end when the
// line is empty).
func (s *state) parseCondition(at Position, end int) (*Condition, int) {
	from := s.pos
	s.skipLine()
	first, last, ok := s.contentRange(from, s.pos)
	if !ok {
		s.errorf(at, "missing condition")
		return &Condition{}, end
	}
	end = s.tokens[last].End()
	cond := &Condition{Raw: s.src[s.tokens[first].Pos.Offset:end]}

	var toks []Token
	for _, tok := range s.tokens[first : last+1] {
		if tok.Kind != TokenWhiteSpace {
			toks = append(toks, tok)
		}
	}
	if len(toks) >= 2 && toks[0].Kind == TokenLParen && toks[len(toks)-1].Kind == TokenRParen {
		toks = toks[1 : len(toks)-1]
	}
	cond.Valid = fillCondition(cond, toks)
	if !cond.Valid {
		s.errorf(s.tokens[first].Pos, "malformed condition %q", cond.Raw)
	}
	return cond, end
}

// fillCondition matches  [!] [$]name  or  [$]name (==|!=) operand.
func fillCondition(cond *Condition, toks []Token) bool {
	i := 0
	take := func(kind TokenKind) bool {
		if i < len(toks) && toks[i].Kind == kind {
			i++
			return true
		}
		return false
	}

	cond.Negated = take(TokenNot)
	take(TokenVariableStart)
	if i >= len(toks) || toks[i].Kind != TokenIdentifier {
		return false
	}
	cond.Subject = toks[i].Value
	i++
	if i == len(toks) {
		return true
	}
	if cond.Negated || (toks[i].Kind != TokenEqEq && toks[i].Kind != TokenNotEq) {
		return false
	}
	cond.Op = toks[i].Value
	i++
	take(TokenVariableStart)
	if i != len(toks)-1 {
		return false
	}
	operand := toks[i]
	if !IsLiteral(operand.Kind) && operand.Kind != TokenIdentifier {
		return false
	}
	v, err := ParseValue(operand)
	if err != nil {
		return false
	}
	cond.Value = &v
	return true
}

func (s *state) parseWhenBranches(n *Node, depth int) {
	expr := n.Expression

	from := s.pos
	s.skipLine()
	if first, last, ok := s.contentRange(from, s.pos); ok {
		n.End = s.tokens[last].End()
		for _, tok := range s.tokens[first : last+1] {
			if tok.Kind == TokenIdentifier {
				expr.Subject = tok.Value
				break
			}
		}
	}
	if expr.Subject == "" {
		s.errorf(n.Pos, "missing #when subject")
	}

	if stray := s.parseBody(depth+1, s.atWhenTerminator); len(stray) > 0 {
		s.errorf(stray[0].Pos, "content before the first case of #when is ignored")
	}

	for !s.atEOF() {
		if s.peek().Kind == TokenSharp {
			s.next()
		}
		kw := s.next()
		n.End = kw.End()

		var branch *Branch
		switch kw.Kind {
		case TokenCase:
			branch = &Branch{Kind: BranchCase, Pos: kw.Pos}
			branch.Match, n.End = s.parseCaseValue(kw, n.End)
		case TokenDefault:
			branch = &Branch{Kind: BranchDefault, Pos: kw.Pos}
			s.skipLine()
		default:
			expr.Closed = true
			return
		}
		branch.Children = s.parseBody(depth+1, s.atWhenTerminator)
		expr.Branches = append(expr.Branches, branch)
		if last := lastEnd(branch.Children); last > n.End {
			n.End = last
		}
	}
}

func (s *state) atWhenTerminator() bool {
	tok := s.peek()
	if tok.Kind == TokenSharp {
		tok = s.peekAt(1)
	} else if !s.atLineStart() {
		return false
	}
	switch tok.Kind {
	case TokenCase, TokenDefault, TokenEnd:
		return true
	}
	return false
}

func (s *state) parseCaseValue(kw Token, end int) (*Value, int) {
	from := s.pos
	s.skipLine()
	first, last, ok := s.contentRange(from, s.pos)
	if !ok {
		s.errorf(kw.Pos, "missing case value")
		return nil, end
	}
	end = s.tokens[last].End()
	raw := strings.TrimSpace(s.src[s.tokens[first].Pos.Offset:end])
	v, err := s.literal(first, last, raw)
	if err != nil {
		s.errorf(s.tokens[first].Pos, "invalid case value %q: %v", raw, err)
	}
	return &v, end
}

func lastEnd(nodes []*Node) int {
	if len(nodes) == 0 {
		return 0
	}
	return nodes[len(nodes)-1].End
}
