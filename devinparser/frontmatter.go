package devinparser

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decode unmarshals the front matter into out through YAML, so typed
// configuration structs can be filled with the usual yaml tags.
func (f *FrontMatter) Decode(out any) error {
	if err := yaml.Unmarshal([]byte(f.YAML()), out); err != nil {
		return fmt.Errorf("decoding front matter: %w", err)
	}
	return nil
}

// YAML renders the entries back to a YAML mapping in source order.
func (f *FrontMatter) YAML() string {
	var sb strings.Builder
	for _, e := range f.Entries {
		key := e.Key
		if strings.ContainsAny(key, ": #") {
			key = strconv.Quote(key)
		}
		sb.WriteString(key)
		sb.WriteByte(':')
		if e.Raw != "" && !strings.HasPrefix(e.Raw, "\n") {
			sb.WriteByte(' ')
		}
		sb.WriteString(e.Raw)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// parseFrontMatter parses a --- delimited header. It only matches when the
// header is the first non-blank construct at the cursor.
func (s *state) parseFrontMatter() *Node {
	start := s.pos
	s.skipBlank()
	open := s.peek()
	if open.Kind != TokenFrontMatterStart {
		s.pos = start
		return nil
	}
	s.next()
	s.skipLine()

	fm := &FrontMatter{}
	node := &Node{Kind: NodeFrontMatterHeader, Pos: open.Pos, Start: open.Pos.Offset, FrontMatter: fm}
	end := open.End()

loop:
	for !s.atEOF() {
		tok := s.peek()
		switch {
		case tok.Kind == TokenFrontMatterEnd || tok.Kind == TokenFrontMatterStart:
			s.next()
			fm.Closed = true
			end = tok.End()
			break loop

		case tok.Kind == TokenNewline:
			s.next()

		case tok.Kind == TokenSharp:
			// YAML comment line
			s.skipLine()

		case tok.Kind == TokenWhiteSpace:
			lineStart := tok.Pos.Offset
			s.skipSpace()
			if s.peek().Kind == TokenNewline || s.atEOF() {
				continue
			}
			if len(fm.Entries) == 0 {
				s.errorf(tok.Pos, "unexpected indented line in front matter")
				s.skipLine()
				continue
			}
			end = s.continueEntry(fm, lineStart)

		case s.atListItem():
			// Block sequence items may sit at column 1 under their key.
			if len(fm.Entries) == 0 {
				s.errorf(tok.Pos, "list item before the first front matter key")
				s.skipLine()
				continue
			}
			end = s.continueEntry(fm, tok.Pos.Offset)

		case isKeyToken(tok.Kind):
			s.next()
			key := tok.Value
			if tok.Kind == TokenQuoteString {
				key = unquote(tok.Value)
			}
			s.skipSpace()
			if s.peek().Kind != TokenColon {
				s.errorf(s.peek().Pos, "expected ':' after front matter key %q", key)
				end = s.skipLine()
				continue
			}
			s.next()
			from := s.offset()
			lineEnd := s.skipLine()
			fm.Entries = append(fm.Entries, FrontMatterEntry{
				Key: key,
				Raw: strings.TrimSpace(s.src[from:lineEnd]),
				Pos: tok.Pos,
			})
			end = lineEnd

		default:
			s.errorf(tok.Pos, "expected front matter key, got %s", tok.Kind)
			end = s.skipLine()
		}
	}

	for i := range fm.Entries {
		e := &fm.Entries[i]
		v, err := DecodeValue(e.Raw)
		if err != nil {
			s.errorf(e.Pos, "invalid value for front matter key %q: %v", e.Key, err)
		}
		e.Value = v
	}

	node.End = end
	return node
}

// continueEntry appends the line starting at lineStart to the raw YAML of
// the last entry and returns the line end.
func (s *state) continueEntry(fm *FrontMatter, lineStart int) int {
	lineEnd := s.skipLine()
	last := &fm.Entries[len(fm.Entries)-1]
	last.Raw += "\n" + s.src[lineStart:lineEnd]
	return lineEnd
}

// atListItem reports whether the cursor is on a "- item" line.
func (s *state) atListItem() bool {
	tok := s.peek()
	if tok.Kind != TokenTextSegment || tok.Value != "-" {
		return false
	}
	next := s.peekAt(1).Kind
	return next == TokenWhiteSpace || next == TokenNewline || next == TokenEOF
}

func isKeyToken(kind TokenKind) bool {
	return kind == TokenIdentifier || kind == TokenQuoteString || kind == TokenBoolean || kind.IsKeyword()
}
