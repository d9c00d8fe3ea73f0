// Package codefence splits LLM replies into markdown text, fenced code
// blocks and tagged blocks (<devin>, <thinking> and walkthrough comments).
//
// DevIns instructions usually arrive embedded in a model reply, either as a
// <devin>...</devin> block or as a ```devin fence. ParseAll returns every
// block in order; Parse returns only the first one. Blocks that are still
// streaming in are returned with Complete set to false.
package codefence

import (
	"regexp"
	"strings"

	"github.com/martinemde/devins/devinparser"
)

// Language ids of the non-code blocks.
const (
	LangMarkdown    = "markdown"
	LangDevin       = "devin"
	LangThinking    = "thinking"
	LangWalkthrough = "walkthrough"
)

// CodeFence is one block of a reply.
type CodeFence struct {
	LanguageID string
	Text       string // block content, surrounding whitespace trimmed
	Complete   bool   // closing fence or tag was found
	Extension  string
}

// IsDevin reports whether the block carries DevIns source.
func (f CodeFence) IsDevin() bool {
	return f.LanguageID == LangDevin
}

// Document parses the block text as a DevIns document.
func (f CodeFence) Document(p *devinparser.Parser) *devinparser.ParseResult {
	if p == nil {
		return devinparser.Parse(f.Text)
	}
	return p.Parse(f.Text)
}

// tag is a pair of delimiters around a block that is not a ``` fence.
type tag struct {
	lang  string
	ext   string
	start *regexp.Regexp
	end   *regexp.Regexp
}

var tags = []tag{
	{LangDevin, "devin", regexp.MustCompile(`<devin>`), regexp.MustCompile(`</devin>`)},
	{LangThinking, "md", regexp.MustCompile(`<thinking>`), regexp.MustCompile(`</thinking>`)},
	{LangWalkthrough, "md", regexp.MustCompile(`<!--\s*walkthrough_start\s*-->`), regexp.MustCompile(`<!--\s*walkthrough_end\s*-->`)},
}

var (
	fenceOpen      = regexp.MustCompile("^```([\\w#+ .-]*)")
	devinFence     = regexp.MustCompile("(?m)^```devin\\n([\\s\\S]*?)\\n```[ \\t]*(?:\\n|\\z)")
	innerCodeFence = regexp.MustCompile("\\s*```[\\w#+ ]*\\n")
)

// tagMatch locates the earliest tagged block at or after from.
type tagMatch struct {
	tag        *tag
	start, end []int // end is nil when the block is unterminated
}

func findTag(content string, from int) *tagMatch {
	var best *tagMatch
	for i := range tags {
		t := &tags[i]
		loc := t.start.FindStringIndex(content[from:])
		if loc == nil {
			continue
		}
		loc[0] += from
		loc[1] += from
		if best == nil || loc[0] < best.start[0] {
			best = &tagMatch{tag: t, start: loc}
		}
	}
	if best == nil {
		return nil
	}
	if end := best.tag.end.FindStringIndex(content[best.start[1]:]); end != nil {
		best.end = []int{end[0] + best.start[1], end[1] + best.start[1]}
	}
	return best
}

func (m *tagMatch) fence(content string) CodeFence {
	f := CodeFence{LanguageID: m.tag.lang, Extension: m.tag.ext, Complete: m.end != nil}
	if m.end != nil {
		f.Text = strings.TrimSpace(content[m.start[1]:m.end[0]])
	} else {
		f.Text = strings.TrimSpace(content[m.start[1]:])
	}
	return f
}

// next returns the offset just past the block.
func (m *tagMatch) next(content string) int {
	if m.end == nil {
		return len(content)
	}
	return m.end[1]
}

// Parse returns the first block of content: a tagged block if there is
// one anywhere, otherwise the first ``` fence. Content without any fence
// yields an empty, incomplete block.
func Parse(content string) CodeFence {
	if m := findTag(content, 0); m != nil {
		return m.fence(content)
	}

	var (
		started bool
		closed  bool
		lang    string
		code    strings.Builder
	)
	for _, line := range splitLines(content) {
		trimmed := strings.TrimSpace(line)
		if !started {
			if m := fenceOpen.FindStringSubmatch(trimmed); m != nil {
				lang = strings.TrimSpace(m[1])
				started = true
			}
			continue
		}
		if trimmed == "```" {
			closed = true
			break
		}
		code.WriteString(line)
		code.WriteByte('\n')
	}

	return CodeFence{
		LanguageID: lang,
		Text:       strings.TrimSpace(code.String()),
		Complete:   closed,
		Extension:  LookupFileExt(lang),
	}
}

// ParseAll splits content into its blocks in source order. Markdown text
// between blocks is returned with LanguageID "markdown"; empty text and
// code blocks are dropped, tagged blocks are always kept.
func ParseAll(content string) []CodeFence {
	if strings.Contains(content, "```devin\n") {
		content = PreprocessDevinFences(content)
	}

	var fences []CodeFence
	current := 0
	for current < len(content) {
		m := findTag(content, current)
		if m == nil {
			break
		}
		fences = append(fences, parseMarkdown(content[current:m.start[0]])...)
		fences = append(fences, m.fence(content))
		current = m.next(content)
	}
	if current < len(content) {
		fences = append(fences, parseMarkdown(content[current:])...)
	}
	return fences
}

// PreprocessDevinFences rewrites ```devin fences into <devin> blocks. A
// devin fence that wraps an inner code fence ends at the inner closing
// fence, which is restored here.
func PreprocessDevinFences(content string) string {
	return devinFence.ReplaceAllStringFunc(content, func(match string) string {
		body := devinFence.FindStringSubmatch(match)[1]
		if innerCodeFence.MatchString(body) && !strings.HasSuffix(strings.TrimSpace(body), "```") {
			body += "\n```"
		}
		return "\n<devin>\n" + body + "\n</devin>\n"
	})
}

// parseMarkdown splits text that contains no tagged blocks into markdown
// and fenced code blocks.
func parseMarkdown(content string) []CodeFence {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	var (
		fences  []CodeFence
		started bool
		lang    string
		code    strings.Builder
		text    strings.Builder
	)
	flushText := func() {
		if t := strings.TrimSpace(text.String()); t != "" {
			fences = append(fences, CodeFence{LanguageID: LangMarkdown, Text: t, Complete: true, Extension: "md"})
		}
		text.Reset()
	}
	codeFence := func(complete bool) CodeFence {
		id := lang
		if id == "" {
			id = LangMarkdown
		}
		return CodeFence{LanguageID: id, Text: strings.TrimSpace(code.String()), Complete: complete, Extension: LookupFileExt(id)}
	}

	for _, line := range splitLines(content) {
		trimmed := strings.TrimSpace(line)
		if !started {
			if m := fenceOpen.FindStringSubmatch(trimmed); m != nil {
				flushText()
				lang = strings.TrimSpace(m[1])
				started = true
				continue
			}
			text.WriteString(line)
			text.WriteByte('\n')
			continue
		}
		if trimmed == "```" {
			if f := codeFence(true); f.Text != "" {
				fences = append(fences, f)
			}
			code.Reset()
			started = false
			lang = ""
			continue
		}
		code.WriteString(line)
		code.WriteByte('\n')
	}

	flushText()
	if started {
		if f := codeFence(false); f.Text != "" {
			fences = append(fences, f)
		}
	}
	return fences
}

func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
