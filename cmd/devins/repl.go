package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/martinemde/devins/astdump"
	"github.com/martinemde/devins/devinparser"
)

const (
	promptMain  = "devins> "
	promptCont  = "   ...> "
	historyFile = ".devins_history"
)

const replHelp = `Enter DevIns source; input continues while a block is unclosed.
  :rule <name>  parse input as a single rule (no name: whole documents)
  :tokens       toggle printing tokens instead of the syntax tree
  :help         show this help
  :quit         exit`

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Parse DevIns interactively",
	Args:  cobra.NoArgs,
	RunE:  runRepl,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, _ []string) error {
	s := newSession(newParser(cmd), cmd.OutOrStdout(), cmd.ErrOrStderr())

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Fprintln(s.out, "DevIns REPL. Type :help for commands.")
	for {
		src, ok := readComplete(ln)
		if !ok {
			fmt.Fprintln(s.out)
			return nil
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		if s.handle(src) {
			return nil
		}
	}
}

// readComplete reads lines until the accumulated input has no unclosed
// block. It returns false at end of input.
func readComplete(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if src := b.String(); !incomplete(src) {
			return src, true
		}
	}
}

// incomplete reports whether src ends inside an unclosed front matter
// header, expression block or code fence.
func incomplete(src string) bool {
	if strings.HasPrefix(strings.TrimSpace(src), ":") {
		return false
	}
	open := false
	devinparser.Walk(devinparser.Parse(src).AST, func(n *devinparser.Node) bool {
		switch n.Kind {
		case devinparser.NodeFrontMatterHeader:
			open = open || !n.FrontMatter.Closed
		case devinparser.NodeExpressionBlock:
			open = open || !n.Expression.Closed
		case devinparser.NodeCodeBlock:
			open = open || !n.Code.Closed
		}
		return !open
	})
	return open
}

// session holds REPL state between inputs.
type session struct {
	parser   *devinparser.Parser
	out      io.Writer
	errOut   io.Writer
	errStyle lipgloss.Style

	rule   string // empty parses whole documents
	tokens bool
}

func newSession(p *devinparser.Parser, out, errOut io.Writer) *session {
	return &session{
		parser:   p,
		out:      out,
		errOut:   errOut,
		errStyle: lipgloss.NewRenderer(errOut).NewStyle().Foreground(lipgloss.Color("#EF4444")),
	}
}

// handle runs one REPL input and reports whether the session should end.
func (s *session) handle(input string) bool {
	if strings.HasPrefix(strings.TrimSpace(input), ":") {
		return s.command(strings.Fields(input))
	}
	s.eval(input)
	return false
}

func (s *session) command(fields []string) bool {
	switch strings.ToLower(fields[0]) {
	case ":quit", ":q":
		return true
	case ":help":
		fmt.Fprintln(s.out, replHelp)
	case ":tokens":
		s.tokens = !s.tokens
		if s.tokens {
			fmt.Fprintln(s.out, "printing tokens")
		} else {
			fmt.Fprintln(s.out, "printing syntax trees")
		}
	case ":rule":
		if len(fields) < 2 {
			s.rule = ""
			fmt.Fprintln(s.out, "parsing whole documents")
			return false
		}
		if !slices.Contains(devinparser.Rules(), fields[1]) {
			s.errorf("unknown rule %q; available: %s", fields[1], strings.Join(devinparser.Rules(), ", "))
			return false
		}
		s.rule = fields[1]
		fmt.Fprintf(s.out, "parsing rule %s\n", s.rule)
	default:
		s.errorf("unknown command %s. Type :help for commands.", fields[0])
	}
	return false
}

func (s *session) eval(src string) {
	if s.tokens {
		printTokenTable(s.out, devinparser.Tokenize(src))
		return
	}

	var res *devinparser.ParseResult
	if s.rule != "" {
		res = s.parser.ParseRule(s.rule, src)
	} else {
		res = s.parser.Parse(src)
	}
	for _, err := range res.Errors {
		s.errorf("%v", err)
	}
	if res.AST == nil {
		return
	}
	if err := astdump.Encode(s.out, astdump.FormatYAML, astdump.FromNode(res.AST)); err != nil {
		s.errorf("%v", err)
	}
}

func (s *session) errorf(format string, args ...any) {
	fmt.Fprintln(s.errOut, s.errStyle.Render(fmt.Sprintf(format, args...)))
}
