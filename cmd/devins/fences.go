package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/martinemde/devins/astdump"
	"github.com/martinemde/devins/codefence"
	"github.com/martinemde/devins/devinparser"
)

var fencesCmd = &cobra.Command{
	Use:   "fences <file|->",
	Short: "Split an LLM reply into markdown, code and devin blocks",
	Args:  cobra.ExactArgs(1),
	RunE:  runFences,
}

func init() {
	fencesCmd.Flags().StringP("format", "f", "text", "Output format: text, json, yaml or toml")
	fencesCmd.Flags().String("lang", "", "Only print blocks with this language id")
	rootCmd.AddCommand(fencesCmd)
}

type fenceList struct {
	Fences []fenceEntry `json:"fences" yaml:"fences" toml:"fences"`
}

type fenceEntry struct {
	Language    string   `json:"language" yaml:"language" toml:"language"`
	Extension   string   `json:"extension,omitempty" yaml:"extension,omitempty" toml:"extension,omitempty"`
	Complete    bool     `json:"complete" yaml:"complete" toml:"complete"`
	Text        string   `json:"text" yaml:"text" toml:"text"`
	Commands    []string `json:"commands,omitempty" yaml:"commands,omitempty" toml:"commands,omitempty"`
	ParseErrors int      `json:"parseErrors,omitempty" yaml:"parseErrors,omitempty" toml:"parseErrors,omitempty"`
}

func runFences(cmd *cobra.Command, args []string) error {
	src, err := readSource(cmd, args[0])
	if err != nil {
		return err
	}
	lang, _ := cmd.Flags().GetString("lang")
	parser := newParser(cmd)

	var list fenceList
	for _, f := range codefence.ParseAll(src) {
		if lang != "" && f.LanguageID != lang {
			continue
		}
		list.Fences = append(list.Fences, newFenceEntry(f, parser))
	}

	name, _ := cmd.Flags().GetString("format")
	if name == "text" {
		printFences(cmd.OutOrStdout(), list.Fences)
		return nil
	}
	format, err := astdump.ParseFormat(name)
	if err != nil {
		return err
	}
	return astdump.Encode(cmd.OutOrStdout(), format, list)
}

// newFenceEntry describes a block; devin blocks are parsed so their
// commands can be listed.
func newFenceEntry(f codefence.CodeFence, p *devinparser.Parser) fenceEntry {
	e := fenceEntry{Language: f.LanguageID, Extension: f.Extension, Complete: f.Complete, Text: f.Text}
	if !f.IsDevin() {
		return e
	}
	res := f.Document(p)
	for _, c := range res.AST.Commands() {
		e.Commands = append(e.Commands, c.Name)
	}
	e.ParseErrors = len(res.Errors)
	return e
}

func printFences(w io.Writer, fences []fenceEntry) {
	for i, f := range fences {
		fmt.Fprintf(w, "[%d] %s", i+1, f.Language)
		if name := codefence.DisplayNameByExt(displayExt(f)); !strings.EqualFold(name, f.Language) {
			fmt.Fprintf(w, " (%s)", name)
		}
		if !f.Complete {
			fmt.Fprint(w, " (incomplete)")
		}
		if len(f.Commands) > 0 {
			fmt.Fprintf(w, " commands: %v", f.Commands)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, f.Text)
	}
}

func displayExt(f fenceEntry) string {
	if f.Extension != "" {
		return f.Extension
	}
	return f.Language
}
