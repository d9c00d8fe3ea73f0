package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/martinemde/devins/astdump"
	"github.com/martinemde/devins/devinparser"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens <file|->",
	Short: "Print the token stream of a DevIns file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokens,
}

func init() {
	tokensCmd.Flags().StringP("format", "f", "table", "Output format: table, json, yaml or toml")
	rootCmd.AddCommand(tokensCmd)
}

func runTokens(cmd *cobra.Command, args []string) error {
	src, err := readSource(cmd, args[0])
	if err != nil {
		return err
	}
	tokens := devinparser.Tokenize(src)

	name, _ := cmd.Flags().GetString("format")
	if name == "table" {
		printTokenTable(cmd.OutOrStdout(), tokens)
		return nil
	}
	format, err := astdump.ParseFormat(name)
	if err != nil {
		return err
	}
	return astdump.Encode(cmd.OutOrStdout(), format, astdump.FromTokens(tokens))
}

// printTokenTable writes one token per line: position, kind and quoted value.
func printTokenTable(w io.Writer, tokens []devinparser.Token) {
	for _, tok := range tokens {
		pos := fmt.Sprintf("%d:%d", tok.Pos.Line, tok.Pos.Column)
		fmt.Fprintf(w, "%-8s %-20s %s\n", pos, tok.Kind, strconv.Quote(tok.Value))
	}
}
