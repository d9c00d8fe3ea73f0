package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/martinemde/devins/astdump"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file|->",
	Short: "Parse a DevIns file and print its syntax tree",
	Long:  "Parse a DevIns file and print the syntax tree with any parse errors. Parsing never fails; errors are part of the output.",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().StringP("format", "f", "json", "Output format: json, yaml or toml")
	parseCmd.Flags().StringP("query", "q", "", "Print only the value at a gjson path, e.g. ast.children.#.kind")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	src, err := readSource(cmd, args[0])
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("format")
	format, err := astdump.ParseFormat(name)
	if err != nil {
		return err
	}

	res := newParser(cmd).Parse(src)
	doc := astdump.FromResult(res)

	query, _ := cmd.Flags().GetString("query")
	if query == "" {
		return astdump.Encode(cmd.OutOrStdout(), format, doc)
	}
	return printQuery(cmd, doc, query)
}

func printQuery(cmd *cobra.Command, v any, query string) error {
	result, err := astdump.Query(v, query)
	if err != nil {
		return err
	}
	if !result.Exists() {
		return fmt.Errorf("query %q matched nothing", query)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.String())
	return nil
}
