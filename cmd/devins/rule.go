package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/martinemde/devins/astdump"
	"github.com/martinemde/devins/devinparser"
)

var ruleCmd = &cobra.Command{
	Use:   "rule <name> <file|->",
	Short: "Parse input as a single grammar rule",
	Long:  "Parse input as a single grammar rule. Available rules: " + strings.Join(devinparser.Rules(), ", ") + ".",
	Args:  cobra.ExactArgs(2),
	RunE:  runRule,
}

func init() {
	ruleCmd.Flags().StringP("format", "f", "json", "Output format: json, yaml or toml")
	rootCmd.AddCommand(ruleCmd)
}

func runRule(cmd *cobra.Command, args []string) error {
	rule := args[0]
	src, err := readSource(cmd, args[1])
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("format")
	format, err := astdump.ParseFormat(name)
	if err != nil {
		return err
	}

	res := newParser(cmd).ParseRule(rule, src)
	if !res.OK() {
		return fmt.Errorf("rule %s: %w", rule, res.Err())
	}
	return astdump.Encode(cmd.OutOrStdout(), format, astdump.FromResult(res))
}
