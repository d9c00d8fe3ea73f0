package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/martinemde/devins/devinparser"
)

var lintCmd = &cobra.Command{
	Use:   "lint <file|->",
	Short: "Report problems in a DevIns file",
	Long:  "Parse a DevIns file and run the lint rules. Exits non-zero when a parse error or an error diagnostic is found.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	src, err := readSource(cmd, args[0])
	if err != nil {
		return err
	}
	res := newParser(cmd).Parse(src)
	out := cmd.OutOrStdout()

	for _, perr := range res.Errors {
		fmt.Fprintf(out, "%s: [ERROR] parse: %v\n", args[0], perr)
	}
	diagnostics, verr := devinparser.ValidateOrError(res.AST)
	for _, d := range diagnostics {
		fmt.Fprintf(out, "%s: %s\n", args[0], d)
	}

	if len(res.Errors) > 0 {
		return fmt.Errorf("%s: %d parse error(s)", args[0], len(res.Errors))
	}
	if verr != nil {
		return fmt.Errorf("%s: %w", args[0], verr)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: ok (%d diagnostic(s))\n", args[0], len(diagnostics))
	return nil
}
