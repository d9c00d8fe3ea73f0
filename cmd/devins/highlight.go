package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/martinemde/devins/highlight"
)

var highlightCmd = &cobra.Command{
	Use:   "highlight <file|->",
	Short: "Print a DevIns file with syntax highlighting",
	Args:  cobra.ExactArgs(1),
	RunE:  runHighlight,
}

func init() {
	highlightCmd.Flags().String("color", "auto", "Color output: auto, always or never")
	_ = viper.BindPFlag("color", highlightCmd.Flags().Lookup("color"))
	rootCmd.AddCommand(highlightCmd)
}

func runHighlight(cmd *cobra.Command, args []string) error {
	src, err := readSource(cmd, args[0])
	if err != nil {
		return err
	}
	h, err := newHighlighter(cmd.OutOrStdout(), viper.GetString("color"))
	if err != nil {
		return err
	}
	_, err = io.WriteString(cmd.OutOrStdout(), h.Render(src))
	return err
}

func newHighlighter(w io.Writer, mode string) (*highlight.Highlighter, error) {
	switch mode {
	case "auto", "":
		return highlight.New(w), nil
	case "always":
		return highlight.New(w, highlight.WithColor(true)), nil
	case "never":
		return highlight.New(w, highlight.WithColor(false)), nil
	}
	return nil, fmt.Errorf("unknown color mode %q (want auto, always or never)", mode)
}
