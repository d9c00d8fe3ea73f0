package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/martinemde/devins/devinparser"
)

var rootCmd = &cobra.Command{
	Use:           "devins",
	Short:         "DevIns language tools",
	Long:          "Devins tokenizes, parses, lints and highlights DevIns agent instruction files.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "Debug output")
	rootCmd.PersistentFlags().Int("max-depth", devinparser.DefaultMaxDepth, "Maximum nesting depth of #if and #when blocks")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("max_depth", rootCmd.PersistentFlags().Lookup("max-depth"))
}

func initConfig() {
	viper.SetEnvPrefix("DEVINS")
	viper.AutomaticEnv()
}

// newLogger builds the diagnostic logger. Without --verbose or --debug only
// warnings are shown.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case viper.GetBool("debug"):
		level = slog.LevelDebug
	case viper.GetBool("verbose"):
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newParser(cmd *cobra.Command) *devinparser.Parser {
	return devinparser.NewParser(
		devinparser.WithLogger(newLogger(cmd.ErrOrStderr())),
		devinparser.WithMaxDepth(viper.GetInt("max_depth")),
	)
}
