// Package cmd implements the CLI commands for structmark using Cobra.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/structmark/internal/config"
	"github.com/gaurav-prasanna/structmark/internal/logging"
)

// Persistent flags.
var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
)

// cfg and logger are set up before any subcommand runs.
var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "structmark",
	Short: "structmark — turn office documents into labeled Markdown and training corpora",
	Long: `structmark normalizes documents (docx, pdf, pptx, xlsx, html, markdown, text)
into canonical Markdown, fuses entity spans from an external labeler into
structural markup, parses the result into typed records and exports a
token-per-line training corpus.

Usage:
  structmark convert <file> [flags]
  structmark batch <dir>... [flags]`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: text or json")
}

// setup loads the config file and initializes logging. Flags win over
// file values.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	if cfg, err = config.Load(flagConfig); err != nil {
		return err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Log.Format = flagLogFormat
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return err
	}
	logger = logging.Init(os.Stderr, level, format)
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
