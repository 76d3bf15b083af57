// Package cmd — parse command.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/structmark/core"
	"github.com/gaurav-prasanna/structmark/core/metrics"
	"github.com/gaurav-prasanna/structmark/core/output"
	"github.com/gaurav-prasanna/structmark/core/parse"
	"github.com/gaurav-prasanna/structmark/core/render"
)

var (
	flagParseFormat string
	flagParseOutput string
)

var parseCmd = &cobra.Command{
	Use:   "parse <labeled.md>",
	Short: "Parse labeled Markdown into typed records",
	Long: `Parse classifies each line of labeled Markdown into a typed record and
renders the stream in the chosen format (json, markdown, html or pdf).

Examples:
  structmark parse report_labeled.md
  structmark parse report_labeled.md --format html
  structmark parse report_labeled.md --format json -o -`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().StringVar(&flagParseFormat, "format", "json", "Output format: "+strings.Join(render.Names(), ", "))
	parseCmd.Flags().StringVarP(&flagParseOutput, "output", "o", "", "Output path, - for stdout (default: <base>_labeled.<ext>)")
}

func runParse(cmd *cobra.Command, args []string) error {
	source := args[0]

	renderer, err := render.ByName(flagParseFormat, render.Options{
		LineBreak: cfg.Parser.LineBreak,
		BaseDir:   filepath.Dir(source),
	})
	if err != nil {
		return err
	}
	text, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("reading labeled Markdown: %w", err)
	}

	records := parse.New(cfg.Parser.LineBreak).Parse(string(text))
	metrics.Records(records)
	data, err := renderer.Render(records, core.Meta{Source: source, Title: titleOf(records)})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	dest := flagParseOutput
	if dest == "" {
		art := output.Artifacts{
			Dir:  filepath.Dir(source),
			Base: strings.TrimSuffix(output.BaseName(source), "_labeled"),
		}
		dest = art.Rendered(renderer.Extension())
		if filepath.Clean(dest) == filepath.Clean(source) {
			return fmt.Errorf("output would overwrite %s; pass --output", source)
		}
	}
	return emit(dest, data)
}
