// Package cmd — export command.
package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/structmark/core"
	"github.com/gaurav-prasanna/structmark/core/export"
	"github.com/gaurav-prasanna/structmark/core/output"
	"github.com/gaurav-prasanna/structmark/core/parse"
	"github.com/gaurav-prasanna/structmark/core/render"
	"github.com/gaurav-prasanna/structmark/core/store"
)

var (
	flagExportOutput    string
	flagExportCatalog   string
	flagExportRun       string
	flagExportMaxTokens int
)

var exportCmd = &cobra.Command{
	Use:   "export [labeled.md | records.json]",
	Short: "Export records as a token-per-line training corpus",
	Long: `Export writes one "token LABEL" line per token and a blank line after every
record. The input is labeled Markdown, a records JSON file, or (with
--catalog) every successful document of a catalogued run.

Examples:
  structmark export report_labeled.md
  structmark export report_labeled.json -o -
  structmark export --catalog runs.db --run latest -o corpus.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&flagExportOutput, "output", "o", "", "Output path, - for stdout (default: <base>_labeled_training.txt)")
	exportCmd.Flags().StringVar(&flagExportCatalog, "catalog", "", "Export a run from this catalog instead of a file")
	exportCmd.Flags().StringVar(&flagExportRun, "run", "latest", "Catalog run id, or latest")
	exportCmd.Flags().IntVar(&flagExportMaxTokens, "max_tokens", 0, "Split sentences after this many tokens (overrides corpus.max_tokens)")
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := validateExportFlags(args); err != nil {
		return err
	}
	if cmd.Flags().Changed("max_tokens") {
		cfg.Corpus.MaxTokens = flagExportMaxTokens
	}
	table, err := cfg.MarkupTable()
	if err != nil {
		return err
	}

	var (
		records []core.Record
		dest    = flagExportOutput
	)
	if flagExportCatalog != "" {
		runID, recs, err := catalogRecords(cmd, flagExportCatalog, flagExportRun)
		if err != nil {
			return err
		}
		records = recs
		if dest == "" {
			dest = filepath.Join(cfg.Output.Dir, runID+"_training.txt")
		}
	} else {
		source := args[0]
		if records, err = readRecords(source); err != nil {
			return err
		}
		if dest == "" {
			dest = output.Artifacts{
				Dir:  filepath.Dir(source),
				Base: strings.TrimSuffix(output.BaseName(source), "_labeled"),
			}.Corpus()
		}
	}

	var buf bytes.Buffer
	lines := export.New(export.Options{Table: table, MaxTokens: cfg.Corpus.MaxTokens}).Export(records)
	if err := export.WriteTo(&buf, lines); err != nil {
		return err
	}
	return emit(dest, buf.Bytes())
}

// readRecords loads a records JSON file or parses labeled Markdown.
func readRecords(source string) ([]core.Record, error) {
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(source), ".json") {
		return render.DecodeRecords(f)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return parse.New(cfg.Parser.LineBreak).Parse(buf.String()), nil
}

// catalogRecords loads the records of a run; "latest" selects the newest.
func catalogRecords(cmd *cobra.Command, path, runID string) (string, []core.Record, error) {
	ctx := cmd.Context()
	s, err := store.Open(ctx, path)
	if err != nil {
		return "", nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer s.Close()

	if runID == "" || runID == "latest" {
		if runID, err = s.LatestRun(ctx); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return "", nil, fmt.Errorf("catalog %s has no runs", path)
			}
			return "", nil, err
		}
	}
	records, err := s.RunRecords(ctx, runID)
	if err != nil {
		return "", nil, fmt.Errorf("loading run %s: %w", runID, err)
	}
	logger.Info("exporting run", "run", runID, "records", len(records))
	return runID, records, nil
}

func validateExportFlags(args []string) error {
	switch {
	case flagExportCatalog != "" && len(args) > 0:
		return fmt.Errorf("give either an input file or --catalog, not both")
	case flagExportCatalog == "" && len(args) == 0:
		return fmt.Errorf("an input file or --catalog is required")
	}
	return nil
}
