// Package cmd — convert command.
// This is the main command that orchestrates the pipeline for one document:
// normalize → label → fuse → parse → export → write.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/structmark/core"
	"github.com/gaurav-prasanna/structmark/core/label"
	"github.com/gaurav-prasanna/structmark/core/normalize"
	"github.com/gaurav-prasanna/structmark/core/output"
	"github.com/gaurav-prasanna/structmark/core/store"
	"github.com/gaurav-prasanna/structmark/internal/config"
)

// Flags shared by convert and batch.
var (
	flagOutputDir       string
	flagLabelerURL      string
	flagLabelerTimeout  time.Duration
	flagCatalog         string
	flagPreview         []string
	flagKeepPageNumbers bool
	flagMaxTokens       int
)

// Convert-only flags.
var flagSpans string

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert one document to Markdown, labeled records and a corpus",
	Long: `Convert normalizes a document to canonical Markdown and extracts its media.
When a labeler is configured (--labeler_url) or a span file is given (--spans),
it also writes the labeled Markdown, the parsed records as JSON and the
token-per-line training corpus.

Artifacts are written next to the source unless --output_dir is set:
  <base>.md  <base>_images/  <base>_labeled.md  <base>_labeled.json
  <base>_labeled_training.txt

Examples:
  structmark convert report.docx
  structmark convert deck.pptx --labeler_url http://localhost:8000/label
  structmark convert scan.pdf --spans scan_spans.json --preview html,pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	addPipelineFlags(convertCmd)
	convertCmd.Flags().StringVar(&flagSpans, "spans", "", "JSON span file for the document (instead of --labeler_url)")
}

// addPipelineFlags registers the flags convert and batch share.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: next to each source)")
	cmd.Flags().StringVar(&flagLabelerURL, "labeler_url", "", "Labeler endpoint (overrides labeler.url)")
	cmd.Flags().DurationVar(&flagLabelerTimeout, "labeler_timeout", 0, "Labeler request timeout (overrides labeler.timeout)")
	cmd.Flags().StringVar(&flagCatalog, "catalog", "", "SQLite catalog path (overrides catalog.path)")
	cmd.Flags().StringSliceVar(&flagPreview, "preview", nil, "Extra renderings of the labeled records: html, pdf")
	cmd.Flags().BoolVar(&flagKeepPageNumbers, "keep_page_numbers", false, "Keep page-number lines in PDF text")
	cmd.Flags().IntVar(&flagMaxTokens, "max_tokens", 0, "Split corpus sentences after this many tokens (overrides corpus.max_tokens)")
}

// applyPipelineFlags copies explicitly set flags over the config.
func applyPipelineFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output_dir") {
		c.Output.Dir = flagOutputDir
	}
	if flags.Changed("labeler_url") {
		c.Labeler.URL = flagLabelerURL
	}
	if flags.Changed("labeler_timeout") {
		c.Labeler.Timeout = flagLabelerTimeout
	}
	if flags.Changed("catalog") {
		c.Catalog.Path = flagCatalog
	}
	if flags.Changed("preview") {
		c.Output.Previews = flagPreview
	}
	if flags.Changed("keep_page_numbers") {
		c.Output.KeepPageNumbers = flagKeepPageNumbers
	}
	if flags.Changed("max_tokens") {
		c.Corpus.MaxTokens = flagMaxTokens
	}
}

// httpLabeler returns the configured HTTP labeler, or nil when none is set.
func httpLabeler(c *config.Config) core.Labeler {
	if c.Labeler.URL == "" {
		return nil
	}
	return label.New(label.Options{URL: c.Labeler.URL, Timeout: c.Labeler.Timeout, Window: c.Labeler.Window})
}

// openCatalog opens the configured catalog, or returns nil when none is set.
func openCatalog(ctx context.Context, c *config.Config) (*store.Store, error) {
	if c.Catalog.Path == "" {
		return nil, nil
	}
	s, err := store.Open(ctx, c.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	return s, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	source := args[0]

	applyPipelineFlags(cmd, cfg)
	if err := validateConvertFlags(source); err != nil {
		return err
	}

	var labeler core.Labeler
	if flagSpans != "" {
		labeler = label.NewFileLabeler(flagSpans)
	} else {
		labeler = httpLabeler(cfg)
	}

	writer, err := output.New(cfg.Output.Dir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}
	p, err := newPipeline(cfg, labeler, writer, cfg.Output.Previews, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	catalog, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	if catalog != nil {
		defer catalog.Close()
		p.withCatalog(catalog)
	}

	res, err := p.process(ctx, source, "", writer.Artifacts(source))
	if err != nil {
		return fmt.Errorf("converting %s: %w", source, err)
	}
	for _, path := range res.Written {
		fmt.Fprintf(os.Stdout, "✓ Written: %s\n", path)
	}
	return nil
}

// validateConvertFlags checks the source and mutually exclusive labelers.
func validateConvertFlags(source string) error {
	if flagSpans != "" && flagLabelerURL != "" {
		return fmt.Errorf("--spans and --labeler_url are mutually exclusive")
	}
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory; use batch", source)
	}
	if normalize.Detect(source) == normalize.FormatUnsupported {
		logger.Warn("unsupported extension; only embedded images will be extracted", "source", source)
	}
	return nil
}
