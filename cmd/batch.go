// Package cmd — batch command.
// Discovers documents below one or more roots and runs each through the
// convert pipeline on a bounded worker pool.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/structmark/core/normalize"
	"github.com/gaurav-prasanna/structmark/core/output"
	"github.com/gaurav-prasanna/structmark/core/store"
	"github.com/gaurav-prasanna/structmark/discover"
)

// Batch-only flags.
var (
	flagWorkers       int
	flagFollowLinks   bool
	flagMaxFiles      int
	flagSkipUnchanged bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <path>...",
	Short: "Convert every supported document below the given paths",
	Long: `Batch walks each path for supported documents (skipping hidden entries and
structmark's own artifacts) and converts them concurrently. A failing
document is reported and the rest continue. With --output_dir the source
tree layout is mirrored below the output directory.

Examples:
  structmark batch ./docs --labeler_url http://localhost:8000/label
  structmark batch ./site --follow_links --output_dir ./out
  structmark batch ./docs --catalog runs.db --skip_unchanged`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	addPipelineFlags(batchCmd)
	batchCmd.Flags().IntVar(&flagWorkers, "workers", 0, "Documents converted in parallel (overrides batch.workers)")
	batchCmd.Flags().BoolVar(&flagFollowLinks, "follow_links", false, "Follow local links in HTML sources")
	batchCmd.Flags().IntVar(&flagMaxFiles, "max_files", 0, "Stop after this many documents per path (0 = no limit)")
	batchCmd.Flags().BoolVar(&flagSkipUnchanged, "skip_unchanged", false, "Skip documents whose content was already converted (needs a catalog)")
}

// job is one discovered document and where its artifacts go.
type job struct {
	root   string
	source string
	art    output.Artifacts
	err    error // the source cannot be placed below the output directory
}

func runBatch(cmd *cobra.Command, args []string) error {
	applyPipelineFlags(cmd, cfg)
	applyBatchFlags(cmd)
	if err := validateBatchFlags(); err != nil {
		return err
	}

	ctx := cmd.Context()
	writer, err := output.New(cfg.Output.Dir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}
	jobs, err := discoverJobs(ctx, args)
	if err != nil {
		return err
	}
	assignArtifacts(writer, jobs)
	fmt.Fprintf(os.Stdout, "Found %d documents to process\n", len(jobs))
	if len(jobs) == 0 {
		return nil
	}
	p, err := newPipeline(cfg, httpLabeler(cfg), writer, cfg.Output.Previews, logger)
	if err != nil {
		return err
	}
	catalog, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	if catalog != nil {
		defer catalog.Close()
		p.withCatalog(catalog)
		fmt.Fprintf(os.Stdout, "Run %s\n", p.runID)
	}

	var (
		mu        sync.Mutex // serializes progress output
		failed    atomic.Int64
		skipped   atomic.Int64
		processed atomic.Int64
	)
	report := func(format string, a ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(os.Stdout, format, a...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Batch.Workers)
	for _, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n := processed.Add(1)

			hash, unchanged := checkUnchanged(gctx, catalog, j.source)
			if unchanged {
				skipped.Add(1)
				report("[%d/%d] - Unchanged: %s\n", n, len(jobs), j.source)
				return nil
			}

			err := j.err
			if err == nil {
				var res result
				res, err = p.process(gctx, j.source, hash, j.art)
				if err == nil {
					mu.Lock()
					defer mu.Unlock()
					fmt.Fprintf(os.Stdout, "[%d/%d] %s\n", n, len(jobs), j.source)
					for _, path := range res.Written {
						fmt.Fprintf(os.Stdout, "  ✓ Written: %s\n", path)
					}
					return nil
				}
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			failed.Add(1)
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(os.Stderr, "[%d/%d] %s\n  ✗ Error: %v\n", n, len(jobs), j.source, err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if n := skipped.Load(); n > 0 {
		fmt.Fprintf(os.Stdout, "\n%d/%d documents unchanged\n", n, len(jobs))
	}
	if n := failed.Load(); n > 0 {
		fmt.Fprintf(os.Stderr, "\n%d/%d documents failed\n", n, len(jobs))
	}
	return nil
}

// discoverJobs walks each root separately so every source keeps the root it
// was found under. A source reachable from two roots is converted once.
func discoverJobs(ctx context.Context, roots []string) ([]job, error) {
	d := discover.New(discover.Options{
		Extensions:  normalize.SupportedExtensions(),
		FollowLinks: cfg.Batch.FollowLinks,
		MaxFiles:    cfg.Batch.MaxFiles,
	}, logger)

	seen := make(map[string]bool)
	var jobs []job
	for _, root := range roots {
		sources, err := d.Discover(ctx, root)
		if err != nil {
			return nil, fmt.Errorf("discovering %s: %w", root, err)
		}
		base := root
		if info, err := os.Stat(root); err == nil && !info.IsDir() {
			base = filepath.Dir(root)
		}
		for _, s := range sources {
			if seen[s] {
				continue
			}
			seen[s] = true
			jobs = append(jobs, job{root: base, source: s})
		}
	}
	return jobs, nil
}

// assignArtifacts names each job's artifacts. Sources that would share
// artifact names (report.docx and report.pdf in one directory) get
// extension-qualified names instead, so concurrent workers never write the
// same files.
func assignArtifacts(w *output.Writer, jobs []job) {
	byMarkdown := make(map[string][]int)
	for i := range jobs {
		jobs[i].art, jobs[i].err = w.ArtifactsUnder(jobs[i].root, jobs[i].source)
		if jobs[i].err == nil {
			key := filepath.Clean(jobs[i].art.Markdown())
			byMarkdown[key] = append(byMarkdown[key], i)
		}
	}
	for _, group := range byMarkdown {
		if len(group) < 2 {
			continue
		}
		for _, i := range group {
			jobs[i].art = jobs[i].art.Qualified(jobs[i].source)
		}
	}
}

// checkUnchanged hashes source and reports whether the catalog already holds
// a successful conversion of the same content. Without --skip_unchanged the
// hash is left for the pipeline.
func checkUnchanged(ctx context.Context, catalog *store.Store, source string) (string, bool) {
	if catalog == nil || !cfg.Batch.SkipUnchanged {
		return "", false
	}
	hash, err := store.HashFile(source)
	if err != nil {
		logger.Warn("could not hash source", "source", source, "error", err)
		return "", false
	}
	prev, err := catalog.LatestByHash(ctx, hash)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn("catalog lookup failed", "source", source, "error", err)
		}
		return hash, false
	}
	return hash, prev.Source == source
}

func applyBatchFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Batch.Workers = flagWorkers
	}
	if flags.Changed("follow_links") {
		cfg.Batch.FollowLinks = flagFollowLinks
	}
	if flags.Changed("max_files") {
		cfg.Batch.MaxFiles = flagMaxFiles
	}
	if flags.Changed("skip_unchanged") {
		cfg.Batch.SkipUnchanged = flagSkipUnchanged
	}
}

func validateBatchFlags() error {
	if cfg.Batch.Workers < 1 {
		return fmt.Errorf("--workers must be at least 1")
	}
	if cfg.Batch.MaxFiles < 0 {
		return fmt.Errorf("--max_files must not be negative")
	}
	if cfg.Batch.SkipUnchanged && cfg.Catalog.Path == "" {
		return fmt.Errorf("--skip_unchanged needs a catalog (--catalog or catalog.path)")
	}
	return nil
}
