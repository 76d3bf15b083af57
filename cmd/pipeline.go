package cmd

// The document pipeline shared by convert and batch:
// normalize → label → fuse → parse → export → write.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gaurav-prasanna/structmark/core"
	"github.com/gaurav-prasanna/structmark/core/export"
	"github.com/gaurav-prasanna/structmark/core/fuse"
	"github.com/gaurav-prasanna/structmark/core/metrics"
	"github.com/gaurav-prasanna/structmark/core/normalize"
	"github.com/gaurav-prasanna/structmark/core/output"
	"github.com/gaurav-prasanna/structmark/core/parse"
	"github.com/gaurav-prasanna/structmark/core/render"
	"github.com/gaurav-prasanna/structmark/core/store"
	"github.com/gaurav-prasanna/structmark/internal/config"
)

// pipeline carries the stages configured once per command run.
type pipeline struct {
	keepPageNumbers bool
	labeler         core.Labeler // nil skips the labeled artifacts
	fuser           *fuse.Engine
	parser          *parse.Parser
	exporter        *export.Exporter
	lineBreak       string
	previews        []string
	writer          *output.Writer
	catalog         *store.Store // nil disables cataloguing
	runID           string
	logger          *slog.Logger
}

// newPipeline builds the stages from c. previews names extra renderings of
// the labeled records (html, pdf, markdown).
func newPipeline(c *config.Config, labeler core.Labeler, writer *output.Writer, previews []string, logger *slog.Logger) (*pipeline, error) {
	table, err := c.MarkupTable()
	if err != nil {
		return nil, err
	}
	p := &pipeline{
		keepPageNumbers: c.Output.KeepPageNumbers,
		labeler:         labeler,
		fuser:           fuse.New(table, logger),
		parser:          parse.New(c.Parser.LineBreak),
		exporter:        export.New(export.Options{Table: table, MaxTokens: c.Corpus.MaxTokens}),
		lineBreak:       c.Parser.LineBreak,
		writer:          writer,
		logger:          logger,
	}
	for _, name := range previews {
		r, err := render.ByName(name, render.Options{})
		if err != nil {
			return nil, fmt.Errorf("preview: %w", err)
		}
		if r.Extension() == ".json" || r.Extension() == ".md" {
			return nil, fmt.Errorf("preview %q duplicates a pipeline artifact", name)
		}
		p.previews = append(p.previews, name)
	}
	return p, nil
}

// artifact is one rendering of the records and where it goes.
type artifact struct {
	path     string
	renderer core.Renderer
}

// renderings lists the record renderings for art: the JSON records plus the
// previews. Image references resolve against art.Dir.
func (p *pipeline) renderings(art output.Artifacts) ([]artifact, error) {
	out := []artifact{{art.JSON(), render.NewJSONRenderer()}}
	for _, name := range p.previews {
		r, err := render.ByName(name, render.Options{LineBreak: p.lineBreak, BaseDir: art.Dir})
		if err != nil {
			return nil, err
		}
		out = append(out, artifact{art.Rendered(r.Extension()), r})
	}
	return out, nil
}

// withCatalog records every processed document under a fresh run id.
func (p *pipeline) withCatalog(s *store.Store) {
	p.catalog = s
	p.runID = s.NewRunID()
}

// result describes one processed document.
type result struct {
	Written []string
	Records int
	Labeled bool
}

// process runs source through the pipeline, writing its artifacts to art.
// hash may be empty; it is computed when a catalog is attached.
func (p *pipeline) process(ctx context.Context, source, hash string, art output.Artifacts) (result, error) {
	var res result
	logger := p.logger.With("source", source)

	if p.catalog != nil && hash == "" {
		var err error
		if hash, err = store.HashFile(source); err != nil {
			return res, err
		}
	}
	entry := store.Document{RunID: p.runID, Source: source, Hash: hash, Format: string(normalize.Detect(source))}

	// 1. Normalize
	start := time.Now()
	normalizer := normalize.New(normalize.Options{
		ImageDir:        art.ImageDir(),
		KeepPageNumbers: p.keepPageNumbers,
	}, logger)
	doc, err := normalizer.Normalize(ctx, source)
	metrics.Stage("normalize", start)
	if err != nil {
		metrics.Document(entry.Format, store.StatusFailed)
		p.catalogue(ctx, entry, err, nil)
		return res, fmt.Errorf("normalize: %w", err)
	}
	metrics.Document(doc.Format, store.StatusOK)
	entry.Format, entry.Landscape = doc.Format, doc.Landscape

	path, err := p.writer.Write(art.MarkdownFor(source), []byte(doc.Markdown))
	if err != nil {
		return res, err
	}
	res.Written = append(res.Written, path)

	// 2. Label
	if p.labeler == nil {
		logger.Info("no labeler configured; skipping labeled artifacts")
		p.catalogue(ctx, entry, nil, nil)
		return res, nil
	}
	start = time.Now()
	spans, err := p.labeler.Label(ctx, doc.Markdown)
	metrics.Stage("label", start)
	metrics.LabelerRequest(err)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		logger.Warn("labeler failed; skipping labeled artifacts", "error", err)
		p.catalogue(ctx, entry, nil, nil)
		return res, nil
	}

	// 3. Fuse
	start = time.Now()
	labeled, st := p.fuser.FuseStats(doc.Markdown, spans)
	metrics.Stage("fuse", start)
	metrics.Spans(st.Applied, st.PassThrough, st.Dropped)
	logger.Debug("fused spans", "applied", st.Applied, "pass_through", st.PassThrough, "dropped", st.Dropped)

	if path, err = p.writer.Write(art.Labeled(), []byte(labeled)); err != nil {
		return res, err
	}
	res.Written = append(res.Written, path)

	// 4. Parse
	start = time.Now()
	records := p.parser.Parse(labeled)
	metrics.Stage("parse", start)
	metrics.Records(records)

	meta := core.Meta{Source: source, Title: titleOf(records), Format: doc.Format}
	outputs, err := p.renderings(art)
	if err != nil {
		return res, err
	}
	for _, o := range outputs {
		data, err := o.renderer.Render(records, meta)
		if err != nil {
			return res, fmt.Errorf("render %s: %w", o.renderer.Extension(), err)
		}
		if path, err = p.writer.Write(o.path, data); err != nil {
			return res, err
		}
		res.Written = append(res.Written, path)
	}

	// 5. Export
	start = time.Now()
	var corpus bytes.Buffer
	if err := export.WriteTo(&corpus, p.exporter.Export(records)); err != nil {
		return res, fmt.Errorf("export: %w", err)
	}
	metrics.Stage("export", start)
	if path, err = p.writer.Write(art.Corpus(), corpus.Bytes()); err != nil {
		return res, err
	}
	res.Written = append(res.Written, path)

	res.Records, res.Labeled = len(records), true
	p.catalogue(ctx, entry, nil, records)
	return res, nil
}

// catalogue saves the outcome of one document. Catalog failures are logged,
// never fatal.
func (p *pipeline) catalogue(ctx context.Context, d store.Document, procErr error, records []core.Record) {
	if p.catalog == nil {
		return
	}
	d.Status = store.StatusOK
	if procErr != nil {
		d.Status, d.Error = store.StatusFailed, procErr.Error()
	}
	if _, err := p.catalog.Save(ctx, d, records); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Warn("could not save catalog entry", "source", d.Source, "error", err)
	}
}

// titleOf returns the content of the first title record.
func titleOf(records []core.Record) string {
	for _, r := range records {
		if r.Kind == core.KindTitle {
			return r.Content
		}
	}
	return ""
}
