// Package export serializes structural records into a flat token/label
// training corpus: one "token LABEL" pair per line, with a blank line after
// every record and at every slide break.
package export

import (
	"bufio"
	"io"
	"strings"

	"github.com/gaurav-prasanna/structmark/core"
	"github.com/gaurav-prasanna/structmark/core/chunk"
	"github.com/gaurav-prasanna/structmark/core/markup"
)

// Line is one corpus line: "token LABEL" or "" for a separator.
type Line string

// Exporter converts records to corpus lines. It is a pure function of its
// input: the same records always yield the same lines.
type Exporter struct {
	table   *markup.Table
	chunker *chunk.Chunker
}

// Options configures an Exporter.
type Options struct {
	// Table supplies corpus label overrides. Nil selects markup.Default().
	Table *markup.Table
	// MaxTokens splits longer records into several sentences. 0 disables it.
	MaxTokens int
}

// New creates an Exporter.
func New(opts Options) *Exporter {
	if opts.Table == nil {
		opts.Table = markup.Default()
	}
	return &Exporter{table: opts.Table, chunker: chunk.New(opts.MaxTokens)}
}

// Export converts records with the default configuration.
func Export(records []core.Record) []Line {
	return New(Options{}).Export(records)
}

// Export returns the corpus lines for records.
func (e *Exporter) Export(records []core.Record) []Line {
	var lines []Line
	for _, rec := range records {
		if rec.Kind == core.KindSlideBreak {
			lines = append(lines, "")
			continue
		}
		label := e.table.CorpusLabel(rec.Label())
		chunks := e.chunker.Split(strings.Fields(rec.Content))
		if len(chunks) == 0 {
			lines = append(lines, "")
			continue
		}
		for _, tokens := range chunks {
			for _, tok := range tokens {
				lines = append(lines, Line(tok+" "+label))
			}
			lines = append(lines, "")
		}
	}
	return lines
}

// WriteTo writes lines as UTF-8 text, each terminated by "\n".
func WriteTo(w io.Writer, lines []Line) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := bw.WriteString(string(l)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// String renders lines exactly as WriteTo writes them.
func String(lines []Line) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(string(l))
		b.WriteByte('\n')
	}
	return b.String()
}
