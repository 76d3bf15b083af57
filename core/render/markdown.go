// Package render — Markdown renderer.
// Writes a record stream back out as Markdown. Parsing the output yields
// the same records.
package render

import (
	"strings"

	"github.com/gaurav-prasanna/structmark/core"
	"github.com/gaurav-prasanna/structmark/core/parse"
)

// MarkdownRenderer serializes records as Markdown.
type MarkdownRenderer struct {
	lineBreak string
}

// NewMarkdownRenderer creates a MarkdownRenderer. lineBreak is the marker the
// parser joined paragraph lines with; empty selects parse.DefaultLineBreak.
func NewMarkdownRenderer(lineBreak string) *MarkdownRenderer {
	if lineBreak == "" {
		lineBreak = parse.DefaultLineBreak
	}
	return &MarkdownRenderer{lineBreak: lineBreak}
}

// Render writes one block per record separated by blank lines. Consecutive
// table lines stay together so the table survives.
func (r *MarkdownRenderer) Render(records []core.Record, meta core.Meta) ([]byte, error) {
	var b strings.Builder
	for i, rec := range records {
		if i > 0 {
			b.WriteByte('\n')
			if !(rec.Kind == core.KindTableLine && records[i-1].Kind == core.KindTableLine) {
				b.WriteByte('\n')
			}
		}
		b.WriteString(r.block(rec))
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

func (r *MarkdownRenderer) block(rec core.Record) string {
	switch rec.Kind {
	case core.KindSlideBreak:
		return "---"
	case core.KindTitle, core.KindChapter, core.KindSection, core.KindSubsection, core.KindHeaderLevel:
		return strings.Repeat("#", headingLevel(rec)) + " " + rec.Content
	case core.KindParagraph:
		return strings.ReplaceAll(rec.Content, r.lineBreak, "\n")
	default:
		return rec.Content
	}
}

// headingLevel returns the Markdown heading depth of a heading record.
func headingLevel(rec core.Record) int {
	switch rec.Kind {
	case core.KindTitle:
		return 1
	case core.KindChapter:
		return 2
	case core.KindSection:
		return 3
	case core.KindSubsection:
		return 4
	case core.KindHeaderLevel:
		if rec.Level >= 5 {
			return min(rec.Level, 6)
		}
		return 5
	}
	return 0
}
