// Package fuse merges external entity spans into canonical Markdown.
//
// Fusion is a total function: spans that are out of range or that start
// before the end of an already applied span are dropped, and labels outside
// the markup table are passed through as raw text.
package fuse

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/gaurav-prasanna/structmark/core"
	"github.com/gaurav-prasanna/structmark/core/markup"
)

// slideHeading is the lower-cased line prefix that gets a slide break above it.
const slideHeading = "# slide"

// markupNoise is stripped from the left of a span's text before its prefix is
// inserted, so "## Intro" labelled TITLE becomes "# Intro" and not "# ## Intro".
const markupNoise = "#-* \t\n\r"

var blankRun = regexp.MustCompile(`\n{3,}`)

// Stats counts what happened to the spans of one Fuse call.
type Stats struct {
	Applied     int // known label with a prefix
	PassThrough int // unknown label or empty prefix
	Dropped     int // out of range or overlapping
}

// Engine fuses spans using an immutable markup table.
type Engine struct {
	table  *markup.Table
	logger *slog.Logger
}

// New creates an Engine. A nil table selects markup.Default(); a nil logger
// selects slog.Default().
func New(table *markup.Table, logger *slog.Logger) *Engine {
	if table == nil {
		table = markup.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{table: table, logger: logger}
}

// Fuse returns text with the markup for each honoured span inserted.
func (e *Engine) Fuse(text string, spans []core.Span) string {
	out, _ := e.FuseStats(text, spans)
	return out
}

// FuseStats is Fuse that also reports per-span outcomes.
func (e *Engine) FuseStats(text string, spans []core.Span) (string, Stats) {
	var st Stats
	runes := []rune(text)

	ordered := make([]core.Span, len(spans))
	copy(ordered, spans)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, sp := range ordered {
		if sp.Start < last || sp.Start < 0 || sp.End > len(runes) || sp.End < sp.Start {
			st.Dropped++
			e.logger.Debug("dropping span", "start", sp.Start, "end", sp.End, "label", sp.Label, "cursor", last)
			continue
		}
		b.WriteString(string(runes[last:sp.Start]))

		raw := string(runes[sp.Start:sp.End])
		_, prefix, ok := e.table.Lookup(sp.Label)
		if ok && prefix != "" {
			b.WriteString(prefix)
			b.WriteString(strings.TrimLeft(raw, markupNoise))
			st.Applied++
		} else {
			b.WriteString(raw)
			st.PassThrough++
		}
		last = sp.End
	}
	b.WriteString(string(runes[last:]))

	return Normalize(b.String()), st
}

// Normalize applies the post-fusion heuristics: a "---" line is inserted
// above every "# slide" heading that does not already have one, and runs of
// three or more newlines collapse to a single blank line. It is idempotent.
func Normalize(text string) string {
	return CollapseBlankLines(insertSlideBreaks(text))
}

// CollapseBlankLines collapses runs of blank lines to exactly one.
func CollapseBlankLines(text string) string {
	return blankRun.ReplaceAllString(text, "\n\n")
}

func insertSlideBreaks(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), slideHeading) &&
			!precededByBreak(out) {
			out = append(out, "---")
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// precededByBreak reports whether the last non-blank emitted line is "---".
func precededByBreak(lines []string) bool {
	for i := len(lines) - 1; i >= 0; i-- {
		t := strings.TrimSpace(lines[i])
		if t == "" {
			continue
		}
		return t == "---"
	}
	return false
}
