// Package parse turns Markdown (labeled or not) into an ordered stream of
// structural records.
//
// Each line is tested against an ordered list of matchers; the first match
// wins. Plain text lines accumulate in a paragraph buffer that is flushed by
// every structural line, by blank lines and at end of input.
package parse

import (
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/structmark/core"
)

// DefaultLineBreak joins the lines of a multi-line paragraph. It is the
// literal two-character sequence backslash-n, so a paragraph stays one record
// and one corpus sentence.
const DefaultLineBreak = `\n`

var (
	headingRe  = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	bulletRe   = regexp.MustCompile(`^[-*]\s+.+`)
	numberedRe = regexp.MustCompile(`^\d+\.\s+.+`)
	imageRe    = regexp.MustCompile(`^!\[.*?\]\(.*?\)`)
	chartRe    = regexp.MustCompile(`^<!--\s*Chart placeholder\s*-->`)
	tableRe    = regexp.MustCompile(`^\|.*\|`)
)

// matcher recognises one line type. emit returns the record for the line, or
// ok=false for lines that only flush (blank lines).
type matcher struct {
	name  string
	match func(line string) bool
	emit  func(line string) (rec core.Record, ok bool)
}

// matchers is the line-type cascade in priority order. The order is part of
// the parser's contract.
var matchers = []matcher{
	{
		name:  "slide_break",
		match: func(l string) bool { return strings.TrimSpace(l) == "---" },
		emit:  func(string) (core.Record, bool) { return core.Record{Kind: core.KindSlideBreak}, true },
	},
	{
		name:  "heading",
		match: headingRe.MatchString,
		emit:  emitHeading,
	},
	{
		name:  "list_item",
		match: bulletRe.MatchString,
		emit:  trimmed(core.KindListItem),
	},
	{
		name:  "numbered_list_item",
		match: numberedRe.MatchString,
		emit:  trimmed(core.KindNumberedListItem),
	},
	{
		name:  "image",
		match: imageRe.MatchString,
		emit:  trimmed(core.KindImage),
	},
	{
		name:  "chart",
		match: chartRe.MatchString,
		emit:  trimmed(core.KindChart),
	},
	{
		name:  "table_line",
		match: tableRe.MatchString,
		emit:  trimmed(core.KindTableLine),
	},
	{
		name:  "blank",
		match: func(l string) bool { return strings.TrimSpace(l) == "" },
		emit:  func(string) (core.Record, bool) { return core.Record{}, false },
	},
}

func trimmed(kind core.Kind) func(string) (core.Record, bool) {
	return func(l string) (core.Record, bool) {
		return core.Record{Kind: kind, Content: strings.TrimSpace(l)}, true
	}
}

func emitHeading(l string) (core.Record, bool) {
	m := headingRe.FindStringSubmatch(l)
	level := len(m[1])
	rec := core.Record{Content: strings.TrimSpace(m[2])}
	switch level {
	case 1:
		rec.Kind = core.KindTitle
	case 2:
		rec.Kind = core.KindChapter
	case 3:
		rec.Kind = core.KindSection
	case 4:
		rec.Kind = core.KindSubsection
	default:
		rec.Kind = core.KindHeaderLevel
		rec.Level = level
	}
	return rec, true
}

// Parser is a configured structural parser. The zero value is not usable;
// call New.
type Parser struct {
	lineBreak string
}

// New creates a Parser joining paragraph lines with lineBreak. An empty
// lineBreak selects DefaultLineBreak.
func New(lineBreak string) *Parser {
	if lineBreak == "" {
		lineBreak = DefaultLineBreak
	}
	return &Parser{lineBreak: lineBreak}
}

// Parse parses text with the default configuration.
func Parse(text string) []core.Record {
	return New("").Parse(text)
}

// Parse returns the structural records of text in source order.
func (p *Parser) Parse(text string) []core.Record {
	var (
		records []core.Record
		buffer  []string
	)
	flush := func() {
		if len(buffer) > 0 {
			para := strings.TrimSpace(strings.Join(buffer, p.lineBreak))
			if para != "" {
				records = append(records, core.Record{Kind: core.KindParagraph, Content: para})
			}
		}
		buffer = buffer[:0]
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, " \t\r\f\v")
		m, ok := classify(line)
		if !ok {
			buffer = append(buffer, line)
			continue
		}
		flush()
		if rec, emit := m.emit(line); emit {
			records = append(records, rec)
		}
	}
	flush()
	return records
}

// classify returns the first matcher accepting line.
func classify(line string) (matcher, bool) {
	for _, m := range matchers {
		if m.match(line) {
			return m, true
		}
	}
	return matcher{}, false
}
