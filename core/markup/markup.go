// Package markup holds the label -> Markdown prefix table used by fusion.
// A Table is immutable; alternate mappings are built with New or With.
package markup

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/gaurav-prasanna/structmark/core"
)

// defaultPrefixes is the built-in mapping. An empty prefix means the span text
// is passed through untouched.
var defaultPrefixes = map[string]string{
	"SLIDE_BREAK":        "---\n",
	"TITLE":              "# ",
	"CHAPTER":            "## ",
	"SECTION":            "### ",
	"SUBSECTION":         "#### ",
	"HEADER_LEVEL_5":     "##### ",
	"LIST_ITEM":          "- ",
	"LIST_ITEM_TITLE":    "**",
	"NUMBERED_LIST_ITEM": "1. ",
	"TABLE_LINE":         "",
	"CHART":              "<!-- Chart placeholder -->\n",
	"IMAGE":              "![image](image_path)\n",
	"PARAGRAPH":          "",
}

// Table maps structural labels to the Markdown prefix fusion inserts.
type Table struct {
	prefixes map[core.Label]string
	corpus   map[core.Label]string // corpus label overrides
}

// Entry is one row of a Table.
type Entry struct {
	Label  string `json:"label" yaml:"label"`
	Prefix string `json:"prefix" yaml:"prefix"`
}

// Default returns the built-in table.
func Default() *Table {
	t, err := New(defaultPrefixes)
	if err != nil {
		// defaultPrefixes only names known kinds.
		panic(err)
	}
	return t
}

// New builds a table from label names to prefixes. Names are matched
// case-insensitively and must belong to the closed set of kinds.
func New(prefixes map[string]string) (*Table, error) {
	t := &Table{
		prefixes: make(map[core.Label]string, len(prefixes)),
		corpus:   map[core.Label]string{},
	}
	for name, prefix := range prefixes {
		l := core.ParseLabel(name)
		if l.Kind == core.KindUnknown {
			return nil, fmt.Errorf("unknown structural label %q", name)
		}
		t.prefixes[l] = prefix
	}
	return t, nil
}

// With returns a copy of t with the given overrides applied. t is unchanged.
func (t *Table) With(overrides map[string]string) (*Table, error) {
	merged := make(map[string]string, len(t.prefixes)+len(overrides))
	for l, p := range t.prefixes {
		merged[l.Name()] = p
	}
	for name, p := range overrides {
		l := core.ParseLabel(name)
		if l.Kind == core.KindUnknown {
			return nil, fmt.Errorf("unknown structural label %q", name)
		}
		merged[l.Name()] = p
	}
	nt, err := New(merged)
	if err != nil {
		return nil, err
	}
	for l, name := range t.corpus {
		nt.corpus[l] = name
	}
	return nt, nil
}

// WithCorpusLabels returns a copy of t whose exporter emits the given corpus
// label in place of a kind's default upper-case name.
func (t *Table) WithCorpusLabels(names map[string]string) (*Table, error) {
	nt := &Table{
		prefixes: make(map[core.Label]string, len(t.prefixes)),
		corpus:   make(map[core.Label]string, len(t.corpus)+len(names)),
	}
	for l, p := range t.prefixes {
		nt.prefixes[l] = p
	}
	for l, name := range t.corpus {
		nt.corpus[l] = name
	}
	for name, corpusName := range names {
		l := core.ParseLabel(name)
		if l.Kind == core.KindUnknown {
			return nil, fmt.Errorf("unknown structural label %q", name)
		}
		if corpusName == "" || strings.IndexFunc(corpusName, unicode.IsSpace) >= 0 {
			return nil, fmt.Errorf("corpus label %q for %s must be a single non-empty token", corpusName, name)
		}
		nt.corpus[l] = corpusName
	}
	return nt, nil
}

// CorpusLabel returns the label the exporter writes for l.
func (t *Table) CorpusLabel(l core.Label) string {
	if name, ok := t.corpus[l]; ok && name != "" {
		return name
	}
	return l.Name()
}

// Lookup resolves a raw label string. ok is false for labels outside the
// closed set and for known kinds the table has no entry for.
func (t *Table) Lookup(label string) (l core.Label, prefix string, ok bool) {
	l = core.ParseLabel(label)
	if l.Kind == core.KindUnknown {
		return l, "", false
	}
	prefix, ok = t.prefixes[l]
	return l, prefix, ok
}

// Entries lists the table sorted by label name.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.prefixes))
	for l, p := range t.prefixes {
		out = append(out, Entry{Label: l.Name(), Prefix: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
