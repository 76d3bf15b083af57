package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the closed set of structural kinds known to the pipeline.
type Kind int

const (
	// KindUnknown marks labels outside the closed set. Fusion passes them through.
	KindUnknown Kind = iota
	KindTitle
	KindChapter
	KindSection
	KindSubsection
	KindHeaderLevel // carries the heading depth in Level
	KindParagraph
	KindListItem
	KindListItemTitle
	KindNumberedListItem
	KindTableLine
	KindImage
	KindChart
	KindSlideBreak
)

var kindNames = map[Kind]string{
	KindTitle:            "title",
	KindChapter:          "chapter",
	KindSection:          "section",
	KindSubsection:       "subsection",
	KindHeaderLevel:      "header_level",
	KindParagraph:        "paragraph",
	KindListItem:         "list_item",
	KindListItemTitle:    "list_item_title",
	KindNumberedListItem: "numbered_list_item",
	KindTableLine:        "table_line",
	KindImage:            "image",
	KindChart:            "chart",
	KindSlideBreak:       "slide_break",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Label identifies a structural kind together with its heading depth.
// Level is only meaningful for KindHeaderLevel.
type Label struct {
	Kind  Kind
	Level int
}

// Name returns the upper-case label name, e.g. "TITLE" or "HEADER_LEVEL_5".
func (l Label) Name() string {
	if l.Kind == KindHeaderLevel {
		return fmt.Sprintf("HEADER_LEVEL_%d", l.Level)
	}
	return strings.ToUpper(l.Kind.String())
}

// ParseLabel resolves a label string case-insensitively against the closed
// set of kinds. Anything else resolves to KindUnknown.
func ParseLabel(s string) Label {
	name := strings.ToLower(strings.TrimSpace(s))
	if rest, ok := strings.CutPrefix(name, "header_level_"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 5 {
			return Label{Kind: KindUnknown}
		}
		return Label{Kind: KindHeaderLevel, Level: n}
	}
	for k, kn := range kindNames {
		if k != KindHeaderLevel && kn == name {
			return Label{Kind: k}
		}
	}
	return Label{Kind: KindUnknown}
}

// Span is an external entity annotation over canonical text. Start and End
// are half-open offsets counted in Unicode code points.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
}

// UnmarshalJSON accepts "entity_group" as an alias for "label", which is how
// aggregated token-classification output names the field.
func (s *Span) UnmarshalJSON(data []byte) error {
	var raw struct {
		Start       int    `json:"start"`
		End         int    `json:"end"`
		Label       string `json:"label"`
		EntityGroup string `json:"entity_group"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Start, s.End, s.Label = raw.Start, raw.End, raw.Label
	if s.Label == "" {
		s.Label = raw.EntityGroup
	}
	return nil
}

// Record is one typed unit of parsed document structure.
type Record struct {
	Kind    Kind
	Level   int // heading depth for KindHeaderLevel
	Content string
}

// Label returns the record's kind as a Label.
func (r Record) Label() Label {
	return Label{Kind: r.Kind, Level: r.Level}
}

// TypeName returns the snake_case record type, e.g. "header_level_5".
func (r Record) TypeName() string {
	if r.Kind == KindHeaderLevel {
		return fmt.Sprintf("header_level_%d", r.Level)
	}
	return r.Kind.String()
}

// recordJSON is the on-disk shape of a record: {"type": ..., "content": ...}.
// Slide breaks carry no content.
type recordJSON struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// MarshalJSON encodes a record as {"type", "content"}.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{Type: r.TypeName(), Content: r.Content})
}

// UnmarshalJSON decodes a record written by MarshalJSON. Unknown types decode
// to KindUnknown rather than failing.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l := ParseLabel(raw.Type)
	r.Kind, r.Level, r.Content = l.Kind, l.Level, raw.Content
	return nil
}
