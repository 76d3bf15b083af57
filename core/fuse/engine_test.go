package fuse

import (
	"strings"
	"testing"

	"github.com/gaurav-prasanna/structmark/core"
	"github.com/gaurav-prasanna/structmark/core/markup"
)

func TestFuseOverlapDrop(t *testing.T) {
	e := New(nil, nil)
	got, st := e.FuseStats("HelloWorld", []core.Span{
		{Start: 0, End: 5, Label: "TITLE"},
		{Start: 3, End: 8, Label: "SECTION"},
	})
	if got != "# HelloWorld" {
		t.Errorf("Expected %q, got %q", "# HelloWorld", got)
	}
	if st.Applied != 1 || st.Dropped != 1 {
		t.Errorf("Expected 1 applied and 1 dropped, got %+v", st)
	}
}

func TestFuseSortsSpans(t *testing.T) {
	e := New(nil, nil)
	text := "Intro\nfirst point\nrest"
	spans := []core.Span{
		{Start: 6, End: 17, Label: "list_item"},
		{Start: 0, End: 5, Label: "Title"},
	}
	got := e.Fuse(text, spans)
	want := "# Intro\n- first point\nrest"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestFusePreservesGapText(t *testing.T) {
	e := New(nil, nil)
	text := "AAA gap text BBB tail"
	got := e.Fuse(text, []core.Span{
		{Start: 0, End: 3, Label: "CHAPTER"},
		{Start: 13, End: 16, Label: "SECTION"},
	})
	want := "## AAA gap text ### BBB tail"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if strings.Index(got, "## AAA") > strings.Index(got, "### BBB") {
		t.Error("Span order not preserved")
	}
}

func TestFuseStripsMarkupNoise(t *testing.T) {
	e := New(nil, nil)
	got := e.Fuse("## - * Heading", []core.Span{{Start: 0, End: 14, Label: "TITLE"}})
	if got != "# Heading" {
		t.Errorf("Expected %q, got %q", "# Heading", got)
	}
}

func TestFusePassThrough(t *testing.T) {
	e := New(nil, nil)
	tests := []struct {
		name  string
		label string
	}{
		{"unknown label", "VESSEL"},
		{"typo", "TITEL"},
		{"paragraph has empty prefix", "PARAGRAPH"},
		{"table line has empty prefix", "table_line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := "## keep me"
			got, st := e.FuseStats(text, []core.Span{{Start: 0, End: len(text), Label: tt.label}})
			if got != text {
				t.Errorf("Expected raw text %q, got %q", text, got)
			}
			if st.PassThrough != 1 {
				t.Errorf("Expected pass-through, got %+v", st)
			}
		})
	}
}

func TestFuseOutOfBounds(t *testing.T) {
	e := New(nil, nil)
	text := "short"
	spans := []core.Span{
		{Start: -1, End: 2, Label: "TITLE"},
		{Start: 2, End: 99, Label: "TITLE"},
		{Start: 4, End: 3, Label: "TITLE"},
	}
	got, st := e.FuseStats(text, spans)
	if got != text {
		t.Errorf("Expected %q, got %q", text, got)
	}
	if st.Dropped != 3 {
		t.Errorf("Expected 3 dropped, got %+v", st)
	}
}

func TestFuseRuneOffsets(t *testing.T) {
	e := New(nil, nil)
	text := "Été\nsuite"
	got := e.Fuse(text, []core.Span{{Start: 0, End: 3, Label: "TITLE"}})
	if got != "# Été\nsuite" {
		t.Errorf("Expected code point offsets, got %q", got)
	}
}

func TestFuseSlideBreakHeuristic(t *testing.T) {
	e := New(nil, nil)
	text := "slide 1\nBody\nslide 2\nMore"
	got := e.Fuse(text, []core.Span{
		{Start: 0, End: 7, Label: "TITLE"},
		{Start: 13, End: 20, Label: "TITLE"},
	})
	want := "---\n# slide 1\nBody\n---\n# slide 2\nMore"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestFuseIdempotent(t *testing.T) {
	e := New(nil, nil)
	inputs := []string{
		"# Slide 1\n\n\n\n\nText\n\n\n# slide 2\n",
		"plain\n\n\n\nparagraphs",
		"",
		"---\n# slide 3",
	}
	for _, in := range inputs {
		once := e.Fuse(in, nil)
		twice := e.Fuse(once, nil)
		if once != twice {
			t.Errorf("Fuse not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

func TestCollapseBlankLines(t *testing.T) {
	in := "a\n\n\n\nb\n\n\nc\n\nd"
	want := "a\n\nb\n\nc\n\nd"
	once := CollapseBlankLines(in)
	if once != want {
		t.Errorf("Expected %q, got %q", want, once)
	}
	if CollapseBlankLines(once) != once {
		t.Error("CollapseBlankLines not idempotent")
	}
}

func TestFuseCustomTable(t *testing.T) {
	table, err := markup.Default().With(map[string]string{"TITLE": "= "})
	if err != nil {
		t.Fatal(err)
	}
	e := New(table, nil)
	got := e.Fuse("Name", []core.Span{{Start: 0, End: 4, Label: "title"}})
	if got != "= Name" {
		t.Errorf("Expected %q, got %q", "= Name", got)
	}
}
