package normalize

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

const (
	nsW   = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`
	nsP   = `xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`
	nsA   = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"`
	nsR   = `xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`
	nsRel = `xmlns="http://schemas.openxmlformats.org/package/2006/relationships"`
)

func writeZip(t *testing.T, path string, parts map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, body := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func normalizeFile(t *testing.T, path string) string {
	t.Helper()
	doc, err := New(Options{}, nil).Normalize(context.Background(), path)
	if err != nil {
		t.Fatalf("Normalize(%s): %v", path, err)
	}
	return doc.Markdown
}

func TestDetect(t *testing.T) {
	tests := map[string]Format{
		"a.docx":   FormatDocx,
		"a.PDF":    FormatPDF,
		"a.pptx":   FormatPPTX,
		"a.xlsx":   FormatXLSX,
		"a.htm":    FormatHTML,
		"a.md":     FormatMarkdown,
		"a.txt":    FormatText,
		"a.odt":    FormatUnsupported,
		"noext":    FormatUnsupported,
		"dir/x.md": FormatMarkdown,
	}
	for path, want := range tests {
		if got := Detect(path); got != want {
			t.Errorf("Detect(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestOrientation(t *testing.T) {
	tests := []struct {
		w, h float64
		want string
	}{
		{800, 600, "#slide"},
		{600, 800, "#page"},
		{700, 700, "#page"},
	}
	for _, tt := range tests {
		if got := HeaderLabel(IsLandscape(tt.w, tt.h)); got != tt.want {
			t.Errorf("%vx%v: got %q, want %q", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestTableMarkdown(t *testing.T) {
	a, h1, h2 := "a", "H1", "H2"
	rows := NullableRows([][]Cell{{&h1, &h2}, {nil, &a}})
	want := "| H1 | H2 |\n| --- | --- |\n|  | a |"
	if got := TableMarkdown(rows); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got := TableMarkdown([][]string{{"x", "y", "z"}, {" multi\nline "}})
	want = "| x | y | z |\n| --- | --- | --- |\n| multi line |  |  |"
	if got != want {
		t.Errorf("padded: got %q, want %q", got, want)
	}

	if got := TableMarkdown(nil); got != "" {
		t.Errorf("empty: got %q", got)
	}
}

func TestStripPageNumbers(t *testing.T) {
	in := "#page 1\nText\n  12  \n\n3\nv2\n"
	want := "#page 1\nText\n\nv2\n"
	if got := StripPageNumbers(in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHeadingLevel(t *testing.T) {
	tests := []struct {
		style string
		level int
		ok    bool
	}{
		{"Heading 2", 2, true},
		{"heading 1", 1, true},
		{"Heading", 1, true},
		{"Heading X", 1, true},
		{"Normal", 0, false},
	}
	for _, tt := range tests {
		level, ok := headingLevel(tt.style)
		if level != tt.level || ok != tt.ok {
			t.Errorf("headingLevel(%q) = %d, %v; want %d, %v", tt.style, level, ok, tt.level, tt.ok)
		}
	}
}

func TestNormalizeDocx(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.docx")
	writeZip(t, path, map[string]string{
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?>
<w:document ` + nsW + ` ` + nsR + `><w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Intro</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Hello </w:t></w:r><w:r><w:t>world</w:t></w:r></w:p>
<w:p></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>A</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>B</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>1</w:t></w:r></w:p></w:tc><w:tc><w:p/></w:tc></w:tr>
</w:tbl>
<w:sectPr><w:pgSz w:w="16838" w:h="11906"/></w:sectPr>
</w:body></w:document>`,
		"word/styles.xml": `<w:styles ` + nsW + `><w:style w:styleId="Heading1"><w:name w:val="heading 1"/></w:style></w:styles>`,
		"word/_rels/document.xml.rels": `<Relationships ` + nsRel + `>
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`,
		"word/media/image1.png": "png-bytes",
	})

	doc, err := New(Options{}, nil).Normalize(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	want := "#slide\n![image1.png](doc_images/image1.png)\n\n# Intro\n\nHello world\n\n| A | B |\n| --- | --- |\n| 1 |  |\n"
	if doc.Markdown != want {
		t.Errorf("markdown:\n got %q\nwant %q", doc.Markdown, want)
	}
	if !doc.Landscape {
		t.Error("expected landscape")
	}
	data, err := os.ReadFile(filepath.Join(dir, "doc_images", "image1.png"))
	if err != nil || string(data) != "png-bytes" {
		t.Errorf("image not written: %q, %v", data, err)
	}
}

func TestNormalizeDocxWithoutPageSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.docx")
	writeZip(t, path, map[string]string{
		"word/document.xml": `<w:document ` + nsW + `><w:body><w:p><w:r><w:t>Only text</w:t></w:r></w:p></w:body></w:document>`,
	})
	if got, want := normalizeFile(t, path), "#page\nOnly text\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNormalizeCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	if err := os.WriteFile(path, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := New(Options{}, nil).Normalize(context.Background(), path)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("got %v, want ErrCorrupt", err)
	}
}

func TestNormalizeMissingFile(t *testing.T) {
	_, err := New(Options{}, nil).Normalize(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("got %v, want not-exist", err)
	}
}

func TestNormalizePPTX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deck.pptx")
	writeZip(t, path, map[string]string{
		"ppt/presentation.xml": `<p:presentation ` + nsP + ` ` + nsR + `>
<p:sldIdLst><p:sldId id="256" r:id="rId2"/></p:sldIdLst>
<p:sldSz cx="12192000" cy="6858000"/>
</p:presentation>`,
		"ppt/_rels/presentation.xml.rels": `<Relationships ` + nsRel + `>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide1.xml"/>
</Relationships>`,
		"ppt/slides/slide1.xml": `<p:sld ` + nsP + ` ` + nsA + ` ` + nsR + `><p:cSld><p:spTree>
<p:nvGrpSpPr/><p:grpSpPr/>
<p:sp><p:txBody><a:bodyPr/><a:p><a:r><a:t>Title text</a:t></a:r></a:p><a:p><a:r><a:t>Second</a:t></a:r></a:p></p:txBody></p:sp>
<p:pic><p:blipFill><a:blip r:embed="rId1"/></p:blipFill></p:pic>
<p:graphicFrame><a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl>
<a:tr><a:tc><a:txBody><a:p><a:r><a:t>H</a:t></a:r></a:p></a:txBody></a:tc></a:tr>
<a:tr><a:tc><a:txBody><a:p><a:r><a:t>v</a:t></a:r></a:p></a:txBody></a:tc></a:tr>
</a:tbl></a:graphicData></a:graphic></p:graphicFrame>
<p:graphicFrame><a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/chart"/></a:graphic></p:graphicFrame>
</p:spTree></p:cSld></p:sld>`,
		"ppt/slides/_rels/slide1.xml.rels": `<Relationships ` + nsRel + `>
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/image1.jpeg"/>
</Relationships>`,
		"ppt/media/image1.jpeg": "jpeg-bytes",
	})

	want := "#slide\n![image_0.jpg](deck_images/image_0.jpg)\n![chart_1.png](#)\n\n" +
		"#slide 1\nTitle text\nSecond\n\n| H |\n| --- |\n| v |\n"
	if got := normalizeFile(t, path); got != want {
		t.Errorf("markdown:\n got %q\nwant %q", got, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "deck_images", "image_0.jpg")); err != nil {
		t.Errorf("picture not written: %v", err)
	}
}

func TestNormalizeXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	f := excelize.NewFile()
	for cell, v := range map[string]any{"A1": "Name", "B1": "Qty", "A2": "apple", "B2": 3} {
		if err := f.SetCellValue("Sheet1", cell, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	want := "#page\n#page 1\n| Name | Qty |\n| --- | --- |\n| apple | 3 |\n"
	if got := normalizeFile(t, path); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func writePDF(t *testing.T, path, orientation, text string) {
	t.Helper()
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(60, 10, text)
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatal(err)
	}
}

func TestNormalizePDFOrientation(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		orientation string
		landscape   bool
		header      string
	}{
		{"L", true, "#slide 1"},
		{"P", false, "#page 1"},
	}
	for _, tt := range tests {
		path := filepath.Join(dir, "doc_"+tt.orientation+".pdf")
		writePDF(t, path, tt.orientation, "Hello")
		doc, err := New(Options{}, nil).Normalize(context.Background(), path)
		if err != nil {
			t.Fatal(err)
		}
		if doc.Landscape != tt.landscape {
			t.Errorf("%s: landscape = %v", tt.orientation, doc.Landscape)
		}
		if !strings.HasPrefix(doc.Markdown, tt.header+"\n") {
			t.Errorf("%s: markdown %q lacks header %q", tt.orientation, doc.Markdown, tt.header)
		}
		if !strings.Contains(doc.Markdown, "Hello") {
			t.Errorf("%s: markdown %q lacks page text", tt.orientation, doc.Markdown)
		}
	}
}

func TestNormalizePDFImages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")

	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for x := 0; x < 4; x++ {
		src.Set(x, 0, color.RGBA{R: uint8(60 * x), G: 10, B: 200, A: 0xff})
		src.Set(x, 1, color.RGBA{R: 250, G: uint8(60 * x), B: 0, A: 0xff})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(60, 10, "Text")
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("swatch", opts, &buf)
	pdf.ImageOptions("swatch", 10, 30, 40, 20, false, opts, 0, "")
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatal(err)
	}

	doc, err := New(Options{}, nil).Normalize(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc.Markdown, "![image_1_0](doc_images/image_1_0.png)") {
		t.Fatalf("markdown %q lacks image link", doc.Markdown)
	}

	f, err := os.Open(filepath.Join(dir, "doc_images", "image_1_0.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if got.Bounds().Dx() != 4 || got.Bounds().Dy() != 2 {
		t.Fatalf("bounds = %v", got.Bounds())
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			want := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			have := color.NRGBAModel.Convert(got.At(x, y)).(color.NRGBA)
			if want.R != have.R || want.G != have.G || want.B != have.B {
				t.Errorf("pixel (%d,%d) = %v, want %v", x, y, have, want)
			}
		}
	}
}

func TestNormalizeHTML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	html := `<html><head><title>Doc</title></head><body>
<nav>menu</nav>
<main><h1>Heading</h1><p>Para</p><img src="pic.png" alt="p"><img src="missing.png"></main>
</body></html>`
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pic.png"), []byte("img"), 0644); err != nil {
		t.Fatal(err)
	}

	got := normalizeFile(t, path)
	for _, want := range []string{"#page\n", "# Heading", "Para", "![p](page_images/pic.png)"} {
		if !strings.Contains(got, want) {
			t.Errorf("markdown %q lacks %q", got, want)
		}
	}
	for _, unwanted := range []string{"menu", "missing.png", "# Doc"} {
		if strings.Contains(got, unwanted) {
			t.Errorf("markdown %q contains %q", got, unwanted)
		}
	}
}

func TestNormalizeMarkdownFrontMatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("---\ntitle: Notes\n---\nBody text\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got, want := normalizeFile(t, path), "# Notes\n\nBody text\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNormalizeTextNFC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	// "e" followed by a combining acute accent, CRLF endings.
	if err := os.WriteFile(path, []byte("Cafe\u0301\r\nline\r\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got, want := normalizeFile(t, path), "Caf\u00e9\nline\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNormalizeUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.odt")
	doc, err := New(Options{}, nil).Normalize(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	want := "Unsupported file extension: .odt. Only images extracted if any.\n"
	if doc.Markdown != want {
		t.Errorf("got %q, want %q", doc.Markdown, want)
	}
}

func TestNormalizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(Options{}, nil).Normalize(ctx, "x.txt"); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestMediaSaveSkipsExisting(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "x_images")
	m := newMediaDir(dir)
	if _, err := m.Save("a.png", []byte("old")); err != nil {
		t.Fatal(err)
	}
	p, err := m.Save("a.png", []byte("new"))
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(p)
	if string(data) != "old" {
		t.Errorf("existing image rewritten: %q", data)
	}
	if got, want := m.Link("a", "a.png"), "![a](x_images/a.png)"; got != want {
		t.Errorf("Link = %q, want %q", got, want)
	}
}
