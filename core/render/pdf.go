// Package render — PDF renderer.
// Lays a record stream out as a PDF preview using gofpdf. Headings get
// variable font sizes, slide breaks start a new page and images are embedded
// when their files can be found.
package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/gaurav-prasanna/structmark/core"
	"github.com/gaurav-prasanna/structmark/core/parse"
)

var imageRefRe = regexp.MustCompile(`^!\[([^\]]*)\]\(([^)]*)\)`)

// PDFRenderer renders records as a PDF document.
type PDFRenderer struct {
	baseDir   string
	lineBreak string
}

// NewPDFRenderer creates a PDFRenderer. Image references are resolved
// against baseDir, normally the directory of the Markdown file.
func NewPDFRenderer(baseDir, lineBreak string) *PDFRenderer {
	if lineBreak == "" {
		lineBreak = parse.DefaultLineBreak
	}
	return &PDFRenderer{baseDir: baseDir, lineBreak: lineBreak}
}

// Render converts records into PDF bytes.
func (r *PDFRenderer) Render(records []core.Record, meta core.Meta) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Title from metadata.
	if meta.Title != "" {
		pdf.SetFont("Helvetica", "B", 18)
		pdf.MultiCell(0, 8, tr(meta.Title), "", "L", false)
		pdf.Ln(4)
	}

	if meta.Source != "" {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(100, 100, 100)
		pdf.MultiCell(0, 5, tr("Source: "+meta.Source), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(6)
	}

	for i, rec := range records {
		switch rec.Kind {
		case core.KindSlideBreak:
			if i > 0 {
				pdf.AddPage()
			}
		case core.KindTitle, core.KindChapter, core.KindSection, core.KindSubsection, core.KindHeaderLevel:
			renderHeading(pdf, tr(rec.Content), headingLevel(rec))
		case core.KindListItem:
			pdf.SetFont("Helvetica", "", 10)
			text := strings.TrimSpace(strings.TrimLeft(rec.Content, "-* "))
			pdf.MultiCell(0, 5, tr("• "+cleanInlineMarkdown(text)), "", "L", false)
		case core.KindNumberedListItem:
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(cleanInlineMarkdown(rec.Content)), "", "L", false)
		case core.KindTableLine:
			if isTableSeparator(rec.Content) {
				continue
			}
			pdf.SetFont("Courier", "", 9)
			pdf.SetFillColor(245, 245, 245)
			pdf.MultiCell(0, 4.5, tr(rec.Content), "", "L", true)
		case core.KindImage:
			r.renderImage(pdf, tr, rec.Content)
		case core.KindChart:
			renderPlaceholder(pdf, tr, "[chart]")
		default:
			pdf.SetFont("Helvetica", "", 10)
			for _, line := range strings.Split(rec.Content, r.lineBreak) {
				pdf.MultiCell(0, 5, tr(cleanInlineMarkdown(line)), "", "L", false)
			}
			pdf.Ln(3)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

// renderImage embeds a local PNG, JPEG or GIF image. Anything else, or an
// image gofpdf rejects, becomes a placeholder line.
func (r *PDFRenderer) renderImage(pdf *gofpdf.Fpdf, tr func(string) string, ref string) {
	m := imageRefRe.FindStringSubmatch(ref)
	if m == nil {
		renderPlaceholder(pdf, tr, ref)
		return
	}
	alt, target := m[1], m[2]
	path := filepath.Join(r.baseDir, filepath.FromSlash(target))
	ext := strings.ToLower(filepath.Ext(path))
	if _, err := os.Stat(path); err != nil || (ext != ".png" && ext != ".jpg" && ext != ".jpeg" && ext != ".gif") {
		renderPlaceholder(pdf, tr, "[image: "+alt+"]")
		return
	}

	opts := gofpdf.ImageOptions{ReadDpi: true}
	info := pdf.RegisterImageOptions(path, opts)
	if !pdf.Ok() || info == nil {
		pdf.ClearError()
		renderPlaceholder(pdf, tr, "[image: "+alt+"]")
		return
	}
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	w := info.Width()
	if maxW := pageW - left - right; w > maxW {
		w = maxW
	}
	pdf.ImageOptions(path, left, pdf.GetY(), w, 0, true, opts, 0, "")
	pdf.Ln(3)
}

func renderPlaceholder(pdf *gofpdf.Fpdf, tr func(string) string, text string) {
	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.MultiCell(0, 5, tr(text), "", "L", false)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(2)
}

// renderHeading sets the font size based on heading level and writes text.
func renderHeading(pdf *gofpdf.Fpdf, text string, level int) {
	sizes := map[int]float64{1: 18, 2: 15, 3: 13, 4: 12, 5: 11, 6: 10}
	size, ok := sizes[level]
	if !ok {
		size = 10
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", size)
	pdf.MultiCell(0, size*0.6, cleanInlineMarkdown(text), "", "L", false)
	pdf.Ln(2)
}

var tableSepRe = regexp.MustCompile(`^\|[-:| ]+\|$`)

func isTableSeparator(line string) bool {
	return tableSepRe.MatchString(line)
}

var (
	italicRe = regexp.MustCompile(`(?:^|\s)\*([^*]+)\*(?:\s|$)`)
	codeRe   = regexp.MustCompile("`([^`]+)`")
	linkRe   = regexp.MustCompile(`\[([^\]]*)\]\([^)]+\)`)
)

// cleanInlineMarkdown strips inline Markdown formatting for PDF rendering.
func cleanInlineMarkdown(text string) string {
	// Remove bold markers.
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")
	// Remove italic markers (but not inside words like don't).
	text = italicRe.ReplaceAllString(text, " $1 ")
	text = codeRe.ReplaceAllString(text, "$1")
	text = linkRe.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}
