// Package render — HTML renderer.
// Renders records to a standalone HTML preview page through goldmark.
package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/gaurav-prasanna/structmark/core"
)

// HTMLRenderer renders a record stream as an HTML page.
type HTMLRenderer struct {
	md goldmark.Markdown
	mr *MarkdownRenderer
}

// NewHTMLRenderer creates an HTMLRenderer. lineBreak is passed to the
// Markdown renderer it builds on.
func NewHTMLRenderer(lineBreak string) *HTMLRenderer {
	return &HTMLRenderer{
		md: goldmark.New(goldmark.WithExtensions(extension.Table)),
		mr: NewMarkdownRenderer(lineBreak),
	}
}

// Render converts the records to Markdown, then to HTML.
func (r *HTMLRenderer) Render(records []core.Record, meta core.Meta) ([]byte, error) {
	src, err := r.mr.Render(records, meta)
	if err != nil {
		return nil, err
	}

	title := meta.Title
	if title == "" {
		title = meta.Source
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", html.EscapeString(title))
	if err := r.md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("rendering HTML: %w", err)
	}
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

// Extension returns the file extension for HTML output.
func (r *HTMLRenderer) Extension() string {
	return ".html"
}
