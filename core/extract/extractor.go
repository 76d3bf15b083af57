// Package extract isolates the main content of an HTML document by:
//  1. Finding the best content container (<main>, <article>, or <body>)
//  2. Removing noise elements (nav, footer, scripts, forms, etc.)
//  3. Optionally handing every kept image to a resolver that relocates it
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelectors are HTML elements removed before extraction.
// These contribute no meaningful content to the document text.
var noiseSelectors = []string{
	"script", "style", "noscript",
	"nav", "footer", "header",
	"iframe", "video", "audio",
	"svg", "canvas",
	"form", "button", "input", "select", "textarea",
	".sidebar", ".menu", ".navigation", ".ads", ".advertisement",
}

// imageSelectors are dropped unless the extractor keeps images.
var imageSelectors = []string{"img", "picture", "figure", "figcaption"}

// ImageResolver maps an image source to the reference written into the
// fragment. Returning "" drops the image.
type ImageResolver func(src, alt string) string

// Result is the cleaned content of a page.
type Result struct {
	Title string
	HTML  string
}

// HTMLExtractor strips noise from HTML and returns the main content fragment.
type HTMLExtractor struct {
	resolve ImageResolver
}

// New creates an HTMLExtractor. With a nil resolver images are removed
// along with the other noise.
func New(resolve ImageResolver) *HTMLExtractor {
	return &HTMLExtractor{resolve: resolve}
}

// Extract takes raw HTML and returns a cleaned HTML fragment containing
// only the main content.
func (e *HTMLExtractor) Extract(html string) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())

	// Remove noise elements first (operates on the whole document).
	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}
	if e.resolve == nil {
		for _, sel := range imageSelectors {
			doc.Find(sel).Remove()
		}
	} else {
		doc.Find("img").Each(func(_ int, img *goquery.Selection) {
			src, _ := img.Attr("src")
			alt, _ := img.Attr("alt")
			ref := e.resolve(strings.TrimSpace(src), alt)
			if ref == "" {
				img.Remove()
				return
			}
			img.SetAttr("src", ref)
		})
	}

	// Find the best content container in priority order.
	// <main> is the most semantically correct, then <article>, then <body>.
	var content *goquery.Selection
	for _, tag := range []string{"main", "article", "body"} {
		sel := doc.Find(tag)
		if sel.Length() > 0 {
			content = sel.First()
			break
		}
	}

	if content == nil {
		return nil, fmt.Errorf("no content container found in HTML")
	}

	result, err := goquery.OuterHtml(content)
	if err != nil {
		return nil, fmt.Errorf("serializing content: %w", err)
	}

	return &Result{Title: title, HTML: result}, nil
}
