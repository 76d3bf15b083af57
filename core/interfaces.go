// Package core defines the pipeline types and stage interfaces for structmark.
// Each stage of the pipeline is a clean, testable interface.
package core

import "context"

// Document is the canonical form of a source file after format normalization.
// It is immutable once produced.
type Document struct {
	Source    string   `json:"source"`
	Format    string   `json:"format"`
	Landscape bool     `json:"landscape"`
	Markdown  string   `json:"markdown"`
	Images    []string `json:"images,omitempty"` // paths of extracted media files
}

// Meta describes the document a record stream was parsed from.
type Meta struct {
	Source string `json:"source"`
	Title  string `json:"title,omitempty"`
	Format string `json:"format,omitempty"`
}

// Normalizer converts a source document into canonical Markdown plus media.
type Normalizer interface {
	Normalize(ctx context.Context, path string) (*Document, error)
}

// Labeler returns entity spans over the exact text it was given.
// The spans are untrusted: they may be unsorted, overlapping or out of range.
type Labeler interface {
	Label(ctx context.Context, text string) ([]Span, error)
}

// Renderer converts a structural record stream into a final output format.
type Renderer interface {
	Render(records []Record, meta Meta) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".json", ".pdf").
	Extension() string
}
