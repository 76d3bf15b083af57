// Package render — JSON renderer.
// Writes the record stream as the labeled JSON artifact: an array of
// {"type", "content"} objects in source order.
package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gaurav-prasanna/structmark/core"
)

// JSONRenderer produces the labeled JSON artifact.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render marshals the records as an indented JSON array. An empty stream
// renders as [].
func (r *JSONRenderer) Render(records []core.Record, meta core.Meta) ([]byte, error) {
	if records == nil {
		records = []core.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

// DecodeRecords reads a labeled JSON artifact back into records.
func DecodeRecords(rd io.Reader) ([]core.Record, error) {
	var records []core.Record
	if err := json.NewDecoder(rd).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	return records, nil
}
