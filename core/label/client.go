// Package label talks to the external token-classification labeler.
// It posts canonical text over HTTP and returns the entity spans the model
// found, or loads spans precomputed into a JSON file.
package label

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gaurav-prasanna/structmark/core"
	"github.com/gaurav-prasanna/structmark/internal/logging"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "structmark/1.0 (https://github.com/gaurav-prasanna/structmark)"
)

// Options configures an HTTPLabeler.
type Options struct {
	URL     string
	Timeout time.Duration // per request; 0 selects the default
	// Window caps the code points sent per request. Longer texts are cut at
	// line boundaries and labeled window by window. 0 sends the whole text.
	Window int
}

// HTTPLabeler labels text through an HTTP endpoint.
type HTTPLabeler struct {
	url    string
	window int
	client *http.Client
}

// New creates an HTTPLabeler.
func New(opts Options) *HTTPLabeler {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPLabeler{
		url:    opts.URL,
		window: opts.Window,
		client: &http.Client{Timeout: timeout},
	}
}

// labelRequest is the request body for the labeler endpoint.
type labelRequest struct {
	Text string `json:"text"`
}

// Label returns the spans for text. Span offsets from windowed requests are
// shifted back into the coordinates of the full text.
func (l *HTTPLabeler) Label(ctx context.Context, text string) ([]core.Span, error) {
	var all []core.Span
	for i, w := range windows(text, l.window) {
		spans, err := l.label(ctx, w.text)
		if err != nil {
			return nil, fmt.Errorf("labeling window %d: %w", i+1, err)
		}
		for _, s := range spans {
			s.Start += w.offset
			s.End += w.offset
			all = append(all, s)
		}
	}
	return all, nil
}

// label posts a single text to the endpoint.
func (l *HTTPLabeler) label(ctx context.Context, text string) ([]core.Span, error) {
	bodyBytes, err := json.Marshal(labelRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)
	if id := logging.RequestID(ctx); id != "" {
		req.Header.Set(logging.RequestIDHeader, id)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling labeler %s: %w", l.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("labeler returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	spans, err := Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding labeler response: %w", err)
	}
	return spans, nil
}

// window is a slice of the input text and its offset in code points.
type window struct {
	offset int
	text   string
}

// windows cuts text into pieces of at most size code points, preferring to
// cut after a newline. size <= 0 yields the whole text.
func windows(text string, size int) []window {
	runes := []rune(text)
	if size <= 0 || len(runes) <= size {
		return []window{{offset: 0, text: text}}
	}

	var out []window
	for start := 0; start < len(runes); {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			for i := end - 1; i > start; i-- {
				if runes[i] == '\n' {
					end = i + 1
					break
				}
			}
		}
		out = append(out, window{offset: start, text: string(runes[start:end])})
		start = end
	}
	return out
}
