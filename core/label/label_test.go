package label

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/gaurav-prasanna/structmark/core"
	"github.com/gaurav-prasanna/structmark/internal/logging"
)

func TestDecode(t *testing.T) {
	want := []core.Span{{Start: 0, End: 5, Label: "TITLE"}, {Start: 6, End: 9, Label: "SECTION"}}
	tests := map[string]string{
		"array":        `[{"start":0,"end":5,"label":"TITLE"},{"start":6,"end":9,"label":"SECTION"}]`,
		"object":       `{"entities":[{"start":0,"end":5,"label":"TITLE"},{"start":6,"end":9,"label":"SECTION"}]}`,
		"entity_group": `[{"start":0,"end":5,"entity_group":"TITLE","score":0.9},{"start":6,"end":9,"entity_group":"SECTION"}]`,
	}
	for name, in := range tests {
		got, err := Decode(strings.NewReader(in))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: got %+v, want %+v", name, got, want)
		}
	}

	if got, err := Decode(strings.NewReader("  ")); err != nil || got != nil {
		t.Errorf("empty: %v, %v", got, err)
	}
	if _, err := Decode(strings.NewReader("{")); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestFileLabeler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.json")
	if err := os.WriteFile(path, []byte(`[{"start":1,"end":2,"label":"LIST_ITEM"}]`), 0644); err != nil {
		t.Fatal(err)
	}
	spans, err := NewFileLabeler(path).Label(context.Background(), "ignored")
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 1 || spans[0].Label != "LIST_ITEM" {
		t.Errorf("spans = %+v", spans)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestHTTPLabeler(t *testing.T) {
	var gotText, gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var req labelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		gotText = req.Text
		gotID = r.Header.Get(logging.RequestIDHeader)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"entities":[{"start":0,"end":5,"entity_group":"TITLE"}]}`))
	}))
	defer srv.Close()

	ctx := logging.WithRequestID(context.Background(), "req-7")
	spans, err := New(Options{URL: srv.URL}).Label(ctx, "Hello world")
	if err != nil {
		t.Fatal(err)
	}
	if gotText != "Hello world" || gotID != "req-7" {
		t.Errorf("server saw text %q id %q", gotText, gotID)
	}
	want := []core.Span{{Start: 0, End: 5, Label: "TITLE"}}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("spans = %+v", spans)
	}
}

func TestHTTPLabelerWindows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req labelRequest
		json.NewDecoder(r.Body).Decode(&req)
		// label the first line of every window
		end := strings.IndexByte(req.Text, '\n')
		if end < 0 {
			end = len(req.Text)
		}
		json.NewEncoder(w).Encode([]core.Span{{Start: 0, End: end, Label: "TITLE"}})
	}))
	defer srv.Close()

	text := "aaaa\nbbbb\ncccc"
	spans, err := New(Options{URL: srv.URL, Window: 6}).Label(context.Background(), text)
	if err != nil {
		t.Fatal(err)
	}
	want := []core.Span{
		{Start: 0, End: 4, Label: "TITLE"},
		{Start: 5, End: 9, Label: "TITLE"},
		{Start: 10, End: 14, Label: "TITLE"},
	}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("spans = %+v, want %+v", spans, want)
	}
}

func TestHTTPLabelerStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(Options{URL: srv.URL}).Label(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("err = %v", err)
	}
}

func TestWindows(t *testing.T) {
	tests := []struct {
		text string
		size int
		want []window
	}{
		{"abc", 0, []window{{0, "abc"}}},
		{"abc", 5, []window{{0, "abc"}}},
		{"ab\ncd\nef", 4, []window{{0, "ab\n"}, {3, "cd\n"}, {6, "ef"}}},
		{"abcdef", 4, []window{{0, "abcd"}, {4, "ef"}}},
		{"éé\néé", 3, []window{{0, "éé\n"}, {3, "éé"}}},
	}
	for _, tt := range tests {
		if got := windows(tt.text, tt.size); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("windows(%q, %d) = %+v, want %+v", tt.text, tt.size, got, tt.want)
		}
	}
}
