package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gaurav-prasanna/structmark/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "structmark.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Parser.LineBreak != `\n` || cfg.Batch.Workers < 1 || cfg.Server.Addr != ":8080" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
labeler:
  url: http://localhost:9000/label
  timeout: 5s
  window: 2000
corpus:
  max_tokens: 128
batch:
  workers: 2
markup:
  prefixes:
    list_item: "* "
  corpus_labels:
    TITLE: B-TITLE
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Labeler.Timeout != 5*time.Second || cfg.Labeler.Window != 2000 {
		t.Errorf("labeler = %+v", cfg.Labeler)
	}
	if cfg.Corpus.MaxTokens != 128 || cfg.Batch.Workers != 2 {
		t.Errorf("corpus/batch = %+v %+v", cfg.Corpus, cfg.Batch)
	}
	// untouched sections keep their defaults
	if cfg.Server.MaxBodyBytes != 10<<20 {
		t.Errorf("server = %+v", cfg.Server)
	}

	table, err := cfg.MarkupTable()
	if err != nil {
		t.Fatal(err)
	}
	if _, prefix, ok := table.Lookup("LIST_ITEM"); !ok || prefix != "* " {
		t.Errorf("LIST_ITEM prefix = %q, %v", prefix, ok)
	}
	if got := table.CorpusLabel(core.Label{Kind: core.KindTitle}); got != "B-TITLE" {
		t.Errorf("TITLE corpus label = %q", got)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := map[string]string{
		"unknown label": "markup:\n  prefixes:\n    FOOTNOTE: \"^ \"\n",
		"workers":       "batch:\n  workers: 0\n",
		"level":         "log:\n  level: loud\n",
		"yaml":          "log: [\n",
	}
	for name, body := range tests {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "reading config") {
		t.Errorf("missing file: %v", err)
	}
}
