// Package config loads structmark settings from a YAML file. Every field has
// a default, so a missing file or an empty document yields a usable
// configuration; command-line flags override file values.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/structmark/core/markup"
	"github.com/gaurav-prasanna/structmark/core/parse"
	"github.com/gaurav-prasanna/structmark/internal/logging"
)

// Config is the full configuration.
type Config struct {
	Log     Log     `yaml:"log"`
	Markup  Markup  `yaml:"markup"`
	Labeler Labeler `yaml:"labeler"`
	Parser  Parser  `yaml:"parser"`
	Corpus  Corpus  `yaml:"corpus"`
	Batch   Batch   `yaml:"batch"`
	Output  Output  `yaml:"output"`
	Catalog Catalog `yaml:"catalog"`
	Server  Server  `yaml:"server"`
}

// Log configures logging.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Markup overrides the label table used by fusion and export.
type Markup struct {
	Prefixes     map[string]string `yaml:"prefixes"`
	CorpusLabels map[string]string `yaml:"corpus_labels"`
}

// Labeler configures the external labeler. An empty URL disables labeling.
type Labeler struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	Window  int           `yaml:"window"`
}

// Parser configures the structural parser.
type Parser struct {
	LineBreak string `yaml:"line_break"`
}

// Corpus configures corpus export.
type Corpus struct {
	MaxTokens int `yaml:"max_tokens"`
}

// Batch configures batch conversion.
type Batch struct {
	Workers       int  `yaml:"workers"`
	FollowLinks   bool `yaml:"follow_links"`
	MaxFiles      int  `yaml:"max_files"`
	SkipUnchanged bool `yaml:"skip_unchanged"`
}

// Output configures artifact writing.
type Output struct {
	Dir             string   `yaml:"dir"`
	KeepPageNumbers bool     `yaml:"keep_page_numbers"`
	Previews        []string `yaml:"previews"` // extra renderings: html, pdf
}

// Catalog configures the SQLite catalog. An empty path disables it.
type Catalog struct {
	Path string `yaml:"path"`
}

// Server configures the HTTP service.
type Server struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log:     Log{Level: "info", Format: "text"},
		Labeler: Labeler{Timeout: 60 * time.Second},
		Parser:  Parser{LineBreak: parse.DefaultLineBreak},
		Batch:   Batch{Workers: runtime.NumCPU()},
		Server: Server{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			MaxBodyBytes: 10 << 20,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and that the markup overrides name known
// labels.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return err
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1, got %d", c.Batch.Workers)
	}
	if c.Corpus.MaxTokens < 0 {
		return fmt.Errorf("corpus.max_tokens must not be negative, got %d", c.Corpus.MaxTokens)
	}
	if c.Labeler.Window < 0 {
		return fmt.Errorf("labeler.window must not be negative, got %d", c.Labeler.Window)
	}
	if c.Parser.LineBreak == "" {
		return fmt.Errorf("parser.line_break must not be empty")
	}
	if _, err := c.MarkupTable(); err != nil {
		return err
	}
	return nil
}

// MarkupTable builds the label table: the defaults with the configured
// prefix and corpus label overrides applied.
func (c *Config) MarkupTable() (*markup.Table, error) {
	t := markup.Default()
	if len(c.Markup.Prefixes) > 0 {
		var err error
		if t, err = t.With(c.Markup.Prefixes); err != nil {
			return nil, fmt.Errorf("markup.prefixes: %w", err)
		}
	}
	if len(c.Markup.CorpusLabels) > 0 {
		var err error
		if t, err = t.WithCorpusLabels(c.Markup.CorpusLabels); err != nil {
			return nil, fmt.Errorf("markup.corpus_labels: %w", err)
		}
	}
	return t, nil
}
