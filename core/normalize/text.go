package normalize

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/adrg/frontmatter"
)

// convertMarkdown passes a Markdown source through after removing its front
// matter. A front matter title becomes the document heading.
func convertMarkdown(c *conversion) (string, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", c.path, err)
	}
	var meta struct {
		Title string `yaml:"title" toml:"title" json:"title"`
	}
	body, err := frontmatter.Parse(bytes.NewReader(raw), &meta)
	if err != nil {
		c.logger.Warn("ignoring malformed front matter", "error", err)
		body = raw
	}
	return withTitle(strings.TrimLeft(string(body), "\n"), meta.Title), nil
}

// convertText passes a plain text source through with normalised line
// endings.
func convertText(c *conversion) (string, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", c.path, err)
	}
	return strings.ReplaceAll(string(raw), "\r\n", "\n"), nil
}
