package normalize

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/gaurav-prasanna/structmark/core/extract"
)

// convertHTML isolates the main content of a local HTML file and converts it
// to Markdown. Local images are copied into the media directory; remote
// images keep their URL.
func convertHTML(c *conversion) (string, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", c.path, err)
	}

	res, err := extract.New(c.resolveHTMLImage).Extract(string(raw))
	if err != nil {
		return "", errCorrupt(err)
	}

	md, err := htmltomarkdown.ConvertString(res.HTML)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	md = withTitle(strings.TrimSpace(md), res.Title)
	return HeaderLabel(false) + "\n" + md + "\n", nil
}

// resolveHTMLImage copies an image referenced by a relative path into the
// media directory.
func (c *conversion) resolveHTMLImage(src, _ string) string {
	if src == "" {
		return ""
	}
	u, err := url.Parse(src)
	if err != nil {
		c.logger.Warn("dropping image with malformed source", "src", src)
		return ""
	}
	if u.Scheme != "" || u.Host != "" {
		return src
	}
	local := filepath.Join(filepath.Dir(c.path), filepath.FromSlash(u.Path))
	data, err := os.ReadFile(local)
	if err != nil {
		c.logger.Warn("could not read image", "src", src, "error", err)
		return ""
	}
	name := filepath.Base(local)
	if !c.storeImage(name, data) {
		return ""
	}
	return c.media.Ref(name)
}

// withTitle prefixes md with a title heading unless it already opens with
// one.
func withTitle(md, title string) string {
	title = strings.TrimSpace(title)
	if title == "" || strings.HasPrefix(md, "# ") {
		return md
	}
	return "# " + title + "\n\n" + md
}
