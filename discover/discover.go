// Package discover finds the source documents of a batch run.
// Roots may be files or directories; directories are walked breadth-first.
// HTML sources can additionally pull in the local documents they link to,
// keeping discovery separate from the conversion pipeline.
package discover

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Options configures discovery.
type Options struct {
	Extensions  []string // accepted source extensions
	FollowLinks bool     // follow local links found in HTML sources
	MaxFiles    int      // stop after this many sources; 0 means no limit
}

// Discoverer walks roots for source documents.
type Discoverer struct {
	opts   Options
	rules  *Rules
	logger *slog.Logger
}

// New creates a Discoverer. A nil logger selects slog.Default().
func New(opts Options, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{opts: opts, rules: NewRules(opts.Extensions), logger: logger}
}

// Discover returns the sources below roots in breadth-first order, each
// directory's entries sorted by name. Unreadable directories are logged
// and skipped.
func (d *Discoverer) Discover(ctx context.Context, roots ...string) ([]string, error) {
	dirs := NewQueue()
	files := NewQueue()

	addFile := func(p string) {
		if !d.rules.IsSupported(p) || d.rules.SkipFile(p) {
			return
		}
		if d.opts.MaxFiles > 0 && files.Visited() >= d.opts.MaxFiles {
			return
		}
		files.Add(p)
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", root, err)
		}
		if info.IsDir() {
			dirs.Add(root)
		} else {
			addFile(root)
		}
	}

	for dirs.HasNext() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir := dirs.Next()
		entries, err := os.ReadDir(dir)
		if err != nil {
			d.logger.Warn("skipping unreadable directory", "dir", dir, "error", err)
			continue
		}
		for _, e := range entries {
			p := filepath.Join(dir, e.Name())
			switch {
			case e.IsDir():
				if !d.rules.SkipDir(p) {
					dirs.Add(p)
				}
			case e.Type().IsRegular():
				addFile(p)
			}
		}
	}

	if d.opts.FollowLinks {
		// files grows while it is drained, so linked pages are followed too.
		for files.HasNext() {
			p := files.Next()
			if ext := strings.ToLower(filepath.Ext(p)); ext != ".html" && ext != ".htm" {
				continue
			}
			links, err := localLinks(p)
			if err != nil {
				d.logger.Warn("could not read links", "source", p, "error", err)
				continue
			}
			for _, l := range links {
				if _, err := os.Stat(l); err == nil {
					addFile(l)
				}
			}
		}
	}

	return files.All(), nil
}

// localLinks extracts the href values of <a> tags in an HTML file that point
// at local files, resolved against the file's directory.
func localLinks(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}
		if resolved := resolveLocal(href, base); resolved != "" {
			links = append(links, resolved)
		}
	})
	return links, nil
}

// resolveLocal resolves a relative link against base. Links with a scheme or
// host, and pure fragments, are not local.
func resolveLocal(href, base string) string {
	if strings.HasPrefix(href, "#") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return ""
	}
	p := filepath.FromSlash(u.Path)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
