package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gaurav-prasanna/structmark/core"
)

// Options configures the renderers built by ByName.
type Options struct {
	LineBreak string // paragraph line-break marker used by the parser
	BaseDir   string // directory image references are relative to
}

var builders = map[string]func(Options) core.Renderer{
	"json":     func(Options) core.Renderer { return NewJSONRenderer() },
	"markdown": func(o Options) core.Renderer { return NewMarkdownRenderer(o.LineBreak) },
	"html":     func(o Options) core.Renderer { return NewHTMLRenderer(o.LineBreak) },
	"pdf":      func(o Options) core.Renderer { return NewPDFRenderer(o.BaseDir, o.LineBreak) },
}

// Names lists the renderer names ByName accepts.
func Names() []string {
	names := make([]string, 0, len(builders))
	for n := range builders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ByName returns the renderer registered under name ("md" is accepted for
// markdown).
func ByName(name string, opts Options) (core.Renderer, error) {
	name = strings.ToLower(name)
	if name == "md" {
		name = "markdown"
	}
	b, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
	return b(opts), nil
}
