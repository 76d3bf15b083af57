// Package normalize implements the Normalizer interface.
// It converts office documents (docx, pdf, pptx, xlsx), HTML and plain
// Markdown/text into canonical Markdown, which serves as the single
// intermediate format for labeling and parsing. Embedded media is written
// next to the source in a <basename>_images directory.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/gaurav-prasanna/structmark/core"
)

// ErrCorrupt marks a source whose container could not be read. It aborts
// only the conversion of that document.
var ErrCorrupt = errors.New("corrupt or unreadable document")

// corruptError wraps a container read failure so that it matches ErrCorrupt
// as well as the underlying cause.
type corruptError struct {
	err error
}

func errCorrupt(err error) error {
	return &corruptError{err: err}
}

func (e *corruptError) Error() string   { return ErrCorrupt.Error() + ": " + e.err.Error() }
func (e *corruptError) Unwrap() []error { return []error{ErrCorrupt, e.err} }

// Format is a source container type.
type Format string

const (
	FormatDocx        Format = "docx"
	FormatPDF         Format = "pdf"
	FormatPPTX        Format = "pptx"
	FormatXLSX        Format = "xlsx"
	FormatHTML        Format = "html"
	FormatMarkdown    Format = "markdown"
	FormatText        Format = "text"
	FormatUnsupported Format = "unsupported"
)

// Detect returns the format for a path based on its extension.
func Detect(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return FormatDocx
	case ".pdf":
		return FormatPDF
	case ".pptx":
		return FormatPPTX
	case ".xlsx":
		return FormatXLSX
	case ".html", ".htm":
		return FormatHTML
	case ".md", ".markdown":
		return FormatMarkdown
	case ".txt", ".text":
		return FormatText
	default:
		return FormatUnsupported
	}
}

// SupportedExtensions lists the extensions Detect maps to a real format.
func SupportedExtensions() []string {
	return []string{".docx", ".pdf", ".pptx", ".xlsx", ".html", ".htm", ".md", ".markdown", ".txt", ".text"}
}

// Options configures a Normalizer.
type Options struct {
	// ImageDir overrides the media directory. The default is
	// <source dir>/<basename>_images.
	ImageDir string
	// KeepPageNumbers disables page-number stripping for page-oriented
	// sources (pdf).
	KeepPageNumbers bool
}

// Normalizer converts source documents into canonical Markdown.
type Normalizer struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Normalizer. A nil logger selects slog.Default().
func New(opts Options, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{opts: opts, logger: logger}
}

// ImageDir returns the media directory used for path.
func (n *Normalizer) ImageDir(path string) string {
	if n.opts.ImageDir != "" {
		return n.opts.ImageDir
	}
	return filepath.Join(filepath.Dir(path), BaseName(path)+"_images")
}

// BaseName returns the file name of path without its extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// conversion carries the per-document state shared by the format readers.
type conversion struct {
	ctx    context.Context
	path   string
	logger *slog.Logger
	media  *mediaDir
	images []string
}

// saveImage stores an extracted image and returns its Markdown link. Failures
// are logged and reported with ok=false; they never abort the document.
func (c *conversion) saveImage(alt, name string, data []byte) (link string, ok bool) {
	if !c.storeImage(name, data) {
		return "", false
	}
	return c.media.Link(alt, name), true
}

func (c *conversion) storeImage(name string, data []byte) bool {
	p, err := c.media.Save(name, data)
	if err != nil {
		c.logger.Warn("could not save image", "image", name, "error", err)
		return false
	}
	c.images = append(c.images, p)
	return true
}

// Normalize converts the document at path. Unsupported extensions are not an
// error: they yield a single explanatory line.
func (n *Normalizer) Normalize(ctx context.Context, path string) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format := Detect(path)
	if format != FormatUnsupported {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	c := &conversion{
		ctx:    ctx,
		path:   path,
		logger: n.logger.With("source", path, "format", string(format)),
		media:  newMediaDir(n.ImageDir(path)),
	}
	c.logger.Debug("normalizing document")

	var (
		md        string
		landscape bool
		err       error
	)
	switch format {
	case FormatDocx:
		md, landscape, err = convertDocx(c)
	case FormatPDF:
		md, landscape, err = convertPDF(c, !n.opts.KeepPageNumbers)
	case FormatPPTX:
		md, landscape, err = convertPPTX(c)
	case FormatXLSX:
		md, err = convertXLSX(c)
	case FormatHTML:
		md, err = convertHTML(c)
	case FormatMarkdown:
		md, err = convertMarkdown(c)
	case FormatText:
		md, err = convertText(c)
	default:
		md = convertUnsupported(c)
	}
	if err != nil {
		return nil, fmt.Errorf("normalize %s (%s): %w", path, format, err)
	}

	return &core.Document{
		Source:    path,
		Format:    string(format),
		Landscape: landscape,
		Markdown:  norm.NFC.String(md),
		Images:    c.images,
	}, nil
}

// convertUnsupported attempts generic image extraction, which has no
// implementation for unknown containers, and explains the degraded result.
func convertUnsupported(c *conversion) string {
	links := extractGenericImages(c)
	var b strings.Builder
	if len(links) > 0 {
		b.WriteString(strings.Join(links, "\n"))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Unsupported file extension: %s. Only images extracted if any.\n", strings.ToLower(filepath.Ext(c.path)))
	return b.String()
}

func extractGenericImages(c *conversion) []string {
	c.logger.Info("generic image extraction not implemented")
	return nil
}
