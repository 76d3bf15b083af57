// Package output handles artifact naming and writing for structmark.
// A converted document <base>.<ext> produces, in one directory:
//
//	<base>.md                     canonical Markdown
//	<base>_images/                extracted media
//	<base>_labeled.md             Markdown with fused structural markup
//	<base>_labeled.json           structural records
//	<base>_labeled_training.txt   token/label corpus
//
// Without an output directory the artifacts sit next to the source. In batch
// mode they mirror the source's path below the batch root.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Writer writes artifacts to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory. An empty
// outputDir writes every artifact next to its source.
func New(outputDir string) (*Writer, error) {
	if outputDir != "" {
		// Ensure the output directory exists.
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	return &Writer{OutputDir: outputDir}, nil
}

// Artifacts names the files produced for one source document.
type Artifacts struct {
	Dir  string
	Base string
}

func (a Artifacts) path(suffix string) string { return filepath.Join(a.Dir, a.Base+suffix) }

// Markdown is the canonical Markdown file.
func (a Artifacts) Markdown() string { return a.path(".md") }

// ImageDir is the media directory.
func (a Artifacts) ImageDir() string { return a.path("_images") }

// Labeled is the fused Markdown file.
func (a Artifacts) Labeled() string { return a.path("_labeled.md") }

// JSON is the structural record file.
func (a Artifacts) JSON() string { return a.path("_labeled.json") }

// Corpus is the training corpus file.
func (a Artifacts) Corpus() string { return a.path("_labeled_training.txt") }

// Rendered is a preview of the records with the given renderer extension.
func (a Artifacts) Rendered(ext string) string { return a.path("_labeled" + ext) }

// MarkdownFor returns the canonical Markdown path for source. A Markdown
// source converted in place would be its own artifact; its canonical form is
// written as <base>.canonical.md instead.
func (a Artifacts) MarkdownFor(source string) string {
	if p := a.Markdown(); !samePath(p, source) {
		return p
	}
	return a.path(".canonical.md")
}

// Qualified returns a with the source extension appended to the base name,
// e.g. report_pdf. Sources sharing a base name in one directory use it to
// keep their artifacts apart.
func (a Artifacts) Qualified(source string) Artifacts {
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(source)), "."); ext != "" {
		a.Base += "_" + ext
	}
	return a
}

// samePath reports whether a and b name the same file.
func samePath(a, b string) bool {
	if absA, err := filepath.Abs(a); err == nil {
		a = absA
	}
	if absB, err := filepath.Abs(b); err == nil {
		b = absB
	}
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ia, errA := os.Stat(a)
	ib, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(ia, ib)
}

// Artifacts returns the artifact names for a single source.
func (w *Writer) Artifacts(source string) Artifacts {
	dir := w.OutputDir
	if dir == "" {
		dir = filepath.Dir(source)
	}
	return Artifacts{Dir: dir, Base: BaseName(source)}
}

// ArtifactsUnder returns the artifact names for a source found below root,
// mirroring its relative directory inside the output directory.
// Example: root/reports/q1.docx -> out/reports/q1.md
func (w *Writer) ArtifactsUnder(root, source string) (Artifacts, error) {
	if w.OutputDir == "" {
		return w.Artifacts(source), nil
	}
	rel, err := filepath.Rel(root, filepath.Dir(source))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Artifacts{}, fmt.Errorf("source %s is outside %s", source, root)
	}
	return Artifacts{Dir: filepath.Join(w.OutputDir, rel), Base: BaseName(source)}, nil
}

// Write writes data to path, creating parent directories, and returns path.
func (w *Writer) Write(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// BaseName returns the file name of path without its extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
