// Package discover — path filtering rules.
// Decides which files are convertible sources and which paths are skipped:
// hidden entries, Office lock files and the artifacts a previous run wrote.
package discover

import (
	"os"
	"path/filepath"
	"strings"
)

// artifactSuffixes name files written by a conversion.
var artifactSuffixes = []string{".canonical.md", "_labeled.md", "_labeled.json", "_labeled_training.txt", "_labeled.html", "_labeled.pdf"}

// officeExtensions are sources whose conversion writes a sibling <base>.md.
var officeExtensions = []string{".docx", ".pdf", ".pptx", ".xlsx", ".html", ".htm"}

// Rules filters discovered paths.
type Rules struct {
	extensions map[string]bool
}

// NewRules accepts files with the given extensions (case-insensitive,
// leading dot included).
func NewRules(extensions []string) *Rules {
	r := &Rules{extensions: make(map[string]bool, len(extensions))}
	for _, e := range extensions {
		r.extensions[strings.ToLower(e)] = true
	}
	return r
}

// IsSupported reports whether path has an accepted extension.
func (r *Rules) IsSupported(path string) bool {
	return r.extensions[strings.ToLower(filepath.Ext(path))]
}

// SkipDir reports whether a directory is excluded from the walk.
func (r *Rules) SkipDir(path string) bool {
	name := filepath.Base(path)
	return isHidden(name) || strings.HasSuffix(name, "_images")
}

// SkipFile reports whether a file is excluded even if its extension is
// accepted.
func (r *Rules) SkipFile(path string) bool {
	name := filepath.Base(path)
	if isHidden(name) || strings.HasPrefix(name, "~$") {
		return true
	}
	lower := strings.ToLower(name)
	for _, s := range artifactSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return isConvertedMarkdown(path)
}

// qualifiedExtensions are sources whose conversion may write a sibling
// <base>_<ext>.md when another source shares their base name.
var qualifiedExtensions = append([]string{".md", ".markdown", ".txt", ".text"}, officeExtensions...)

// isConvertedMarkdown reports whether a .md file is the canonical output of
// a sibling document: <base>.md of an office source, or <base>_<ext>.md of
// any source.
func isConvertedMarkdown(path string) bool {
	if strings.ToLower(filepath.Ext(path)) != ".md" {
		return false
	}
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range officeExtensions {
		if exists(stem + ext) {
			return true
		}
	}
	for _, ext := range qualifiedExtensions {
		if base, ok := strings.CutSuffix(stem, "_"+ext[1:]); ok && exists(base+ext) {
			return true
		}
	}
	return false
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// canonical returns the path used for deduplication.
func canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real
	}
	return filepath.Clean(path)
}
