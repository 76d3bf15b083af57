package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gaurav-prasanna/structmark/core/output"
)

func TestAssignArtifactsQualifiesSharedNames(t *testing.T) {
	root := t.TempDir()
	jobs := []job{
		{root: root, source: filepath.Join(root, "report.txt")},
		{root: root, source: filepath.Join(root, "report.html")},
		{root: root, source: filepath.Join(root, "summary.pdf")},
		{root: root, source: filepath.Join(root, "sub", "report.pdf")},
	}
	assignArtifacts(&output.Writer{}, jobs)

	want := []string{
		filepath.Join(root, "report_txt.md"),
		filepath.Join(root, "report_html.md"),
		filepath.Join(root, "summary.md"),
		filepath.Join(root, "sub", "report.md"),
	}
	for i, j := range jobs {
		if j.err != nil {
			t.Fatalf("%s: %v", j.source, j.err)
		}
		if got := j.art.Markdown(); got != want[i] {
			t.Errorf("%s: markdown = %q, want %q", j.source, got, want[i])
		}
	}
	if jobs[0].art.ImageDir() == jobs[1].art.ImageDir() {
		t.Errorf("shared image directory %s", jobs[0].art.ImageDir())
	}
}

func TestSameBaseNamesKeepSeparateArtifacts(t *testing.T) {
	p, txt := testPipeline(t, nil)
	dir := filepath.Dir(txt)
	html := filepath.Join(dir, "notes.html")
	writeFile(t, html, "<html><body><p>Other</p></body></html>")

	jobs := []job{{root: dir, source: txt}, {root: dir, source: html}}
	assignArtifacts(p.writer, jobs)

	seen := map[string]string{}
	for _, j := range jobs {
		res, err := p.process(context.Background(), j.source, "", j.art)
		if err != nil {
			t.Fatal(err)
		}
		for _, path := range res.Written {
			if prev, ok := seen[path]; ok {
				t.Errorf("%s written by both %s and %s", path, prev, j.source)
			}
			seen[path] = j.source
		}
	}
}
