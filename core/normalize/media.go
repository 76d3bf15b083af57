package normalize

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// mediaDir writes extracted media into a document's <basename>_images
// directory. Writes are skipped when a same-named file already exists, which
// makes re-extraction idempotent. Two processes racing on the same new name
// may both write it; that gap is accepted.
type mediaDir struct {
	dir string
}

func newMediaDir(dir string) *mediaDir {
	return &mediaDir{dir: dir}
}

// ensure creates the directory.
func (m *mediaDir) ensure() error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("creating image directory %s: %w", m.dir, err)
	}
	return nil
}

// Save writes data as name unless the file exists and returns its path.
func (m *mediaDir) Save(name string, data []byte) (string, error) {
	if err := m.ensure(); err != nil {
		return "", err
	}
	p := filepath.Join(m.dir, name)
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return "", fmt.Errorf("writing image %s: %w", p, err)
	}
	return p, nil
}

// Link returns the Markdown reference for name, relative to the directory
// holding the Markdown file.
func (m *mediaDir) Link(alt, name string) string {
	return fmt.Sprintf("![%s](%s)", alt, m.Ref(name))
}

// Ref returns the path of name relative to the directory holding the
// Markdown file.
func (m *mediaDir) Ref(name string) string {
	return path.Join(filepath.Base(m.dir), name)
}
