package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
)

// convertXLSX emits the header token, then per sheet a numbered page header,
// the used range as a table and the sheet's pictures.
func convertXLSX(c *conversion) (string, error) {
	f, err := excelize.OpenFile(c.path)
	if err != nil {
		return "", errCorrupt(err)
	}
	defer f.Close()

	header := HeaderLabel(false)
	lines := []string{header}
	for i, sheet := range f.GetSheetList() {
		if err := c.ctx.Err(); err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("%s %d", header, i+1))

		rows, err := f.GetRows(sheet)
		if err != nil {
			c.logger.Warn("could not read sheet", "sheet", sheet, "error", err)
			continue
		}
		if rows = trimEmptyRows(rows); len(rows) > 0 {
			lines = append(lines, TableMarkdown(rows), "")
		}
		if links := xlsxPictures(c, f, sheet); len(links) > 0 {
			lines = append(lines, strings.Join(links, "\n"), "")
		}
	}
	return strings.Join(lines, "\n"), nil
}

// trimEmptyRows drops trailing rows without any text.
func trimEmptyRows(rows [][]string) [][]string {
	for len(rows) > 0 && strings.TrimSpace(strings.Join(rows[len(rows)-1], "")) == "" {
		rows = rows[:len(rows)-1]
	}
	return rows
}

func xlsxPictures(c *conversion, f *excelize.File, sheet string) []string {
	cells, err := f.GetPictureCells(sheet)
	if err != nil {
		c.logger.Warn("could not list pictures", "sheet", sheet, "error", err)
		return nil
	}
	var links []string
	for _, cell := range cells {
		pics, err := f.GetPictures(sheet, cell)
		if err != nil {
			c.logger.Warn("could not read pictures", "sheet", sheet, "cell", cell, "error", err)
			continue
		}
		for n, pic := range pics {
			name := fmt.Sprintf("%s_%s_%d%s", fileSafe(sheet), cell, n, pic.Extension)
			if link, ok := c.saveImage(name, name, pic.File); ok {
				links = append(links, link)
			}
		}
	}
	return links
}

// fileSafe replaces characters that do not belong in a file name.
func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return r
		}
		return '_'
	}, s)
}
