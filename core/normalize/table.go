package normalize

import "strings"

// Cell is a table cell as read from a source. A nil Cell is a missing cell
// (a merged or empty region) and serializes as an empty string.
type Cell = *string

// NullableRows converts rows of possibly-missing cells into plain strings.
func NullableRows(rows [][]Cell) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = make([]string, len(row))
		for j, c := range row {
			if c != nil {
				out[i][j] = *c
			}
		}
	}
	return out
}

// TableMarkdown serializes rows as a Markdown table. The first row is the
// header; the separator and the column count follow the header. Shorter body
// rows are padded with empty cells. Cell text is trimmed and internal
// newlines are collapsed to spaces.
func TableMarkdown(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	header := cleanRow(rows[0])
	width := len(header)

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, "| "+strings.Join(header, " | ")+" |")
	sep := "|" + strings.Repeat(" --- |", width)
	if width == 0 {
		sep = "||"
	}
	lines = append(lines, sep)
	for _, row := range rows[1:] {
		cells := cleanRow(row)
		for len(cells) < width {
			cells = append(cells, "")
		}
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
	}
	return strings.Join(lines, "\n")
}

func cleanRow(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		c = strings.TrimSpace(c)
		c = strings.ReplaceAll(c, "\r\n", " ")
		out[i] = strings.ReplaceAll(c, "\n", " ")
	}
	return out
}
