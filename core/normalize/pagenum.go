package normalize

import (
	"regexp"
	"strings"
)

var pageNumberLine = regexp.MustCompile(`^\s*\d+\s*$`)

// StripPageNumbers removes lines made only of digits and whitespace.
func StripPageNumbers(md string) string {
	lines := strings.Split(md, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if !pageNumberLine.MatchString(l) {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
