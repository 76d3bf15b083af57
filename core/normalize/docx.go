package normalize

import (
	"path"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

const docxMain = "word/document.xml"

var (
	sectPrExpr = xpath.MustCompile("//w:sectPr")
	bodyExpr   = xpath.MustCompile("//w:body")
	styleExpr  = xpath.MustCompile("//w:style")
)

// convertDocx emits the header token, every image of the main document part,
// the body paragraphs (headings as #-levels) and finally the body tables.
func convertDocx(c *conversion) (string, bool, error) {
	pkg, err := openPackage(c.path)
	if err != nil {
		return "", false, err
	}
	defer pkg.Close()

	doc, err := pkg.xmlPart(docxMain)
	if err != nil {
		return "", false, errCorrupt(err)
	}

	landscape := docxLandscape(c, doc)
	lines := []string{HeaderLabel(landscape)}

	if links := docxImages(c, pkg); len(links) > 0 {
		lines = append(lines, strings.Join(links, "\n"), "")
	}

	styles := docxStyleNames(c, pkg)
	body := xmlquery.QuerySelector(doc, bodyExpr)

	for _, p := range children(body, "p") {
		text := strings.TrimSpace(runText(p, "t"))
		if text == "" {
			continue
		}
		styleID := attr(descend(p, "pPr", "pStyle"), "val")
		name := styles[styleID]
		if name == "" {
			name = styleID
		}
		if level, ok := headingLevel(name); ok {
			lines = append(lines, strings.Repeat("#", level)+" "+text)
		} else {
			lines = append(lines, text)
		}
		lines = append(lines, "")
	}

	for _, tbl := range children(body, "tbl") {
		lines = append(lines, TableMarkdown(docxTableRows(tbl)), "")
	}

	return strings.Join(lines, "\n"), landscape, nil
}

// docxLandscape reads the page size of the first section. Missing or
// malformed sizes fall back to portrait.
func docxLandscape(c *conversion, doc *xmlquery.Node) bool {
	sect := xmlquery.QuerySelector(doc, sectPrExpr)
	pgSz := child(sect, "pgSz")
	w, errW := strconv.ParseFloat(attr(pgSz, "w"), 64)
	h, errH := strconv.ParseFloat(attr(pgSz, "h"), 64)
	if pgSz == nil || errW != nil || errH != nil {
		c.logger.Warn("could not determine docx orientation, assuming portrait")
		return false
	}
	return IsLandscape(w, h)
}

// docxStyleNames maps style ids to their display names.
func docxStyleNames(c *conversion, pkg *ooxmlPackage) map[string]string {
	names := map[string]string{}
	doc, err := pkg.xmlPart("word/styles.xml")
	if err != nil {
		c.logger.Debug("no styles part", "error", err)
		return names
	}
	for _, s := range xmlquery.QuerySelectorAll(doc, styleExpr) {
		if id := attr(s, "styleId"); id != "" {
			names[id] = attr(child(s, "name"), "val")
		}
	}
	return names
}

// headingLevel reports whether a style name is a heading style and its level.
// The level is the name's trailing number; it defaults to 1 when the number
// cannot be parsed.
func headingLevel(style string) (int, bool) {
	rest, ok := cutPrefixFold(strings.TrimSpace(style), "heading")
	if !ok {
		return 0, false
	}
	level, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || level < 1 {
		return 1, true
	}
	return level, true
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// docxImages writes every image related to the main part.
func docxImages(c *conversion, pkg *ooxmlPackage) []string {
	rels, err := pkg.relationships(docxMain)
	if err != nil {
		c.logger.Warn("could not read document relationships", "error", err)
		return nil
	}
	var links []string
	for _, rel := range rels {
		if rel.External || !strings.Contains(rel.Target, "image") {
			continue
		}
		name := path.Base(rel.Target)
		data, err := pkg.readPart(rel.Target)
		if err != nil {
			c.logger.Warn("could not read image part", "part", rel.Target, "error", err)
			continue
		}
		if link, ok := c.saveImage(name, name, data); ok {
			links = append(links, link)
		}
	}
	return links
}

// docxTableRows reads a table's cells. Cell paragraphs are joined with
// newlines; TableMarkdown collapses them.
func docxTableRows(tbl *xmlquery.Node) [][]string {
	var rows [][]string
	for _, tr := range children(tbl, "tr") {
		var cells []string
		for _, tc := range children(tr, "tc") {
			var paras []string
			for _, p := range children(tc, "p") {
				paras = append(paras, runText(p, "t"))
			}
			cells = append(cells, strings.Join(paras, "\n"))
		}
		rows = append(rows, cells)
	}
	return rows
}
