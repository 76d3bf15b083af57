package normalize

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

const pptxMain = "ppt/presentation.xml"

var (
	sldSzExpr  = xpath.MustCompile("//p:sldSz")
	sldIDExpr  = xpath.MustCompile("//p:sldIdLst/p:sldId")
	spTreeExpr = xpath.MustCompile("//p:cSld/p:spTree")
)

// slide is one slide part with its relationships.
type slide struct {
	part string
	doc  *xmlquery.Node
	rels map[string]relationship
}

// convertPPTX emits the header token, the links of every picture and chart
// placeholder across the deck, then per slide a numbered header followed by
// each table and text shape.
func convertPPTX(c *conversion) (string, bool, error) {
	pkg, err := openPackage(c.path)
	if err != nil {
		return "", false, err
	}
	defer pkg.Close()

	pres, err := pkg.xmlPart(pptxMain)
	if err != nil {
		return "", false, errCorrupt(err)
	}
	landscape := pptxLandscape(c, pres)
	header := HeaderLabel(landscape)

	slides, err := pptxSlides(pkg, pres)
	if err != nil {
		return "", false, errCorrupt(err)
	}

	lines := []string{header}
	if links := pptxImages(c, pkg, slides); len(links) > 0 {
		lines = append(lines, strings.Join(links, "\n"), "")
	}

	for i, s := range slides {
		if err := c.ctx.Err(); err != nil {
			return "", false, err
		}
		lines = append(lines, fmt.Sprintf("%s %d", header, i+1))
		for _, shape := range shapes(s.doc) {
			switch {
			case shape.Data == "graphicFrame" && frameTable(shape) != nil:
				lines = append(lines, TableMarkdown(pptxTableRows(frameTable(shape))), "")
			case shape.Data == "sp":
				body := child(shape, "txBody")
				if body == nil {
					continue
				}
				if text := strings.TrimSpace(drawingText(body)); text != "" {
					lines = append(lines, text, "")
				}
			}
		}
	}
	return strings.Join(lines, "\n"), landscape, nil
}

// pptxLandscape reads the slide size. Missing or malformed sizes fall back
// to portrait.
func pptxLandscape(c *conversion, pres *xmlquery.Node) bool {
	sz := xmlquery.QuerySelector(pres, sldSzExpr)
	w, errW := strconv.ParseFloat(attr(sz, "cx"), 64)
	h, errH := strconv.ParseFloat(attr(sz, "cy"), 64)
	if sz == nil || errW != nil || errH != nil {
		c.logger.Warn("could not determine pptx orientation, assuming portrait")
		return false
	}
	return IsLandscape(w, h)
}

// pptxSlides loads the slides in presentation order.
func pptxSlides(pkg *ooxmlPackage, pres *xmlquery.Node) ([]slide, error) {
	rels, err := pkg.relationships(pptxMain)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]relationship, len(rels))
	for _, r := range rels {
		byID[r.ID] = r
	}

	var slides []slide
	for _, ref := range xmlquery.QuerySelectorAll(pres, sldIDExpr) {
		rel, ok := byID[relAttr(ref, "id")]
		if !ok || rel.External {
			continue
		}
		doc, err := pkg.xmlPart(rel.Target)
		if err != nil {
			return nil, err
		}
		slideRels, err := pkg.relationships(rel.Target)
		if err != nil {
			return nil, err
		}
		s := slide{part: rel.Target, doc: doc, rels: make(map[string]relationship, len(slideRels))}
		for _, r := range slideRels {
			s.rels[r.ID] = r
		}
		slides = append(slides, s)
	}
	return slides, nil
}

// shapes returns the top-level shapes of a slide in z-order.
func shapes(doc *xmlquery.Node) []*xmlquery.Node {
	tree := xmlquery.QuerySelector(doc, spTreeExpr)
	var out []*xmlquery.Node
	if tree == nil {
		return out
	}
	for c := tree.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		switch c.Data {
		case "sp", "pic", "graphicFrame", "grpSp", "cxnSp":
			out = append(out, c)
		}
	}
	return out
}

// graphicData returns the a:graphicData element of a graphic frame.
func graphicData(frame *xmlquery.Node) *xmlquery.Node {
	return descend(frame, "graphic", "graphicData")
}

func frameTable(frame *xmlquery.Node) *xmlquery.Node {
	return child(graphicData(frame), "tbl")
}

func isChart(frame *xmlquery.Node) bool {
	return frame.Data == "graphicFrame" && strings.HasSuffix(attr(graphicData(frame), "uri"), "/chart")
}

// pptxImages saves every picture and emits a placeholder link for every
// chart. Pictures and charts share one counter across the deck.
func pptxImages(c *conversion, pkg *ooxmlPackage, slides []slide) []string {
	var links []string
	count := 0
	for _, s := range slides {
		for _, shape := range shapes(s.doc) {
			switch {
			case shape.Data == "pic":
				embed := relAttr(descend(shape, "blipFill", "blip"), "embed")
				rel, ok := s.rels[embed]
				if !ok || rel.External {
					c.logger.Warn("picture without embedded image", "slide", s.part)
					continue
				}
				data, err := pkg.readPart(rel.Target)
				if err != nil {
					c.logger.Warn("could not read picture", "part", rel.Target, "error", err)
					continue
				}
				name := fmt.Sprintf("image_%d.%s", count, imageExt(rel.Target))
				if link, ok := c.saveImage(name, name, data); ok {
					links = append(links, link)
				}
				count++
			case isChart(shape):
				// Chart export to an image is not attempted.
				name := fmt.Sprintf("chart_%d.png", count)
				links = append(links, fmt.Sprintf("![%s](#)", name))
				count++
			}
		}
	}
	return links
}

// imageExt returns the file extension of a media part without the dot,
// normalising "jpeg" to "jpg".
func imageExt(part string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(part), "."))
	switch ext {
	case "jpeg":
		return "jpg"
	case "":
		return "bin"
	}
	return ext
}

// drawingText returns the text of a DrawingML text body, one line per
// paragraph.
func drawingText(body *xmlquery.Node) string {
	var paras []string
	for _, p := range children(body, "p") {
		paras = append(paras, runText(p, "t"))
	}
	return strings.Join(paras, "\n")
}

func pptxTableRows(tbl *xmlquery.Node) [][]string {
	var rows [][]string
	for _, tr := range children(tbl, "tr") {
		var cells []string
		for _, tc := range children(tr, "tc") {
			cells = append(cells, drawingText(child(tc, "txBody")))
		}
		rows = append(rows, cells)
	}
	return rows
}
