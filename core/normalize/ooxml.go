package normalize

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// relationshipExpr selects every relationship in a .rels part.
var relationshipExpr = xpath.MustCompile("//Relationship")

// ooxmlPackage is an opened Office Open XML container (docx, pptx).
type ooxmlPackage struct {
	zr    *zip.ReadCloser
	files map[string]*zip.File
}

// relationship is one entry of a .rels part.
type relationship struct {
	ID       string
	Type     string
	Target   string // resolved part name, e.g. "word/media/image1.png"
	External bool
}

func openPackage(p string) (*ooxmlPackage, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, errCorrupt(err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[strings.TrimPrefix(f.Name, "/")] = f
	}
	return &ooxmlPackage{zr: zr, files: files}, nil
}

func (pkg *ooxmlPackage) Close() error {
	return pkg.zr.Close()
}

// readPart returns the raw bytes of a part.
func (pkg *ooxmlPackage) readPart(name string) ([]byte, error) {
	f, ok := pkg.files[strings.TrimPrefix(name, "/")]
	if !ok {
		return nil, fmt.Errorf("part %s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening part %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// xmlPart parses a part as XML.
func (pkg *ooxmlPackage) xmlPart(name string) (*xmlquery.Node, error) {
	f, ok := pkg.files[strings.TrimPrefix(name, "/")]
	if !ok {
		return nil, fmt.Errorf("part %s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening part %s: %w", name, err)
	}
	defer rc.Close()
	doc, err := xmlquery.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("parsing part %s: %w", name, err)
	}
	return doc, nil
}

// relsPartName returns the relationships part of a part:
// "word/document.xml" -> "word/_rels/document.xml.rels".
func relsPartName(part string) string {
	dir, file := path.Split(part)
	return dir + "_rels/" + file + ".rels"
}

// relationships reads the relationships of part in document order. A missing
// rels part yields no relationships.
func (pkg *ooxmlPackage) relationships(part string) ([]relationship, error) {
	name := relsPartName(part)
	if _, ok := pkg.files[name]; !ok {
		return nil, nil
	}
	doc, err := pkg.xmlPart(name)
	if err != nil {
		return nil, err
	}
	base := path.Dir(part)
	var rels []relationship
	for _, n := range xmlquery.QuerySelectorAll(doc, relationshipExpr) {
		rel := relationship{
			ID:       attr(n, "Id"),
			Type:     attr(n, "Type"),
			Target:   attr(n, "Target"),
			External: strings.EqualFold(attr(n, "TargetMode"), "External"),
		}
		if !rel.External {
			rel.Target = resolvePart(base, rel.Target)
		}
		rels = append(rels, rel)
	}
	return rels, nil
}

func resolvePart(base, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(base, target))
}

// attr returns the value of the first attribute with the given local name,
// ignoring its namespace prefix.
func attr(n *xmlquery.Node, local string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// relAttr returns the value of a namespace-qualified attribute such as r:id,
// skipping an unqualified attribute of the same local name.
func relAttr(n *xmlquery.Node, local string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Name.Local == local && a.Name.Space != "" {
			return a.Value
		}
	}
	return ""
}

// children returns the element children of n with the given local name.
func children(n *xmlquery.Node, local string) []*xmlquery.Node {
	var out []*xmlquery.Node
	if n == nil {
		return out
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == local {
			out = append(out, c)
		}
	}
	return out
}

// child returns the first element child of n with the given local name.
func child(n *xmlquery.Node, local string) *xmlquery.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == local {
			return c
		}
	}
	return nil
}

// descend follows a path of local names from n, e.g. descend(n, "pPr", "pStyle").
func descend(n *xmlquery.Node, locals ...string) *xmlquery.Node {
	for _, l := range locals {
		n = child(n, l)
		if n == nil {
			return nil
		}
	}
	return n
}

// runText concatenates the text runs below n. textLocal names the text
// element ("t" in both WordprocessingML and DrawingML); tab and break
// elements become "\t" and "\n".
func runText(n *xmlquery.Node, textLocal string) string {
	var b strings.Builder
	var walk func(*xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode {
				continue
			}
			switch c.Data {
			case "pPr", "rPr", "tabs", "tabLst":
				// properties hold tab stop definitions, not text
			case textLocal:
				b.WriteString(c.InnerText())
			case "tab":
				b.WriteString("\t")
			case "br", "cr":
				b.WriteString("\n")
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}
