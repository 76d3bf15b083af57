package normalize

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	// edgeTolerance merges rule positions closer than this many points.
	edgeTolerance = 2.0
	// blockGap is the baseline distance, in font sizes, that starts a new block.
	blockGap = 1.8
)

// convertPDF emits, per page, a numbered header, the page text split into
// blocks, the ruled tables and the page images. Page-number lines are
// stripped from the result when strip is set.
func convertPDF(c *conversion, strip bool) (string, bool, error) {
	f, r, err := pdf.Open(c.path)
	if err != nil {
		return "", false, errCorrupt(err)
	}
	defer f.Close()

	if r.NumPage() == 0 {
		return "", false, errCorrupt(fmt.Errorf("no pages"))
	}

	landscape := pdfLandscape(c, r.Page(1))
	header := HeaderLabel(landscape)
	images := pdfImages(c)

	var lines []string
	for i := 1; i <= r.NumPage(); i++ {
		if err := c.ctx.Err(); err != nil {
			return "", false, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			c.logger.Warn("skipping unreadable page", "page", i)
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %d", header, i))

		content, ok := pageContent(c, page, i)
		if ok {
			grid := detectTable(content.Rect)
			var body []pdf.Text
			if grid != nil {
				body = grid.outside(content.Text)
			} else {
				body = content.Text
			}
			for _, block := range strings.Split(layoutText(body), "\n\n") {
				if block = strings.TrimSpace(block); block != "" {
					lines = append(lines, block, "")
				}
			}
			if grid != nil {
				lines = append(lines, TableMarkdown(NullableRows(grid.cells(content.Text))), "")
			}
		}

		lines = append(lines, imageLines(c, i, images[i])...)
	}

	md := strings.Join(lines, "\n")
	if strip {
		md = StripPageNumbers(md)
	}
	return md, landscape, nil
}

// inherited looks a page attribute up the page tree.
func inherited(page pdf.Value, key string) pdf.Value {
	for v := page; !v.IsNull(); v = v.Key("Parent") {
		if a := v.Key(key); !a.IsNull() {
			return a
		}
	}
	return pdf.Value{}
}

// pdfLandscape reads the first page's MediaBox, honouring /Rotate. Missing
// or malformed boxes fall back to portrait.
func pdfLandscape(c *conversion, page pdf.Page) bool {
	box := inherited(page.V, "MediaBox")
	if box.Kind() != pdf.Array || box.Len() != 4 {
		c.logger.Warn("could not determine pdf orientation, assuming portrait")
		return false
	}
	w := math.Abs(box.Index(2).Float64() - box.Index(0).Float64())
	h := math.Abs(box.Index(3).Float64() - box.Index(1).Float64())
	if rot := inherited(page.V, "Rotate").Int64(); rot%180 != 0 {
		w, h = h, w
	}
	return IsLandscape(w, h)
}

// pageContent interprets the page content stream. The reader panics on
// malformed streams; that page's text is then skipped.
func pageContent(c *conversion, page pdf.Page, n int) (content pdf.Content, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("could not read page content", "page", n, "error", r)
			ok = false
		}
	}()
	return page.Content(), true
}

// textLine is a run of glyphs sharing a baseline.
type textLine struct {
	y, size float64
	glyphs  []pdf.Text
}

// groupLines clusters glyphs into lines, top of page first. Glyphs keep their
// content-stream order when their x positions tie.
func groupLines(glyphs []pdf.Text) []textLine {
	sorted := make([]pdf.Text, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var lines []textLine
	for _, g := range sorted {
		if n := len(lines); n > 0 && math.Abs(lines[n-1].y-g.Y) <= lineTolerance(lines[n-1].size) {
			lines[n-1].glyphs = append(lines[n-1].glyphs, g)
			lines[n-1].size = math.Max(lines[n-1].size, g.FontSize)
			continue
		}
		lines = append(lines, textLine{y: g.Y, size: g.FontSize, glyphs: []pdf.Text{g}})
	}
	for i := range lines {
		gs := lines[i].glyphs
		sort.SliceStable(gs, func(a, b int) bool { return gs[a].X < gs[b].X })
	}
	return lines
}

func lineTolerance(size float64) float64 {
	if size <= 0 {
		return edgeTolerance
	}
	return size / 2
}

// String joins the glyphs, inserting a space where the horizontal gap
// exceeds a quarter of the font size.
func (l textLine) String() string {
	var b strings.Builder
	for i, g := range l.glyphs {
		if i > 0 {
			prev := l.glyphs[i-1]
			gap := g.X - (prev.X + prev.W)
			if gap > math.Max(g.FontSize, 1)/4 && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(g.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
	}
	return b.String()
}

// layoutText renders glyphs as lines, separating blocks with a blank line
// where the baseline distance exceeds blockGap font sizes.
func layoutText(glyphs []pdf.Text) string {
	lines := groupLines(glyphs)
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
			prev := lines[i-1]
			if prev.y-l.y > blockGap*math.Max(prev.size, 1) {
				b.WriteByte('\n')
			}
		}
		b.WriteString(strings.TrimRight(l.String(), " "))
	}
	return b.String()
}

// tableGrid is a ruled table reconstructed from drawn rectangles. xs run left
// to right and ys top to bottom.
type tableGrid struct {
	xs, ys []float64
}

// detectTable builds a grid from the edges of the page's rectangles. Thin
// rectangles count as rules; other rectangles contribute all four edges. At
// least two rows and one column, or one row and two columns, are required.
func detectTable(rects []pdf.Rect) *tableGrid {
	var xs, ys []float64
	for _, r := range rects {
		w := r.Max.X - r.Min.X
		h := r.Max.Y - r.Min.Y
		switch {
		case w <= 0 && h <= 0:
			continue
		case h < edgeTolerance:
			ys = append(ys, (r.Min.Y+r.Max.Y)/2)
		case w < edgeTolerance:
			xs = append(xs, (r.Min.X+r.Max.X)/2)
		default:
			xs = append(xs, r.Min.X, r.Max.X)
			ys = append(ys, r.Min.Y, r.Max.Y)
		}
	}
	xs = mergeEdges(xs)
	ys = mergeEdges(ys)
	if len(xs) < 2 || len(ys) < 2 || (len(xs)-1)*(len(ys)-1) < 2 {
		return nil
	}
	for i, j := 0, len(ys)-1; i < j; i, j = i+1, j-1 {
		ys[i], ys[j] = ys[j], ys[i]
	}
	return &tableGrid{xs: xs, ys: ys}
}

// mergeEdges sorts positions and merges those within edgeTolerance.
func mergeEdges(v []float64) []float64 {
	sort.Float64s(v)
	var out []float64
	for _, x := range v {
		if n := len(out); n > 0 && x-out[n-1] < edgeTolerance {
			continue
		}
		out = append(out, x)
	}
	return out
}

// locate returns the cell holding a glyph's origin.
func (g *tableGrid) locate(t pdf.Text) (row, col int, ok bool) {
	x := t.X + t.W/2
	y := t.Y + t.FontSize/4
	col = sort.SearchFloat64s(g.xs, x) - 1
	if col < 0 || col >= len(g.xs)-1 {
		return 0, 0, false
	}
	for row = 0; row < len(g.ys)-1; row++ {
		if y <= g.ys[row] && y >= g.ys[row+1] {
			return row, col, true
		}
	}
	return 0, 0, false
}

// outside returns the glyphs that do not fall inside the grid.
func (g *tableGrid) outside(glyphs []pdf.Text) []pdf.Text {
	var out []pdf.Text
	for _, t := range glyphs {
		if _, _, in := g.locate(t); !in {
			out = append(out, t)
		}
	}
	return out
}

// cells distributes glyphs into the grid. Cells without text are nil.
func (g *tableGrid) cells(glyphs []pdf.Text) [][]Cell {
	buckets := make([][][]pdf.Text, len(g.ys)-1)
	for i := range buckets {
		buckets[i] = make([][]pdf.Text, len(g.xs)-1)
	}
	for _, t := range glyphs {
		if r, c, ok := g.locate(t); ok {
			buckets[r][c] = append(buckets[r][c], t)
		}
	}
	rows := make([][]Cell, len(buckets))
	for i, row := range buckets {
		rows[i] = make([]Cell, len(row))
		for j, glyphs := range row {
			if text := strings.TrimSpace(layoutText(glyphs)); text != "" {
				rows[i][j] = &text
			}
		}
	}
	return rows
}

// pdfImage is one image extracted from a page.
type pdfImage struct {
	objNr int
	ext   string
	data  []byte
}

var disableConfigDir sync.Once

// pdfImages extracts every page's images, keyed by page number and ordered
// by object number. Flate images (predictors included) come back as PNG,
// DCT images pass through as JPEG. Failures are logged and yield no images.
func pdfImages(c *conversion) (pages map[int][]pdfImage) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("could not extract images", "error", r)
			pages = nil
		}
	}()
	disableConfigDir.Do(api.DisableConfigDir)

	f, err := os.Open(c.path)
	if err != nil {
		c.logger.Warn("could not extract images", "error", err)
		return nil
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages = make(map[int][]pdfImage)
	err = api.ExtractImages(f, nil, func(img model.Image, _ bool, _ int) error {
		data, err := io.ReadAll(img)
		if err != nil {
			c.logger.Warn("could not read image", "page", img.PageNr, "object", img.ObjNr, "error", err)
			return nil
		}
		ext := img.FileType
		if ext == "jpeg" {
			ext = "jpg"
		}
		pages[img.PageNr] = append(pages[img.PageNr], pdfImage{objNr: img.ObjNr, ext: ext, data: data})
		return nil
	}, conf)
	if err != nil {
		c.logger.Warn("could not extract images", "error", err)
	}
	for _, imgs := range pages {
		sort.Slice(imgs, func(i, j int) bool { return imgs[i].objNr < imgs[j].objNr })
	}
	return pages
}

// imageLines saves a page's images as image_<page>_<idx>.<ext> and returns
// a link line and a blank line for each.
func imageLines(c *conversion, page int, imgs []pdfImage) []string {
	var lines []string
	for idx, img := range imgs {
		name := fmt.Sprintf("image_%d_%d", page, idx)
		if link, ok := c.saveImage(name, name+"."+img.ext, img.data); ok {
			lines = append(lines, link, "")
		}
	}
	return lines
}
