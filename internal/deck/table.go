package deck

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Table is a DrawingML table (a:tbl) inside a graphic frame.
type Table struct {
	shape *Shape
	el    *node
}

// Shape returns the graphic frame holding the table.
func (t *Table) Shape() *Shape { return t.shape }

// Rows returns the number of rows.
func (t *Table) Rows() int {
	return len(t.el.all("a", "tr"))
}

// Cols returns the number of grid columns.
func (t *Table) Cols() int {
	return len(t.el.path("a:tblGrid").all("a", "gridCol"))
}

// Cell returns the cell at row r, column c. Rows with fewer cells than the
// grid declares yield an error for the missing positions.
func (t *Table) Cell(r, c int) (*Cell, error) {
	rows := t.el.all("a", "tr")
	if r < 0 || r >= len(rows) {
		return nil, fmt.Errorf("row %d out of range [0,%d)", r, len(rows))
	}
	cells := rows[r].all("a", "tc")
	if c < 0 || c >= len(cells) {
		return nil, fmt.Errorf("column %d out of range in row %d [0,%d)", c, r, len(cells))
	}
	return &Cell{table: t, el: cells[c]}, nil
}

// ColumnWidth returns the width of column c in EMU.
func (t *Table) ColumnWidth(c int) (int64, error) {
	col, err := t.gridCol(c)
	if err != nil {
		return 0, err
	}
	v, ok := col.attr("w")
	if !ok {
		return 0, fmt.Errorf("column %d has no width", c)
	}
	w, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("column %d width %q: %w", c, v, err)
	}
	return w, nil
}

// SetColumnWidth sets the width of column c in EMU.
func (t *Table) SetColumnWidth(c int, w int64) error {
	if w < 0 {
		return fmt.Errorf("column %d: negative width %d", c, w)
	}
	col, err := t.gridCol(c)
	if err != nil {
		return err
	}
	col.setAttr("w", itoa64(w))
	t.touch()
	return nil
}

func (t *Table) gridCol(c int) (*node, error) {
	cols := t.el.path("a:tblGrid").all("a", "gridCol")
	if c < 0 || c >= len(cols) {
		return nil, fmt.Errorf("column %d out of range [0,%d)", c, len(cols))
	}
	return cols[c], nil
}

func (t *Table) touch() {
	if t.shape != nil && t.shape.slide != nil {
		t.shape.slide.modified = true
	}
}

// Style is the run formatting applied to every run of a cell.
type Style struct {
	Font   string
	Points float64
	Bold   bool
}

// Cell is one a:tc of a table.
type Cell struct {
	table *Table
	el    *node
}

// Text returns the cell text. Paragraphs are joined with "\n" and line
// breaks inside a paragraph are returned as "\v".
func (c *Cell) Text() string {
	body := c.el.child("a", "txBody")
	if body == nil {
		return ""
	}
	var paras []string
	for _, p := range body.all("a", "p") {
		var b strings.Builder
		for _, el := range p.elements() {
			switch {
			case el.is("a", "r"), el.is("a", "fld"):
				b.WriteString(el.child("a", "t").innerText())
			case el.is("a", "br"):
				b.WriteString("\v")
			}
		}
		paras = append(paras, b.String())
	}
	return strings.Join(paras, "\n")
}

// SetText replaces the cell text. The first paragraph's properties are kept
// for every new paragraph; run formatting is reset.
func (c *Cell) SetText(text string) {
	body := c.txBody()

	var pPr *node
	if first := body.child("a", "p"); first != nil {
		pPr = first.child("a", "pPr")
	}
	body.removeAll("a", "p")

	for _, line := range strings.Split(text, "\n") {
		p := newElem("a", "p")
		if pPr != nil {
			p.append(pPr.clone())
		}
		if line != "" {
			for i, seg := range strings.Split(line, "\v") {
				if i > 0 {
					p.append(newElem("a", "br"))
				}
				if seg != "" {
					p.append(newRun(seg))
				}
			}
		}
		body.insertBefore(p, "a:extLst")
	}
	c.table.touch()
}

func newRun(text string) *node {
	return newElem("a", "r").withChildren(
		newElem("a", "rPr", "lang", "en-US", "dirty", "0"),
		newElem("a", "t").withText(text),
	)
}

func (c *Cell) txBody() *node {
	body := c.el.child("a", "txBody")
	if body == nil {
		body = newElem("a", "txBody").withChildren(newElem("a", "bodyPr"), newElem("a", "lstStyle"))
		c.el.children = append([]*node{body}, c.el.children...)
	}
	return body
}

// ApplyStyle sets font, size and weight on every run of the cell. A cell
// without paragraphs or runs gets an empty run so the style sticks when the
// cell is later edited in PowerPoint.
func (c *Cell) ApplyStyle(st Style) {
	body := c.txBody()
	paras := body.all("a", "p")
	if len(paras) == 0 {
		p := newElem("a", "p")
		body.insertBefore(p, "a:extLst")
		paras = []*node{p}
	}

	for _, p := range paras {
		runs := p.all("a", "r")
		if len(runs) == 0 {
			r := newRun("")
			p.insertBefore(r, "a:endParaRPr")
			runs = []*node{r}
		}
		for _, r := range runs {
			styleRun(runProperties(r), st)
		}
	}
	c.table.touch()
}

func runProperties(r *node) *node {
	rPr := r.child("a", "rPr")
	if rPr == nil {
		rPr = newElem("a", "rPr", "lang", "en-US")
		r.children = append([]*node{rPr}, r.children...)
	}
	return rPr
}

func styleRun(rPr *node, st Style) {
	if st.Points > 0 {
		rPr.setAttr("sz", strconv.Itoa(int(math.Round(st.Points*100))))
	}
	if st.Bold {
		rPr.setAttr("b", "1")
	} else {
		rPr.setAttr("b", "0")
	}
	if st.Font == "" {
		return
	}
	latin := rPr.child("a", "latin")
	if latin == nil {
		latin = newElem("a", "latin")
		// a:latin precedes the east asian, complex script and hyperlink children.
		rPr.insertBefore(latin, "a:ea", "a:cs", "a:sym", "a:hlinkClick", "a:hlinkMouseOver", "a:rtl", "a:extLst")
	}
	latin.setAttr("typeface", st.Font)
}

// Style reports the formatting of the first run, if the cell has one.
func (c *Cell) Style() (Style, bool) {
	body := c.el.child("a", "txBody")
	for _, p := range body.all("a", "p") {
		for _, r := range p.all("a", "r") {
			rPr := r.child("a", "rPr")
			if rPr == nil {
				return Style{}, false
			}
			var st Style
			if v, ok := rPr.attr("sz"); ok {
				if n, err := strconv.Atoi(v); err == nil {
					st.Points = float64(n) / 100
				}
			}
			if v, ok := rPr.attr("b"); ok {
				st.Bold = v == "1" || v == "true"
			}
			if latin := rPr.child("a", "latin"); latin != nil {
				st.Font, _ = latin.attr("typeface")
			}
			return st, true
		}
	}
	return Style{}, false
}
