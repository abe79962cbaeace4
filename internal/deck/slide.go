package deck

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrNotTable is returned when a shape does not hold a table.
var ErrNotTable = errors.New("shape does not contain a table")

// Slide is one slide of a presentation.
type Slide struct {
	pres     *Presentation
	index    int
	part     string
	layout   string
	doc      *document
	rels     *relationships
	shapes   []*Shape
	modified bool
}

func loadSlide(p *Presentation, part string) (*Slide, error) {
	data, err := p.pkg.get(part)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", part, err)
	}
	rels, err := parseRelationships(p.pkg, part)
	if err != nil {
		return nil, err
	}

	s := &Slide{pres: p, part: part, doc: doc, rels: rels}
	if target, ok := rels.firstOfType(relSlideLayout); ok {
		s.layout = resolveTarget(part, target)
	}
	for _, el := range s.tree().elements() {
		if isShapeElement(el) {
			s.shapes = append(s.shapes, &Shape{slide: s, el: el})
		}
	}
	return s, nil
}

// Index is the zero-based position of the slide in the presentation.
func (s *Slide) Index() int { return s.index }

// Part is the package part name of the slide, e.g. ppt/slides/slide2.xml.
func (s *Slide) Part() string { return s.part }

// Layout is the part name of the slide layout the slide was created from.
func (s *Slide) Layout() string { return s.layout }

// Shapes returns the top-level shapes of the slide in z-order.
func (s *Slide) Shapes() []*Shape {
	return append([]*Shape(nil), s.shapes...)
}

func (s *Slide) tree() *node {
	if tree := s.doc.root.path("p:cSld", "p:spTree"); tree != nil {
		return tree
	}
	return &node{kind: elementNode}
}

func isShapeElement(el *node) bool {
	if el.name.Space == "p" {
		switch el.name.Local {
		case "sp", "grpSp", "graphicFrame", "cxnSp", "pic", "contentPart":
			return true
		}
	}
	return el.is("mc", "AlternateContent")
}

// RemoveShape detaches a shape from the slide. The shape and any table it
// held are unusable afterwards.
func (s *Slide) RemoveShape(sh *Shape) error {
	if sh == nil || sh.slide != s {
		return errors.New("removing shape: shape does not belong to this slide")
	}
	if !s.tree().remove(sh.el) {
		return errors.New("removing shape: shape not found in shape tree")
	}
	for i, existing := range s.shapes {
		if existing == sh {
			s.shapes = append(s.shapes[:i], s.shapes[i+1:]...)
			break
		}
	}
	sh.slide = nil
	sh.table = nil
	s.modified = true
	return nil
}

// AddTable appends a rows x cols table at the given geometry. Rows share the
// frame height and columns the frame width evenly; every cell starts empty.
func (s *Slide) AddTable(rows, cols int, g Geometry) (*Shape, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("adding table: invalid size %dx%d", rows, cols)
	}

	id := s.nextShapeID()
	frame := newElem("p", "graphicFrame").withChildren(
		newElem("p", "nvGraphicFramePr").withChildren(
			newElem("p", "cNvPr", "id", strconv.Itoa(id), "name", "Table "+strconv.Itoa(id-1)),
			newElem("p", "cNvGraphicFramePr").withChildren(newElem("a", "graphicFrameLocks", "noGrp", "1")),
			newElem("p", "nvPr"),
		),
		newElem("p", "xfrm").withChildren(
			newElem("a", "off", "x", itoa64(g.Left), "y", itoa64(g.Top)),
			newElem("a", "ext", "cx", itoa64(g.Width), "cy", itoa64(g.Height)),
		),
	)

	tbl := newElem("a", "tbl").withChildren(
		newElem("a", "tblPr", "firstRow", "1", "bandRow", "1").withChildren(
			newElem("a", "tableStyleId").withText(defaultTableStyle),
		),
	)
	grid := newElem("a", "tblGrid")
	for c := 0; c < cols; c++ {
		grid.append(newElem("a", "gridCol", "w", itoa64(share(g.Width, cols, c))))
	}
	tbl.append(grid)
	for r := 0; r < rows; r++ {
		tr := newElem("a", "tr", "h", itoa64(share(g.Height, rows, r)))
		for c := 0; c < cols; c++ {
			tr.append(newCellElement())
		}
		tbl.append(tr)
	}

	frame.append(newElem("a", "graphic").withChildren(
		newElem("a", "graphicData", "uri", uriTable).withChildren(tbl),
	))

	s.tree().insertBefore(frame, "p:extLst")
	sh := &Shape{slide: s, el: frame}
	s.shapes = append(s.shapes, sh)
	s.modified = true
	return sh, nil
}

// defaultTableStyle is Office's "Medium Style 2 - Accent 1".
const defaultTableStyle = "{5C22544A-7EE6-4342-B048-85BDC9FD1C3A}"

// share splits total into n integer parts, giving the remainder to the last.
func share(total int64, n, i int) int64 {
	part := total / int64(n)
	if i == n-1 {
		return total - part*int64(n-1)
	}
	return part
}

func newCellElement() *node {
	return newElem("a", "tc").withChildren(
		newElem("a", "txBody").withChildren(
			newElem("a", "bodyPr"),
			newElem("a", "lstStyle"),
			newElem("a", "p"),
		),
		newElem("a", "tcPr"),
	)
}

func (s *Slide) nextShapeID() int {
	maxID := 0
	var walk func(*node)
	walk = func(n *node) {
		for _, c := range n.children {
			if c.kind != elementNode {
				continue
			}
			if c.is("p", "cNvPr") {
				if v, ok := c.attr("id"); ok {
					if id, err := strconv.Atoi(v); err == nil && id > maxID {
						maxID = id
					}
				}
			}
			walk(c)
		}
	}
	walk(s.tree())
	return maxID + 1
}

func (n *node) withText(s string) *node {
	n.setText(s)
	return n
}

func itoa64(v int64) string {
	return strconv.FormatInt(v, 10)
}

// Geometry is a shape's bounding box in EMU.
type Geometry struct {
	Left, Top, Width, Height int64
}

// Shape is a top-level element of a slide's shape tree.
type Shape struct {
	slide *Slide
	el    *node
	table *Table
}

// Slide returns the slide that owns the shape, or nil once it was removed.
func (sh *Shape) Slide() *Slide { return sh.slide }

// Name returns the shape's non-visual name.
func (sh *Shape) Name() string {
	for _, nv := range sh.el.elements() {
		if cNvPr := nv.child("p", "cNvPr"); cNvPr != nil {
			name, _ := cNvPr.attr("name")
			return name
		}
	}
	return ""
}

// Geometry reads the shape's offset and extent. Missing values read as zero.
func (sh *Shape) Geometry() Geometry {
	var xfrm *node
	if sh.el.is("p", "graphicFrame") {
		xfrm = sh.el.child("p", "xfrm")
	} else if spPr := sh.el.child("p", "spPr"); spPr != nil {
		xfrm = spPr.child("a", "xfrm")
	}

	var g Geometry
	if off := xfrm.child("a", "off"); off != nil {
		g.Left = attrInt64(off, "x")
		g.Top = attrInt64(off, "y")
	}
	if ext := xfrm.child("a", "ext"); ext != nil {
		g.Width = attrInt64(ext, "cx")
		g.Height = attrInt64(ext, "cy")
	}
	return g
}

func attrInt64(n *node, key string) int64 {
	v, _ := n.attr(key)
	i, _ := strconv.ParseInt(v, 10, 64)
	return i
}

// HasTable reports whether the shape is a graphic frame holding a table.
func (sh *Shape) HasTable() bool {
	return sh.tableElement() != nil
}

func (sh *Shape) tableElement() *node {
	if !sh.el.is("p", "graphicFrame") {
		return nil
	}
	return sh.el.path("a:graphic", "a:graphicData", "a:tbl")
}

// Table returns the table held by the shape.
func (sh *Shape) Table() (*Table, error) {
	if sh.slide == nil {
		return nil, errors.New("shape was removed from its slide")
	}
	if sh.table != nil {
		return sh.table, nil
	}
	tbl := sh.tableElement()
	if tbl == nil {
		return nil, ErrNotTable
	}
	sh.table = &Table{shape: sh, el: tbl}
	return sh.table, nil
}
