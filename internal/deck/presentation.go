// Package deck reads, edits and writes PowerPoint (.pptx) decks at the level
// the table sync needs: slides, shapes, tables, cells and their geometry.
package deck

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
)

// Presentation is an in-memory .pptx package.
type Presentation struct {
	pkg      *opcPackage
	part     string // usually ppt/presentation.xml
	doc      *document
	rels     *relationships
	types    *document
	slides   []*Slide
	modified bool
}

// Open reads a deck from disk.
func Open(filename string) (*Presentation, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading deck: %w", err)
	}
	return Read(bytes.NewReader(data), int64(len(data)))
}

// Read parses a deck from a zip stream.
func Read(r io.ReaderAt, size int64) (*Presentation, error) {
	pkg, err := readPackage(r, size)
	if err != nil {
		return nil, err
	}
	return load(pkg)
}

func load(pkg *opcPackage) (*Presentation, error) {
	p := &Presentation{pkg: pkg, part: "ppt/presentation.xml"}

	typesData, err := pkg.get(contentTypesPart)
	if err != nil {
		return nil, err
	}
	if p.types, err = parseDocument(typesData); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", contentTypesPart, err)
	}

	pkgRels, err := parseRelationships(pkg, "")
	if err != nil {
		return nil, err
	}
	if target, ok := pkgRels.firstOfType(relOfficeDocument); ok {
		p.part = resolveTarget("", target)
	}

	data, err := pkg.get(p.part)
	if err != nil {
		return nil, err
	}
	if p.doc, err = parseDocument(data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", p.part, err)
	}
	if !p.doc.root.is("p", "presentation") {
		return nil, fmt.Errorf("%s: root element is %s, not p:presentation", p.part, qualified(p.doc.root.name))
	}
	if p.rels, err = parseRelationships(pkg, p.part); err != nil {
		return nil, err
	}

	for _, sldID := range p.doc.root.path("p:sldIdLst").all("p", "sldId") {
		rid, _ := sldID.attr("r:id")
		target, ok := p.rels.target(rid)
		if !ok {
			return nil, fmt.Errorf("slide relationship %q not found", rid)
		}
		s, err := loadSlide(p, resolveTarget(p.part, target))
		if err != nil {
			return nil, err
		}
		s.index = len(p.slides)
		p.slides = append(p.slides, s)
	}
	return p, nil
}

// Slides returns the slides in presentation order.
func (p *Presentation) Slides() []*Slide {
	return append([]*Slide(nil), p.slides...)
}

// Modified reports whether the deck changed since it was read.
func (p *Presentation) Modified() bool {
	if p.modified {
		return true
	}
	for _, s := range p.slides {
		if s.modified {
			return true
		}
	}
	return false
}

// AddSlide appends a slide using the same layout as like. When like is nil
// the first slide layout in the package is used. The slide starts with empty
// copies of the layout's content placeholders.
func (p *Presentation) AddSlide(like *Slide) (*Slide, error) {
	layout := ""
	if like != nil {
		layout = like.layout
	}
	if layout == "" {
		layouts := p.pkg.names("ppt/slideLayouts/slideLayout")
		for _, name := range layouts {
			if strings.HasSuffix(name, ".xml") {
				layout = name
				break
			}
		}
	}
	if layout == "" {
		return nil, errors.New("adding slide: no slide layout available")
	}

	part := p.nextSlidePart()
	s := &Slide{
		pres:     p,
		index:    len(p.slides),
		part:     part,
		layout:   layout,
		modified: true,
		doc: &document{root: newElem("p", "sld",
			"xmlns:a", nsA, "xmlns:r", nsR, "xmlns:p", nsP)},
	}
	spTree := newElem("p", "spTree")
	spTree.append(
		newElem("p", "nvGrpSpPr").withChildren(
			newElem("p", "cNvPr", "id", "1", "name", ""),
			newElem("p", "cNvGrpSpPr"),
			newElem("p", "nvPr"),
		),
		newElem("p", "grpSpPr").withChildren(
			newElem("a", "xfrm").withChildren(
				newElem("a", "off", "x", "0", "y", "0"),
				newElem("a", "ext", "cx", "0", "cy", "0"),
				newElem("a", "chOff", "x", "0", "y", "0"),
				newElem("a", "chExt", "cx", "0", "cy", "0"),
			),
		),
	)
	placeholders, err := p.layoutPlaceholders(layout)
	if err != nil {
		return nil, fmt.Errorf("adding slide: %w", err)
	}
	spTree.append(placeholders...)
	for _, el := range placeholders {
		s.shapes = append(s.shapes, &Shape{slide: s, el: el})
	}
	s.doc.root.append(newElem("p", "cSld").withChildren(spTree))
	s.doc.root.append(newElem("p", "clrMapOvr").withChildren(newElem("a", "masterClrMapping")))

	s.rels = &relationships{part: relsPartFor(part), doc: &document{root: newElem("", "Relationships", "xmlns", nsRel)}}
	s.rels.add(relSlideLayout, relativeTarget(part, layout))

	rid := p.rels.add(relSlide, relativeTarget(p.part, part))
	p.registerSlideID(rid)
	p.addOverride("/"+part, ctSlide)

	p.slides = append(p.slides, s)
	p.modified = true
	return s, nil
}

// layoutPlaceholders returns an empty slide-side placeholder for each
// placeholder of the layout. Date, footer, header and slide number
// placeholders are skipped.
func (p *Presentation) layoutPlaceholders(layout string) ([]*node, error) {
	data, err := p.pkg.get(layout)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", layout, err)
	}

	var out []*node
	id := 2
	for _, sp := range doc.root.path("p:cSld", "p:spTree").all("p", "sp") {
		ph := sp.path("p:nvSpPr", "p:nvPr", "p:ph")
		if ph == nil {
			continue
		}
		switch typ, _ := ph.attr("type"); typ {
		case "dt", "ftr", "hdr", "sldNum":
			continue
		}
		out = append(out, slidePlaceholder(sp, ph, id))
		id++
	}
	return out, nil
}

// slidePlaceholder builds a slide shape bound to a layout placeholder. It
// keeps the name and placeholder identity only; position, size and
// formatting are inherited from the layout.
func slidePlaceholder(sp, ph *node, id int) *node {
	name := ""
	if cNvPr := sp.path("p:nvSpPr", "p:cNvPr"); cNvPr != nil {
		name, _ = cNvPr.attr("name")
	}
	ref := newElem("p", "ph")
	for _, key := range []string{"type", "orient", "sz", "idx"} {
		if v, ok := ph.attr(key); ok {
			ref.setAttr(key, v)
		}
	}

	out := newElem("p", "sp").withChildren(
		newElem("p", "nvSpPr").withChildren(
			newElem("p", "cNvPr", "id", strconv.Itoa(id), "name", name),
			newElem("p", "cNvSpPr").withChildren(newElem("a", "spLocks", "noGrp", "1")),
			newElem("p", "nvPr").withChildren(ref),
		),
		newElem("p", "spPr"),
	)
	if sp.child("p", "txBody") != nil {
		out.append(newElem("p", "txBody").withChildren(
			newElem("a", "bodyPr"),
			newElem("a", "lstStyle"),
			newElem("a", "p"),
		))
	}
	return out
}

func (p *Presentation) nextSlidePart() string {
	for n := len(p.slides) + 1; ; n++ {
		name := "ppt/slides/slide" + strconv.Itoa(n) + ".xml"
		if !p.pkg.has(name) && !p.hasSlidePart(name) {
			return name
		}
	}
}

func (p *Presentation) hasSlidePart(name string) bool {
	for _, s := range p.slides {
		if s.part == name {
			return true
		}
	}
	return false
}

func (p *Presentation) registerSlideID(rid string) {
	root := p.doc.root
	list := root.child("p", "sldIdLst")
	if list == nil {
		list = newElem("p", "sldIdLst")
		root.insertBefore(list, "p:sldSz", "p:notesSz", "p:smartTags", "p:embeddedFontLst",
			"p:custShowLst", "p:photoAlbum", "p:custDataLst", "p:kinsoku", "p:defaultTextStyle",
			"p:modifyVerifier", "p:extLst")
	}

	// Slide ids start at 256 per ECMA-376.
	maxID := 255
	for _, s := range list.all("p", "sldId") {
		v, _ := s.attr("id")
		if n, err := strconv.Atoi(v); err == nil && n > maxID {
			maxID = n
		}
	}
	list.append(newElem("p", "sldId", "id", strconv.Itoa(maxID+1), "r:id", rid))
}

func (p *Presentation) addOverride(partName, contentType string) {
	for _, o := range p.types.root.all("", "Override") {
		if v, _ := o.attr("PartName"); v == partName {
			o.setAttr("ContentType", contentType)
			return
		}
	}
	p.types.root.append(newElem("", "Override", "PartName", partName, "ContentType", contentType))
}

// WriteTo writes the deck as a .pptx zip stream.
func (p *Presentation) WriteTo(w io.Writer) (int64, error) {
	p.flush()
	return p.pkg.writeTo(w)
}

func (p *Presentation) flush() {
	if !p.Modified() {
		return
	}
	p.pkg.put(contentTypesPart, p.types.bytes())
	p.pkg.put(p.part, p.doc.bytes())
	p.rels.save(p.pkg)
	for _, s := range p.slides {
		if !s.modified {
			continue
		}
		p.pkg.put(s.part, s.doc.bytes())
		s.rels.save(p.pkg)
	}
}

// LayoutName returns the base name of a layout part, for logging.
func LayoutName(part string) string {
	return path.Base(part)
}

func (n *node) withChildren(children ...*node) *node {
	n.append(children...)
	return n
}
