package deck

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

// ErrPartNotFound is returned when a package part does not exist.
var ErrPartNotFound = errors.New("part not found")

// ErrPartTooLarge is returned when a zip entry exceeds the size a deck part
// may have. Such a deck is refused rather than saved back truncated.
var ErrPartTooLarge = errors.New("part exceeds size limit")

// maxPartSize caps how much of a single zip entry is read, to guard against
// decompression bombs.
const maxPartSize = 100 * 1024 * 1024

const contentTypesPart = "[Content_Types].xml"

// Relationship types.
const (
	relOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relSlide          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	relSlideLayout    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	relSlideMaster    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster"
	relTheme          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme"
)

const ctSlide = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"

// opcPackage holds the raw parts of an Open Packaging Conventions zip.
// Entry order is kept so a saved deck lists parts the way it was read.
type opcPackage struct {
	order []string
	parts map[string][]byte
}

func newPackage() *opcPackage {
	return &opcPackage{parts: make(map[string][]byte)}
}

func readPackage(r io.ReaderAt, size int64) (*opcPackage, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("opening zip: %w", err)
	}

	pkg := newPackage()
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readZipFile(f, maxPartSize)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Name, err)
		}
		pkg.put(f.Name, data)
	}
	return pkg, nil
}

// readZipFile reads a whole entry, failing if it holds more than limit bytes.
// The declared size is checked first; the copy checks again since headers
// can lie.
func readZipFile(f *zip.File, limit int64) ([]byte, error) {
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%d bytes, limit %d: %w", f.UncompressedSize64, limit, ErrPartTooLarge)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	var buf bytes.Buffer
	n, err := io.CopyN(&buf, rc, limit+1)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if n > limit {
		return nil, fmt.Errorf("more than %d bytes: %w", limit, ErrPartTooLarge)
	}
	return buf.Bytes(), nil
}

func (p *opcPackage) has(name string) bool {
	_, ok := p.parts[name]
	return ok
}

func (p *opcPackage) get(name string) ([]byte, error) {
	data, ok := p.parts[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrPartNotFound)
	}
	return data, nil
}

func (p *opcPackage) put(name string, data []byte) {
	if _, ok := p.parts[name]; !ok {
		p.order = append(p.order, name)
	}
	p.parts[name] = data
}

func (p *opcPackage) names(prefix string) []string {
	var out []string
	for _, name := range p.order {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (p *opcPackage) writeTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	// [Content_Types].xml goes first, as Office expects.
	names := make([]string, 0, len(p.order))
	if p.has(contentTypesPart) {
		names = append(names, contentTypesPart)
	}
	for _, name := range p.order {
		if name != contentTypesPart {
			names = append(names, name)
		}
	}

	for _, name := range names {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return cw.n, fmt.Errorf("creating %s: %w", name, err)
		}
		if _, err := fw.Write(p.parts[name]); err != nil {
			return cw.n, fmt.Errorf("writing %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("closing zip: %w", err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}

// relsPartFor returns the relationships part name for a source part.
func relsPartFor(part string) string {
	dir, file := path.Split(part)
	return dir + "_rels/" + file + ".rels"
}

// resolveTarget resolves a relationship target against its source part.
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(source), target)
}

// relativeTarget returns target expressed relative to the source part's folder.
func relativeTarget(source, target string) string {
	from := strings.Split(path.Dir(source), "/")
	to := strings.Split(target, "/")
	i := 0
	for i < len(from) && i < len(to)-1 && from[i] == to[i] {
		i++
	}
	var parts []string
	for range from[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, to[i:]...)
	return strings.Join(parts, "/")
}

// relationships is a parsed .rels part.
type relationships struct {
	part string
	doc  *document
}

func parseRelationships(pkg *opcPackage, source string) (*relationships, error) {
	part := relsPartFor(source)
	data, err := pkg.get(part)
	if errors.Is(err, ErrPartNotFound) {
		root := newElem("", "Relationships", "xmlns", nsRel)
		return &relationships{part: part, doc: &document{root: root}}, nil
	}
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", part, err)
	}
	return &relationships{part: part, doc: doc}, nil
}

// target returns the raw Target of the relationship with the given id.
func (r *relationships) target(id string) (string, bool) {
	for _, rel := range r.doc.root.all("", "Relationship") {
		if v, _ := rel.attr("Id"); v == id {
			t, ok := rel.attr("Target")
			return t, ok
		}
	}
	return "", false
}

// firstOfType returns the target of the first relationship with the given type.
func (r *relationships) firstOfType(relType string) (string, bool) {
	for _, rel := range r.doc.root.all("", "Relationship") {
		if v, _ := rel.attr("Type"); v == relType {
			return rel.attr("Target")
		}
	}
	return "", false
}

// add registers a new relationship and returns its id.
func (r *relationships) add(relType, target string) string {
	maxID := 0
	for _, rel := range r.doc.root.all("", "Relationship") {
		id, _ := rel.attr("Id")
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "rId")); err == nil && n > maxID {
			maxID = n
		}
	}
	id := "rId" + strconv.Itoa(maxID+1)
	r.doc.root.append(newElem("", "Relationship", "Id", id, "Type", relType, "Target", target))
	return id
}

func (r *relationships) save(pkg *opcPackage) {
	pkg.put(r.part, r.doc.bytes())
}
