package deck

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Namespace URIs used when new parts or elements are created.
const (
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsP   = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsRel = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsCT  = "http://schemas.openxmlformats.org/package/2006/content-types"

	uriTable = "http://schemas.openxmlformats.org/drawingml/2006/table"
)

type nodeKind int

const (
	elementNode nodeKind = iota
	textNode
	commentNode
	procInstNode
	directiveNode
)

// node is a raw XML tree node. Element names keep the prefix exactly as
// written in the source part (name.Space is the prefix, not the URI), so a
// part round-trips without encoding/xml rewriting its namespace declarations.
type node struct {
	kind     nodeKind
	name     xml.Name
	attrs    []xml.Attr
	children []*node
	data     string // text, comment, directive or procinst body
	target   string // procinst target
}

// document is a parsed XML part.
type document struct {
	prolog []*node
	root   *node
}

func newElem(prefix, local string, attrs ...string) *node {
	n := &node{kind: elementNode, name: xml.Name{Space: prefix, Local: local}}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.setAttr(attrs[i], attrs[i+1])
	}
	return n
}

func parseDocument(data []byte) (*document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	doc := &document{}
	var stack []*node

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding xml: %w", err)
		}

		var n *node
		switch t := tok.(type) {
		case xml.StartElement:
			el := &node{kind: elementNode, name: t.Name, attrs: append([]xml.Attr(nil), t.Attr...)}
			if len(stack) == 0 {
				if doc.root != nil {
					return nil, errors.New("decoding xml: multiple root elements")
				}
				doc.root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
			continue
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("decoding xml: unexpected end element %s", qualified(t.Name))
			}
			stack = stack[:len(stack)-1]
			continue
		case xml.CharData:
			n = &node{kind: textNode, data: string(t)}
		case xml.Comment:
			n = &node{kind: commentNode, data: string(t)}
		case xml.ProcInst:
			n = &node{kind: procInstNode, target: t.Target, data: string(t.Inst)}
		case xml.Directive:
			n = &node{kind: directiveNode, data: string(t)}
		}

		if len(stack) == 0 {
			// Whitespace between the prolog and the root is dropped.
			if n.kind == textNode && strings.TrimSpace(n.data) == "" {
				continue
			}
			if doc.root == nil {
				doc.prolog = append(doc.prolog, n)
			}
			continue
		}
		parent := stack[len(stack)-1]
		parent.children = append(parent.children, n)
	}

	if doc.root == nil {
		return nil, errors.New("decoding xml: no root element")
	}
	if len(stack) != 0 {
		return nil, errors.New("decoding xml: unclosed elements")
	}
	return doc, nil
}

// bytes serialises the document. A standalone XML declaration is always
// written, matching what Office emits.
func (d *document) bytes() []byte {
	var b bytes.Buffer
	wroteDecl := false
	for _, n := range d.prolog {
		if n.kind == procInstNode && n.target == "xml" {
			wroteDecl = true
		}
		n.write(&b)
	}
	if !wroteDecl {
		var out bytes.Buffer
		out.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
		out.Write(b.Bytes())
		b = out
	} else {
		b.WriteString("\n")
	}
	d.root.write(&b)
	return b.Bytes()
}

func (n *node) write(b *bytes.Buffer) {
	switch n.kind {
	case textNode:
		escape(b, n.data, false)
	case commentNode:
		b.WriteString("<!--")
		b.WriteString(n.data)
		b.WriteString("-->")
	case procInstNode:
		b.WriteString("<?")
		b.WriteString(n.target)
		if n.data != "" {
			b.WriteString(" ")
			b.WriteString(n.data)
		}
		b.WriteString("?>")
	case directiveNode:
		b.WriteString("<!")
		b.WriteString(n.data)
		b.WriteString(">")
	case elementNode:
		b.WriteString("<")
		b.WriteString(qualified(n.name))
		for _, a := range n.attrs {
			b.WriteString(" ")
			b.WriteString(qualified(a.Name))
			b.WriteString(`="`)
			escape(b, a.Value, true)
			b.WriteString(`"`)
		}
		if len(n.children) == 0 {
			b.WriteString("/>")
			return
		}
		b.WriteString(">")
		for _, c := range n.children {
			c.write(b)
		}
		b.WriteString("</")
		b.WriteString(qualified(n.name))
		b.WriteString(">")
	}
}

// escape writes s as character data. Newlines and tabs stay literal in text
// but are written as references inside attribute values. Characters XML
// does not allow are replaced with U+FFFD.
func escape(b *bytes.Buffer, s string, attr bool) {
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			if attr {
				b.WriteString("&quot;")
			} else {
				b.WriteRune(r)
			}
		case '\r':
			b.WriteString("&#xD;")
		case '\n':
			if attr {
				b.WriteString("&#xA;")
			} else {
				b.WriteRune(r)
			}
		case '\t':
			if attr {
				b.WriteString("&#x9;")
			} else {
				b.WriteRune(r)
			}
		default:
			if !isXMLChar(r) {
				r = '\uFFFD'
			}
			b.WriteRune(r)
		}
	}
}

// isXMLChar reports whether r may appear in an XML 1.0 document. Other C0
// controls and U+FFFE/U+FFFF make the whole part unreadable.
func isXMLChar(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF, r >= 0xE000 && r <= 0xFFFD, r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

func splitQualified(key string) xml.Name {
	if prefix, local, ok := strings.Cut(key, ":"); ok {
		return xml.Name{Space: prefix, Local: local}
	}
	return xml.Name{Local: key}
}

func (n *node) is(prefix, local string) bool {
	return n != nil && n.kind == elementNode && n.name.Space == prefix && n.name.Local == local
}

// child returns the first element child with the given name.
func (n *node) child(prefix, local string) *node {
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if c.is(prefix, local) {
			return c
		}
	}
	return nil
}

// path descends through first-match children, e.g. path("p:cSld", "p:spTree").
func (n *node) path(keys ...string) *node {
	cur := n
	for _, k := range keys {
		name := splitQualified(k)
		cur = cur.child(name.Space, name.Local)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func (n *node) all(prefix, local string) []*node {
	if n == nil {
		return nil
	}
	var out []*node
	for _, c := range n.children {
		if c.is(prefix, local) {
			out = append(out, c)
		}
	}
	return out
}

func (n *node) elements() []*node {
	var out []*node
	for _, c := range n.children {
		if c.kind == elementNode {
			out = append(out, c)
		}
	}
	return out
}

func (n *node) attr(key string) (string, bool) {
	name := splitQualified(key)
	for _, a := range n.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (n *node) setAttr(key, value string) {
	name := splitQualified(key)
	for i, a := range n.attrs {
		if a.Name == name {
			n.attrs[i].Value = value
			return
		}
	}
	n.attrs = append(n.attrs, xml.Attr{Name: name, Value: value})
}

func (n *node) append(children ...*node) {
	n.children = append(n.children, children...)
}

// insertBefore inserts c before the first element child whose qualified name
// is one of keys, or appends it when none is present.
func (n *node) insertBefore(c *node, keys ...string) {
	for i, existing := range n.children {
		if existing.kind != elementNode {
			continue
		}
		q := qualified(existing.name)
		for _, k := range keys {
			if q == k {
				n.children = append(n.children[:i], append([]*node{c}, n.children[i:]...)...)
				return
			}
		}
	}
	n.children = append(n.children, c)
}

func (n *node) remove(c *node) bool {
	for i, existing := range n.children {
		if existing == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return true
		}
	}
	return false
}

// removeAll drops every element child with the given name.
func (n *node) removeAll(prefix, local string) {
	kept := n.children[:0]
	for _, c := range n.children {
		if !c.is(prefix, local) {
			kept = append(kept, c)
		}
	}
	n.children = kept
}

// clone deep-copies the subtree.
func (n *node) clone() *node {
	cp := *n
	cp.attrs = append([]xml.Attr(nil), n.attrs...)
	cp.children = make([]*node, len(n.children))
	for i, c := range n.children {
		cp.children[i] = c.clone()
	}
	return &cp
}

// innerText concatenates every text node below n.
func (n *node) innerText() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*node)
	walk = func(x *node) {
		for _, c := range x.children {
			if c.kind == textNode {
				b.WriteString(c.data)
			} else if c.kind == elementNode {
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}

func (n *node) setText(s string) {
	n.children = []*node{{kind: textNode, data: s}}
}
