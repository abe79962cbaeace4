package sync

import (
	"strings"

	"github.com/natikgadzhi/decksync/internal/deck"
)

// HeaderMatch describes a qualifying table's header row.
type HeaderMatch struct {
	// Headers is every header cell, trimmed, in column order.
	Headers []string

	// Index maps each required column name to its column.
	Index map[string]int
}

// MatchHeader reports whether a table's first row contains every required
// column name. Matching is exact and case-sensitive on trimmed text. Empty or
// malformed tables never match.
func MatchHeader(t *deck.Table) (HeaderMatch, bool) {
	rows, cols := t.Rows(), t.Cols()
	if rows == 0 || cols == 0 {
		return HeaderMatch{}, false
	}

	headers := make([]string, cols)
	for c := 0; c < cols; c++ {
		cell, err := t.Cell(0, c)
		if err != nil {
			return HeaderMatch{}, false
		}
		headers[c] = strings.TrimSpace(cell.Text())
	}

	index, ok := matchHeaders(headers)
	if !ok {
		return HeaderMatch{}, false
	}
	return HeaderMatch{Headers: headers, Index: index}, true
}

// matchHeaders maps required names to the first column carrying them.
func matchHeaders(headers []string) (map[string]int, bool) {
	index := make(map[string]int, len(RequiredColumns))
	for _, name := range RequiredColumns {
		found := false
		for c, h := range headers {
			if h == name {
				index[name] = c
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return index, true
}

// qualifyingTable returns the table held by a shape when it qualifies.
func qualifyingTable(sh *deck.Shape) (*deck.Table, HeaderMatch, bool) {
	if !sh.HasTable() {
		return nil, HeaderMatch{}, false
	}
	t, err := sh.Table()
	if err != nil {
		return nil, HeaderMatch{}, false
	}
	m, ok := MatchHeader(t)
	if !ok {
		return nil, HeaderMatch{}, false
	}
	return t, m, true
}

// TableLocation describes a qualifying table found in a deck.
type TableLocation struct {
	Slide int // 1-based
	Shape string
	Rows  int // including the header
}

// FindTables lists every qualifying table in document order.
func FindTables(doc *deck.Presentation) []TableLocation {
	var out []TableLocation
	for _, slide := range doc.Slides() {
		for _, sh := range slide.Shapes() {
			t, _, ok := qualifyingTable(sh)
			if !ok {
				continue
			}
			out = append(out, TableLocation{Slide: slide.Index() + 1, Shape: sh.Name(), Rows: t.Rows()})
		}
	}
	return out
}
