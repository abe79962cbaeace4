package sync

import (
	"archive/zip"
	"bytes"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/natikgadzhi/decksync/internal/dataset"
	"github.com/natikgadzhi/decksync/internal/deck"
)

var tableGeometry = deck.Geometry{Left: 457200, Top: 1371600, Width: 8229600, Height: 1480000}

var standardHeader = []string{ColumnTool, ColumnDescription, ColumnRequestor, ColumnState}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// addTable places a table holding rows on the slide.
func addTable(t *testing.T, slide *deck.Slide, rows [][]string) *deck.Table {
	t.Helper()
	sh, err := slide.AddTable(len(rows), len(rows[0]), tableGeometry)
	if err != nil {
		t.Fatalf("AddTable() error = %v", err)
	}
	tbl, err := sh.Table()
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}
	for r, row := range rows {
		for c, text := range row {
			cell, err := tbl.Cell(r, c)
			if err != nil {
				t.Fatalf("Cell(%d, %d) error = %v", r, c, err)
			}
			cell.SetText(text)
		}
	}
	return tbl
}

// newDeck returns a deck with one slide holding a table of rows.
func newDeck(t *testing.T, rows ...[]string) *deck.Presentation {
	t.Helper()
	p := deck.New()
	slide, err := p.AddSlide(nil)
	if err != nil {
		t.Fatalf("AddSlide() error = %v", err)
	}
	addTable(t, slide, rows)
	return p
}

// tableText reads every cell of a table.
func tableText(t *testing.T, tbl *deck.Table) [][]string {
	t.Helper()
	out := make([][]string, tbl.Rows())
	for r := range out {
		out[r] = make([]string, tbl.Cols())
		for c := range out[r] {
			cell, err := tbl.Cell(r, c)
			if err != nil {
				t.Fatalf("Cell(%d, %d) error = %v", r, c, err)
			}
			out[r][c] = cell.Text()
		}
	}
	return out
}

// tablesOn returns the tables held by a slide's shapes, in order.
func tablesOn(t *testing.T, slide *deck.Slide) []*deck.Table {
	t.Helper()
	var out []*deck.Table
	for _, sh := range slide.Shapes() {
		if !sh.HasTable() {
			continue
		}
		tbl, err := sh.Table()
		if err != nil {
			t.Fatalf("Table() error = %v", err)
		}
		out = append(out, tbl)
	}
	return out
}

func onlyTable(t *testing.T, slide *deck.Slide) *deck.Table {
	t.Helper()
	tables := tablesOn(t, slide)
	if len(tables) != 1 {
		t.Fatalf("expected 1 table on slide %d, got %d", slide.Index()+1, len(tables))
	}
	return tables[0]
}

func record(row int, tool, desc, requestor, status string) dataset.Record {
	return dataset.Record{Row: row, Tool: tool, Description: desc, Requestor: requestor, Status: status}
}

// fakePersister records how often it was asked to store the deck.
type fakePersister struct {
	calls int
	buf   bytes.Buffer
	err   error
}

func (f *fakePersister) Persist(src io.WriterTo) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.buf.Reset()
	_, err := src.WriteTo(&f.buf)
	return err
}

func bytesReader(b []byte) (*bytes.Reader, int64) {
	return bytes.NewReader(b), int64(len(b))
}

var firstTableXML = regexp.MustCompile(`(?s)<a:tbl>.*?</a:tbl>`)

// rewriteFirstTable saves p, applies edit to the XML of the first table on
// its first slide and reads the deck back. It builds the malformed tables
// that AddTable cannot produce.
func rewriteFirstTable(t *testing.T, p *deck.Presentation, edit func(string) string) *deck.Presentation {
	t.Helper()
	var src bytes.Buffer
	if _, err := p.WriteTo(&src); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(src.Bytes()), int64(src.Len()))
	if err != nil {
		t.Fatalf("reading zip: %v", err)
	}

	slidePart := p.Slides()[0].Part()
	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("reading %s: %v", f.Name, err)
		}

		if f.Name == slidePart {
			loc := firstTableXML.FindIndex(data)
			if loc == nil {
				t.Fatalf("no table in %s", f.Name)
			}
			edited := edit(string(data[loc[0]:loc[1]]))
			data = append(append(append([]byte(nil), data[:loc[0]]...), edited...), data[loc[1]:]...)
		}

		w, err := zw.Create(f.Name)
		if err != nil {
			t.Fatalf("creating %s: %v", f.Name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("writing %s: %v", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}

	doc, err := deck.Read(bytesReader(out.Bytes()))
	if err != nil {
		t.Fatalf("reading rewritten deck: %v", err)
	}
	return doc
}

// replaceFirst replaces the first match of pattern in s.
func replaceFirst(s, pattern, repl string) string {
	re := regexp.MustCompile(pattern)
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}
