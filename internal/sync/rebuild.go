package sync

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/natikgadzhi/decksync/internal/deck"
)

// Grid is a detached copy of a table: its cell text, row 0 being the header,
// and the column widths that could be read.
type Grid struct {
	Cells [][]string

	// Widths holds captured column widths in EMU, keyed by column. Columns
	// whose width could not be read are absent.
	Widths map[int]int64
}

// Rows returns the number of rows including the header.
func (g Grid) Rows() int { return len(g.Cells) }

// Cols returns the number of columns, taken from the header row.
func (g Grid) Cols() int {
	if len(g.Cells) == 0 {
		return 0
	}
	return len(g.Cells[0])
}

// Header returns the trimmed header names.
func (g Grid) Header() []string {
	if len(g.Cells) == 0 {
		return nil
	}
	out := make([]string, len(g.Cells[0]))
	for i, h := range g.Cells[0] {
		out[i] = strings.TrimSpace(h)
	}
	return out
}

// CaptureGrid copies a table's text and column widths. Cells missing from a
// ragged row read as empty; widths that cannot be read are skipped.
func CaptureGrid(t *deck.Table, logger *slog.Logger) Grid {
	rows, cols := t.Rows(), t.Cols()
	g := Grid{Cells: make([][]string, rows), Widths: make(map[int]int64, cols)}
	for r := 0; r < rows; r++ {
		g.Cells[r] = make([]string, cols)
		for c := 0; c < cols; c++ {
			if cell, err := t.Cell(r, c); err == nil {
				g.Cells[r][c] = cell.Text()
			}
		}
	}
	for c := 0; c < cols; c++ {
		w, err := t.ColumnWidth(c)
		if err != nil {
			logger.Debug("column width unavailable", "column", c, "error", err)
			continue
		}
		g.Widths[c] = w
	}
	return g
}

// AppendRow returns a copy of g with one more row. Each new cell takes the
// value whose key equals the column's trimmed header; unmapped columns are
// left empty. g is not modified.
func AppendRow(g Grid, values map[string]string) Grid {
	out := Grid{Cells: make([][]string, 0, len(g.Cells)+1), Widths: make(map[int]int64, len(g.Widths))}
	for _, row := range g.Cells {
		out.Cells = append(out.Cells, append([]string(nil), row...))
	}
	for c, w := range g.Widths {
		out.Widths[c] = w
	}

	header := g.Header()
	row := make([]string, len(header))
	for c, h := range header {
		row[c] = values[h]
	}
	out.Cells = append(out.Cells, row)
	return out
}

// HeaderOnly returns a copy of g reduced to its header row. Header text is
// trimmed, as it is when a new page is started.
func HeaderOnly(g Grid) Grid {
	out := Grid{Widths: make(map[int]int64, len(g.Widths))}
	if len(g.Cells) > 0 {
		out.Cells = [][]string{g.Header()}
	}
	for c, w := range g.Widths {
		out.Widths[c] = w
	}
	return out
}

// PlaceTable creates a table on the slide from a grid: same geometry, the
// captured column widths, every cell's text, and a full restyle with the
// header style on row 0 and the body style elsewhere.
func PlaceTable(slide *deck.Slide, geom deck.Geometry, g Grid, opts Options, logger *slog.Logger) (*deck.Shape, *deck.Table, error) {
	if g.Rows() == 0 || g.Cols() == 0 {
		return nil, nil, fmt.Errorf("placing table: empty grid")
	}

	sh, err := slide.AddTable(g.Rows(), g.Cols(), geom)
	if err != nil {
		return nil, nil, fmt.Errorf("placing table: %w", err)
	}
	t, err := sh.Table()
	if err != nil {
		return nil, nil, fmt.Errorf("placing table: %w", err)
	}

	for c := 0; c < g.Cols(); c++ {
		w, ok := g.Widths[c]
		if !ok {
			continue
		}
		if err := t.SetColumnWidth(c, w); err != nil {
			logger.Debug("column width not restored", "column", c, "error", err)
		}
	}

	for r, row := range g.Cells {
		for c := 0; c < g.Cols(); c++ {
			cell, err := t.Cell(r, c)
			if err != nil {
				return nil, nil, fmt.Errorf("placing table: %w", err)
			}
			if c < len(row) {
				cell.SetText(row[c])
			}
			cell.ApplyStyle(opts.styleFor(r))
		}
	}
	return sh, t, nil
}

// ReplaceTable swaps the table held by shape for one built from g at the same
// geometry. The old shape and table must not be used afterwards.
func ReplaceTable(slide *deck.Slide, shape *deck.Shape, g Grid, opts Options, logger *slog.Logger) (*deck.Shape, *deck.Table, error) {
	geom := shape.Geometry()
	if err := slide.RemoveShape(shape); err != nil {
		return nil, nil, fmt.Errorf("replacing table: %w", err)
	}
	return PlaceTable(slide, geom, g, opts, logger)
}

// AppendByRebuild adds one row to the table held by shape. The table cannot
// grow in place, so it is captured, removed and recreated one row taller with
// the same geometry, widths and text, followed by the new row.
func AppendByRebuild(slide *deck.Slide, shape *deck.Shape, values map[string]string, opts Options, logger *slog.Logger) (*deck.Shape, *deck.Table, error) {
	t, err := shape.Table()
	if err != nil {
		return nil, nil, fmt.Errorf("appending row: %w", err)
	}
	g := AppendRow(CaptureGrid(t, logger), values)
	return ReplaceTable(slide, shape, g, opts, logger)
}
