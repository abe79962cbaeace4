package sync

import (
	"fmt"
	"log/slog"

	"github.com/natikgadzhi/decksync/internal/deck"
)

// Target is the table new rows are appended to. It is replaced, never
// mutated, whenever a rebuild or a new page produces a new physical table.
type Target struct {
	// ID is the logical table identity. A rebuilt table keeps the ID of the
	// table it replaced; a table started on a new slide gets a new one.
	ID int

	Slide *deck.Slide
	Shape *deck.Shape
	Table *deck.Table
}

// SlideIndex is the zero-based position of the target's slide.
func (t *Target) SlideIndex() int {
	return t.Slide.Index()
}

// BodyRows is the number of rows below the header.
func (t *Target) BodyRows() int {
	return t.Table.Rows() - 1
}

// Paginator starts a new slide when the target table is full.
type Paginator struct {
	doc      *deck.Presentation
	capacity int
	opts     Options
	logger   *slog.Logger
}

// NewPaginator returns a paginator that moves appends to a new slide once a
// table holds opts.MaxBodyRows body rows.
func NewPaginator(doc *deck.Presentation, opts Options, logger *slog.Logger) *Paginator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Paginator{doc: doc, capacity: opts.MaxBodyRows, opts: opts, logger: logger}
}

// EnsureCapacity returns tgt unchanged while it has room. When it is full it
// adds a slide with tgt's layout holding a header-only copy of the table at
// the same geometry and column widths, and returns that as the new target
// with nextID as its identity. The boolean reports whether a slide was added.
func (p *Paginator) EnsureCapacity(tgt Target, nextID int) (Target, bool, error) {
	body := tgt.BodyRows()
	if p.capacity <= 0 || body < p.capacity {
		return tgt, false, nil
	}

	p.logger.Info("table reached capacity, starting a new slide",
		"slide", tgt.SlideIndex()+1,
		"body_rows", body,
		"capacity", p.capacity,
	)

	slide, err := p.doc.AddSlide(tgt.Slide)
	if err != nil {
		return tgt, false, fmt.Errorf("starting new slide: %w", err)
	}

	g := HeaderOnly(CaptureGrid(tgt.Table, p.logger))
	shape, table, err := PlaceTable(slide, tgt.Shape.Geometry(), g, p.opts, p.logger)
	if err != nil {
		return tgt, false, fmt.Errorf("starting new slide: %w", err)
	}

	next := Target{ID: nextID, Slide: slide, Shape: shape, Table: table}
	p.logger.Info("created overflow slide",
		"slide", next.SlideIndex()+1,
		"layout", deck.LayoutName(slide.Layout()),
		"table_id", next.ID,
	)
	return next, true, nil
}
