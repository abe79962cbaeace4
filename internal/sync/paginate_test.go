package sync

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/natikgadzhi/decksync/internal/deck"
)

// targetOn builds a Target for the only table on the deck's first slide.
func targetOn(t *testing.T, p *deck.Presentation, id int) Target {
	t.Helper()
	slide := p.Slides()[0]
	for _, sh := range slide.Shapes() {
		if !sh.HasTable() {
			continue
		}
		tbl, err := sh.Table()
		if err != nil {
			t.Fatalf("Table() error = %v", err)
		}
		return Target{ID: id, Slide: slide, Shape: sh, Table: tbl}
	}
	t.Fatal("no table on first slide")
	return Target{}
}

func TestEnsureCapacity(t *testing.T) {
	tests := []struct {
		name      string
		capacity  int
		bodyRows  int
		wantPaged bool
	}{
		{"below capacity", 3, 2, false},
		{"at capacity", 2, 2, true},
		{"over capacity", 1, 2, true},
		{"pagination disabled", 0, 5, false},
		{"header only", 1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := [][]string{standardHeader}
			for i := 0; i < tt.bodyRows; i++ {
				rows = append(rows, []string{"T", "d", "r", "s"})
			}
			p := newDeck(t, rows...)
			tgt := targetOn(t, p, 1)

			opts := DefaultOptions()
			opts.MaxBodyRows = tt.capacity
			got, paged, err := NewPaginator(p, opts, discardLogger()).EnsureCapacity(tgt, 2)
			if err != nil {
				t.Fatalf("EnsureCapacity() error = %v", err)
			}
			if paged != tt.wantPaged {
				t.Fatalf("paged = %v, want %v", paged, tt.wantPaged)
			}

			if !paged {
				if got.Table != tgt.Table || got.ID != 1 {
					t.Error("expected the target to be returned unchanged")
				}
				if len(p.Slides()) != 1 {
					t.Errorf("expected no slide added, got %d slides", len(p.Slides()))
				}
				return
			}

			if got.ID != 2 {
				t.Errorf("new target ID = %d, want 2", got.ID)
			}
			if got.SlideIndex() != 1 || got.Slide.Layout() != tgt.Slide.Layout() {
				t.Errorf("new target on slide %d with layout %q", got.SlideIndex()+1, got.Slide.Layout())
			}
			if got.BodyRows() != 0 {
				t.Errorf("expected a header-only table, got %d body rows", got.BodyRows())
			}
			if diff := cmp.Diff(tableGeometry, got.Shape.Geometry()); diff != "" {
				t.Errorf("geometry mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([][]string{standardHeader}, tableText(t, got.Table)); diff != "" {
				t.Errorf("header mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEnsureCapacity_KeepsColumnWidths(t *testing.T) {
	p := newDeck(t, standardHeader, []string{"A", "a", "x", "Live"})
	tgt := targetOn(t, p, 1)
	widths := []int64{1000000, 4000000, 1500000, 1729600}
	for c, w := range widths {
		if err := tgt.Table.SetColumnWidth(c, w); err != nil {
			t.Fatalf("SetColumnWidth(%d) error = %v", c, err)
		}
	}

	opts := DefaultOptions()
	opts.MaxBodyRows = 1
	got, paged, err := NewPaginator(p, opts, discardLogger()).EnsureCapacity(tgt, 2)
	if err != nil || !paged {
		t.Fatalf("EnsureCapacity() = %v, %v", paged, err)
	}

	for c, want := range widths {
		w, err := got.Table.ColumnWidth(c)
		if err != nil {
			t.Fatalf("ColumnWidth(%d) error = %v", c, err)
		}
		if w != want {
			t.Errorf("column %d width = %d, want %d", c, w, want)
		}
	}

	cell, _ := got.Table.Cell(0, 0)
	if st, ok := cell.Style(); !ok || st != opts.HeaderStyle {
		t.Errorf("header cell style = %+v (%v), want %+v", st, ok, opts.HeaderStyle)
	}
}

func TestRunState_Identify(t *testing.T) {
	p := newDeck(t, standardHeader)
	slide := p.Slides()[0]
	second := addTable(t, slide, [][]string{standardHeader})
	first := targetOn(t, p, 0).Table

	st := newRunState()
	st, a := st.identify(first)
	st, b := st.identify(second)
	st, again := st.identify(first)

	if a != 1 || b != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", a, b)
	}
	if again != a {
		t.Errorf("re-identifying returned %d, want %d", again, a)
	}
	if st.nextID != 3 {
		t.Errorf("nextID = %d, want 3", st.nextID)
	}
}
