package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/natikgadzhi/decksync/internal/deck"
	"github.com/xuri/excelize/v2"
)

var toolHeader = []string{"AI Tool", "Tool Description", "Requestor", "Current State"}

// writeTracker saves a workbook whose first sheet holds rows.
func writeTracker(t *testing.T, dir string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("writing row %d: %v", i+1, err)
		}
	}

	path := filepath.Join(dir, "tracker.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving workbook: %v", err)
	}
	return path
}

// writeDeck saves a one-slide deck holding a table of rows.
func writeDeck(t *testing.T, dir string, rows [][]string) string {
	t.Helper()
	p := deck.New()
	slide, err := p.AddSlide(nil)
	if err != nil {
		t.Fatal(err)
	}
	sh, err := slide.AddTable(len(rows), len(rows[0]), deck.Geometry{Left: 457200, Top: 1371600, Width: 8229600, Height: 1480000})
	if err != nil {
		t.Fatal(err)
	}
	tbl, _ := sh.Table()
	for r, row := range rows {
		for c, text := range row {
			cell, err := tbl.Cell(r, c)
			if err != nil {
				t.Fatal(err)
			}
			cell.SetText(text)
		}
	}

	path := filepath.Join(dir, "deck.pptx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	if _, err := p.WriteTo(f); err != nil {
		t.Fatalf("writing deck: %v", err)
	}
	return path
}

// writeConfigFile saves a config naming the given inputs. datasetExtra and
// deckExtra are appended, indented, to their sections.
func writeConfigFile(t *testing.T, dir, datasetPath, deckPath, datasetExtra, deckExtra string) string {
	t.Helper()
	content := fmt.Sprintf(`
dataset:
  path: %q
%s
deck:
  path: %q
%s
state:
  file: %q
`, datasetPath, datasetExtra, deckPath, deckExtra, filepath.Join(dir, "state.json"))

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

// readDeckTable returns the text of the first table on each slide.
func readDeckTable(t *testing.T, path string) [][][]string {
	t.Helper()
	p, err := deck.Open(path)
	if err != nil {
		t.Fatalf("opening deck: %v", err)
	}
	var out [][][]string
	for _, slide := range p.Slides() {
		for _, sh := range slide.Shapes() {
			if !sh.HasTable() {
				continue
			}
			tbl, _ := sh.Table()
			grid := make([][]string, tbl.Rows())
			for r := range grid {
				grid[r] = make([]string, tbl.Cols())
				for c := range grid[r] {
					cell, _ := tbl.Cell(r, c)
					grid[r][c] = cell.Text()
				}
			}
			out = append(out, grid)
			break
		}
	}
	return out
}

// isolateEnv clears environment overrides and resets sync flags.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DECKSYNC_DATASET", "")
	t.Setenv("DECKSYNC_DECK", "")
	dryRun, force, quiet, verbose = false, false, false, false
	t.Cleanup(func() {
		dryRun, force, quiet, verbose = false, false, false, false
	})
}
