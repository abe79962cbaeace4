package sync

import (
	"strings"

	"github.com/natikgadzhi/decksync/internal/dataset"
	"github.com/natikgadzhi/decksync/internal/deck"
)

// updatableColumns are rewritten on a match; the key column never is.
var updatableColumns = []string{ColumnDescription, ColumnRequestor, ColumnState}

// FieldChange is one cell rewritten by an update.
type FieldChange struct {
	Column string
	Old    string
	New    string
}

// RowUpdate is the outcome of updating a matched row.
type RowUpdate struct {
	// Row is the table row that matched (1 is the first body row).
	Row int

	Changes []FieldChange

	// Unreachable lists mapped columns whose cell is missing from the row.
	Unreachable []string
}

// recordValues maps display column names to the record's trimmed values.
func recordValues(r dataset.Record) map[string]string {
	return map[string]string{
		ColumnTool:        strings.TrimSpace(r.Tool),
		ColumnDescription: strings.TrimSpace(r.Description),
		ColumnRequestor:   strings.TrimSpace(r.Requestor),
		ColumnState:       strings.TrimSpace(r.Status),
	}
}

// keysEqual compares keys ignoring case and surrounding whitespace.
func keysEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// UpdateRow finds the first body row whose key cell matches the record and
// brings the other mapped cells up to date. Only cells whose trimmed text
// differs are rewritten; each rewritten cell is restyled, and the key cell is
// always restyled so the whole row stays uniform.
func UpdateRow(t *deck.Table, m HeaderMatch, rec dataset.Record, opts Options) (RowUpdate, bool) {
	keyCol := m.Index[ColumnTool]
	values := recordValues(rec)

	for r := 1; r < t.Rows(); r++ {
		keyCell, err := t.Cell(r, keyCol)
		if err != nil {
			continue
		}
		if !keysEqual(keyCell.Text(), values[ColumnTool]) {
			continue
		}

		upd := RowUpdate{Row: r}
		for _, col := range updatableColumns {
			cell, err := t.Cell(r, m.Index[col])
			if err != nil {
				upd.Unreachable = append(upd.Unreachable, col)
				continue
			}
			current := strings.TrimSpace(cell.Text())
			if current == values[col] {
				continue
			}
			cell.SetText(values[col])
			cell.ApplyStyle(opts.BodyStyle)
			upd.Changes = append(upd.Changes, FieldChange{Column: col, Old: current, New: values[col]})
		}
		keyCell.ApplyStyle(opts.BodyStyle)
		return upd, true
	}
	return RowUpdate{}, false
}
