// Package dataset reads the source spreadsheet into ordered records.
package dataset

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Spreadsheet column names.
const (
	FieldTool        = "Tool"
	FieldDescription = "Service\nUse Case"
	FieldRequestor   = "Requestor"
	FieldStatus      = "Status"
)

// descriptionVariant is the tolerated spelling of FieldDescription.
const descriptionVariant = "Service\n Use Case"

// RequiredFields lists the columns every dataset must carry.
var RequiredFields = []string{FieldTool, FieldDescription, FieldRequestor, FieldStatus}

// Record is one spreadsheet row. All values are trimmed.
type Record struct {
	// Row is the 1-based sheet row the record came from.
	Row int

	Tool        string
	Description string
	Requestor   string
	Status      string

	// Fields holds every column of the row keyed by header name.
	Fields map[string]string
}

// MissingColumnsError reports required columns absent from the header row.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	quoted := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		quoted[i] = fmt.Sprintf("%q", m)
	}
	return "missing dataset columns: " + strings.Join(quoted, ", ")
}

// ReadFile opens an .xlsx workbook and reads the named sheet. An empty sheet
// name selects the first sheet.
func ReadFile(path, sheet string) ([]Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Read(f, sheet)
}

// Read reads records from a sheet of an open workbook.
func Read(f *excelize.File, sheet string) ([]Record, error) {
	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	}
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, fmt.Errorf("looking up sheet %q: %w", sheet, err)
	}
	if idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading rows of sheet %q: %w", sheet, err)
	}
	return Parse(rows)
}

// Parse turns a header row plus data rows into records. It fails before
// producing any record if a required column is missing. Rows whose cells are
// all empty are skipped.
func Parse(rows [][]string) ([]Record, error) {
	if len(rows) == 0 {
		return nil, &MissingColumnsError{Missing: append([]string(nil), RequiredFields...)}
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		if h == descriptionVariant {
			h = FieldDescription
		}
		headers[i] = h
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	var missing []string
	for _, name := range RequiredFields {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}

	records := make([]Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}

		fields := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if _, seen := fields[h]; seen {
				continue
			}
			fields[h] = strings.TrimSpace(cellAt(row, i))
		}

		records = append(records, Record{
			Row:         n + 2,
			Tool:        fields[FieldTool],
			Description: fields[FieldDescription],
			Requestor:   fields[FieldRequestor],
			Status:      fields[FieldStatus],
			Fields:      fields,
		})
	}
	return records, nil
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
