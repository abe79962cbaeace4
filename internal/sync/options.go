package sync

import "github.com/natikgadzhi/decksync/internal/deck"

// Display names of the columns a deck table must carry to be synced.
const (
	ColumnTool        = "AI Tool"
	ColumnDescription = "Tool Description"
	ColumnRequestor   = "Requestor"
	ColumnState       = "Current State"
)

// RequiredColumns is the header set that makes a table a sync target.
var RequiredColumns = []string{ColumnTool, ColumnDescription, ColumnRequestor, ColumnState}

// Defaults used when no configuration overrides them.
const (
	DefaultFont          = "Calibri"
	DefaultFontSize      = 11.0
	DefaultHeaderBold    = true
	DefaultBodyBold      = false
	DefaultMaxBodyRows   = 8
	DefaultAppendMissing = true
)

// Options controls styling, pagination and whether unmatched records are
// appended.
type Options struct {
	// MaxBodyRows is the number of rows below the header a table may hold
	// before appends move to a new slide.
	MaxBodyRows int

	// AppendMissing adds records that match no row to the target table.
	AppendMissing bool

	HeaderStyle deck.Style
	BodyStyle   deck.Style
}

// DefaultOptions returns the built-in settings: Calibri 11pt, bold header,
// eight body rows per table, append enabled.
func DefaultOptions() Options {
	return Options{
		MaxBodyRows:   DefaultMaxBodyRows,
		AppendMissing: DefaultAppendMissing,
		HeaderStyle:   deck.Style{Font: DefaultFont, Points: DefaultFontSize, Bold: DefaultHeaderBold},
		BodyStyle:     deck.Style{Font: DefaultFont, Points: DefaultFontSize, Bold: DefaultBodyBold},
	}
}

func (o Options) styleFor(row int) deck.Style {
	if row == 0 {
		return o.HeaderStyle
	}
	return o.BodyStyle
}
