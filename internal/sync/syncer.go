// Package sync reconciles spreadsheet records with the tables of a deck.
package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/natikgadzhi/decksync/internal/dataset"
	"github.com/natikgadzhi/decksync/internal/deck"
)

// appendedFieldCount is how many field changes an appended row accounts for,
// whatever its content.
const appendedFieldCount = 4

// Outcome is what happened to a single record.
type Outcome int

const (
	OutcomeSearching Outcome = iota
	OutcomeUpdated
	OutcomeUnchanged
	OutcomeAppended
	OutcomeUnappended
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSearching:
		return "searching"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeAppended:
		return "appended"
	case OutcomeUnappended:
		return "unappended"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// RecordEvent reports progress on one record.
type RecordEvent struct {
	Record  dataset.Record
	Outcome Outcome
	Changes int
	Slide   int // 1-based slide of the row touched, 0 when none
	Row     int // table row touched, 0 when none
}

// Persister stores the deck after a run that changed it.
type Persister interface {
	Persist(src io.WriterTo) error
}

// Result holds the counters of one run.
type Result struct {
	RecordsProcessed int
	FieldsChanged    int
	RowsAdded        int
	NotFound         int
	Unappended       int
	SlidesAdded      int
	Persisted        bool
	Duration         time.Duration
}

// Syncer drives records through search, update, append and pagination.
type Syncer struct {
	doc       *deck.Presentation
	opts      Options
	logger    *slog.Logger
	persister Persister
	onRecord  func(RecordEvent)
}

// SyncerOption is a functional option for configuring the Syncer.
type SyncerOption func(*Syncer)

// WithOptions replaces the default styling and pagination settings.
func WithOptions(opts Options) SyncerOption {
	return func(s *Syncer) {
		s.opts = opts
	}
}

// WithPersister sets where the deck is stored when a run changes it.
func WithPersister(p Persister) SyncerOption {
	return func(s *Syncer) {
		s.persister = p
	}
}

// WithOnRecord registers a callback invoked when a record starts and ends.
func WithOnRecord(fn func(RecordEvent)) SyncerOption {
	return func(s *Syncer) {
		s.onRecord = fn
	}
}

// NewSyncer creates a Syncer over an open deck.
func NewSyncer(doc *deck.Presentation, logger *slog.Logger, opts ...SyncerOption) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Syncer{
		doc:    doc,
		opts:   DefaultOptions(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// runState is carried from one record to the next. It is the only state of
// a run; every phase takes it and returns the updated value.
type runState struct {
	target *Target
	ids    map[*deck.Table]int
	nextID int
}

func newRunState() runState {
	return runState{ids: make(map[*deck.Table]int), nextID: 1}
}

// identify returns the logical ID of a table, assigning one on first sight.
func (st runState) identify(t *deck.Table) (runState, int) {
	if id, ok := st.ids[t]; ok {
		return st, id
	}
	id := st.nextID
	st.ids[t] = id
	st.nextID++
	return st, id
}

// Run processes records in order. Records with an empty key are skipped. The
// deck is persisted once at the end if any field changed. Cancellation is
// checked between records; a cancelled run persists nothing.
func (s *Syncer) Run(ctx context.Context, records []dataset.Record) (*Result, error) {
	start := time.Now()
	result := &Result{}
	st := newRunState()

	s.logger.Info("starting sync",
		"records", len(records),
		"slides", len(s.doc.Slides()),
		"append_missing", s.opts.AppendMissing,
		"max_body_rows", s.opts.MaxBodyRows,
	)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("sync interrupted: %w", err)
		}

		key := strings.TrimSpace(rec.Tool)
		if key == "" {
			s.logger.Debug("skipping record without tool name", "row", rec.Row)
			continue
		}
		result.RecordsProcessed++
		s.emit(RecordEvent{Record: rec, Outcome: OutcomeSearching})

		var (
			ev  RecordEvent
			err error
		)
		st, ev, err = s.syncRecord(st, rec, result)
		if err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("syncing %q (row %d): %w", key, rec.Row, err)
		}
		s.emit(ev)
	}

	if result.FieldsChanged > 0 {
		if s.persister != nil {
			if err := s.persister.Persist(s.doc); err != nil {
				result.Duration = time.Since(start)
				return result, fmt.Errorf("saving deck: %w", err)
			}
			result.Persisted = true
		}
	} else {
		s.logger.Info("no updates needed")
	}

	result.Duration = time.Since(start)
	s.logger.Info("sync complete",
		"records_processed", result.RecordsProcessed,
		"fields_changed", result.FieldsChanged,
		"rows_added", result.RowsAdded,
		"not_found", result.NotFound,
		"slides_added", result.SlidesAdded,
		"persisted", result.Persisted,
		"duration", result.Duration,
	)
	return result, nil
}

func (s *Syncer) emit(ev RecordEvent) {
	if s.onRecord != nil {
		s.onRecord(ev)
	}
}

// syncRecord runs one record through SEARCHING, then UPDATING or APPENDING.
func (s *Syncer) syncRecord(st runState, rec dataset.Record, result *Result) (runState, RecordEvent, error) {
	key := strings.TrimSpace(rec.Tool)
	s.logger.Debug("searching for tool", "tool", key)

	st, hit, found := s.search(st, rec)
	if found {
		result.FieldsChanged += len(hit.update.Changes)
		ev := RecordEvent{
			Record:  rec,
			Outcome: OutcomeUnchanged,
			Changes: len(hit.update.Changes),
			Slide:   hit.slide + 1,
			Row:     hit.update.Row,
		}
		if len(hit.update.Changes) > 0 {
			ev.Outcome = OutcomeUpdated
		}
		return st, ev, nil
	}

	result.NotFound++
	s.logger.Info("tool not found in any table", "tool", key)

	if !s.opts.AppendMissing || st.target == nil {
		result.Unappended++
		if st.target == nil {
			s.logger.Warn("no qualifying target table to append to", "tool", key)
		}
		return st, RecordEvent{Record: rec, Outcome: OutcomeUnappended}, nil
	}

	st, err := s.appendRecord(st, rec, result)
	if err != nil {
		return st, RecordEvent{}, err
	}
	return st, RecordEvent{
		Record:  rec,
		Outcome: OutcomeAppended,
		Changes: appendedFieldCount,
		Slide:   st.target.SlideIndex() + 1,
		Row:     st.target.Table.Rows() - 1,
	}, nil
}

type searchHit struct {
	slide  int
	update RowUpdate
}

// search scans slides, shapes and rows in document order and updates the
// first row whose key matches. The first qualifying table seen in the run is
// adopted as the append target.
func (s *Syncer) search(st runState, rec dataset.Record) (runState, searchHit, bool) {
	for _, slide := range s.doc.Slides() {
		for _, shape := range slide.Shapes() {
			table, match, ok := qualifyingTable(shape)
			if !ok {
				continue
			}

			var id int
			st, id = st.identify(table)
			if st.target == nil {
				st.target = &Target{ID: id, Slide: slide, Shape: shape, Table: table}
				s.restyleHeader(table)
				s.logger.Info("using table for new rows", "slide", slide.Index()+1, "table_id", id)
			}

			upd, found := UpdateRow(table, match, rec, s.opts)
			if !found {
				continue
			}

			s.logger.Info("found tool",
				"tool", strings.TrimSpace(rec.Tool),
				"slide", slide.Index()+1,
				"row", upd.Row+1,
				"table_id", id,
			)
			for _, ch := range upd.Changes {
				s.logger.Info("updated field", "field", ch.Column, "old", ch.Old, "new", ch.New)
			}
			for _, col := range upd.Unreachable {
				s.logger.Warn("cell missing from matched row", "field", col, "slide", slide.Index()+1, "row", upd.Row+1)
			}
			return st, searchHit{slide: slide.Index(), update: upd}, true
		}
	}
	return st, searchHit{}, false
}

func (s *Syncer) restyleHeader(t *deck.Table) {
	for c := 0; c < t.Cols(); c++ {
		cell, err := t.Cell(0, c)
		if err != nil {
			continue
		}
		cell.ApplyStyle(s.opts.HeaderStyle)
	}
}

// appendRecord paginates if the target is full, then rebuilds the target
// table with the record as its last row.
func (s *Syncer) appendRecord(st runState, rec dataset.Record, result *Result) (runState, error) {
	paginator := NewPaginator(s.doc, s.opts, s.logger)
	tgt, paged, err := paginator.EnsureCapacity(*st.target, st.nextID)
	if err != nil {
		return st, err
	}
	if paged {
		st.ids[tgt.Table] = tgt.ID
		st.nextID++
		result.SlidesAdded++
	}

	values := recordValues(rec)
	newShape, newTable, err := AppendByRebuild(tgt.Slide, tgt.Shape, values, s.opts, s.logger)
	if err != nil {
		return st, err
	}
	st.ids[newTable] = tgt.ID
	delete(st.ids, tgt.Table)

	refreshed := s.resolveTarget(tgt, newShape, newTable)
	st.target = &refreshed

	result.RowsAdded++
	result.FieldsChanged += appendedFieldCount
	s.logger.Info("appended row",
		"tool", values[ColumnTool],
		"slide", refreshed.SlideIndex()+1,
		"rows", refreshed.Table.Rows(),
		"table_id", refreshed.ID,
	)
	return st, nil
}

// resolveTarget re-reads the slide's shapes after a rebuild, since the old
// shape is gone. The rebuilt table is preferred; if it no longer qualifies
// the first qualifying table on the slide takes its place.
func (s *Syncer) resolveTarget(prev Target, shape *deck.Shape, table *deck.Table) Target {
	var first *Target
	for _, sh := range prev.Slide.Shapes() {
		t, _, ok := qualifyingTable(sh)
		if !ok {
			continue
		}
		if t == table {
			return Target{ID: prev.ID, Slide: prev.Slide, Shape: sh, Table: t}
		}
		if first == nil {
			first = &Target{ID: prev.ID, Slide: prev.Slide, Shape: sh, Table: t}
		}
	}
	if first != nil {
		return *first
	}
	return Target{ID: prev.ID, Slide: prev.Slide, Shape: shape, Table: table}
}
