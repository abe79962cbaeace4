package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// State records past runs so unchanged inputs can be detected and the status
// command has something to show.
type State struct {
	// Version is the state file format version for future migrations.
	Version int `json:"version"`

	// LastSync is when the last successful run completed.
	LastSync time.Time `json:"last_sync"`

	// DatasetHash and DeckHash fingerprint the inputs as they were after
	// the last successful run; SettingsHash the options it ran with.
	DatasetHash  string `json:"dataset_hash,omitempty"`
	DeckHash     string `json:"deck_hash,omitempty"`
	SettingsHash string `json:"settings_hash,omitempty"`

	// Runs holds the most recent runs, newest last.
	Runs []RunRecord `json:"runs"`

	// path is the file path where state is persisted (not serialized).
	path string
}

// RunRecord is the stored summary of one run.
type RunRecord struct {
	FinishedAt       time.Time     `json:"finished_at"`
	Dataset          string        `json:"dataset"`
	Deck             string        `json:"deck"`
	RecordsProcessed int           `json:"records_processed"`
	FieldsChanged    int           `json:"fields_changed"`
	RowsAdded        int           `json:"rows_added"`
	NotFound         int           `json:"not_found"`
	SlidesAdded      int           `json:"slides_added"`
	Persisted        bool          `json:"persisted"`
	Duration         time.Duration `json:"duration"`
}

const (
	stateVersion = 1

	// maxRuns is how many runs the state file keeps.
	maxRuns = 20
)

// NewState creates a new empty state.
func NewState(path string) *State {
	return &State{
		Version: stateVersion,
		Runs:    make([]RunRecord, 0),
		path:    path,
	}
}

// LoadState loads state from a file, or creates a new state if the file doesn't exist.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewState(path), nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}

	state.path = path
	if state.Runs == nil {
		state.Runs = make([]RunRecord, 0)
	}

	return &state, nil
}

// Save persists the state to disk.
func (s *State) Save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}

	return nil
}

// Path returns the state file path.
func (s *State) Path() string {
	return s.path
}

// Fingerprint identifies what a run read: the spreadsheet, the deck and the
// settings that shape the result.
type Fingerprint struct {
	Dataset  string
	Deck     string
	Settings string
}

// Unchanged reports whether fp matches the fingerprint of the last
// successful run. A state missing any part never matches.
func (s *State) Unchanged(fp Fingerprint) bool {
	if s.DatasetHash == "" || s.DeckHash == "" || s.SettingsHash == "" {
		return false
	}
	return s.DatasetHash == fp.Dataset && s.DeckHash == fp.Deck && s.SettingsHash == fp.Settings
}

// Record appends a run, stores its fingerprint and marks the state as synced.
func (s *State) Record(run RunRecord, fp Fingerprint) {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	s.Runs = append(s.Runs, run)
	if len(s.Runs) > maxRuns {
		s.Runs = s.Runs[len(s.Runs)-maxRuns:]
	}
	s.DatasetHash = fp.Dataset
	s.DeckHash = fp.Deck
	s.SettingsHash = fp.Settings
	s.LastSync = run.FinishedAt
}

// LastRun returns the most recent run, if any.
func (s *State) LastRun() (RunRecord, bool) {
	if len(s.Runs) == 0 {
		return RunRecord{}, false
	}
	return s.Runs[len(s.Runs)-1], true
}

// Reset clears all tracked state (for force sync).
func (s *State) Reset() {
	s.DatasetHash = ""
	s.DeckHash = ""
	s.SettingsHash = ""
	s.LastSync = time.Time{}
}

// NewRunRecord converts a run result to its stored form.
func NewRunRecord(res *Result, dataset, deck string) RunRecord {
	return RunRecord{
		FinishedAt:       time.Now(),
		Dataset:          dataset,
		Deck:             deck,
		RecordsProcessed: res.RecordsProcessed,
		FieldsChanged:    res.FieldsChanged,
		RowsAdded:        res.RowsAdded,
		NotFound:         res.NotFound,
		SlidesAdded:      res.SlidesAdded,
		Persisted:        res.Persisted,
		Duration:         res.Duration,
	}
}

// HashFile returns the hex SHA-256 of a file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashSettings returns the hex SHA-256 of v's JSON encoding. Struct fields
// encode in declaration order, so equal values hash equally.
func HashSettings(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hashing settings: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
