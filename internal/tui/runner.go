package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Runner manages a TUI program and provides methods to update it from sync operations.
type Runner struct {
	program *tea.Program
	model   Model
	mu      sync.Mutex
	started bool
}

// NewRunner creates a new TUI runner.
func NewRunner() *Runner {
	return &Runner{
		model: New(),
	}
}

// Start starts the TUI program in a goroutine and returns immediately.
// The program runs until Done() is called.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	r.program = tea.NewProgram(r.model)
	r.started = true

	go func() {
		_, _ = r.program.Run()
	}()

	return nil
}

// Wait blocks until the TUI program exits.
func (r *Runner) Wait() {
	if r.program != nil {
		r.program.Wait()
	}
}

// AddRecord adds a pending record.
func (r *Runner) AddRecord(row int, tool string) {
	if r.program != nil {
		r.program.Send(AddRecordMsg{Item: &RecordItem{Row: row, Tool: tool}})
	}
}

// SetStatus moves a record to a new status. changes and slide describe the
// outcome and are zero while the record is still being searched.
func (r *Runner) SetStatus(row int, status RecordStatus, changes, slide int) {
	if r.program != nil {
		r.program.Send(UpdateStatusMsg{Row: row, Status: status, Changes: changes, Slide: slide})
	}
}

// Done signals that the sync is complete.
func (r *Runner) Done(err error) {
	if r.program != nil {
		r.program.Send(DoneMsg{Err: err})
	}
}
