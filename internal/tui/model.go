// Package tui provides a terminal user interface for displaying sync progress.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RecordStatus represents where a spreadsheet record is in the sync.
type RecordStatus int

const (
	StatusPending RecordStatus = iota
	StatusSearching
	StatusUpdated
	StatusUnchanged
	StatusAppended
	StatusUnappended
)

// finished reports whether the record has left the pipeline.
func (s RecordStatus) finished() bool {
	return s >= StatusUpdated
}

// RecordItem represents one spreadsheet record being synced.
type RecordItem struct {
	Row     int // spreadsheet row, also the item's identity
	Tool    string
	Status  RecordStatus
	Changes int
	Slide   int
}

// maxRecentItems is the number of recent finished records to show.
const maxRecentItems = 6

// Model is the Bubble Tea model for the sync TUI.
type Model struct {
	// All items indexed by spreadsheet row for quick lookup
	items map[int]*RecordItem

	counts     map[RecordStatus]int
	totalCount int

	// Record currently being searched, nil between records
	current *RecordItem

	// Recent finished items (scrolling buffer)
	recentItems []*RecordItem

	spinner  spinner.Model
	done     bool
	err      error
	quitting bool

	// Styles
	titleStyle    lipgloss.Style
	headerStyle   lipgloss.Style
	countStyle    lipgloss.Style
	doneStyle     lipgloss.Style
	errorStyle    lipgloss.Style
	warnStyle     lipgloss.Style
	progressStyle lipgloss.Style
	dimStyle      lipgloss.Style
}

// Messages for updating the TUI from sync operations.
type (
	// AddRecordMsg adds a new record (starts as pending).
	AddRecordMsg struct {
		Item *RecordItem
	}

	// UpdateStatusMsg updates the status of a record.
	UpdateStatusMsg struct {
		Row     int
		Status  RecordStatus
		Changes int
		Slide   int
	}

	// DoneMsg signals that sync is complete.
	DoneMsg struct {
		Err error
	}
)

// New creates a new TUI model.
func New() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		items:       make(map[int]*RecordItem),
		counts:      make(map[RecordStatus]int),
		recentItems: make([]*RecordItem, 0),
		spinner:     s,

		titleStyle:    lipgloss.NewStyle().Bold(true),
		headerStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		countStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		doneStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		errorStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		warnStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		progressStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
		dimStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case AddRecordMsg:
		item := msg.Item
		if _, exists := m.items[item.Row]; exists {
			return m, nil
		}
		item.Status = StatusPending
		m.items[item.Row] = item
		m.counts[StatusPending]++
		m.totalCount++
		return m, nil

	case UpdateStatusMsg:
		item, ok := m.items[msg.Row]
		if !ok {
			return m, nil
		}

		m.counts[item.Status]--
		m.counts[msg.Status]++
		item.Status = msg.Status
		item.Changes = msg.Changes
		item.Slide = msg.Slide

		if msg.Status == StatusSearching {
			m.current = item
		} else if m.current == item {
			m.current = nil
		}

		if msg.Status.finished() {
			m.recentItems = append(m.recentItems, item)
			// Keep only the last N items
			if len(m.recentItems) > maxRecentItems {
				m.recentItems = m.recentItems[len(m.recentItems)-maxRecentItems:]
			}
		}

		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		m.current = nil
		return m, tea.Quit
	}

	return m, nil
}

// finishedCount is the number of records that left the pipeline.
func (m Model) finishedCount() int {
	return m.counts[StatusUpdated] + m.counts[StatusUnchanged] +
		m.counts[StatusAppended] + m.counts[StatusUnappended]
}

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	// Header
	b.WriteString("\n")
	b.WriteString(m.headerStyle.Render("Syncing spreadsheet to deck"))
	b.WriteString("\n")

	// Progress bar
	completed := m.finishedCount()
	if m.totalCount > 0 {
		percent := float64(completed) / float64(m.totalCount) * 100
		barWidth := 40
		filledWidth := int(float64(barWidth) * float64(completed) / float64(m.totalCount))
		if filledWidth > barWidth {
			filledWidth = barWidth
		}

		bar := strings.Repeat("━", filledWidth) + strings.Repeat("─", barWidth-filledWidth)
		b.WriteString(m.progressStyle.Render(bar))
		b.WriteString(fmt.Sprintf(" %.0f%% (%d/%d)\n", percent, completed, m.totalCount))
	}

	counts := fmt.Sprintf("Updated: %d  Unchanged: %d  Appended: %d  Not added: %d",
		m.counts[StatusUpdated], m.counts[StatusUnchanged],
		m.counts[StatusAppended], m.counts[StatusUnappended])
	b.WriteString(m.countStyle.Render(counts))
	b.WriteString("\n\n")

	if m.current != nil {
		b.WriteString(fmt.Sprintf("  %s %s %s\n\n",
			m.spinner.View(),
			m.titleStyle.Render(truncate(m.current.Tool, 40)),
			m.dimStyle.Render(fmt.Sprintf("(row %d)", m.current.Row)),
		))
	}

	// Recent items section
	if len(m.recentItems) > 0 {
		b.WriteString(m.dimStyle.Render("Recent:"))
		b.WriteString("\n")
		for _, item := range m.recentItems {
			b.WriteString(m.renderRecentItem(item))
			b.WriteString("\n")
		}
	}

	// Completion message
	if m.done {
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(m.errorStyle.Render("✗ Sync failed: " + m.err.Error()))
		} else {
			b.WriteString(m.doneStyle.Render("✓ Sync complete"))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// renderRecentItem renders a finished record.
func (m Model) renderRecentItem(item *RecordItem) string {
	var status, detail string
	switch item.Status {
	case StatusUpdated:
		status = m.doneStyle.Render("✓")
		detail = fmt.Sprintf("%d field(s) on slide %d", item.Changes, item.Slide)
	case StatusUnchanged:
		status = m.dimStyle.Render("=")
		detail = "up to date"
	case StatusAppended:
		status = m.doneStyle.Render("+")
		detail = fmt.Sprintf("added to slide %d", item.Slide)
	case StatusUnappended:
		status = m.warnStyle.Render("!")
		detail = "not found, not added"
	}

	return fmt.Sprintf("  %s %s %s",
		status,
		m.dimStyle.Render(truncate(item.Tool, 40)),
		m.countStyle.Render(detail),
	)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// Items returns all items.
func (m *Model) Items() map[int]*RecordItem {
	return m.items
}
