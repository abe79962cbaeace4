package main

import (
	"fmt"
	"io"
	"time"

	"github.com/natikgadzhi/decksync/internal/config"
	"github.com/natikgadzhi/decksync/internal/sync"
	"github.com/spf13/cobra"
)

var statusConfigPath string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last sync and what it changed",
	Long: `Status displays information about the current sync state, including:
- When the last sync occurred
- What the last run changed in the deck
- Whether the spreadsheet or deck changed since then`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusConfigPath, "config", "c", "config.yaml", "path to config file")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(statusConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	state, err := sync.LoadState(cfg.State.File)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	printStatus(cmd.OutOrStdout(), cfg, state)

	return nil
}

// printStatus outputs the sync state to the given writer.
func printStatus(w io.Writer, cfg *config.Config, state *sync.State) {
	_, _ = fmt.Fprintln(w, "Decksync Status")
	_, _ = fmt.Fprintln(w, "===============")
	_, _ = fmt.Fprintln(w)

	// Config info
	_, _ = fmt.Fprintf(w, "Config file:  %s\n", statusConfigPath)
	_, _ = fmt.Fprintf(w, "State file:   %s\n", cfg.State.File)
	_, _ = fmt.Fprintf(w, "Spreadsheet:  %s\n", cfg.Dataset.Path)
	_, _ = fmt.Fprintf(w, "Deck:         %s\n", cfg.Deck.Path)
	if cfg.Deck.OutputPath() != cfg.Deck.Path {
		_, _ = fmt.Fprintf(w, "Output:       %s\n", cfg.Deck.OutputPath())
	}
	_, _ = fmt.Fprintln(w)

	if state.LastSync.IsZero() {
		_, _ = fmt.Fprintln(w, "Last sync:    Never")
	} else {
		ago := time.Since(state.LastSync).Round(time.Second)
		_, _ = fmt.Fprintf(w, "Last sync:    %s (%s ago)\n",
			state.LastSync.Format("2006-01-02 15:04:05"),
			formatDuration(ago))
		_, _ = fmt.Fprintf(w, "Inputs:       %s\n", inputsStatus(cfg, state))
	}
	_, _ = fmt.Fprintln(w)

	run, ok := state.LastRun()
	if !ok {
		_, _ = fmt.Fprintln(w, "No runs recorded yet. Run 'decksync sync' to update the deck.")
		return
	}

	_, _ = fmt.Fprintln(w, "Last run")
	_, _ = fmt.Fprintln(w, "--------")
	_, _ = fmt.Fprintf(w, "Records processed: %d\n", run.RecordsProcessed)
	_, _ = fmt.Fprintf(w, "Fields changed:    %d\n", run.FieldsChanged)
	_, _ = fmt.Fprintf(w, "Rows added:        %d\n", run.RowsAdded)
	_, _ = fmt.Fprintf(w, "Not found:         %d\n", run.NotFound)
	_, _ = fmt.Fprintf(w, "Slides added:      %d\n", run.SlidesAdded)
	saved := "no"
	if run.Persisted {
		saved = "yes"
	}
	_, _ = fmt.Fprintf(w, "Deck saved:        %s\n", saved)
	_, _ = fmt.Fprintf(w, "Duration:          %s\n", run.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "Runs recorded:     %d\n", len(state.Runs))
}

// inputsStatus compares the inputs on disk and the current settings with
// the recorded fingerprint.
func inputsStatus(cfg *config.Config, state *sync.State) string {
	fp, err := fingerprint(cfg)
	if err != nil {
		return fmt.Sprintf("unreadable (%v)", err)
	}
	if state.Unchanged(fp) {
		return "unchanged since last sync"
	}
	return "changed since last sync"
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		mins := int(d.Minutes()) % 60
		if mins > 0 {
			return fmt.Sprintf("%dh %dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	if hours > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}
