package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natikgadzhi/decksync/internal/config"
	"github.com/natikgadzhi/decksync/internal/dataset"
	"github.com/natikgadzhi/decksync/internal/deck"
	"github.com/natikgadzhi/decksync/internal/sync"
	"github.com/natikgadzhi/decksync/internal/tui"
	"github.com/natikgadzhi/decksync/internal/writer"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	dryRun bool
	force  bool
	quiet  bool // quiet disables TUI and shows plain log output
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync spreadsheet records into the deck",
	Long: `Sync reads the tool records from the spreadsheet and brings the deck's
tool tables up to date. Rows whose tool name matches are updated in place;
tools that appear in no table are appended to the first qualifying table,
continuing on a new slide once a table is full.

When neither the spreadsheet nor the deck changed since the last sync, the
run is skipped. Use --force to sync anyway.

When running in a terminal, a TUI progress display is shown by default.
Use --quiet to disable the TUI and show plain log output instead.
Use --verbose to enable debug logging (shown alongside TUI or in quiet mode).`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	syncCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "preview changes without writing the deck")
	syncCmd.Flags().BoolVarP(&force, "force", "f", false, "sync even if inputs are unchanged")
	syncCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	syncCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "disable TUI, use plain log output")
}

func runSync(cmd *cobra.Command, args []string) error {
	// Use TUI by default if stdout is a TTY and quiet mode is not enabled
	useTUI := !quiet && term.IsTerminal(int(os.Stdout.Fd()))

	// Set up logging - suppress in TUI mode unless verbose
	var logOutput io.Writer = os.Stderr
	if useTUI && !verbose {
		logOutput = io.Discard
	}
	logger := setupLogger(logOutput, verbose)

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	logger.Info("loading configuration", "path", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if dryRun {
		logger.Info("dry-run mode enabled, the deck will not be written")
	}

	state, err := sync.LoadState(cfg.State.File)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	fp, err := fingerprint(cfg)
	if err != nil {
		return err
	}

	if force {
		logger.Info("force mode enabled, ignoring state")
		state.Reset()
	} else if state.Unchanged(fp) && sameFile(cfg.Deck.Path, cfg.Deck.OutputPath()) {
		logger.Info("spreadsheet, deck and settings unchanged since last sync, nothing to do",
			"last_sync", state.LastSync)
		return nil
	}

	records, err := loadRecords(cfg, logger)
	if err != nil {
		return err
	}

	doc, err := deck.Open(cfg.Deck.Path)
	if err != nil {
		return fmt.Errorf("opening deck: %w", err)
	}
	logger.Info("opened deck", "path", cfg.Deck.Path, "slides", len(doc.Slides()))

	w := writer.New(cfg.Deck.OutputPath(), dryRun, logger)

	var tuiRunner *tui.Runner
	if useTUI {
		tuiRunner = tui.NewRunner()
		if err := tuiRunner.Start(); err != nil {
			return fmt.Errorf("starting TUI: %w", err)
		}
		for _, rec := range keyedRecords(records) {
			tuiRunner.AddRecord(rec.Row, rec.Tool)
		}
	}

	syncer := sync.NewSyncer(doc, logger,
		sync.WithOptions(syncOptions(cfg)),
		sync.WithPersister(w),
		sync.WithOnRecord(func(ev sync.RecordEvent) {
			if tuiRunner != nil {
				tuiRunner.SetStatus(ev.Record.Row, recordStatus(ev.Outcome), ev.Changes, ev.Slide)
			}
		}),
	)

	result, syncErr := runSyncer(ctx, syncer, records)

	if syncErr == nil && !dryRun {
		if err := recordRun(cfg, state, result, fp); err != nil {
			logger.Error("failed to save state", "error", err)
			syncErr = err
		} else {
			logger.Info("saved sync state", "path", cfg.State.File)
		}
	}

	// Signal completion to TUI
	if tuiRunner != nil {
		tuiRunner.Done(syncErr)
		tuiRunner.Wait()
	}

	return syncErr
}

func runSyncer(ctx context.Context, syncer *sync.Syncer, records []dataset.Record) (*sync.Result, error) {
	result, err := syncer.Run(ctx, records)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return result, fmt.Errorf("sync canceled, deck not saved: %w", err)
		}
		return result, fmt.Errorf("sync failed: %w", err)
	}
	return result, nil
}

// loadRecords reads the spreadsheet and applies the configured filter.
func loadRecords(cfg *config.Config, logger *slog.Logger) ([]dataset.Record, error) {
	records, err := dataset.ReadFile(cfg.Dataset.Path, cfg.Dataset.Sheet)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	logger.Info("read dataset", "path", cfg.Dataset.Path, "records", len(records))

	if cfg.Dataset.Filter == "" {
		return records, nil
	}

	filter, err := dataset.NewFilter(cfg.Dataset.Filter)
	if err != nil {
		return nil, fmt.Errorf("compiling dataset filter: %w", err)
	}
	kept, err := filter.Apply(records)
	if err != nil {
		return nil, fmt.Errorf("filtering dataset: %w", err)
	}
	logger.Info("applied dataset filter", "filter", cfg.Dataset.Filter, "kept", len(kept), "dropped", len(records)-len(kept))
	return kept, nil
}

// runSettings is everything in the config, besides the input files, that
// changes what a run writes.
type runSettings struct {
	Sheet   string       `json:"sheet"`
	Filter  string       `json:"filter"`
	Output  string       `json:"output"`
	Options sync.Options `json:"options"`
}

// fingerprint hashes the spreadsheet, the deck and the effective settings.
func fingerprint(cfg *config.Config) (sync.Fingerprint, error) {
	var fp sync.Fingerprint
	var err error
	if fp.Dataset, err = sync.HashFile(cfg.Dataset.Path); err != nil {
		return fp, fmt.Errorf("reading dataset: %w", err)
	}
	if fp.Deck, err = sync.HashFile(cfg.Deck.Path); err != nil {
		return fp, fmt.Errorf("reading deck: %w", err)
	}
	fp.Settings, err = sync.HashSettings(runSettings{
		Sheet:   cfg.Dataset.Sheet,
		Filter:  cfg.Dataset.Filter,
		Output:  cfg.Deck.OutputPath(),
		Options: syncOptions(cfg),
	})
	if err != nil {
		return fp, err
	}
	return fp, nil
}

// recordRun stores the run with the deck fingerprinted as it is now, so an
// immediate rerun is detected as unchanged.
func recordRun(cfg *config.Config, state *sync.State, result *sync.Result, fp sync.Fingerprint) error {
	deckHash, err := sync.HashFile(cfg.Deck.Path)
	if err != nil {
		return fmt.Errorf("fingerprinting deck: %w", err)
	}
	fp.Deck = deckHash
	state.Record(sync.NewRunRecord(result, cfg.Dataset.Path, cfg.Deck.OutputPath()), fp)
	return state.Save()
}

// keyedRecords returns the records the syncer will report on. Records
// without a tool name are skipped by the syncer without an event.
func keyedRecords(records []dataset.Record) []dataset.Record {
	out := make([]dataset.Record, 0, len(records))
	for _, rec := range records {
		if strings.TrimSpace(rec.Tool) != "" {
			out = append(out, rec)
		}
	}
	return out
}

// syncOptions applies the configured overrides to the built-in options.
func syncOptions(cfg *config.Config) sync.Options {
	opts := sync.DefaultOptions()
	opts.AppendMissing = cfg.Options.ShouldAppendMissing()
	if cfg.Options.MaxBodyRows > 0 {
		opts.MaxBodyRows = cfg.Options.MaxBodyRows
	}

	if cfg.Style.Font != "" {
		opts.HeaderStyle.Font = cfg.Style.Font
		opts.BodyStyle.Font = cfg.Style.Font
	}
	if cfg.Style.Size != nil {
		opts.HeaderStyle.Points = *cfg.Style.Size
		opts.BodyStyle.Points = *cfg.Style.Size
	}
	if cfg.Style.HeaderBold != nil {
		opts.HeaderStyle.Bold = *cfg.Style.HeaderBold
	}
	if cfg.Style.BodyBold != nil {
		opts.BodyStyle.Bold = *cfg.Style.BodyBold
	}
	return opts
}

func recordStatus(o sync.Outcome) tui.RecordStatus {
	switch o {
	case sync.OutcomeUpdated:
		return tui.StatusUpdated
	case sync.OutcomeUnchanged:
		return tui.StatusUnchanged
	case sync.OutcomeAppended:
		return tui.StatusAppended
	case sync.OutcomeUnappended:
		return tui.StatusUnappended
	default:
		return tui.StatusSearching
	}
}

// sameFile reports whether two paths name the same file location.
func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
