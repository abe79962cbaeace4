package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/natikgadzhi/decksync/internal/config"
	"github.com/natikgadzhi/decksync/internal/dataset"
	"github.com/natikgadzhi/decksync/internal/deck"
	"github.com/natikgadzhi/decksync/internal/sync"
	"github.com/spf13/cobra"
)

var (
	validateConfigPath string
	validateVerbose    bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration, spreadsheet and deck",
	Long: `Validate checks that the configuration file is valid and that
decksync can read the spreadsheet and the deck it names.

This command performs the following checks:
1. Config file exists and is valid YAML
2. All required config fields are present
3. Spreadsheet is readable and has the required columns
4. Dataset filter compiles (if set)
5. Deck is readable
6. Deck has at least one table with the required columns
7. Output directory exists and is writable
8. State file directory exists or can be created`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfigPath, "config", "c", "config.yaml", "path to config file")
	validateCmd.Flags().BoolVarP(&validateVerbose, "verbose", "v", false, "enable verbose logging")
}

// ValidationResult holds the result of a single validation check.
type ValidationResult struct {
	Check   string
	Passed  bool
	Message string
}

var errValidationFailed = errors.New("validation failed")

// runValidate performs all validation checks and reports results.
func runValidate(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd.ErrOrStderr(), validateVerbose)

	var results []ValidationResult
	var hasErrors bool
	add := func(r ValidationResult) {
		results = append(results, r)
		if !r.Passed {
			hasErrors = true
		}
	}

	// Check 1: Config file exists
	logger.Debug("checking config file", "path", validateConfigPath)
	if _, err := os.Stat(validateConfigPath); err != nil {
		add(ValidationResult{
			Check:   "Config file exists",
			Message: fmt.Sprintf("cannot access config file: %v", err),
		})
		printResults(cmd.OutOrStdout(), results)
		return errValidationFailed
	}
	add(ValidationResult{Check: "Config file exists", Passed: true})

	// Check 2: Config file is valid and complete
	logger.Debug("loading configuration")
	cfg, err := config.Load(validateConfigPath)
	if err != nil {
		add(ValidationResult{Check: "Config file valid", Message: err.Error()})
		printResults(cmd.OutOrStdout(), results)
		return errValidationFailed
	}
	add(ValidationResult{Check: "Config file valid", Passed: true})

	// Checks 3 and 4: spreadsheet and filter
	logger.Debug("reading spreadsheet", "path", cfg.Dataset.Path, "sheet", cfg.Dataset.Sheet)
	for _, r := range checkDataset(cfg) {
		add(r)
	}

	// Checks 5 and 6: deck and its tables
	logger.Debug("reading deck", "path", cfg.Deck.Path)
	for _, r := range checkDeck(cfg.Deck.Path) {
		add(r)
	}

	// Check 7: output directory is writable
	logger.Debug("checking output path", "path", cfg.Deck.OutputPath())
	passed, msg := checkOutputPath(cfg.Deck.OutputPath())
	add(ValidationResult{Check: "Output path writable", Passed: passed, Message: msg})

	// Check 8: State file directory exists or can be created
	logger.Debug("checking state file path", "path", cfg.State.File)
	passed, msg = checkStatePath(cfg.State.File)
	add(ValidationResult{Check: "State file path valid", Passed: passed, Message: msg})

	printResults(cmd.OutOrStdout(), results)

	if hasErrors {
		return errValidationFailed
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nAll checks passed!")
	return nil
}

// checkDataset reads the spreadsheet and compiles the filter.
func checkDataset(cfg *config.Config) []ValidationResult {
	records, err := dataset.ReadFile(cfg.Dataset.Path, cfg.Dataset.Sheet)
	if err != nil {
		var missing *dataset.MissingColumnsError
		check := "Spreadsheet readable"
		if errors.As(err, &missing) {
			check = "Spreadsheet columns present"
		}
		return []ValidationResult{{Check: check, Message: err.Error()}}
	}

	results := []ValidationResult{{
		Check:   "Spreadsheet readable",
		Passed:  true,
		Message: fmt.Sprintf("%d record(s)", len(records)),
	}}

	if cfg.Dataset.Filter == "" {
		return results
	}

	filter, err := dataset.NewFilter(cfg.Dataset.Filter)
	if err != nil {
		return append(results, ValidationResult{Check: "Dataset filter valid", Message: err.Error()})
	}
	kept, err := filter.Apply(records)
	if err != nil {
		return append(results, ValidationResult{Check: "Dataset filter valid", Message: err.Error()})
	}
	return append(results, ValidationResult{
		Check:   "Dataset filter valid",
		Passed:  true,
		Message: fmt.Sprintf("keeps %d of %d record(s)", len(kept), len(records)),
	})
}

// checkDeck opens the deck and looks for tables to sync.
func checkDeck(path string) []ValidationResult {
	doc, err := deck.Open(path)
	if err != nil {
		return []ValidationResult{{Check: "Deck readable", Message: err.Error()}}
	}

	results := []ValidationResult{{
		Check:   "Deck readable",
		Passed:  true,
		Message: fmt.Sprintf("%d slide(s)", len(doc.Slides())),
	}}

	tables := sync.FindTables(doc)
	if len(tables) == 0 {
		return append(results, ValidationResult{
			Check:   "Deck has tool tables",
			Message: "no table has the columns " + strings.Join(sync.RequiredColumns, ", "),
		})
	}

	slides := make([]string, 0, len(tables))
	for _, t := range tables {
		slides = append(slides, fmt.Sprint(t.Slide))
	}
	return append(results, ValidationResult{
		Check:   "Deck has tool tables",
		Passed:  true,
		Message: fmt.Sprintf("%d table(s) on slide(s) %s", len(tables), strings.Join(slides, ", ")),
	})
}

// checkOutputPath verifies the deck can be written to path's directory.
func checkOutputPath(path string) (bool, string) {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Sprintf("directory does not exist: %s", dir)
		}
		return false, fmt.Sprintf("cannot access: %v", err)
	}

	if !info.IsDir() {
		return false, fmt.Sprintf("not a directory: %s", dir)
	}

	// Check if writable by trying to create a temp file
	f, err := os.CreateTemp(dir, ".decksync_write_test")
	if err != nil {
		return false, fmt.Sprintf("directory not writable: %v", err)
	}
	_ = f.Close()
	_ = os.Remove(f.Name())

	return true, ""
}

// checkStatePath verifies the state file directory exists or can be created.
func checkStatePath(path string) (bool, string) {
	dir := filepath.Dir(path)

	// If dir is "." (current directory), it always exists
	if dir == "." {
		return true, ""
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			// Try to create the directory
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return false, fmt.Sprintf("cannot create directory %s: %v", dir, err)
			}
			return true, fmt.Sprintf("created directory: %s", dir)
		}
		return false, fmt.Sprintf("cannot access directory: %v", err)
	}

	if !info.IsDir() {
		return false, fmt.Sprintf("parent path is not a directory: %s", dir)
	}

	return true, ""
}

// printResults outputs all validation results in a formatted way.
func printResults(w io.Writer, results []ValidationResult) {
	_, _ = fmt.Fprintln(w, "\nValidation Results:")
	_, _ = fmt.Fprintln(w, "-------------------")

	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}

		if r.Message != "" {
			_, _ = fmt.Fprintf(w, "[%s] %s: %s\n", status, r.Check, r.Message)
		} else {
			_, _ = fmt.Fprintf(w, "[%s] %s\n", status, r.Check)
		}
	}
}
