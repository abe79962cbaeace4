package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/natikgadzhi/decksync/internal/config"
)

func TestCheckOutputPath(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(t *testing.T) string
		wantPassed bool
	}{
		{
			name: "writable directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "deck.pptx")
			},
			wantPassed: true,
		},
		{
			name: "nonexistent directory",
			setup: func(t *testing.T) string {
				return "/nonexistent/path/to/deck.pptx"
			},
			wantPassed: false,
		},
		{
			name: "parent is a file",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				filePath := filepath.Join(dir, "file.txt")
				if err := os.WriteFile(filePath, []byte("test"), 0o644); err != nil {
					t.Fatalf("creating test file: %v", err)
				}
				return filepath.Join(filePath, "deck.pptx")
			},
			wantPassed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			passed, _ := checkOutputPath(path)
			if passed != tt.wantPassed {
				t.Errorf("checkOutputPath() passed = %v, want %v", passed, tt.wantPassed)
			}
		})
	}
}

func TestCheckStatePath(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(t *testing.T) string
		wantPassed bool
	}{
		{
			name: "current directory",
			setup: func(t *testing.T) string {
				return "state.json"
			},
			wantPassed: true,
		},
		{
			name: "existing directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "state.json")
			},
			wantPassed: true,
		},
		{
			name: "creatable directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "nested", "state.json")
			},
			wantPassed: true,
		},
		{
			name: "parent is a file",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				filePath := filepath.Join(dir, "file.txt")
				if err := os.WriteFile(filePath, []byte("test"), 0o644); err != nil {
					t.Fatalf("creating test file: %v", err)
				}
				return filepath.Join(filePath, "state.json")
			},
			wantPassed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			passed, _ := checkStatePath(path)
			if passed != tt.wantPassed {
				t.Errorf("checkStatePath() passed = %v, want %v", passed, tt.wantPassed)
			}
		})
	}
}

func TestCheckDeck(t *testing.T) {
	dir := t.TempDir()

	withTable := writeDeck(t, dir, [][]string{toolHeader})
	results := checkDeck(withTable)
	if len(results) != 2 || !results[0].Passed || !results[1].Passed {
		t.Errorf("expected deck checks to pass, got %+v", results)
	}
	if !strings.Contains(results[1].Message, "slide(s) 1") {
		t.Errorf("unexpected message %q", results[1].Message)
	}

	withoutTable := writeDeck(t, t.TempDir(), [][]string{{"Name", "Value"}})
	results = checkDeck(withoutTable)
	if len(results) != 2 || results[1].Passed {
		t.Errorf("expected missing table check to fail, got %+v", results)
	}

	results = checkDeck(filepath.Join(dir, "missing.pptx"))
	if len(results) != 1 || results[0].Passed {
		t.Errorf("expected unreadable deck to fail, got %+v", results)
	}
}

func TestCheckDataset(t *testing.T) {
	dir := t.TempDir()
	trackerPath := writeTracker(t, dir, [][]any{
		{"Tool", "Service\nUse Case", "Requestor", "Status"},
		{"Alpha", "Drafting", "Ann", "Approved"},
		{"Beta", "Search", "Bob", "Withdrawn"},
	})

	cfg := &config.Config{Dataset: config.DatasetConfig{Path: trackerPath, Filter: `Status != "Withdrawn"`}}
	results := checkDataset(cfg)
	if len(results) != 2 || !results[0].Passed || !results[1].Passed {
		t.Fatalf("expected dataset checks to pass, got %+v", results)
	}
	if results[1].Message != "keeps 1 of 2 record(s)" {
		t.Errorf("unexpected filter message %q", results[1].Message)
	}

	cfg.Dataset.Filter = "Status +"
	results = checkDataset(cfg)
	if len(results) != 2 || results[1].Passed {
		t.Errorf("expected invalid filter to fail, got %+v", results)
	}

	missing := writeTracker(t, t.TempDir(), [][]any{{"Tool", "Status"}})
	results = checkDataset(&config.Config{Dataset: config.DatasetConfig{Path: missing}})
	if len(results) != 1 || results[0].Passed || results[0].Check != "Spreadsheet columns present" {
		t.Errorf("expected missing columns to fail, got %+v", results)
	}
}

func executeValidate(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"validate"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestValidateCmd_MissingConfigFile(t *testing.T) {
	isolateEnv(t)

	_, err := executeValidate(t, "--config", "/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidateCmd_InvalidConfig(t *testing.T) {
	isolateEnv(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	// Invalid config - missing deck path
	if err := os.WriteFile(configPath, []byte("dataset:\n  path: tracker.xlsx\n"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	out, err := executeValidate(t, "--config", configPath)
	if err == nil {
		t.Error("expected error for invalid config")
	}
	if !strings.Contains(out, "[FAIL] Config file valid") {
		t.Errorf("expected config failure in output:\n%s", out)
	}
}

func TestValidateCmd_AllChecksPass(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	trackerPath := writeTracker(t, dir, [][]any{
		{"Tool", "Service\nUse Case", "Requestor", "Status"},
		{"Alpha", "Drafting", "Ann", "Approved"},
	})
	deckPath := writeDeck(t, dir, [][]string{toolHeader})
	cfgPath := writeConfigFile(t, dir, trackerPath, deckPath, "", "")

	out, err := executeValidate(t, "--config", cfgPath)
	if err != nil {
		t.Fatalf("validate error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "All checks passed!") {
		t.Errorf("expected success message:\n%s", out)
	}
}
