package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return configPath
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvDataset, "")
	t.Setenv(EnvDeck, "")
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	configPath := writeConfig(t, `
dataset:
  path: "/data/tracker.xlsx"
  sheet: "Procurement AI tracker"
  filter: 'Status != "Withdrawn"'
deck:
  path: "/data/deck.pptx"
  output: "/data/deck-updated.pptx"
options:
  append_missing: true
  max_body_rows: 6
style:
  font: "Arial"
  size: 10.5
  header_bold: false
state:
  file: "/data/state.json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Dataset.Path != "/data/tracker.xlsx" {
		t.Errorf("expected dataset path '/data/tracker.xlsx', got %q", cfg.Dataset.Path)
	}

	if cfg.Dataset.Sheet != "Procurement AI tracker" {
		t.Errorf("expected sheet 'Procurement AI tracker', got %q", cfg.Dataset.Sheet)
	}

	if cfg.Dataset.Filter != `Status != "Withdrawn"` {
		t.Errorf("unexpected filter %q", cfg.Dataset.Filter)
	}

	if cfg.Deck.OutputPath() != "/data/deck-updated.pptx" {
		t.Errorf("expected output '/data/deck-updated.pptx', got %q", cfg.Deck.OutputPath())
	}

	if cfg.Options.MaxBodyRows != 6 {
		t.Errorf("expected max_body_rows 6, got %d", cfg.Options.MaxBodyRows)
	}

	if !cfg.Options.ShouldAppendMissing() {
		t.Error("expected append_missing to be true")
	}

	if cfg.Style.Font != "Arial" {
		t.Errorf("expected font 'Arial', got %q", cfg.Style.Font)
	}

	if cfg.Style.Size == nil || *cfg.Style.Size != 10.5 {
		t.Errorf("expected size 10.5, got %v", cfg.Style.Size)
	}

	if cfg.Style.HeaderBold == nil || *cfg.Style.HeaderBold {
		t.Error("expected header_bold to be false")
	}

	if cfg.Style.BodyBold != nil {
		t.Error("expected body_bold to be unset")
	}

	if cfg.State.File != "/data/state.json" {
		t.Errorf("expected state file '/data/state.json', got %q", cfg.State.File)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	configPath := writeConfig(t, `
dataset:
  path: "tracker.xlsx"
deck:
  path: "deck.pptx"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Deck.OutputPath() != "deck.pptx" {
		t.Errorf("expected output to default to deck path, got %q", cfg.Deck.OutputPath())
	}

	if cfg.State.File != DefaultStateFile {
		t.Errorf("expected state file %q, got %q", DefaultStateFile, cfg.State.File)
	}

	if cfg.Options.MaxBodyRows != 0 {
		t.Errorf("expected max_body_rows to be unset, got %d", cfg.Options.MaxBodyRows)
	}

	// Should default to true when not specified
	if !cfg.Options.ShouldAppendMissing() {
		t.Error("expected ShouldAppendMissing() to default to true when not specified")
	}

	// The underlying pointer should be nil
	if cfg.Options.AppendMissing != nil {
		t.Error("expected AppendMissing to be nil when not specified")
	}
}

func TestLoad_AppendMissingExplicitFalse(t *testing.T) {
	clearEnv(t)
	configPath := writeConfig(t, `
dataset:
  path: "tracker.xlsx"
deck:
  path: "deck.pptx"
options:
  append_missing: false
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Options.ShouldAppendMissing() {
		t.Error("expected ShouldAppendMissing() to be false when explicitly set to false")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvDataset, "/env/tracker.xlsx")
	t.Setenv(EnvDeck, "/env/deck.pptx")

	configPath := writeConfig(t, `
dataset:
  path: "tracker.xlsx"
deck:
  path: "deck.pptx"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Dataset.Path != "/env/tracker.xlsx" {
		t.Errorf("expected dataset path from env, got %q", cfg.Dataset.Path)
	}

	if cfg.Deck.Path != "/env/deck.pptx" {
		t.Errorf("expected deck path from env, got %q", cfg.Deck.Path)
	}
}

func TestLoad_EnvSuppliesMissingPaths(t *testing.T) {
	t.Setenv(EnvDataset, "/env/tracker.xlsx")
	t.Setenv(EnvDeck, "/env/deck.pptx")

	configPath := writeConfig(t, `
options:
  max_body_rows: 4
`)

	if _, err := Load(configPath); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr []string
	}{
		{
			name:    "missing paths",
			content: "options:\n  append_missing: true\n",
			wantErr: []string{"dataset.path is required", "deck.path is required"},
		},
		{
			name:    "negative max body rows",
			content: "dataset:\n  path: a.xlsx\ndeck:\n  path: b.pptx\noptions:\n  max_body_rows: -1\n",
			wantErr: []string{"options.max_body_rows"},
		},
		{
			name:    "zero font size",
			content: "dataset:\n  path: a.xlsx\ndeck:\n  path: b.pptx\nstyle:\n  size: 0\n",
			wantErr: []string{"style.size"},
		},
		{
			name:    "malformed yaml",
			content: "dataset: [\n",
			wantErr: []string{"parsing config file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			configPath := writeConfig(t, tt.content)

			_, err := Load(configPath)
			if err == nil {
				t.Fatal("expected error")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("expected error to contain %q, got %q", want, err.Error())
				}
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	clearEnv(t)

	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}
