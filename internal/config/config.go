// Package config handles loading and validation of decksync configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override paths from the config file.
const (
	EnvDataset = "DECKSYNC_DATASET"
	EnvDeck    = "DECKSYNC_DECK"
)

// DefaultStateFile is used when state.file is not set.
const DefaultStateFile = ".decksync-state.json"

// DatasetConfig specifies the spreadsheet to read records from.
type DatasetConfig struct {
	Path string `yaml:"path"`

	// Sheet is the worksheet name. Empty means the first sheet.
	Sheet string `yaml:"sheet,omitempty"`

	// Filter is an optional expression; rows for which it is false are
	// not synced.
	Filter string `yaml:"filter,omitempty"`
}

// DeckConfig specifies the presentation to update.
type DeckConfig struct {
	Path string `yaml:"path"`

	// Output is where the updated deck is written. Empty means Path.
	Output string `yaml:"output,omitempty"`
}

// OutputPath returns where the updated deck should be written.
func (d DeckConfig) OutputPath() string {
	if d.Output != "" {
		return d.Output
	}
	return d.Path
}

// StateConfig specifies where sync state is stored.
type StateConfig struct {
	File string `yaml:"file"`
}

// Options contains optional sync behavior settings.
type Options struct {
	// AppendMissing controls whether records not found in the deck are
	// added to the target table. Defaults to true if not specified.
	AppendMissing *bool `yaml:"append_missing"`

	// MaxBodyRows is how many rows below the header a table holds before
	// appends move to a new slide. Zero means the built-in default.
	MaxBodyRows int `yaml:"max_body_rows"`
}

// ShouldAppendMissing returns whether missing records should be appended.
// Defaults to true if not explicitly set.
func (o *Options) ShouldAppendMissing() bool {
	if o.AppendMissing == nil {
		return true
	}
	return *o.AppendMissing
}

// StyleConfig overrides the formatting applied to written cells. Unset
// fields keep the built-in style.
type StyleConfig struct {
	Font       string   `yaml:"font,omitempty"`
	Size       *float64 `yaml:"size,omitempty"`
	HeaderBold *bool    `yaml:"header_bold,omitempty"`
	BodyBold   *bool    `yaml:"body_bold,omitempty"`
}

// Config is the top-level configuration structure.
type Config struct {
	Dataset DatasetConfig `yaml:"dataset"`
	Deck    DeckConfig    `yaml:"deck"`
	Options Options       `yaml:"options"`
	Style   StyleConfig   `yaml:"style"`
	State   StateConfig   `yaml:"state"`
}

// Load reads configuration from a YAML file and environment variables.
// DECKSYNC_DATASET and DECKSYNC_DECK replace the configured paths when set.
// If a .env file exists in the current directory, it will be loaded first.
func Load(path string) (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()
	if cfg.State.File == "" {
		cfg.State.File = DefaultStateFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDataset); v != "" {
		c.Dataset.Path = v
	}
	if v := os.Getenv(EnvDeck); v != "" {
		c.Deck.Path = v
	}
}

// Validate checks that the configuration has all required fields.
func (c *Config) Validate() error {
	var errs []error

	if c.Dataset.Path == "" {
		errs = append(errs, fmt.Errorf("dataset.path is required (or set %s)", EnvDataset))
	}

	if c.Deck.Path == "" {
		errs = append(errs, fmt.Errorf("deck.path is required (or set %s)", EnvDeck))
	}

	if c.Options.MaxBodyRows < 0 {
		errs = append(errs, fmt.Errorf("options.max_body_rows must be at least 1, got %d", c.Options.MaxBodyRows))
	}

	if c.Style.Size != nil && *c.Style.Size <= 0 {
		errs = append(errs, fmt.Errorf("style.size must be positive, got %g", *c.Style.Size))
	}

	if c.State.File == "" {
		errs = append(errs, errors.New("state.file is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
