// =============================================================================
// Membership Importer - Configuration Module
// =============================================================================
//
// This module loads the importer configuration from a YAML file. Every value
// has a default, so a missing configuration file is not an error: the
// importer runs against a local SQLite database with the stock rotation
// tables.
//
// CONFIGURATION FILE (config.yaml):
//
//   database:
//     driver: sqlite            # sqlite | postgres
//     dsn: mess.db
//   format_version: 2
//   max_lines: 20000
//   log_level: info
//   rotation:
//     epoch: 2009-01-05
//     late_start: "23:59"
//     deadline_jobs: [Recycling, Newsletter]
//     sunday_jobs: [Sunday Cleaning]
//   account_fields:
//     Balance: balance
//     Deposit: ""              # parsed, then discarded
//   transformation_rules:
//     - field: phone #
//       actions:
//         - type: extract_digits
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the importer configuration.
type Config struct {
	// Database selects and locates the persistent record store.
	Database DatabaseConfig `yaml:"database"`

	// FormatVersion selects the fixed column layout of the input workbook.
	// Valid values: 1, 2
	// Default: 2
	FormatVersion int `yaml:"format_version"`

	// MaxLines caps the number of data rows read from the input.
	// Default: 20000
	MaxLines int `yaml:"max_lines"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogMode selects the log encoder: "development" (console) or
	// "production" (JSON).
	// Default: "development"
	LogMode string `yaml:"log_mode"`

	// OutputDir receives the summary report of each committed run.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// ArchiveDir receives the input file after a committed run.
	// Default: "./input_archive"
	ArchiveDir string `yaml:"archive_dir"`

	// ArchiveInput moves the input file to ArchiveDir after a commit.
	// Default: false
	ArchiveInput bool `yaml:"archive_input"`

	// ArchiveByDate files archived inputs under YYYY/MM/DD subdirectories.
	// Default: false
	ArchiveByDate bool `yaml:"archive_by_date"`

	// Rotation configures the work-shift rotation resolver.
	Rotation RotationConfig `yaml:"rotation"`

	// AccountFields maps each account money column header to its
	// destination field on the Account record. An empty destination parses
	// the column and discards the value (logged).
	// Default: every money column is written to its matching field.
	AccountFields map[string]string `yaml:"account_fields"`

	// CSVSettings is used when the input is a CSV export instead of a
	// workbook.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// TransformationRules are raw-text cleanups applied per header before
	// parsing.
	TransformationRules []TransformationRule `yaml:"transformation_rules"`
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`

	// DSN is the data source name passed to the driver.
	DSN string `yaml:"dsn"`
}

// RotationConfig holds the tables used by the shift rotation resolver.
type RotationConfig struct {
	// Epoch is the Monday on which rotation offset zero starts
	// (YYYY-MM-DD).
	Epoch string `yaml:"epoch"`

	// LateStart is the time-of-day (HH:MM) forced onto deadline and
	// Sunday jobs.
	LateStart string `yaml:"late_start"`

	// DeadlineJobs are jobs without a fixed start time.
	DeadlineJobs []string `yaml:"deadline_jobs"`

	// SundayJobs are jobs that always fall on Sunday.
	SundayJobs []string `yaml:"sunday_jobs"`
}

// EpochDate parses Epoch.
func (r RotationConfig) EpochDate() (time.Time, error) {
	return time.Parse("2006-01-02", r.Epoch)
}

// LateStartClock parses LateStart into hours and minutes.
func (r RotationConfig) LateStartClock() (int, int, error) {
	t, err := time.Parse("15:04", r.LateStart)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing CSV exports.
type CSVSettings struct {
	// Delimiter is the character used to separate fields in the CSV.
	// Common values: "," (comma), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRow is the 1-based row number holding the column headers.
	// Default: 1
	HeaderRow int `yaml:"header_row"`

	// Encoding is the character encoding of the CSV file.
	// Supported values: "UTF-8", "UTF-16", "ISO-8859-1", "Windows-1252"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule defines cleanups to apply to a specific column.
type TransformationRule struct {
	// Field is the header name of the column to clean.
	Field string `yaml:"field"`

	// Actions is a list of transformations applied in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is the type of transformation to apply. See package transform
	// for the supported types.
	Type string `yaml:"type"`

	// Value is the parameter for the transformation.
	Value string `yaml:"value"`

	// Find is used for "replace" and "regex_replace".
	Find string `yaml:"find,omitempty"`

	// LookupTable is used for "lookup" and "lookup_with_default".
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load loads the configuration from a YAML file.
//
// PARAMETERS:
//   - path: The path to the configuration file. A missing file yields the
//     defaults.
//
// RETURNS:
//   - A pointer to the Config struct.
//   - An error if the file cannot be parsed or holds invalid values.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Fall through to defaults.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "mess.db"
	}
	if cfg.FormatVersion == 0 {
		cfg.FormatVersion = 2
	}
	if cfg.MaxLines == 0 {
		cfg.MaxLines = 20000
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogMode == "" {
		cfg.LogMode = "development"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.ArchiveDir == "" {
		cfg.ArchiveDir = "./input_archive"
	}

	// Rotation defaults.
	if cfg.Rotation.Epoch == "" {
		cfg.Rotation.Epoch = "2009-01-05"
	}
	if cfg.Rotation.LateStart == "" {
		cfg.Rotation.LateStart = "23:59"
	}
	if cfg.Rotation.DeadlineJobs == nil {
		cfg.Rotation.DeadlineJobs = []string{"Recycling", "Newsletter"}
	}
	if cfg.Rotation.SundayJobs == nil {
		cfg.Rotation.SundayJobs = []string{"Sunday Cleaning"}
	}

	// Money columns are written unless the file says otherwise.
	if cfg.AccountFields == nil {
		cfg.AccountFields = map[string]string{
			"Balance":       "balance",
			"Hours Balance": "hours_balance",
			"Deposit":       "deposit",
		}
	}

	// CSV settings defaults.
	if cfg.CSVSettings.Delimiter == "" {
		cfg.CSVSettings.Delimiter = ","
	}
	if cfg.CSVSettings.HeaderRow == 0 {
		cfg.CSVSettings.HeaderRow = 1
	}
	if cfg.CSVSettings.Encoding == "" {
		cfg.CSVSettings.Encoding = "UTF-8"
	}
}

// Validate checks the configuration for values the importer cannot use.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.FormatVersion != 1 && c.FormatVersion != 2 {
		return fmt.Errorf("unsupported format_version %d", c.FormatVersion)
	}

	if c.MaxLines < 0 {
		return fmt.Errorf("max_lines must not be negative")
	}

	if _, err := c.Rotation.EpochDate(); err != nil {
		return fmt.Errorf("rotation.epoch: %w", err)
	}
	if _, _, err := c.Rotation.LateStartClock(); err != nil {
		return fmt.Errorf("rotation.late_start: %w", err)
	}

	for header, dest := range c.AccountFields {
		switch dest {
		case "", "balance", "hours_balance", "deposit", "note":
		default:
			return fmt.Errorf("account_fields[%s]: unknown destination %q", header, dest)
		}
	}

	if c.CSVSettings.HeaderRow < 1 {
		return fmt.Errorf("csv_settings.header_row must be at least 1")
	}

	return nil
}
