// Package config loads leaplineage configuration.
//
// Values are layered with koanf: built-in defaults, then the config file
// (leaplineage.yaml), then LEAPLINEAGE_* environment variables, then
// command-line flags that were explicitly set.
package config

import (
	"github.com/leapstack-labs/leaplineage/internal/analyzer"
	"github.com/leapstack-labs/leaplineage/pkg/dialect"
	"github.com/leapstack-labs/leaplineage/pkg/lineage"
)

// Config holds all CLI configuration options.
type Config struct {
	Dialect       string `koanf:"dialect"`
	DefaultSchema string `koanf:"default_schema"`
	// StoragePrefixes replaces the built-in cloud storage prefixes when set.
	StoragePrefixes []string `koanf:"storage_prefixes"`
	StatePath       string   `koanf:"state_path"`
	Concurrency     int      `koanf:"concurrency"`
	Verbose         bool     `koanf:"verbose"`
	OutputFormat    string   `koanf:"output"`
	HistoryLimit    int      `koanf:"history_limit"`

	// ProjectRoot is the directory holding the config file, or the working
	// directory when there is none.
	ProjectRoot string
}

// Default configuration values.
const (
	DefaultDialect      = "ansi"
	DefaultStateFile    = ".leaplineage/state.db"
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultHistoryLimit = 20
)

// Defaults returns a Config holding only default values.
func Defaults() *Config {
	return &Config{
		Dialect:      DefaultDialect,
		StatePath:    DefaultStateFile,
		OutputFormat: DefaultOutput,
		HistoryLimit: DefaultHistoryLimit,
	}
}

// LineageOptions resolves the configured dialect into extraction options.
func (c *Config) LineageOptions() (lineage.Options, error) {
	d, err := dialect.Lookup(c.Dialect)
	if err != nil {
		return lineage.Options{}, err
	}
	return lineage.Options{
		Dialect:         d,
		DefaultSchema:   c.DefaultSchema,
		StoragePrefixes: c.StoragePrefixes,
	}, nil
}

// AnalyzerOptions returns the options for a batch analyzer.
func (c *Config) AnalyzerOptions() (analyzer.Options, error) {
	opts, err := c.LineageOptions()
	if err != nil {
		return analyzer.Options{}, err
	}
	return analyzer.Options{Lineage: opts, Concurrency: c.Concurrency}, nil
}
