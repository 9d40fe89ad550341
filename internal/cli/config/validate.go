package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaplineage/internal/cli/output"
	"github.com/leapstack-labs/leaplineage/pkg/dialect"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if _, err := dialect.Lookup(c.Dialect); err != nil {
		errs = append(errs, fmt.Errorf("dialect: %w\nHint: set dialect in leaplineage.yaml or use --dialect", err))
	}
	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		errs = append(errs, fmt.Errorf("output: %w", err))
	}
	if c.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency))
	}
	for _, p := range c.StoragePrefixes {
		if !strings.HasSuffix(p, "://") || len(p) <= len("://") {
			errs = append(errs, fmt.Errorf("storage prefix %q must look like scheme://", p))
		}
	}
	if c.StatePath == "" {
		errs = append(errs, errors.New("state_path is required"))
	}

	return errors.Join(errs...)
}
