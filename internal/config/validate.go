package config

import (
	"errors"
	"fmt"
)

// Validate checks invariants that would otherwise surface as confusing
// runtime behavior.
func (c *Config) Validate() error {
	var errs []error

	if c.RefreshInterval < 0 {
		errs = append(errs, fmt.Errorf("refresh_interval must be positive, got %s", c.RefreshInterval))
	}
	if c.MaxBufferSize < 0 {
		errs = append(errs, fmt.Errorf("max_buffer_size must be positive, got %d", c.MaxBufferSize))
	}
	if c.Journal.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("journal.batch_size must be positive, got %d", c.Journal.BatchSize))
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log_level: %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log_format: %q", c.LogFormat))
	}
	switch c.Codec {
	case "", "json", "avro":
	default:
		errs = append(errs, fmt.Errorf("unknown codec: %q", c.Codec))
	}

	return errors.Join(errs...)
}
