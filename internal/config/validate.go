package config

import (
	"errors"
	"fmt"

	"picdup/internal/imghash"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateScan() error {
	if _, err := imghash.ParseAlgorithm(c.Scan.Hash); err != nil {
		return fmt.Errorf("scan.hash: %w", err)
	}
	if c.Scan.HammingDistance < 0 {
		return errors.New("scan.hamming_distance must be non-negative")
	}
	if c.Scan.Workers < 0 {
		return errors.New("scan.workers must be zero (auto) or positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Enabled && c.Cache.Dir == "" {
		return errors.New("cache.dir must be set when the cache is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
