package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeScan(); err != nil {
		return err
	}
	if err := c.normalizeCache(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeScan() error {
	c.Scan.Hash = strings.ToLower(strings.TrimSpace(c.Scan.Hash))
	if c.Scan.Hash == "" {
		c.Scan.Hash = defaultHash
	}
	return nil
}

func (c *Config) normalizeCache() error {
	// PICDUP_CACHE_DIR wins over the file, mirroring XDG-style setups
	// where the cache lives on different storage per machine.
	if env := strings.TrimSpace(os.Getenv("PICDUP_CACHE_DIR")); env != "" {
		c.Cache.Dir = env
	}
	if strings.TrimSpace(c.Cache.Dir) == "" {
		c.Cache.Dir = defaultCacheDir
	}
	var err error
	if c.Cache.Dir, err = expandPath(c.Cache.Dir); err != nil {
		return fmt.Errorf("cache.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.LogDir) == "" {
		c.Logging.LogDir = ""
		return nil
	}
	var err error
	if c.Logging.LogDir, err = expandPath(c.Logging.LogDir); err != nil {
		return fmt.Errorf("logging.log_dir: %w", err)
	}
	return nil
}
