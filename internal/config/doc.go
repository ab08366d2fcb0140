// Package config loads, normalizes, and validates picdup's TOML
// configuration. Values from the file are defaults for the CLI; flags
// always win.
package config
