// Package logging constructs the slog logger the CLI and scanner use.
package logging
