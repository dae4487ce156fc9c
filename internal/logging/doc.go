// Package logging builds slog loggers with console and JSON output plus the
// shared attribute helpers used across the oasis services.
package logging
