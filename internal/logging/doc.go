// Package logging assembles structured slog loggers and formatting helpers used
// across tidyfin.
//
// It owns the console and JSON handlers and exposes context-aware helpers so
// identification and organizer code can tag log lines with run IDs, stages,
// and source files. A no-op logger is provided for tests.
package logging
