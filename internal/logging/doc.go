// Package logging assembles structured slog loggers and formatting helpers used
// across vidsteg.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code automatically tags log
// lines with request identifiers and orchestrator steps. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
