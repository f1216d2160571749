// Package logging assembles structured slog loggers and formatting helpers used
// across tidyup commands.
//
// It owns the configurable console/JSON handlers, tees every record into the
// append-only text log, and exposes context-aware helpers so organize, undo
// and scan code automatically tag log lines with the run identifier and the
// operation name. The package also provides a no-op logger for tests and
// wiring code that cannot fail.
//
// Loggers are explicit values: the caller opens one at startup, hands it to
// each component, and closes it on shutdown.
package logging
