// Package logging assembles structured slog loggers and formatting helpers used
// across the organizer.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so engine code can tag log lines
// with the run ID and operation automatically. OpenRunLog creates the
// per-run file log inside the target's logs folder; Attach tees
// terminal output into it. The package also provides a no-op logger for tests
// and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same shape.
package logging
