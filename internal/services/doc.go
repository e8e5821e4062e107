// Package services defines shared utilities consumed by the organizer, the undo
// engine, and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs and operation names for logging.
//   - Structured error markers plus the Wrap helper that keep failure messages
//     uniform (marker, stage, operation, message, cause) so callers can classify
//     them with errors.Is.
//
// Use these helpers when wiring new operations so error handling and
// observability stay consistent across organize and undo runs.
package services
