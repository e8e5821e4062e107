// Package journal records the moves of one organize run as a reversible
// transaction log.
//
// A Log is built in memory while the run executes and persisted exactly once,
// atomically, as operations_YYYYMMDD_HHMMSS_NNNNNN.json inside the logs folder.
// NNNNNN is a sequence number that only grows, so "latest" never depends on
// file modification times. A log consumed by undo is renamed with an .undone
// suffix and kept for auditing.
package journal
