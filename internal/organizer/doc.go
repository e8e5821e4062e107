// Package organizer plans and executes the move of a directory's loose files
// into category folders.
//
// An Organizer is built once per run with its configuration, category table,
// logger and target directory. Run enumerates the target's direct regular
// files in name order, classifies each one, and in execute mode resolves a
// collision-free destination and moves it, appending every successful move to
// an in-memory transaction log. The log is persisted once after the loop so an
// interrupted run never leaves a half-written log behind. Per-file failures
// are collected in the Result and never abort the batch; a bad target
// directory aborts before any side effect.
//
// Preview mode performs the same classification without touching the
// filesystem.
package organizer
