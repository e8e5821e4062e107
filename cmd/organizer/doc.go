// Package main hosts the organizer CLI entrypoint and command graph.
//
// The Cobra command tree sorts the top level of a folder into category
// subfolders, previews what would move, reverses the last run from its
// transaction log, and lists past runs. Configuration, logging, the per-run log
// file, and the history database are wired once per invocation in
// commandContext so each command only renders results.
//
// Running without a folder argument and without flags from a terminal opens
// the interactive menu.
package main
