// Package fileutil holds the filesystem primitives the organizer builds on:
// byte-for-byte comparison, verified copies, and moves that refuse to replace
// an existing destination.
package fileutil
