package organizer

import (
	"time"

	"github.com/ItsSleepy/File-Organiser/internal/journal"
)

// Mode selects whether a run mutates the filesystem.
type Mode int

const (
	// ModePreview classifies files without moving anything.
	ModePreview Mode = iota
	// ModeExecute moves files and records a transaction log.
	ModeExecute
)

func (m Mode) String() string {
	if m == ModeExecute {
		return "organize"
	}
	return "preview"
}

// Stats counts files per category name.
type Stats map[string]int

// Total returns the number of files counted across all categories.
func (s Stats) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// FileEntry is one eligible file found directly in the target directory.
type FileEntry struct {
	Name string
	Path string
	Size int64
}

// SkippedFile is a file left in place because an identical copy already sits
// at its destination.
type SkippedFile struct {
	Name     string
	Category string
	Existing string
}

// FileFailure is a per-file error that did not stop the batch.
type FileFailure struct {
	Name      string
	Operation string
	Err       error
}

func (f FileFailure) Error() string {
	return f.Name + ": " + f.Operation + ": " + f.Err.Error()
}

func (f FileFailure) Unwrap() error {
	return f.Err
}

// Result summarizes one run.
type Result struct {
	RunID      string
	Mode       Mode
	Target     string
	StartedAt  time.Time
	FinishedAt time.Time
	Stats      Stats
	Records    []journal.MoveRecord
	Skipped    []SkippedFile
	Failures   []FileFailure
	LogPath    string
	Cancelled  bool
}

// PreviewFile is one file in a preview group.
type PreviewFile struct {
	Name string
	Size int64
}

// PreviewGroup lists the files that would land in one category.
type PreviewGroup struct {
	Category    string
	Description string
	Files       []PreviewFile
	Bytes       int64
}

// Preview is the classification of every eligible file, grouped by category
// in table order. Empty categories are omitted.
type Preview struct {
	Target string
	Groups []PreviewGroup
	Total  int
	Bytes  int64
}
