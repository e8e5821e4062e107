package logging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

const (
	// RunLogPattern matches the human-readable per-run log files.
	RunLogPattern = "file_organizer_*.log"

	runLogPrefix = "file_organizer_"
	runLogLayout = "20060102_150405"
)

// RunLog is the human-readable log file written for one organize or undo run.
type RunLog struct {
	Path    string
	handler slog.Handler
	file    *os.File
	dropped atomic.Int64
}

// RunLogName returns the file name used for a run started at ts.
func RunLogName(ts time.Time) string {
	return runLogPrefix + ts.Format(runLogLayout) + ".log"
}

// OpenRunLog creates (or appends to) file_organizer_YYYYMMDD_HHMMSS.log in
// logsDir. Records always use the console layout without source locations so
// the file reads the same regardless of the terminal format.
func OpenRunLog(logsDir string, ts time.Time, level slog.Leveler) (*RunLog, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure logs directory: %w", err)
	}
	path := filepath.Join(logsDir, RunLogName(ts))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	return &RunLog{
		Path:    path,
		handler: newPrettyHandler(file, level, false),
		file:    file,
	}, nil
}

// Handler returns the slog handler that writes into the run log.
func (r *RunLog) Handler() slog.Handler {
	if r == nil {
		return nil
	}
	return r.handler
}

// Attach returns base teed into the run log.
func (r *RunLog) Attach(base *slog.Logger) *slog.Logger {
	if r == nil {
		return base
	}
	var primary slog.Handler
	if base != nil {
		primary = base.Handler()
	}
	return slog.New(newTeeHandler(primary, &r.dropped, r.handler))
}

// Close closes the run log file. It reports records that could not be
// written while the run was in progress.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	if n := r.dropped.Load(); n > 0 {
		err = errors.Join(err, fmt.Errorf("run log %s: %d record(s) not written", filepath.Base(r.Path), n))
	}
	return err
}
