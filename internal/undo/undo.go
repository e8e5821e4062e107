// Package undo reverses a persisted transaction log.
//
// The engine selects the newest unconsumed log (or an explicit one), loads it
// completely before touching anything, and replays its moves in reverse order.
// A recorded file that has since disappeared is a warning, not a failure. Once
// every record has been visited the log is renamed with an .undone suffix so
// it can never be applied twice.
package undo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ItsSleepy/File-Organiser/internal/category"
	"github.com/ItsSleepy/File-Organiser/internal/fileutil"
	"github.com/ItsSleepy/File-Organiser/internal/history"
	"github.com/ItsSleepy/File-Organiser/internal/journal"
	"github.com/ItsSleepy/File-Organiser/internal/logging"
	"github.com/ItsSleepy/File-Organiser/internal/runlock"
	"github.com/ItsSleepy/File-Organiser/internal/services"
)

const stageName = "undo"

// Selector chooses which log to undo. The zero value means the latest one.
type Selector struct {
	Path string
}

// Latest selects the newest unconsumed log.
var Latest = Selector{}

// Explicit selects a specific log file.
func Explicit(path string) Selector {
	return Selector{Path: path}
}

// RecordFailure is a record that could not be reversed.
type RecordFailure struct {
	Record journal.MoveRecord
	Err    error
}

func (f RecordFailure) Error() string {
	return filepath.Base(f.Record.Destination) + ": " + f.Err.Error()
}

func (f RecordFailure) Unwrap() error {
	return f.Err
}

// Result summarizes one undo.
type Result struct {
	RunID        string
	LogPath      string
	ConsumedPath string
	Restored     []journal.MoveRecord
	Missing      []journal.MoveRecord
	Failed       []RecordFailure
	Pruned       []string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithHistory marks undone runs and records the undo in the history store.
func WithHistory(store *history.Store) Option {
	return func(e *Engine) {
		e.history = store
	}
}

// WithPruneEmpty removes category folders left empty after restoring.
func WithPruneEmpty(table *category.Table) Option {
	return func(e *Engine) {
		e.pruneTable = table
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine reverses transaction logs for one target directory.
type Engine struct {
	target     string
	journal    *journal.Store
	logger     *slog.Logger
	history    *history.Store
	pruneTable *category.Table
	now        func() time.Time
}

// New builds an engine for the logs folder of target.
func New(target, logsDir string, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		target:  target,
		journal: journal.NewStore(logsDir),
		logger:  logging.NewComponentLogger(logger, stageName),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Undo reverses the selected log. It returns an error only when the batch
// cannot be established (no log, unreadable log, lock contention) or when the
// log cannot be marked consumed; per-record problems are reported in Result.
func (e *Engine) Undo(ctx context.Context, sel Selector) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	runID, ok := services.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = services.WithRunID(ctx, runID)
	}
	ctx = services.WithOperation(ctx, stageName)
	logger := logging.WithContext(ctx, e.logger)
	result := &Result{RunID: runID, StartedAt: e.now()}

	logPath, err := e.selectLog(sel)
	if err != nil {
		return result, err
	}
	result.LogPath = logPath

	records, err := journal.Load(logPath)
	if err != nil {
		return result, err
	}

	lock, err := runlock.Acquire(e.journal.Dir())
	if err != nil {
		return result, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Debug("run lock release failed", logging.Error(err))
		}
	}()

	logger.Info("undo started",
		logging.String("transaction_log", filepath.Base(logPath)),
		logging.Int("records", len(records)),
		logging.String(logging.FieldEventType, "undo_started"),
	)

	for i := len(records) - 1; i >= 0; i-- {
		e.reverse(logger, records[i], result)
	}

	if e.pruneTable != nil {
		result.Pruned = e.pruneEmpty(logger, records)
	}

	consumed, err := e.journal.MarkConsumed(logPath)
	if err != nil {
		logging.ErrorWithContext(logger, "transaction log not marked undone", "undo_mark_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "rename the log by hand before running undo again"),
		)
		result.FinishedAt = e.now()
		return result, fmt.Errorf("mark log consumed: %w", err)
	}
	result.ConsumedPath = consumed
	result.FinishedAt = e.now()

	e.recordHistory(ctx, logger, result)

	logger.Info("undo finished",
		logging.Int("restored", len(result.Restored)),
		logging.Int("missing", len(result.Missing)),
		logging.Int("failed", len(result.Failed)),
		logging.String(logging.FieldEventType, "undo_finished"),
	)
	return result, nil
}

func (e *Engine) selectLog(sel Selector) (string, error) {
	if strings.TrimSpace(sel.Path) == "" {
		entry, err := e.journal.Latest()
		if err != nil {
			return "", err
		}
		return entry.Path, nil
	}
	path := sel.Path
	if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			path = filepath.Join(e.journal.Dir(), path)
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if strings.HasSuffix(path, journal.ConsumedSuffix) {
		return "", services.Wrap(services.ErrLogNotFound, stageName, "select log",
			filepath.Base(path)+" has already been undone", nil)
	}
	if _, err := os.Stat(path); err != nil {
		return "", services.Wrap(services.ErrLogNotFound, stageName, "select log", path, err)
	}
	return path, nil
}

func (e *Engine) reverse(logger *slog.Logger, record journal.MoveRecord, result *Result) {
	name := filepath.Base(record.Destination)
	if !fileutil.Exists(record.Destination) {
		result.Missing = append(result.Missing, record)
		logging.WarnWithContext(logger, "recorded file no longer exists; skipping", "undo_record_missing",
			logging.File(name),
			logging.String("destination", record.Destination),
			logging.Error(services.Wrap(services.ErrRecordMissing, stageName, "restore", name, nil)),
			logging.String(logging.FieldImpact, "this file cannot be restored"),
			logging.String(logging.FieldErrorHint, "the file was moved or deleted after organizing"),
		)
		return
	}

	if err := os.MkdirAll(filepath.Dir(record.Source), 0o755); err != nil {
		e.fail(logger, result, record, "recreate source folder", err)
		return
	}
	if err := fileutil.MoveFile(record.Destination, record.Source); err != nil {
		e.fail(logger, result, record, "move back", err)
		return
	}
	result.Restored = append(result.Restored, record)
	logger.Info("restored file",
		logging.File(record.Source),
		logging.String("from", record.Destination),
		logging.String(logging.FieldEventType, "file_restored"),
	)
}

func (e *Engine) fail(logger *slog.Logger, result *Result, record journal.MoveRecord, operation string, err error) {
	wrapped := services.Wrap(services.ErrPerFileIO, stageName, operation, filepath.Base(record.Destination), err)
	result.Failed = append(result.Failed, RecordFailure{Record: record, Err: wrapped})
	hint := "check permissions on the original folder"
	if errors.Is(err, fileutil.ErrDestinationExists) {
		hint = "a file now exists at the original path; move it aside and restore by hand"
	}
	logging.WarnWithContext(logger, "file not restored; left in category folder", "undo_restore_failed",
		logging.File(record.Destination),
		logging.String("step", operation),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hint),
		logging.String(logging.FieldImpact, "file stays at "+record.Destination),
	)
}

// pruneEmpty removes category folders touched by the log that are now empty.
func (e *Engine) pruneEmpty(logger *slog.Logger, records []journal.MoveRecord) []string {
	seen := map[string]struct{}{}
	var pruned []string
	for _, r := range records {
		dir := filepath.Dir(r.Destination)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		if _, known := e.pruneTable.Lookup(filepath.Base(dir)); !known {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Debug("empty category folder not removed", logging.String("folder", dir), logging.Error(err))
			continue
		}
		pruned = append(pruned, dir)
	}
	return pruned
}

func (e *Engine) recordHistory(ctx context.Context, logger *slog.Logger, result *Result) {
	if e.history == nil {
		return
	}
	hctx := context.WithoutCancel(ctx)
	if _, err := e.history.MarkUndone(hctx, result.LogPath, result.FinishedAt); err != nil {
		logging.WarnWithContext(logger, "run history not updated", "history_write_failed", logging.Error(err))
	}
	run := history.Run{
		RunID:      result.RunID,
		Kind:       history.KindUndo,
		Target:     e.target,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Moved:      len(result.Restored),
		Skipped:    len(result.Missing),
		Failed:     len(result.Failed),
		LogPath:    result.ConsumedPath,
	}
	if err := e.history.RecordRun(hctx, run); err != nil {
		logging.WarnWithContext(logger, "run history not recorded", "history_write_failed", logging.Error(err))
	}
}
