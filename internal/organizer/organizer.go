package organizer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ItsSleepy/File-Organiser/internal/category"
	"github.com/ItsSleepy/File-Organiser/internal/config"
	"github.com/ItsSleepy/File-Organiser/internal/fileutil"
	"github.com/ItsSleepy/File-Organiser/internal/history"
	"github.com/ItsSleepy/File-Organiser/internal/journal"
	"github.com/ItsSleepy/File-Organiser/internal/logging"
	"github.com/ItsSleepy/File-Organiser/internal/resolver"
	"github.com/ItsSleepy/File-Organiser/internal/runlock"
	"github.com/ItsSleepy/File-Organiser/internal/services"
)

const stageName = "organizer"

// MoveFunc performs one filesystem move without replacing an existing destination.
type MoveFunc func(src, dst string) error

// Option customizes an Organizer.
type Option func(*Organizer)

// WithClock overrides the time source used for records and log names.
func WithClock(now func() time.Time) Option {
	return func(o *Organizer) {
		if now != nil {
			o.now = now
		}
	}
}

// WithHistory records each execute run in the given history store.
func WithHistory(store *history.Store) Option {
	return func(o *Organizer) {
		o.history = store
	}
}

// WithMover replaces the filesystem move (used in tests to inject failures).
func WithMover(move MoveFunc) Option {
	return func(o *Organizer) {
		if move != nil {
			o.move = move
		}
	}
}

// WithExclude adds exact file names that must never be organized.
func WithExclude(names ...string) Option {
	return func(o *Organizer) {
		for _, name := range names {
			if name != "" {
				o.extraExclude[name] = struct{}{}
			}
		}
	}
}

// Organizer owns one organize or preview run over a target directory.
type Organizer struct {
	cfg          *config.Config
	table        *category.Table
	logger       *slog.Logger
	target       string
	journal      *journal.Store
	history      *history.Store
	now          func() time.Time
	move         MoveFunc
	extraExclude map[string]struct{}
}

// New validates target and builds an Organizer. A missing target or one that
// is not a directory yields an error marked services.ErrConfiguration.
func New(target string, cfg *config.Config, table *category.Table, logger *slog.Logger, opts ...Option) (*Organizer, error) {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	if table == nil {
		table = category.Default()
	}
	abs, err := ValidateTarget(target)
	if err != nil {
		return nil, err
	}
	o := &Organizer{
		cfg:          cfg,
		table:        table,
		logger:       logging.NewComponentLogger(logger, stageName),
		target:       abs,
		journal:      journal.NewStore(cfg.LogsDir(abs)),
		now:          time.Now,
		move:         fileutil.MoveFile,
		extraExclude: map[string]struct{}{},
	}
	if self := selfArtifact(abs); self != "" {
		o.extraExclude[self] = struct{}{}
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// ValidateTarget resolves target to an absolute directory path.
func ValidateTarget(target string) (string, error) {
	if target == "" {
		target = "."
	}
	expanded, err := config.ExpandPath(target)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, stageName, "validate target", target, err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrConfiguration, stageName, "validate target",
				fmt.Sprintf("folder %s does not exist", expanded), nil)
		}
		return "", services.Wrap(services.ErrConfiguration, stageName, "validate target", expanded, err)
	}
	if !info.IsDir() {
		return "", services.Wrap(services.ErrConfiguration, stageName, "validate target",
			fmt.Sprintf("%s is not a directory", expanded), nil)
	}
	return expanded, nil
}

// selfArtifact returns the executable's name when it sits inside target.
func selfArtifact(target string) string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	resolvedTarget := target
	if r, err := filepath.EvalSymlinks(target); err == nil {
		resolvedTarget = r
	}
	if filepath.Dir(exe) != resolvedTarget {
		return ""
	}
	return filepath.Base(exe)
}

// Target returns the absolute target directory.
func (o *Organizer) Target() string {
	return o.target
}

// Journal returns the transaction log store for the target.
func (o *Organizer) Journal() *journal.Store {
	return o.journal
}

// Scan lists the eligible files in name order.
func (o *Organizer) Scan() ([]FileEntry, error) {
	dirEntries, err := os.ReadDir(o.target)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "scan", o.target, err)
	}
	files := make([]FileEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if !de.Type().IsRegular() {
			continue
		}
		if o.cfg.IsExcluded(name) {
			continue
		}
		if _, skip := o.extraExclude[name]; skip {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// vanished between ReadDir and Info
			continue
		}
		files = append(files, FileEntry{
			Name: name,
			Path: filepath.Join(o.target, name),
			Size: info.Size(),
		})
	}
	return files, nil
}

// Run classifies every eligible file and, in execute mode, moves it. The
// returned error is non-nil only for batch-level failures (bad target, lock
// contention, log persistence, cancellation); per-file errors are reported in
// Result.Failures.
func (o *Organizer) Run(ctx context.Context, mode Mode) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	runID, ok := services.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = services.WithRunID(ctx, runID)
	}
	ctx = services.WithOperation(ctx, mode.String())
	logger := logging.WithContext(ctx, o.logger)

	result := &Result{
		RunID:     runID,
		Mode:      mode,
		Target:    o.target,
		StartedAt: o.now(),
		Stats:     Stats{},
	}

	if mode == ModeExecute {
		lock, err := runlock.Acquire(o.journal.Dir())
		if err != nil {
			return result, err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Debug("run lock release failed", logging.Error(err))
			}
		}()
	}

	files, err := o.Scan()
	if err != nil {
		return result, err
	}
	logger.Info("organization started",
		logging.String("target", o.target),
		logging.Int("files", len(files)),
		logging.String(logging.FieldEventType, "run_started"),
	)

	txlog := journal.NewLog(result.StartedAt)
	var runErr error
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			result.Cancelled = true
			runErr = err
			logging.WarnWithContext(logger, "run interrupted; remaining files left in place", "run_cancelled",
				logging.Error(err),
				logging.String(logging.FieldImpact, "files already moved stay moved and remain undoable"),
				logging.String(logging.FieldErrorHint, "run the organizer again to finish"),
			)
			break
		}
		o.processFile(logger, mode, file, result, txlog)
	}

	if mode == ModeExecute {
		path, err := o.journal.Persist(txlog)
		if err != nil {
			logging.ErrorWithContext(logger, "transaction log not written; this run cannot be undone", "journal_persist_failed",
				logging.Error(err),
				logging.Int("moved", txlog.Len()),
				logging.String(logging.FieldErrorHint, "check free space and permissions on "+o.journal.Dir()),
			)
			runErr = errors.Join(runErr, fmt.Errorf("persist transaction log: %w", err))
		}
		result.LogPath = path
	}
	result.Records = txlog.Records()
	result.FinishedAt = o.now()

	if mode == ModeExecute {
		o.recordHistory(ctx, logger, result, runErr)
	}

	logger.Info("organization finished",
		logging.Int("moved", len(result.Records)),
		logging.Int("skipped", len(result.Skipped)),
		logging.Int("failed", len(result.Failures)),
		logging.String("transaction_log", result.LogPath),
		logging.String(logging.FieldEventType, "run_finished"),
	)
	return result, runErr
}

func (o *Organizer) processFile(logger *slog.Logger, mode Mode, file FileEntry, result *Result, txlog *journal.Log) {
	cat := o.table.Classify(file.Name)
	if mode == ModePreview {
		result.Stats[cat]++
		logger.Debug("would move file",
			logging.File(file.Name),
			logging.Category(cat),
		)
		return
	}

	catDir := filepath.Join(o.target, cat)
	if err := os.MkdirAll(catDir, o.cfg.DirPerm()); err != nil {
		o.fail(logger, result, file, "create category folder", err)
		return
	}

	res, err := resolver.Resolve(file.Path, filepath.Join(catDir, file.Name))
	if err != nil {
		o.fail(logger, result, file, "resolve destination", err)
		return
	}

	switch res.Outcome {
	case resolver.Skip:
		result.Stats[cat]++
		result.Skipped = append(result.Skipped, SkippedFile{
			Name:     file.Name,
			Category: cat,
			Existing: filepath.Join(catDir, file.Name),
		})
		logger.Info("identical file already organized; left in place",
			logging.File(file.Name),
			logging.Category(cat),
			logging.String(logging.FieldEventType, "duplicate_skipped"),
		)
		return
	case resolver.Rename:
		logger.Info("name taken in category folder; renaming",
			logging.File(file.Name),
			logging.String("new_name", filepath.Base(res.Path)),
			logging.String(logging.FieldEventType, "collision_renamed"),
		)
	}

	if err := o.move(file.Path, res.Path); err != nil {
		o.fail(logger, result, file, "move", err)
		return
	}
	txlog.Append(journal.NewMove(file.Path, res.Path, cat, o.now()))
	result.Stats[cat]++
	logger.Info("moved file",
		logging.File(file.Name),
		logging.Category(cat),
		logging.String("destination", res.Path),
		logging.String(logging.FieldEventType, "file_moved"),
	)
}

func (o *Organizer) fail(logger *slog.Logger, result *Result, file FileEntry, operation string, err error) {
	wrapped := services.Wrap(services.ErrPerFileIO, stageName, operation, file.Name, err)
	result.Failures = append(result.Failures, FileFailure{Name: file.Name, Operation: operation, Err: wrapped})
	logging.WarnWithContext(logger, "file not organized; left in place", "file_move_failed",
		logging.File(file.Name),
		logging.String("step", operation),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check permissions and whether the file is open elsewhere"),
		logging.String(logging.FieldImpact, "file stays in the target folder"),
	)
}

func (o *Organizer) recordHistory(ctx context.Context, logger *slog.Logger, result *Result, runErr error) {
	if o.history == nil {
		return
	}
	run := history.Run{
		RunID:      result.RunID,
		Kind:       history.KindOrganize,
		Target:     o.target,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Moved:      len(result.Records),
		Skipped:    len(result.Skipped),
		Failed:     len(result.Failures),
		LogPath:    result.LogPath,
		Stats:      result.Stats,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	// history is informational; a fresh context keeps a cancelled run recordable
	if err := o.history.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		logging.WarnWithContext(logger, "run history not recorded", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the history command will not list this run"),
		)
	}
}

// Preview groups the eligible files by category without touching the filesystem.
func (o *Organizer) Preview(ctx context.Context) (*Preview, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	files, err := o.Scan()
	if err != nil {
		return nil, err
	}
	groups := make(map[string]*PreviewGroup)
	preview := &Preview{Target: o.target}
	for _, file := range files {
		cat := o.table.Classify(file.Name)
		g, ok := groups[cat]
		if !ok {
			g = &PreviewGroup{Category: cat, Description: o.table.Describe(cat)}
			groups[cat] = g
		}
		g.Files = append(g.Files, PreviewFile{Name: file.Name, Size: file.Size})
		g.Bytes += file.Size
		preview.Total++
		preview.Bytes += file.Size
	}
	for _, name := range o.table.Names() {
		if g, ok := groups[name]; ok {
			preview.Groups = append(preview.Groups, *g)
		}
	}
	return preview, nil
}
