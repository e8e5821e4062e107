package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ItsSleepy/File-Organiser/internal/category"
	"github.com/ItsSleepy/File-Organiser/internal/config"
	"github.com/ItsSleepy/File-Organiser/internal/history"
	"github.com/ItsSleepy/File-Organiser/internal/logging"
	"github.com/ItsSleepy/File-Organiser/internal/organizer"
	"github.com/ItsSleepy/File-Organiser/internal/services"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "load config", path, err)
			return
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = config.NormalizeLevel(level)
		}
		if format := flagValue(c.logFormatFlag); format != "" {
			cfg.Logging.Format = strings.ToLower(format)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "apply flags", "", err)
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

// terminalLogger writes structured logs to w using the configured format.
func (c *commandContext) terminalLogger(w io.Writer) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	level := logging.ParseLevel(cfg.Logging.Level)
	handler, err := logging.NewHandler(w, cfg.Logging.Format, level, level <= slog.LevelDebug)
	if err != nil {
		return nil, err
	}
	return slog.New(handler), nil
}

type sessionOptions struct {
	// mutating sessions write a run log, prune old run logs, and open history.
	mutating bool
	// quiet drops terminal logging; the run log still receives records.
	quiet bool
	// existingLogsOnly skips the run log when the logs folder does not exist yet.
	existingLogsOnly bool
}

// session is everything one organize or undo invocation needs.
type session struct {
	ctx     context.Context
	runID   string
	cfg     *config.Config
	table   *category.Table
	target  string
	logsDir string
	logger  *slog.Logger
	console *slog.Logger
	runLog  *logging.RunLog
	history *history.Store
}

func (c *commandContext) openSession(cmd *cobra.Command, folder string, opts sessionOptions) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	table, err := cfg.CategoryTable()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "cli", "category table", "", err)
	}
	target, err := organizer.ValidateTarget(folder)
	if err != nil {
		return nil, err
	}

	base := logging.NewNop()
	if !opts.quiet {
		base, err = c.terminalLogger(cmd.ErrOrStderr())
		if err != nil {
			return nil, err
		}
	}

	runID := uuid.NewString()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithRunID(ctx, runID)

	s := &session{
		ctx:     ctx,
		runID:   runID,
		cfg:     cfg,
		table:   table,
		target:  target,
		logsDir: cfg.LogsDir(target),
		logger:  base,
		console: base,
	}
	if !opts.mutating {
		return s, nil
	}
	if opts.existingLogsOnly {
		if info, err := os.Stat(s.logsDir); err != nil || !info.IsDir() {
			return s, nil
		}
	}

	runLog, err := logging.OpenRunLog(s.logsDir, time.Now(), logging.ParseLevel(cfg.Logging.Level))
	if err != nil {
		base.Warn("run log unavailable; continuing without it",
			logging.Error(err),
			logging.String(logging.FieldEventType, "run_log_unavailable"),
			logging.String(logging.FieldErrorHint, "check write permission on "+s.logsDir),
		)
	} else {
		s.runLog = runLog
		s.logger = runLog.Attach(base)
	}

	removed := logging.CleanupOldLogs(s.logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     s.logsDir,
		Pattern: logging.RunLogPattern,
		Exclude: runLogPaths(s.runLog),
	})
	if removed > 0 {
		s.logger.Debug("old run logs removed", logging.Int("count", removed))
	}

	if cfg.History.Enabled {
		store, err := history.Open(s.ctx, s.logsDir)
		if err != nil {
			logging.WarnWithContext(s.logger, "run history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "this run will not appear in `organizer history`"),
			)
		} else {
			s.history = store
		}
	}
	return s, nil
}

// Close releases the history store and the run log. Failures are logged to
// the terminal since the run itself already completed.
func (s *session) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.history != nil {
		errs = append(errs, s.history.Close())
	}
	errs = append(errs, s.runLog.Close())
	err := errors.Join(errs...)
	if err != nil {
		logging.WarnWithContext(s.console, "run resources not closed cleanly", "session_close_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the run log may be incomplete"),
		)
	}
	return err
}

func (s *session) organizerOptions() []organizer.Option {
	var opts []organizer.Option
	if s.history != nil {
		opts = append(opts, organizer.WithHistory(s.history))
	}
	return opts
}

func (s *session) runLogPath() string {
	if s.runLog == nil {
		return ""
	}
	return s.runLog.Path
}

func runLogPaths(runLog *logging.RunLog) []string {
	if runLog == nil {
		return nil
	}
	return []string{runLog.Path}
}

// openHistoryReadOnly opens the history database only when it already exists
// so read-only commands never create the logs folder.
func openHistoryReadOnly(ctx context.Context, logsDir string) (*history.Store, error) {
	if _, err := os.Stat(filepath.Join(logsDir, history.FileName)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("inspect history database: %w", err)
	}
	return history.Open(ctx, logsDir)
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
