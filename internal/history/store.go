package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the database file created inside the logs folder.
const FileName = "history.db"

// Kind distinguishes organize runs from undo runs.
type Kind string

const (
	KindOrganize Kind = "organize"
	KindUndo     Kind = "undo"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	timeLayout              = "2006-01-02T15:04:05.000000000Z07:00"
)

// Run is one row of the history table.
type Run struct {
	RunID      string
	Kind       Kind
	Target     string
	StartedAt  time.Time
	FinishedAt time.Time
	Moved      int
	Skipped    int
	Failed     int
	LogPath    string
	Stats      map[string]int
	UndoneAt   time.Time
	Error      string
}

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database in logsDir.
func Open(ctx context.Context, logsDir string) (*Store, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure logs directory: %w", err)
	}

	dbPath := filepath.Join(logsDir, FileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun inserts or replaces a run row.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.RunID) == "" {
		return errors.New("record run: run id is required")
	}
	stats := run.Stats
	if stats == nil {
		stats = map[string]int{}
	}
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	return s.exec(ctx, `INSERT OR REPLACE INTO runs
		(run_id, kind, target, started_at, finished_at, moved, skipped, failed, log_path, stats_json, undone_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, string(run.Kind), run.Target,
		formatTime(run.StartedAt), nullableTime(run.FinishedAt),
		run.Moved, run.Skipped, run.Failed, run.LogPath, string(statsJSON),
		nullableTime(run.UndoneAt), run.Error,
	)
}

// MarkUndone stamps the organize run that produced logPath as undone and
// returns how many rows were updated.
func (s *Store) MarkUndone(ctx context.Context, logPath string, at time.Time) (int64, error) {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			"UPDATE runs SET undone_at = ? WHERE kind = ? AND log_path = ? AND undone_at IS NULL",
			formatTime(at), string(KindOrganize), logPath)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("mark undone: %w", err)
	}
	return affected, nil
}

// List returns the most recent runs for target, newest first. A limit <= 0
// returns every run.
func (s *Store) List(ctx context.Context, target string, limit int) ([]Run, error) {
	query := `SELECT run_id, kind, target, started_at, finished_at, moved, skipped, failed,
		log_path, stats_json, undone_at, error FROM runs WHERE target = ? ORDER BY started_at DESC, rowid DESC`
	args := []any{target}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		run        Run
		kind       string
		startedAt  string
		finishedAt sql.NullString
		statsJSON  string
		undoneAt   sql.NullString
	)
	if err := rows.Scan(&run.RunID, &kind, &run.Target, &startedAt, &finishedAt,
		&run.Moved, &run.Skipped, &run.Failed, &run.LogPath, &statsJSON, &undoneAt, &run.Error); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Kind = Kind(kind)
	run.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTime(finishedAt.String)
	}
	if undoneAt.Valid {
		run.UndoneAt = parseTime(undoneAt.String)
	}
	if err := json.Unmarshal([]byte(statsJSON), &run.Stats); err != nil {
		return Run{}, fmt.Errorf("decode stats for run %s: %w", run.RunID, err)
	}
	return run, nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t.Local()
}
