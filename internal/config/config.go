package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/ItsSleepy/File-Organiser/internal/category"
)

//go:embed sample_config.toml
var sampleConfig string

// Organizer contains settings that shape a single organize or undo run.
type Organizer struct {
	LogsDirName  string   `toml:"logs_dir_name"`
	HiddenPrefix string   `toml:"hidden_prefix"`
	Exclude      []string `toml:"exclude"`
	DirMode      string   `toml:"dir_mode"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// History controls the SQLite run index kept next to the transaction logs.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Config encapsulates all configuration values for the organizer.
//
// Configuration sections:
//   - Organizer: logs folder, hidden prefix, exclusions, folder permissions
//   - Logging: log format, level, and retention
//   - History: run history database toggle
//   - Categories: optional replacement for the built-in category table
type Config struct {
	Organizer  Organizer       `toml:"organizer"`
	Logging    Logging         `toml:"logging"`
	History    History         `toml:"history"`
	Categories []category.Spec `toml:"categories"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A missing file is
// not an error: defaults are returned with exists=false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()
	if value, ok := os.LookupEnv(logLevelEnv); ok && strings.TrimSpace(value) != "" {
		cfg.Logging.Level = value
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// CategoryTable builds the immutable category table for a run. An empty
// [[categories]] list yields the built-in table.
func (c *Config) CategoryTable() (*category.Table, error) {
	return category.FromSpecs(c.Categories)
}

// LogsDir returns the logs folder inside target.
func (c *Config) LogsDir(target string) string {
	return filepath.Join(target, c.Organizer.LogsDirName)
}

// DirPerm returns the permission bits used for new category folders.
func (c *Config) DirPerm() fs.FileMode {
	mode, err := parseDirMode(c.Organizer.DirMode)
	if err != nil {
		return defaultDirPerm
	}
	return mode
}

// IsExcluded reports whether name must never be organized: hidden entries and
// explicitly excluded artifacts.
func (c *Config) IsExcluded(name string) bool {
	if c.Organizer.HiddenPrefix != "" && strings.HasPrefix(name, c.Organizer.HiddenPrefix) {
		return true
	}
	for _, excluded := range c.Organizer.Exclude {
		if name == excluded {
			return true
		}
	}
	return false
}

func parseDirMode(value string) (fs.FileMode, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultDirPerm, nil
	}
	parsed, err := strconv.ParseUint(strings.TrimPrefix(value, "0o"), 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid octal mode %q", value)
	}
	if parsed > 0o777 {
		return 0, fmt.Errorf("mode %q exceeds 0777", value)
	}
	return fs.FileMode(parsed), nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
