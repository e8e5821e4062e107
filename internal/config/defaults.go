package config

import "io/fs"

const (
	defaultConfigPath       = "~/.config/organizer/config.toml"
	projectConfigName       = "organizer.toml"
	logLevelEnv             = "ORGANIZER_LOG_LEVEL"
	defaultLogsDirName      = "organization_logs"
	defaultHiddenPrefix     = "."
	defaultDirMode          = "0755"
	defaultDirPerm          = fs.FileMode(0o755)
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
	defaultHistoryEnabled   = true
)

// defaultExclude lists the organizer's own artifacts that may sit next to the
// files being organized.
var defaultExclude = []string{"organizer", "organizer.exe", "file_organizer.py"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Organizer: Organizer{
			LogsDirName:  defaultLogsDirName,
			HiddenPrefix: defaultHiddenPrefix,
			Exclude:      append([]string(nil), defaultExclude...),
			DirMode:      defaultDirMode,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		History: History{
			Enabled: defaultHistoryEnabled,
		},
	}
}
