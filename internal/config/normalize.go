package config

import "strings"

func (c *Config) normalize() {
	c.normalizeOrganizer()
	c.normalizeLogging()
	c.normalizeCategories()
}

func (c *Config) normalizeOrganizer() {
	c.Organizer.LogsDirName = strings.TrimSpace(c.Organizer.LogsDirName)
	if c.Organizer.LogsDirName == "" {
		c.Organizer.LogsDirName = defaultLogsDirName
	}
	c.Organizer.DirMode = strings.TrimSpace(c.Organizer.DirMode)
	if c.Organizer.DirMode == "" {
		c.Organizer.DirMode = defaultDirMode
	}
	exclude := make([]string, 0, len(c.Organizer.Exclude))
	seen := make(map[string]struct{}, len(c.Organizer.Exclude))
	for _, name := range c.Organizer.Exclude {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		exclude = append(exclude, name)
	}
	c.Organizer.Exclude = exclude
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format
	c.Logging.Level = NormalizeLevel(c.Logging.Level)
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeCategories() {
	for i := range c.Categories {
		c.Categories[i].Name = strings.TrimSpace(c.Categories[i].Name)
		c.Categories[i].Description = strings.TrimSpace(c.Categories[i].Description)
	}
}

// NormalizeLevel maps user-facing level names (including WARNING) onto the
// canonical debug/info/warn/error set. Unknown values are returned lower-cased
// so validation can reject them.
func NormalizeLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "":
		return defaultLogLevel
	case "warning":
		return "warn"
	case "err":
		return "error"
	default:
		return level
	}
}
