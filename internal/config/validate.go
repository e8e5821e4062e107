package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOrganizer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateCategories(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOrganizer() error {
	name := c.Organizer.LogsDirName
	if name == "" {
		return errors.New("organizer.logs_dir_name must be set")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("organizer.logs_dir_name %q must be a plain folder name", name)
	}
	if strings.ContainsAny(c.Organizer.HiddenPrefix, `/\`) {
		return fmt.Errorf("organizer.hidden_prefix %q must not contain path separators", c.Organizer.HiddenPrefix)
	}
	mode, err := parseDirMode(c.Organizer.DirMode)
	if err != nil {
		return fmt.Errorf("organizer.dir_mode: %w", err)
	}
	if mode&0o700 != 0o700 {
		return fmt.Errorf("organizer.dir_mode %q must grant the owner full access (0700)", c.Organizer.DirMode)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported (use DEBUG, INFO, WARNING, or ERROR)", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateCategories() error {
	table, err := c.CategoryTable()
	if err != nil {
		return fmt.Errorf("categories: %w", err)
	}
	for _, name := range table.Names() {
		if strings.EqualFold(name, c.Organizer.LogsDirName) {
			return fmt.Errorf("categories: %q collides with organizer.logs_dir_name", name)
		}
	}
	return nil
}
