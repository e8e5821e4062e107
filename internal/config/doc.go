// Package config loads, normalizes, and validates organizer configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the ORGANIZER_LOG_LEVEL environment
// fallback. The Config type carries every knob the CLI and engine need: the
// logs folder name, hidden-file and exclusion rules, logging settings, run
// history, and an optional replacement category table.
//
// Always obtain settings through this package so downstream code receives
// canonical log levels, a validated category table, and clear validation errors.
package config
