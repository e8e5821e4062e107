package testsupport

import (
	"testing"

	"github.com/ItsSleepy/File-Organiser/internal/category"
	"github.com/ItsSleepy/File-Organiser/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig returns repository defaults with history disabled, then applies
// any provided options and validates the result.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.History.Enabled = false
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	return &cfg
}

// WithHistory enables the run history database.
func WithHistory() ConfigOption {
	return func(cfg *config.Config) {
		cfg.History.Enabled = true
	}
}

// WithCategories replaces the category table.
func WithCategories(specs ...category.Spec) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Categories = specs
	}
}

// WithExclude replaces the exclusion list.
func WithExclude(names ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Organizer.Exclude = names
	}
}

// MustTable builds the config's category table or fails the test.
func MustTable(t testing.TB, cfg *config.Config) *category.Table {
	t.Helper()
	table, err := cfg.CategoryTable()
	if err != nil {
		t.Fatalf("category table: %v", err)
	}
	return table
}
