package testsupport

import (
	"context"
	"testing"

	"github.com/ItsSleepy/File-Organiser/internal/history"
)

// MustOpenHistory opens a history.Store in logsDir and registers cleanup.
func MustOpenHistory(t testing.TB, logsDir string) *history.Store {
	t.Helper()

	store, err := history.Open(context.Background(), logsDir)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
