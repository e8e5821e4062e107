package runlock_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ItsSleepy/File-Organiser/internal/runlock"
	"github.com/ItsSleepy/File-Organiser/internal/services"
)

func TestAcquireRejectsSecondHolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "organization_logs")

	first, err := runlock.Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, runlock.FileName)); err != nil {
		t.Fatalf("expected lock file in logs folder: %v", err)
	}

	if _, err := runlock.Acquire(dir); !errors.Is(err, services.ErrBusy) {
		t.Fatalf("expected ErrBusy while lock is held, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	again, err := runlock.Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	if err := again.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestReleaseNilLock(t *testing.T) {
	var l *runlock.Lock
	if err := l.Release(); err != nil {
		t.Fatalf("Release on nil lock: %v", err)
	}
}
