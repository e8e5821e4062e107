// Package runlock guards a target directory so only one organize or undo run
// mutates it at a time.
package runlock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/ItsSleepy/File-Organiser/internal/services"
)

// FileName is the lock file created inside the logs folder.
const FileName = ".organizer.lock"

// Lock is a held advisory lock.
type Lock struct {
	lock *flock.Flock
}

// Acquire takes the lock in logsDir without blocking. A lock held by another
// process yields an error marked services.ErrBusy.
func Acquire(logsDir string) (*Lock, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "runlock", "acquire", "create logs directory", err)
	}
	path := filepath.Join(logsDir, FileName)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrBusy, "runlock", "acquire",
			"another organizer run holds "+path, nil)
	}
	return &Lock{lock: fl}, nil
}

// Release drops the lock. The lock file itself is left in place.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
