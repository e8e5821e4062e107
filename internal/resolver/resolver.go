// Package resolver decides where a file may land inside its category folder
// without ever overwriting existing data.
package resolver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ItsSleepy/File-Organiser/internal/fileutil"
)

// maxAttempts bounds counter probing for a free name.
const maxAttempts = 10000

// ErrNoFreeName is returned when every probed counter name is taken.
var ErrNoFreeName = errors.New("no free destination name")

// Outcome is the three-way result of resolving a destination.
type Outcome int

const (
	// Proceed means the intended path is free.
	Proceed Outcome = iota
	// Skip means an identical file already occupies the intended path.
	Skip
	// Rename means the intended path is taken by different content and Path
	// holds the first free counter-suffixed alternative.
	Rename
)

func (o Outcome) String() string {
	switch o {
	case Proceed:
		return "proceed"
	case Skip:
		return "skip"
	case Rename:
		return "rename"
	default:
		return "outcome(" + strconv.Itoa(int(o)) + ")"
	}
}

// Resolution is the decision for one file. Path is empty for Skip.
type Resolution struct {
	Outcome Outcome
	Path    string
}

// Resolve returns where source should be moved given the intended destination.
// Content comparison failures count as "different", so an unreadable existing
// file leads to a rename rather than a failed batch.
func Resolve(source, intended string) (Resolution, error) {
	if !fileutil.Exists(intended) {
		return Resolution{Outcome: Proceed, Path: intended}, nil
	}
	if fileutil.SameContent(source, intended) {
		return Resolution{Outcome: Skip}, nil
	}
	candidate, err := NextFreePath(intended)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Outcome: Rename, Path: candidate}, nil
}

// NextFreePath probes stem_1.ext, stem_2.ext, … next to intended and returns
// the first name that does not exist. The stem and extension are split on the
// final dot only, so "a.tar.gz" becomes "a.tar_1.gz".
func NextFreePath(intended string) (string, error) {
	dir := filepath.Dir(intended)
	base := filepath.Base(intended)
	ext := filepath.Ext(base)
	if ext == base {
		// dotfile such as ".env": the whole name is the stem
		ext = ""
	}
	stem := base[:len(base)-len(ext)]

	for i := 1; i <= maxAttempts; i++ {
		candidate := filepath.Join(dir, stem+"_"+strconv.Itoa(i)+ext)
		if _, err := os.Lstat(candidate); err != nil {
			if os.IsNotExist(err) {
				return candidate, nil
			}
			return "", fmt.Errorf("probe %s: %w", filepath.Base(candidate), err)
		}
	}
	return "", fmt.Errorf("%s after %d attempts: %w", base, maxAttempts, ErrNoFreeName)
}
