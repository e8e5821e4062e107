package journal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/ItsSleepy/File-Organiser/internal/services"
)

const (
	namePrefix      = "operations_"
	nameTimeLayout  = "20060102_150405"
	ConsumedSuffix  = ".undone"
	tmpSuffix       = ".tmp"
	stageName       = "journal"
	seqDigits       = 6
	maxPersistTries = 100
)

var namePattern = regexp.MustCompile(`^operations_(\d{8}_\d{6})(?:_(\d+))?\.json(\.undone)?$`)

// Entry describes a transaction log file on disk.
type Entry struct {
	Path     string
	Name     string
	Created  time.Time
	Seq      int
	Consumed bool
	ModTime  time.Time
}

// Store reads and writes transaction logs in one logs folder.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The folder is created on first Persist.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the logs folder.
func (s *Store) Dir() string {
	return s.dir
}

// Persist writes the log atomically and returns its path. Empty logs are not
// written and yield "".
func (s *Store) Persist(l *Log) (string, error) {
	records := l.Records()
	if len(records) == 0 {
		return "", nil
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode transaction log: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create logs directory: %w", err)
	}

	entries, err := s.List()
	if err != nil {
		return "", err
	}
	seq := 0
	for _, e := range entries {
		if e.Seq > seq {
			seq = e.Seq
		}
	}

	for attempt := 0; attempt < maxPersistTries; attempt++ {
		seq++
		path := filepath.Join(s.dir, FileName(l.Created(), seq))
		err := writeAtomic(path, data)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("persist transaction log: no free sequence number after %d attempts", maxPersistTries)
}

// FileName returns the transaction log name for a creation time and sequence.
func FileName(created time.Time, seq int) string {
	return fmt.Sprintf("%s%s_%0*d.json", namePrefix, created.Format(nameTimeLayout), seqDigits, seq)
}

func writeAtomic(path string, data []byte) error {
	if _, err := os.Lstat(path); err == nil {
		return fs.ErrExist
	}
	if _, err := os.Lstat(path + ConsumedSuffix); err == nil {
		return fs.ErrExist
	}
	tmpPath := path + tmpSuffix
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temporary transaction log: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpPath) // cleanup on failure
		return fmt.Errorf("write transaction log: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync transaction log: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close transaction log: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename transaction log: %w", err)
	}
	return nil
}

// ParseName extracts the creation time and sequence from a log file name.
// Names without a sequence number have sequence 0.
func ParseName(name string) (created time.Time, seq int, consumed bool, ok bool) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, 0, false, false
	}
	created, err := time.ParseInLocation(nameTimeLayout, m[1], time.Local)
	if err != nil {
		return time.Time{}, 0, false, false
	}
	if m[2] != "" {
		seq, err = strconv.Atoi(m[2])
		if err != nil {
			return time.Time{}, 0, false, false
		}
	}
	return created, seq, m[3] != "", true
}

// List returns every transaction log in the folder, consumed ones included,
// newest first. A missing folder yields an empty list.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read logs directory: %w", err)
	}
	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		created, seq, consumed, ok := ParseName(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Path:     filepath.Join(s.dir, de.Name()),
			Name:     de.Name(),
			Created:  created,
			Seq:      seq,
			Consumed: consumed,
			ModTime:  info.ModTime(),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return newer(entries[i], entries[j])
	})
	return entries, nil
}

func newer(a, b Entry) bool {
	if a.Seq != b.Seq {
		return a.Seq > b.Seq
	}
	if !a.Created.Equal(b.Created) {
		return a.Created.After(b.Created)
	}
	if !a.ModTime.Equal(b.ModTime) {
		return a.ModTime.After(b.ModTime)
	}
	return a.Name > b.Name
}

// Pending returns the unconsumed logs, newest first.
func (s *Store) Pending() ([]Entry, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	pending := entries[:0]
	for _, e := range entries {
		if !e.Consumed {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

// Latest selects the newest unconsumed log: highest sequence, then creation
// time, then modification time.
func (s *Store) Latest() (Entry, error) {
	pending, err := s.Pending()
	if err != nil {
		return Entry{}, services.Wrap(services.ErrLogNotFound, stageName, "latest", s.dir, err)
	}
	if len(pending) == 0 {
		return Entry{}, services.Wrap(services.ErrLogNotFound, stageName, "latest", "no undoable transaction log in "+s.dir, nil)
	}
	return pending[0], nil
}

// Load reads a whole transaction log. Any defect fails the load; a partially
// valid log is never returned.
func Load(path string) ([]MoveRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrLogNotFound, stageName, "load", filepath.Base(path), err)
		}
		return nil, services.Wrap(services.ErrLogParse, stageName, "load", filepath.Base(path), err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var records []MoveRecord
	if err := dec.Decode(&records); err != nil {
		return nil, services.Wrap(services.ErrLogParse, stageName, "load", filepath.Base(path), err)
	}
	if dec.More() {
		return nil, services.Wrap(services.ErrLogParse, stageName, "load", filepath.Base(path), errors.New("trailing data after JSON array"))
	}
	if records == nil {
		return nil, services.Wrap(services.ErrLogParse, stageName, "load", filepath.Base(path), errors.New("log is not a JSON array"))
	}
	for i, r := range records {
		if err := r.validate(); err != nil {
			return nil, services.Wrap(services.ErrLogParse, stageName, "load",
				fmt.Sprintf("%s: record %d", filepath.Base(path), i+1), err)
		}
	}
	return records, nil
}

// MarkConsumed renames a log with the .undone suffix so it is never selected
// again, and returns the new path.
func (s *Store) MarkConsumed(path string) (string, error) {
	target := path + ConsumedSuffix
	if _, err := os.Lstat(target); err == nil {
		return "", fmt.Errorf("mark consumed: %s already exists", filepath.Base(target))
	}
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("mark consumed: %w", err)
	}
	return target, nil
}
