package organizer_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ItsSleepy/File-Organiser/internal/config"
	"github.com/ItsSleepy/File-Organiser/internal/fileutil"
	"github.com/ItsSleepy/File-Organiser/internal/journal"
	"github.com/ItsSleepy/File-Organiser/internal/logging"
	"github.com/ItsSleepy/File-Organiser/internal/organizer"
	"github.com/ItsSleepy/File-Organiser/internal/runlock"
	"github.com/ItsSleepy/File-Organiser/internal/services"
	"github.com/ItsSleepy/File-Organiser/internal/testsupport"
)

const logsDir = "organization_logs"

func newOrganizer(t *testing.T, dir string, cfg *config.Config, opts ...organizer.Option) *organizer.Organizer {
	t.Helper()
	if cfg == nil {
		cfg = testsupport.NewConfig(t)
	}
	o, err := organizer.New(dir, cfg, testsupport.MustTable(t, cfg), logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("organizer.New: %v", err)
	}
	return o
}

func TestRunMovesFilesIntoCategories(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFiles(t, dir, map[string]string{
		"report.pdf": "pdf",
		"photo.jpg":  "jpg",
		"notes.txt":  "txt",
	})

	o := newOrganizer(t, dir, nil)
	result, err := o.Run(context.Background(), organizer.ModeExecute)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := organizer.Stats{"Documents": 2, "Images": 1}
	if !reflect.DeepEqual(result.Stats, want) {
		t.Fatalf("stats = %v, want %v", result.Stats, want)
	}
	tree := testsupport.Tree(t, dir, logsDir)
	wantTree := []string{"Documents/notes.txt", "Documents/report.pdf", "Images/photo.jpg"}
	if !reflect.DeepEqual(tree, wantTree) {
		t.Fatalf("tree = %v, want %v", tree, wantTree)
	}
	if len(result.Records) != 3 || result.LogPath == "" {
		t.Fatalf("expected 3 records and a log, got %d records log=%q", len(result.Records), result.LogPath)
	}

	records, err := journal.Load(result.LogPath)
	if err != nil {
		t.Fatalf("journal.Load: %v", err)
	}
	if records[0].Source != filepath.Join(dir, "notes.txt") || records[0].Category != "Documents" {
		t.Fatalf("expected records in name order, got %+v", records[0])
	}
	if records[2].Destination != filepath.Join(dir, "Images", "photo.jpg") {
		t.Fatalf("unexpected destination %q", records[2].Destination)
	}
}

func TestRunRenamesOnCollision(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFiles(t, dir, map[string]string{
		"a.txt":           "loose",
		"Documents/a.txt": "organized earlier",
	})

	result, err := newOrganizer(t, dir, nil).Run(context.Background(), organizer.ModeExecute)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := testsupport.ReadFile(t, filepath.Join(dir, "Documents", "a_1.txt")); got != "loose" {
		t.Fatalf("expected loose file at a_1.txt, got %q", got)
	}
	if got := testsupport.ReadFile(t, filepath.Join(dir, "Documents", "a.txt")); got != "organized earlier" {
		t.Fatalf("existing file overwritten: %q", got)
	}
	if len(result.Records) != 1 || filepath.Base(result.Records[0].Destination) != "a_1.txt" {
		t.Fatalf("unexpected records %+v", result.Records)
	}
}

func TestRunSkipsIdenticalDuplicate(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFiles(t, dir, map[string]string{
		"a.txt":           "same",
		"Documents/a.txt": "same",
	})

	result, err := newOrganizer(t, dir, nil).Run(context.Background(), organizer.ModeExecute)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stats["Documents"] != 1 {
		t.Fatalf("duplicate should still be counted, stats = %v", result.Stats)
	}
	if len(result.Records) != 0 || result.LogPath != "" {
		t.Fatalf("duplicate must not produce records or a log: %+v", result)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Name != "a.txt" {
		t.Fatalf("expected a.txt in skipped list, got %+v", result.Skipped)
	}
	if !fileutil.Exists(filepath.Join(dir, "a.txt")) {
		t.Fatal("duplicate source must remain at its original path")
	}
	pending, err := journal.NewStore(filepath.Join(dir, logsDir)).Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("no transaction log expected, got %d", len(pending))
	}
}

func TestRunUnknownExtensionGoesToOthers(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFiles(t, dir, map[string]string{"data.xyz": "?", "Makefile": "all:"})

	result, err := newOrganizer(t, dir, nil).Run(context.Background(), organizer.ModeExecute)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stats["Others"] != 2 {
		t.Fatalf("stats = %v", result.Stats)
	}
	tree := testsupport.Tree(t, dir, logsDir)
	if !reflect.DeepEqual(tree, []string{"Others/Makefile", "Others/data.xyz"}) {
		t.Fatalf("tree = %v", tree)
	}
}

func TestRunIgnoresHiddenExcludedAndDirectories(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFiles(t, dir, map[string]string{
		".hidden.txt":         "h",
		"organizer":           "binary",
		"file_organizer.py":   "script",
		"keep.me":             "k",
		"subdir/inner.pdf":    "nested",
		"organization_logs/x": "log area",
		"ok.png":              "png",
	})

	o := newOrganizer(t, dir, nil, organizer.WithExclude("keep.me"))
	files, err := o.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 1 || files[0].Name != "ok.png" || files[0].Size != 3 {
		t.Fatalf("unexpected scan result %+v", files)
	}

	result, err := o.Run(context.Background(), organizer.ModeExecute)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stats.Total() != 1 {
		t.Fatalf("stats = %v", result.Stats)
	}
	for _, name := range []string{".hidden.txt", "organizer", "file_organizer.py", "keep.me", "subdir/inner.pdf"} {
		if !fileutil.Exists(filepath.Join(dir, filepath.FromSlash(name))) {
			t.Fatalf("%s must not be moved", name)
		}
	}
}

func TestPreviewModeNeverMutates(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFiles(t, dir, map[string]string{
		"report.pdf":      "pdf",
		"song.mp3":        "mp3",
		"a.txt":           "same",
		"Documents/a.txt": "same",
	})
	before := testsupport.Tree(t, dir)

	o := newOrganizer(t, dir, nil)
	var first organizer.Stats
	for i := 0; i < 3; i++ {
		result, err := o.Run(context.Background(), organizer.ModePreview)
		if err != nil {
			t.Fatalf("preview run %d: %v", i, err)
		}
		if len(result.Records) != 0 || result.LogPath != "" {
			t.Fatalf("preview produced records: %+v", result)
		}
		if first == nil {
			first = result.Stats
		} else if !reflect.DeepEqual(first, result.Stats) {
			t.Fatalf("preview stats changed: %v vs %v", first, result.Stats)
		}
	}
	if !reflect.DeepEqual(first, organizer.Stats{"Documents": 2, "Audio": 1}) {
		t.Fatalf("unexpected preview stats %v", first)
	}
	if after := testsupport.Tree(t, dir); !reflect.DeepEqual(before, after) {
		t.Fatalf("preview mutated the tree: %v -> %v", before, after)
	}
	if fileutil.Exists(filepath.Join(dir, logsDir)) {
		t.Fatal("preview must not create the logs folder")
	}
}

func TestPreviewGroupsByCategory(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFiles(t, dir, map[string]string{
		"b.pdf":     "12345",
		"a.txt":     "12",
		"x.zip":     "1",
		"odd.weird": "123",
	})

	preview, err := newOrganizer(t, dir, nil).Preview(context.Background())
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if preview.Total != 4 || preview.Bytes != 11 {
		t.Fatalf("unexpected totals %d files %d bytes", preview.Total, preview.Bytes)
	}
	var names []string
	for _, g := range preview.Groups {
		names = append(names, g.Category)
	}
	if !reflect.DeepEqual(names, []string{"Documents", "Archives", "Others"}) {
		t.Fatalf("groups must follow table order, got %v", names)
	}
	docs := preview.Groups[0]
	if docs.Bytes != 7 || docs.Files[0].Name != "a.txt" || docs.Files[1].Name != "b.pdf" {
		t.Fatalf("unexpected documents group %+v", docs)
	}
	if docs.Description == "" {
		t.Fatal("expected category description")
	}
}

func TestRunContinuesAfterPerFileFailure(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFiles(t, dir, map[string]string{
		"a.txt": "a",
		"b.txt": "b",
		"c.jpg": "c",
	})

	failing := func(src, dst string) error {
		if filepath.Base(src) == "b.txt" {
			return errors.New("permission denied")
		}
		return fileutil.MoveFile(src, dst)
	}
	result, err := newOrganizer(t, dir, nil, organizer.WithMover(failing)).Run(context.Background(), organizer.ModeExecute)
	if err != nil {
		t.Fatalf("per-file failure must not fail the batch: %v", err)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("expected one failure, got %+v", result.Failures)
	}
	failure := result.Failures[0]
	if failure.Name != "b.txt" || failure.Operation != "move" {
		t.Fatalf("unexpected failure %+v", failure)
	}
	if !errors.Is(failure, services.ErrPerFileIO) || !strings.Contains(failure.Error(), "permission denied") {
		t.Fatalf("failure should carry marker and reason: %v", failure)
	}
	if result.Stats["Documents"] != 1 || result.Stats["Images"] != 1 {
		t.Fatalf("failed file must not be counted, stats = %v", result.Stats)
	}
	if len(result.Records) != 2 {
		t.Fatalf("failed file must not be recorded, got %d records", len(result.Records))
	}
	if !fileutil.Exists(filepath.Join(dir, "b.txt")) {
		t.Fatal("failed file must remain in place")
	}
}

func TestRunCancellationPersistsCompletedMoves(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFiles(t, dir, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	moves := 0
	cancelAfterFirst := func(src, dst string) error {
		moves++
		if moves == 1 {
			cancel()
		}
		return fileutil.MoveFile(src, dst)
	}

	result, err := newOrganizer(t, dir, nil, organizer.WithMover(cancelAfterFirst)).Run(ctx, organizer.ModeExecute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !result.Cancelled || len(result.Records) != 1 {
		t.Fatalf("expected one completed move before cancellation, got %+v", result)
	}
	records, err := journal.Load(result.LogPath)
	if err != nil {
		t.Fatalf("completed moves must stay undoable: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(records))
	}
	if !fileutil.Exists(filepath.Join(dir, "b.txt")) || !fileutil.Exists(filepath.Join(dir, "c.txt")) {
		t.Fatal("files after the interruption must be left in place")
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "a.txt"), "a")

	lock, err := runlock.Acquire(filepath.Join(dir, logsDir))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	_, err = newOrganizer(t, dir, nil).Run(context.Background(), organizer.ModeExecute)
	if !errors.Is(err, services.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if !fileutil.Exists(filepath.Join(dir, "a.txt")) {
		t.Fatal("no file may move while another run holds the lock")
	}
}

func TestNewRejectsBadTarget(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	testsupport.WriteFile(t, file, "x")
	cfg := testsupport.NewConfig(t)

	for _, target := range []string{filepath.Join(dir, "missing"), file} {
		_, err := organizer.New(target, cfg, testsupport.MustTable(t, cfg), nil)
		if !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("New(%s): expected ErrConfiguration, got %v", target, err)
		}
	}
}

func TestRunRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFiles(t, dir, map[string]string{"a.txt": "a", "b.png": "b"})
	store := testsupport.MustOpenHistory(t, filepath.Join(dir, logsDir))

	fixed := time.Date(2024, 6, 1, 9, 30, 0, 0, time.Local)
	ctx := services.WithRunID(context.Background(), "run-fixed")
	o := newOrganizer(t, dir, nil, organizer.WithHistory(store), organizer.WithClock(func() time.Time { return fixed }))
	result, err := o.Run(ctx, organizer.ModeExecute)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.RunID != "run-fixed" {
		t.Fatalf("run id from context not used: %q", result.RunID)
	}
	if filepath.Base(result.LogPath) != "operations_20240601_093000_000001.json" {
		t.Fatalf("unexpected log name %q", filepath.Base(result.LogPath))
	}

	runs, err := store.List(context.Background(), dir, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(runs))
	}
	if runs[0].Moved != 2 || runs[0].LogPath != result.LogPath || runs[0].Stats["Images"] != 1 {
		t.Fatalf("unexpected history row %+v", runs[0])
	}
}

func TestModeString(t *testing.T) {
	if organizer.ModeExecute.String() != "organize" || organizer.ModePreview.String() != "preview" {
		t.Fatal("unexpected mode labels")
	}
}
