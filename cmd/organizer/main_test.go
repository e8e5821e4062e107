package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ItsSleepy/File-Organiser/internal/logging"
	"github.com/ItsSleepy/File-Organiser/internal/organizer"
	"github.com/ItsSleepy/File-Organiser/internal/runlock"
	"github.com/ItsSleepy/File-Organiser/internal/services"
	"github.com/ItsSleepy/File-Organiser/internal/testsupport"
)

const testLogsDir = "organization_logs"

type cliTestEnv struct {
	home       string
	configPath string
	folder     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("ORGANIZER_LOG_LEVEL", "")

	folder := filepath.Join(base, "inbox")
	testsupport.WriteFiles(t, folder, map[string]string{
		"report.pdf": "pdf",
		"photo.jpg":  "jpg",
		"notes.txt":  "txt",
	})

	return &cliTestEnv{
		home:       home,
		configPath: filepath.Join(base, "organizer.toml"),
		folder:     folder,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLIOrganizeThenUndo(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{env.folder}, env.configPath)
	if err != nil {
		t.Fatalf("organize: %v", err)
	}
	for _, want := range []string{"Documents", "Images", "66.7%", "33.3%", "Transaction log: operations_", "File organization completed"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("organize output missing %q:\n%s", want, stdout)
		}
	}
	want := []string{"Documents/notes.txt", "Documents/report.pdf", "Images/photo.jpg"}
	if got := testsupport.Tree(t, env.folder, testLogsDir); !reflect.DeepEqual(got, want) {
		t.Fatalf("tree after organize = %v, want %v", got, want)
	}

	stdout, _, err = runCLI(t, []string{"--undo", env.folder}, env.configPath)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !strings.Contains(stdout, "Restored 3 file(s)") {
		t.Fatalf("undo output missing restore count:\n%s", stdout)
	}
	want = []string{"notes.txt", "photo.jpg", "report.pdf"}
	if got := testsupport.Tree(t, env.folder, testLogsDir); !reflect.DeepEqual(got, want) {
		t.Fatalf("tree after undo = %v, want %v", got, want)
	}

	_, _, err = runCLI(t, []string{"undo", env.folder}, env.configPath)
	if !errors.Is(err, services.ErrLogNotFound) {
		t.Fatalf("second undo error = %v, want ErrLogNotFound", err)
	}
}

func TestCLIDryRunLeavesFolderUntouched(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"--dry-run", env.folder}, env.configPath)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !strings.Contains(stdout, "Dry run statistics") || !strings.Contains(stdout, "no files were moved") {
		t.Fatalf("unexpected dry run output:\n%s", stdout)
	}
	want := []string{"notes.txt", "photo.jpg", "report.pdf"}
	if got := testsupport.Tree(t, env.folder); !reflect.DeepEqual(got, want) {
		t.Fatalf("dry run changed folder: %v", got)
	}
	if _, err := os.Stat(filepath.Join(env.folder, testLogsDir)); !os.IsNotExist(err) {
		t.Fatalf("dry run should not create the logs folder, stat err=%v", err)
	}
}

func TestCLIPreview(t *testing.T) {
	env := setupCLITestEnv(t)

	for _, args := range [][]string{{"preview", env.folder}, {"--preview", env.folder}} {
		stdout, _, err := runCLI(t, args, env.configPath)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		for _, want := range []string{"Documents (2 files", "- notes.txt", "- report.pdf", "Images (1 files", "Total: 3 files"} {
			if !strings.Contains(stdout, want) {
				t.Fatalf("%v output missing %q:\n%s", args, want, stdout)
			}
		}
	}
	if got := testsupport.Tree(t, env.folder); len(got) != 3 {
		t.Fatalf("preview changed folder: %v", got)
	}
}

func TestCLIRejectsMissingFolder(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(env.home, "nope")

	_, _, err := runCLI(t, []string{missing}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
	if _, statErr := os.Stat(missing); !os.IsNotExist(statErr) {
		t.Fatalf("missing folder should not be created")
	}
}

func TestCLIRejectsConflictingFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"--undo", "--dry-run", env.folder}, env.configPath); err == nil {
		t.Fatal("expected error for --undo with --dry-run")
	}
}

func TestCLIRejectsBusyFolder(t *testing.T) {
	env := setupCLITestEnv(t)
	lock, err := runlock.Acquire(filepath.Join(env.folder, testLogsDir))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	_, _, err = runCLI(t, []string{env.folder}, env.configPath)
	if !errors.Is(err, services.ErrBusy) {
		t.Fatalf("error = %v, want ErrBusy", err)
	}
	if got := testsupport.Tree(t, env.folder, testLogsDir); len(got) != 3 || strings.Contains(got[0], "/") {
		t.Fatalf("busy folder was modified: %v", got)
	}
}

func TestCLIHistoryShowsRuns(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"history", env.folder}, env.configPath)
	if err != nil {
		t.Fatalf("history before runs: %v", err)
	}
	if !strings.Contains(stdout, "No runs recorded") || !strings.Contains(stdout, "Nothing to undo") {
		t.Fatalf("unexpected empty history output:\n%s", stdout)
	}
	if _, err := os.Stat(filepath.Join(env.folder, testLogsDir)); !os.IsNotExist(err) {
		t.Fatal("history should not create the logs folder")
	}

	if _, _, err := runCLI(t, []string{env.folder}, env.configPath); err != nil {
		t.Fatalf("organize: %v", err)
	}
	stdout, _, err = runCLI(t, []string{"history", env.folder}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(stdout, "organize") || !strings.Contains(stdout, "operations_") {
		t.Fatalf("history missing organize run:\n%s", stdout)
	}

	if _, _, err := runCLI(t, []string{"undo", env.folder}, env.configPath); err != nil {
		t.Fatalf("undo: %v", err)
	}
	stdout, _, err = runCLI(t, []string{"history", env.folder}, env.configPath)
	if err != nil {
		t.Fatalf("history after undo: %v", err)
	}
	if !strings.Contains(stdout, "undone") || !strings.Contains(stdout, "Nothing to undo") {
		t.Fatalf("history should show the undone run:\n%s", stdout)
	}
}

func TestCLIWritesRunLog(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{env.folder}, env.configPath); err != nil {
		t.Fatalf("organize: %v", err)
	}
	matches, err := filepath.Glob(filepath.Join(env.folder, testLogsDir, logging.RunLogPattern))
	if err != nil || len(matches) == 0 {
		t.Fatalf("expected a run log, got %v (err=%v)", matches, err)
	}
	content := testsupport.ReadFile(t, matches[0])
	if !strings.Contains(content, "moved file") {
		t.Fatalf("run log missing move entries:\n%s", content)
	}
}

func TestCLILogFlags(t *testing.T) {
	env := setupCLITestEnv(t)

	_, stderr, err := runCLI(t, []string{"--log-format", "json", "--log-level", "DEBUG", "--dry-run", env.folder}, env.configPath)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !strings.Contains(stderr, `"msg":"organization started"`) {
		t.Fatalf("expected JSON logs on stderr, got:\n%s", stderr)
	}

	_, _, err = runCLI(t, []string{"--log-level", "verbose", "--dry-run", env.folder}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("invalid level error = %v, want ErrConfiguration", err)
	}
	_, _, err = runCLI(t, []string{"--log-format", "xml", "--dry-run", env.folder}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("invalid format error = %v, want ErrConfiguration", err)
	}
}

func TestCLICategories(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"categories"}, env.configPath)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	for _, want := range []string{"Documents", ".pdf", "Images", "Others", "(everything else)"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("categories output missing %q:\n%s", want, stdout)
		}
	}
}

func TestCLIConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"config", "init", "--path", env.configPath}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(stdout, env.configPath) {
		t.Fatalf("init output missing path:\n%s", stdout)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", env.configPath}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	stdout, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(stdout, "Configuration valid") || strings.Contains(stdout, "defaults were used") {
		t.Fatalf("unexpected validate output:\n%s", stdout)
	}

	if err := os.WriteFile(env.configPath, []byte("[logging]\nformat = \"yaml\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, env.configPath); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("validate error = %v, want ErrConfiguration", err)
	}
}

func TestRenderStats(t *testing.T) {
	out := renderStats(map[string]int{"Images": 1, "Documents": 3})
	docs := strings.Index(out, "Documents")
	images := strings.Index(out, "Images")
	if docs < 0 || images < 0 || docs > images {
		t.Fatalf("expected categories sorted by name:\n%s", out)
	}
	for _, want := range []string{"75.0%", "25.0%", "Total", "100.0%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("stats table missing %q:\n%s", want, out)
		}
	}
	if renderStats(nil) != "" {
		t.Fatal("expected empty output for empty stats")
	}
}

func TestShouldReportOrganize(t *testing.T) {
	fatal := services.Wrap(services.ErrConfiguration, "organizing", "scan", "folder", nil)
	perFile := services.Wrap(services.ErrPerFileIO, "organizing", "move", "a.txt", nil)
	cases := []struct {
		name   string
		result *organizer.Result
		err    error
		want   bool
	}{
		{"no result", nil, nil, false},
		{"clean run", &organizer.Result{Stats: organizer.Stats{}}, nil, true},
		{"per file error", &organizer.Result{Stats: organizer.Stats{}}, perFile, true},
		{"fatal before any move", &organizer.Result{Stats: organizer.Stats{}}, fatal, false},
		{"fatal after moves", &organizer.Result{Stats: organizer.Stats{"Documents": 2}}, fatal, true},
		{"fatal with failures", &organizer.Result{
			Stats:    organizer.Stats{},
			Failures: []organizer.FileFailure{{Name: "a.txt", Operation: "move", Err: perFile}},
		}, fatal, true},
		{"cancelled", &organizer.Result{Stats: organizer.Stats{}, Cancelled: true}, errors.New("context canceled"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := shouldReportOrganize(tc.result, tc.err); got != tc.want {
				t.Fatalf("shouldReportOrganize = %v, want %v", got, tc.want)
			}
		})
	}
}
