package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("disk full")
}

func (f failingHandler) WithAttrs([]slog.Attr) slog.Handler { return f }

func (f failingHandler) WithGroup(string) slog.Handler { return f }

func TestNewTeeHandlerWithoutSinks(t *testing.T) {
	var buf bytes.Buffer
	primary := newPrettyHandler(&buf, slog.LevelInfo, false)
	if h := newTeeHandler(primary, nil, nil, nil); h != primary {
		t.Fatal("expected primary returned unwrapped when there are no sinks")
	}
	if _, ok := newTeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler without primary or sinks")
	}
}

func TestTeeHandlerRespectsPerHandlerLevel(t *testing.T) {
	var console, file bytes.Buffer
	h := newTeeHandler(
		newPrettyHandler(&console, slog.LevelWarn, false),
		nil,
		newPrettyHandler(&file, slog.LevelDebug, false),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected tee enabled for debug when the run log accepts it")
	}

	logger := slog.New(h)
	logger.Debug("debug only")
	logger.Warn("both")

	if strings.Contains(console.String(), "debug only") {
		t.Fatalf("console received debug record: %q", console.String())
	}
	if !strings.Contains(file.String(), "debug only") || !strings.Contains(file.String(), "both") {
		t.Fatalf("run log missing records: %q", file.String())
	}
	if !strings.Contains(console.String(), "both") {
		t.Fatalf("console missing warning: %q", console.String())
	}
}

func TestTeeHandlerCountsSinkFailures(t *testing.T) {
	var console bytes.Buffer
	var dropped atomic.Int64
	sink := failingHandler{newPrettyHandler(&bytes.Buffer{}, slog.LevelInfo, false)}
	logger := slog.New(newTeeHandler(newPrettyHandler(&console, slog.LevelInfo, false), &dropped, sink)).
		With(String(FieldComponent, "organizer"))

	logger.Info("moved file")
	logger.Info("moved file")

	if got := dropped.Load(); got != 2 {
		t.Fatalf("dropped = %d, want 2", got)
	}
	if strings.Count(console.String(), "moved file") != 2 {
		t.Fatalf("console should be unaffected by sink failures: %q", console.String())
	}
}

func TestTeeLoggerCarriesAttrs(t *testing.T) {
	var baseBuf, teeBuf bytes.Buffer
	base := slog.New(newJSONHandler(&baseBuf, slog.LevelInfo, false))
	logger := TeeLogger(base, newPrettyHandler(&teeBuf, slog.LevelInfo, false)).
		With(String(FieldComponent, "organizer"))

	logger.Info("teed message", String(FieldFile, "report.pdf"))

	if !strings.Contains(baseBuf.String(), `"component":"organizer"`) {
		t.Fatalf("expected component in JSON output, got %q", baseBuf.String())
	}
	if !strings.Contains(teeBuf.String(), "[organizer]") || !strings.Contains(teeBuf.String(), "file: report.pdf") {
		t.Fatalf("expected component and file in console output, got %q", teeBuf.String())
	}
}

func TestTeeLoggerNilBase(t *testing.T) {
	var teeBuf bytes.Buffer
	logger := TeeLogger(nil, newPrettyHandler(&teeBuf, slog.LevelInfo, false))
	logger.Info("no base")
	if teeBuf.Len() == 0 {
		t.Fatal("expected output in tee buffer")
	}
}
