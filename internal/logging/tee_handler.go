package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// teeHandler delivers every record to primary and copies it into the sinks.
// A failing sink never fails the primary; lost sink writes are counted in
// dropped so the owner can report them once.
type teeHandler struct {
	primary slog.Handler
	sinks   []slog.Handler
	dropped *atomic.Int64
}

func newTeeHandler(primary slog.Handler, dropped *atomic.Int64, sinks ...slog.Handler) slog.Handler {
	kept := make([]slog.Handler, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	if primary == nil {
		primary = NoopHandler{}
	}
	if len(kept) == 0 {
		return primary
	}
	if dropped == nil {
		dropped = new(atomic.Int64)
	}
	return &teeHandler{primary: primary, sinks: kept, dropped: dropped}
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.primary.Enabled(ctx, level) {
		return true
	}
	for _, s := range h.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, s := range h.sinks {
		if !s.Enabled(ctx, record.Level) {
			continue
		}
		if err := s.Handle(ctx, record.Clone()); err != nil {
			h.dropped.Add(1)
		}
	}
	if !h.primary.Enabled(ctx, record.Level) {
		return nil
	}
	return h.primary.Handle(ctx, record)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (h *teeHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	sinks := make([]slog.Handler, len(h.sinks))
	for i, s := range h.sinks {
		sinks[i] = fn(s)
	}
	return &teeHandler{primary: fn(h.primary), sinks: sinks, dropped: h.dropped}
}

// TeeLogger returns a logger that writes through base and copies each record
// into sinks.
func TeeLogger(base *slog.Logger, sinks ...slog.Handler) *slog.Logger {
	var primary slog.Handler
	if base != nil {
		primary = base.Handler()
	}
	return slog.New(newTeeHandler(primary, nil, sinks...))
}
