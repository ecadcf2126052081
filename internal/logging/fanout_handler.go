package logging

import (
	"context"
	"errors"
	"log/slog"
	"slices"
)

// teeHandler delivers each record to every sink whose level admits it. The
// console and the JSON log file are the usual pair; each keeps its own level.
type teeHandler struct {
	sinks []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) slog.Handler {
	sinks := slices.DeleteFunc(slices.Clone(handlers), func(h slog.Handler) bool { return h == nil })
	switch len(sinks) {
	case 0:
		return NoopHandler{}
	case 1:
		return sinks[0]
	default:
		return &teeHandler{sinks: sinks}
	}
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(h.sinks, func(s slog.Handler) bool { return s.Enabled(ctx, level) })
}

// Handle writes to all admitting sinks and reports every sink failure, so a
// full disk under the log directory does not hide console errors.
func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, sink := range h.sinks {
		if !sink.Enabled(ctx, record.Level) {
			continue
		}
		if err := sink.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.each(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.each(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (h *teeHandler) each(fn func(slog.Handler) slog.Handler) *teeHandler {
	next := make([]slog.Handler, len(h.sinks))
	for i, sink := range h.sinks {
		next[i] = fn(sink)
	}
	return &teeHandler{sinks: next}
}

// TeeLogger returns a logger writing to base's handler and to every extra
// sink. A nil base yields a logger over the extras alone.
func TeeLogger(base *slog.Logger, extra ...slog.Handler) *slog.Logger {
	sinks := extra
	if base != nil {
		sinks = append([]slog.Handler{base.Handler()}, extra...)
	}
	return slog.New(newFanoutHandler(sinks...))
}
