package logger

import (
	"context"
	"errors"
	"log/slog"
)

// fanout hands every record to each handler that accepts its level.
type fanout []slog.Handler

// Multi returns a logger writing every record through the handlers of all
// loggers, e.g. a terminal logger and a JSON log file. A failing handler
// does not keep the record from the others; Handle reports the joined
// errors.
func Multi(loggers ...*slog.Logger) *slog.Logger {
	f := make(fanout, len(loggers))
	for i, l := range loggers {
		f[i] = l.Handler()
	}
	return slog.New(f)
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	children := make(fanout, len(f))
	for i, h := range f {
		children[i] = fn(h)
	}
	return children
}
