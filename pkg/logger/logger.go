// Package logger builds the *slog.Logger every fleet component takes. It
// only decides which handler backs the logger; components log through slog.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level  slog.Level
	format Format
	source bool
	w      io.Writer
}

// New builds a *slog.Logger. Without options it is a text logger at Info
// level writing to os.Stdout.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:  slog.LevelInfo,
		format: FormatText,
		w:      os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}

	return slog.New(c.handler())
}

func (c *config) handler() slog.Handler {
	switch c.format {
	case FormatPretty:
		return charmlog.NewWithOptions(c.w, charmlog.Options{
			Level:           charmlog.Level(c.level),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			ReportCaller:    c.source,
		})

	case FormatJSON:
		return slog.NewJSONHandler(c.w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		})

	default:
		return slog.NewTextHandler(c.w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		})
	}
}

// Nop returns a logger that discards every record. Components default to it
// when no logger is configured.
func Nop() *slog.Logger {
	return slog.New(discard{})
}

type discard struct{}

func (discard) Enabled(context.Context, slog.Level) bool  { return false }
func (discard) Handle(context.Context, slog.Record) error { return nil }
func (d discard) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discard) WithGroup(string) slog.Handler           { return d }
