package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Format selects the handler behind a logger built with New.
type Format string

const (
	// FormatText is slog's key=value text handler.
	FormatText Format = "text"

	// FormatJSON is slog's JSON handler, one object per record.
	FormatJSON Format = "json"

	// FormatPretty is the colorized charmbracelet/log handler for terminals.
	FormatPretty Format = "pretty"
)

// ParseFormat parses a --log-format value. The empty string is FormatText.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatPretty:
		return f, nil
	default:
		return "", fmt.Errorf("unknown log format %q: use text, json or pretty", s)
	}
}

// Option configures a logger created with New.
type Option func(*config)

// WithDebug lowers the level to Debug.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithFormat selects the handler.
func WithFormat(f Format) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithPretty is WithFormat(FormatPretty) when pretty is set.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		if pretty {
			c.format = FormatPretty
		}
	}
}

// WithJSON is WithFormat(FormatJSON) when json is set.
func WithJSON(json bool) Option {
	return func(c *config) {
		if json {
			c.format = FormatJSON
		}
	}
}

// WithWriter sets the output. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.w = w
	}
}

// WithSource reports the calling file and line.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}
