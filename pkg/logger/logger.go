// Package logger builds the *slog.Logger used across cardstream: colorized
// charmbracelet/log output for terminals, JSON for files, plain slog text
// otherwise.
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type settings struct {
	level     slog.Level
	pretty    bool
	json      bool
	source    bool
	component string
	writers   []io.Writer
}

// New builds a logger from opts. Without options it writes slog text at Info
// level to os.Stdout. Pretty wins over JSON when both are set.
func New(opts ...Option) *slog.Logger {
	s := &settings{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(s)
	}

	l := slog.New(s.handler(s.output()))
	if s.component != "" {
		l = l.With("component", s.component)
	}
	return l
}

func (s *settings) output() io.Writer {
	switch len(s.writers) {
	case 0:
		return os.Stdout
	case 1:
		return s.writers[0]
	default:
		return io.MultiWriter(s.writers...)
	}
}

func (s *settings) handler(w io.Writer) slog.Handler {
	if s.pretty {
		return charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(s.level),
			ReportTimestamp: true,
			ReportCaller:    s.source,
		})
	}

	opts := &slog.HandlerOptions{Level: s.level, AddSource: s.source}
	if s.json {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Nop returns a logger that drops every record.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
