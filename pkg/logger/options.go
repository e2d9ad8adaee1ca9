package logger

import (
	"io"
	"log/slog"
)

// Option adjusts the settings New builds a logger from.
type Option func(*settings)

// WithDebug lowers the level to Debug. Info is the default.
func WithDebug(debug bool) Option {
	return func(s *settings) {
		s.level = slog.LevelInfo
		if debug {
			s.level = slog.LevelDebug
		}
	}
}

// WithPretty selects the colorized charmbracelet/log handler meant for
// people watching a terminal.
func WithPretty(pretty bool) Option {
	return func(s *settings) {
		s.pretty = pretty
	}
}

// WithJSON selects slog's JSON handler, for log files and collectors.
func WithJSON(json bool) Option {
	return func(s *settings) {
		s.json = json
	}
}

// WithWriter sends output to every given writer instead of os.Stdout.
func WithWriter(w ...io.Writer) Option {
	return func(s *settings) {
		s.writers = w
	}
}

// WithSource adds the calling file and line to every record.
func WithSource(source bool) Option {
	return func(s *settings) {
		s.source = source
	}
}

// WithComponent tags every record with component=name.
func WithComponent(name string) Option {
	return func(s *settings) {
		s.component = name
	}
}
