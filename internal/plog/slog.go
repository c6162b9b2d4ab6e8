package plog

import (
	"io"
	"log/slog"
	"os"
)

// Slog adapts a *slog.Logger to the Logger interface.
type Slog struct {
	log *slog.Logger
}

// Handler builds the underlying *slog.Logger for a Slog instance.
type Handler func() *slog.Logger

// NewSlog constructs a Slog logger. A nil handler falls back to a text
// handler on os.Stderr at info level, matching the teacher's DefaultSlog.
func NewSlog(handler Handler) *Slog {
	if handler == nil {
		handler = WithTextHandler(os.Stderr, slog.LevelInfo)
	}
	return &Slog{log: handler()}
}

// WithTextHandler returns a Handler producing text-formatted output.
func WithTextHandler(w io.Writer, level slog.Level) Handler {
	return func() *slog.Logger {
		if w == nil {
			w = os.Stderr
		}
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	}
}

// WithJSONHandler returns a Handler producing JSON-formatted output.
func WithJSONHandler(w io.Writer, level slog.Level) Handler {
	return func() *slog.Logger {
		if w == nil {
			w = os.Stderr
		}
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
}

func (s *Slog) Debug(msg string, args ...any) { s.log.Debug(msg, args...) }
func (s *Slog) Warn(msg string, args ...any)  { s.log.Warn(msg, args...) }
func (s *Slog) Error(msg string, args ...any) { s.log.Error(msg, args...) }

func (s *Slog) With(args ...any) Logger {
	return &Slog{log: s.log.With(args...)}
}
