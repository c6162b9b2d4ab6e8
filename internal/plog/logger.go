// Package plog defines the logging collaborator threaded through Option.
// It mirrors the shape of github.com/ezex-io/gopkg/logger (a minimal
// interface backed by log/slog) with one deliberate difference: a library
// must never terminate the host process, so there is no Fatal here.
package plog

// Logger is the interface flowpipe components log through. flowpipe
// itself logs only at Debug, once per terminal transition of an
// EmitSource (complete, error, dispose); Warn and Error are part of the
// interface but flowpipe does not call them.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a Logger with additional context fields attached,
	// e.g. l.With("operator", "concurrent").
	With(args ...any) Logger
}

// Noop discards everything. It is the default logger so the library is
// silent unless a caller opts in via WithLogger.
type Noop struct{}

func (Noop) Debug(string, ...any)  {}
func (Noop) Warn(string, ...any)   {}
func (Noop) Error(string, ...any)  {}
func (Noop) With(...any) Logger    { return Noop{} }
