package flowpipe

import (
	"errors"
	"fmt"
)

// Namespace prefixes every sentinel error's message for easy grepping in logs.
const Namespace = "flowpipe"

var (
	// ErrDisposed is raised on a pending or later Emit whose EmitSource is
	// disposed before the value is taken. Continue on a disposed pipeline
	// does not return it: it reports end-of-stream (ok false, nil error).
	ErrDisposed = errors.New(Namespace + ": source disposed")

	// ErrCancelled is raised from Continue when its cancellation token
	// fires while the call is suspended. It is local: it never propagates
	// across the stream, and the channel remains usable afterwards.
	ErrCancelled = errors.New(Namespace + ": continue cancelled")

	// ErrEmitAfterTerminal is a programming error: emit was called after
	// the source already completed or errored.
	ErrEmitAfterTerminal = errors.New(Namespace + ": emit after complete or error")

	// ErrDoubleTerminal is a programming error: complete or error called
	// twice, or called after the other, on the same EmitSource.
	ErrDoubleTerminal = errors.New(Namespace + ": source already in a terminal state")

	// ErrConcurrentContinue is a programming error: two goroutines called
	// Continue on the same Pipeline at the same time.
	ErrConcurrentContinue = errors.New(Namespace + ": concurrent Continue calls on one pipeline")

	// FlatMapStop is the distinguished sentinel a FlatMapFunc returns to end
	// the flatMap stream early (spec.md §4.5): the items already yielded in
	// that invocation are still forwarded, then the stream completes and
	// upstream is disposed, exactly as if upstream itself had ended.
	FlatMapStop = errors.New(Namespace + ": flatMap stop")
)

// StreamError wraps a failure that an operator task observed itself, such
// as a failed fn call in Concurrent or FlatMap. A value passed to
// Emitter.Error is propagated as given, not wrapped. It carries optional
// correlation metadata (which upstream index, if any,
// produced the failure) the way the teacher's error_tagging.go attaches
// task identity to worker-pool failures.
type StreamError struct {
	Cause    error
	Index    int // -1 when no upstream index applies
	HasIndex bool
}

// NewStreamError wraps cause as a StreamError with no index correlation.
func NewStreamError(cause error) *StreamError {
	return &StreamError{Cause: cause, Index: -1}
}

// NewIndexedStreamError wraps cause as a StreamError correlated to the
// upstream value at idx (used by Concurrent and FlatMap to report which
// in-flight item failed).
func NewIndexedStreamError(cause error, idx int) *StreamError {
	return &StreamError{Cause: cause, Index: idx, HasIndex: true}
}

func (e *StreamError) Error() string {
	if e.HasIndex {
		return fmt.Sprintf("%s: item %d: %v", Namespace, e.Index, e.Cause)
	}
	return fmt.Sprintf("%s: %v", Namespace, e.Cause)
}

func (e *StreamError) Unwrap() error { return e.Cause }

// SourceIndex returns the upstream index correlated with e, if any.
func SourceIndex(err error) (int, bool) {
	var se *StreamError
	if errors.As(err, &se) && se.HasIndex {
		return se.Index, true
	}
	return 0, false
}
