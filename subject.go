package flowpipe

// Subject is the producer-facing handle around an emitSource (spec.md
// §3-4.2). Emit delivers a value; Complete and Error mark the stream
// terminal; AsPipeline derives the single consumer-facing Pipeline.
//
// At most one Pipeline can usefully be derived from a plain Subject — it
// is a single-producer/single-consumer channel. Share lifts that
// restriction via multicast.
type Subject[V any] struct {
	src *emitSource[V]
}

// NewSubject creates a Subject ready to Emit into.
func NewSubject[V any](opts ...Option) *Subject[V] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Subject[V]{src: newEmitSource[V](cfg)}
}

// Emit delivers v downstream, blocking until it is taken (or safely
// buffered within the configured bound). See emitSource.Emit for the
// full contract, including its terminal-state behavior.
func (s *Subject[V]) Emit(v V) error {
	return s.src.Emit(v)
}

// Yield is Emit spelled the way a generator-style producer task calls it:
// `yield v` in the spec's coroutine model is exactly `Emit(v)` awaited.
// It panics if Emit reports a programming error (emit after a terminal
// state reached via Complete/Error, which the caller should never race
// against its own Complete/Error calls from the same goroutine).
func (s *Subject[V]) Yield(v V) error {
	return s.Emit(v)
}

// Complete marks the stream terminal-normal.
func (s *Subject[V]) Complete() { s.src.Complete() }

// Error marks the stream terminal-error.
func (s *Subject[V]) Error(e error) { s.src.Error(e) }

// IsComplete reports whether Complete was called.
func (s *Subject[V]) IsComplete() bool { return s.src.isCompleted() }

// IsDisposed reports whether the consumer side disposed the stream.
func (s *Subject[V]) IsDisposed() bool { return s.src.isDisposed() }

// Disposed returns a channel that closes exactly once the consumer side
// disposes the stream.
func (s *Subject[V]) Disposed() <-chan struct{} { return s.src.disposedCh }

// AsPipeline returns the consumer-facing Pipeline over this Subject's
// emitSource. Calling it more than once returns independent handles over
// the same single-consumer channel; only one should actually be driven.
func (s *Subject[V]) AsPipeline() *Pipeline[V] {
	return newPipeline[V](s.src)
}

// Emitter is an alias for Subject emphasizing the producer-only surface
// (spec.md §6 names both Subject and Emitter as the exposed producer
// API; they are the same type here).
type Emitter[V any] = Subject[V]
