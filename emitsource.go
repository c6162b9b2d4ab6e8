package flowpipe

import (
	"context"
	"sync"
	"sync/atomic"
)

// emitSource is the buffered, backpressured hand-off channel underlying a
// Pipeline/Subject pair (spec.md §3). It mediates a single-producer,
// single-consumer exchange: emit/complete/error on the producer side,
// continue/dispose on the consumer side.
//
// Invariant maintained throughout: at most one of {completed, errored,
// disposed} is ever true, and once true it is permanent. When bufferBound
// is 0 (the default), len(waitingEmits) > 0 implies len(buffer) == 0 —
// producer and consumer never both wait. With bufferBound > 0 the
// analogous invariant is len(waitingEmits) > 0 implies len(buffer) ==
// bufferBound. The one exception is a value requeued at the front of
// buffer by a cancelled Continue, which may take buffer one past the
// bound until the next Continue takes it.
type emitSource[V any] struct {
	mu sync.Mutex

	bufferBound int
	buffer      []V

	waitingConsumer *consumerWaiter[V]
	waitingEmits    []*emitWaiter[V]

	completed bool
	errored   bool
	disposed  bool
	err       error

	consumerBusy int32 // atomic flag enforcing single-consumer Continue

	disposedCh chan struct{} // closed exactly once, by Dispose

	obs observability
}

type consumerWaiter[V any] struct {
	resultCh chan consumerResult[V]
}

type consumerResult[V any] struct {
	val V
	ok  bool
	err error
}

type emitWaiter[V any] struct {
	val    V
	doneCh chan error
}

func newEmitSource[V any](cfg config) *emitSource[V] {
	return &emitSource[V]{
		bufferBound: cfg.bufferSize,
		disposedCh:  make(chan struct{}),
		obs:         newObservability(cfg),
	}
}

// Emit delivers v to the consumer side. It blocks until v has been taken
// (bufferBound == 0) or safely enqueued within the configured bound,
// returning ErrDisposed if the source is disposed before that happens. A
// caller that does not want to block should run Emit in its own
// goroutine — that is the Go idiom for the spec's "future<void>".
//
// Emitting after Complete or Error is a programming error and panics with
// ErrEmitAfterTerminal, the same way a second Complete/Error call panics
// with ErrDoubleTerminal: a producer that raced its own terminal call has a
// bug, not a recoverable condition.
func (s *emitSource[V]) Emit(v V) error {
	s.mu.Lock()

	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.errored || s.completed {
		s.mu.Unlock()
		panic(ErrEmitAfterTerminal)
	}

	if s.waitingConsumer != nil {
		wc := s.waitingConsumer
		s.waitingConsumer = nil
		s.mu.Unlock()
		wc.resultCh <- consumerResult[V]{val: v, ok: true}
		s.obs.emitted.Add(1)
		s.obs.taken.Add(1)
		return nil
	}

	if len(s.buffer) < s.bufferBound {
		s.buffer = append(s.buffer, v)
		s.mu.Unlock()
		s.obs.emitted.Add(1)
		s.obs.buffered.Add(1)
		return nil
	}

	w := &emitWaiter[V]{val: v, doneCh: make(chan error, 1)}
	s.waitingEmits = append(s.waitingEmits, w)
	s.mu.Unlock()

	err := <-w.doneCh
	if err == nil {
		s.obs.emitted.Add(1)
	}
	return err
}

// Complete marks the source terminal-normal. Continue will drain any
// buffered (or suspended-emit) values first, then yield end-of-stream.
// Double-complete, or complete after error, is a programming error.
func (s *emitSource[V]) Complete() {
	s.mu.Lock()
	if s.completed || s.errored || s.disposed {
		s.mu.Unlock()
		panic(ErrDoubleTerminal)
	}
	s.completed = true

	wc := s.waitingConsumer
	hasWork := len(s.buffer) > 0 || len(s.waitingEmits) > 0
	if wc != nil && !hasWork {
		s.waitingConsumer = nil
	} else {
		wc = nil
	}
	s.mu.Unlock()

	s.obs.terminal.Add(1)
	s.obs.log.Debug("complete")

	if wc != nil {
		wc.resultCh <- consumerResult[V]{ok: false, err: nil}
	}
}

// Error marks the source terminal-error. Any currently suspended consumer
// resumes with e, and every pending Emit future rejects with e. Calling
// Error on an already-terminal source is a programming error.
func (s *emitSource[V]) Error(e error) {
	s.mu.Lock()
	if s.completed || s.errored || s.disposed {
		s.mu.Unlock()
		panic(ErrDoubleTerminal)
	}
	s.errored = true
	s.err = e

	wc := s.waitingConsumer
	s.waitingConsumer = nil

	pending := s.waitingEmits
	s.waitingEmits = nil
	s.mu.Unlock()

	s.obs.terminal.Add(1)
	s.obs.log.Debug("error", "cause", e)

	if wc != nil {
		wc.resultCh <- consumerResult[V]{ok: false, err: e}
	}
	for _, w := range pending {
		w.doneCh <- e
	}
}

// Dispose marks the source disposed: a consumer-initiated abandonment.
// Any suspended consumer resumes with end-of-stream; every pending and
// future Emit rejects with ErrDisposed. Idempotent.
func (s *emitSource[V]) Dispose() {
	s.mu.Lock()
	if s.completed || s.errored || s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true

	wc := s.waitingConsumer
	s.waitingConsumer = nil

	pending := s.waitingEmits
	s.waitingEmits = nil
	close(s.disposedCh)
	s.mu.Unlock()

	s.obs.terminal.Add(1)
	s.obs.log.Debug("dispose")

	if wc != nil {
		wc.resultCh <- consumerResult[V]{ok: false, err: nil}
	}
	for _, w := range pending {
		w.doneCh <- ErrDisposed
	}
}

// Continue returns the next value. It returns (zero, false, nil) once
// terminal and drained, (zero, false, err) if terminal-error, and
// (zero, false, ErrCancelled) if ctx fires while suspended — a value
// that arrives concurrently with such a cancellation is preserved for
// the next Continue call, never dropped.
func (s *emitSource[V]) Continue(ctx context.Context) (V, bool, error) {
	var zero V

	if !atomic.CompareAndSwapInt32(&s.consumerBusy, 0, 1) {
		panic(ErrConcurrentContinue)
	}
	defer atomic.StoreInt32(&s.consumerBusy, 0)

	s.mu.Lock()

	if s.errored {
		err := s.err
		s.mu.Unlock()
		return zero, false, err
	}
	if s.disposed {
		s.mu.Unlock()
		return zero, false, nil
	}
	if v, ok := s.takeBufferedLocked(); ok {
		s.mu.Unlock()
		s.obs.taken.Add(1)
		return v, true, nil
	}
	if s.completed {
		s.mu.Unlock()
		return zero, false, nil
	}

	wc := &consumerWaiter[V]{resultCh: make(chan consumerResult[V], 1)}
	s.waitingConsumer = wc
	s.mu.Unlock()

	select {
	case res := <-wc.resultCh:
		if res.ok {
			s.obs.taken.Add(1)
			return res.val, true, nil
		}
		return zero, false, res.err

	case <-ctx.Done():
		s.mu.Lock()
		if s.waitingConsumer == wc {
			s.waitingConsumer = nil
			s.mu.Unlock()
			return zero, false, ErrCancelled
		}
		s.mu.Unlock()

		// A producer (or a terminal transition) already won the race and
		// is sending into resultCh concurrently with our cancellation.
		// Preserve any delivered value for the next Continue call instead
		// of dropping it; terminal signals need no replay since the
		// terminal flags already persist the state.
		res := <-wc.resultCh
		if res.ok {
			s.mu.Lock()
			s.buffer = append([]V{res.val}, s.buffer...)
			s.mu.Unlock()
			s.obs.buffered.Add(1)
		}
		return zero, false, ErrCancelled
	}
}

// takeBufferedLocked pops the front of buffer (or, if empty, rendezvous
// with the first waiting emitter) and reports whether a value was taken.
// Called with s.mu held; never unlocks.
func (s *emitSource[V]) takeBufferedLocked() (V, bool) {
	var zero V

	if len(s.buffer) > 0 {
		v := s.buffer[0]
		s.buffer = s.buffer[1:]
		s.promoteNextEmitLocked()
		return v, true
	}

	if len(s.waitingEmits) > 0 {
		w := s.waitingEmits[0]
		s.waitingEmits = s.waitingEmits[1:]
		v := w.val
		// doneCh has capacity 1 and only this call ever sends to it, so
		// this cannot block even while s.mu is held.
		w.doneCh <- nil
		return v, true
	}

	return zero, false
}

// promoteNextEmitLocked moves the next suspended emitter's value into the
// just-freed buffer slot, honoring FIFO fairness for suspended emits.
// Called with s.mu held.
func (s *emitSource[V]) promoteNextEmitLocked() {
	if len(s.waitingEmits) == 0 {
		return
	}
	if len(s.buffer) >= s.bufferBound {
		return
	}
	w := s.waitingEmits[0]
	s.waitingEmits = s.waitingEmits[1:]
	s.buffer = append(s.buffer, w.val)
	s.obs.buffered.Add(1)
	w.doneCh <- nil
}

// isCompleted, isErrored, isDisposed report observational terminal state.
func (s *emitSource[V]) isCompleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

func (s *emitSource[V]) isDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

func (s *emitSource[V]) isConsumed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	drained := len(s.buffer) == 0 && len(s.waitingEmits) == 0
	return drained && (s.completed || s.errored)
}
