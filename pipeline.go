package flowpipe

import "context"

// Pipeline is the consumer-facing handle around an emitSource: a finite,
// single-pass lazy sequence of values with cancellation and disposal
// affordances (spec.md §3-4.2).
//
// A Pipeline has at most one active consumer: concurrent Continue calls
// on the same Pipeline panic with ErrConcurrentContinue rather than being
// silently serialized (SPEC_FULL.md's Open Questions resolves this in
// favor of detect-and-fail).
type Pipeline[V any] struct {
	src *emitSource[V]
}

func newPipeline[V any](src *emitSource[V]) *Pipeline[V] {
	return &Pipeline[V]{src: src}
}

// Continue returns the next value. ok is false once the stream has ended,
// whether by normal completion or disposal; err is non-nil only when the
// stream ended with an error, or when ctx fired while Continue was
// suspended waiting for a value (ErrCancelled). ctx may be nil, which is
// equivalent to context.Background().
func (p *Pipeline[V]) Continue(ctx context.Context) (V, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return p.src.Continue(ctx)
}

// Dispose signals upstream abandonment: the producer is told no more
// values will be taken. Idempotent.
func (p *Pipeline[V]) Dispose() {
	p.src.Dispose()
}

// IsComplete reports whether the pipeline ended normally.
func (p *Pipeline[V]) IsComplete() bool { return p.src.isCompleted() }

// IsDisposed reports whether the pipeline was disposed.
func (p *Pipeline[V]) IsDisposed() bool { return p.src.isDisposed() }

// IsConsumed reports whether every emitted value has been delivered and a
// terminal state (complete or error) has been reached.
func (p *Pipeline[V]) IsConsumed() bool { return p.src.isConsumed() }

// Disposed returns a channel that closes exactly once, when Dispose takes
// effect. Dispose on a pipeline that already completed or errored does
// nothing, so the channel then stays open. Operators select on it to react to downstream abandonment
// without having to poll IsDisposed between blocking operations.
func (p *Pipeline[V]) Disposed() <-chan struct{} { return p.src.disposedCh }

// Pipe applies operators left to right: p.Pipe(a, b) is equivalent to
// b(a(p)). Composition is associative:
// p.Pipe(a, b).Pipe(c) == p.Pipe(a).Pipe(b, c) == p.Pipe(a, b, c).
func (p *Pipeline[V]) Pipe(ops ...Operator[V, V]) *Pipeline[V] {
	cur := p
	for _, op := range ops {
		cur = op(cur)
	}
	return cur
}

// PipeTo applies a single operator that changes the element type. Go's
// lack of variadic heterogeneous generics means a chain across types is
// built with nested calls, e.g. PipeTo(p, toString) rather than a single
// variadic Pipe: this is the documented escape hatch for that case.
func PipeTo[A, B any](p *Pipeline[A], op Operator[A, B]) *Pipeline[B] {
	return op(p)
}

// Each drains p, calling fn for every value, until end-of-stream. It
// returns the stream's error, if any. ctx may be nil.
func Each[V any](ctx context.Context, p *Pipeline[V], fn func(V)) error {
	for {
		v, ok, err := p.Continue(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		fn(v)
	}
}

// Reduce folds p into a single accumulator, starting from init.
func Reduce[V, A any](ctx context.Context, p *Pipeline[V], init A, fn func(A, V) A) (A, error) {
	acc := init
	err := Each(ctx, p, func(v V) { acc = fn(acc, v) })
	return acc, err
}

// ToArray collects every value of p into a slice, in emission order.
func ToArray[V any](ctx context.Context, p *Pipeline[V]) ([]V, error) {
	var out []V
	err := Each(ctx, p, func(v V) { out = append(out, v) })
	return out, err
}

// Discard drains p without retaining values, returning the count of
// values seen before termination.
func Discard[V any](ctx context.Context, p *Pipeline[V]) (int, error) {
	n := 0
	err := Each(ctx, p, func(V) { n++ })
	return n, err
}
