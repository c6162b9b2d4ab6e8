package flowpipe

import "context"

// Operator is a Pipeline[A] -> Pipeline[B] transform (spec.md §4.3).
// Stateless at the type level: any per-stream state lives inside the task
// an operator spawns when applied, so that two applications of the same
// Operator value to two different pipelines never interfere.
type Operator[A, B any] func(*Pipeline[A]) *Pipeline[B]

// spawnOperator is the standard implementation shape every trivial and
// non-trivial operator in this package builds on (spec.md §4.3): create a
// new Subject, spawn a goroutine that drives upstream via Continue and
// writes downstream via Emit/Complete/Error, and dispose upstream as
// soon as downstream disposal is observed.
//
// run receives the upstream pipeline and the freshly created downstream
// Subject; it owns the read/transform/write loop and must return when
// upstream ends, downstream errors, or downstream is disposed.
func spawnOperator[A, B any](up *Pipeline[A], opts []Option, run func(*Pipeline[A], *Subject[B])) *Pipeline[B] {
	sub := NewSubject[B](opts...)
	go run(up, sub)
	return sub.AsPipeline()
}

// downstreamDisposed is a small helper operators poll between upstream
// reads: once the consumer has walked away, further work is wasted and
// upstream must be disposed promptly (spec.md §4.3 rule 3).
func downstreamDisposed[B any](sub *Subject[B]) bool {
	return sub.IsDisposed()
}

// disposalContext returns a context that is cancelled the moment sub is
// disposed, so an operator's blocking Continue(ctx) on its upstream wakes
// promptly on downstream abandonment rather than only on its own next
// value arrival. The cancellation this produces is always attributable
// to disposal (never user cancellation), since nothing else cancels it.
func disposalContext[B any](sub *Subject[B]) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-sub.Disposed():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}
