package flowpipe

import (
	"context"
	"sync"
	"time"

	"github.com/corestream/flowpipe/internal/gate"
	"github.com/corestream/flowpipe/metrics"
)

// concurrentResult carries one worker's outcome back to the consumer
// goroutine, tagged with the upstream index it came from so ordered mode
// can restore emission order (teacher's reorderer.go completionEvent).
type concurrentResult[B any] struct {
	idx int
	val B
	err error
}

// ConcurrentUnordered applies fn to every upstream value with up to
// parallelism in-flight calls at once, forwarding results downstream in
// whatever order they complete (spec.md §5's concurrent operator,
// unordered variant). parallelism <= 0 is treated as 1.
func ConcurrentUnordered[A, B any](parallelism int, fn func(context.Context, A) (B, error), opts ...Option) Operator[A, B] {
	return func(up *Pipeline[A]) *Pipeline[B] {
		return spawnOperator(up, opts, func(up *Pipeline[A], sub *Subject[B]) {
			runConcurrent(up, sub, parallelism, fn, false, opts)
		})
	}
}

// ConcurrentOrdered is ConcurrentUnordered's order-preserving sibling: a
// result for upstream item i is never forwarded before the result for
// item i-1, even though fn calls for both may run, and finish, out of
// order (grounded on the teacher's reorderer.go/preserve_order.go).
func ConcurrentOrdered[A, B any](parallelism int, fn func(context.Context, A) (B, error), opts ...Option) Operator[A, B] {
	return func(up *Pipeline[A]) *Pipeline[B] {
		return spawnOperator(up, opts, func(up *Pipeline[A], sub *Subject[B]) {
			runConcurrent(up, sub, parallelism, fn, true, opts)
		})
	}
}

// ConcurrentOrderedPipe and ConcurrentUnorderedPipe are the
// `concurrentOrdered(sem, ops…)` / `concurrentUnordered(sem, ops…)`
// factories from spec.md §6, taking a parallelism count in place of a
// semaphore: each in-flight upstream value is threaded
// through its own private instance of the ops chain (a fresh Subject
// feeding a fresh Pipeline per item), so a stateful operator such as
// Take never sees more than one item's worth of state at a time. They
// are built on ConcurrentOrderedPipe's more general sibling
// ConcurrentOrdered/ConcurrentUnordered, which most Go callers use
// directly with a plain function instead of an operator chain.
func ConcurrentOrderedPipe[V any](parallelism int, ops []Operator[V, V], opts ...Option) Operator[V, V] {
	return ConcurrentOrdered[V, V](parallelism, chainFunc(ops), opts...)
}

func ConcurrentUnorderedPipe[V any](parallelism int, ops []Operator[V, V], opts ...Option) Operator[V, V] {
	return ConcurrentUnordered[V, V](parallelism, chainFunc(ops), opts...)
}

// chainFunc runs v through a private instance of ops, returning its sole
// output. An op such as Filter that drops v yields the zero value with no
// error; Concurrent's one-result-per-item model treats that as "nothing
// to forward" only in the sense that the zero value is emitted — callers
// that compose a dropping operator into a chain under Concurrent should
// prefer FlatMap when variable output counts matter.
func chainFunc[V any](ops []Operator[V, V]) func(context.Context, V) (V, error) {
	return func(ctx context.Context, v V) (V, error) {
		var zero V

		sub := NewSubject[V]()
		cur := sub.AsPipeline()
		for _, op := range ops {
			cur = op(cur)
		}

		go func() {
			if err := sub.Emit(v); err == nil {
				sub.Complete()
			}
		}()

		out, ok, err := cur.Continue(ctx)
		if err != nil {
			return zero, err
		}
		cur.Dispose()
		if !ok {
			return zero, nil
		}
		return out, nil
	}
}

// runConcurrent is the shared engine behind both variants: a fixed pool of
// parallelism permits (internal/gate.Semaphore, grounded on the teacher's
// pool.Pool/pool.fixed pre-allocated-capacity shape per SPEC_FULL.md's
// Open Questions) bounds how many fn calls run at once. One goroutine
// reads upstream and dispatches workers; a second drains their results,
// applies ordering if requested, and forwards downstream. The two run
// concurrently so dispatch never stalls waiting for a slow downstream
// consumer to take an earlier, already-ordered result.
func runConcurrent[A, B any](up *Pipeline[A], sub *Subject[B], parallelism int, fn func(context.Context, A) (B, error), ordered bool, opts []Option) {
	if parallelism <= 0 {
		parallelism = 1
	}
	sem := gate.NewWeighted(parallelism)

	cfg := resolveConfig(opts)
	attrs := metrics.WithAttributes(map[string]string{"name": cfg.name})
	inFlight := cfg.provider.UpDownCounter("flowpipe_concurrent_inflight", attrs)
	latency := cfg.provider.Histogram("flowpipe_concurrent_latency_seconds", attrs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-sub.Disposed():
			cancel()
		case <-ctx.Done():
		}
	}()

	results := make(chan concurrentResult[B])
	var wg sync.WaitGroup
	var readErr error

	// dispatch: pulls from upstream and spawns one goroutine per accepted
	// item, gated by sem. Runs on the current goroutine.
	dispatch := func() {
		idx := 0
		for {
			v, ok, err := up.Continue(ctx)
			if err != nil {
				if err != ErrCancelled {
					readErr = err
				}
				break
			}
			if !ok {
				break
			}

			permit, perr := sem.Acquire(ctx)
			if perr != nil {
				break
			}

			wg.Add(1)
			myIdx := idx
			idx++
			item := v
			go func() {
				defer wg.Done()

				inFlight.Add(1)
				start := time.Now()
				b, err := fn(ctx, item)
				latency.Record(time.Since(start).Seconds())
				inFlight.Add(-1)

				// Release the permit as soon as fn returns, before the
				// possibly-blocking send below: a slow downstream consumer
				// stalling the ordered forwarder must never also stall the
				// dispatcher from admitting new work (spec.md §4.4 step 1).
				permit.Release()

				select {
				case results <- concurrentResult[B]{idx: myIdx, val: b, err: err}:
				case <-ctx.Done():
				}
			}()
		}
		wg.Wait()
		close(results)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		errDelivered := false
		forward := func(r concurrentResult[B]) {
			if errDelivered || downstreamDisposed(sub) {
				cancel()
				return
			}
			if r.err != nil {
				errDelivered = true
				sub.Error(NewIndexedStreamError(r.err, r.idx))
				cancel()
				return
			}
			if err := sub.Emit(r.val); err != nil {
				cancel()
			}
		}

		if !ordered {
			for r := range results {
				forward(r)
			}
		} else {
			next := 0
			pending := make(map[int]concurrentResult[B])
			for r := range results {
				pending[r.idx] = r
				for {
					rr, ok := pending[next]
					if !ok {
						break
					}
					delete(pending, next)
					next++
					forward(rr)
				}
			}
		}

		if !errDelivered && !sub.IsDisposed() {
			if readErr != nil {
				sub.Error(readErr)
			} else {
				sub.Complete()
			}
		}
		up.Dispose()
	}()

	dispatch()
	<-done
}
