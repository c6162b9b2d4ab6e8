package flowpipe

import (
	"context"
	"sync"
	"time"

	"github.com/corestream/flowpipe/internal/gate"
	"github.com/corestream/flowpipe/metrics"
)

// FlatMapFunc produces zero or more downstream items for one upstream
// value v at index i, handing each to emit in order. Returning
// FlatMapStop ends the flatMap stream early (after any items already
// passed to emit in this call) and disposes upstream; any other non-nil
// error becomes a stream error.
type FlatMapFunc[A, B any] func(ctx context.Context, v A, index int, emit func(B)) error

// flatMapResult carries one invocation's complete output back to the
// consumer goroutine (grounded on the teacher's map_stream.go batch
// result shape), tagged by upstream index for ordered-mode restoration.
type flatMapResult[B any] struct {
	idx   int
	items []B
	err   error
	stop  bool
}

// FlatMapUnordered invokes f for every upstream value, up to parallelism
// invocations at once. The items of one invocation are collected until f
// returns and are then forwarded together, in the order f emitted them;
// invocations are forwarded in whatever order they finish, so items of
// different invocations never interleave.
func FlatMapUnordered[A, B any](parallelism int, f FlatMapFunc[A, B], opts ...Option) Operator[A, B] {
	return func(up *Pipeline[A]) *Pipeline[B] {
		return spawnOperator(up, opts, func(up *Pipeline[A], sub *Subject[B]) {
			runFlatMap(up, sub, parallelism, f, false, opts)
		})
	}
}

// FlatMapOrdered is FlatMapUnordered's order-preserving sibling: items
// produced for upstream index i are all forwarded before any item
// produced for index i+1, regardless of which invocation finishes first.
func FlatMapOrdered[A, B any](parallelism int, f FlatMapFunc[A, B], opts ...Option) Operator[A, B] {
	return func(up *Pipeline[A]) *Pipeline[B] {
		return spawnOperator(up, opts, func(up *Pipeline[A], sub *Subject[B]) {
			runFlatMap(up, sub, parallelism, f, true, opts)
		})
	}
}

func runFlatMap[A, B any](up *Pipeline[A], sub *Subject[B], parallelism int, f FlatMapFunc[A, B], ordered bool, opts []Option) {
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

	results := make(chan flatMapResult[B])
	var wg sync.WaitGroup
	var readErr error

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
				var items []B
				err := f(ctx, item, myIdx, func(b B) { items = append(items, b) })
				latency.Record(time.Since(start).Seconds())
				inFlight.Add(-1)

				// Release before the potentially-blocking send, same
				// reasoning as Concurrent's worker (see concurrent.go).
				permit.Release()

				stop := false
				if err == FlatMapStop {
					stop = true
					err = nil
				}
				select {
				case results <- flatMapResult[B]{idx: myIdx, items: items, err: err, stop: stop}:
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

		terminal := false // a stream-ending result (error or stop) was already forwarded

		// forward pushes every item in r downstream, honoring disposal and
		// a mid-slice stop/error. It returns false once nothing further
		// should be forwarded (terminal reached or downstream gone).
		forward := func(r flatMapResult[B]) bool {
			for _, item := range r.items {
				if downstreamDisposed(sub) {
					cancel()
					return false
				}
				if err := sub.Emit(item); err != nil {
					cancel()
					return false
				}
			}
			if r.err != nil {
				terminal = true
				sub.Error(NewIndexedStreamError(r.err, r.idx))
				cancel()
				return false
			}
			if r.stop {
				terminal = true
				if !sub.IsDisposed() {
					sub.Complete()
				}
				cancel()
				return false
			}
			return true
		}

		if !ordered {
			for r := range results {
				if terminal {
					continue
				}
				forward(r)
			}
		} else {
			next := 0
			pending := make(map[int]flatMapResult[B])
			for r := range results {
				if terminal {
					continue
				}
				pending[r.idx] = r
				for {
					rr, ok := pending[next]
					if !ok {
						break
					}
					delete(pending, next)
					next++
					if !forward(rr) {
						break
					}
				}
			}
		}

		if !terminal && !sub.IsDisposed() {
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
