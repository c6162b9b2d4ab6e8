package flowpipe

import "time"

// Map transforms every upstream value with fn.
func Map[A, B any](fn func(A) B, opts ...Option) Operator[A, B] {
	return func(up *Pipeline[A]) *Pipeline[B] {
		return spawnOperator(up, opts, func(up *Pipeline[A], sub *Subject[B]) {
			ctx := disposalContext(sub)
			for {
				v, ok, err := up.Continue(ctx)
				if err != nil {
					if downstreamDisposed(sub) {
						up.Dispose()
						return
					}
					sub.Error(err)
					return
				}
				if !ok {
					sub.Complete()
					return
				}
				if downstreamDisposed(sub) {
					up.Dispose()
					return
				}
				if err := sub.Emit(fn(v)); err != nil {
					up.Dispose()
					return
				}
			}
		})
	}
}

// Filter forwards only values for which pred returns true.
func Filter[V any](pred func(V) bool, opts ...Option) Operator[V, V] {
	return func(up *Pipeline[V]) *Pipeline[V] {
		return spawnOperator(up, opts, func(up *Pipeline[V], sub *Subject[V]) {
			ctx := disposalContext(sub)
			for {
				v, ok, err := up.Continue(ctx)
				if err != nil {
					if downstreamDisposed(sub) {
						up.Dispose()
						return
					}
					sub.Error(err)
					return
				}
				if !ok {
					sub.Complete()
					return
				}
				if !pred(v) {
					continue
				}
				if downstreamDisposed(sub) {
					up.Dispose()
					return
				}
				if err := sub.Emit(v); err != nil {
					up.Dispose()
					return
				}
			}
		})
	}
}

// Skip drops the first n upstream values, then forwards the rest.
func Skip[V any](n int, opts ...Option) Operator[V, V] {
	return func(up *Pipeline[V]) *Pipeline[V] {
		return spawnOperator(up, opts, func(up *Pipeline[V], sub *Subject[V]) {
			ctx := disposalContext(sub)
			skipped := 0
			for {
				v, ok, err := up.Continue(ctx)
				if err != nil {
					if downstreamDisposed(sub) {
						up.Dispose()
						return
					}
					sub.Error(err)
					return
				}
				if !ok {
					sub.Complete()
					return
				}
				if skipped < n {
					skipped++
					continue
				}
				if downstreamDisposed(sub) {
					up.Dispose()
					return
				}
				if err := sub.Emit(v); err != nil {
					up.Dispose()
					return
				}
			}
		})
	}
}

// Take forwards at most the first n upstream values, then completes and
// disposes upstream (a bounded read, same shape as the teacher's
// StopOnError-triggered early cancellation).
func Take[V any](n int, opts ...Option) Operator[V, V] {
	return func(up *Pipeline[V]) *Pipeline[V] {
		return spawnOperator(up, opts, func(up *Pipeline[V], sub *Subject[V]) {
			if n <= 0 {
				sub.Complete()
				up.Dispose()
				return
			}
			ctx := disposalContext(sub)
			taken := 0
			for taken < n {
				v, ok, err := up.Continue(ctx)
				if err != nil {
					if downstreamDisposed(sub) {
						up.Dispose()
						return
					}
					sub.Error(err)
					return
				}
				if !ok {
					sub.Complete()
					return
				}
				if downstreamDisposed(sub) {
					up.Dispose()
					return
				}
				if err := sub.Emit(v); err != nil {
					up.Dispose()
					return
				}
				taken++
			}
			sub.Complete()
			up.Dispose()
		})
	}
}

// SkipWhile drops values while pred holds, then forwards every value
// from the first failure of pred onward (pred is never consulted again
// after it first returns false).
func SkipWhile[V any](pred func(V) bool, opts ...Option) Operator[V, V] {
	return func(up *Pipeline[V]) *Pipeline[V] {
		return spawnOperator(up, opts, func(up *Pipeline[V], sub *Subject[V]) {
			ctx := disposalContext(sub)
			skipping := true
			for {
				v, ok, err := up.Continue(ctx)
				if err != nil {
					if downstreamDisposed(sub) {
						up.Dispose()
						return
					}
					sub.Error(err)
					return
				}
				if !ok {
					sub.Complete()
					return
				}
				if skipping {
					if pred(v) {
						continue
					}
					skipping = false
				}
				if downstreamDisposed(sub) {
					up.Dispose()
					return
				}
				if err := sub.Emit(v); err != nil {
					up.Dispose()
					return
				}
			}
		})
	}
}

// TakeWhile forwards values while pred holds, then completes and
// disposes upstream on the first value for which pred returns false.
func TakeWhile[V any](pred func(V) bool, opts ...Option) Operator[V, V] {
	return func(up *Pipeline[V]) *Pipeline[V] {
		return spawnOperator(up, opts, func(up *Pipeline[V], sub *Subject[V]) {
			ctx := disposalContext(sub)
			for {
				v, ok, err := up.Continue(ctx)
				if err != nil {
					if downstreamDisposed(sub) {
						up.Dispose()
						return
					}
					sub.Error(err)
					return
				}
				if !ok {
					sub.Complete()
					return
				}
				if !pred(v) {
					sub.Complete()
					up.Dispose()
					return
				}
				if downstreamDisposed(sub) {
					up.Dispose()
					return
				}
				if err := sub.Emit(v); err != nil {
					up.Dispose()
					return
				}
			}
		})
	}
}

// Tap calls fn with every upstream value for its side effects, then
// forwards the value unchanged.
func Tap[V any](fn func(V), opts ...Option) Operator[V, V] {
	return Map[V, V](func(v V) V {
		fn(v)
		return v
	}, opts...)
}

// Finalize calls fn exactly once when the pipeline reaches any terminal
// state (complete, error, or downstream disposal), after the terminal
// state has been forwarded (or upstream disposed).
func Finalize[V any](fn func(), opts ...Option) Operator[V, V] {
	return func(up *Pipeline[V]) *Pipeline[V] {
		return spawnOperator(up, opts, func(up *Pipeline[V], sub *Subject[V]) {
			defer fn()
			ctx := disposalContext(sub)
			for {
				v, ok, err := up.Continue(ctx)
				if err != nil {
					if downstreamDisposed(sub) {
						up.Dispose()
						return
					}
					sub.Error(err)
					return
				}
				if !ok {
					sub.Complete()
					return
				}
				if downstreamDisposed(sub) {
					up.Dispose()
					return
				}
				if err := sub.Emit(v); err != nil {
					up.Dispose()
					return
				}
			}
		})
	}
}

// Delay forwards every upstream value after waiting d, preserving order.
// Disposal during the wait is honored promptly rather than after the
// full delay elapses.
func Delay[V any](d time.Duration, opts ...Option) Operator[V, V] {
	return func(up *Pipeline[V]) *Pipeline[V] {
		return spawnOperator(up, opts, func(up *Pipeline[V], sub *Subject[V]) {
			ctx := disposalContext(sub)
			for {
				v, ok, err := up.Continue(ctx)
				if err != nil {
					if downstreamDisposed(sub) {
						up.Dispose()
						return
					}
					sub.Error(err)
					return
				}
				if !ok {
					sub.Complete()
					return
				}

				timer := time.NewTimer(d)
				select {
				case <-timer.C:
				case <-sub.Disposed():
					timer.Stop()
					up.Dispose()
					return
				}

				if downstreamDisposed(sub) {
					up.Dispose()
					return
				}
				if err := sub.Emit(v); err != nil {
					up.Dispose()
					return
				}
			}
		})
	}
}
