package flowpipe

import (
	"sync"
	"time"
)

// SampleWhen holds the most recent upstream value and, each time trigger
// emits, forwards it downstream if it is new since the previous sample
// (spec.md §4.3). A trigger firing with no new value since the last
// sample produces no downstream emission. Ends when either upstream or
// trigger ends; disposes the other side.
func SampleWhen[V, T any](trigger *Pipeline[T], opts ...Option) Operator[V, V] {
	return func(up *Pipeline[V]) *Pipeline[V] {
		return spawnOperator(up, opts, func(up *Pipeline[V], sub *Subject[V]) {
			runSampleWhen(up, trigger, sub)
		})
	}
}

// SampleTime is SampleWhen driven by a periodic internal trigger instead
// of a caller-supplied pipeline (spec.md §6's sampleTime(period)).
func SampleTime[V any](period time.Duration, opts ...Option) Operator[V, V] {
	return func(up *Pipeline[V]) *Pipeline[V] {
		return spawnOperator(up, opts, func(up *Pipeline[V], sub *Subject[V]) {
			ticks := NewSubject[struct{}]()
			go func() {
				ticker := time.NewTicker(period)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if err := ticks.Emit(struct{}{}); err != nil {
							return
						}
					case <-ticks.Disposed():
						return
					}
				}
			}()
			runSampleWhen(up, ticks.AsPipeline(), sub)
		})
	}
}

func runSampleWhen[V, T any](up *Pipeline[V], trigger *Pipeline[T], sub *Subject[V]) {
	ctx := disposalContext(sub)

	var mu sync.Mutex
	var latest V
	var hasNew bool

	upDone := make(chan error, 1)
	go func() {
		for {
			v, ok, err := up.Continue(ctx)
			if err != nil {
				if err != ErrCancelled {
					upDone <- err
				} else {
					upDone <- nil
				}
				trigger.Dispose()
				return
			}
			if !ok {
				upDone <- nil
				trigger.Dispose()
				return
			}
			mu.Lock()
			latest = v
			hasNew = true
			mu.Unlock()
		}
	}()

	for {
		_, ok, err := trigger.Continue(ctx)
		if err != nil {
			up.Dispose()
			if err == ErrCancelled {
				return
			}
			if !downstreamDisposed(sub) {
				sub.Error(err)
			}
			return
		}
		if !ok {
			select {
			case upErr := <-upDone:
				// Upstream ended (and already disposed trigger); report
				// whatever upstream reported.
				if downstreamDisposed(sub) {
					return
				}
				if upErr != nil {
					sub.Error(upErr)
				} else {
					sub.Complete()
				}
			default:
				// Trigger ended on its own; upstream is still live.
				up.Dispose()
				if !downstreamDisposed(sub) {
					sub.Complete()
				}
			}
			return
		}

		mu.Lock()
		v := latest
		emit := hasNew
		hasNew = false
		mu.Unlock()

		if !emit {
			continue
		}
		if downstreamDisposed(sub) {
			up.Dispose()
			trigger.Dispose()
			return
		}
		if err := sub.Emit(v); err != nil {
			up.Dispose()
			trigger.Dispose()
			return
		}
	}
}

// DelayWhen buffers one upstream value at a time, waiting for trigger to
// emit before forwarding it (spec.md §4.3). Ends as soon as either side
// ends, disposing the other.
func DelayWhen[V, T any](trigger *Pipeline[T], opts ...Option) Operator[V, V] {
	return func(up *Pipeline[V]) *Pipeline[V] {
		return spawnOperator(up, opts, func(up *Pipeline[V], sub *Subject[V]) {
			ctx := disposalContext(sub)
			for {
				v, ok, err := up.Continue(ctx)
				if err != nil {
					trigger.Dispose()
					if err == ErrCancelled {
						up.Dispose()
						return
					}
					if !downstreamDisposed(sub) {
						sub.Error(err)
					}
					return
				}
				if !ok {
					trigger.Dispose()
					if !downstreamDisposed(sub) {
						sub.Complete()
					}
					return
				}

				_, tok, terr := trigger.Continue(ctx)
				if terr != nil {
					up.Dispose()
					if terr == ErrCancelled {
						return
					}
					if !downstreamDisposed(sub) {
						sub.Error(terr)
					}
					return
				}
				if !tok {
					up.Dispose()
					if !downstreamDisposed(sub) {
						sub.Complete()
					}
					return
				}

				if downstreamDisposed(sub) {
					up.Dispose()
					trigger.Dispose()
					return
				}
				if err := sub.Emit(v); err != nil {
					up.Dispose()
					trigger.Dispose()
					return
				}
			}
		})
	}
}
