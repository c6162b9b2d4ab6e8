package flowpipe

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// FromIterable returns a Pipeline that emits every element of items, in
// order, then completes (spec.md §6's fromIterable free function).
func FromIterable[V any](items []V, opts ...Option) *Pipeline[V] {
	sub := NewSubject[V](opts...)
	go func() {
		for _, v := range items {
			if err := sub.Emit(v); err != nil {
				return
			}
		}
		sub.Complete()
	}()
	return sub.AsPipeline()
}

// Merge forwards values from every source into a single Pipeline as soon
// as each arrives, interleaved in whatever order they are produced
// (spec.md §4.3). It ends once every source has ended; any source error
// ends the merge with that error and cancels the remaining sources.
// Disposing the result disposes every source. sources is a plain slice
// rather than variadic, the same shape the teacher's run_all.go/
// foreach.go use for "items []T, opts ...Option" — Go allows only one
// trailing variadic parameter, and opts needs that slot.
func Merge[V any](sources []*Pipeline[V], opts ...Option) *Pipeline[V] {
	sub := NewSubject[V](opts...)
	go func() {
		// errgroup gives every per-source task a shared cancellable context
		// and collapses all their errors down to the first non-nil one, the
		// same join-and-report-first-failure shape the teacher's scheduler
		// package uses to wait out its own fan-out goroutines.
		parent, cancel := context.WithCancel(context.Background())
		defer cancel()
		g, ctx := errgroup.WithContext(parent)
		go func() {
			select {
			case <-sub.Disposed():
				cancel()
			case <-ctx.Done():
			}
		}()

		for _, src := range sources {
			g.Go(func() error {
				for {
					v, ok, err := src.Continue(ctx)
					if err != nil {
						if err == ErrCancelled {
							return nil
						}
						return err
					}
					if !ok {
						return nil
					}
					if downstreamDisposed(sub) {
						return nil
					}
					if err := sub.Emit(v); err != nil {
						return nil
					}
				}
			})
		}

		err := g.Wait()
		for _, src := range sources {
			src.Dispose()
		}

		if sub.IsDisposed() {
			return
		}
		if err != nil {
			sub.Error(err)
			return
		}
		sub.Complete()
	}()
	return sub.AsPipeline()
}

// Concat drains each source fully, in order, before touching the next
// one (spec.md §4.3). Any source error ends the concatenation with that
// error; disposing the result disposes the current and all not-yet-
// started sources.
func Concat[V any](sources []*Pipeline[V], opts ...Option) *Pipeline[V] {
	sub := NewSubject[V](opts...)
	go func() {
		ctx := disposalContext(sub)

		for i, src := range sources {
			if downstreamDisposed(sub) {
				for _, rest := range sources[i:] {
					rest.Dispose()
				}
				return
			}
			for {
				v, ok, err := src.Continue(ctx)
				if err != nil {
					if err == ErrCancelled && downstreamDisposed(sub) {
						for _, rest := range sources[i:] {
							rest.Dispose()
						}
						return
					}
					sub.Error(err)
					for _, rest := range sources[i+1:] {
						rest.Dispose()
					}
					return
				}
				if !ok {
					break
				}
				if downstreamDisposed(sub) {
					for _, rest := range sources[i:] {
						rest.Dispose()
					}
					return
				}
				if err := sub.Emit(v); err != nil {
					for _, rest := range sources[i:] {
						rest.Dispose()
					}
					return
				}
			}
		}
		sub.Complete()
	}()
	return sub.AsPipeline()
}

// Zip emits a slice holding the next value of every source, in lock-step,
// only once all sources have produced one. It ends as soon as any source
// ends (the shortest-source rule); any source error ends the zip with
// that error. Disposing the result disposes every source.
func Zip[V any](sources []*Pipeline[V], opts ...Option) *Pipeline[[]V] {
	sub := NewSubject[[]V](opts...)
	go func() {
		ctx := disposalContext(sub)
		defer func() {
			for _, src := range sources {
				src.Dispose()
			}
		}()

		for {
			row := make([]V, len(sources))
			for i, src := range sources {
				v, ok, err := src.Continue(ctx)
				if err != nil {
					if err == ErrCancelled && downstreamDisposed(sub) {
						return
					}
					sub.Error(err)
					return
				}
				if !ok {
					sub.Complete()
					return
				}
				row[i] = v
			}
			if downstreamDisposed(sub) {
				return
			}
			if err := sub.Emit(row); err != nil {
				return
			}
		}
	}()
	return sub.AsPipeline()
}

// Pair is the element type Zip2 emits: one value from each of its two,
// possibly differently typed, sources.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Zip2 is Zip's heterogeneous-type sibling for exactly two sources.
func Zip2[A, B any](pa *Pipeline[A], pb *Pipeline[B], opts ...Option) *Pipeline[Pair[A, B]] {
	sub := NewSubject[Pair[A, B]](opts...)
	go func() {
		ctx := disposalContext(sub)
		defer func() {
			pa.Dispose()
			pb.Dispose()
		}()

		for {
			a, ok, err := pa.Continue(ctx)
			if err != nil {
				if err == ErrCancelled && downstreamDisposed(sub) {
					return
				}
				sub.Error(err)
				return
			}
			if !ok {
				sub.Complete()
				return
			}

			b, ok, err := pb.Continue(ctx)
			if err != nil {
				if err == ErrCancelled && downstreamDisposed(sub) {
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
				return
			}
			if err := sub.Emit(Pair[A, B]{First: a, Second: b}); err != nil {
				return
			}
		}
	}()
	return sub.AsPipeline()
}
