// Package gate defines the semaphore collaborator Concurrent and FlatMap
// depend on, plus one concrete implementation: acquisition yields a
// releasable permit, permits are FIFO-fair, and Release never fails.
// Concurrent and FlatMap build their own NewWeighted semaphore from their
// parallelism argument; callers cannot pass in a Semaphore of their own.
package gate

import "context"

// Permit is a single unit of concurrency granted by a Semaphore. It must
// be released exactly once, on every exit path of the holder, including
// error and cancellation.
type Permit interface {
	Release()
}

// Semaphore caps the number of in-flight operations. Implementations must
// be safe for concurrent use and must grant permits FIFO.
type Semaphore interface {
	// Acquire blocks until a permit is available or ctx is done. It
	// returns ctx.Err() if ctx is cancelled before a permit is granted.
	Acquire(ctx context.Context) (Permit, error)

	// Available reports the number of permits currently free. It is
	// advisory (may be stale immediately under concurrency); useful for
	// metrics and tests, never for correctness decisions. The NewWeighted
	// implementation does not track held permits and always reports its
	// total capacity.
	Available() int
}
