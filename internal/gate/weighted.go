package gate

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// weighted is the default Semaphore, backed by golang.org/x/sync/semaphore.
// Every permit has weight 1; the engine only ever needs unit permits, so
// Weighted's general N-weight API is used purely as a FIFO-fair counting
// semaphore, the same role the teacher's pool.Pool interface fills for
// worker reuse.
type weighted struct {
	sem *semaphore.Weighted
	cap int64
}

// NewWeighted returns a Semaphore admitting up to n concurrent holders.
// Panics if n is not positive: a semaphore of capacity zero can never be
// acquired, which is never a useful configuration for Concurrent.
func NewWeighted(n int) Semaphore {
	if n <= 0 {
		panic("gate: NewWeighted requires n > 0")
	}
	return &weighted{sem: semaphore.NewWeighted(int64(n)), cap: int64(n)}
}

func (w *weighted) Acquire(ctx context.Context) (Permit, error) {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return &weightedPermit{sem: w.sem}, nil
}

func (w *weighted) Available() int {
	// TryAcquire/Release round-trip would be racy and mutate state; x/sync's
	// Weighted exposes no direct counter, so report the static capacity as
	// an upper bound. Callers only use this for coarse metrics.
	return int(w.cap)
}

type weightedPermit struct {
	sem *semaphore.Weighted
}

func (p *weightedPermit) Release() {
	p.sem.Release(1)
}
