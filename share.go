package flowpipe

import (
	"context"
	"sync"
)

// SharedSource is the multicast source spec.md §4.3's share(pipeline)
// returns: every AsPipeline call yields an independent downstream, and
// every upstream value is forwarded to every currently-live downstream
// before the upstream is allowed to advance (strict backpressure — the
// slowest live downstream paces the source). The upstream is disposed
// once the last downstream has gone terminal, whether by disposal or by
// observing the upstream's own completion/error.
type SharedSource[V any] struct {
	mu          sync.Mutex
	downstreams map[int]*Subject[V]
	nextID      int
	started     bool
	up          *Pipeline[V]
	opts        []Option
}

// Share wraps up as a multicast source. up is not read until the first
// AsPipeline-derived downstream exists, so constructing a SharedSource
// that nobody subscribes to never touches the underlying pipeline.
func Share[V any](up *Pipeline[V], opts ...Option) *SharedSource[V] {
	return &SharedSource[V]{
		downstreams: make(map[int]*Subject[V]),
		up:          up,
		opts:        opts,
	}
}

// AsPipeline returns a new independent downstream over the shared source.
func (s *SharedSource[V]) AsPipeline() *Pipeline[V] {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	sub := NewSubject[V](s.opts...)
	s.downstreams[id] = sub

	go s.watchDisposal(id, sub)

	if !s.started {
		s.started = true
		go s.pump()
	}

	return sub.AsPipeline()
}

// watchDisposal removes a downstream from the live set as soon as its
// consumer disposes it, disposing upstream if it was the last one.
func (s *SharedSource[V]) watchDisposal(id int, sub *Subject[V]) {
	<-sub.Disposed()
	s.removeDownstream(id)
}

func (s *SharedSource[V]) removeDownstream(id int) {
	s.mu.Lock()
	delete(s.downstreams, id)
	last := len(s.downstreams) == 0
	s.mu.Unlock()

	if last {
		s.up.Dispose()
	}
}

// live returns a snapshot of the currently-live downstreams, safe to
// iterate without holding the lock while emitting (emitting can block).
func (s *SharedSource[V]) live() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.downstreams))
	for id := range s.downstreams {
		ids = append(ids, id)
	}
	return ids
}

func (s *SharedSource[V]) downstream(id int) (*Subject[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.downstreams[id]
	return sub, ok
}

// pump drives upstream once, forwarding every value (and the eventual
// terminal state) to every downstream live at that moment, waiting for
// all of them before reading the next upstream value.
func (s *SharedSource[V]) pump() {
	ctx := context.Background()
	for {
		v, ok, err := s.up.Continue(ctx)
		if err != nil {
			s.broadcastError(err)
			return
		}
		if !ok {
			s.broadcastComplete()
			return
		}
		s.broadcastValue(v)

		if len(s.live()) == 0 {
			// Every downstream disposed between reads; upstream is
			// already disposed by removeDownstream's last-one check.
			return
		}
	}
}

func (s *SharedSource[V]) broadcastValue(v V) {
	ids := s.live()
	var wg sync.WaitGroup
	wg.Add(len(ids))
	for _, id := range ids {
		go func(id int) {
			defer wg.Done()
			sub, ok := s.downstream(id)
			if !ok {
				return
			}
			if sub.IsDisposed() {
				return
			}
			if err := sub.Emit(v); err != nil {
				s.removeDownstream(id)
			}
		}(id)
	}
	wg.Wait()
}

func (s *SharedSource[V]) broadcastComplete() {
	ids := s.live()
	for _, id := range ids {
		if sub, ok := s.downstream(id); ok && !sub.IsDisposed() {
			sub.Complete()
		}
	}
}

func (s *SharedSource[V]) broadcastError(err error) {
	ids := s.live()
	for _, id := range ids {
		if sub, ok := s.downstream(id); ok && !sub.IsDisposed() {
			sub.Error(err)
		}
	}
}
