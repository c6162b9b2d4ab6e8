package flowpipe

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShareBroadcastsToEveryDownstream(t *testing.T) {
	shared := Share(FromIterable([]int{1, 2, 3}))

	p1 := shared.AsPipeline()
	p2 := shared.AsPipeline()

	var wg sync.WaitGroup
	var out1, out2 []int
	wg.Add(2)
	go func() {
		defer wg.Done()
		out1, _ = ToArray(context.Background(), p1)
	}()
	go func() {
		defer wg.Done()
		out2, _ = ToArray(context.Background(), p2)
	}()
	wg.Wait()

	require.Equal(t, []int{1, 2, 3}, out1)
	require.Equal(t, []int{1, 2, 3}, out2)
}

func TestShareWaitsForSlowestDownstream(t *testing.T) {
	shared := Share(FromIterable([]int{1, 2, 3}))
	fast := shared.AsPipeline()
	slow := shared.AsPipeline()

	var fastSeen int
	var mu sync.Mutex
	done := make(chan struct{})
	go func() {
		for {
			v, ok, err := fast.Continue(context.Background())
			require.NoError(t, err)
			if !ok {
				close(done)
				return
			}
			mu.Lock()
			fastSeen = v
			mu.Unlock()
		}
	}()

	// fast can only race ahead of slow by the amount each side buffers
	// (none here): it must not observe the second value before slow takes
	// the first, since the shared source waits for every live downstream.
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	seenBeforeSlowAdvances := fastSeen
	mu.Unlock()
	require.Equal(t, 1, seenBeforeSlowAdvances)

	_, ok, err := slow.Continue(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	slowOut, err := ToArray(context.Background(), slow)
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, slowOut)

	<-done
}

func TestShareDisposesUpstreamOnlyAfterLastDownstream(t *testing.T) {
	sub := NewSubject[int]()
	shared := Share(sub.AsPipeline())

	p1 := shared.AsPipeline()
	p2 := shared.AsPipeline()

	p1.Dispose()
	select {
	case <-sub.Disposed():
		t.Fatal("upstream must stay alive while a downstream remains")
	case <-time.After(20 * time.Millisecond):
	}

	p2.Dispose()
	select {
	case <-sub.Disposed():
	case <-time.After(time.Second):
		t.Fatal("upstream should be disposed once the last downstream goes")
	}
}
