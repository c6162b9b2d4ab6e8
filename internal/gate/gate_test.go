package gate

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWeightedBoundsConcurrentHolders(t *testing.T) {
	sem := NewWeighted(2)

	p1, err := sem.Acquire(context.Background())
	require.NoError(t, err)
	p2, err := sem.Acquire(context.Background())
	require.NoError(t, err)

	acquired := make(chan struct{}, 1)
	go func() {
		p3, err := sem.Acquire(context.Background())
		require.NoError(t, err)
		acquired <- struct{}{}
		p3.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("third acquire should block while two permits are held")
	case <-time.After(15 * time.Millisecond):
	}

	p1.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("third acquire should proceed once a permit is released")
	}

	p2.Release()
}

func TestWeightedAcquireRespectsContextCancellation(t *testing.T) {
	sem := NewWeighted(1)
	_, err := sem.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = sem.Acquire(ctx)
	require.Error(t, err)
}

func TestWeightedPanicsOnNonPositiveCapacity(t *testing.T) {
	require.Panics(t, func() { NewWeighted(0) })
	require.Panics(t, func() { NewWeighted(-1) })
}

func TestWeightedFIFOOrdering(t *testing.T) {
	sem := NewWeighted(1)
	p, err := sem.Acquire(context.Background())
	require.NoError(t, err)

	var order int32
	first := make(chan int32, 1)
	second := make(chan int32, 1)

	go func() {
		p, err := sem.Acquire(context.Background())
		require.NoError(t, err)
		first <- atomic.AddInt32(&order, 1)
		time.Sleep(10 * time.Millisecond)
		p.Release()
	}()
	time.Sleep(5 * time.Millisecond)
	go func() {
		p, err := sem.Acquire(context.Background())
		require.NoError(t, err)
		second <- atomic.AddInt32(&order, 1)
		p.Release()
	}()

	p.Release()

	require.Equal(t, int32(1), <-first)
	require.Equal(t, int32(2), <-second)
}
