package flowpipe

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corestream/flowpipe/metrics"
)

func TestFromIterableRoundTrip(t *testing.T) {
	xs := []int{1, 2, 3, 4, 5}
	out, err := ToArray(context.Background(), FromIterable(xs))
	require.NoError(t, err)
	require.Equal(t, xs, out)
}

func TestFromIterableEmpty(t *testing.T) {
	out, err := ToArray(context.Background(), FromIterable([]int{}))
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestMergeInterleavesAndEndsWhenAllSourcesEnd(t *testing.T) {
	a := FromIterable([]int{1, 2, 3})
	b := FromIterable([]int{10, 20, 30})

	out, err := ToArray(context.Background(), Merge([]*Pipeline[int]{a, b}))
	require.NoError(t, err)
	require.ElementsMatch(t, []int{1, 2, 3, 10, 20, 30}, out)
}

func TestMergePropagatesSourceError(t *testing.T) {
	boom := errors.New("boom")
	subA := NewSubject[int]()
	subB := NewSubject[int]()
	go func() {
		_ = subA.Emit(1)
		subA.Error(boom)
	}()
	go func() {
		// Never completes on its own; relies on Merge cancelling it.
		<-subB.Disposed()
	}()

	_, err := ToArray(context.Background(), Merge([]*Pipeline[int]{subA.AsPipeline(), subB.AsPipeline()}))
	require.ErrorIs(t, err, boom)
}

func TestConcatDrainsSourcesInOrder(t *testing.T) {
	a := FromIterable([]int{1, 2})
	b := FromIterable([]int{3, 4})

	out, err := ToArray(context.Background(), Concat([]*Pipeline[int]{a, b}))
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4}, out)
}

func TestConcatDoesNotTouchLaterSourcesEarly(t *testing.T) {
	subB := NewSubject[int]()

	a := FromIterable([]int{1})
	concatenated := Concat([]*Pipeline[int]{a, subB.AsPipeline()})

	v, ok, err := concatenated.Continue(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, v)

	// The first source has one value; Concat must block reading from it
	// again (observing its end) before ever touching subB. subB getting
	// disposed only happens once Concat gives up on the whole chain.
	select {
	case <-subB.Disposed():
		t.Fatal("second source must not be disposed before the first one ends")
	case <-time.After(20 * time.Millisecond):
	}

	concatenated.Dispose()
	select {
	case <-subB.Disposed():
	case <-time.After(time.Second):
		t.Fatal("second source should be disposed once concat is abandoned")
	}
}

func TestZipEmitsTuplesInLockStepAndEndsAtShortest(t *testing.T) {
	a := FromIterable([]int{1, 2, 3})
	b := FromIterable([]int{10, 20})

	out, err := ToArray(context.Background(), Zip([]*Pipeline[int]{a, b}))
	require.NoError(t, err)
	require.Equal(t, [][]int{{1, 10}, {2, 20}}, out)
}

func TestZip2HeterogeneousTypes(t *testing.T) {
	a := FromIterable([]int{1, 2, 3})
	b := FromIterable([]string{"a", "b", "c"})

	out, err := ToArray(context.Background(), Zip2(a, b))
	require.NoError(t, err)
	require.Equal(t, []Pair[int, string]{{1, "a"}, {2, "b"}, {3, "c"}}, out)
}

func TestMergeDisposalDisposesAllSources(t *testing.T) {
	subA := NewSubject[int]()
	subB := NewSubject[int]()

	merged := Merge([]*Pipeline[int]{subA.AsPipeline(), subB.AsPipeline()})
	merged.Dispose()

	select {
	case <-subA.Disposed():
	case <-time.After(time.Second):
		t.Fatal("source A should be disposed")
	}
	select {
	case <-subB.Disposed():
	case <-time.After(time.Second):
		t.Fatal("source B should be disposed")
	}
}

func TestMergeThreadsOptionsIntoItsSubject(t *testing.T) {
	provider := metrics.NewBasicProvider()

	a := FromIterable([]int{1, 2})
	b := FromIterable([]int{3, 4})

	out, err := ToArray(context.Background(), Merge([]*Pipeline[int]{a, b}, WithMetrics(provider)))
	require.NoError(t, err)
	require.ElementsMatch(t, []int{1, 2, 3, 4}, out)

	emitted := provider.Counter("flowpipe_values_emitted_total")
	bc, ok := emitted.(*metrics.BasicCounter)
	require.True(t, ok)
	require.Equal(t, int64(4), bc.Value(), "Merge's own Subject must record through the given provider")
}

func TestMergeMultisetEquality(t *testing.T) {
	out, err := ToArray(context.Background(), Merge([]*Pipeline[int]{FromIterable([]int{1, 3, 5}), FromIterable([]int{2, 4, 6})}))
	require.NoError(t, err)
	sort.Ints(out)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6}, out)
}
