package flowpipe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPipelineContinueAndDispose(t *testing.T) {
	sub := NewSubject[int]()
	p := sub.AsPipeline()

	go func() {
		require.NoError(t, sub.Emit(1))
		sub.Complete()
	}()

	v, ok, err := p.Continue(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok, err = p.Continue(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, p.IsComplete())

	require.NotPanics(t, p.Dispose)
	require.NotPanics(t, p.Dispose)
}

func TestPipelineIsConsumed(t *testing.T) {
	sub := NewSubject[int](WithBufferSize(1))
	p := sub.AsPipeline()
	require.False(t, p.IsConsumed())

	require.NoError(t, sub.Emit(1))
	sub.Complete()
	require.False(t, p.IsConsumed(), "buffered value not yet taken")

	v, ok, err := p.Continue(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.True(t, p.IsConsumed())
}

func TestPipePipeComposesLeftToRight(t *testing.T) {
	p := FromIterable([]int{1, 2, 3})
	out := p.Pipe(
		Filter(func(v int) bool { return v%2 == 1 }),
		Tap(func(int) {}),
	)

	vals, err := ToArray(context.Background(), out)
	require.NoError(t, err)
	require.Equal(t, []int{1, 3}, vals)
}

func TestPipeAssociativity(t *testing.T) {
	double := Map(func(v int) int { return v * 2 })
	addOne := Map(func(v int) int { return v + 1 })
	square := Map(func(v int) int { return v * v })

	run := func(p *Pipeline[int]) []int {
		out, err := ToArray(context.Background(), p)
		require.NoError(t, err)
		return out
	}

	left := run(FromIterable([]int{1, 2, 3}).Pipe(double, addOne).Pipe(square))
	right := run(FromIterable([]int{1, 2, 3}).Pipe(double).Pipe(addOne, square))
	flat := run(FromIterable([]int{1, 2, 3}).Pipe(double, addOne, square))

	require.Equal(t, left, right)
	require.Equal(t, right, flat)
}

func TestEachReduceToArrayDiscard(t *testing.T) {
	ctx := context.Background()

	sum, err := Reduce(ctx, FromIterable([]int{1, 2, 3, 4, 5}), 0, func(acc, v int) int { return acc + v })
	require.NoError(t, err)
	require.Equal(t, 15, sum)

	arr, err := ToArray(ctx, FromIterable([]int{1, 2, 3}))
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, arr)

	n, err := Discard(ctx, FromIterable([]string{"a", "b", "c"}))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	n, err = Discard(ctx, FromIterable([]int{}))
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestErrorSurfacesOnReduce(t *testing.T) {
	sub := NewSubject[int]()
	boom := errors.New("boom")
	go func() {
		_ = sub.Emit(1)
		sub.Error(boom)
	}()

	_, err := Reduce(context.Background(), sub.AsPipeline(), 0, func(acc, v int) int { return acc + v })
	require.ErrorIs(t, err, boom)
}
