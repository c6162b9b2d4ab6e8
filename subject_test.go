package flowpipe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubjectEmitAfterCompletePanics(t *testing.T) {
	sub := NewSubject[int](WithBufferSize(1))
	sub.Complete()
	require.PanicsWithValue(t, ErrEmitAfterTerminal, func() { _ = sub.Emit(99) })
}

func TestSubjectAsPipelineYieldsValues(t *testing.T) {
	sub := NewSubject[string](WithBufferSize(2))
	require.NoError(t, sub.Yield("a"))
	require.NoError(t, sub.Yield("b"))
	sub.Complete()

	p := sub.AsPipeline()
	out, err := ToArray(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, out)
}

func TestSubjectDisposedChannelClosesOnDispose(t *testing.T) {
	sub := NewSubject[int]()
	p := sub.AsPipeline()

	select {
	case <-sub.Disposed():
		t.Fatal("should not be closed yet")
	default:
	}

	p.Dispose()

	select {
	case <-sub.Disposed():
	default:
		t.Fatal("should be closed after Dispose")
	}
}
