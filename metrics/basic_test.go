package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBasicCounterAccumulates(t *testing.T) {
	p := NewBasicProvider()
	c := p.Counter("values_emitted")
	c.Add(1)
	c.Add(2)

	bc, ok := c.(*BasicCounter)
	require.True(t, ok)
	require.Equal(t, int64(3), bc.Value())
}

func TestBasicProviderReusesInstrumentsByName(t *testing.T) {
	p := NewBasicProvider()
	c1 := p.Counter("x")
	c2 := p.Counter("x")
	c1.Add(5)

	bc2, ok := c2.(*BasicCounter)
	require.True(t, ok)
	require.Equal(t, int64(5), bc2.Value())
}

func TestBasicUpDownCounterMovesBothWays(t *testing.T) {
	p := NewBasicProvider()
	c := p.UpDownCounter("buffered")
	c.Add(3)
	c.Add(-1)

	bc, ok := c.(*BasicUpDownCounter)
	require.True(t, ok)
	require.Equal(t, int64(2), bc.Value())
}

func TestBasicHistogramRecordsSamples(t *testing.T) {
	p := NewBasicProvider()
	h := p.Histogram("latency_seconds")
	h.Record(0.1)
	h.Record(0.2)

	bh, ok := h.(*BasicHistogram)
	require.True(t, ok)
	require.Equal(t, []float64{0.1, 0.2}, bh.Samples())
}

func TestNoopProviderDiscardsEverything(t *testing.T) {
	p := NewNoopProvider()
	require.NotPanics(t, func() {
		p.Counter("a").Add(1)
		p.UpDownCounter("b").Add(-1)
		p.Histogram("c").Record(1.5)
	})
}
