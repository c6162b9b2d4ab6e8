// Package metrics defines the observability collaborator threaded through
// flowpipe's Option. It is adapted from the teacher's own metrics
// sub-package (Provider/Counter/UpDownCounter/Histogram), repointed at
// pipeline concerns: emitted-value counts, live buffer depth, Concurrent
// in-flight worker counts, and per-value processing latency.
package metrics

// Provider constructs the instruments flowpipe records through.
// Implementations must be safe for concurrent use.
type Provider interface {
	Counter(name string, opts ...InstrumentOption) Counter
	UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter
	Histogram(name string, opts ...InstrumentOption) Histogram
}

// Counter records monotonically increasing counts, e.g. values emitted.
type Counter interface {
	Add(n int64)
}

// UpDownCounter records values that move up and down, e.g. buffered
// values currently pending, or workers currently in flight in Concurrent.
type UpDownCounter interface {
	Add(n int64)
}

// Histogram records a distribution of float64 measurements, e.g. seconds
// spent processing one value through a Concurrent worker.
type Histogram interface {
	Record(v float64)
}

// InstrumentConfig carries optional, advisory instrument metadata.
type InstrumentConfig struct {
	Description string
	Unit        string
	Attributes  map[string]string
}

// InstrumentOption mutates InstrumentConfig.
type InstrumentOption func(*InstrumentConfig)

// WithDescription sets an advisory description for the instrument.
func WithDescription(desc string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Description = desc }
}

// WithUnit sets an advisory unit for the instrument (e.g. "1", "seconds").
func WithUnit(unit string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Unit = unit }
}

// WithAttributes attaches static, bounded-cardinality attributes.
func WithAttributes(attrs map[string]string) InstrumentOption {
	return func(c *InstrumentConfig) {
		if len(attrs) == 0 {
			return
		}
		if c.Attributes == nil {
			c.Attributes = make(map[string]string, len(attrs))
		}
		for k, v := range attrs {
			c.Attributes[k] = v
		}
	}
}
