package flowpipe

import (
	"github.com/corestream/flowpipe/internal/plog"
	"github.com/corestream/flowpipe/metrics"
)

// config holds per-EmitSource configuration. It mirrors the shape of the
// teacher's Config/options.go pair: a plain struct with package-level
// defaults, mutated by functional Options.
type config struct {
	bufferSize int
	provider   metrics.Provider
	logger     plog.Logger
	name       string
}

func defaultConfig() config {
	return config{
		bufferSize: 0,
		provider:   metrics.NewNoopProvider(),
		logger:     plog.Noop{},
		name:       "",
	}
}

// Option configures a Subject/EmitSource at construction time.
type Option func(*config)

// resolveConfig applies opts over defaultConfig, for call sites (such as
// Concurrent and FlatMap's dispatcher loops) that need the resolved
// provider/logger directly rather than through an EmitSource's
// observability bundle.
func resolveConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithBufferSize sets how many values may be buffered ahead of the
// consumer before Emit suspends. The default, 0, means Emit always
// suspends until Continue takes the value.
func WithBufferSize(n int) Option {
	return func(c *config) {
		if n < 0 {
			n = 0
		}
		c.bufferSize = n
	}
}

// WithMetrics sets the metrics.Provider instruments are recorded through.
func WithMetrics(p metrics.Provider) Option {
	return func(c *config) {
		if p != nil {
			c.provider = p
		}
	}
}

// WithLogger sets the plog.Logger diagnostic events are recorded through.
func WithLogger(l plog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithName sets an identifier used in log fields and metric attributes.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// observability bundles the instruments an EmitSource records through,
// built once at construction from the resolved config.
type observability struct {
	log       plog.Logger
	emitted   metrics.Counter
	taken     metrics.Counter
	buffered  metrics.UpDownCounter
	terminal  metrics.Counter
}

func newObservability(cfg config) observability {
	attrs := metrics.WithAttributes(map[string]string{"name": cfg.name})
	return observability{
		log:      cfg.logger.With("name", cfg.name),
		emitted:  cfg.provider.Counter("flowpipe_values_emitted_total", attrs),
		taken:    cfg.provider.Counter("flowpipe_values_taken_total", attrs),
		buffered: cfg.provider.UpDownCounter("flowpipe_values_buffered", attrs),
		terminal: cfg.provider.Counter("flowpipe_terminations_total", attrs),
	}
}
