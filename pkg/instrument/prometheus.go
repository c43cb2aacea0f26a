package instrument

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/reactive/pkg/reactive"
)

// MetricsConfig configures the Prometheus instrumentation.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "reactive").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for effect run duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer

	// GraphGauges exports the size of the dependency graph as gauges
	// computed at scrape time. Default: true.
	GraphGauges bool
}

// MetricsOption configures the Prometheus instrumentation.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// WithGraphGauges enables or disables the dependency graph gauges.
func WithGraphGauges(enabled bool) MetricsOption {
	return func(c *MetricsConfig) {
		c.GraphGauges = enabled
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:   "reactive",
		Buckets:     prometheus.DefBuckets,
		Registry:    prometheus.DefaultRegisterer,
		GraphGauges: true,
	}
}

// Prometheus records engine activity as Prometheus metrics.
//
// Metrics collected:
//   - reactive_effect_runs_total: Counter of effect runs by effect name
//   - reactive_effect_run_duration_seconds: Histogram of effect run duration
//   - reactive_effects_running: Gauge of effect runs in progress
//   - reactive_tracks_total: Counter of new subscriptions
//   - reactive_triggers_total: Counter of notification passes
//   - reactive_trigger_fanout: Histogram of subscribers per notification pass
//   - reactive_effects_stopped_total: Counter of stopped effects
//   - reactive_rejected_writes_total: Counter of writes rejected by readonly targets
//   - reactive_graph_targets, reactive_graph_deps, reactive_graph_subscriptions:
//     size of the dependency graph at scrape time
type Prometheus struct {
	effectRuns     *prometheus.CounterVec
	effectDuration *prometheus.HistogramVec
	running        prometheus.Gauge
	tracks         prometheus.Counter
	triggers       prometheus.Counter
	fanout         prometheus.Histogram
	stopped        prometheus.Counter
	rejected       prometheus.Counter
}

// NewPrometheus creates the metrics and registers them with the configured
// registry. Registering twice with the same registry panics, so create one
// Prometheus per registry.
func NewPrometheus(opts ...MetricsOption) *Prometheus {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)
	p := &Prometheus{
		effectRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_runs_total",
			Help:        "Total number of effect runs",
			ConstLabels: config.ConstLabels,
		}, []string{"effect"}),

		effectDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_run_duration_seconds",
			Help:        "Effect run duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"effect"}),

		running: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effects_running",
			Help:        "Number of effect runs in progress",
			ConstLabels: config.ConstLabels,
		}),

		tracks: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tracks_total",
			Help:        "Total number of subscriptions recorded",
			ConstLabels: config.ConstLabels,
		}),

		triggers: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "triggers_total",
			Help:        "Total number of notification passes",
			ConstLabels: config.ConstLabels,
		}),

		fanout: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "trigger_fanout",
			Help:        "Number of subscribers notified per notification pass",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
		}),

		stopped: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effects_stopped_total",
			Help:        "Total number of stopped effects",
			ConstLabels: config.ConstLabels,
		}),

		rejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "rejected_writes_total",
			Help:        "Total number of writes rejected by readonly targets or computeds",
			ConstLabels: config.ConstLabels,
		}),
	}

	if config.GraphGauges {
		graphGauge := func(name, help string, value func(reactive.GraphStats) int) {
			factory.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        name,
				Help:        help,
				ConstLabels: config.ConstLabels,
			}, func() float64 {
				return float64(value(reactive.Stats()))
			})
		}
		graphGauge("graph_targets", "Number of targets in the dependency graph",
			func(s reactive.GraphStats) int { return s.Targets })
		graphGauge("graph_deps", "Number of dependency sets in the graph",
			func(s reactive.GraphStats) int { return s.Deps })
		graphGauge("graph_subscriptions", "Number of subscriptions in the graph",
			func(s reactive.GraphStats) int { return s.Subscriptions })
	}

	return p
}

// effectLabel keeps label cardinality bounded: unnamed effects share one
// series.
func effectLabel(info reactive.EffectInfo) string {
	if info.Name == "" {
		return "anonymous"
	}
	return info.Name
}

// EffectRun implements reactive.Instrumentation.
func (p *Prometheus) EffectRun(info reactive.EffectInfo) func() {
	label := effectLabel(info)
	start := time.Now()
	p.running.Inc()
	return func() {
		p.running.Dec()
		p.effectRuns.WithLabelValues(label).Inc()
		p.effectDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}
}

// Tracked implements reactive.Instrumentation.
func (p *Prometheus) Tracked(reactive.EffectInfo, any) {
	p.tracks.Inc()
}

// Triggered implements reactive.Instrumentation.
func (p *Prometheus) Triggered(_ any, subscribers int) {
	p.triggers.Inc()
	p.fanout.Observe(float64(subscribers))
}

// Stopped implements reactive.Instrumentation.
func (p *Prometheus) Stopped(reactive.EffectInfo) {
	p.stopped.Inc()
}

// WriteRejected implements reactive.Instrumentation.
func (p *Prometheus) WriteRejected(any) {
	p.rejected.Inc()
}
