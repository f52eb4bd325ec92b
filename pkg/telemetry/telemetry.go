package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/liveset/pkg/live"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

// Default tracer name for liveset registries.
const defaultTracerName = "liveset"

// Config configures a Monitor.
type Config struct {
	// Namespace is the metrics namespace (default: "liveset").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for dispatch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer

	// Tracer traces dispatch batches. Default: otel.Tracer("liveset").
	Tracer trace.Tracer
}

// Option configures a Monitor.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// WithTracer sets the tracer used for dispatch spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Config) {
		c.Tracer = tracer
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "liveset",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Monitor is a live.Monitor backed by Prometheus and OpenTelemetry.
type Monitor struct {
	setsOpen          prometheus.Gauge
	groupsOpen        prometheus.Gauge
	membership        *prometheus.CounterVec
	transformFailures prometheus.Counter
	teardowns         *prometheus.CounterVec
	records           *prometheus.CounterVec
	dispatchDuration  prometheus.Histogram

	tracer trace.Tracer
}

var _ live.Monitor = (*Monitor)(nil)

// New creates a Monitor and registers its collectors. It panics if the
// collectors are already registered with the same registry.
func New(opts ...Option) *Monitor {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Tracer == nil {
		config.Tracer = otel.Tracer(defaultTracerName)
	}
	factory := promauto.With(config.Registry)

	return &Monitor{
		setsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "sets_open",
			Help:        "Number of open live sets",
			ConstLabels: config.ConstLabels,
		}),

		groupsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "groups_open",
			Help:        "Number of open predicate groups",
			ConstLabels: config.ConstLabels,
		}),

		membership: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "membership_changes_total",
			Help:        "Total number of elements joining or leaving sets",
			ConstLabels: config.ConstLabels,
		}, []string{"direction"}),

		transformFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transform_failures_total",
			Help:        "Total number of transforms that panicked during dispatch",
			ConstLabels: config.ConstLabels,
		}),

		teardowns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "teardowns_total",
			Help:        "Total number of member teardowns by status",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		records: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_records_total",
			Help:        "Total number of dispatched records by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		dispatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_duration_seconds",
			Help:        "Batch dispatch duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		tracer: config.Tracer,
	}
}

func (m *Monitor) SetOpened(*live.Set) { m.setsOpen.Inc() }
func (m *Monitor) SetClosed(*live.Set) { m.setsOpen.Dec() }

func (m *Monitor) GroupOpened(string) { m.groupsOpen.Inc() }
func (m *Monitor) GroupClosed(string) { m.groupsOpen.Dec() }

func (m *Monitor) Matched(*live.Set, *html.Node) {
	m.membership.WithLabelValues("join").Inc()
}

func (m *Monitor) Unmatched(*live.Set, *html.Node) {
	m.membership.WithLabelValues("leave").Inc()
}

func (m *Monitor) Failed(*live.Set, *html.Node, error) {
	m.transformFailures.Inc()
}

func (m *Monitor) TornDown(_ *live.Set, _ *html.Node, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.teardowns.WithLabelValues(status).Inc()
}

// Dispatch starts a span for the batch and records its size. The returned
// function ends the span.
func (m *Monitor) Dispatch(structural, flips int) func(failures int) {
	start := time.Now()
	m.records.WithLabelValues("structural").Add(float64(structural))
	m.records.WithLabelValues("flip").Add(float64(flips))

	_, span := m.tracer.Start(context.Background(), "liveset.dispatch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int("liveset.records.structural", structural),
			attribute.Int("liveset.records.flips", flips),
		),
	)

	return func(failures int) {
		m.dispatchDuration.Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.Int("liveset.failures", failures))
		if failures > 0 {
			span.SetStatus(codes.Error, "transform failures")
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}
