// Package metrics exposes transform pipeline measurements in Prometheus
// format. Each Recorder owns its registry so tests and multiple apps in one
// process never collide on collector registration.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/any-hub/script-hub/internal/transform"
)

const namespace = "script_hub"

// Transform outcome labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Recorder implements transform.Recorder on top of Prometheus collectors.
type Recorder struct {
	transformTotal    *prometheus.CounterVec
	transformDuration prometheus.Histogram
	cacheLookups      *prometheus.CounterVec
	registry          *prometheus.Registry
}

var _ transform.Recorder = (*Recorder)(nil)

// New creates a Recorder with a private registry that also carries the Go
// runtime and process collectors.
func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.transformTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_total",
			Help:      "Total number of transformer invocations",
		},
		[]string{"result"},
	)

	r.transformDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transform_duration_seconds",
			Help:      "Transformer invocation duration in seconds",
			Buckets: []float64{
				.0005, .001, .005, .01, .025,
				.05, .1, .25, .5, 1, 2.5,
			},
		},
	)

	r.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Transform cache gate outcomes (hit, miss, skip, error)",
		},
		[]string{"result"},
	)

	r.registry.MustRegister(
		r.transformTotal,
		r.transformDuration,
		r.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// ObserveCacheLookup counts one cache gate decision.
func (r *Recorder) ObserveCacheLookup(result transform.CacheResult) {
	r.cacheLookups.WithLabelValues(string(result)).Inc()
}

// ObserveTransform records one transformer call.
func (r *Recorder) ObserveTransform(elapsed time.Duration, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	r.transformTotal.WithLabelValues(result).Inc()
	r.transformDuration.Observe(elapsed.Seconds())
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
