// Package prometheus exports crawl progress as Prometheus metrics.
package prometheus

import (
	"net/http"
	"time"

	"github.com/fwojciec/doccrawl"
	"github.com/fwojciec/doccrawl/crawl"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "doccrawl"

// Observer turns crawl progress events into metrics on its own registry.
// Observe has the crawl.ProgressFunc signature.
type Observer struct {
	registry *prometheus.Registry

	pages    *prometheus.CounterVec
	failures *prometheus.CounterVec
	attempts prometheus.Counter
	chunks   prometheus.Counter
	latency  prometheus.Histogram

	active     prometheus.Gauge
	inFlight   prometheus.Gauge
	discovered prometheus.Gauge
	lastRun    prometheus.Gauge
}

// Option configures an Observer.
type Option func(*Observer)

// WithRuntimeMetrics adds the Go runtime and process collectors.
func WithRuntimeMetrics() Option {
	return func(o *Observer) {
		o.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
}

// NewObserver creates an Observer with all crawl metrics registered.
func NewObserver(opts ...Option) *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Pages processed, by terminal status.",
		}, []string{"status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_failures_total",
			Help:      "Failed pages, by error kind.",
		}, []string{"kind"}),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Fetch attempts including retries.",
		}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Chunks produced.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_duration_seconds",
			Help:      "Time spent fetching and extracting a page, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_active",
			Help:      "1 while a crawl run is executing.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frontier_in_flight",
			Help:      "URLs currently being fetched.",
		}),
		discovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frontier_discovered",
			Help:      "Distinct URLs seen by the frontier in the current run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_finished_timestamp_seconds",
			Help:      "Unix time the last crawl run finished.",
		}),
	}
	o.registry.MustRegister(
		o.pages, o.failures, o.attempts, o.chunks, o.latency,
		o.active, o.inFlight, o.discovered, o.lastRun,
	)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Observe records one progress event.
func (o *Observer) Observe(event crawl.ProgressEvent) {
	switch event.Type {
	case crawl.ProgressStarted:
		o.active.Set(1)
	case crawl.ProgressFetched:
		o.pages.WithLabelValues(event.Type.String()).Inc()
		o.observePage(event)
	case crawl.ProgressFailed:
		o.pages.WithLabelValues(event.Type.String()).Inc()
		o.failures.WithLabelValues(doccrawl.FailureKind(event.Error)).Inc()
		o.observePage(event)
	case crawl.ProgressSkipped:
		o.pages.WithLabelValues(event.Type.String()).Inc()
	case crawl.ProgressFinished:
		o.active.Set(0)
		o.lastRun.Set(float64(time.Now().Unix()))
	}
	o.inFlight.Set(float64(event.Status.InFlight))
	o.discovered.Set(float64(event.Status.Discovered))
}

func (o *Observer) observePage(event crawl.ProgressEvent) {
	o.attempts.Add(float64(event.Attempts))
	o.chunks.Add(float64(event.Chunks))
	o.latency.Observe(event.Latency.Seconds())
}

// Registry returns the registry holding the crawl metrics.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// Handler returns an HTTP handler serving the observer's metrics.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}
