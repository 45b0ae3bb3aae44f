// Package metrics exports request filter counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aether_filter"

// Recorder holds the filter metrics and the registry they live in.
type Recorder struct {
	registry *prometheus.Registry

	requestsAllowed prometheus.Counter
	requestsBlocked prometheus.Counter
	cacheHits       prometheus.Counter
	bypassed        prometheus.Counter
	blockedByMethod *prometheus.CounterVec
	rulesTotal      prometheus.Gauge
	decisionLatency prometheus.Histogram
}

// NewRecorder creates a Recorder with its own registry, including the
// Go runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requestsAllowed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_allowed_total",
			Help:      "Total requests allowed by the filter",
		}),
		requestsBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_blocked_total",
			Help:      "Total requests blocked by the filter",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decision_cache_hits_total",
			Help:      "Decisions answered from the decision cache",
		}),
		bypassed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_bypassed_total",
			Help:      "Requests let through by a one-time bypass",
		}),
		blockedByMethod: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocked_by_method_total",
			Help:      "Blocked requests by HTTP method",
		}, []string{"method"}),
		rulesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rules",
			Help:      "Number of loaded filter rules",
		}),
		decisionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decision_latency_seconds",
			Help:      "Time spent deciding a single request",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10),
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.requestsAllowed,
		r.requestsBlocked,
		r.cacheHits,
		r.bypassed,
		r.blockedByMethod,
		r.rulesTotal,
		r.decisionLatency,
	)
	return r
}

// ObserveDecision records one decision and how long it took.
func (r *Recorder) ObserveDecision(blocked bool, took time.Duration) {
	if blocked {
		r.requestsBlocked.Inc()
	} else {
		r.requestsAllowed.Inc()
	}
	r.decisionLatency.Observe(took.Seconds())
}

// ObserveBlock counts a blocked request by method. CONNECT tunnels show
// up under their own label.
func (r *Recorder) ObserveBlock(method string) {
	if method == "" {
		method = "unknown"
	}
	r.blockedByMethod.WithLabelValues(method).Inc()
}

// IncCacheHit records a decision served from cache.
func (r *Recorder) IncCacheHit() {
	r.cacheHits.Inc()
}

// IncBypass records a request let through by a bypass.
func (r *Recorder) IncBypass() {
	r.bypassed.Inc()
}

// SetRules records the loaded rule count.
func (r *Recorder) SetRules(n int) {
	r.rulesTotal.Set(float64(n))
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
