// Package metrics exposes Prometheus instrumentation for the fetch and
// analysis pipeline on a side HTTP listener.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	FetchAttempts  *prometheus.CounterVec // labels: source, outcome
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	IndicatorDur   prometheus.Histogram
	SignalsEmitted *prometheus.CounterVec // labels: type, direction

	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quant_fetch_attempts_total",
			Help: "Provider fetch attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quant_cache_hits_total",
			Help: "Cache hits on the market data fast path.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quant_cache_misses_total",
			Help: "Cache misses on the market data fast path.",
		}),
		IndicatorDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quant_indicator_compute_seconds",
			Help:    "Time spent computing one indicator set.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		SignalsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quant_signals_emitted_total",
			Help: "Signals produced by the signal generator.",
		}, []string{"type", "direction"}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.FetchAttempts, m.CacheHits, m.CacheMisses, m.IndicatorDur, m.SignalsEmitted)
	return m
}

// Serve blocks serving /metrics on addr.
func (m *Metrics) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// ObserveAttempt is nil-safe so callers can run without metrics wired.
func (m *Metrics) ObserveAttempt(source, outcome string) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}

func (m *Metrics) ObserveIndicator(d time.Duration) {
	if m == nil {
		return
	}
	m.IndicatorDur.Observe(d.Seconds())
}

func (m *Metrics) ObserveSignal(sigType, direction string) {
	if m == nil {
		return
	}
	m.SignalsEmitted.WithLabelValues(sigType, direction).Inc()
}
